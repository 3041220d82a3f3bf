package report

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"DirectoryHarvester/internal/domain"
)

func TestPublishSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := NewTableReporter(&buf, nil)

	started := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	err := r.PublishSummary(context.Background(), domain.HarvestResult{
		RunID:      "run-42",
		Pages:      3,
		Records:    make([]domain.Record, 7),
		Reason:     domain.ReasonPageCap,
		OutputPath: "output/cpa_members_20250601_100000.csv",
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Err:        errors.New("boom"),
	})
	if err != nil {
		t.Fatalf("PublishSummary returned error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"run-42", "page-cap-reached", "cpa_members_20250601_100000.csv", "1m30s", "boom"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestPublishSummaryWithoutOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := NewTableReporter(&buf, nil).PublishSummary(context.Background(), domain.HarvestResult{Reason: domain.ReasonNoData}); err != nil {
		t.Fatalf("PublishSummary returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "no-data-on-page") {
		t.Fatalf("summary missing reason:\n%s", buf.String())
	}
}

func TestPublishSummaryWithPreviousRun(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := NewTableReporter(&buf, nil).WithPrevious(domain.RunSummary{
		ID:        "run-41",
		Pages:     12,
		Records:   300,
		StartedAt: time.Date(2025, time.May, 30, 9, 0, 0, 0, time.UTC),
	})
	if err := r.PublishSummary(context.Background(), domain.HarvestResult{RunID: "run-42", Reason: domain.ReasonPageCap}); err != nil {
		t.Fatalf("PublishSummary returned error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Previous run", "run-41: 12 pages, 300 records, unfinished"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
}
