package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"DirectoryHarvester/internal/domain"
	"DirectoryHarvester/internal/ports"
)

// TableReporter prints a run summary table and mirrors it into the log.
type TableReporter struct {
	out      io.Writer
	logger   *slog.Logger
	previous *domain.RunSummary
}

var _ ports.Reporter = (*TableReporter)(nil)

// NewTableReporter writes to out, which defaults to stdout.
func NewTableReporter(out io.Writer, log *slog.Logger) *TableReporter {
	if out == nil {
		out = os.Stdout
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &TableReporter{out: out, logger: log}
}

// WithPrevious adds the journaled outcome of the run before this one to the summary.
func (r *TableReporter) WithPrevious(prev domain.RunSummary) *TableReporter {
	r.previous = &prev
	return r
}

// PublishSummary renders the finished run.
func (r *TableReporter) PublishSummary(ctx context.Context, result domain.HarvestResult) error {
	output := result.OutputPath
	if output == "" {
		output = "-"
	}

	r.logger.InfoContext(ctx, "harvest finished",
		"run_id", result.RunID,
		"pages", result.Pages,
		"records", len(result.Records),
		"reason", string(result.Reason),
		"output", output,
		"duration", result.Duration().Round(time.Millisecond),
	)
	if len(result.Records) == 0 {
		r.logger.InfoContext(ctx, "no data was collected")
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(r.out)
	tw.SetTitle("Directory harvest")
	tw.SetStyle(table.StyleLight)
	tw.AppendRows([]table.Row{
		{"Run", result.RunID},
		{"Pages", result.Pages},
		{"Records", len(result.Records)},
		{"Stopped because", string(result.Reason)},
		{"Output", output},
		{"Duration", result.Duration().Round(time.Second).String()},
	})
	if result.Err != nil {
		tw.AppendRow(table.Row{"Error", fmt.Sprint(result.Err)})
	}
	if p := r.previous; p != nil {
		tw.AppendSeparator()
		tw.AppendRow(table.Row{"Previous run", fmt.Sprintf("%s: %d pages, %d records, %s (%s)",
			p.ID, p.Pages, p.Records, previousReason(p.Reason), p.StartedAt.Local().Format("2006-01-02 15:04"))})
	}
	tw.Render()
	return nil
}

func previousReason(reason domain.TerminationReason) string {
	if reason == "" {
		return "unfinished"
	}
	return string(reason)
}
