package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"DirectoryHarvester/internal/config"
	"DirectoryHarvester/internal/domain"
	"DirectoryHarvester/internal/infrastructure/browser/browsertest"
	"DirectoryHarvester/internal/infrastructure/storage"
	"DirectoryHarvester/internal/poll"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Output.Dir = t.TempDir()
	cfg.Logging.File = ""
	cfg.Harvest.PageDelay = 0
	cfg.Harvest.ExtractTimeout = time.Second
	cfg.Harvest.FastPoll = poll.Fixed(3, time.Millisecond)
	cfg.Harvest.SlowPoll = poll.Fixed(2, time.Millisecond)
	return cfg
}

func newTestApp(cfg config.Config, out *bytes.Buffer) *Application {
	a := New(cfg, nil)
	a.out = out
	a.now = func() time.Time { return time.Date(2025, time.May, 1, 12, 0, 0, 0, time.UTC) }
	return a
}

func TestHarvestWritesCSVJournalAndSummary(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	page := browsertest.New(browsertest.Options{RenderDelay: 1},
		browsertest.Document([]string{
			browsertest.Row(".,Alice Smith", "CPA, CA", "Acme", "Toronto"),
			browsertest.Row("Bob Jones", "CPA", "Globex", "Ottawa"),
		}, browsertest.NextEnabled),
		browsertest.Document([]string{
			browsertest.Row("Carol White", "CPA, CMA", "Initech", "London"),
		}, browsertest.NextDisabledClass),
	)

	var out bytes.Buffer
	result := newTestApp(cfg, &out).Harvest(context.Background(), page)

	require.NoError(t, result.Err)
	require.Equal(t, domain.ReasonNextDisabled, result.Reason)
	require.Equal(t, 2, result.Pages)
	require.Len(t, result.Records, 3)

	wantPath := filepath.Join(cfg.Output.Dir, "cpa_members_20250501_120000.csv")
	require.Equal(t, wantPath, result.OutputPath)

	f, err := os.Open(wantPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Equal(t, [][]string{
		storage.Header,
		{"Alice Smith", "CPA, CA", "Acme", "Toronto"},
		{"Bob Jones", "CPA", "Globex", "Ottawa"},
		{"Carol White", "CPA, CMA", "Initech", "London"},
	}, rows)

	journal, err := storage.OpenSQLiteJournal(context.Background(), cfg.JournalPath())
	require.NoError(t, err)
	defer journal.Close()
	last, err := journal.LastRun(context.Background())
	require.NoError(t, err)
	require.Equal(t, result.RunID, last.ID)
	require.Equal(t, 2, last.Pages)
	require.Equal(t, 3, last.Records)
	require.Equal(t, domain.ReasonNextDisabled, last.Reason)

	require.Contains(t, out.String(), "Directory harvest")
	require.Contains(t, out.String(), string(domain.ReasonNextDisabled))
}

func TestHarvestWithoutDataWritesNothing(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Journal.Disabled = true
	page := browsertest.New(browsertest.Options{}, browsertest.Document(nil, browsertest.NextEnabled))

	var out bytes.Buffer
	result := newTestApp(cfg, &out).Harvest(context.Background(), page)

	require.Equal(t, domain.ReasonNoData, result.Reason)
	require.Empty(t, result.OutputPath)

	entries, err := os.ReadDir(cfg.Output.Dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestHarvestSurvivesUnusableJournal(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	cfg.Journal.Path = filepath.Join(blocker, "harvest.db")

	page := browsertest.New(browsertest.Options{},
		browsertest.Document([]string{browsertest.Row("Alice", "CPA", "Acme", "Toronto")}, browsertest.NextDisabledAttr))

	var out bytes.Buffer
	result := newTestApp(cfg, &out).Harvest(context.Background(), page)

	require.Equal(t, domain.ReasonNextDisabled, result.Reason)
	require.FileExists(t, result.OutputPath)
}

func TestBrowserOptionsFollowConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	headless := false
	cfg.Browser.Headless = &headless
	cfg.Browser.RemoteURL = "ws://127.0.0.1:9222/devtools/browser/x"
	cfg.Browser.SettleDelay = 2 * time.Second

	opts := New(cfg, nil).browserOptions()

	require.False(t, opts.Headless)
	require.Equal(t, cfg.Browser.RemoteURL, opts.RemoteURL)
	require.Equal(t, 2*time.Second, opts.SettleDelay)
	require.Equal(t, 60*time.Second, opts.NavigationTimeout)
	require.NotNil(t, opts.Logger)
}

func TestHarvestReportsPreviousRun(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	doc := browsertest.Document([]string{browsertest.Row("Alice", "CPA", "Acme", "Toronto")}, browsertest.NextDisabledClass)

	var first bytes.Buffer
	earlier := newTestApp(cfg, &first).Harvest(context.Background(), browsertest.New(browsertest.Options{}, doc))
	require.NotContains(t, first.String(), "Previous run")

	var second bytes.Buffer
	newTestApp(cfg, &second).Harvest(context.Background(), browsertest.New(browsertest.Options{}, doc))

	require.Contains(t, second.String(), "Previous run")
	require.Contains(t, second.String(), earlier.RunID+": 1 pages, 1 records, "+string(domain.ReasonNextDisabled))
}
