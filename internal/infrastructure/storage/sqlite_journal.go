package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"DirectoryHarvester/internal/domain"
	"DirectoryHarvester/internal/ports"
)

// timeLayout is fixed width so text order in SQLite is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// pageEntry is one committed page of a run.
type pageEntry struct {
	Page        int
	Records     int
	Fingerprint string
	CommittedAt time.Time
}

// SQLiteJournal records runs and committed pages in a local SQLite file.
type SQLiteJournal struct {
	db  *sql.DB
	now func() time.Time
}

var _ ports.RunJournal = (*SQLiteJournal)(nil)

// OpenSQLiteJournal opens (or creates) the journal database at path.
func OpenSQLiteJournal(ctx context.Context, path string) (*SQLiteJournal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA foreign_keys = ON",
		journalSchema,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init journal: %w", err)
		}
	}

	return &SQLiteJournal{db: db, now: time.Now}, nil
}

// Close releases the database handle.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// StartRun inserts a new run row.
func (j *SQLiteJournal) StartRun(ctx context.Context, runID, url string, startedAt time.Time) error {
	_, err := sq.Insert("runs").
		Columns("id", "url", "started_at").
		Values(runID, url, startedAt.UTC().Format(timeLayout)).
		RunWith(j.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordPage stores a committed page and bumps the run counters.
func (j *SQLiteJournal) RecordPage(ctx context.Context, runID string, page, records int, fingerprint string) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin page tx: %w", err)
	}

	_, err = sq.Insert("pages").
		Columns("run_id", "page_number", "records", "fingerprint", "committed_at").
		Values(runID, page, records, fingerprint, j.now().UTC().Format(timeLayout)).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert page: %w", err)
	}

	_, err = sq.Update("runs").
		Set("pages", page).
		Set("records", sq.Expr("records + ?", records)).
		Where(sq.Eq{"id": runID}).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update run counters: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit page: %w", err)
	}
	return nil
}

// FinishRun stores the termination reason and final counters.
func (j *SQLiteJournal) FinishRun(ctx context.Context, result domain.HarvestResult) error {
	finished := result.FinishedAt
	if finished.IsZero() {
		finished = j.now()
	}

	res, err := sq.Update("runs").
		Set("finished_at", finished.UTC().Format(timeLayout)).
		Set("reason", string(result.Reason)).
		Set("pages", result.Pages).
		Set("records", len(result.Records)).
		Set("output_path", result.OutputPath).
		Where(sq.Eq{"id": result.RunID}).
		RunWith(j.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: unknown run", result.RunID)
	}
	return nil
}

// LastRun returns the most recently started run.
func (j *SQLiteJournal) LastRun(ctx context.Context) (domain.RunSummary, error) {
	var (
		summary               domain.RunSummary
		started               string
		finished, reason, out sql.NullString
	)

	err := sq.Select("id", "url", "started_at", "finished_at", "reason", "pages", "records", "output_path").
		From("runs").
		OrderBy("started_at DESC").
		Limit(1).
		RunWith(j.db).
		QueryRowContext(ctx).
		Scan(&summary.ID, &summary.URL, &started, &finished, &reason, &summary.Pages, &summary.Records, &out)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RunSummary{}, fmt.Errorf("no runs recorded: %w", err)
	}
	if err != nil {
		return domain.RunSummary{}, fmt.Errorf("select last run: %w", err)
	}

	summary.StartedAt, _ = time.Parse(timeLayout, started)
	if finished.Valid {
		summary.FinishedAt, _ = time.Parse(timeLayout, finished.String)
	}
	summary.Reason = domain.TerminationReason(reason.String)
	summary.OutputPath = out.String
	return summary, nil
}

// committedPages lists the committed pages of a run in page order.
func (j *SQLiteJournal) committedPages(ctx context.Context, runID string) ([]pageEntry, error) {
	rows, err := sq.Select("page_number", "records", "fingerprint", "committed_at").
		From("pages").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("page_number").
		RunWith(j.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query pages: %w", err)
	}
	defer rows.Close()

	var entries []pageEntry
	for rows.Next() {
		var (
			entry     pageEntry
			committed string
		)
		if err := rows.Scan(&entry.Page, &entry.Records, &entry.Fingerprint, &committed); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		entry.CommittedAt, _ = time.Parse(timeLayout, committed)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return entries, nil
}
