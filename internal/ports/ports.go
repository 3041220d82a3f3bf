package ports

import (
	"context"
	"errors"
	"time"

	"DirectoryHarvester/internal/domain"
)

var (
	// ErrTimeout is returned when a selector did not appear in time.
	ErrTimeout = errors.New("timed out waiting for selector")
	// ErrElementNotFound is returned by QuerySelector when nothing matches.
	ErrElementNotFound = errors.New("element not found")
)

// Page is the live browser page the harvest operates on.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	QuerySelector(ctx context.Context, selector string) (Element, error)
	QuerySelectorAll(ctx context.Context, selector string) ([]Element, error)
	WaitForTimeout(ctx context.Context, d time.Duration) error
}

// Element is a handle on a single DOM node.
type Element interface {
	InnerText() (string, error)
	Attribute(name string) (string, bool, error)
	Disabled() (bool, error)
	Click() error
	HTML() (string, error)
}

// RecordExtractor turns the currently rendered table into records.
type RecordExtractor interface {
	Extract(ctx context.Context, page Page) []domain.Record
	ReadFingerprint(ctx context.Context, page Page) (string, bool)
}

// RecordSink persists the accumulated record set.
type RecordSink interface {
	Persist(records []domain.Record) (string, error)
	Backup(records []domain.Record) (string, error)
}

// RunJournal keeps an audit trail of runs and committed pages.
type RunJournal interface {
	StartRun(ctx context.Context, runID, url string, startedAt time.Time) error
	RecordPage(ctx context.Context, runID string, page, records int, fingerprint string) error
	FinishRun(ctx context.Context, result domain.HarvestResult) error
}

// Reporter publishes the summary of a finished run.
type Reporter interface {
	PublishSummary(ctx context.Context, result domain.HarvestResult) error
}
