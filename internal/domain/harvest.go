package domain

import "time"

// TerminationReason explains why the harvest loop stopped advancing.
type TerminationReason string

const (
	ReasonPageCap            TerminationReason = "page-cap-reached"
	ReasonNoNextControl      TerminationReason = "no-next-control"
	ReasonNextDisabled       TerminationReason = "next-control-disabled"
	ReasonVerificationFailed TerminationReason = "verification-failed"
	ReasonNoData             TerminationReason = "no-data-on-page"
	ReasonUnhandledError     TerminationReason = "unhandled-error"
	// ReasonRepeatedContent is only produced when the repeat policy is set to stop.
	ReasonRepeatedContent TerminationReason = "repeated-content"
)

// HarvestResult is the finalized state of one harvest run.
type HarvestResult struct {
	RunID      string
	Pages      int
	Records    []Record
	Reason     TerminationReason
	OutputPath string
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

// Duration reports how long the run took.
func (r HarvestResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunSummary is the journaled outcome of an earlier run.
type RunSummary struct {
	ID         string
	URL        string
	StartedAt  time.Time
	FinishedAt time.Time
	Reason     TerminationReason
	Pages      int
	Records    int
	OutputPath string
}
