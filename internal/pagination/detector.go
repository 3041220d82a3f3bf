// Package pagination drives the directory's next-page control and confirms
// that the client-side render actually replaced the table content.
package pagination

import (
	"context"
	"errors"
	"log/slog"

	"DirectoryHarvester/internal/poll"
	"DirectoryHarvester/internal/ports"
)

// Detector watches the first-row fingerprint for a change.
type Detector struct {
	extractor ports.RecordExtractor
	logger    *slog.Logger
}

// NewDetector builds a Detector reading fingerprints through extractor.
func NewDetector(extractor ports.RecordExtractor, log *slog.Logger) *Detector {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Detector{extractor: extractor, logger: log}
}

// PollForChange reads the fingerprint up to policy.MaxAttempts times and
// returns as soon as it is non-empty and differs from previous. A missing row
// counts as not yet changed.
func (d *Detector) PollForChange(ctx context.Context, page ports.Page, previous string, policy poll.Policy) (bool, string) {
	var latest string

	attempts, err := policy.Until(ctx, func(ctx context.Context) (bool, error) {
		fp, ok := d.extractor.ReadFingerprint(ctx, page)
		if !ok {
			return false, nil
		}
		latest = fp
		return fp != previous, nil
	})

	switch {
	case err == nil:
		d.logger.Debug("table content changed", "previous", previous, "current", latest, "attempts", attempts)
		return true, latest
	case errors.Is(err, poll.ErrExhausted):
		d.logger.Debug("table content unchanged", "previous", previous, "attempts", attempts, "policy", policy.String())
	default:
		d.logger.Warn("polling for table change interrupted", "attempts", attempts, "error", err)
	}
	return false, ""
}
