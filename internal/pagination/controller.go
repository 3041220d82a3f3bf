package pagination

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"DirectoryHarvester/internal/domain"
	"DirectoryHarvester/internal/poll"
	"DirectoryHarvester/internal/ports"
)

const (
	// NextButtonSelector is the class-token fallback for the next control.
	NextButtonSelector = "button.slds-button.slds-button_neutral"
	nextButtonText     = "Next"
)

// Outcome is the result of one Advance call. Records is set only when Advanced is true.
type Outcome struct {
	Advanced bool
	Records  []domain.Record
	Reason   domain.TerminationReason
	Err      error
}

// Config holds the two verification tiers.
type Config struct {
	Fast poll.Policy
	Slow poll.Policy
}

// Controller clicks the next control and confirms the page changed.
type Controller struct {
	page      ports.Page
	extractor ports.RecordExtractor
	detector  *Detector
	cfg       Config
	logger    *slog.Logger
}

// NewController wires the page, extractor and verification policies.
func NewController(page ports.Page, extractor ports.RecordExtractor, cfg Config, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		page:      page,
		extractor: extractor,
		detector:  NewDetector(extractor, log),
		cfg:       cfg,
		logger:    log,
	}
}

// Advance moves to the next page. It never returns an error: failures are
// reported through Outcome.Reason so the caller can stop gracefully.
func (c *Controller) Advance(ctx context.Context, current []domain.Record) Outcome {
	outcome, err := c.advance(ctx, current)
	if err != nil {
		c.logger.Error("error handling pagination", "error", err)
		return Outcome{Reason: domain.ReasonUnhandledError, Err: err}
	}
	return outcome
}

func (c *Controller) advance(ctx context.Context, current []domain.Record) (Outcome, error) {
	previous := domain.Fingerprint(current)

	next, err := c.findNext(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if next == nil {
		c.logger.Info("no next page button found")
		return Outcome{Reason: domain.ReasonNoNextControl}, nil
	}

	disabled, err := isDisabled(next)
	if err != nil {
		return Outcome{}, err
	}
	if disabled {
		c.logger.Info("next page button is disabled")
		return Outcome{Reason: domain.ReasonNextDisabled}, nil
	}

	c.logger.Debug("clicking next page button", "previous", previous)
	if err := next.Click(); err != nil {
		return Outcome{}, fmt.Errorf("click next: %w", err)
	}

	changed, fp := c.detector.PollForChange(ctx, c.page, previous, c.cfg.Fast)
	if !changed {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		c.logger.Info("table not updated yet, switching to slow verification",
			"policy", c.cfg.Slow.String(), "budget", c.cfg.Slow.Budget())
		changed, fp = c.detector.PollForChange(ctx, c.page, previous, c.cfg.Slow)
	}
	if !changed {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		c.logger.Warn("table content did not update", "previous", previous)
		return Outcome{Reason: domain.ReasonVerificationFailed}, nil
	}

	records := c.extractor.Extract(ctx, c.page)
	c.logger.Info("table content updated", "first_member", fp, "records", len(records))
	return Outcome{Advanced: true, Records: records}, nil
}

// findNext prefers a button labelled "Next" and falls back to the neutral
// button class. It returns nil when neither exists.
func (c *Controller) findNext(ctx context.Context) (ports.Element, error) {
	buttons, err := c.page.QuerySelectorAll(ctx, "button")
	if err != nil {
		return nil, fmt.Errorf("query buttons: %w", err)
	}
	for _, b := range buttons {
		text, err := b.InnerText()
		if err != nil {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(text), nextButtonText) {
			return b, nil
		}
	}

	fallback, err := c.page.QuerySelector(ctx, NextButtonSelector)
	if err != nil {
		if errors.Is(err, ports.ErrElementNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query next button: %w", err)
	}
	return fallback, nil
}

func isDisabled(el ports.Element) (bool, error) {
	class, _, err := el.Attribute("class")
	if err != nil {
		return false, fmt.Errorf("read class: %w", err)
	}
	for _, token := range strings.Fields(class) {
		if strings.Contains(strings.ToLower(token), "disabled") {
			return true, nil
		}
	}

	disabled, err := el.Disabled()
	if err != nil {
		return false, fmt.Errorf("read disabled state: %w", err)
	}
	return disabled, nil
}
