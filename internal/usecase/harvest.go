package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"DirectoryHarvester/internal/domain"
	"DirectoryHarvester/internal/pagination"
	"DirectoryHarvester/internal/ports"
)

// RepeatPolicy decides what happens when a page looks like the previous one.
type RepeatPolicy string

const (
	// RepeatWarn logs the symptom and keeps going.
	RepeatWarn RepeatPolicy = "warn"
	// RepeatStop terminates before committing the repeated page.
	RepeatStop RepeatPolicy = "stop"
)

// repeatWindow is how many leading records of a new page are compared with the previous page.
const repeatWindow = 3

// Paginator advances the directory by one page.
type Paginator interface {
	Advance(ctx context.Context, current []domain.Record) pagination.Outcome
}

// HarvestDeps wires the driven adapters into the harvest loop.
type HarvestDeps struct {
	Page      ports.Page
	Extractor ports.RecordExtractor
	Paginator Paginator
	Sink      ports.RecordSink
	Journal   ports.RunJournal
	Logger    *slog.Logger
}

// HarvestOptions tune the loop. MaxPages <= 0 disables the page cap.
type HarvestOptions struct {
	URL             string
	MaxPages        int
	CheckpointEvery int
	WriteEveryPage  bool
	PageDelay       time.Duration
	OnRepeat        RepeatPolicy
}

// Harvester runs extract → persist → advance cycles over one page session.
type Harvester struct {
	page      ports.Page
	extractor ports.RecordExtractor
	paginator Paginator
	sink      ports.RecordSink
	journal   ports.RunJournal
	logger    *slog.Logger
	opts      HarvestOptions

	newRunID func() string
	now      func() time.Time
}

// NewHarvester constructs the harvest loop.
func NewHarvester(deps HarvestDeps, opts HarvestOptions) *Harvester {
	log := deps.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if opts.OnRepeat == "" {
		opts.OnRepeat = RepeatWarn
	}
	return &Harvester{
		page:      deps.Page,
		extractor: deps.Extractor,
		paginator: deps.Paginator,
		sink:      deps.Sink,
		journal:   deps.Journal,
		logger:    log,
		opts:      opts,
		newRunID:  uuid.NewString,
		now:       time.Now,
	}
}

// Run harvests until a terminal condition. Whatever was committed is written
// once more on exit, including after cancellation or a driver panic.
func (h *Harvester) Run(ctx context.Context) (result domain.HarvestResult) {
	result = domain.HarvestResult{
		RunID:     h.newRunID(),
		StartedAt: h.now(),
	}
	log := h.logger.With("run_id", result.RunID)

	if h.journal != nil {
		if err := h.journal.StartRun(ctx, result.RunID, h.opts.URL, result.StartedAt); err != nil {
			log.Warn("journal start run", "error", err)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			result.Reason = domain.ReasonUnhandledError
			result.Err = fmt.Errorf("harvest panicked: %v", r)
			log.Error("unexpected error during harvest", "error", result.Err)
		}
		h.finalize(context.WithoutCancel(ctx), log, &result)
	}()

	result.Reason, result.Err = h.loop(ctx, log, &result)
	return result
}

func (h *Harvester) loop(ctx context.Context, log *slog.Logger, result *domain.HarvestResult) (domain.TerminationReason, error) {
	pageNo := 1
	log.Info("extracting data from page", "page", pageNo)
	records := h.extractor.Extract(ctx, h.page)

	var previous []domain.Record
	for {
		if err := ctx.Err(); err != nil {
			log.Error("harvest interrupted", "page", pageNo, "error", err)
			return domain.ReasonUnhandledError, err
		}

		if len(records) == 0 {
			log.Info("no data found on the current page", "page", pageNo)
			return domain.ReasonNoData, nil
		}

		if previous != nil && looksRepeated(previous, records) {
			log.Warn("page content matches the previous page, pagination may be stuck",
				"page", pageNo, "first_member", records[0].MemberName, "policy", string(h.opts.OnRepeat))
			if h.opts.OnRepeat == RepeatStop {
				return domain.ReasonRepeatedContent, nil
			}
		}

		h.commit(ctx, log, result, pageNo, records)

		if h.opts.MaxPages > 0 && pageNo >= h.opts.MaxPages {
			log.Info("reached maximum page limit", "max_pages", h.opts.MaxPages)
			return domain.ReasonPageCap, nil
		}

		outcome := h.paginator.Advance(ctx, records)
		if !outcome.Advanced {
			log.Info("no more pages to process", "page", pageNo, "reason", string(outcome.Reason))
			return outcome.Reason, outcome.Err
		}

		previous = records
		records = outcome.Records
		pageNo++

		if h.opts.PageDelay > 0 {
			_ = h.page.WaitForTimeout(ctx, h.opts.PageDelay)
		}
		log.Info("extracted data from page", "page", pageNo, "records", len(records))
	}
}

// commit appends a page to the accumulated set and performs checkpoint writes.
func (h *Harvester) commit(ctx context.Context, log *slog.Logger, result *domain.HarvestResult, pageNo int, records []domain.Record) {
	result.Records = append(result.Records, records...)
	result.Pages = pageNo
	log.Info("found records on page", "page", pageNo, "records", len(records), "total", len(result.Records))

	if h.journal != nil {
		if err := h.journal.RecordPage(ctx, result.RunID, pageNo, len(records), domain.Fingerprint(records)); err != nil {
			log.Warn("journal record page", "page", pageNo, "error", err)
		}
	}

	if h.sink == nil {
		return
	}

	checkpoint := h.opts.CheckpointEvery > 0 && pageNo%h.opts.CheckpointEvery == 0
	if checkpoint || h.opts.WriteEveryPage {
		if path, err := h.sink.Persist(result.Records); err != nil {
			log.Error("save progress", "page", pageNo, "error", err)
		} else {
			result.OutputPath = path
		}
	}
	if checkpoint {
		log.Info("checkpoint reached", "page", pageNo, "total", len(result.Records))
		if _, err := h.sink.Backup(result.Records); err != nil {
			log.Error("save backup", "page", pageNo, "error", err)
		}
	}
}

func (h *Harvester) finalize(ctx context.Context, log *slog.Logger, result *domain.HarvestResult) {
	if len(result.Records) > 0 && h.sink != nil {
		path, err := h.sink.Persist(result.Records)
		if err != nil {
			log.Error("final save failed", "records", len(result.Records), "error", err)
			if result.Err == nil {
				result.Err = fmt.Errorf("final save: %w", err)
			}
		} else {
			result.OutputPath = path
			log.Info("total records collected", "records", len(result.Records), "path", path)
		}
	}

	result.FinishedAt = h.now()
	if h.journal != nil {
		if err := h.journal.FinishRun(ctx, *result); err != nil {
			log.Warn("journal finish run", "error", err)
		}
	}
}

// looksRepeated reports whether next starts like prev, or repeats prev's trailing record.
func looksRepeated(prev, next []domain.Record) bool {
	if len(prev) == 0 || len(next) == 0 {
		return false
	}
	if prev[0] == next[0] {
		return true
	}
	tail := prev[len(prev)-1]
	for i := 0; i < len(next) && i < repeatWindow; i++ {
		if next[i] == tail {
			return true
		}
	}
	return false
}
