package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"NewsRefinery/internal/domain"
	"NewsRefinery/internal/ports"
	"NewsRefinery/internal/retry"
)

// itemOutcome classifies one item's trip through the per-item stages.
type itemOutcome int

const (
	itemFailed itemOutcome = iota
	itemCollapsed
	itemSurvived
)

// Normalizer cleans one raw item. Implemented by internal/normalizer.
type Normalizer interface {
	Normalize(raw domain.RawItem) domain.NormalizedNews
}

// Deduper rejects repeats of already-seen items. Implemented by
// internal/dedup.
type Deduper interface {
	IsDuplicate(item domain.NormalizedNews) bool
}

// QualityChecker produces the second, independent persistence gate.
// Implemented by internal/validator.
type QualityChecker interface {
	Validate(news domain.NormalizedNews) domain.QualityReport
}

// AlertSink receives persisted items for asynchronous alerting.
type AlertSink interface {
	Enqueue(news domain.PersistedNews) bool
}

// Statistics are the process-wide running totals across batch runs.
type Statistics struct {
	TotalProcessed      int64
	SuccessfulProcessed int64
	FailedProcessed     int64
}

// PipelineDeps wires all collaborators into the orchestrator.
type PipelineDeps struct {
	Source     ports.ScrapeSource
	Normalizer Normalizer
	Dedup      Deduper
	Validator  QualityChecker
	Repository ports.NewsRepository
	Alerts     AlertSink
	Logger     *slog.Logger
	Workers    int
	SaveRetry  retry.Config
}

// Pipeline drives a batch of raw items through normalization,
// deduplication and validation concurrently, then persists the
// survivors in one call.
type Pipeline struct {
	source     ports.ScrapeSource
	normalizer Normalizer
	dedup      Deduper
	validator  QualityChecker
	repository ports.NewsRepository
	alerts     AlertSink
	logger     *slog.Logger
	workers    int
	saveRetry  retry.Config

	totalProcessed atomic.Int64
	succeeded      atomic.Int64
	failed         atomic.Int64
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	workers := deps.Workers
	if workers <= 0 {
		workers = 4
	}
	saveRetry := deps.SaveRetry
	if saveRetry.MaxAttempts <= 0 {
		saveRetry = retry.Config{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:     deps.Source,
		normalizer: deps.Normalizer,
		dedup:      deps.Dedup,
		validator:  deps.Validator,
		repository: deps.Repository,
		alerts:     deps.Alerts,
		logger:     logger,
		workers:    workers,
		saveRetry:  saveRetry,
	}
}

// Run fetches a batch from the scrape source and processes it. A failed
// fetch fails the run; per-provider failures are absorbed inside the
// source and simply yield fewer items.
func (p *Pipeline) Run(ctx context.Context) (domain.ProcessingResult, error) {
	if p.source == nil {
		return domain.ProcessingResult{}, nil
	}

	items, err := p.source.FetchBatch(ctx)
	if err != nil {
		return domain.ProcessingResult{}, fmt.Errorf("fetch batch: %w", err)
	}

	return p.ProcessBatch(ctx, items)
}

// ProcessBatch runs the per-item pipeline over a bounded worker pool,
// aggregates counts, and hands all survivors to the repository in a
// single call. Order across items is not guaranteed. An expired ctx
// leaves unstarted items uncounted; re-processing them later is safe
// because dedup fingerprints already exist.
func (p *Pipeline) ProcessBatch(ctx context.Context, items []domain.RawItem) (domain.ProcessingResult, error) {
	var (
		result    domain.ProcessingResult
		mu        sync.Mutex
		wg        sync.WaitGroup
		succeeded atomic.Int64
		failed    atomic.Int64
		seen      sync.Map // batch-local content hashes
	)

	sem := make(chan struct{}, p.workers)

	for i := range items {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(raw domain.RawItem) {
			defer wg.Done()
			defer func() { <-sem }()

			survivor, outcome := p.processItem(raw, &seen)

			p.totalProcessed.Add(1)
			if outcome == itemFailed {
				p.failed.Add(1)
				failed.Add(1)
				return
			}

			p.succeeded.Add(1)
			succeeded.Add(1)
			if outcome == itemCollapsed {
				return
			}
			mu.Lock()
			result.Survivors = append(result.Survivors, survivor)
			mu.Unlock()
		}(items[i])
	}

	wg.Wait()

	result.Succeeded = int(succeeded.Load())
	result.Failed = int(failed.Load())
	result.Total = result.Succeeded + result.Failed

	if len(result.Survivors) == 0 || p.repository == nil {
		return result, nil
	}

	var persisted []domain.PersistedNews
	saveErr := retry.Do(ctx, p.saveRetry, func() error {
		var err error
		persisted, err = p.repository.SaveAll(ctx, result.Survivors)
		return err
	})
	if saveErr != nil {
		// The one loud failure mode: a normalized batch that cannot be
		// persisted fails the whole run.
		return result, fmt.Errorf("save batch: %w", saveErr)
	}

	p.logger.Info("batch persisted",
		"total", result.Total,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"persisted", len(persisted))

	if p.alerts != nil {
		for _, item := range persisted {
			p.alerts.Enqueue(item)
		}
	}

	return result, nil
}

// processItem runs one item through all stages. A panic anywhere inside
// is recovered here so a poisoned item cannot abort its siblings; the
// item just counts as failed. A panic in the dedup stage fails open: the
// item is kept rather than discarded.
//
// Exact in-batch duplicates collapse against the batch-local seen map
// before the cross-batch engine is consulted, so only the first copy
// reaches the engine caches. Collapsed copies count as succeeded but
// produce no survivor.
func (p *Pipeline) processItem(raw domain.RawItem, seen *sync.Map) (survivor domain.NormalizedNews, outcome itemOutcome) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("item pipeline panicked", "url", raw.SourceURL, "panic", r)
			survivor, outcome = domain.NormalizedNews{}, itemFailed
		}
	}()

	normalized := p.normalizer.Normalize(raw)
	if !normalized.Success {
		p.logger.Debug("normalization rejected item",
			"url", raw.SourceURL, "score", normalized.Score, "errors", normalized.Errors)
		return domain.NormalizedNews{}, itemFailed
	}

	if _, dup := seen.LoadOrStore(normalized.ContentHash, struct{}{}); dup {
		p.logger.Debug("exact in-batch duplicate collapsed", "url", raw.SourceURL)
		return domain.NormalizedNews{}, itemCollapsed
	}

	if p.duplicateFailOpen(normalized) {
		return domain.NormalizedNews{}, itemFailed
	}

	if p.validator != nil {
		report := p.validator.Validate(normalized)
		if !report.Valid {
			p.logger.Warn("quality validation rejected item",
				"url", raw.SourceURL, "score", report.Score, "errors", report.Errors)
			return domain.NormalizedNews{}, itemFailed
		}
	}

	return normalized, itemSurvived
}

// duplicateFailOpen consults the dedup engine, treating any panic as
// "not a duplicate": losing dedup precision beats silently discarding
// legitimate news.
func (p *Pipeline) duplicateFailOpen(item domain.NormalizedNews) (dup bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("dedup check failed, admitting item", "url", item.SourceURL, "panic", r)
			dup = false
		}
	}()

	if p.dedup == nil {
		return false
	}
	return p.dedup.IsDuplicate(item)
}

// ProcessingStatistics returns the running totals across all runs.
func (p *Pipeline) ProcessingStatistics() Statistics {
	return Statistics{
		TotalProcessed:      p.totalProcessed.Load(),
		SuccessfulProcessed: p.succeeded.Load(),
		FailedProcessed:     p.failed.Load(),
	}
}

// ResetStatistics zeroes the running totals. Operator action only.
func (p *Pipeline) ResetStatistics() {
	p.totalProcessed.Store(0)
	p.succeeded.Store(0)
	p.failed.Store(0)
}
