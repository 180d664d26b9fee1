package scraper

import (
	"context"
	"fmt"
	"log/slog"

	"NewsRefinery/internal/config"
	"NewsRefinery/internal/domain"
	"NewsRefinery/internal/ports"
	"NewsRefinery/internal/scanner"
)

// StrategySource implements ScrapeSource via registered scanner
// strategies. One failing provider contributes zero items; the others
// still arrive in the same batch.
type StrategySource struct {
	registry *scanner.Registry
	sources  []config.SourceConfig
	logger   *slog.Logger
}

var _ ports.ScrapeSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with config-defined providers.
func NewStrategySource(reg *scanner.Registry, sources []config.SourceConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sources:  sources,
		logger:   log,
	}
}

// FetchBatch iterates over configured providers and executes their
// scanners, aggregating everything that succeeded.
func (s *StrategySource) FetchBatch(ctx context.Context) ([]domain.RawItem, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("fetch batch", "providers", len(s.sources))

	var aggregated []domain.RawItem
	for _, src := range s.sources {
		strategy, err := s.registry.Resolve(src.Scraper)
		if err != nil {
			s.warn("provider skipped, unknown scraper", "provider", src.Name, "scraper", src.Scraper)
			continue
		}

		req := scanner.Request{
			Provider: src.Name,
			URL:      src.URL,
			Options:  src.Options,
		}

		results, err := strategy.Scan(ctx, req)
		if err != nil {
			// Failed provider fetch means zero items from that
			// provider, never a failed batch.
			s.warn("provider fetch failed", "provider", src.Name, "error", err)
			continue
		}

		s.debug("provider produced items", "provider", src.Name, "count", len(results))
		aggregated = append(aggregated, results...)
	}

	s.debug("strategy source done", "total_items", len(aggregated))
	return aggregated, nil
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
