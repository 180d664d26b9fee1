// Package ranking orders persisted news against a user's category
// watchlist. Scores are transient: recomputed on every request, never
// stored.
package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"NewsRefinery/internal/domain"
	"NewsRefinery/internal/ports"
)

// Relevance is the share of an item's categories present in the
// watchlist: |intersection| / |item categories|. Zero when either side
// is empty.
func Relevance(categories, watchlist []string) float64 {
	if len(categories) == 0 || len(watchlist) == 0 {
		return 0
	}

	watched := make(map[string]bool, len(watchlist))
	for _, c := range watchlist {
		watched[c] = true
	}

	matched := 0
	for _, c := range categories {
		if watched[c] {
			matched++
		}
	}

	return float64(matched) / float64(len(categories))
}

// Rank keeps only items with a positive relevance score, ordered by
// score descending, then published timestamp descending. Items without
// a timestamp sort after timestamped ones when scores tie.
func Rank(items []domain.PersistedNews, watchlist []string) []domain.PersistedNews {
	type scored struct {
		item  domain.PersistedNews
		score float64
	}

	kept := make([]scored, 0, len(items))
	for _, item := range items {
		score := Relevance(item.Categories, watchlist)
		if score <= 0 {
			continue
		}
		kept = append(kept, scored{item: item, score: score})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].score != kept[j].score {
			return kept[i].score > kept[j].score
		}
		ti, tj := kept[i].item.PublishedAt, kept[j].item.PublishedAt
		if ti.IsZero() != tj.IsZero() {
			return tj.IsZero()
		}
		return ti.After(tj)
	})

	out := make([]domain.PersistedNews, len(kept))
	for i, s := range kept {
		out[i] = s.item
	}
	return out
}

// Service resolves a user's watchlist and ranks a feed for them.
type Service struct {
	watchlists ports.WatchlistProvider
	logger     *slog.Logger
}

// NewService wires the watchlist collaborator.
func NewService(watchlists ports.WatchlistProvider, logger *slog.Logger) *Service {
	return &Service{watchlists: watchlists, logger: logger}
}

// FeedFor returns the personalized feed for userID. With an empty
// watchlist the ranker is skipped entirely and the latest-first feed is
// returned instead.
func (s *Service) FeedFor(ctx context.Context, userID string, items []domain.PersistedNews) ([]domain.PersistedNews, error) {
	watchlist, err := s.watchlists.Watchlist(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load watchlist for %s: %w", userID, err)
	}

	if len(watchlist) == 0 {
		if s.logger != nil {
			s.logger.Debug("empty watchlist, serving latest feed", "user", userID)
		}
		return Latest(items), nil
	}

	return Rank(items, watchlist), nil
}

// Latest returns items ordered by published timestamp descending, the
// fallback feed for users without a watchlist.
func Latest(items []domain.PersistedNews) []domain.PersistedNews {
	out := make([]domain.PersistedNews, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	return out
}
