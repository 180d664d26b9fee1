package ports

import (
	"context"
	"time"

	"NewsRefinery/internal/domain"
)

// ScrapeSource pulls fresh raw items from all configured providers.
// A failing provider contributes zero items; the rest still arrive.
type ScrapeSource interface {
	FetchBatch(ctx context.Context) ([]domain.RawItem, error)
}

// NewsRepository persists one batch of survivors in a single call.
// Expected to be atomic from the caller's perspective and to upsert by
// content fingerprint so retried batches do not create duplicate rows.
type NewsRepository interface {
	SaveAll(ctx context.Context, items []domain.NormalizedNews) ([]domain.PersistedNews, error)
}

// Notifier delivers an alert for a single persisted item. Delivery
// failures are logged by callers and never block the pipeline.
type Notifier interface {
	PublishAlert(ctx context.Context, news domain.PersistedNews) error
}

// WatchlistProvider resolves the category watchlist for a user.
type WatchlistProvider interface {
	Watchlist(ctx context.Context, userID string) ([]string, error)
}

// Scheduler controls when batch runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
