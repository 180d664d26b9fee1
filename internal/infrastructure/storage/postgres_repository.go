package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"NewsRefinery/internal/domain"
	"NewsRefinery/internal/ports"
)

// PostgresRepository persists normalized news into Postgres. Rows are
// upserted by content fingerprint, so a retried batch updates existing
// rows instead of inserting duplicates.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.NewsRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// SaveAll stores one batch of survivors inside a single transaction and
// returns the persisted rows. One call per batch keeps the write path
// atomic from the orchestrator's perspective.
func (r *PostgresRepository) SaveAll(ctx context.Context, items []domain.NormalizedNews) ([]domain.PersistedNews, error) {
	if r.db == nil || len(items) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}

	persisted := make([]domain.PersistedNews, 0, len(items))
	for _, item := range items {
		row, saveErr := r.upsertOne(ctx, tx, item)
		if saveErr != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("upsert %s: %w", item.SourceURL, saveErr)
		}
		persisted = append(persisted, row)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}

	return persisted, nil
}

func (r *PostgresRepository) upsertOne(ctx context.Context, tx *sql.Tx, item domain.NormalizedNews) (domain.PersistedNews, error) {
	summary := ""
	sentiment := 0.0
	categories := []string{}
	if item.Overview != nil {
		summary = item.Overview.Summary
		sentiment = item.Overview.Sentiment
		categories = item.Overview.Categories
	}

	query, args, err := r.builder.
		Insert("news").
		Columns("content_hash", "url_hash", "provider", "title", "body",
			"source_url", "published_at", "quality_score",
			"summary", "sentiment", "categories", "status").
		Values(item.ContentHash, item.URLHash, item.Provider, item.Title, item.Body,
			item.SourceURL, item.PublishedAt, item.Score,
			summary, sentiment, pq.Array(categories), domain.StatusPersisted).
		Suffix(`ON CONFLICT (content_hash) DO UPDATE
                SET quality_score = EXCLUDED.quality_score,
                    summary = EXCLUDED.summary,
                    sentiment = EXCLUDED.sentiment,
                    categories = EXCLUDED.categories,
                    updated_at = NOW()
                RETURNING id, title, source_url, content_hash, published_at, summary, sentiment, categories`).
		ToSql()
	if err != nil {
		return domain.PersistedNews{}, fmt.Errorf("build query: %w", err)
	}

	var row domain.PersistedNews
	var cats pq.StringArray
	err = tx.QueryRowContext(ctx, query, args...).Scan(
		&row.ID, &row.Title, &row.SourceURL, &row.ContentHash,
		&row.PublishedAt, &row.Summary, &row.Sentiment, &cats)
	if err != nil {
		return domain.PersistedNews{}, fmt.Errorf("scan row: %w", err)
	}
	row.Categories = cats

	return row, nil
}
