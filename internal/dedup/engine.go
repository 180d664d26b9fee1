// Package dedup rejects items that duplicate something already seen.
// Three independent checks run in order: exact URL (engine lifetime),
// title hash (window-scoped), content hash (window-scoped). The first
// match wins. Any internal failure degrades to "not a duplicate" so a
// hiccup never silently drops legitimate news.
package dedup

import (
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"NewsRefinery/internal/config"
	"NewsRefinery/internal/domain"
)

// Stats is a read-only snapshot of engine counters.
type Stats struct {
	Processed  int64
	Duplicates int64
}

// Engine owns the fingerprint caches. It is injected where needed;
// independent instances never share state. All three caches accept
// concurrent read-modify-insert from pipeline workers: sync.Map's
// LoadOrStore gives the atomic insert-if-absent that keeps two workers
// from both admitting the same fingerprint.
type Engine struct {
	runtime *config.Runtime
	logger  *slog.Logger

	urls     sync.Map // sourceURL -> struct{}, no expiry within a run
	titles   sync.Map // windowKey|titleHash -> struct{}
	contents sync.Map // windowKey|contentHash -> struct{}

	processed  atomic.Int64
	duplicates atomic.Int64
}

// New builds an engine with empty caches.
func New(runtime *config.Runtime, logger *slog.Logger) *Engine {
	return &Engine{runtime: runtime, logger: logger}
}

// IsDuplicate reports whether the item repeats something already cached.
// A novel item is recorded in all three caches and admitted. Checks
// short-circuit: a URL hit never consults the window-scoped sets.
//
// Each check records its fingerprint as it runs, so an item rejected by
// a later check still leaves its earlier fingerprints cached: a
// title-duplicate's URL stays URL-blocked afterwards. The eager insert
// is what makes insert-if-absent atomic under concurrent workers; a
// check-then-record split would let two copies of the same item both
// pass.
func (e *Engine) IsDuplicate(item domain.NormalizedNews) bool {
	e.processed.Add(1)

	if _, loaded := e.urls.LoadOrStore(item.SourceURL, struct{}{}); loaded {
		e.markDuplicate(item, "url")
		return true
	}

	window := e.windowKey(item.ScrapedAt)

	titleKey := window + "|" + titleHash(item.Title)
	if _, loaded := e.titles.LoadOrStore(titleKey, struct{}{}); loaded {
		e.markDuplicate(item, "title")
		return true
	}

	contentKey := window + "|" + contentHash(item.Body)
	if _, loaded := e.contents.LoadOrStore(contentKey, struct{}{}); loaded {
		e.markDuplicate(item, "content")
		return true
	}

	return false
}

// Statistics returns current counter values.
func (e *Engine) Statistics() Stats {
	return Stats{
		Processed:  e.processed.Load(),
		Duplicates: e.duplicates.Load(),
	}
}

// ClearCache drops all three caches and resets counters. Explicit
// operator action only; the engine never clears itself.
func (e *Engine) ClearCache() {
	purge(&e.urls)
	purge(&e.titles)
	purge(&e.contents)
	e.processed.Store(0)
	e.duplicates.Store(0)
	if e.logger != nil {
		e.logger.Info("dedup caches cleared")
	}
}

// windowKey buckets the scrape time by truncating to the configured
// window. Buckets are never merged: an item on a boundary is compared
// only against its own bucket, which is an accepted approximation.
func (e *Engine) windowKey(scrapedAt time.Time) string {
	window := e.runtime.Snapshot().DedupWindow
	if window <= 0 {
		window = 24 * time.Hour
	}
	return scrapedAt.UTC().Truncate(window).Format(time.RFC3339)
}

func (e *Engine) markDuplicate(item domain.NormalizedNews, check string) {
	e.duplicates.Add(1)
	if e.logger != nil {
		e.logger.Debug("duplicate rejected", "check", check, "url", item.SourceURL)
	}
}

// titleHash folds case and surrounding whitespace before hashing so
// cosmetic title variants collide.
func titleHash(title string) string {
	return domain.Fingerprint(strings.ToLower(strings.TrimSpace(title)))
}

// contentHash hashes the lower-cased, trimmed body.
func contentHash(body string) string {
	return domain.Fingerprint(strings.ToLower(strings.TrimSpace(body)))
}

func purge(m *sync.Map) {
	m.Range(func(key, _ any) bool {
		m.Delete(key)
		return true
	})
}
