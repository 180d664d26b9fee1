// Package notify decouples alert delivery from the ingestion pipeline.
// Alerts go onto a buffered channel consumed by a single worker; a slow
// or failing channel can never block or fail a batch run.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"NewsRefinery/internal/config"
	"NewsRefinery/internal/domain"
	"NewsRefinery/internal/ports"
)

const deliveryTimeout = 10 * time.Second

// Dispatcher fans persisted items with strong sentiment out to the
// configured notifier.
type Dispatcher struct {
	notifier ports.Notifier
	runtime  *config.Runtime
	logger   *slog.Logger

	queue chan domain.PersistedNews
	wg    sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewDispatcher builds a dispatcher with the given queue capacity.
func NewDispatcher(notifier ports.Notifier, runtime *config.Runtime, queueSize int, logger *slog.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Dispatcher{
		notifier: notifier,
		runtime:  runtime,
		logger:   logger,
		queue:    make(chan domain.PersistedNews, queueSize),
	}
}

// Start launches the delivery worker. Safe to call once.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		d.wg.Add(1)
		go d.run(ctx)
	})
}

// Stop closes the queue and waits for in-flight deliveries to drain.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}

// Enqueue offers one persisted item for alerting. Items at or under the
// sentiment threshold are skipped; a full queue drops the alert with a
// warning rather than blocking the caller.
func (d *Dispatcher) Enqueue(news domain.PersistedNews) bool {
	threshold := d.runtime.Snapshot().AlertSentiment
	if news.Sentiment <= threshold {
		return false
	}

	select {
	case d.queue <- news:
		return true
	default:
		if d.logger != nil {
			d.logger.Warn("alert queue full, dropping alert", "url", news.SourceURL)
		}
		return false
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()

	// Stop drains the queue during shutdown, after the application ctx
	// is already cancelled. Each delivery therefore runs under its own
	// deadline, detached from ctx's cancellation.
	base := context.WithoutCancel(ctx)

	for news := range d.queue {
		if d.notifier == nil {
			continue
		}
		sendCtx, cancel := context.WithTimeout(base, deliveryTimeout)
		err := d.notifier.PublishAlert(sendCtx, news)
		cancel()
		if err != nil {
			// Delivery failure is logged and swallowed; it never
			// propagates back into the pipeline.
			if d.logger != nil {
				d.logger.Warn("alert delivery failed", "url", news.SourceURL, "error", err)
			}
			continue
		}
		if d.logger != nil {
			d.logger.Debug("alert delivered", "url", news.SourceURL, "sentiment", news.Sentiment)
		}
	}
}
