package dedup

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsRefinery/internal/config"
	"NewsRefinery/internal/domain"
)

var baseTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	return New(config.NewRuntime(config.DefaultThresholds()), nil)
}

func item(url, title, body string, scrapedAt time.Time) domain.NormalizedNews {
	return domain.NormalizedNews{
		SourceURL: url,
		Title:     title,
		Body:      body,
		ScrapedAt: scrapedAt,
	}
}

func TestNovelItemIsAdmitted(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	dup := e.IsDuplicate(item("https://a.example/1", "First headline", "first body", baseTime))

	assert.False(t, dup)
	stats := e.Statistics()
	assert.Equal(t, int64(1), stats.Processed)
	assert.Equal(t, int64(0), stats.Duplicates)
}

func TestURLDuplicateIgnoresTimeWindow(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	require.False(t, e.IsDuplicate(item("https://a.example/1", "Headline one", "body one", baseTime)))

	// 48 hours later, different text, same URL: still a duplicate.
	later := item("https://a.example/1", "Completely different", "other body", baseTime.Add(48*time.Hour))
	assert.True(t, e.IsDuplicate(later))
	assert.Equal(t, int64(1), e.Statistics().Duplicates)
}

func TestTitleDuplicateWithinWindow(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	require.False(t, e.IsDuplicate(item("https://a.example/1", "Shared Headline", "body one", baseTime)))

	// Case and whitespace variants collide.
	variant := item("https://a.example/2", "  shared headline ", "body two", baseTime.Add(time.Hour))
	assert.True(t, e.IsDuplicate(variant))
}

func TestTitleDuplicateAcrossWindowsIsAdmitted(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	require.False(t, e.IsDuplicate(item("https://a.example/1", "Shared Headline", "body one", baseTime)))

	// 25 hours later lands in the next 24h bucket: the title check is
	// window-scoped, so the item passes.
	nextWindow := item("https://a.example/2", "Shared Headline", "body two", baseTime.Add(25*time.Hour))
	assert.False(t, e.IsDuplicate(nextWindow))
}

func TestContentDuplicateWithinWindow(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	require.False(t, e.IsDuplicate(item("https://a.example/1", "Headline one", "Shared body text", baseTime)))

	variant := item("https://a.example/2", "Headline two", " shared body text ", baseTime.Add(time.Hour))
	assert.True(t, e.IsDuplicate(variant))
}

func TestCachedFingerprintStaysRejected(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	require.False(t, e.IsDuplicate(item("https://a.example/1", "Sticky headline", "sticky body", baseTime)))

	for i := 0; i < 5; i++ {
		clone := item(fmt.Sprintf("https://a.example/copy-%d", i), "Sticky headline", "unrelated", baseTime.Add(time.Duration(i)*time.Minute))
		assert.True(t, e.IsDuplicate(clone))
	}
	assert.Equal(t, int64(5), e.Statistics().Duplicates)
}

func TestClearCacheForgetsEverything(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	first := item("https://a.example/1", "Resettable headline", "resettable body", baseTime)
	require.False(t, e.IsDuplicate(first))
	require.True(t, e.IsDuplicate(first))

	e.ClearCache()

	stats := e.Statistics()
	assert.Equal(t, int64(0), stats.Processed)
	assert.Equal(t, int64(0), stats.Duplicates)
	assert.False(t, e.IsDuplicate(first))
}

func TestRejectedItemStillRecordsEarlierFingerprints(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	require.False(t, e.IsDuplicate(item("https://a.example/1", "Shared Headline", "body one", baseTime)))

	// Rejected by the title check, but its URL was already cached by the
	// URL check that ran first.
	rejected := item("https://a.example/2", "Shared Headline", "body two", baseTime.Add(time.Hour))
	require.True(t, e.IsDuplicate(rejected))

	retry := item("https://a.example/2", "Fresh headline", "body three", baseTime.Add(2*time.Hour))
	assert.True(t, e.IsDuplicate(retry))
}

func TestConcurrentDuplicatesAdmitExactlyOne(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	same := item("https://a.example/1", "Racy headline", "racy body", baseTime)

	const workers = 50
	var wg sync.WaitGroup
	admitted := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !e.IsDuplicate(same) {
				admitted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(admitted)

	assert.Len(t, admitted, 1)
	stats := e.Statistics()
	assert.Equal(t, int64(workers), stats.Processed)
	assert.Equal(t, int64(workers-1), stats.Duplicates)
}

func TestWindowSizeIsHotReadable(t *testing.T) {
	t.Parallel()

	runtime := config.NewRuntime(config.DefaultThresholds())
	e := New(runtime, nil)

	require.False(t, e.IsDuplicate(item("https://a.example/1", "Window headline", "body one", baseTime)))

	// Shrinking the window to one hour moves the second item into a
	// different bucket even though only two hours passed.
	narrow := config.DefaultThresholds()
	narrow.DedupWindow = time.Hour
	runtime.Apply(narrow)

	assert.False(t, e.IsDuplicate(item("https://a.example/2", "Window headline", "body two", baseTime.Add(2*time.Hour))))
}
