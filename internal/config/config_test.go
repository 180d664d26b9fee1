package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg := Load()

	assert.Equal(t, "0 * * * *", cfg.Scheduler.CronExpression)
	assert.Equal(t, 10*time.Minute, cfg.Scheduler.RunTimeout)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, 8, cfg.Pipeline.ScrapeConcurrency)
	assert.Equal(t, "info", cfg.Logging.Level)

	th := cfg.Thresholds
	assert.Equal(t, 10, th.MinTitleLength)
	assert.Equal(t, 200, th.MaxTitleLength)
	assert.Equal(t, 50, th.MinContentLength)
	assert.Equal(t, 10000, th.MaxContentLength)
	assert.Equal(t, 60, th.QualityFloor)
	assert.Equal(t, 24*time.Hour, th.DedupWindow)
	assert.InDelta(t, 0.7, th.AlertSentiment, 1e-9)
	assert.True(t, th.StripHTML)
	assert.True(t, th.StripControl)
	assert.False(t, th.StripPunctuation)
}

func TestLoadMergesYAMLFile(t *testing.T) {
	clearConfigEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
scheduler:
  cronExpression: "*/15 * * * *"
pipeline:
  workers: 12
thresholds:
  qualityFloor: 80
  dedupWindow: 6h
sources:
  - name: custom
    scraper: html
    url: https://custom.example.org/news
    options:
      item: div.story
logging:
  level: debug
`), 0o600))
	t.Setenv("NEWS_REFINERY_CONFIG", path)

	cfg := Load()

	assert.Equal(t, "*/15 * * * *", cfg.Scheduler.CronExpression)
	assert.Equal(t, 12, cfg.Pipeline.Workers)
	assert.Equal(t, 80, cfg.Thresholds.QualityFloor)
	assert.Equal(t, 6*time.Hour, cfg.Thresholds.DedupWindow)
	assert.Equal(t, "debug", cfg.Logging.Level)

	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "custom", cfg.Sources[0].Name)
	assert.Equal(t, "div.story", cfg.Sources[0].Options["item"])

	// Values the file does not mention keep their defaults.
	assert.Equal(t, 10, cfg.Thresholds.MinTitleLength)
	assert.Equal(t, 8, cfg.Pipeline.ScrapeConcurrency)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("DATABASE_DSN", "postgres://override@db:5432/news")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token-from-env")
	t.Setenv("TELEGRAM_CHAT_ID", "chat-from-env")
	t.Setenv("QUALITY_FLOOR", "75")
	t.Setenv("DEDUP_WINDOW_HOURS", "12")
	t.Setenv("PIPELINE_WORKERS", "16")

	cfg := Load()

	assert.Equal(t, "postgres://override@db:5432/news", cfg.Database.DSN)
	assert.Equal(t, "token-from-env", cfg.Notifications.Telegram.BotToken)
	assert.Equal(t, "chat-from-env", cfg.Notifications.Telegram.ChatID)
	assert.Equal(t, 75, cfg.Thresholds.QualityFloor)
	assert.Equal(t, 12*time.Hour, cfg.Thresholds.DedupWindow)
	assert.Equal(t, 16, cfg.Pipeline.Workers)
}

func TestLoadIgnoresMalformedEnvInts(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("QUALITY_FLOOR", "not-a-number")
	t.Setenv("DEDUP_WINDOW_HOURS", "-5")

	cfg := Load()

	assert.Equal(t, 60, cfg.Thresholds.QualityFloor)
	assert.Equal(t, 24*time.Hour, cfg.Thresholds.DedupWindow)
}

func TestLoadSurvivesMissingConfigFile(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("NEWS_REFINERY_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg := Load()
	assert.Equal(t, 4, cfg.Pipeline.Workers)
}

func TestSchedulerLocation(t *testing.T) {
	clearConfigEnv(t)

	t.Run("default is utc", func(t *testing.T) {
		cfg := Load()
		assert.Equal(t, "UTC", cfg.Scheduler.Location().String())
	})

	t.Run("unknown timezone reverts to utc", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("scheduler:\n  timezone: Mars/Olympus\n"), 0o600))
		t.Setenv("NEWS_REFINERY_CONFIG", path)

		cfg := Load()
		assert.Equal(t, "UTC", cfg.Scheduler.Location().String())
	})
}

func TestRuntimeSnapshotAndApply(t *testing.T) {
	t.Parallel()

	rt := NewRuntime(DefaultThresholds())
	assert.Equal(t, 60, rt.Snapshot().QualityFloor)

	next := DefaultThresholds()
	next.QualityFloor = 90
	rt.Apply(next)

	assert.Equal(t, 90, rt.Snapshot().QualityFloor)
	// Snapshot is a copy; mutating it does not touch the stored value.
	snap := rt.Snapshot()
	snap.QualityFloor = 5
	assert.Equal(t, 90, rt.Snapshot().QualityFloor)
}

// clearConfigEnv blanks every variable Load consults so tests see a
// clean environment regardless of the host shell.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"NEWS_REFINERY_CONFIG", "DATABASE_DSN",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
		"QUALITY_FLOOR", "DEDUP_WINDOW_HOURS", "PIPELINE_WORKERS",
	} {
		t.Setenv(key, "")
	}
}
