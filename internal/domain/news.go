package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// RawItem is a scraped news item as handed over by a provider adapter.
// Immutable once it enters the pipeline.
type RawItem struct {
	Provider    string
	ScrapedAt   time.Time
	PublishedAt time.Time
	SourceURL   string
	Title       string
	Body        string
	Overview    *AIOverview
}

// AIOverview carries enrichment attached upstream (summary, sentiment, topics).
type AIOverview struct {
	Summary    string
	Sentiment  float64
	Categories []string
}

// NormalizedNews is the normalizer's output for a single raw item.
// Owned by the normalizer while it is built; read-only afterwards.
type NormalizedNews struct {
	Provider    string
	ScrapedAt   time.Time
	PublishedAt time.Time
	SourceURL   string
	Title       string
	Body        string
	ContentHash string
	URLHash     string
	Score       int
	Warnings    []string
	Errors      []string
	Success     bool
	Duration    time.Duration
	Overview    *AIOverview
}

// QualityReport is the validator's verdict for one news item.
// Errors block persistence; warnings are informational.
type QualityReport struct {
	Valid    bool
	Score    int
	Errors   []string
	Warnings []string
}

// ProcessingResult aggregates one orchestrator run.
type ProcessingResult struct {
	Total     int
	Succeeded int
	Failed    int
	Survivors []NormalizedNews
}

// PersistedNews is a stored record as returned by the repository.
type PersistedNews struct {
	ID          int64
	Title       string
	SourceURL   string
	ContentHash string
	PublishedAt time.Time
	Summary     string
	Sentiment   float64
	Categories  []string
}

// ProcessingStatus enumerates pipeline milestones for persisted audit rows.
type ProcessingStatus string

const (
	StatusScraped   ProcessingStatus = "scraped"
	StatusAccepted  ProcessingStatus = "accepted"
	StatusPersisted ProcessingStatus = "persisted"
	StatusNotified  ProcessingStatus = "notified"
)

// Fingerprint returns the full SHA-256 hex digest of s. Deterministic and
// stable across restarts; the same input always maps to the same key.
func Fingerprint(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// ContentFingerprint hashes the normalized title and body together.
func ContentFingerprint(title, body string) string {
	return Fingerprint(title + "|" + body)
}

// URLFingerprint hashes the raw source URL.
func URLFingerprint(rawURL string) string {
	return Fingerprint(rawURL)
}
