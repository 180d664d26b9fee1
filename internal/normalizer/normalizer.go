// Package normalizer cleans and bounds raw scraped text, computes content
// and URL fingerprints, and assigns a quality score. It never fails on
// malformed input; problems surface as warnings/errors on the result.
package normalizer

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"NewsRefinery/internal/config"
	"NewsRefinery/internal/domain"
)

var (
	htmlTagExpr   = regexp.MustCompile(`<[^>]*>`)
	spaceRunExpr  = regexp.MustCompile(`[ \t]+`)
	blankRunExpr  = regexp.MustCompile(`\n[ \t]*\n([ \t]*\n)+`)
	punctClass    = `!"#$%&'()*+,./:;<=>?@[\]^_` + "`" + `{|}~`
	punctRunExpr  = regexp.MustCompile(`[` + regexp.QuoteMeta(punctClass) + `]+`)
	controlKeepOK = map[rune]bool{'\r': true, '\n': true, '\t': true}
)

// Normalizer applies the configured cleanup rules to raw items.
// Stateless: all counters live with the orchestrator.
type Normalizer struct {
	runtime *config.Runtime
}

// New builds a normalizer reading thresholds from the runtime store.
func New(runtime *config.Runtime) *Normalizer {
	return &Normalizer{runtime: runtime}
}

// Normalize cleans one raw item and scores the outcome. The returned
// value is complete even for empty or garbage input; Success is false
// when the score lands under the configured floor.
func (n *Normalizer) Normalize(raw domain.RawItem) domain.NormalizedNews {
	start := time.Now()
	t := n.runtime.Snapshot()

	out := domain.NormalizedNews{
		Provider:    raw.Provider,
		ScrapedAt:   raw.ScrapedAt,
		PublishedAt: raw.PublishedAt,
		SourceURL:   raw.SourceURL,
		Overview:    raw.Overview,
	}

	hadHTML := htmlTagExpr.MatchString(raw.Title) || htmlTagExpr.MatchString(raw.Body)
	hadControl := containsControl(raw.Title) || containsControl(raw.Body)

	title := cleanText(raw.Title, t, true)
	body := cleanText(raw.Body, t, false)

	title, truncatedTitle := truncate(title, t.MaxTitleLength)
	body, truncatedBody := truncate(body, t.MaxContentLength)

	score := 100
	titleLen := len([]rune(title))
	bodyLen := len([]rune(body))

	if titleLen < t.MinTitleLength {
		score -= 20
		out.Warnings = append(out.Warnings, fmt.Sprintf("title shorter than %d characters", t.MinTitleLength))
	}
	if truncatedTitle {
		score -= 10
		out.Warnings = append(out.Warnings, fmt.Sprintf("title truncated to %d characters", t.MaxTitleLength))
	}
	if bodyLen < t.MinContentLength {
		score -= 30
		out.Warnings = append(out.Warnings, fmt.Sprintf("body shorter than %d characters", t.MinContentLength))
	}
	if truncatedBody {
		score -= 15
		out.Warnings = append(out.Warnings, fmt.Sprintf("body truncated to %d characters", t.MaxContentLength))
	}
	if hadHTML && t.StripHTML {
		score -= 10
		out.Warnings = append(out.Warnings, "html markup stripped")
	}
	if hadControl && t.StripControl {
		score -= 5
		out.Warnings = append(out.Warnings, "control characters stripped")
	}
	if score < 0 {
		score = 0
	}

	out.Title = title
	out.Body = body
	out.Score = score
	out.ContentHash = domain.ContentFingerprint(title, body)
	out.URLHash = domain.URLFingerprint(raw.SourceURL)
	if title == "" {
		out.Errors = append(out.Errors, "title empty after normalization")
	}
	if body == "" {
		out.Errors = append(out.Errors, "body empty after normalization")
	}

	// Success requires both the score floor and non-empty text; a short
	// deduction alone must not pass an item with nothing left in it.
	out.Success = score >= t.QualityFloor && len(out.Errors) == 0

	out.Duration = time.Since(start)
	return out
}

// CollapseBatch removes exact in-batch duplicates, keyed by content
// fingerprint, keeping the first occurrence. Runs before any cross-batch
// deduplication.
func CollapseBatch(items []domain.NormalizedNews) []domain.NormalizedNews {
	seen := make(map[string]struct{}, len(items))
	out := make([]domain.NormalizedNews, 0, len(items))
	for _, item := range items {
		if _, dup := seen[item.ContentHash]; dup {
			continue
		}
		seen[item.ContentHash] = struct{}{}
		out = append(out, item)
	}
	return out
}

// cleanText applies the configured strip rules plus whitespace collapsing.
// Titles are flattened to a single line; bodies keep paragraph breaks but
// collapse runs of blank lines to exactly one.
func cleanText(s string, t config.Thresholds, singleLine bool) string {
	if t.StripHTML {
		s = htmlTagExpr.ReplaceAllString(s, " ")
	}
	if t.StripControl {
		s = stripControl(s)
	}
	if t.StripPunctuation {
		s = punctRunExpr.ReplaceAllString(s, " ")
	}

	if singleLine {
		return strings.Join(strings.Fields(s), " ")
	}

	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = spaceRunExpr.ReplaceAllString(s, " ")
	s = blankRunExpr.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !controlKeepOK[r] {
			return -1
		}
		return r
	}, s)
}

func containsControl(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) && !controlKeepOK[r] {
			return true
		}
	}
	return false
}

func truncate(s string, limit int) (string, bool) {
	if limit <= 0 {
		return s, false
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s, false
	}
	return strings.TrimSpace(string(runes[:limit])), true
}
