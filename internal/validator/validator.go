// Package validator re-checks structural and semantic properties of a
// news item independently of the normalizer. The two gates look at
// different concerns: the normalizer judges text hygiene, this package
// judges whether the record as a whole is safe to persist.
package validator

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"

	"NewsRefinery/internal/config"
	"NewsRefinery/internal/domain"
)

const (
	errorPenalty     = 20
	warningPenalty   = 5
	maxNewsAge       = 365 * 24 * time.Hour
	minSentenceRunes = 20
)

var (
	emailExpr    = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	sentenceExpr = regexp.MustCompile(`[.!?]+`)

	// Spam markers: English plus the Danish terms providers use.
	spamKeywords = []string{"spam", "advertisement", "reklame", "annonce"}
)

// Validator runs the full check list against one news record.
type Validator struct {
	runtime *config.Runtime
}

// New builds a validator reading thresholds from the runtime store.
func New(runtime *config.Runtime) *Validator {
	return &Validator{runtime: runtime}
}

// Validate is a pure function of the record: it mutates nothing and
// caches nothing. Errors force Valid=false; warnings only lower the score.
func (v *Validator) Validate(news domain.NormalizedNews) domain.QualityReport {
	t := v.runtime.Snapshot()

	var report domain.QualityReport
	v.checkTitle(news.Title, t, &report)
	v.checkBody(news.Body, t, &report)
	v.checkURL(news.SourceURL, &report)
	v.checkTimestamp(news.PublishedAt, &report)
	v.checkOverview(news.Overview, &report)

	report.Valid = len(report.Errors) == 0
	report.Score = 100 - errorPenalty*len(report.Errors) - warningPenalty*len(report.Warnings)
	if report.Score < 0 {
		report.Score = 0
	}
	return report
}

func (v *Validator) checkTitle(title string, t config.Thresholds, r *domain.QualityReport) {
	runes := []rune(title)
	switch {
	case title == "":
		r.Errors = append(r.Errors, "title is empty")
	case len(runes) < t.MinTitleLength:
		r.Errors = append(r.Errors, fmt.Sprintf("title shorter than %d characters", t.MinTitleLength))
	case len(runes) > t.MaxTitleLength:
		r.Errors = append(r.Errors, fmt.Sprintf("title longer than %d characters", t.MaxTitleLength))
	}

	for _, ru := range runes {
		if unicode.IsControl(ru) && !unicode.IsSpace(ru) {
			r.Warnings = append(r.Warnings, "title contains control characters")
			break
		}
	}

	lower := strings.ToLower(title)
	for _, kw := range spamKeywords {
		if strings.Contains(lower, kw) {
			r.Warnings = append(r.Warnings, fmt.Sprintf("title contains spam keyword %q", kw))
			break
		}
	}
}

func (v *Validator) checkBody(body string, t config.Thresholds, r *domain.QualityReport) {
	runes := []rune(body)
	switch {
	case body == "":
		r.Errors = append(r.Errors, "body is empty")
	case len(runes) < t.MinContentLength:
		r.Errors = append(r.Errors, fmt.Sprintf("body shorter than %d characters", t.MinContentLength))
	case len(runes) > t.MaxContentLength:
		r.Errors = append(r.Errors, fmt.Sprintf("body longer than %d characters", t.MaxContentLength))
	}

	if strings.ContainsAny(body, "<>") {
		r.Warnings = append(r.Warnings, "body contains angle brackets, possible unstripped html")
	}
	if emailExpr.MatchString(body) {
		r.Warnings = append(r.Warnings, "body contains an email address")
	}
	if dup := repeatedSentence(body); dup != "" {
		r.Warnings = append(r.Warnings, "body repeats a sentence")
	}
}

func (v *Validator) checkURL(raw string, r *domain.QualityReport) {
	if raw == "" {
		r.Errors = append(r.Errors, "source url is empty")
		return
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		r.Errors = append(r.Errors, "source url is not scheme://host/path shaped")
		return
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "localhost" || host == "127.0.0.1" {
		r.Warnings = append(r.Warnings, "source url points at localhost")
	}
}

func (v *Validator) checkTimestamp(published time.Time, r *domain.QualityReport) {
	switch {
	case published.IsZero():
		r.Errors = append(r.Errors, "published timestamp is missing")
	case published.After(time.Now()):
		r.Errors = append(r.Errors, "published timestamp is in the future")
	case time.Since(published) > maxNewsAge:
		r.Warnings = append(r.Warnings, "published more than 365 days ago")
	}
}

func (v *Validator) checkOverview(overview *domain.AIOverview, r *domain.QualityReport) {
	if overview == nil {
		return
	}

	if strings.TrimSpace(overview.Summary) == "" {
		r.Warnings = append(r.Warnings, "ai overview has no summary")
	}
	if overview.Sentiment < -1.0 || overview.Sentiment > 1.0 {
		r.Errors = append(r.Errors, fmt.Sprintf("ai sentiment %.2f outside [-1, 1]", overview.Sentiment))
	}
	if len(overview.Categories) == 0 {
		r.Warnings = append(r.Warnings, "ai overview has no categories")
	}
}

// repeatedSentence returns the first sentence longer than minSentenceRunes
// that appears more than once in the body, or "".
func repeatedSentence(body string) string {
	seen := map[string]bool{}
	for _, s := range sentenceExpr.Split(body, -1) {
		s = strings.TrimSpace(s)
		if len([]rune(s)) <= minSentenceRunes {
			continue
		}
		key := strings.ToLower(s)
		if seen[key] {
			return s
		}
		seen[key] = true
	}
	return ""
}
