package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsRefinery/internal/domain"
	"NewsRefinery/internal/scanner"
)

const defaultTimeout = 20 * time.Second

// HTMLScanner extracts raw news items from a provider's listing page
// using config-supplied selectors. Options: "item" (repeating element),
// "title", "body", "link" (selectors inside each item).
type HTMLScanner struct {
	client *http.Client
}

var _ scanner.Scanner = (*HTMLScanner)(nil)

// NewHTMLScanner wires an HTTP client; a nil client gets sane defaults.
func NewHTMLScanner(client *http.Client) *HTMLScanner {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &HTMLScanner{client: client}
}

// Name identifies the strategy inside the registry.
func (h *HTMLScanner) Name() string {
	return "html"
}

// Scan fetches the provider page and extracts one RawItem per matched
// element. Items without a resolvable title are skipped, not failed.
func (h *HTMLScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawItem, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("provider %s has no url", req.Provider)
	}

	doc, err := h.fetchDocument(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", req.Provider, err)
	}

	itemSel := option(req.Options, "item", "article")
	titleSel := option(req.Options, "title", "h2")
	bodySel := option(req.Options, "body", "p")
	linkSel := option(req.Options, "link", "a")

	scrapedAt := time.Now().UTC()
	var items []domain.RawItem

	doc.Find(itemSel).Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Find(titleSel).First().Text())
		if title == "" {
			return
		}

		body := strings.TrimSpace(sel.Find(bodySel).First().Text())

		href, _ := sel.Find(linkSel).First().Attr("href")
		link := resolveLink(req.URL, href)

		items = append(items, domain.RawItem{
			Provider:    req.Provider,
			ScrapedAt:   scrapedAt,
			PublishedAt: scrapedAt,
			SourceURL:   link,
			Title:       title,
			Body:        body,
		})
	})

	return items, nil
}

func (h *HTMLScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "NewsRefinery/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func option(options map[string]string, key, fallback string) string {
	if v, ok := options[key]; ok && v != "" {
		return v
	}
	return fallback
}

// resolveLink makes relative hrefs absolute against the page URL.
func resolveLink(pageURL, href string) string {
	if href == "" {
		return pageURL
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
