package collab

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// PageSummary is what FetchAbstract could recover from a paper's landing page.
type PageSummary struct {
	Title    string
	Abstract string
}

const fetchUserAgent = "topictree/1.0 (+https://github.com/smallnest/topictree)"

// FetchAbstract fetches a paper's landing page and extracts a best-effort
// title and abstract. Model-reported papers often come without an abstract;
// publisher pages usually carry one in citation meta tags.
func FetchAbstract(ctx context.Context, pageURL string) (*PageSummary, error) {
	client := &http.Client{Timeout: 15 * time.Second}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status code %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	doc.Find("script, style").Remove()

	summary := &PageSummary{
		Title:    pageTitle(doc),
		Abstract: pageAbstract(doc),
	}
	if summary.Title == "" && summary.Abstract == "" {
		return nil, fmt.Errorf("no usable content found at %s", pageURL)
	}
	return summary, nil
}

func pageTitle(doc *goquery.Document) string {
	if title, ok := doc.Find(`meta[name="citation_title"]`).Attr("content"); ok {
		return strings.TrimSpace(title)
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func pageAbstract(doc *goquery.Document) string {
	// Publisher meta tags first, then the arXiv-style abstract block,
	// then the generic description.
	selectors := []string{
		`meta[name="citation_abstract"]`,
		`meta[property="og:description"]`,
		`meta[name="description"]`,
	}
	for _, sel := range selectors {
		if content, ok := doc.Find(sel).Attr("content"); ok {
			if text := strings.TrimSpace(content); text != "" {
				return text
			}
		}
	}
	if text := strings.TrimSpace(doc.Find("blockquote.abstract").First().Text()); text != "" {
		return strings.TrimSpace(strings.TrimPrefix(text, "Abstract:"))
	}
	return ""
}
