package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

type WebConfig struct {
	RateLimit float64 // requests per second
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
}

// WebExtractor downloads a URL and returns its readable text. PDF responses are delegated to pdf.
type WebExtractor struct {
	config  WebConfig
	client  *http.Client
	limiter *rate.Limiter
	pdf     *PDFExtractor
}

func NewWebWithConfig(config WebConfig, pdf *PDFExtractor) *WebExtractor {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2 // 2 requests per second by default
	}
	if config.MaxBytes == 0 {
		config.MaxBytes = DefaultMaxPDFBytes
	}
	if config.UserAgent == "" {
		config.UserAgent = "docrag/1.0"
	}
	if pdf == nil {
		pdf = NewPDF(config.MaxBytes)
	}

	return &WebExtractor{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		pdf:     pdf,
	}
}

func (w *WebExtractor) Fetch(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", fmt.Errorf("invalid URL %q", rawURL)
	}

	// Apply rate limiting
	if err := w.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", w.config.UserAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, w.config.MaxBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", rawURL, err)
	}
	if int64(len(body)) > w.config.MaxBytes {
		return "", fmt.Errorf("%w: %s", ErrTooLarge, rawURL)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(contentType, "application/pdf") || strings.HasSuffix(strings.ToLower(parsed.Path), ".pdf") || IsPDF(body) {
		return w.pdf.Text(body)
	}
	if strings.HasPrefix(contentType, "text/plain") {
		return string(body), nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", rawURL, err)
	}
	return extractMainContent(doc), nil
}

func extractMainContent(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, header, footer").Remove()

	// Try to find main content area
	selectors := []string{
		"main",
		"article",
		".content",
		"#content",
	}

	var content string
	for _, selector := range selectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = selected.Text()
			break
		}
	}

	// Fallback to body if no main content found
	if strings.TrimSpace(content) == "" {
		content = doc.Find("body").Text()
	}

	return strings.Join(strings.Fields(content), " ")
}
