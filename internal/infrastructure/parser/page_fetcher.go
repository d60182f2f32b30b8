package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	readability "codeberg.org/readeck/go-readability/v2"
	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"

	"PosterIntake/internal/config"
	"PosterIntake/internal/domain"
	"PosterIntake/internal/ports"
	"PosterIntake/internal/urlguard"
)

const (
	userAgent           = "PosterIntake/1.0 (+event page reader)"
	readabilityMinWords = 20
	maxRedirects        = 5
)

// PageFetcher downloads event pages and reduces them to readable text for the model.
type PageFetcher struct {
	client       *http.Client
	maxBytes     int64
	maxTextChars int
}

var _ ports.PageFetcher = (*PageFetcher)(nil)

// NewPageFetcher builds a fetcher whose transport refuses private and loopback
// addresses. A nil client selects that transport; tests pass their own.
func NewPageFetcher(cfg config.PageFetchConfig, client *http.Client) *PageFetcher {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{
			Timeout:       timeout,
			Transport:     urlguard.NewSafeTransport(),
			CheckRedirect: checkRedirect,
		}
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	return &PageFetcher{client: client, maxBytes: maxBytes, maxTextChars: cfg.MaxTextChars}
}

func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if _, err := urlguard.Validate(req.URL.String()); err != nil {
		return fmt.Errorf("redirect to %s: %w", req.URL.Host, err)
	}
	return nil
}

// FetchText downloads target and returns its main readable content, whitespace
// normalised and truncated to the configured character budget.
func (p *PageFetcher) FetchText(ctx context.Context, target *url.URL) (string, error) {
	if target == nil {
		return "", fmt.Errorf("fetch page: %w", domain.ErrInvalidURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, domain.ErrForbiddenHost) {
			return "", fmt.Errorf("request page: %w", domain.ErrForbiddenHost)
		}
		return "", fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("page returned %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBytes))
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}

	var text string
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain") {
		text = normalizeText(string(data))
	} else {
		text = extractText(data, resp.Request.URL)
	}
	return truncateRunes(text, p.maxTextChars), nil
}

// extractText runs readability first, converting the article to markdown, and
// falls back to its plain rendering and then to the whole document body.
func extractText(data []byte, pageURL *url.URL) string {
	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err == nil && article.Node != nil {
		if md, mdErr := htmltomarkdown.ConvertNode(article.Node); mdErr == nil {
			if text := normalizeText(string(md)); wordCount(text) >= readabilityMinWords {
				return withTitle(article.Title(), text)
			}
		}
		var buf bytes.Buffer
		if article.RenderText(&buf) == nil {
			if text := normalizeText(buf.String()); wordCount(text) >= readabilityMinWords {
				return withTitle(article.Title(), text)
			}
		}
	}
	return documentText(data)
}

func documentText(data []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript, svg, template").Remove()
	title := strings.TrimSpace(doc.Find("title").First().Text())
	return withTitle(title, normalizeText(doc.Find("body").Text()))
}

func withTitle(title, text string) string {
	title = strings.TrimSpace(title)
	if title == "" || strings.Contains(text, title) {
		return text
	}
	return title + "\n" + text
}

// normalizeText collapses runs of spaces inside lines and drops blank-line runs.
func normalizeText(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
