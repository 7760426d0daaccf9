// Package scraper fetches job postings from external sites and extracts the
// posting title, company and description text from the returned HTML.
package scraper

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"

	"tailor/config"
	"tailor/internal/domain/entity"
	domainerrors "tailor/internal/domain/errors"
	"tailor/internal/domain/service"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	acceptHeader     = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	acceptLanguage   = "en-US,en;q=0.9"
)

// trackingParams are query parameters stripped before fetching. They carry
// analytics state, not content, and their removal keeps stored URLs stable
// across shares of the same posting.
var trackingParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"fbclid", "gclid", "msclkid",
	"ref", "referrer", "source", "track",
}

type jobScraper struct {
	cfg    config.ScraperConfig
	client *http.Client
	logger *slog.Logger
}

// NewJobScraper is the constructor for the HTTP-backed job scraper.
func NewJobScraper(cfg *config.Config, logger *slog.Logger) service.JobScraper {
	return &jobScraper{
		cfg: cfg.Scraper,
		client: &http.Client{
			Timeout: cfg.Scraper.FetchTimeout,
		},
		logger: logger,
	}
}

// FetchJobInfo validates and sanitizes the URL, downloads the page and
// extracts the posting fields from it.
func (s *jobScraper) FetchJobInfo(ctx context.Context, rawURL string) (*entity.JobInfo, error) {
	cleanURL, err := s.prepareURL(rawURL)
	if err != nil {
		return nil, err
	}

	doc, err := s.fetchDocument(ctx, cleanURL)
	if err != nil {
		return nil, err
	}

	info, err := s.extract(doc)
	if err != nil {
		return nil, err
	}
	info.URL = cleanURL

	s.logger.Info("job posting scraped",
		slog.String("url", cleanURL),
		slog.String("title", info.Title),
		slog.Int("contentLength", len(info.Content)),
	)

	return info, nil
}

// prepareURL runs validation followed by tracking-parameter removal.
// Sanitizing is idempotent so already-clean URLs pass through unchanged.
func (s *jobScraper) prepareURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", domainerrors.ErrInvalidURL.WrapMessage("url is required")
	}
	if s.cfg.MaxURLLength > 0 && len(trimmed) > s.cfg.MaxURLLength {
		return "", domainerrors.ErrInvalidURL.WrapMessage("url exceeds maximum length")
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", domainerrors.ErrInvalidURL.WrapMessage("malformed url")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", domainerrors.ErrInvalidURL.WrapMessage("url scheme must be http or https")
	}
	if parsed.Host == "" {
		return "", domainerrors.ErrInvalidURL.WrapMessage("url is missing a host")
	}

	query := parsed.Query()
	for _, param := range trackingParams {
		query.Del(param)
	}
	parsed.RawQuery = query.Encode()
	parsed.Fragment = ""

	return parsed.String(), nil
}

// fetchDocument downloads the page and parses it. The request carries
// browser-like headers since many job boards refuse obvious bots.
func (s *jobScraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, domainerrors.ErrJobFetchFailed.WrapMessage("failed to build request")
	}

	userAgent := s.cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", acceptLanguage)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("job page fetch failed", slog.String("url", pageURL), slog.Any("error", err))

		return nil, domainerrors.ErrJobFetchFailed.WrapMessage("failed to fetch job page")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Warn("job page returned non-success status",
			slog.String("url", pageURL),
			slog.Int("status", resp.StatusCode),
		)

		return nil, domainerrors.ErrJobFetchFailed.WrapMessage("job page returned an error status")
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml+xml") {
		return nil, domainerrors.ErrJobFetchFailed.WrapMessage("job page is not an HTML document")
	}

	body := io.Reader(resp.Body)
	if s.cfg.MaxBodyBytes > 0 {
		body = io.LimitReader(resp.Body, s.cfg.MaxBodyBytes)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, domainerrors.ErrJobFetchFailed.WrapMessage("failed to parse job page")
	}

	return doc, nil
}

// parseHTML is the test seam around goquery document construction.
func parseHTML(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse html")
	}

	return doc, nil
}
