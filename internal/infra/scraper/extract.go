package scraper

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tailor/internal/domain/entity"
	domainerrors "tailor/internal/domain/errors"
)

// contentSelectors cover the description containers of the common job
// boards, ordered from most to least specific. Generic containers such as
// article and main come last.
var contentSelectors = []string{
	".job-description", "#job-description", ".description", "#description",
	`[data-testid="jobDescriptionText"]`, ".jobDescriptionText",
	".job-details", "#job-details", ".details", "#details",
	".job-content", "#job-content", ".content", "#content",
	".description__text", ".show-more-less-html",
	"#jobDescriptionText", ".jobsearch-jobDescriptionText",
	".jobDescriptionContent", ".empDescription",
	"#JobDescription", ".job-description-container",
	".job_description", ".jobDescriptionSection",
	"article", "main", ".main", "#main",
}

var titleSelectors = []string{
	"h1", "h1.title", "h1.job-title", ".job-title", "#job-title",
	`[data-testid="jobTitle"]`, ".jobTitle", ".job-header h1",
	"title", ".title", "#title",
}

var companySelectors = []string{
	".company-name", "#company-name", `[data-testid="companyName"]`,
	".companyName", ".company", "#company", `[itemprop="hiringOrganization"]`,
	".employer-name", "#employer-name", ".employer", "#employer",
}

const noiseSelector = "script, style, nav, header, footer, iframe, noscript"

// jsonLDJobPosting is the subset of the schema.org JobPosting vocabulary we
// read from embedded JSON-LD blocks.
type jsonLDJobPosting struct {
	Type               string `json:"@type"`
	Description        string `json:"description"`
	HiringOrganization struct {
		Name string `json:"name"`
	} `json:"hiringOrganization"`
}

var (
	// \s alone is ASCII-only in Go; \p{Z} picks up NBSP and friends so
	// Unicode whitespace collapses to a space instead of being deleted by
	// the non-printable strip.
	multiWhitespace = regexp.MustCompile(`[\s\p{Z}]+`)
	multiNewline    = regexp.MustCompile(`\n+`)
	nonPrintable    = regexp.MustCompile("[^\x20-\x7E\n\r\t]")
)

// extract pulls title, company and description out of a parsed page.
// JSON-LD blocks are collected up front since the noise strip removes all
// script elements.
func (s *jobScraper) extract(doc *goquery.Document) (*entity.JobInfo, error) {
	postings := collectJSONLDPostings(doc)

	doc.Find(noiseSelector).Remove()

	content, err := s.extractContent(doc, postings)
	if err != nil {
		return nil, err
	}

	return &entity.JobInfo{
		Title:   extractFirstMatch(doc, titleSelectors),
		Company: extractCompany(doc, postings),
		Content: content,
	}, nil
}

// extractContent runs the four-stage cascade: known selectors, text-density
// scoring, JSON-LD description, then the whole body as a last resort.
func (s *jobScraper) extractContent(doc *goquery.Document, postings []jsonLDJobPosting) (string, error) {
	minLength := s.cfg.MinContentLength
	if minLength <= 0 {
		minLength = 100
	}

	var content string
	for _, selector := range contentSelectors {
		sel := doc.Find(selector)
		if sel.Length() == 0 {
			continue
		}
		content = strings.TrimSpace(sel.Text())
		if len(content) > minLength {
			break
		}
	}

	if len(content) < minLength {
		if dense := extractByDensity(doc, minLength); dense != "" {
			content = dense
		}
	}

	if len(content) < minLength {
		if described := jsonLDDescription(postings); len(described) > minLength {
			content = described
		}
	}

	if len(content) < minLength {
		content = strings.TrimSpace(doc.Find("body").Text())
	}

	content = cleanContent(content)
	if len(content) < minLength {
		return "", domainerrors.ErrJobContentInsufficient.
			WithDetails(fmt.Sprintf("extracted only %d characters", len(content)))
	}

	return content, nil
}

// extractByDensity scores block containers by text volume relative to markup
// volume and returns the densest candidate. Thin or trivial blocks are
// skipped.
func extractByDensity(doc *goquery.Document, minLength int) string {
	type candidate struct {
		score float64
		text  string
	}

	var candidates []candidate
	doc.Find("div, section, article").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		tagCount := sel.Find("*").Length()

		if len(text) < minLength || tagCount < 5 {
			return
		}

		candidates = append(candidates, candidate{
			score: float64(len(text)) / float64(tagCount+1),
			text:  text,
		})
	})

	if len(candidates) == 0 {
		return ""
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	return candidates[0].text
}

// extractFirstMatch returns the trimmed text of the first selector that
// yields a non-empty element.
func extractFirstMatch(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		sel := doc.Find(selector)
		if sel.Length() == 0 {
			continue
		}
		if text := strings.TrimSpace(sel.First().Text()); text != "" {
			return text
		}
	}

	return ""
}

// extractCompany tries the markup selectors first and falls back to the
// hiring organization named in JSON-LD.
func extractCompany(doc *goquery.Document, postings []jsonLDJobPosting) string {
	if company := extractFirstMatch(doc, companySelectors); company != "" {
		return company
	}

	for _, posting := range postings {
		if name := strings.TrimSpace(posting.HiringOrganization.Name); name != "" {
			return name
		}
	}

	return ""
}

// collectJSONLDPostings parses every ld+json script on the page, tolerating
// blocks that hold a single object or an array, and keeps only JobPosting
// entries. Malformed blocks are skipped.
func collectJSONLDPostings(doc *goquery.Document) []jsonLDJobPosting {
	var postings []jsonLDJobPosting

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return
		}

		var entries []jsonLDJobPosting
		if strings.HasPrefix(raw, "[") {
			if err := json.Unmarshal([]byte(raw), &entries); err != nil {
				return
			}
		} else {
			var single jsonLDJobPosting
			if err := json.Unmarshal([]byte(raw), &single); err != nil {
				return
			}
			entries = []jsonLDJobPosting{single}
		}

		for _, entry := range entries {
			if entry.Type == "JobPosting" {
				postings = append(postings, entry)
			}
		}
	})

	return postings
}

// jsonLDDescription returns the first JobPosting description, stripped of
// any embedded HTML markup.
func jsonLDDescription(postings []jsonLDJobPosting) string {
	for _, posting := range postings {
		if posting.Description == "" {
			continue
		}

		if doc, err := parseHTML(posting.Description); err == nil {
			return strings.TrimSpace(doc.Text())
		}
	}

	return ""
}

// cleanContent normalizes extracted text: whitespace runs collapse to one
// space, newline runs to one newline, and non-printable characters drop out.
func cleanContent(content string) string {
	cleaned := multiWhitespace.ReplaceAllString(content, " ")
	cleaned = multiNewline.ReplaceAllString(cleaned, "\n")
	cleaned = nonPrintable.ReplaceAllString(cleaned, "")

	return strings.TrimSpace(cleaned)
}
