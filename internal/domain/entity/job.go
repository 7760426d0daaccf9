package entity

// JobInfo is the transient result of scraping a job posting. It is produced
// per request and never persisted.
type JobInfo struct {
	URL     string // Sanitized posting URL.
	Title   string // Extracted job title; empty when no selector matched.
	Company string // Extracted company name; empty when no selector matched.
	Content string // Cleaned plain-text description.
}
