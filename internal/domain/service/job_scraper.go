package service

import (
	"context"

	"tailor/internal/domain/entity"
)

// JobScraper fetches a job posting URL and extracts its title, company and
// description text. The fetch is the only operation in the system with an
// explicit cancellation deadline.
type JobScraper interface {
	// FetchJobInfo validates and sanitizes the URL, fetches the page and
	// runs the extraction cascade. The returned JobInfo carries the
	// sanitized URL.
	FetchJobInfo(ctx context.Context, rawURL string) (*entity.JobInfo, error)
}
