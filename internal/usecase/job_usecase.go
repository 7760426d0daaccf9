package usecase

import (
	"context"

	"github.com/google/uuid"
)

// AnalyzeJobInput carries the posting URL submitted for analysis.
type AnalyzeJobInput struct {
	URL string
}

// JobAnalysis summarizes an extracted posting. The full content stays
// server-side; callers receive its length and a short preview.
type JobAnalysis struct {
	JobID          uuid.UUID `json:"jobId"`
	URL            string    `json:"url"`
	Title          string    `json:"title"`
	Company        string    `json:"company"`
	ContentLength  int       `json:"contentLength"`
	ContentPreview string    `json:"contentPreview"`
}

// JobUsecase defines the interface for job posting analysis.
type JobUsecase interface {
	// Analyze fetches the posting behind the URL and extracts its title,
	// company and description.
	Analyze(ctx context.Context, input AnalyzeJobInput) (*JobAnalysis, error)
}
