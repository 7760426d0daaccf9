package usecase

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"tailor/internal/domain/service"
)

const contentPreviewLength = 500

// jobService implements the JobUsecase interface.
type jobService struct {
	scraper service.JobScraper
	logger  *slog.Logger
}

// NewJobService is the constructor for jobService.
func NewJobService(scraper service.JobScraper, logger *slog.Logger) JobUsecase {
	return &jobService{
		scraper: scraper,
		logger:  logger,
	}
}

// Analyze runs the extraction pipeline and shapes the result for the API.
func (srv *jobService) Analyze(ctx context.Context, input AnalyzeJobInput) (*JobAnalysis, error) {
	info, err := srv.scraper.FetchJobInfo(ctx, input.URL)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	analysis := &JobAnalysis{
		JobID:          uuid.New(),
		URL:            info.URL,
		Title:          info.Title,
		Company:        info.Company,
		ContentLength:  len(info.Content),
		ContentPreview: previewOf(info.Content),
	}

	srv.logger.Debug("job posting analyzed",
		slog.String("jobID", analysis.JobID.String()),
		slog.String("url", analysis.URL),
		slog.Int("contentLength", analysis.ContentLength),
	)

	return analysis, nil
}

func previewOf(content string) string {
	if len(content) <= contentPreviewLength {
		return content
	}

	return content[:contentPreviewLength]
}
