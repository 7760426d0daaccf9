package usecase

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tailor/internal/domain/entity"
	domainerrors "tailor/internal/domain/errors"
)

type stubScraper struct {
	info *entity.JobInfo
	err  error
}

func (s stubScraper) FetchJobInfo(_ context.Context, _ string) (*entity.JobInfo, error) {
	return s.info, s.err
}

func TestJobService_Analyze(t *testing.T) {
	content := strings.Repeat("responsibilities and requirements ", 30)
	svc := NewJobService(stubScraper{
		info: &entity.JobInfo{
			URL:     "https://jobs.example.com/42",
			Title:   "Senior Go Engineer",
			Company: "Acme Corp",
			Content: content,
		},
	}, slog.New(slog.DiscardHandler))

	analysis, err := svc.Analyze(context.Background(), AnalyzeJobInput{URL: "https://jobs.example.com/42?utm_source=x"})
	require.NoError(t, err)

	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", analysis.JobID.String())
	assert.Equal(t, "https://jobs.example.com/42", analysis.URL)
	assert.Equal(t, "Senior Go Engineer", analysis.Title)
	assert.Equal(t, "Acme Corp", analysis.Company)
	assert.Equal(t, len(content), analysis.ContentLength)
	assert.Len(t, analysis.ContentPreview, 500)
	assert.True(t, strings.HasPrefix(content, analysis.ContentPreview))
}

func TestJobService_Analyze_ShortContentKeptWhole(t *testing.T) {
	svc := NewJobService(stubScraper{
		info: &entity.JobInfo{Content: "short description"},
	}, slog.New(slog.DiscardHandler))

	analysis, err := svc.Analyze(context.Background(), AnalyzeJobInput{URL: "https://jobs.example.com/1"})
	require.NoError(t, err)
	assert.Equal(t, "short description", analysis.ContentPreview)
}

func TestJobService_Analyze_PropagatesScraperError(t *testing.T) {
	svc := NewJobService(stubScraper{
		err: domainerrors.ErrJobFetchFailed.WrapMessage("boom"),
	}, slog.New(slog.DiscardHandler))

	_, err := svc.Analyze(context.Background(), AnalyzeJobInput{URL: "https://jobs.example.com/1"})
	require.Error(t, err)

	var appErr domainerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "JOB_FETCH_FAILED", appErr.ErrorCode())
}
