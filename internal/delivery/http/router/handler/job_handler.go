package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"tailor/internal/delivery/http/response"
	domainerrors "tailor/internal/domain/errors"
	"tailor/internal/usecase"
)

// JobHandler holds dependencies for job analysis handlers.
type JobHandler struct {
	uc     usecase.JobUsecase
	logger *slog.Logger
}

// NewJobHandler is the constructor for JobHandler, injected by Fx.
func NewJobHandler(uc usecase.JobUsecase, logger *slog.Logger) *JobHandler {
	return &JobHandler{uc: uc, logger: logger}
}

type analyzeJobRequest struct {
	URL string `json:"url" validate:"required,max=2048"`
}

// Analyze fetches and extracts the job posting behind the submitted URL.
func (h *JobHandler) Analyze(c echo.Context) error {
	var req analyzeJobRequest
	if err := c.Bind(&req); err != nil {
		return domainerrors.ErrValidation.WrapMessage("invalid job analysis input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	analysis, err := h.uc.Analyze(c.Request().Context(), usecase.AnalyzeJobInput{URL: req.URL})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, analysis)
}
