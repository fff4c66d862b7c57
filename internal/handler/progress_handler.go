package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/prepwise-backend/internal/middleware"
	"github.com/stemsi/prepwise-backend/internal/model"
	"github.com/stemsi/prepwise-backend/internal/response"
	"github.com/stemsi/prepwise-backend/internal/validator"
)

type ProgressReader interface {
	GetProgress(ctx context.Context, userID int) (*model.Progress, error)
}

type SubmissionLister interface {
	ListByUser(ctx context.Context, userID int, kind model.InterviewKind, page, perPage int) ([]model.SubmissionRecord, *response.Pagination, error)
}

// ProgressHandler serves the caller's own progress and history.
type ProgressHandler struct {
	progress    ProgressReader
	submissions SubmissionLister
	log         zerolog.Logger
}

func NewProgressHandler(progress ProgressReader, submissions SubmissionLister, log zerolog.Logger) *ProgressHandler {
	return &ProgressHandler{
		progress:    progress,
		submissions: submissions,
		log:         log.With().Str("component", "progress_handler").Logger(),
	}
}

// GetProgress godoc
// GET /api/v1/me/progress
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	p, err := h.progress.GetProgress(c.Request.Context(), claims.UserID)
	if err != nil {
		h.log.Error().Err(err).Int("user_id", claims.UserID).Msg("Get progress failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, p)
}

type listSubmissionsQuery struct {
	Page    int    `form:"page" binding:"omitempty,min=1"`
	PerPage int    `form:"per_page" binding:"omitempty,min=1,max=100"`
	Kind    string `form:"kind" binding:"omitempty,oneof=mock hr"`
}

// ListSubmissions godoc
// GET /api/v1/me/submissions?page=1&per_page=10&kind=mock
func (h *ProgressHandler) ListSubmissions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var q listSubmissionsQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	records, pagination, err := h.submissions.ListByUser(c.Request.Context(), claims.UserID, model.InterviewKind(q.Kind), q.Page, q.PerPage)
	if err != nil {
		h.log.Error().Err(err).Int("user_id", claims.UserID).Msg("List submissions failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, records, pagination)
}
