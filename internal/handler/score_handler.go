package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/prepwise-backend/internal/interview"
	"github.com/stemsi/prepwise-backend/internal/model"
	"github.com/stemsi/prepwise-backend/internal/response"
	"github.com/stemsi/prepwise-backend/internal/validator"
)

// ScoreHandler scores transcripts outside of a session.
type ScoreHandler struct {
	scorer *interview.Scorer
}

func NewScoreHandler(scorer *interview.Scorer) *ScoreHandler {
	return &ScoreHandler{scorer: scorer}
}

type scoreResult struct {
	interview.Analysis
	Tokens []interview.Token `json:"tokens"`
}

// ScoreTranscript godoc
// POST /api/v1/hr/score
func (h *ScoreHandler) ScoreTranscript(c *gin.Context) {
	var req model.ScoreTranscriptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	response.Success(c, http.StatusOK, scoreResult{
		Analysis: h.scorer.Analyze(req.Transcript),
		Tokens:   h.scorer.Highlight(req.Transcript),
	})
}
