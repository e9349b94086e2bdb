package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stemsi/skilltest-backend/internal/response"
)

// AIHandler serves generated feedback for completed sessions.
type AIHandler struct {
	feedback feedbackGenerator
	sessions sessionOwners
	log      zerolog.Logger
}

// NewAIHandler creates a new AIHandler.
func NewAIHandler(feedback feedbackGenerator, sessions sessionOwners) *AIHandler {
	return &AIHandler{
		feedback: feedback,
		sessions: sessions,
		log:      log.With().Str("component", "ai_handler").Logger(),
	}
}

// Explain godoc
// POST /api/v1/exams/:exam_id/explain/:question_id
// Explains the correct answer of one question of a submitted exam.
func (h *AIHandler) Explain(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	questionID, ok := intParam(c, "question_id")
	if !ok || !authorizeSession(c, h.log, h.sessions, sessionID) {
		return
	}

	fb, err := h.feedback.Explain(c.Request.Context(), sessionID, questionID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, fb)
}

// Suggest godoc
// POST /api/v1/exams/:exam_id/suggest
func (h *AIHandler) Suggest(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok || !authorizeSession(c, h.log, h.sessions, sessionID) {
		return
	}

	fb, err := h.feedback.Suggest(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, fb)
}
