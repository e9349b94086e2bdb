package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stemsi/skilltest-backend/internal/middleware"
	"github.com/stemsi/skilltest-backend/internal/model"
	"github.com/stemsi/skilltest-backend/internal/response"
	"github.com/stemsi/skilltest-backend/internal/validator"
)

// ExamHandler handles exam session endpoints.
type ExamHandler struct {
	generator examGenerator
	sessions  examSessions
	scorer    examScorer
	log       zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(generator examGenerator, sessions examSessions, scorer examScorer) *ExamHandler {
	return &ExamHandler{
		generator: generator,
		sessions:  sessions,
		scorer:    scorer,
		log:       log.With().Str("component", "exam_handler").Logger(),
	}
}

type listSessionsQuery struct {
	UserID *int `form:"user_id" binding:"omitempty,gt=0"`
}

// GenerateRandom godoc
// POST /api/v1/exams/random
// Creates a session of uniformly sampled questions.
func (h *ExamHandler) GenerateRandom(c *gin.Context) {
	var req model.GenerateRandomRequest
	if fields := validator.BindOptional(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	userID, ok := targetUser(c, req.UserID)
	if !ok {
		return
	}

	created, err := h.generator.GenerateRandom(c.Request.Context(), userID, req.QuestionCount)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, created)
}

// GenerateCustom godoc
// POST /api/v1/exams/custom
// Creates a session with a requested number of questions per skill.
func (h *ExamHandler) GenerateCustom(c *gin.Context) {
	var req model.GenerateCustomRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	userID, ok := targetUser(c, req.UserID)
	if !ok {
		return
	}

	created, err := h.generator.GenerateCustom(c.Request.Context(), userID, req.Skills)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, created)
}

// ListSessions godoc
// GET /api/v1/exams?user_id=
// Lists sessions with their derived status. Admins may omit user_id to list everyone's.
func (h *ExamHandler) ListSessions(c *gin.Context) {
	var q listSessionsQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	filter := q.UserID
	if !claims.IsAdmin() {
		userID, ok := targetUser(c, q.UserID)
		if !ok {
			return
		}
		filter = &userID
	}

	sessions, err := h.sessions.ListSessions(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": sessions})
}

// Status godoc
// GET /api/v1/exams/:exam_id/status
// Returns the derived lifecycle state of a session.
func (h *ExamHandler) Status(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok || !authorizeSession(c, h.log, h.sessions, sessionID) {
		return
	}

	p, err := h.sessions.Progress(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"exam_id":        sessionID,
		"status":         p.Status(),
		"in_progress":    p.InProgress(),
		"is_completed":   p.Completed(),
		"question_count": p.Total,
		"answered_count": p.Answered,
	})
}

// CountQuestions godoc
// GET /api/v1/exams/:exam_id/count
func (h *ExamHandler) CountQuestions(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok || !authorizeSession(c, h.log, h.sessions, sessionID) {
		return
	}

	n, err := h.sessions.CountQuestions(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam_id": sessionID, "question_count": n})
}

// GetQuestion godoc
// GET /api/v1/exams/:exam_id/questions/:index
// Returns the question at a zero-based position with its options.
func (h *ExamHandler) GetQuestion(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	index, ok := intParam(c, "index")
	if !ok || !authorizeSession(c, h.log, h.sessions, sessionID) {
		return
	}

	q, err := h.sessions.GetQuestion(c.Request.Context(), sessionID, index)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": q})
}

// Detail godoc
// GET /api/v1/exams/:exam_id/detail
func (h *ExamHandler) Detail(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok || !authorizeSession(c, h.log, h.sessions, sessionID) {
		return
	}

	detail, err := h.sessions.Detail(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, detail)
}

// SelectOption godoc
// PUT /api/v1/exams/:exam_id/select
// Records the chosen option for one question; later calls overwrite earlier ones.
func (h *ExamHandler) SelectOption(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	var req model.SelectOptionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if !authorizeSession(c, h.log, h.sessions, sessionID) {
		return
	}

	res, err := h.sessions.SelectOption(c.Request.Context(), sessionID, req.QuestionID, req.OptionID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// Submit godoc
// PUT /api/v1/exams/:exam_id/submit
// Scores every answer of the session at once.
func (h *ExamHandler) Submit(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok || !authorizeSession(c, h.log, h.sessions, sessionID) {
		return
	}

	res, err := h.scorer.CheckAnswers(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}
