package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stemsi/skilltest-backend/internal/response"
	"github.com/stemsi/skilltest-backend/internal/validator"
)

// DashboardHandler handles score summary endpoints.
type DashboardHandler struct {
	dashboard dashboardReader
	log       zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboard dashboardReader) *DashboardHandler {
	return &DashboardHandler{
		dashboard: dashboard,
		log:       log.With().Str("component", "dashboard_handler").Logger(),
	}
}

type dashboardQuery struct {
	UserID  *int `form:"user_id" binding:"omitempty,gt=0"`
	SkillID *int `form:"skill_id" binding:"omitempty,gt=0"`
}

func (h *DashboardHandler) bindQuery(c *gin.Context) (dashboardQuery, int, bool) {
	var q dashboardQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return q, 0, false
	}
	userID, ok := targetUser(c, q.UserID)
	return q, userID, ok
}

// Summary godoc
// GET /api/v1/dashboard/summary?skill_id=
// Lists finalised sessions with score, total and percentage.
func (h *DashboardHandler) Summary(c *gin.Context) {
	q, userID, ok := h.bindQuery(c)
	if !ok {
		return
	}

	summary, err := h.dashboard.Summary(c.Request.Context(), userID, q.SkillID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"summary": summary})
}

// Stats godoc
// GET /api/v1/dashboard/stats
func (h *DashboardHandler) Stats(c *gin.Context) {
	_, userID, ok := h.bindQuery(c)
	if !ok {
		return
	}

	stats, err := h.dashboard.Stats(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, stats)
}

// Performance godoc
// GET /api/v1/dashboard/performance
// Returns the correct and incorrect percentage per skill.
func (h *DashboardHandler) Performance(c *gin.Context) {
	_, userID, ok := h.bindQuery(c)
	if !ok {
		return
	}

	perf, err := h.dashboard.Performance(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"performance": perf})
}

// Skills godoc
// GET /api/v1/dashboard/skills
func (h *DashboardHandler) Skills(c *gin.Context) {
	skills, err := h.dashboard.Skills(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"skills": skills})
}

// Dashboard godoc
// GET /api/v1/dashboard
// Returns stats, summary and performance in one payload.
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	_, userID, ok := h.bindQuery(c)
	if !ok {
		return
	}

	d, err := h.dashboard.Dashboard(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, d)
}
