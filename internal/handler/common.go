package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/skilltest-backend/internal/middleware"
	"github.com/stemsi/skilltest-backend/internal/model"
	"github.com/stemsi/skilltest-backend/internal/response"
	"github.com/stemsi/skilltest-backend/internal/service"
)

// The interfaces below are implemented by the services in internal/service.

type examGenerator interface {
	GenerateRandom(ctx context.Context, userID int, questionCount *int) (*model.CreatedSession, error)
	GenerateCustom(ctx context.Context, userID int, skills []model.SkillCount) (*model.CreatedSession, error)
}

type sessionOwners interface {
	Owner(ctx context.Context, sessionID int64) (int, error)
}

type examSessions interface {
	sessionOwners
	ListSessions(ctx context.Context, userID *int) ([]model.SessionOverview, error)
	Progress(ctx context.Context, sessionID int64) (model.SessionProgress, error)
	CountQuestions(ctx context.Context, sessionID int64) (int, error)
	GetQuestion(ctx context.Context, sessionID int64, index int) (*model.SessionQuestion, error)
	Detail(ctx context.Context, sessionID int64) (*model.SessionDetail, error)
	SelectOption(ctx context.Context, sessionID int64, questionID, optionID int) (*model.SelectionResult, error)
}

type examScorer interface {
	CheckAnswers(ctx context.Context, sessionID int64) (*model.ScoreResult, error)
}

type feedbackGenerator interface {
	Explain(ctx context.Context, sessionID int64, questionID int) (*service.Feedback, error)
	Suggest(ctx context.Context, sessionID int64) (*service.Feedback, error)
}

type dashboardReader interface {
	Summary(ctx context.Context, userID int, skillID *int) ([]model.ExamSummary, error)
	Stats(ctx context.Context, userID int) (*model.GeneralStats, error)
	Performance(ctx context.Context, userID int) ([]model.SkillPerformance, error)
	Skills(ctx context.Context) ([]model.Skill, error)
	Dashboard(ctx context.Context, userID int) (*model.Dashboard, error)
}

// respondError maps a service error onto the response envelope. Unexpected
// errors are logged and reported as opaque internal errors.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		field := verr.Field
		if field == "" {
			field = "detail"
		}
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{field: verr.Message})
	case errors.Is(err, service.ErrValidation):
		response.Fail(c, http.StatusBadRequest, response.ErrValidation)
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
	case errors.Is(err, service.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrSessionCompleted):
		response.Fail(c, http.StatusConflict, response.ErrSessionCompleted)
	case errors.Is(err, service.ErrSessionNotCompleted):
		response.Fail(c, http.StatusConflict, response.ErrSessionNotCompleted)
	case errors.Is(err, service.ErrConflict):
		response.Fail(c, http.StatusConflict, response.ErrConflict)
	case errors.Is(err, service.ErrNoQuestionsAvailable):
		response.FailWithMessage(c, http.StatusUnprocessableEntity, response.ErrNoQuestions, err.Error())
	case errors.Is(err, service.ErrUpstreamUnavailable):
		response.Fail(c, http.StatusServiceUnavailable, response.ErrAIUnavailable)
	default:
		log.Error().Err(err).
			Str("path", c.FullPath()).
			Str("request_id", c.GetString(response.ContextKeyRequestID)).
			Msg("request failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// sessionIDParam parses :exam_id. It writes the error response itself.
func sessionIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("exam_id"), 10, 64)
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}

// intParam parses a non-negative integer path parameter.
func intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v < 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return v, true
}

// authorizeSession lets admins through and otherwise requires the caller to
// own the session. It writes the error response itself.
func authorizeSession(c *gin.Context, log zerolog.Logger, owners sessionOwners, sessionID int64) bool {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return false
	}
	if claims.IsAdmin() {
		return true
	}

	owner, err := owners.Owner(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, log, err)
		return false
	}
	if owner != claims.UserID {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return false
	}
	return true
}

// targetUser resolves which user an operation acts on: the requested user
// for admins, otherwise the caller, who may only name themselves.
func targetUser(c *gin.Context, requested *int) (int, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return 0, false
	}
	if requested == nil || *requested == claims.UserID {
		return claims.UserID, true
	}
	if !claims.IsAdmin() {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return 0, false
	}
	return *requested, true
}
