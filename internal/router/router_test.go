package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/skilltest-backend/internal/config"
	"github.com/stemsi/skilltest-backend/internal/handler"
	"github.com/stemsi/skilltest-backend/internal/model"
	"github.com/stemsi/skilltest-backend/internal/service"
)

func newTestRouter(t *testing.T) (*gin.Engine, *service.AuthService) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{GinMode: "test", JWTSecret: "router-secret", JWTExpiry: time.Hour}
	auth := service.NewAuthService(cfg, nil, rdb)

	handlers := &Handlers{
		Auth:      handler.NewAuthHandler(auth),
		Exam:      handler.NewExamHandler(nil, nil, nil),
		AI:        handler.NewAIHandler(nil, nil),
		Dashboard: handler.NewDashboardHandler(nil),
		System:    handler.NewSystemHandler(nil),
	}
	return SetupRouter(auth, handlers, rdb, cfg, zerolog.Nop()), auth
}

func TestRouteTable(t *testing.T) {
	r, _ := newTestRouter(t)

	got := map[string]bool{}
	for _, ri := range r.Routes() {
		got[ri.Method+" "+ri.Path] = true
	}

	for _, want := range []string{
		"GET /health",
		"POST /api/v1/auth/register",
		"POST /api/v1/auth/login",
		"GET /api/v1/auth/me",
		"POST /api/v1/auth/logout",
		"POST /api/v1/exams/random",
		"POST /api/v1/exams/custom",
		"GET /api/v1/exams",
		"GET /api/v1/exams/:exam_id/status",
		"GET /api/v1/exams/:exam_id/count",
		"GET /api/v1/exams/:exam_id/questions/:index",
		"GET /api/v1/exams/:exam_id/detail",
		"PUT /api/v1/exams/:exam_id/select",
		"PUT /api/v1/exams/:exam_id/submit",
		"POST /api/v1/exams/:exam_id/explain/:question_id",
		"POST /api/v1/exams/:exam_id/suggest",
		"GET /api/v1/dashboard",
		"GET /api/v1/dashboard/summary",
		"GET /api/v1/dashboard/stats",
		"GET /api/v1/dashboard/skills",
		"GET /api/v1/dashboard/performance",
		"GET /api/v1/admin/exams",
	} {
		assert.True(t, got[want], "missing route %s", want)
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	r, auth := newTestRouter(t)

	for _, path := range []string{"/api/v1/exams", "/api/v1/dashboard", "/api/v1/auth/me"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	// A valid token gets past auth; the nil exam handler deps are never reached
	// because the exam id fails to parse first.
	token, _, err := auth.GenerateToken(&model.User{ID: 7, Role: model.RoleUser})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/exams/nope/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestAdminRoutesNeedAdminRole(t *testing.T) {
	r, auth := newTestRouter(t)

	token, _, err := auth.GenerateToken(&model.User{ID: 7, Role: model.RoleUser})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/exams", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHealthIsPublic(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
