package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/skilltest-backend/internal/config"
	"github.com/stemsi/skilltest-backend/internal/handler"
	"github.com/stemsi/skilltest-backend/internal/logger"
	"github.com/stemsi/skilltest-backend/internal/middleware"
	"github.com/stemsi/skilltest-backend/internal/model"
	"github.com/stemsi/skilltest-backend/internal/response"
	"github.com/stemsi/skilltest-backend/internal/service"
)

// skillsMaxAge is how long clients may cache the skill list.
const skillsMaxAge = 300

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Exam      *handler.ExamHandler
	AI        *handler.AIHandler
	Dashboard *handler.DashboardHandler
	System    *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", response.HeaderRequestID}
	corsConfig.ExposeHeaders = []string{response.HeaderRequestID, "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(logger.RequestLogger(log, response.ContextKeyRequestID))
	router.Use(middleware.Brotli())

	router.GET("/health", middleware.NoStore(), handlers.System.Health)

	authenticated := []gin.HandlerFunc{
		middleware.RequireJWT(authService),
		middleware.RejectRevokedTokens(authService),
	}

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)

		me := auth.Group("", authenticated...)
		me.GET("/me", middleware.NoStore(), handlers.Auth.Me)
		me.POST("/logout", handlers.Auth.Logout)
	}

	// ─── 2. Exam Sessions (JWT) ────────────────────────────────────────
	aiLimiter := middleware.NewRateLimiter(rdb, "ai", cfg.AI.RateLimitPerMinute, time.Minute)

	exams := router.Group("/api/v1/exams", authenticated...)
	exams.Use(middleware.NoStore())
	{
		exams.POST("/random", handlers.Exam.GenerateRandom)
		exams.POST("/custom", handlers.Exam.GenerateCustom)
		exams.GET("", handlers.Exam.ListSessions)

		exams.GET("/:exam_id/status", handlers.Exam.Status)
		exams.GET("/:exam_id/count", handlers.Exam.CountQuestions)
		exams.GET("/:exam_id/questions/:index", handlers.Exam.GetQuestion)
		exams.GET("/:exam_id/detail", handlers.Exam.Detail)
		exams.PUT("/:exam_id/select", handlers.Exam.SelectOption)
		exams.PUT("/:exam_id/submit", handlers.Exam.Submit)

		exams.POST("/:exam_id/explain/:question_id", aiLimiter.Middleware(), handlers.AI.Explain)
		exams.POST("/:exam_id/suggest", aiLimiter.Middleware(), handlers.AI.Suggest)
	}

	// ─── 3. Dashboard (JWT) ────────────────────────────────────────────
	dashboard := router.Group("/api/v1/dashboard", authenticated...)
	{
		dashboard.GET("", middleware.NoStore(), handlers.Dashboard.Dashboard)
		dashboard.GET("/summary", middleware.NoStore(), handlers.Dashboard.Summary)
		dashboard.GET("/stats", middleware.NoStore(), handlers.Dashboard.Stats)
		dashboard.GET("/performance", middleware.NoStore(), handlers.Dashboard.Performance)
		dashboard.GET("/skills", middleware.CacheControl(skillsMaxAge), handlers.Dashboard.Skills)
	}

	// ─── 4. Admin (JWT + admin role) ───────────────────────────────────
	admin := router.Group("/api/v1/admin", authenticated...)
	admin.Use(middleware.RequireRole(model.RoleAdmin), middleware.NoStore())
	{
		admin.GET("/exams", handlers.Exam.ListSessions)
	}

	return router
}
