package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stemsi/skilltest-backend/internal/response"
)

const healthCheckTimeout = 2 * time.Second

// Pinger is anything that can report whether a backing service is reachable.
// *pgxpool.Pool satisfies it directly.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f(ctx).
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// SystemHandler reports process health and dependency reachability.
type SystemHandler struct {
	deps      map[string]Pinger
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler. deps maps a dependency name
// such as "postgres" to its health check.
func NewSystemHandler(deps map[string]Pinger) *SystemHandler {
	return &SystemHandler{
		deps:      deps,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type healthReport struct {
	Status     string            `json:"status"`
	Uptime     string            `json:"uptime"`
	Goroutines int               `json:"goroutines"`
	GoVersion  string            `json:"go_version"`
	Checks     map[string]string `json:"checks"`
}

// Health godoc
// GET /health
// Returns 200 when every dependency answers a ping, 503 otherwise.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	report := healthReport{
		Status:     "ok",
		Uptime:     time.Since(h.startTime).Truncate(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		GoVersion:  runtime.Version(),
		Checks:     make(map[string]string, len(h.deps)),
	}

	status := http.StatusOK
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			h.log.Warn().Err(err).Str("dependency", name).Msg("health check failed")
			report.Checks[name] = "down"
			report.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		report.Checks[name] = "up"
	}

	response.Success(c, status, report)
}
