package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stemsi/skilltest-backend/internal/config"
	"github.com/stemsi/skilltest-backend/internal/response"
)

// RateLimiter is a fixed-window counter kept in Redis, so the limit holds
// across server instances. Callers are keyed by user ID when authenticated
// and by client IP otherwise.
type RateLimiter struct {
	rdb    *redis.Client
	scope  string
	limit  int
	window time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

// NewRateLimiter creates a RateLimiter allowing limit requests per window.
// A non-positive limit disables limiting.
func NewRateLimiter(rdb *redis.Client, scope string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		rdb:    rdb,
		scope:  scope,
		limit:  limit,
		window: window,
		now:    time.Now,
		log:    log.With().Str("component", "rate_limiter").Str("scope", scope).Logger(),
	}
}

// Middleware returns a Gin middleware enforcing the limit.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limit <= 0 {
			c.Next()
			return
		}

		caller := "ip:" + c.ClientIP()
		if claims := GetClaims(c); claims != nil {
			caller = "user:" + strconv.Itoa(claims.UserID)
		}

		now := rl.now()
		window := now.UnixNano() / int64(rl.window)
		key := config.CacheKey.RateLimitKey(rl.scope, caller, window)

		ctx := c.Request.Context()
		var incr *redis.IntCmd
		_, err := rl.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			pipe.Expire(ctx, key, rl.window)
			return nil
		})
		if err != nil {
			// Fail open on Redis errors.
			rl.log.Warn().Err(err).Msg("rate limit check failed")
			c.Next()
			return
		}

		if incr.Val() > int64(rl.limit) {
			windowEnd := time.Unix(0, (window+1)*int64(rl.window))
			retry := int(windowEnd.Sub(now).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(retry))
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}

		c.Next()
	}
}
