package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/stemsi/skilltest-backend/internal/response"
	"github.com/stemsi/skilltest-backend/internal/service"
)

// RejectRevokedTokens blocks tokens whose jti was revoked by logout.
// Must run after RequireJWT.
func RejectRevokedTokens(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		if err := authService.CheckNotRevoked(c.Request.Context(), claims.ID); err != nil {
			if errors.Is(err, service.ErrTokenRevoked) {
				response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRevoked)
				return
			}
			log.Error().Err(err).Str("jti", claims.ID).Msg("revocation check failed")
			response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}

		c.Next()
	}
}
