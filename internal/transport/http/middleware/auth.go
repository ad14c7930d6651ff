package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/residency-registry/internal/core/domain"
	"github.com/arklim/residency-registry/internal/infra/logger"
	"github.com/arklim/residency-registry/internal/infra/security"
	"github.com/arklim/residency-registry/internal/infra/telemetry"
	"github.com/arklim/residency-registry/internal/usecase"
)

// Identity is the verified caller attached to the request by RequireAuth.
type Identity = domain.Identity

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// newErrorResponse creates an error response with trace ID
func newErrorResponse(c *gin.Context, message string) ErrorResponse {
	return ErrorResponse{
		Message: message,
		TraceID: GetTraceID(c),
	}
}

// TokenParser verifies a raw bearer token.
type TokenParser interface {
	ParseAccessToken(ctx context.Context, raw string) (domain.Identity, error)
}

// RequireAuth validates the Authorization header and stores the caller identity.
//
// A missing or malformed header is 401. A token that fails verification is 403 and
// the precise reason is only logged. A store failure while checking revocation is 500.
func RequireAuth(parser TokenParser, metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid authorization format: expected 'Bearer <token>'"))
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing access token"))
			return
		}

		identity, err := parser.ParseAccessToken(c.Request.Context(), token)
		if err != nil {
			reason, rejected := failureReason(err)
			log := logger.WithContext(c.Request.Context())
			if !rejected {
				log.Error("token verification failed", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					newErrorResponse(c, "authentication failed"))
				return
			}

			metrics.AuthFailure(reason)
			log.Warn("access token rejected",
				zap.String("reason", reason),
				zap.String("client_ip", logger.MaskIP(c.ClientIP())),
			)
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "invalid or expired token"))
			return
		}

		setIdentity(c, identity)
		c.Next()
	}
}

func failureReason(err error) (string, bool) {
	switch {
	case errors.Is(err, usecase.ErrRevokedAccessToken):
		return telemetry.ReasonRevoked, true
	case errors.Is(err, usecase.ErrExpiredAccessToken):
		return telemetry.ReasonExpired, true
	case errors.Is(err, security.ErrTokenSignature):
		return telemetry.ReasonSignature, true
	case errors.Is(err, usecase.ErrInvalidAccessToken):
		return telemetry.ReasonMalformed, true
	default:
		return "", false
	}
}

// RequireRole checks the authenticated caller holds one of roles.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}

		if !identity.HasRole(roles...) {
			logger.WithContext(c.Request.Context()).Info("role check denied",
				zap.String("role", identity.Role.String()),
				zap.String("path", c.FullPath()),
			)
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "insufficient permissions"))
			return
		}

		c.Next()
	}
}
