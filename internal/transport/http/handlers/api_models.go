package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/residency-registry/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, message string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Message: message,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserSummary is the public view of an account. It never carries credential material.
type UserSummary struct {
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
}

// RegistrationRequest is the payload for account registration.
type RegistrationRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// RegistrationResponse is returned after an account is created.
type RegistrationResponse struct {
	Message string      `json:"message"`
	User    UserSummary `json:"user"`
}

// AuthLoginRequest defines the payload for the login endpoint.
type AuthLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthLoginResponse describes the response returned for a successful login.
type AuthLoginResponse struct {
	Token     string      `json:"token"`
	TokenType string      `json:"tokenType"`
	ExpiresAt time.Time   `json:"expiresAt"`
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
}

// RoleUpdateRequest changes the role of an account.
type RoleUpdateRequest struct {
	Role string `json:"role" binding:"required"`
}

// PasswordChangeRequest is the self-service password change payload.
type PasswordChangeRequest struct {
	NewPassword string `json:"newPassword" binding:"required"`
}

// PasswordChangeResponse tells the client to discard its token.
type PasswordChangeResponse struct {
	Message     string `json:"message"`
	ForceLogout bool   `json:"forceLogout"`
}

// RecordResponse wraps a record returned after a mutation.
type RecordResponse struct {
	Message string        `json:"message"`
	Record  domain.Record `json:"record"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadyResponse reports readiness per dependency.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func newUserSummary(summary domain.UserSummary) UserSummary {
	return UserSummary{Username: summary.Username, Role: summary.Role}
}
