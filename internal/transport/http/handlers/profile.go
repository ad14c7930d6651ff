package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/residency-registry/internal/transport/http/middleware"
	"github.com/arklim/residency-registry/internal/usecase"
)

// ProfileHandler serves self-service account changes.
type ProfileHandler struct {
	users *usecase.UserService
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(users *usecase.UserService) *ProfileHandler {
	return &ProfileHandler{users: users}
}

var passwordChangeErrorCases = []ErrorCase{
	{Err: usecase.ErrValidation, Status: http.StatusBadRequest, Message: "password does not meet requirements"},
	{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
}

// UpdatePassword replaces the caller's password. Any username in the body is ignored.
func (h *ProfileHandler) UpdatePassword(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req PasswordChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "newPassword is required"))
		return
	}

	if err := h.users.UpdateOwnPassword(c.Request.Context(), identity, req.NewPassword); err != nil {
		RespondWithMappedError(c, err, passwordChangeErrorCases, http.StatusInternalServerError, "failed to update password")
		return
	}

	c.JSON(http.StatusOK, PasswordChangeResponse{
		Message:     "password updated, please log in again",
		ForceLogout: true,
	})
}
