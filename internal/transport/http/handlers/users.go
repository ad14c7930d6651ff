package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/residency-registry/internal/transport/http/middleware"
	"github.com/arklim/residency-registry/internal/usecase"
)

// UserHandler exposes account administration for admins.
type UserHandler struct {
	users *usecase.UserService
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(users *usecase.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// RegisterRoutes binds the user administration routes. The group must already be role-gated.
func (h *UserHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.list)
	r.PUT("/:username", h.setRole)
	r.DELETE("/:username", h.delete)
}

func (h *UserHandler) list(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to list users")
		return
	}

	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, newUserSummary(u))
	}
	c.JSON(http.StatusOK, out)
}

var setRoleErrorCases = []ErrorCase{
	{Err: usecase.ErrInvalidRole, Status: http.StatusBadRequest, Message: "invalid role"},
	{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
}

func (h *UserHandler) setRole(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req RoleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid role"))
		return
	}

	if err := h.users.SetRole(c.Request.Context(), identity.Username, c.Param("username"), req.Role); err != nil {
		RespondWithMappedError(c, err, setRoleErrorCases, http.StatusInternalServerError, "failed to update role")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "user role updated"})
}

var deleteUserErrorCases = []ErrorCase{
	{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
}

func (h *UserHandler) delete(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.users.DeleteUser(c.Request.Context(), identity.Username, c.Param("username")); err != nil {
		RespondWithMappedError(c, err, deleteUserErrorCases, http.StatusInternalServerError, "failed to delete user")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "user deleted"})
}
