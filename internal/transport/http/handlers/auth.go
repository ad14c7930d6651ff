package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/residency-registry/internal/usecase"
)

// AuthHandler exposes registration and login.
type AuthHandler struct {
	auth         *usecase.AuthService
	registration *usecase.RegistrationService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, registration *usecase.RegistrationService) *AuthHandler {
	return &AuthHandler{auth: auth, registration: registration}
}

// RegisterRoutes binds authentication routes, applying optional middleware ahead of login.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, loginMiddlewares ...gin.HandlerFunc) {
	r.POST("/register", h.register)

	chain := append([]gin.HandlerFunc{}, loginMiddlewares...)
	chain = append(chain, h.login)
	r.POST("/login", chain...)
}

var registerErrorCases = []ErrorCase{
	{Err: usecase.ErrInvalidRole, Status: http.StatusBadRequest, Message: "invalid role"},
	{Err: usecase.ErrValidation, Status: http.StatusBadRequest, Message: "username or password does not meet requirements"},
	{Err: usecase.ErrUsernameTaken, Status: http.StatusConflict, Message: "username already exists"},
}

func (h *AuthHandler) register(c *gin.Context) {
	var req RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "username, password and role are required"))
		return
	}

	summary, err := h.registration.Register(c.Request.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		RespondWithMappedError(c, err, registerErrorCases, http.StatusInternalServerError, "failed to register user")
		return
	}

	c.JSON(http.StatusCreated, RegistrationResponse{
		Message: "user registered successfully",
		User:    newUserSummary(summary),
	})
}

var loginErrorCases = []ErrorCase{
	{Err: usecase.ErrUserNotFound, Status: http.StatusUnauthorized, Message: "user not found"},
	{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
}

func (h *AuthHandler) login(c *gin.Context) {
	var req AuthLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "username and password are required"))
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		RespondWithMappedError(c, err, loginErrorCases, http.StatusInternalServerError, "login failed")
		return
	}

	c.JSON(http.StatusOK, AuthLoginResponse{
		Token:     res.Token,
		TokenType: res.TokenType,
		ExpiresAt: res.ExpiresAt,
		Username:  res.Username,
		Role:      res.Role,
	})
}
