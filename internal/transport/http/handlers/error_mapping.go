package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/residency-registry/internal/infra/logger"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError resolves err against known cases. Anything unmatched is a
// server-side failure: the cause is logged and the client gets the fallback message.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}

	_ = c.Error(err)
	logger.WithContext(c.Request.Context()).Error(fallbackMessage,
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}
