package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"feather-planner/internal/domain"
)

type errorResponse struct {
	Code    int    `json:"code"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// badRequest marks a request decoding failure as a client error.
func badRequest(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.WithField("path", c.FullPath()).Errorf("request failed: %v", err)
		message = "internal error"
	}
	c.AbortWithStatusJSON(status, errorResponse{
		Code:    status,
		Name:    http.StatusText(status),
		Message: message,
	})
}
