package http

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"feather-planner/internal/domain"
)

const (
	requestIDHeader = "X-Request-ID"
	sessionKey      = "session"
)

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, requestID)

		start := time.Now()
		c.Next()

		entry := h.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
		})
		if c.Writer.Status() >= 500 {
			entry.Warn("request")
			return
		}
		entry.Debug("request")
	}
}

// requireSession validates the bearer token and stores the session for handlers.
func (h *Handler) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			h.fail(c, domain.ErrMissingCredential)
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			h.fail(c, domain.ErrInvalidToken)
			return
		}

		session, err := h.accounts.CheckToken(c.Request.Context(), strings.TrimSpace(raw))
		if err != nil {
			h.fail(c, err)
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) domain.Session {
	return c.MustGet(sessionKey).(domain.Session)
}
