package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"feather-planner/internal/service"
)

// Handler wires HTTP routes to the account and calendar services.
type Handler struct {
	accounts    service.AccountService
	calendars   service.CalendarService
	exports     service.ExportService
	logger      logrus.FieldLogger
	allowOrigin string
}

func NewHandler(accounts service.AccountService, calendars service.CalendarService, exports service.ExportService, logger logrus.FieldLogger, allowOrigin string) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return &Handler{
		accounts:    accounts,
		calendars:   calendars,
		exports:     exports,
		logger:      logger,
		allowOrigin: allowOrigin,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(h.requestLogger(), corsMiddleware(h.allowOrigin))

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})

	accounts := router.Group("/accounts")
	{
		accounts.POST("/register", h.register)
		accounts.POST("/login", h.login)
		accounts.GET("/checkemail", h.checkEmail)
		accounts.GET("/checkusername", h.checkUsername)

		authed := accounts.Group("", h.requireSession())
		authed.GET("/checkin", h.checkIn)
		authed.POST("/logout", h.logout)
		authed.GET("/profile", h.profile)
	}

	calendar := router.Group("/calendar", h.requireSession())
	{
		calendar.POST("/plan/new", h.newPlan)
		calendar.POST("/plan/copy", h.copyPlan)
		calendar.DELETE("/plan/delete", h.deletePlan)
		calendar.PUT("/plan/edit", h.editPlan)
		calendar.PUT("/date/edit", h.editDate)
		calendar.GET("/date", h.getDate)
		calendar.POST("/dates", h.getDates)

		calendar.POST("/export", h.exportCalendar)
		calendar.GET("/exports", h.listExports)
		calendar.DELETE("/exports", h.deleteExports)
	}
}

func corsMiddleware(allowOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
