package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Email    string `form:"email" binding:"required"`
	FullName string `form:"fullname" binding:"required"`
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// Missing credentials are answered in-band by Login, not rejected here.
type loginRequest struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

type loginResponse struct {
	Status int    `json:"status"`
	Token  string `json:"token"`
}

type profileResponse struct {
	UserID   uint32 `json:"u_id"`
	Email    string `json:"email"`
	FullName string `json:"fullname"`
	Username string `json:"username"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		h.fail(c, badRequest(err))
		return
	}

	ctx := c.Request.Context()
	reg, err := h.accounts.Register(ctx, req.Email, req.FullName, req.Username, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.calendars.EnsureCalendar(ctx, reg.UserID); err != nil {
		h.fail(c, fmt.Errorf("create calendar for user %d: %w", reg.UserID, err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": reg.Token})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.fail(c, badRequest(err))
		return
	}

	result, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{Status: int(result.Status), Token: result.Token})
}

func (h *Handler) checkIn(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) checkEmail(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		h.fail(c, badRequest(fmt.Errorf("email is required")))
		return
	}

	exists, err := h.accounts.EmailExists(c.Request.Context(), email)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"email_exists": exists})
}

func (h *Handler) checkUsername(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		h.fail(c, badRequest(fmt.Errorf("username is required")))
		return
	}

	exists, err := h.accounts.UsernameExists(c.Request.Context(), username)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"username_exists": exists})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.accounts.Logout(c.Request.Context(), sessionFrom(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (h *Handler) profile(c *gin.Context) {
	user, err := h.accounts.Profile(c.Request.Context(), sessionFrom(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, profileResponse{
		UserID:   user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Username: user.Username,
	})
}
