package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"feather-planner/internal/domain"
	"feather-planner/internal/storage"
)

// Plan ids are pointers so that a zero id still satisfies "required".
type newPlanRequest struct {
	Date    string  `json:"date" binding:"required"`
	Content *string `json:"content" binding:"required"`
}

type copyPlanRequest struct {
	PlanID *uint32 `json:"plan_id" binding:"required"`
	Date   string  `json:"date" binding:"required"`
}

type deletePlanRequest struct {
	PlanID *uint32 `json:"plan_id" binding:"required"`
}

type editPlanRequest struct {
	PlanID  *uint32 `json:"plan_id" binding:"required"`
	Content *string `json:"content" binding:"required"`
}

type editDateRequest struct {
	Date    string   `json:"date" binding:"required"`
	PlanIDs []uint32 `json:"plan_ids" binding:"required"`
}

type getDatesRequest struct {
	Dates []string `json:"dates" binding:"required"`
}

type PlanResponse struct {
	PlanID  uint32 `json:"plan_id"`
	Content string `json:"content"`
}

type DateResponse struct {
	DateStr string         `json:"date_str"`
	Plans   []PlanResponse `json:"plans"`
}

type ExportResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type StorageObjectResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"last_modified,omitempty"`
}

func (h *Handler) newPlan(c *gin.Context) {
	var req newPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest(err))
		return
	}

	planID, err := h.calendars.NewPlan(c.Request.Context(), sessionFrom(c).UserID, req.Date, *req.Content)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan_id": planID})
}

func (h *Handler) copyPlan(c *gin.Context) {
	var req copyPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest(err))
		return
	}

	planID, err := h.calendars.CopyPlan(c.Request.Context(), sessionFrom(c).UserID, *req.PlanID, req.Date)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan_id": planID})
}

func (h *Handler) deletePlan(c *gin.Context) {
	var req deletePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest(err))
		return
	}

	if err := h.calendars.DeletePlan(c.Request.Context(), sessionFrom(c).UserID, *req.PlanID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (h *Handler) editPlan(c *gin.Context) {
	var req editPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest(err))
		return
	}

	if err := h.calendars.EditPlan(c.Request.Context(), sessionFrom(c).UserID, *req.PlanID, *req.Content); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (h *Handler) editDate(c *gin.Context) {
	var req editDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest(err))
		return
	}

	if err := h.calendars.EditDate(c.Request.Context(), sessionFrom(c).UserID, req.Date, req.PlanIDs); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (h *Handler) getDate(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		h.fail(c, badRequest(fmt.Errorf("date is required")))
		return
	}

	day, err := h.calendars.GetDate(c.Request.Context(), sessionFrom(c).UserID, date)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dateToResponse(*day))
}

func (h *Handler) getDates(c *gin.Context) {
	var req getDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest(err))
		return
	}

	days, err := h.calendars.GetDates(c.Request.Context(), sessionFrom(c).UserID, req.Dates)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := make([]DateResponse, len(days))
	for i := range days {
		resp[i] = dateToResponse(days[i])
	}
	c.JSON(http.StatusOK, gin.H{"dates": resp})
}

func (h *Handler) exportCalendar(c *gin.Context) {
	result, err := h.exports.Export(c.Request.Context(), sessionFrom(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ExportResponse{Key: result.Key, URL: result.URL})
}

func (h *Handler) listExports(c *gin.Context) {
	objects, err := h.exports.List(c.Request.Context(), sessionFrom(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := make([]StorageObjectResponse, len(objects))
	for i := range objects {
		resp[i] = objectToResponse(objects[i])
	}
	c.JSON(http.StatusOK, gin.H{"exports": resp})
}

func (h *Handler) deleteExports(c *gin.Context) {
	if err := h.exports.Delete(c.Request.Context(), sessionFrom(c).UserID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func dateToResponse(day domain.DatePlans) DateResponse {
	resp := DateResponse{
		DateStr: day.Date,
		Plans:   make([]PlanResponse, len(day.Plans)),
	}
	for i := range day.Plans {
		resp.Plans[i] = PlanResponse{
			PlanID:  day.Plans[i].ID,
			Content: day.Plans[i].Content,
		}
	}
	return resp
}

func objectToResponse(obj storage.ObjectInfo) StorageObjectResponse {
	resp := StorageObjectResponse{
		Key:  obj.Key,
		Size: obj.Size,
	}
	if obj.LastModified != nil && !obj.LastModified.IsZero() {
		v := obj.LastModified.Format(time.RFC3339)
		resp.LastModified = &v
	}
	return resp
}
