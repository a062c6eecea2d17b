package handlers

import (
	"net/http"
	"strconv"

	"parkly/internal/models"

	"github.com/gin-gonic/gin"
)

// Fee schedule handlers

// CreateSchedule - POST /api/schedules
// Lot owner creates a pricing rule.
func (h *Handlers) CreateSchedule(c *gin.Context) {
	var req models.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schedule, err := h.services.Schedules.Create(c.Request.Context(), actorID(c), &req)
	if err != nil {
		respondError(c, err, "Failed to create schedule")
		return
	}

	c.JSON(http.StatusCreated, schedule)
}

// UpdateSchedule - PATCH /api/schedules/:id
// Editing never affects sessions that already bound the rule.
func (h *Handlers) UpdateSchedule(c *gin.Context) {
	scheduleID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule id"})
		return
	}

	var req models.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schedule, err := h.services.Schedules.Update(c.Request.Context(), actorID(c), scheduleID, &req)
	if err != nil {
		respondError(c, err, "Failed to update schedule")
		return
	}

	c.JSON(http.StatusOK, schedule)
}

// ListSchedules - GET /api/schedules?lot_id=N
func (h *Handlers) ListSchedules(c *gin.Context) {
	lotID, err := strconv.ParseInt(c.Query("lot_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lot_id is required"})
		return
	}

	schedules, err := h.services.Schedules.ListByLot(c.Request.Context(), lotID)
	if err != nil {
		respondError(c, err, "Failed to list schedules")
		return
	}

	c.JSON(http.StatusOK, schedules)
}
