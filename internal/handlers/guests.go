package handlers

import (
	"net/http"
	"strconv"

	"parkly/internal/models"

	"github.com/gin-gonic/gin"
)

// Guest session handlers

// GuestCheckIn - POST /api/guests/check-in
func (h *Handlers) GuestCheckIn(c *gin.Context) {
	var req models.GuestCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.services.Guests.CheckIn(c.Request.Context(), &req, actorID(c))
	if err != nil {
		respondError(c, err, "Failed to check in guest")
		return
	}

	c.JSON(http.StatusCreated, models.CheckInResponse{ID: session.ID})
}

// GuestFinish - PATCH /api/guests/finish
// Closes the guest session and returns the cash amount due.
func (h *Handlers) GuestFinish(c *gin.Context) {
	var req models.FinishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.services.Guests.Finish(c.Request.Context(), &req, actorID(c))
	if err != nil {
		respondError(c, err, "Failed to finish guest session")
		return
	}

	c.JSON(http.StatusOK, session)
}

// ListOpenGuests - GET /api/guests/open?lot_id=N
func (h *Handlers) ListOpenGuests(c *gin.Context) {
	lotID, err := strconv.ParseInt(c.Query("lot_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lot_id is required"})
		return
	}

	sessions, err := h.services.Guests.ListOpen(c.Request.Context(), lotID)
	if err != nil {
		respondError(c, err, "Failed to list guest sessions")
		return
	}

	c.JSON(http.StatusOK, sessions)
}
