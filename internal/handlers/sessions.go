package handlers

import (
	"net/http"
	"strconv"
	"time"

	"parkly/internal/models"

	"github.com/gin-gonic/gin"
)

// Session handlers

// CheckIn - POST /api/sessions/check-in
// Staff opens a session for an arriving vehicle.
func (h *Handlers) CheckIn(c *gin.Context) {
	var req models.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.services.Sessions.CheckIn(c.Request.Context(), &req, actorID(c))
	if err != nil {
		respondError(c, err, "Failed to check in")
		return
	}

	c.JSON(http.StatusCreated, models.CheckInResponse{ID: session.ID})
}

// CheckOut - PATCH /api/sessions/check-out
// Driver signals departure and picks a payment method.
func (h *Handlers) CheckOut(c *gin.Context) {
	var req models.CheckOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	method, err := models.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.services.Sessions.CheckOut(c.Request.Context(), req.SessionID, method, actorID(c))
	if err != nil {
		respondError(c, err, "Failed to check out")
		return
	}

	c.JSON(http.StatusOK, session)
}

// Finish - PATCH /api/sessions/finish
// Staff confirms the physical exit. Refused while the session is unpaid.
func (h *Handlers) Finish(c *gin.Context) {
	var req models.FinishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.services.Sessions.Finish(c.Request.Context(), &req, actorID(c))
	if err != nil {
		respondError(c, err, "Failed to finish session")
		return
	}

	c.JSON(http.StatusOK, session)
}

// ForceFinish - PATCH /api/sessions/force-finish
// Staff closes a session regardless of payment state.
func (h *Handlers) ForceFinish(c *gin.Context) {
	var req models.FinishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.services.Sessions.ForceFinish(c.Request.Context(), &req, actorID(c))
	if err != nil {
		respondError(c, err, "Failed to force-finish session")
		return
	}

	c.JSON(http.StatusOK, session)
}

// ListOpen - GET /api/sessions/open?lot_id=N
func (h *Handlers) ListOpen(c *gin.Context) {
	lotID, err := strconv.ParseInt(c.Query("lot_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lot_id is required"})
		return
	}

	sessions, err := h.services.Sessions.ListOpen(c.Request.Context(), lotID)
	if err != nil {
		respondError(c, err, "Failed to list sessions")
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// CurrentSession - GET /api/sessions/current?plate=X&lot_id=N
func (h *Handlers) CurrentSession(c *gin.Context) {
	plate := c.Query("plate")
	lotID, err := strconv.ParseInt(c.Query("lot_id"), 10, 64)
	if plate == "" || err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plate and lot_id are required"})
		return
	}

	session, err := h.services.Sessions.CurrentByPlate(c.Request.Context(), plate, lotID)
	if err != nil {
		respondError(c, err, "Failed to get session")
		return
	}

	c.JSON(http.StatusOK, session)
}

// SearchHistory - GET /api/sessions/history?plate=X&lot_id=N&from=&to=&limit=
// Queries the finished-session archive in Elasticsearch.
func (h *Handlers) SearchHistory(c *gin.Context) {
	plate := c.Query("plate")
	lotID, _ := strconv.ParseInt(c.Query("lot_id"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	var from, to time.Time
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
			return
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
			return
		}
		to = t
	}

	docs, err := h.services.Sessions.SearchHistory(c.Request.Context(), plate, lotID, from, to, limit)
	if err != nil {
		respondError(c, err, "Failed to search session history")
		return
	}

	c.JSON(http.StatusOK, docs)
}
