package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"parkly/internal/models"

	"github.com/gin-gonic/gin"
)

// Payment handlers

// GetPaymentInfo - GET /api/sessions/:id/payment
// Driver-facing reconciliation poll. May re-issue the payment request when
// the gateway reports a terminal failure.
func (h *Handlers) GetPaymentInfo(c *gin.Context) {
	sessionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	info, err := h.services.Sessions.GetPaymentInfo(c.Request.Context(), sessionID, actorID(c))
	if err != nil {
		respondError(c, err, "Failed to get payment info")
		return
	}

	c.JSON(http.StatusOK, info)
}

// GetPaymentInfoByStaff - GET /api/sessions/payment?plate=X&lot_id=N
// Staff-facing reconciliation poll, addressed by plate.
func (h *Handlers) GetPaymentInfoByStaff(c *gin.Context) {
	plate := c.Query("plate")
	lotID, err := strconv.ParseInt(c.Query("lot_id"), 10, 64)
	if plate == "" || err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plate and lot_id are required"})
		return
	}

	info, err := h.services.Sessions.GetPaymentInfoByStaff(c.Request.Context(), plate, lotID)
	if err != nil {
		respondError(c, err, "Failed to get payment info")
		return
	}

	c.JSON(http.StatusOK, info)
}

// GetPaymentStatus - GET /api/sessions/:id/payment/status
// Raw gateway state, no session mutation.
func (h *Handlers) GetPaymentStatus(c *gin.Context) {
	sessionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	status, err := h.services.Sessions.GetPaymentStatus(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err, "Failed to get payment status")
		return
	}

	c.JSON(http.StatusOK, status)
}

// CancelPayment - DELETE /api/sessions/:id/payment
func (h *Handlers) CancelPayment(c *gin.Context) {
	sessionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	var req models.CancelPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status, err := h.services.Sessions.CancelPayment(c.Request.Context(), sessionID, req.Reason)
	if err != nil {
		respondError(c, err, "Failed to cancel payment")
		return
	}

	c.JSON(http.StatusOK, status)
}

// OnPaymentWebhook - POST /api/payments/webhook
// The gateway's asynchronous confirmation. Always answers 200 for payloads
// addressed to unknown order codes so the gateway stops retrying them.
func (h *Handlers) OnPaymentWebhook(c *gin.Context) {
	var webhook models.PaymentWebhook
	if err := c.ShouldBindJSON(&webhook); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.Sessions.ConfirmTransaction(c.Request.Context(), &webhook); err != nil {
		slog.Error("Failed to handle payment webhook", "error", err, "order_code", webhook.Data.OrderCode)
		respondError(c, err, "Failed to handle webhook")
		return
	}

	c.Status(http.StatusOK)
}
