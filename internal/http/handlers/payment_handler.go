// README: Payment authority webhook handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pedalfix/internal/modules/repair"
)

type PaymentHandler struct {
	repairs *repair.Service
}

func NewPaymentHandler(svc *repair.Service) *PaymentHandler {
	return &PaymentHandler{repairs: svc}
}

type webhookReq struct {
	SessionRef string `json:"session_ref"`
}

// Confirm handles the authority's success callback and drives the deferred
// transition to booked.
func (h *PaymentHandler) Confirm(c *gin.Context) {
	var req webhookReq
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionRef == "" {
		writeError(c, http.StatusBadRequest, "missing session_ref")
		return
	}
	r, err := h.repairs.ConfirmPayment(c.Request.Context(), req.SessionRef)
	if err != nil {
		writeRepairError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toRepairResponse(r))
}

// Fail tears the session down; the request stays in its prior state.
func (h *PaymentHandler) Fail(c *gin.Context) {
	var req webhookReq
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionRef == "" {
		writeError(c, http.StatusBadRequest, "missing session_ref")
		return
	}
	if err := h.repairs.FailPayment(c.Request.Context(), req.SessionRef); err != nil {
		writeRepairError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"acknowledged": true})
}
