// README: Repair lifecycle handlers: one endpoint per transition.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pedalfix/internal/http/middleware"
	"pedalfix/internal/modules/repair"
	"pedalfix/internal/modules/user"
	"pedalfix/internal/types"
)

type RepairHandler struct {
	repairs *repair.Service
}

func NewRepairHandler(svc *repair.Service) *RepairHandler {
	return &RepairHandler{repairs: svc}
}

type createRepairReq struct {
	IssueType   string `json:"issue_type"`
	PostalCode  string `json:"postal_code"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

type declineRepairReq struct {
	Reason string `json:"reason"`
}

type cancelRepairReq struct {
	Reason string `json:"reason"`
}

type repairResponse struct {
	ID            string     `json:"id"`
	RiderID       string     `json:"rider_id"`
	FixerID       *string    `json:"fixer_id,omitempty"`
	Status        string     `json:"status"`
	IssueType     string     `json:"issue_type"`
	PostalCode    string     `json:"postal_code"`
	Description   *string    `json:"description,omitempty"`
	ImageURL      *string    `json:"image_url,omitempty"`
	RepairCost    *int64     `json:"repair_cost_cents,omitempty"`
	PlatformFee   int64      `json:"platform_fee_cents"`
	IsPaid        bool       `json:"is_paid"`
	DeclineReason *string    `json:"decline_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	AssignedAt    *time.Time `json:"assigned_at,omitempty"`
	AcceptedAt    *time.Time `json:"accepted_at,omitempty"`
	DeclinedAt    *time.Time `json:"declined_at,omitempty"`
	BookedAt      *time.Time `json:"booked_at,omitempty"`
}

func toRepairResponse(r *repair.Repair) repairResponse {
	resp := repairResponse{
		ID:            string(r.ID),
		RiderID:       string(r.RiderID),
		Status:        string(r.Status),
		IssueType:     r.IssueType,
		PostalCode:    r.PostalCode,
		Description:   r.Description,
		ImageURL:      r.ImageURL,
		PlatformFee:   r.PlatformFee.Amount,
		IsPaid:        r.IsPaid,
		DeclineReason: r.DeclineReason,
		CreatedAt:     r.CreatedAt,
		AssignedAt:    r.AssignedAt,
		AcceptedAt:    r.AcceptedAt,
		DeclinedAt:    r.DeclinedAt,
		BookedAt:      r.BookedAt,
	}
	if r.FixerID != nil {
		f := string(*r.FixerID)
		resp.FixerID = &f
	}
	if r.RepairCost != nil {
		c := r.RepairCost.Amount
		resp.RepairCost = &c
	}
	return resp
}

func (h *RepairHandler) Create(c *gin.Context) {
	var req createRepairReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	r, err := h.repairs.Create(c.Request.Context(), repair.CreateCommand{
		RiderID:     types.ID(middleware.CallerID(c)),
		IssueType:   req.IssueType,
		PostalCode:  req.PostalCode,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		writeRepairError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toRepairResponse(r))
}

func (h *RepairHandler) Get(c *gin.Context) {
	r, err := h.repairs.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeRepairError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toRepairResponse(r))
}

func (h *RepairHandler) Accept(c *gin.Context) {
	r, err := h.repairs.Accept(c.Request.Context(), repair.AcceptCommand{
		RepairID: types.ID(c.Param("id")),
		FixerID:  types.ID(middleware.CallerID(c)),
	})
	if err != nil {
		writeRepairError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toRepairResponse(r))
}

func (h *RepairHandler) Decline(c *gin.Context) {
	var req declineRepairReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	r, err := h.repairs.Decline(c.Request.Context(), repair.DeclineCommand{
		RepairID: types.ID(c.Param("id")),
		FixerID:  types.ID(middleware.CallerID(c)),
		Reason:   req.Reason,
	})
	if err != nil {
		writeRepairError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toRepairResponse(r))
}

type bookResponse struct {
	Booked      bool           `json:"booked"`
	SessionRef  string         `json:"session_ref,omitempty"`
	CheckoutURL string         `json:"checkout_url,omitempty"`
	Repair      repairResponse `json:"repair"`
}

func (h *RepairHandler) Book(c *gin.Context) {
	outcome, err := h.repairs.Book(c.Request.Context(), repair.BookCommand{
		RepairID: types.ID(c.Param("id")),
		RiderID:  types.ID(middleware.CallerID(c)),
	})
	if err != nil {
		writeRepairError(c, err)
		return
	}
	status := http.StatusOK
	if !outcome.Booked {
		// Booking deferred until the payment authority confirms.
		status = http.StatusAccepted
	}
	writeJSON(c, status, bookResponse{
		Booked:      outcome.Booked,
		SessionRef:  outcome.SessionRef,
		CheckoutURL: outcome.CheckoutURL,
		Repair:      toRepairResponse(outcome.Repair),
	})
}

func (h *RepairHandler) Complete(c *gin.Context) {
	r, err := h.repairs.Complete(c.Request.Context(), repair.CompleteCommand{
		RepairID:  types.ID(c.Param("id")),
		ActorID:   types.ID(middleware.CallerID(c)),
		ActorRole: user.Role(middleware.CallerRole(c)),
	})
	if err != nil {
		writeRepairError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toRepairResponse(r))
}

func (h *RepairHandler) Cancel(c *gin.Context) {
	var req cancelRepairReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	r, err := h.repairs.Cancel(c.Request.Context(), repair.CancelCommand{
		RepairID:  types.ID(c.Param("id")),
		ActorID:   types.ID(middleware.CallerID(c)),
		ActorRole: user.Role(middleware.CallerRole(c)),
		Reason:    req.Reason,
	})
	if err != nil {
		writeRepairError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toRepairResponse(r))
}
