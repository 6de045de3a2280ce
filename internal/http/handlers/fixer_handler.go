// README: Fixer-facing handlers (availability toggle).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pedalfix/internal/http/middleware"
	"pedalfix/internal/modules/user"
	"pedalfix/internal/types"
)

type FixerHandler struct {
	users *user.Store
}

func NewFixerHandler(users *user.Store) *FixerHandler {
	return &FixerHandler{users: users}
}

type availabilityReq struct {
	Available *bool `json:"available"`
}

func (h *FixerHandler) SetAvailability(c *gin.Context) {
	var req availabilityReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Available == nil {
		writeError(c, http.StatusBadRequest, "missing availability flag")
		return
	}
	id := types.ID(middleware.CallerID(c))
	if err := h.users.SetAvailability(c.Request.Context(), id, *req.Available); err != nil {
		writeRepairError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"available": *req.Available})
}
