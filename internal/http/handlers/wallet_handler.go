// README: Wallet handlers: balance view and payout requests.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pedalfix/internal/http/middleware"
	"pedalfix/internal/modules/wallet"
	"pedalfix/internal/types"
)

type WalletHandler struct {
	wallets *wallet.Service
}

func NewWalletHandler(svc *wallet.Service) *WalletHandler {
	return &WalletHandler{wallets: svc}
}

type payoutResponse struct {
	ID          string     `json:"id"`
	AmountCents int64      `json:"amount_cents"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

func toPayoutResponse(p *wallet.Payout) payoutResponse {
	return payoutResponse{
		ID:          string(p.ID),
		AmountCents: p.Amount.Amount,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
		ProcessedAt: p.ProcessedAt,
	}
}

func (h *WalletHandler) Balance(c *gin.Context) {
	balance, err := h.wallets.Balance(c.Request.Context(), types.ID(middleware.CallerID(c)))
	if err != nil {
		writeWalletError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"balance_cents": balance.Amount, "currency": balance.Currency})
}

func (h *WalletHandler) RequestPayout(c *gin.Context) {
	p, err := h.wallets.RequestPayout(c.Request.Context(), types.ID(middleware.CallerID(c)))
	if err != nil {
		writeWalletError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toPayoutResponse(p))
}

func (h *WalletHandler) ListPayouts(c *gin.Context) {
	payouts, err := h.wallets.ListPayouts(c.Request.Context(), types.ID(middleware.CallerID(c)))
	if err != nil {
		writeWalletError(c, err)
		return
	}
	out := make([]payoutResponse, 0, len(payouts))
	for i := range payouts {
		out = append(out, toPayoutResponse(&payouts[i]))
	}
	writeJSON(c, http.StatusOK, out)
}
