// README: Wallet ledger types; payouts are withdrawals against a balance.
package wallet

import (
	"time"

	"pedalfix/internal/types"
)

type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutProcessed PayoutStatus = "processed"
	PayoutCancelled PayoutStatus = "cancelled"
)

type Payout struct {
	ID          types.ID
	UserID      types.ID
	Amount      types.Money
	Status      PayoutStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}
