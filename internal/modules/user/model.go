// README: User aggregate: riders, fixers, and admins with wallet balances.
package user

import (
	"time"

	"pedalfix/internal/types"
)

type Role string

const (
	RoleRider Role = "rider"
	RoleFixer Role = "fixer"
	RoleAdmin Role = "admin"
)

type User struct {
	ID              types.ID
	Role            Role
	IsAvailable     bool
	Skills          []string
	HourlyRateCents int64
	WalletBalance   types.Money
	CreatedAt       time.Time
}

// FixerSummary is the directory view consumed by the matching engine.
type FixerSummary struct {
	ID              types.ID
	HourlyRateCents int64
}

func (u *User) HasSkill(issueType string) bool {
	for _, s := range u.Skills {
		if s == issueType {
			return true
		}
	}
	return false
}
