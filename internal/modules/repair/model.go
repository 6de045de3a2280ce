// README: Repair request aggregate and status definitions.
package repair

import (
	"time"

	"pedalfix/internal/types"
)

type Status string

const (
	StatusNone      Status = "none"
	StatusPending   Status = "pending"
	StatusMatched   Status = "matched"
	StatusAccepted  Status = "accepted"
	StatusDeclined  Status = "declined"
	StatusBooked    Status = "booked"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Repair struct {
	ID            types.ID
	RiderID       types.ID
	FixerID       *types.ID
	Status        Status
	StatusVersion int
	IssueType     string
	Description   *string
	PostalCode    string
	ImageURL      *string
	RepairCost    *types.Money
	PlatformFee   types.Money
	IsPaid        bool
	DeclineReason *string
	CancelReason  *string
	CreatedAt     time.Time
	AssignedAt    *time.Time
	AcceptedAt    *time.Time
	DeclinedAt    *time.Time
	BookedAt      *time.Time
	CompletedAt   *time.Time
	CancelledAt   *time.Time
}

type Event struct {
	ID         int64
	RepairID   types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

// AllowedTransitions represents the repair lifecycle (diagram) as code.
// declined → matched is the rematch edge; declined → cancelled lets a stuck
// request be closed out manually.
var AllowedTransitions = map[Status][]Status{
	StatusPending:  {StatusMatched, StatusCancelled},
	StatusMatched:  {StatusAccepted, StatusDeclined, StatusBooked, StatusCancelled},
	StatusAccepted: {StatusBooked, StatusCancelled},
	StatusDeclined: {StatusMatched, StatusCancelled},
	StatusBooked:   {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// HasFixer reports whether the request currently carries an active assignment.
func (r *Repair) HasFixer() bool {
	return r.FixerID != nil && *r.FixerID != ""
}
