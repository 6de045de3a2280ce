// README: Dispatcher adapts the publisher to the repair service's notifier hook.
package notify

import (
	"context"
	"log"
	"time"

	"pedalfix/internal/modules/repair"
)

type transitionPayload struct {
	RepairID  string    `json:"repair_id"`
	RiderID   string    `json:"rider_id"`
	FixerID   *string   `json:"fixer_id,omitempty"`
	From      string    `json:"from_status"`
	To        string    `json:"to_status"`
	ActorType string    `json:"actor_type"`
	At        time.Time `json:"at"`
}

type Dispatcher struct {
	pub      Publisher
	exchange string
}

func NewDispatcher(pub Publisher, exchange string) *Dispatcher {
	return &Dispatcher{pub: pub, exchange: exchange}
}

// NotifyTransition is fire-and-forget: publish failures are logged and never
// surfaced to the transition that triggered them.
func (d *Dispatcher) NotifyTransition(ctx context.Context, e repair.TransitionEvent) {
	payload := transitionPayload{
		RepairID:  string(e.RepairID),
		RiderID:   string(e.RiderID),
		From:      string(e.From),
		To:        string(e.To),
		ActorType: e.ActorType,
		At:        time.Now(),
	}
	if e.FixerID != nil {
		f := string(*e.FixerID)
		payload.FixerID = &f
	}
	routingKey := "repair." + string(e.To)
	if err := d.pub.Publish(ctx, d.exchange, routingKey, payload); err != nil {
		log.Printf("[NOTIFY] publish failed key=%s repair=%s err=%v", routingKey, e.RepairID, err)
	}
}
