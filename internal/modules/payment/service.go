// README: Payment service ties the authority client to the session store.
package payment

import (
	"context"

	"pedalfix/internal/types"
)

type Service struct {
	authority Authority
	sessions  *SessionStore
}

func NewService(authority Authority, sessions *SessionStore) *Service {
	return &Service{authority: authority, sessions: sessions}
}

// Start opens a checkout session for a repair's platform fee and remembers
// the session so the webhook can find its way back.
func (s *Service) Start(ctx context.Context, repairID types.ID, amountCents int64, currency string) (string, string, error) {
	checkout, err := s.authority.CreateCheckout(ctx, amountCents, currency, map[string]string{
		"repair_id": string(repairID),
	})
	if err != nil {
		return "", "", err
	}
	if err := s.sessions.Save(ctx, checkout.SessionRef, repairID); err != nil {
		return "", "", err
	}
	return checkout.SessionRef, checkout.CheckoutURL, nil
}

func (s *Service) Resolve(ctx context.Context, sessionRef string) (types.ID, bool, error) {
	return s.sessions.Lookup(ctx, sessionRef)
}

func (s *Service) Finish(ctx context.Context, sessionRef string) error {
	return s.sessions.Delete(ctx, sessionRef)
}
