// README: Wallet service: balance reads and payout requests.
package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pedalfix/internal/types"
)

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

func (s *Service) Balance(ctx context.Context, userID types.ID) (types.Money, error) {
	cents, err := s.store.Balance(ctx, userID)
	if err != nil {
		return types.Money{}, err
	}
	return types.Cents(cents), nil
}

// RequestPayout drains the caller's full balance into a pending payout.
func (s *Service) RequestPayout(ctx context.Context, userID types.ID) (*Payout, error) {
	p := &Payout{
		ID:        types.ID(uuid.NewString()),
		UserID:    userID,
		Status:    PayoutPending,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreatePayout(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) ListPayouts(ctx context.Context, userID types.ID) ([]Payout, error) {
	return s.store.ListPayouts(ctx, userID)
}
