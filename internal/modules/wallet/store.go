// README: Wallet store: guarded balance deltas and atomic payout creation.
package wallet

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pedalfix/internal/infra"
	"pedalfix/internal/types"
)

var (
	ErrNotFound          = errors.New("wallet holder not found")
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
	ErrEmptyBalance      = errors.New("nothing to pay out")
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Adjust applies a single balance delta. The non-negative invariant is
// enforced here, in the UPDATE guard, so no caller ordering can drive a
// balance below zero. q may be the pool or a caller-owned transaction.
func (s *Store) Adjust(ctx context.Context, q infra.Querier, userID types.ID, deltaCents int64) (int64, error) {
	row := q.QueryRow(ctx, `
		UPDATE users
		SET wallet_balance_cents = wallet_balance_cents + $2
		WHERE id = $1 AND wallet_balance_cents + $2 >= 0
		RETURNING wallet_balance_cents`,
		string(userID), deltaCents,
	)
	var balance int64
	err := row.Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		exists, exErr := s.exists(ctx, q, userID)
		if exErr != nil {
			return 0, exErr
		}
		if !exists {
			return 0, ErrNotFound
		}
		return 0, ErrInsufficientFunds
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *Store) Balance(ctx context.Context, userID types.ID) (int64, error) {
	row := s.db.QueryRow(ctx, `
		SELECT wallet_balance_cents FROM users WHERE id = $1`, string(userID),
	)
	var balance int64
	err := row.Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// CreatePayout zeroes the user's balance and records a pending payout for the
// drained amount, atomically. The row lock serializes concurrent payout
// requests for the same user.
func (s *Store) CreatePayout(ctx context.Context, p *Payout) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT wallet_balance_cents FROM users WHERE id = $1 FOR UPDATE`,
		string(p.UserID),
	)
	var balance int64
	if err := row.Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if balance <= 0 {
		return ErrEmptyBalance
	}

	if _, err := tx.Exec(ctx, `
		UPDATE users SET wallet_balance_cents = 0 WHERE id = $1`,
		string(p.UserID),
	); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO payouts (id, user_id, amount_cents, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		string(p.ID), string(p.UserID), balance, string(p.Status), p.CreatedAt,
	); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	p.Amount = types.Cents(balance)
	return nil
}

func (s *Store) GetPayout(ctx context.Context, id types.ID) (*Payout, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, amount_cents, status, created_at, processed_at
		FROM payouts WHERE id = $1`, string(id),
	)
	var p Payout
	var amount int64
	var processedAt sql.NullTime
	err := row.Scan(&p.ID, &p.UserID, &amount, &p.Status, &p.CreatedAt, &processedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Amount = types.Cents(amount)
	if processedAt.Valid {
		t := processedAt.Time
		p.ProcessedAt = &t
	}
	return &p, nil
}

func (s *Store) ListPayouts(ctx context.Context, userID types.ID) ([]Payout, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, amount_cents, status, created_at, processed_at
		FROM payouts WHERE user_id = $1 ORDER BY created_at DESC`,
		string(userID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payout
	for rows.Next() {
		var p Payout
		var amount int64
		var processedAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.UserID, &amount, &p.Status, &p.CreatedAt, &processedAt); err != nil {
			return nil, err
		}
		p.Amount = types.Cents(amount)
		if processedAt.Valid {
			t := processedAt.Time
			p.ProcessedAt = &t
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) exists(ctx context.Context, q infra.Querier, userID types.ID) (bool, error) {
	row := q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, string(userID),
	)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
