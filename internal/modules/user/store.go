// README: User store backed by PostgreSQL; doubles as the fixer directory.
package user

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pedalfix/internal/types"
)

var ErrNotFound = errors.New("user not found")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, u *User) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO users (
			id, role, is_available, skills, hourly_rate_cents, wallet_balance_cents, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(u.ID),
		string(u.Role),
		u.IsAvailable,
		u.Skills,
		u.HourlyRateCents,
		u.WalletBalance.Amount,
		u.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*User, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, role, is_available, skills, hourly_rate_cents, wallet_balance_cents, created_at
		FROM users
		WHERE id = $1`, string(id),
	)

	var u User
	var balance int64
	err := row.Scan(&u.ID, &u.Role, &u.IsAvailable, &u.Skills, &u.HourlyRateCents, &balance, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.WalletBalance = types.Cents(balance)
	return &u, nil
}

// FindAvailableFixers returns available fixers holding the given skill, in
// directory order (oldest registration first), excluding the given ids.
func (s *Store) FindAvailableFixers(ctx context.Context, issueType string, exclude []types.ID) ([]FixerSummary, error) {
	excluded := make([]string, len(exclude))
	for i, id := range exclude {
		excluded[i] = string(id)
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, hourly_rate_cents
		FROM users
		WHERE role = 'fixer'
		  AND is_available
		  AND $1 = ANY(skills)
		  AND NOT (id = ANY($2))
		ORDER BY created_at`,
		issueType, excluded,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FixerSummary
	for rows.Next() {
		var f FixerSummary
		if err := rows.Scan(&f.ID, &f.HourlyRateCents); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) SetAvailability(ctx context.Context, id types.ID, available bool) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE users SET is_available = $2 WHERE id = $1 AND role = 'fixer'`,
		string(id), available,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
