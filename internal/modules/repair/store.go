// README: Repair store backed by PostgreSQL; every transition is a compare-and-swap.
package repair

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pedalfix/internal/infra"
	"pedalfix/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// BeginTx opens a transaction for transitions that must update wallets and
// status together.
func (s *Store) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return s.db.Begin(ctx)
}

func (s *Store) Create(ctx context.Context, r *Repair) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO repair_requests (
			id, rider_id, fixer_id, status, status_version,
			issue_type, description, postal_code, image_url,
			repair_cost_cents, platform_fee_cents, is_paid, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13
		)`,
		string(r.ID),
		string(r.RiderID),
		toStringPtr(r.FixerID),
		string(r.Status),
		r.StatusVersion,
		r.IssueType,
		r.Description,
		r.PostalCode,
		r.ImageURL,
		toCentsPtr(r.RepairCost),
		r.PlatformFee.Amount,
		r.IsPaid,
		r.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Repair, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, rider_id, fixer_id, status, status_version,
		       issue_type, description, postal_code, image_url,
		       repair_cost_cents, platform_fee_cents, is_paid,
		       decline_reason, cancel_reason,
		       created_at, assigned_at, accepted_at, declined_at, booked_at, completed_at, cancelled_at
		FROM repair_requests
		WHERE id = $1`, string(id),
	)

	var r Repair
	var fixerID, description, imageURL, declineReason, cancelReason sql.NullString
	var repairCost sql.NullInt64
	var assignedAt, acceptedAt, declinedAt, bookedAt, completedAt, cancelledAt sql.NullTime

	err := row.Scan(
		&r.ID, &r.RiderID, &fixerID, &r.Status, &r.StatusVersion,
		&r.IssueType, &description, &r.PostalCode, &imageURL,
		&repairCost, &r.PlatformFee.Amount, &r.IsPaid,
		&declineReason, &cancelReason,
		&r.CreatedAt, &assignedAt, &acceptedAt, &declinedAt, &bookedAt, &completedAt, &cancelledAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	r.PlatformFee.Currency = types.DefaultCurrency
	if fixerID.Valid {
		f := types.ID(fixerID.String)
		r.FixerID = &f
	}
	if repairCost.Valid {
		c := types.Cents(repairCost.Int64)
		r.RepairCost = &c
	}
	r.Description = toStrPtr(description)
	r.ImageURL = toStrPtr(imageURL)
	r.DeclineReason = toStrPtr(declineReason)
	r.CancelReason = toStrPtr(cancelReason)
	r.AssignedAt = toTimePtr(assignedAt)
	r.AcceptedAt = toTimePtr(acceptedAt)
	r.DeclinedAt = toTimePtr(declinedAt)
	r.BookedAt = toTimePtr(bookedAt)
	r.CompletedAt = toTimePtr(completedAt)
	r.CancelledAt = toTimePtr(cancelledAt)
	return &r, nil
}

// AssignFixer moves a pending or declined request to matched, setting the
// assignment and first-pass cost estimate, and clearing any decline leftovers.
func (s *Store) AssignFixer(ctx context.Context, id types.ID, from Status, version int, fixerID types.ID, costCents int64) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE repair_requests
		SET status = 'matched',
		    status_version = status_version + 1,
		    fixer_id = $1,
		    repair_cost_cents = $2,
		    assigned_at = NOW(),
		    declined_at = NULL,
		    decline_reason = NULL
		WHERE id = $3 AND status = $4 AND status_version = $5`,
		string(fixerID), costCents, string(id), string(from), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) MarkAccepted(ctx context.Context, id types.ID, version int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE repair_requests
		SET status = 'accepted',
		    status_version = status_version + 1,
		    accepted_at = NOW()
		WHERE id = $1 AND status = 'matched' AND status_version = $2`,
		string(id), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkDeclined records the decline and clears the assignment in one write so
// status and fixer never change independently.
func (s *Store) MarkDeclined(ctx context.Context, id types.ID, version int, reason string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE repair_requests
		SET status = 'declined',
		    status_version = status_version + 1,
		    fixer_id = NULL,
		    declined_at = NOW(),
		    decline_reason = $1
		WHERE id = $2 AND status = 'matched' AND status_version = $3`,
		reason, string(id), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) MarkBooked(ctx context.Context, q infra.Querier, id types.ID, from Status, version int) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE repair_requests
		SET status = 'booked',
		    status_version = status_version + 1,
		    is_paid = TRUE,
		    booked_at = NOW()
		WHERE id = $1 AND status = $2 AND status_version = $3`,
		string(id), string(from), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) MarkCompleted(ctx context.Context, id types.ID, version int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE repair_requests
		SET status = 'completed',
		    status_version = status_version + 1,
		    completed_at = NOW()
		WHERE id = $1 AND status = 'booked' AND status_version = $2`,
		string(id), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) MarkCancelled(ctx context.Context, q infra.Querier, id types.ID, from Status, version int, reason string) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE repair_requests
		SET status = 'cancelled',
		    status_version = status_version + 1,
		    cancelled_at = NOW(),
		    cancel_reason = $1
		WHERE id = $2 AND status = $3 AND status_version = $4`,
		reason, string(id), string(from), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO repair_state_events (
			repair_id, from_status, to_status, actor_type, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.RepairID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		toStringPtr(e.ActorID),
		e.CreatedAt,
	)
	return err
}

// ListUnassigned returns requests the rematch sweep should retry: pending
// ones and declined ones left without a fixer.
func (s *Store) ListUnassigned(ctx context.Context, limit int) ([]types.ID, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id
		FROM repair_requests
		WHERE status = 'pending'
		   OR (status = 'declined' AND fixer_id IS NULL)
		ORDER BY created_at
		LIMIT $1`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []types.ID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, types.ID(id))
	}
	return ids, rows.Err()
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func toCentsPtr(v *types.Money) *int64 {
	if v == nil {
		return nil
	}
	n := v.Amount
	return &n
}

func toStrPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func toTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
