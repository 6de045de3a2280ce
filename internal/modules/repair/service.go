// README: Repair service implements lifecycle transitions, matching hooks, and wallet coupling.
package repair

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"pedalfix/internal/config"
	"pedalfix/internal/infra"
	"pedalfix/internal/modules/user"
	"pedalfix/internal/modules/wallet"
	"pedalfix/internal/types"
)

var (
	ErrBadRequest   = errors.New("bad request")
	ErrForbidden    = errors.New("actor not permitted")
	ErrNotFound     = errors.New("repair request not found")
	ErrInvalidState = errors.New("invalid state transition")
	ErrConflict     = errors.New("repair state conflict")
	ErrDependency   = errors.New("dependency failure")
)

// FixerCandidate is the matching engine's answer: who to assign and at what
// first-pass cost estimate.
type FixerCandidate struct {
	ID              types.ID
	HourlyRateCents int64
}

// Matcher selects at most one fixer for an issue type. A nil candidate with a
// nil error means nobody qualifies, which is a valid outcome.
type Matcher interface {
	SelectFixer(ctx context.Context, issueType string, exclude []types.ID) (*FixerCandidate, error)
}

// Ledger applies a single guarded balance delta, composable into a
// caller-owned transaction via the querier.
type Ledger interface {
	Adjust(ctx context.Context, q infra.Querier, userID types.ID, deltaCents int64) (int64, error)
}

// PaymentGateway covers the deferred checkout path against the external
// payment authority.
type PaymentGateway interface {
	Start(ctx context.Context, repairID types.ID, amountCents int64, currency string) (sessionRef, checkoutURL string, err error)
	Resolve(ctx context.Context, sessionRef string) (types.ID, bool, error)
	Finish(ctx context.Context, sessionRef string) error
}

type TransitionEvent struct {
	RepairID  types.ID
	RiderID   types.ID
	FixerID   *types.ID
	From      Status
	To        Status
	ActorType string
}

// Notifier is fire-and-forget; implementations must not block the transition.
type Notifier interface {
	NotifyTransition(ctx context.Context, e TransitionEvent)
}

type Service struct {
	store    *Store
	matcher  Matcher
	ledger   Ledger
	payments PaymentGateway
	notifier Notifier
	billing  config.BillingConfig
}

func NewService(store *Store, matcher Matcher, ledger Ledger, payments PaymentGateway, notifier Notifier, billing config.BillingConfig) *Service {
	return &Service{
		store:    store,
		matcher:  matcher,
		ledger:   ledger,
		payments: payments,
		notifier: notifier,
		billing:  billing,
	}
}

type CreateCommand struct {
	RiderID     types.ID
	IssueType   string
	PostalCode  string
	Description string
	ImageURL    string
}

type AcceptCommand struct {
	RepairID types.ID
	FixerID  types.ID
}

type DeclineCommand struct {
	RepairID types.ID
	FixerID  types.ID
	Reason   string
}

type BookCommand struct {
	RepairID types.ID
	RiderID  types.ID
}

type CompleteCommand struct {
	RepairID  types.ID
	ActorID   types.ID
	ActorRole user.Role
}

type CancelCommand struct {
	RepairID  types.ID
	ActorID   types.ID
	ActorRole user.Role
	Reason    string
}

// PaymentOutcome reports how a booking attempt resolved: either the request
// is booked (wallet path) or a checkout session was opened and booking is
// deferred until the authority confirms.
type PaymentOutcome struct {
	Booked      bool
	SessionRef  string
	CheckoutURL string
	Repair      *Repair
}

// Create validates the submission, persists it as pending, then immediately
// attempts a first match. A matching failure never fails the creation.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Repair, error) {
	if cmd.RiderID == "" || cmd.IssueType == "" || cmd.PostalCode == "" {
		return nil, ErrBadRequest
	}

	r := &Repair{
		ID:            types.ID(uuid.NewString()),
		RiderID:       cmd.RiderID,
		Status:        StatusPending,
		StatusVersion: 0,
		IssueType:     cmd.IssueType,
		PostalCode:    cmd.PostalCode,
		PlatformFee:   types.Cents(s.billing.PlatformFeeCents),
		CreatedAt:     time.Now(),
	}
	if cmd.Description != "" {
		r.Description = &cmd.Description
	}
	if cmd.ImageURL != "" {
		r.ImageURL = &cmd.ImageURL
	}

	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}
	s.recordEvent(ctx, r.ID, StatusNone, StatusPending, "rider", &cmd.RiderID)

	matched, err := s.tryAssign(ctx, r, nil, "system")
	if err != nil {
		log.Printf("[REPAIR] initial match failed for %s: %v", r.ID, err)
		return r, nil
	}
	if matched != nil {
		return matched, nil
	}
	return r, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Repair, error) {
	return s.store.Get(ctx, id)
}

// Accept is legal only for the assigned fixer on a matched request.
func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) (*Repair, error) {
	r, err := s.store.Get(ctx, cmd.RepairID)
	if err != nil {
		return nil, err
	}
	if !r.HasFixer() || *r.FixerID != cmd.FixerID {
		return nil, ErrForbidden
	}
	if !CanTransition(r.Status, StatusAccepted) {
		return nil, ErrInvalidState
	}
	ok, err := s.store.MarkAccepted(ctx, r.ID, r.StatusVersion)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	s.recordEvent(ctx, r.ID, r.Status, StatusAccepted, "fixer", &cmd.FixerID)
	s.notify(ctx, r, r.Status, StatusAccepted, "fixer")
	return s.store.Get(ctx, r.ID)
}

// Decline clears the assignment and immediately retries matching with the
// declining fixer excluded. If nobody else qualifies the request stays
// declined and the background sweep picks it up later.
func (s *Service) Decline(ctx context.Context, cmd DeclineCommand) (*Repair, error) {
	r, err := s.store.Get(ctx, cmd.RepairID)
	if err != nil {
		return nil, err
	}
	if !r.HasFixer() || *r.FixerID != cmd.FixerID {
		return nil, ErrForbidden
	}
	if !CanTransition(r.Status, StatusDeclined) {
		return nil, ErrInvalidState
	}
	ok, err := s.store.MarkDeclined(ctx, r.ID, r.StatusVersion, cmd.Reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	s.recordEvent(ctx, r.ID, r.Status, StatusDeclined, "fixer", &cmd.FixerID)
	s.notify(ctx, r, r.Status, StatusDeclined, "fixer")

	declined, err := s.store.Get(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	rematched, err := s.tryAssign(ctx, declined, []types.ID{cmd.FixerID}, "system")
	if err != nil {
		log.Printf("[REPAIR] rematch failed for %s: %v", r.ID, err)
		return declined, nil
	}
	if rematched != nil {
		return rematched, nil
	}
	return declined, nil
}

// Book charges the platform fee. With sufficient wallet balance the fee
// debit, the fixer's match reward, and the status change commit as one
// transaction; otherwise a checkout session is opened and booking waits for
// the authority's confirmation.
func (s *Service) Book(ctx context.Context, cmd BookCommand) (*PaymentOutcome, error) {
	r, err := s.store.Get(ctx, cmd.RepairID)
	if err != nil {
		return nil, err
	}
	if r.RiderID != cmd.RiderID {
		return nil, ErrForbidden
	}
	if r.IsPaid || !CanTransition(r.Status, StatusBooked) {
		return nil, ErrInvalidState
	}
	if !r.HasFixer() {
		return nil, ErrInvalidState
	}

	booked, err := s.bookFromWallet(ctx, r)
	if err == nil {
		return &PaymentOutcome{Booked: true, Repair: booked}, nil
	}
	if !errors.Is(err, wallet.ErrInsufficientFunds) {
		return nil, err
	}

	ref, url, err := s.payments.Start(ctx, r.ID, r.PlatformFee.Amount, r.PlatformFee.Currency)
	if err != nil {
		return nil, fmt.Errorf("%w: create checkout: %v", ErrDependency, err)
	}
	return &PaymentOutcome{SessionRef: ref, CheckoutURL: url, Repair: r}, nil
}

func (s *Service) bookFromWallet(ctx context.Context, r *Repair) (*Repair, error) {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", ErrDependency, err)
	}
	defer tx.Rollback(ctx)

	if _, err := s.ledger.Adjust(ctx, tx, r.RiderID, -r.PlatformFee.Amount); err != nil {
		if errors.Is(err, wallet.ErrInsufficientFunds) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: debit rider: %v", ErrDependency, err)
	}
	if _, err := s.ledger.Adjust(ctx, tx, *r.FixerID, s.billing.MatchRewardCents); err != nil {
		return nil, fmt.Errorf("%w: credit fixer: %v", ErrDependency, err)
	}
	ok, err := s.store.MarkBooked(ctx, tx, r.ID, r.Status, r.StatusVersion)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", ErrDependency, err)
	}

	s.recordEvent(ctx, r.ID, r.Status, StatusBooked, "rider", &r.RiderID)
	s.notify(ctx, r, r.Status, StatusBooked, "rider")
	return s.store.Get(ctx, r.ID)
}

// ConfirmPayment is the authority's success callback. It is idempotent: a
// session confirmed twice, or confirmed after the request already moved on,
// does not double-credit or double-book.
func (s *Service) ConfirmPayment(ctx context.Context, sessionRef string) (*Repair, error) {
	repairID, found, err := s.payments.Resolve(ctx, sessionRef)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve session: %v", ErrDependency, err)
	}
	if !found {
		return nil, ErrNotFound
	}
	r, err := s.store.Get(ctx, repairID)
	if err != nil {
		return nil, err
	}
	if r.IsPaid {
		s.finishSession(ctx, sessionRef)
		return r, nil
	}
	if !CanTransition(r.Status, StatusBooked) || !r.HasFixer() {
		s.finishSession(ctx, sessionRef)
		return nil, ErrInvalidState
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", ErrDependency, err)
	}
	defer tx.Rollback(ctx)

	// Rider paid the authority off-platform; only the fixer's reward touches
	// the ledger here.
	if _, err := s.ledger.Adjust(ctx, tx, *r.FixerID, s.billing.MatchRewardCents); err != nil {
		return nil, fmt.Errorf("%w: credit fixer: %v", ErrDependency, err)
	}
	ok, err := s.store.MarkBooked(ctx, tx, r.ID, r.Status, r.StatusVersion)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", ErrDependency, err)
	}

	s.finishSession(ctx, sessionRef)
	s.recordEvent(ctx, r.ID, r.Status, StatusBooked, "system", nil)
	s.notify(ctx, r, r.Status, StatusBooked, "system")
	return s.store.Get(ctx, r.ID)
}

// FailPayment tears down the session and leaves the request where it was.
func (s *Service) FailPayment(ctx context.Context, sessionRef string) error {
	_, found, err := s.payments.Resolve(ctx, sessionRef)
	if err != nil {
		return fmt.Errorf("%w: resolve session: %v", ErrDependency, err)
	}
	if !found {
		return ErrNotFound
	}
	s.finishSession(ctx, sessionRef)
	log.Printf("[REPAIR] payment failed for session %s; request left in prior state", sessionRef)
	return nil
}

// Complete is legal from booked, by the assigned fixer or an admin.
func (s *Service) Complete(ctx context.Context, cmd CompleteCommand) (*Repair, error) {
	r, err := s.store.Get(ctx, cmd.RepairID)
	if err != nil {
		return nil, err
	}
	assigned := r.HasFixer() && *r.FixerID == cmd.ActorID
	if !assigned && cmd.ActorRole != user.RoleAdmin {
		return nil, ErrForbidden
	}
	if !CanTransition(r.Status, StatusCompleted) {
		return nil, ErrInvalidState
	}
	ok, err := s.store.MarkCompleted(ctx, r.ID, r.StatusVersion)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	s.recordEvent(ctx, r.ID, r.Status, StatusCompleted, actorType(cmd.ActorRole), &cmd.ActorID)
	s.notify(ctx, r, r.Status, StatusCompleted, actorType(cmd.ActorRole))
	return s.store.Get(ctx, r.ID)
}

// Cancel is legal for the rider, the assigned fixer, or an admin. If the
// request was booked and paid, the rider's platform fee is refunded and the
// fixer's match reward clawed back in the same transaction.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Repair, error) {
	r, err := s.store.Get(ctx, cmd.RepairID)
	if err != nil {
		return nil, err
	}
	isRider := r.RiderID == cmd.ActorID
	isAssigned := r.HasFixer() && *r.FixerID == cmd.ActorID
	if !isRider && !isAssigned && cmd.ActorRole != user.RoleAdmin {
		return nil, ErrForbidden
	}
	if !CanTransition(r.Status, StatusCancelled) {
		return nil, ErrInvalidState
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", ErrDependency, err)
	}
	defer tx.Rollback(ctx)

	if r.Status == StatusBooked && r.IsPaid {
		if _, err := s.ledger.Adjust(ctx, tx, r.RiderID, r.PlatformFee.Amount); err != nil {
			return nil, fmt.Errorf("%w: refund rider: %v", ErrDependency, err)
		}
		if r.HasFixer() {
			_, err := s.ledger.Adjust(ctx, tx, *r.FixerID, -s.billing.MatchRewardCents)
			if errors.Is(err, wallet.ErrInsufficientFunds) {
				// Reward already withdrawn; nothing left to claw back.
				log.Printf("[REPAIR] clawback skipped for %s: fixer balance too low", r.ID)
			} else if err != nil {
				return nil, fmt.Errorf("%w: clawback fixer: %v", ErrDependency, err)
			}
		}
	}

	ok, err := s.store.MarkCancelled(ctx, tx, r.ID, r.Status, r.StatusVersion, cmd.Reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", ErrDependency, err)
	}

	s.recordEvent(ctx, r.ID, r.Status, StatusCancelled, actorType(cmd.ActorRole), &cmd.ActorID)
	s.notify(ctx, r, r.Status, StatusCancelled, actorType(cmd.ActorRole))
	return s.store.Get(ctx, r.ID)
}

// TryMatch retries matching for a request with no active assignment. Used by
// the rematch sweep; reports whether an assignment was made.
func (s *Service) TryMatch(ctx context.Context, id types.ID) (bool, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return false, err
	}
	unassigned := r.Status == StatusPending || (r.Status == StatusDeclined && !r.HasFixer())
	if !unassigned {
		return false, nil
	}
	matched, err := s.tryAssign(ctx, r, nil, "system")
	if err != nil {
		return false, err
	}
	return matched != nil, nil
}

// ListUnassigned exposes sweep candidates to the matching module.
func (s *Service) ListUnassigned(ctx context.Context, limit int) ([]types.ID, error) {
	return s.store.ListUnassigned(ctx, limit)
}

// tryAssign asks the matcher for a candidate and applies the assignment under
// the request's CAS. Returns nil when no candidate qualifies.
func (s *Service) tryAssign(ctx context.Context, r *Repair, exclude []types.ID, actor string) (*Repair, error) {
	cand, err := s.matcher.SelectFixer(ctx, r.IssueType, exclude)
	if err != nil {
		return nil, fmt.Errorf("%w: select fixer: %v", ErrDependency, err)
	}
	if cand == nil {
		return nil, nil
	}
	ok, err := s.store.AssignFixer(ctx, r.ID, r.Status, r.StatusVersion, cand.ID, cand.HourlyRateCents)
	if err != nil {
		return nil, err
	}
	if !ok {
		// A concurrent transition won; the request is no longer assignable.
		return nil, ErrConflict
	}
	updated, err := s.store.Get(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	s.recordEvent(ctx, r.ID, r.Status, StatusMatched, actor, nil)
	s.notify(ctx, updated, r.Status, StatusMatched, actor)
	return updated, nil
}

func (s *Service) finishSession(ctx context.Context, ref string) {
	if err := s.payments.Finish(ctx, ref); err != nil {
		log.Printf("[REPAIR] session cleanup failed for %s: %v", ref, err)
	}
}

func (s *Service) recordEvent(ctx context.Context, id types.ID, from, to Status, actorType string, actorID *types.ID) {
	_ = s.store.AppendEvent(ctx, &Event{
		RepairID:   id,
		FromStatus: from,
		ToStatus:   to,
		ActorType:  actorType,
		ActorID:    actorID,
		CreatedAt:  time.Now(),
	})
}

func (s *Service) notify(ctx context.Context, r *Repair, from, to Status, actorType string) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyTransition(ctx, TransitionEvent{
		RepairID:  r.ID,
		RiderID:   r.RiderID,
		FixerID:   r.FixerID,
		From:      from,
		To:        to,
		ActorType: actorType,
	})
}

func actorType(role user.Role) string {
	if role == user.RoleAdmin {
		return "admin"
	}
	if role == user.RoleFixer {
		return "fixer"
	}
	return "rider"
}
