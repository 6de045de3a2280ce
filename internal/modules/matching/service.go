// README: Matching engine: deterministic filter-and-pick over the fixer directory,
// plus the background rematch sweep for stranded requests.
package matching

import (
	"context"
	"log"
	"time"

	"pedalfix/internal/config"
	"pedalfix/internal/modules/repair"
	"pedalfix/internal/modules/user"
	"pedalfix/internal/types"
)

// Directory is the read-only fixer lookup; implemented by the user store.
type Directory interface {
	FindAvailableFixers(ctx context.Context, issueType string, exclude []types.ID) ([]user.FixerSummary, error)
}

// RepairQueue is what the sweep needs from the repair service.
type RepairQueue interface {
	ListUnassigned(ctx context.Context, limit int) ([]types.ID, error)
	TryMatch(ctx context.Context, id types.ID) (bool, error)
}

type Service struct {
	dir Directory
	cfg config.MatchingConfig
}

func NewService(dir Directory, cfg config.MatchingConfig) *Service {
	return &Service{dir: dir, cfg: cfg}
}

// SelectFixer picks the first qualifying fixer in directory order. A nil
// candidate means nobody qualifies; that is an outcome, not an error. The
// caller applies the assignment under its own transaction.
func (s *Service) SelectFixer(ctx context.Context, issueType string, exclude []types.ID) (*repair.FixerCandidate, error) {
	fixers, err := s.dir.FindAvailableFixers(ctx, issueType, exclude)
	if err != nil {
		return nil, err
	}
	if len(fixers) == 0 {
		return nil, nil
	}
	first := fixers[0]
	return &repair.FixerCandidate{ID: first.ID, HourlyRateCents: first.HourlyRateCents}, nil
}

// RunRematchSweep periodically retries matching for pending and fixerless
// declined requests, so a decline with no immediate replacement does not
// strand the request forever.
func (s *Service) RunRematchSweep(ctx context.Context, repairs RepairQueue) {
	tick := time.Duration(s.cfg.SweepTickSeconds) * time.Second
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx, repairs)
		}
	}
}

func (s *Service) sweepOnce(ctx context.Context, repairs RepairQueue) {
	ids, err := repairs.ListUnassigned(ctx, s.cfg.SweepBatchSize)
	if err != nil {
		log.Printf("[SWEEP] list unassigned: %v", err)
		return
	}
	for _, id := range ids {
		matched, err := repairs.TryMatch(ctx, id)
		if err != nil {
			log.Printf("[SWEEP] rematch %s: %v", id, err)
			continue
		}
		if matched {
			log.Printf("[SWEEP] rematched %s", id)
		}
	}
}
