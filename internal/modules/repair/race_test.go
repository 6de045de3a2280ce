// README: Concurrency tests for repair state transitions (run with -race).
package repair

import (
	"context"
	"errors"
	"sync"
	"testing"

	"pedalfix/internal/modules/user"
)

func TestConcurrentAcceptSameRepair(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "rider1", user.RoleRider, 1000, nil)
	env.seedFixer(t, "fixer1", "flat_tire", 2000)
	env.matcher.push(&FixerCandidate{ID: "fixer1", HourlyRateCents: 2000})

	r := mustCreate(t, env.svc, "rider1", "flat_tire")

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	start := make(chan struct{})

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := env.svc.Accept(ctx, AcceptCommand{RepairID: r.ID, FixerID: "fixer1"})
			errs <- err
		}()
	}

	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, ErrConflict) && !errors.Is(err, ErrInvalidState) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 success, got %d", success)
	}

	got := mustGet(t, env.svc, r.ID)
	if got.Status != StatusAccepted {
		t.Fatalf("unexpected final status: %s", got.Status)
	}
}

func TestConcurrentAcceptVsCancel(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "rider1", user.RoleRider, 1000, nil)
	env.seedFixer(t, "fixer1", "flat_tire", 2000)
	env.matcher.push(&FixerCandidate{ID: "fixer1", HourlyRateCents: 2000})

	r := mustCreate(t, env.svc, "rider1", "flat_tire")

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	start := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		_, err := env.svc.Accept(ctx, AcceptCommand{RepairID: r.ID, FixerID: "fixer1"})
		errs <- err
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		_, err := env.svc.Cancel(ctx, CancelCommand{RepairID: r.ID, ActorID: "rider1", ActorRole: user.RoleRider, Reason: "user_cancel"})
		errs <- err
	}()

	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, ErrConflict) && !errors.Is(err, ErrInvalidState) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success < 1 || success > 2 {
		t.Fatalf("expected 1 or 2 successes, got %d", success)
	}

	got := mustGet(t, env.svc, r.ID)
	if success == 2 && got.Status != StatusCancelled {
		t.Fatalf("expected cancelled after accept+cancel, got %s", got.Status)
	}
	if success == 1 && got.Status != StatusAccepted && got.Status != StatusCancelled {
		t.Fatalf("unexpected final status: %s", got.Status)
	}
}

func TestConcurrentBookSingleCharge(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "rider1", user.RoleRider, 10000, nil)
	env.seedFixer(t, "fixer1", "flat_tire", 2000)
	env.matcher.push(&FixerCandidate{ID: "fixer1", HourlyRateCents: 2000})

	r := mustCreate(t, env.svc, "rider1", "flat_tire")

	const attempts = 6
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	start := make(chan struct{})

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := env.svc.Book(ctx, BookCommand{RepairID: r.ID, RiderID: "rider1"})
			errs <- err
		}()
	}

	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, ErrConflict) && !errors.Is(err, ErrInvalidState) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 successful booking, got %d", success)
	}

	// the fee moved exactly once
	env.assertBalance(t, "rider1", 10000-testPlatformFee)
	env.assertBalance(t, "fixer1", testMatchReward)
	got := mustGet(t, env.svc, r.ID)
	if got.Status != StatusBooked || !got.IsPaid {
		t.Fatalf("expected booked+paid, got %s paid=%v", got.Status, got.IsPaid)
	}
}
