// README: Wallet store tests (guarded deltas, payout draining).
package wallet

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"pedalfix/internal/types"
)

func TestAdjustAppliesDelta(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	seedUser(t, db, "u1", 500)

	balance, err := store.Adjust(ctx, db, "u1", -200)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if balance != 300 {
		t.Fatalf("expected balance 300, got %d", balance)
	}

	balance, err = store.Adjust(ctx, db, "u1", 700)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if balance != 1000 {
		t.Fatalf("expected balance 1000, got %d", balance)
	}
}

func TestAdjustRejectsOverdraft(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	seedUser(t, db, "u1", 100)

	if _, err := store.Adjust(ctx, db, "u1", -101); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	balance, err := store.Balance(ctx, "u1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 100 {
		t.Fatalf("expected balance untouched at 100, got %d", balance)
	}
}

func TestAdjustUnknownUser(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	if _, err := store.Adjust(context.Background(), db, "ghost", 100); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentAdjustsNeverOverdraw(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	seedUser(t, db, "u1", 500)

	// ten concurrent 100-cent debits against 500; exactly five can land
	const attempts = 10
	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Adjust(ctx, db, "u1", -100)
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, ErrInsufficientFunds) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 5 {
		t.Fatalf("expected exactly 5 successful debits, got %d", success)
	}

	balance, err := store.Balance(ctx, "u1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected balance 0, got %d", balance)
	}
}

func TestCreatePayoutDrainsBalance(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	seedUser(t, db, "u1", 750)

	p := &Payout{ID: "po1", UserID: "u1", Status: PayoutPending, CreatedAt: time.Now()}
	if err := store.CreatePayout(ctx, p); err != nil {
		t.Fatalf("create payout: %v", err)
	}
	if p.Amount.Amount != 750 {
		t.Fatalf("expected payout of 750, got %d", p.Amount.Amount)
	}

	balance, err := store.Balance(ctx, "u1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected drained balance, got %d", balance)
	}

	got, err := store.GetPayout(ctx, "po1")
	if err != nil {
		t.Fatalf("get payout: %v", err)
	}
	if got.Status != PayoutPending || got.Amount.Amount != 750 {
		t.Fatalf("unexpected payout: %+v", got)
	}
}

func TestCreatePayoutRejectsEmptyBalance(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	seedUser(t, db, "u1", 0)

	p := &Payout{ID: "po1", UserID: "u1", Status: PayoutPending, CreatedAt: time.Now()}
	if err := store.CreatePayout(ctx, p); !errors.Is(err, ErrEmptyBalance) {
		t.Fatalf("expected ErrEmptyBalance, got %v", err)
	}
}

func TestConcurrentPayoutsDrainOnce(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	seedUser(t, db, "u1", 900)

	const attempts = 4
	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		id := types.ID(fmt.Sprintf("po%d", i))
		wg.Add(1)
		go func(payoutID types.ID) {
			defer wg.Done()
			p := &Payout{ID: payoutID, UserID: "u1", Status: PayoutPending, CreatedAt: time.Now()}
			errs <- store.CreatePayout(ctx, p)
		}(id)
	}

	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, ErrEmptyBalance) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 payout, got %d", success)
	}

	payouts, err := store.ListPayouts(ctx, "u1")
	if err != nil {
		t.Fatalf("list payouts: %v", err)
	}
	if len(payouts) != 1 || payouts[0].Amount.Amount != 900 {
		t.Fatalf("expected one 900-cent payout, got %+v", payouts)
	}
}

func seedUser(t *testing.T, db *pgxpool.Pool, id string, balanceCents int64) {
	t.Helper()
	_, err := db.Exec(context.Background(), `
		INSERT INTO users (id, role, is_available, skills, hourly_rate_cents, wallet_balance_cents, created_at)
		VALUES ($1, 'fixer', TRUE, '{}', 0, $2, NOW())`,
		id, balanceCents,
	)
	if err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
}

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("PEDALFIX_TEST_DSN")
	if dsn == "" {
		t.Skip("PEDALFIX_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyMigration(ctx, db); err != nil {
		t.Fatalf("apply migration: %v", err)
	}

	if _, err := db.Exec(ctx, "TRUNCATE TABLE repair_state_events, payouts, repair_requests, users"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return db
}

func applyMigration(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	path := filepath.Join(root, "migrations", "0001_init.sql")
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	cleaned := stripSQLComments(string(content))
	for _, stmt := range splitSQL(cleaned) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
