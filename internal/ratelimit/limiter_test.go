package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/schoolgate/schoolgate/internal/config"
	"github.com/schoolgate/schoolgate/internal/logger"
	"github.com/schoolgate/schoolgate/internal/model"
)

func testConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:             true,
		MaxAttempts:         5,
		Window:              15 * time.Minute,
		EscalationThreshold: 10,
		EscalationWindow:    time.Hour,
	}
}

func newTestLimiter(t *testing.T) (*Limiter, *MemoryStore, *time.Time) {
	t.Helper()
	store := NewMemoryStore()
	l := New(store, testConfig(), logger.Nop())
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, store, &now
}

func TestLimiter_NotLimitedWithoutAttempts(t *testing.T) {
	l, _, _ := newTestLimiter(t)

	status := l.IsRateLimited(context.Background(), "email:jane@example.com")
	if status.Limited {
		t.Fatalf("IsRateLimited = %+v, want not limited", status)
	}
}

func TestLimiter_LimitedAfterMaxAttempts(t *testing.T) {
	l, _, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		l.RecordFailedAttempt(ctx, "email:jane@example.com")
		if status := l.IsRateLimited(ctx, "email:jane@example.com"); status.Limited {
			t.Fatalf("limited after %d attempts, want free until %d", i+1, 5)
		}
	}

	l.RecordFailedAttempt(ctx, "email:jane@example.com")
	status := l.IsRateLimited(ctx, "email:jane@example.com")
	if !status.Limited {
		t.Fatal("IsRateLimited = not limited after max attempts")
	}
	if status.Reason != ReasonTooManyAttempts {
		t.Errorf("Reason = %q, want %q", status.Reason, ReasonTooManyAttempts)
	}
	if status.Remaining <= 0 || status.Remaining > 15*time.Minute {
		t.Errorf("Remaining = %v, want within (0, 15m]", status.Remaining)
	}

	// Other identifiers are unaffected
	if status := l.IsRateLimited(ctx, "email:other@example.com"); status.Limited {
		t.Error("unrelated identifier is limited")
	}
}

func TestLimiter_ClearAttempts(t *testing.T) {
	l, store, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		l.RecordFailedAttempt(ctx, "email:jane@example.com")
	}
	if status := l.IsRateLimited(ctx, "email:jane@example.com"); !status.Limited {
		t.Fatal("precondition: expected limited")
	}

	if err := l.ClearAttempts(ctx, "email:jane@example.com"); err != nil {
		t.Fatalf("ClearAttempts: %v", err)
	}
	if status := l.IsRateLimited(ctx, "email:jane@example.com"); status.Limited {
		t.Error("still limited after ClearAttempts")
	}
	if store.Len() != 0 {
		t.Errorf("store has %d entries after clear, want 0", store.Len())
	}
}

func TestLimiter_WindowResetRemovesEntry(t *testing.T) {
	l, store, now := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		l.RecordFailedAttempt(ctx, "email:jane@example.com")
	}

	*now = now.Add(16 * time.Minute)

	if status := l.IsRateLimited(ctx, "email:jane@example.com"); status.Limited {
		t.Error("limited after window elapsed")
	}
	if store.Len() != 0 {
		t.Errorf("store has %d entries after expiry check, want 0 (entry removed on read)", store.Len())
	}
}

func TestLimiter_FreshWindowStartsAtOne(t *testing.T) {
	l, _, now := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		l.RecordFailedAttempt(ctx, "email:jane@example.com")
	}

	*now = now.Add(20 * time.Minute)
	l.RecordFailedAttempt(ctx, "email:jane@example.com")

	info, err := l.AttemptInfo(ctx, "email:jane@example.com")
	if err != nil {
		t.Fatalf("AttemptInfo: %v", err)
	}
	if info.Count != 1 {
		t.Errorf("Count = %d after window reset, want 1", info.Count)
	}
}

func TestLimiter_EscalationSurvivesWindowReset(t *testing.T) {
	l, _, now := newTestLimiter(t)
	ctx := context.Background()

	// Ten attempts inside one window crosses the escalation threshold
	for i := 0; i < 10; i++ {
		l.RecordFailedAttempt(ctx, "email:jane@example.com")
		*now = now.Add(30 * time.Second)
	}

	// Standard window has independently reset, but escalation persists
	*now = now.Add(20 * time.Minute)
	status := l.IsRateLimited(ctx, "email:jane@example.com")
	if !status.Limited {
		t.Fatal("not limited during escalation window")
	}
	if status.Reason != ReasonExtendedLockout {
		t.Errorf("Reason = %q, want %q", status.Reason, ReasonExtendedLockout)
	}

	// Beyond the escalation window the lockout lifts
	*now = now.Add(time.Hour)
	if status := l.IsRateLimited(ctx, "email:jane@example.com"); status.Limited {
		t.Errorf("still limited after escalation window: %+v", status)
	}
}

// errStore fails every operation, standing in for an unreachable backend.
type errStore struct{}

func (errStore) Get(context.Context, string) (*model.RateLimitEntry, error) {
	return nil, errors.New("backend unreachable")
}
func (errStore) Put(context.Context, string, *model.RateLimitEntry, time.Duration) error {
	return errors.New("backend unreachable")
}
func (errStore) Delete(context.Context, string) error {
	return errors.New("backend unreachable")
}

func TestLimiter_FailsOpenOnStoreError(t *testing.T) {
	l := New(errStore{}, testConfig(), logger.Nop())

	status := l.IsRateLimited(context.Background(), "email:jane@example.com")
	if status.Limited {
		t.Fatal("limiter locked out on store error, want fail open")
	}

	// Recording must not panic or surface the error
	l.RecordFailedAttempt(context.Background(), "email:jane@example.com")
}

func TestLimiter_DisabledIsNeverLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	l := New(NewMemoryStore(), cfg, logger.Nop())
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		l.RecordFailedAttempt(ctx, "email:jane@example.com")
	}
	if status := l.IsRateLimited(ctx, "email:jane@example.com"); status.Limited {
		t.Error("disabled limiter reported limited")
	}
}

func TestHashIdentifier(t *testing.T) {
	a := hashIdentifier("email:jane@example.com")
	b := hashIdentifier("email:jane@example.com")
	c := hashIdentifier("email:john@example.com")

	if a != b {
		t.Error("hash is not deterministic")
	}
	if a == c {
		t.Error("distinct identifiers collide")
	}
	if len(a) == 0 || len(a) > 16 {
		t.Errorf("hash length = %d, want short fixed-charset key", len(a))
	}
}
