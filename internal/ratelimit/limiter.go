package ratelimit

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/schoolgate/schoolgate/internal/config"
	"github.com/schoolgate/schoolgate/internal/logger"
	"github.com/schoolgate/schoolgate/internal/model"
)

// Lockout reasons reported in Status
const (
	ReasonTooManyAttempts = "too many failed attempts"
	ReasonExtendedLockout = "extended lockout"
)

// Store persists rate limit entries keyed by hashed identifier.
// Get returns (nil, nil) when no entry exists.
type Store interface {
	Get(ctx context.Context, key string) (*model.RateLimitEntry, error)
	Put(ctx context.Context, key string, entry *model.RateLimitEntry, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Status is the result of a rate limit check
type Status struct {
	Limited   bool
	Remaining time.Duration
	Reason    string
}

// Info is a read-only diagnostic view of an identifier's attempt history
type Info struct {
	Count      int
	UntilReset time.Duration
}

// Limiter tracks failed authentication attempts per identifier with a sliding
// window and an escalating lockout tier. Entries live in a Store so limits
// survive process restarts.
//
// There is no lock around the read-then-write in RecordFailedAttempt: two
// concurrent failures for one identifier can under-count. Accepted weakness;
// the limiter is a deterrent, not a security boundary.
type Limiter struct {
	store Store
	cfg   config.RateLimitConfig
	log   *logger.Logger
	now   func() time.Time
}

// New creates a Limiter over the given store
func New(store Store, cfg config.RateLimitConfig, log *logger.Logger) *Limiter {
	return &Limiter{
		store: store,
		cfg:   cfg,
		log:   log.WithComponent("ratelimit"),
		now:   time.Now,
	}
}

// IsRateLimited checks whether the identifier is currently locked out.
// Storage errors fail open: a broken store must never lock out legitimate
// users.
func (l *Limiter) IsRateLimited(ctx context.Context, identifier string) Status {
	if !l.cfg.Enabled {
		return Status{}
	}

	key := hashIdentifier(identifier)
	entry, err := l.store.Get(ctx, key)
	if err != nil {
		l.log.Error().Err(err).Msg("rate limit check failed, failing open")
		return Status{}
	}
	if entry == nil {
		return Status{}
	}

	now := l.now()

	// Extended lockout outlives standard window resets
	if entry.EscalationCount > 0 {
		sinceLast := now.Sub(entry.LastAttempt)
		if sinceLast < l.cfg.EscalationWindow {
			return Status{
				Limited:   true,
				Remaining: l.cfg.EscalationWindow - sinceLast,
				Reason:    ReasonExtendedLockout,
			}
		}
	}

	if entry.WindowExpired(l.cfg.Window, now) {
		// Expired entries are removed on read
		if err := l.store.Delete(ctx, key); err != nil {
			l.log.Error().Err(err).Msg("failed to delete expired rate limit entry")
		}
		return Status{}
	}

	if entry.Count >= l.cfg.MaxAttempts {
		return Status{
			Limited:   true,
			Remaining: l.cfg.Window - now.Sub(entry.LastAttempt),
			Reason:    ReasonTooManyAttempts,
		}
	}

	return Status{}
}

// RecordFailedAttempt registers one failed attempt for the identifier.
// Storage errors are logged and swallowed; recording is never allowed to
// break the caller's flow.
func (l *Limiter) RecordFailedAttempt(ctx context.Context, identifier string) {
	if !l.cfg.Enabled {
		return
	}

	key := hashIdentifier(identifier)
	entry, err := l.store.Get(ctx, key)
	if err != nil {
		l.log.Error().Err(err).Msg("failed to read rate limit entry")
		return
	}

	now := l.now()
	if entry == nil || entry.WindowExpired(l.cfg.Window, now) {
		fresh := &model.RateLimitEntry{
			Count:        1,
			FirstAttempt: now,
			LastAttempt:  now,
		}
		// Escalation history survives window resets
		if entry != nil {
			fresh.EscalationCount = entry.EscalationCount
		}
		entry = fresh
	} else {
		entry.Count++
		entry.LastAttempt = now
		if entry.Count == l.cfg.EscalationThreshold {
			entry.EscalationCount++
		}
	}

	if err := l.store.Put(ctx, key, entry, l.cfg.EscalationWindow); err != nil {
		l.log.Error().Err(err).Msg("failed to persist rate limit entry")
	}
}

// ClearAttempts deletes the identifier's entry. Called after a successful
// authentication.
func (l *Limiter) ClearAttempts(ctx context.Context, identifier string) error {
	if !l.cfg.Enabled {
		return nil
	}
	if err := l.store.Delete(ctx, hashIdentifier(identifier)); err != nil {
		return fmt.Errorf("failed to clear rate limit entry: %w", err)
	}
	return nil
}

// AttemptInfo returns a read-only diagnostic for the identifier
func (l *Limiter) AttemptInfo(ctx context.Context, identifier string) (Info, error) {
	entry, err := l.store.Get(ctx, hashIdentifier(identifier))
	if err != nil {
		return Info{}, fmt.Errorf("failed to read rate limit entry: %w", err)
	}
	if entry == nil {
		return Info{}, nil
	}
	untilReset := l.cfg.Window - l.now().Sub(entry.FirstAttempt)
	if untilReset < 0 {
		untilReset = 0
	}
	return Info{Count: entry.Count, UntilReset: untilReset}, nil
}

// hashIdentifier maps an arbitrary identifier to a short fixed-charset key.
// Non-cryptographic on purpose: this bounds key length for storage, it does
// not hide the identifier.
func hashIdentifier(identifier string) string {
	h := fnv.New64a()
	h.Write([]byte(identifier))
	return fmt.Sprintf("%x", h.Sum64())
}
