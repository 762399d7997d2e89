package csrf

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"

	"github.com/schoolgate/schoolgate/internal/config"
	"github.com/schoolgate/schoolgate/internal/logger"
)

// TokenStore persists one anti-forgery token per session.
// Get returns ("", zero, nil) when no token exists.
type TokenStore interface {
	Get(ctx context.Context, sessionID string) (value string, issuedAt time.Time, err error)
	Put(ctx context.Context, sessionID, value string, issuedAt time.Time, ttl time.Duration) error
	Delete(ctx context.Context, sessionID string) error
}

// Guard issues and validates per-session anti-forgery tokens and checks
// request origins against a configured allow-list.
type Guard struct {
	store TokenStore
	cfg   config.CSRFConfig
	log   *logger.Logger
	now   func() time.Time
}

// NewGuard creates a Guard over the given token store
func NewGuard(store TokenStore, cfg config.CSRFConfig, log *logger.Logger) *Guard {
	return &Guard{
		store: store,
		cfg:   cfg,
		log:   log.WithComponent("csrf"),
		now:   time.Now,
	}
}

// Token returns the session's current token, generating a fresh one first if
// none exists or the stored one is malformed or past its max age.
func (g *Guard) Token(ctx context.Context, sessionID string) (string, error) {
	value, issuedAt, err := g.store.Get(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to read csrf token: %w", err)
	}

	if g.wellFormed(value) && g.now().Sub(issuedAt) <= g.cfg.MaxAge {
		return value, nil
	}
	return g.Refresh(ctx, sessionID)
}

// Stored returns the session's current token without issuing one. Returns
// "" when no valid token exists, which fails validation. Enforcement paths
// use this so a forged request cannot cause a token to be minted.
func (g *Guard) Stored(ctx context.Context, sessionID string) (string, error) {
	value, issuedAt, err := g.store.Get(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to read csrf token: %w", err)
	}
	if !g.wellFormed(value) || g.now().Sub(issuedAt) > g.cfg.MaxAge {
		return "", nil
	}
	return value, nil
}

// Refresh generates a new random token and persists it for the session
func (g *Guard) Refresh(ctx context.Context, sessionID string) (string, error) {
	buf := make([]byte, g.cfg.TokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate csrf token: %w", err)
	}
	token := hex.EncodeToString(buf)

	if err := g.store.Put(ctx, sessionID, token, g.now(), g.cfg.MaxAge); err != nil {
		return "", fmt.Errorf("failed to persist csrf token: %w", err)
	}
	return token, nil
}

// Drop removes the session's token. Called on logout.
func (g *Guard) Drop(ctx context.Context, sessionID string) error {
	return g.store.Delete(ctx, sessionID)
}

// ValidateRequest checks a provided token against the expected one and the
// request origin against the allow-list. The token comparison is
// constant-time so a mismatch position cannot be probed.
func (g *Guard) ValidateRequest(provided, expected, origin string) bool {
	if !g.wellFormed(provided) || !g.wellFormed(expected) {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
		return false
	}
	return g.ValidateOrigin(origin)
}

// ValidateOrigin checks the request origin against the allow-list. An empty
// origin passes: same-origin requests from non-browser clients and some
// older browsers carry neither Origin nor Referer, and the token check has
// already bound the request to the session.
func (g *Guard) ValidateOrigin(origin string) bool {
	if origin == "" {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return false
	}
	normalized := parsed.Scheme + "://" + parsed.Host

	for _, allowed := range g.cfg.AllowedOrigins {
		if normalized == allowed {
			return true
		}
	}
	g.log.Warn().Str("origin", normalized).Msg("request origin not in allow-list")
	return false
}

// wellFormed reports whether value matches the exact token format:
// hex-encoded, fixed length
func (g *Guard) wellFormed(value string) bool {
	if len(value) != g.cfg.TokenLength*2 {
		return false
	}
	_, err := hex.DecodeString(value)
	return err == nil
}
