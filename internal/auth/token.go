package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/schoolgate/schoolgate/internal/config"
)

// SessionClaims are the claims carried by a dashboard session token
type SessionClaims struct {
	Email     string `json:"email"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// TokenService signs and validates dashboard session tokens. HMAC with a
// single static key from config; the deployment is a single service, so key
// rotation machinery would buy nothing here.
type TokenService struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
}

// NewTokenService creates a TokenService from configuration
func NewTokenService(cfg config.TokenConfig) (*TokenService, error) {
	if cfg.SigningKey == "" {
		return nil, fmt.Errorf("token signing key is required")
	}
	if len(cfg.SigningKey) < 32 {
		return nil, fmt.Errorf("token signing key must be at least 32 bytes")
	}
	return &TokenService{
		signingKey: []byte(cfg.SigningKey),
		ttl:        cfg.TTL,
		issuer:     cfg.Issuer,
	}, nil
}

// GenerateSessionToken issues a signed token for an authenticated account.
// The embedded session ID keys the inactivity tracker and the CSRF store.
func (s *TokenService) GenerateSessionToken(accountUID, email string) (token, sessionID string, err error) {
	sessionID = uuid.NewString()
	now := time.Now()

	claims := SessionClaims{
		Email:     email,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountUID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, sessionID, nil
}

// ValidateSessionToken parses and verifies a session token
func (s *TokenService) ValidateSessionToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid session token claims")
	}
	return claims, nil
}
