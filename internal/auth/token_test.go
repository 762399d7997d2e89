package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/schoolgate/schoolgate/internal/config"
)

func testTokenConfig() config.TokenConfig {
	return config.TokenConfig{
		SigningKey: "0123456789abcdef0123456789abcdef",
		TTL:        time.Hour,
		Issuer:     "schoolgate-test",
	}
}

func TestTokenRoundTrip(t *testing.T) {
	svc, err := NewTokenService(testTokenConfig())
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, sessionID, err := svc.GenerateSessionToken("uid-1", "jane@example.com")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	if sessionID == "" {
		t.Fatal("empty session id")
	}

	claims, err := svc.ValidateSessionToken(token)
	if err != nil {
		t.Fatalf("ValidateSessionToken: %v", err)
	}
	if claims.Subject != "uid-1" {
		t.Errorf("subject = %q, want uid-1", claims.Subject)
	}
	if claims.Email != "jane@example.com" {
		t.Errorf("email = %q", claims.Email)
	}
	if claims.SessionID != sessionID {
		t.Errorf("session id = %q, want %q", claims.SessionID, sessionID)
	}
}

func TestTokenUniqueSessionIDs(t *testing.T) {
	svc, err := NewTokenService(testTokenConfig())
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	_, first, err := svc.GenerateSessionToken("uid-1", "jane@example.com")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	_, second, err := svc.GenerateSessionToken("uid-1", "jane@example.com")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	if first == second {
		t.Error("two logins produced the same session id")
	}
}

func TestTokenRejectsTampering(t *testing.T) {
	svc, err := NewTokenService(testTokenConfig())
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	token, _, err := svc.GenerateSessionToken("uid-1", "jane@example.com")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}

	// Flip a character in the signature segment
	tampered := token[:len(token)-2] + flip(token[len(token)-2:])
	if _, err := svc.ValidateSessionToken(tampered); err == nil {
		t.Error("tampered token validated")
	}

	// A token signed with a different key is refused
	otherCfg := testTokenConfig()
	otherCfg.SigningKey = strings.Repeat("x", 32)
	other, err := NewTokenService(otherCfg)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	foreign, _, err := other.GenerateSessionToken("uid-1", "jane@example.com")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	if _, err := svc.ValidateSessionToken(foreign); err == nil {
		t.Error("token signed with another key validated")
	}
}

func TestTokenRejectsExpired(t *testing.T) {
	cfg := testTokenConfig()
	cfg.TTL = -time.Minute
	svc, err := NewTokenService(cfg)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, _, err := svc.GenerateSessionToken("uid-1", "jane@example.com")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	if _, err := svc.ValidateSessionToken(token); err == nil {
		t.Error("expired token validated")
	}
}

func TestNewTokenServiceKeyLength(t *testing.T) {
	cfg := testTokenConfig()
	cfg.SigningKey = "too-short"
	if _, err := NewTokenService(cfg); err == nil {
		t.Error("expected error for short signing key")
	}
	cfg.SigningKey = ""
	if _, err := NewTokenService(cfg); err == nil {
		t.Error("expected error for empty signing key")
	}
}

func flip(s string) string {
	b := []byte(s)
	if b[0] == 'A' {
		b[0] = 'B'
	} else {
		b[0] = 'A'
	}
	return string(b)
}
