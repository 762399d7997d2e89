package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Security.Tokens.SigningKey = "0123456789abcdef0123456789abcdef"
	cfg.Security.RateLimit.MaxAttempts = 5
	cfg.Session.Timeout = 30 * time.Minute
	cfg.Session.WarningLead = 5 * time.Minute
	return cfg
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing signing key", func(c *Config) {
			c.Security.Tokens.SigningKey = ""
		}, "signing_key"},
		{"warning lead equals timeout", func(c *Config) {
			c.Session.WarningLead = c.Session.Timeout
		}, "warning_lead"},
		{"warning lead exceeds timeout", func(c *Config) {
			c.Session.WarningLead = c.Session.Timeout + time.Minute
		}, "warning_lead"},
		{"zero max attempts", func(c *Config) {
			c.Security.RateLimit.MaxAttempts = 0
		}, "max_attempts"},
		{"negative max attempts", func(c *Config) {
			c.Security.RateLimit.MaxAttempts = -1
		}, "max_attempts"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q should mention %q", err.Error(), tc.wantErr)
			}
		})
	}
}
