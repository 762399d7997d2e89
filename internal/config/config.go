package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
	Security SecurityConfig `mapstructure:"security"`
	Session  SessionConfig  `mapstructure:"session"`
	Email    EmailConfig    `mapstructure:"email"`
	Inquiry  InquiryConfig  `mapstructure:"inquiry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	TLS  struct {
		Enabled  bool   `mapstructure:"enabled"`
		CertFile string `mapstructure:"cert_file"`
		KeyFile  string `mapstructure:"key_file"`
	} `mapstructure:"tls"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Name           string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	Password  PasswordConfig  `mapstructure:"password"`
	Tokens    TokenConfig     `mapstructure:"tokens"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CSRF      CSRFConfig      `mapstructure:"csrf"`
}

// PasswordConfig holds password hashing configuration
type PasswordConfig struct {
	MinLength         int    `mapstructure:"min_length"`
	Argon2Memory      uint32 `mapstructure:"argon2_memory"`
	Argon2Iterations  uint32 `mapstructure:"argon2_iterations"`
	Argon2Parallelism uint8  `mapstructure:"argon2_parallelism"`
}

// TokenConfig holds dashboard session token configuration
type TokenConfig struct {
	// SigningKey is the HMAC secret used to sign session tokens
	SigningKey string        `mapstructure:"signing_key"`
	TTL        time.Duration `mapstructure:"ttl"`
	Issuer     string        `mapstructure:"issuer"`
}

// RateLimitConfig holds login rate limiting configuration.
// MaxAttempts failed logins within Window lock the identifier out for the
// remainder of the window; EscalationThreshold attempts within
// EscalationWindow trigger the extended lockout.
type RateLimitConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	MaxAttempts         int           `mapstructure:"max_attempts"`
	Window              time.Duration `mapstructure:"window"`
	EscalationThreshold int           `mapstructure:"escalation_threshold"`
	EscalationWindow    time.Duration `mapstructure:"escalation_window"`
}

// CSRFConfig holds anti-forgery token configuration
type CSRFConfig struct {
	// TokenLength is the number of random bytes per token (hex-encoded on the wire)
	TokenLength    int           `mapstructure:"token_length"`
	MaxAge         time.Duration `mapstructure:"max_age"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// SessionConfig holds inactivity timeout configuration
type SessionConfig struct {
	// Timeout is the total inactivity window before forced sign-out
	Timeout time.Duration `mapstructure:"timeout"`
	// WarningLead is how long before the timeout the warning stage begins
	WarningLead time.Duration `mapstructure:"warning_lead"`
}

// EmailConfig holds notification email configuration
type EmailConfig struct {
	// Provider is the email provider to use: "gmail" or "log"
	Provider string `mapstructure:"provider"`
	// AppName is the school/site name shown in emails
	AppName string `mapstructure:"app_name"`
	// RegistrationURL is the link sent to approved requesters
	RegistrationURL string           `mapstructure:"registration_url"`
	Gmail           GmailEmailConfig `mapstructure:"gmail"`
}

// GmailEmailConfig holds Gmail API configuration
type GmailEmailConfig struct {
	// CredentialsJSON is the service account credentials JSON content
	CredentialsJSON string `mapstructure:"credentials_json"`
	// ClientID for OAuth2 token-based auth (alternative to service account)
	ClientID string `mapstructure:"client_id"`
	// ClientSecret for OAuth2 token-based auth
	ClientSecret string `mapstructure:"client_secret"`
	// RefreshToken for OAuth2 token-based auth
	RefreshToken string `mapstructure:"refresh_token"`
	// SenderAddress is the "From" email address
	SenderAddress string `mapstructure:"sender_address"`
	// SenderName is the display name for the sender
	SenderName string `mapstructure:"sender_name"`
}

// InquiryConfig holds admission-inquiry intake configuration
type InquiryConfig struct {
	// RatePerMinute bounds public inquiry submissions per client IP
	RatePerMinute int `mapstructure:"rate_per_minute"`
	Burst         int `mapstructure:"burst"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/schoolgate")

	setDefaults(v)

	// Config file is optional; defaults and env vars cover everything
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("SCHOOLGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.tls.enabled", false)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "schoolgate")
	v.SetDefault("database.user", "schoolgate")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 25)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Password defaults
	v.SetDefault("security.password.min_length", 12)
	v.SetDefault("security.password.argon2_memory", 64*1024)
	v.SetDefault("security.password.argon2_iterations", 3)
	v.SetDefault("security.password.argon2_parallelism", 4)

	// Session token defaults
	v.SetDefault("security.tokens.ttl", "12h")
	v.SetDefault("security.tokens.issuer", "schoolgate")

	// Login rate limit defaults
	v.SetDefault("security.rate_limit.enabled", true)
	v.SetDefault("security.rate_limit.max_attempts", 5)
	v.SetDefault("security.rate_limit.window", "15m")
	v.SetDefault("security.rate_limit.escalation_threshold", 10)
	v.SetDefault("security.rate_limit.escalation_window", "1h")

	// CSRF defaults
	v.SetDefault("security.csrf.token_length", 32)
	v.SetDefault("security.csrf.max_age", "24h")
	v.SetDefault("security.csrf.allowed_origins", []string{"http://localhost:8080"})

	// Session inactivity defaults
	v.SetDefault("session.timeout", "30m")
	v.SetDefault("session.warning_lead", "5m")

	// Email defaults
	v.SetDefault("email.provider", "log")
	v.SetDefault("email.app_name", "Schoolgate")

	// Inquiry intake defaults
	v.SetDefault("inquiry.rate_per_minute", 10)
	v.SetDefault("inquiry.burst", 5)
}

// Validate checks configuration invariants that cannot be defaulted away
func (c *Config) Validate() error {
	if c.Security.Tokens.SigningKey == "" {
		return fmt.Errorf("security.tokens.signing_key is required")
	}
	if c.Session.WarningLead >= c.Session.Timeout {
		return fmt.Errorf("session.warning_lead must be shorter than session.timeout")
	}
	if c.Security.RateLimit.MaxAttempts <= 0 {
		return fmt.Errorf("security.rate_limit.max_attempts must be positive")
	}
	return nil
}
