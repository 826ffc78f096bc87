// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	dErrors "pmkisan/pkg/domain-errors"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr string `env:"GATEWAY_ADDR" envDefault:":8080"`
	// AuthEnabled gates the tool routes behind caller JWTs.
	AuthEnabled   bool   `env:"TOOLS_AUTH_ENABLED" envDefault:"false"`
	JWTSigningKey string `env:"TOOLS_JWT_SIGNING_KEY"`
	JWTIssuer     string `env:"TOOLS_JWT_ISSUER" envDefault:"pmkisan-gateway"`
	JWTAudience   string `env:"TOOLS_JWT_AUDIENCE" envDefault:"pmkisan-tools"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	AuditBufferSize int           `env:"AUDIT_BUFFER_SIZE" envDefault:"256"`

	// AuditHashKey keys the audit subject hash. When empty a random key is
	// generated per process, so hashes only correlate within one run.
	AuditHashKey string `env:"AUDIT_HASH_KEY"`
}

// Grievance captures the grievance service connection.
type Grievance struct {
	BaseURL string `env:"GRIEVANCE_BASE_URL"`
	// Token is the static service token; the default is for non-production use.
	Token     string `env:"GRIEVANCE_TOKEN" envDefault:"PMK_123456"`
	KeyHex    string `env:"GRIEVANCE_KEY_1"`
	IVHex     string `env:"GRIEVANCE_KEY_2"`
	TypesPath string `env:"GRIEVANCE_TYPES_PATH" envDefault:"assets/grievance_types.json"`

	ConnectTimeout time.Duration `env:"GRIEVANCE_CONNECT_TIMEOUT" envDefault:"20s"`
	ReadTimeout    time.Duration `env:"GRIEVANCE_READ_TIMEOUT" envDefault:"30s"`
	Retries        int           `env:"GRIEVANCE_HTTP_RETRIES" envDefault:"0"`

	// BreakerThreshold is the number of consecutive transport failures that
	// open the circuit. Zero disables the breaker.
	BreakerThreshold int           `env:"GRIEVANCE_BREAKER_THRESHOLD" envDefault:"0"`
	BreakerCooldown  time.Duration `env:"GRIEVANCE_BREAKER_COOLDOWN" envDefault:"30s"`
}

// Config is the full process configuration.
type Config struct {
	Server    Server
	Grievance Grievance
}

// Load reads optional dotenv files, then the environment. Variables already
// set in the environment win over dotenv values.
func Load(dotenvFiles ...string) (Config, error) {
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil {
			return Config{}, dErrors.Wrap(err, dErrors.CodeConfiguration, fmt.Sprintf("failed to load %s", f))
		}
	}
	return FromEnv()
}

// FromEnv builds the config from environment variables.
func FromEnv() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, dErrors.Wrap(err, dErrors.CodeConfiguration, "invalid environment configuration")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings the server cannot start without. Missing grievance
// keys or base URL are not fatal: the operations report them per call.
func (c Config) Validate() error {
	if c.Server.AuthEnabled && strings.TrimSpace(c.Server.JWTSigningKey) == "" {
		return dErrors.New(dErrors.CodeConfiguration, "TOOLS_AUTH_ENABLED requires TOOLS_JWT_SIGNING_KEY")
	}
	switch strings.ToLower(c.Server.LogFormat) {
	case "json", "text":
	default:
		return dErrors.New(dErrors.CodeConfiguration, fmt.Sprintf("LOG_FORMAT must be json or text, got %q", c.Server.LogFormat))
	}
	if c.Server.AuditHashKey != "" && len(c.Server.AuditHashKey) < 16 {
		return dErrors.New(dErrors.CodeConfiguration, "AUDIT_HASH_KEY must be at least 16 bytes")
	}
	if c.Grievance.ConnectTimeout <= 0 || c.Grievance.ReadTimeout <= 0 {
		return dErrors.New(dErrors.CodeConfiguration, "grievance timeouts must be positive")
	}
	if c.Grievance.Retries < 0 {
		return dErrors.New(dErrors.CodeConfiguration, "GRIEVANCE_HTTP_RETRIES must not be negative")
	}
	if c.Grievance.BreakerThreshold < 0 {
		return dErrors.New(dErrors.CodeConfiguration, "GRIEVANCE_BREAKER_THRESHOLD must not be negative")
	}
	if c.Grievance.BreakerThreshold > 0 && c.Grievance.BreakerCooldown <= 0 {
		return dErrors.New(dErrors.CodeConfiguration, "GRIEVANCE_BREAKER_COOLDOWN must be positive")
	}
	return nil
}
