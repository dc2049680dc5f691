// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP API server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN; required by server, worker, migrate, and seed.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// JWTPublicKey is the PEM-encoded public key or path to file; used to validate access tokens (RS256/ES256).
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the expected iss claim (e.g. "maya-auth"); required when auth is enabled.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the expected aud claim (e.g. "maya-api"); required when auth is enabled.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`

	// ScorerURL is the base URL of the external scoring model endpoint. Empty disables scoring (dev only).
	ScorerURL string `mapstructure:"SCORER_URL"`
	// ScorerTimeout bounds a single scoring call (e.g. "30s"). Timeouts surface as scoring-pending, not failure.
	ScorerTimeout string `mapstructure:"SCORER_TIMEOUT"`

	// ShardCount is the number of shards per (assessment_type, category) question pool.
	ShardCount int `mapstructure:"QUESTION_SHARD_COUNT"`
	// AllocMaxShardAttempts caps how many distinct shards the allocator samples per category before giving up.
	AllocMaxShardAttempts int `mapstructure:"ALLOC_MAX_SHARD_ATTEMPTS"`

	// Part1MaxQuestions caps how many Part 1 questions Maya asks in one session.
	Part1MaxQuestions int `mapstructure:"MAYA_PART1_MAX_QUESTIONS"`
	// Part3MaxQuestions caps how many Part 3 discussion questions Maya asks in one session.
	Part3MaxQuestions int `mapstructure:"MAYA_PART3_MAX_QUESTIONS"`
	// Part2PrepSeconds is the preparation allowance communicated before the Part 2 long turn. Not enforced server-side.
	Part2PrepSeconds int `mapstructure:"MAYA_PART2_PREP_SECONDS"`
	// Part2SpeakSeconds is the speaking allowance communicated for the Part 2 long turn. Not enforced server-side.
	Part2SpeakSeconds int `mapstructure:"MAYA_PART2_SPEAK_SECONDS"`

	// SessionIdleTTL is how long an ACTIVE session may go without a turn before the server's sweep marks it EXPIRED (e.g. "2h").
	SessionIdleTTL string `mapstructure:"SESSION_IDLE_TTL"`
	// RetentionSweepInterval is how often the expiry sweeps run, in the server (idle sessions) and the worker (preserved records).
	RetentionSweepInterval string `mapstructure:"RETENTION_SWEEP_INTERVAL"`
	// PreservedRecordTTLDays is how long preserved assessment results are kept on the profile.
	PreservedRecordTTLDays int `mapstructure:"PRESERVED_RECORD_TTL_DAYS"`

	// EntitlementPolicyPath optionally points at a Rego file overriding the built-in entitlement policy.
	EntitlementPolicyPath string `mapstructure:"ENTITLEMENT_POLICY_PATH"`

	// Telemetry (optional). When Kafka brokers are set, the server emits domain events to Kafka.
	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for telemetry events (default maya-telemetry).
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group ID for the telemetry worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// LokiURL is the Loki base URL the telemetry worker pushes logs to (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// OTLPEndpoint is the OTLP gRPC collector endpoint for traces/metrics/logs. Empty disables OTel export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("JWT_ISSUER", "maya-auth")
	v.SetDefault("JWT_AUDIENCE", "maya-api")
	v.SetDefault("SCORER_URL", "")
	v.SetDefault("SCORER_TIMEOUT", "30s")
	v.SetDefault("QUESTION_SHARD_COUNT", 128)
	v.SetDefault("ALLOC_MAX_SHARD_ATTEMPTS", 20)
	v.SetDefault("MAYA_PART1_MAX_QUESTIONS", 6)
	v.SetDefault("MAYA_PART3_MAX_QUESTIONS", 4)
	v.SetDefault("MAYA_PART2_PREP_SECONDS", 60)
	v.SetDefault("MAYA_PART2_SPEAK_SECONDS", 120)
	v.SetDefault("SESSION_IDLE_TTL", "2h")
	v.SetDefault("RETENTION_SWEEP_INTERVAL", "1h")
	v.SetDefault("PRESERVED_RECORD_TTL_DAYS", 365)
	v.SetDefault("ENTITLEMENT_POLICY_PATH", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "maya-telemetry")
	v.SetDefault("KAFKA_GROUP_ID", "maya-telemetry-worker")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.ShardCount <= 0 {
		return nil, fmt.Errorf("config: QUESTION_SHARD_COUNT must be positive, got %d", cfg.ShardCount)
	}
	if cfg.AllocMaxShardAttempts <= 0 {
		return nil, fmt.Errorf("config: ALLOC_MAX_SHARD_ATTEMPTS must be positive, got %d", cfg.AllocMaxShardAttempts)
	}
	if cfg.Part1MaxQuestions <= 0 || cfg.Part3MaxQuestions <= 0 {
		return nil, errors.New("config: MAYA_PART1_MAX_QUESTIONS and MAYA_PART3_MAX_QUESTIONS must be positive")
	}
	if cfg.PreservedRecordTTLDays <= 0 {
		return nil, fmt.Errorf("config: PRESERVED_RECORD_TTL_DAYS must be positive, got %d", cfg.PreservedRecordTTLDays)
	}

	return &cfg, nil
}

// ScorerTimeoutDuration parses ScorerTimeout as a time.Duration. Returns 30s if unset or invalid.
func (c *Config) ScorerTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.ScorerTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// SessionIdleTTLDuration parses SessionIdleTTL as a time.Duration. Returns 2h if unset or invalid.
func (c *Config) SessionIdleTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.SessionIdleTTL)
	if err != nil || d <= 0 {
		return 2 * time.Hour
	}
	return d
}

// SweepInterval parses RetentionSweepInterval as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) SweepInterval() time.Duration {
	d, err := time.ParseDuration(c.RetentionSweepInterval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if telemetry is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil || c.TelemetryKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.TelemetryKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
