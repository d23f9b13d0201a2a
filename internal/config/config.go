package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

// MaxHistoryTurns bounds every conversation context regardless of configuration.
const MaxHistoryTurns = 10

// LLMCallsPerTurn is the most model requests one chat turn makes: classify,
// synthesize, select output and summarize.
const LLMCallsPerTurn = 4

const writeTimeoutMargin = 10 * time.Second

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Engine        EngineConfig
	LLM           LLMConfig
	Schema        SchemaConfig
	Conversation  ConversationConfig
	Archive       ArchiveConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type EngineConfig struct {
	Driver          string
	DSN             string
	Dialect         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
	RowLimit        int
}

type LLMConfig struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	TopP        float64
	Timeout     time.Duration
}

type SchemaConfig struct {
	File string
}

// ConversationConfig bounds the in-memory context store. A zero IdleTTL keeps
// idle contexts and a zero MaxConversations disables the size cap.
type ConversationConfig struct {
	HistoryLimit     int
	IdleTTL          time.Duration
	MaxConversations int
}

type ArchiveConfig struct {
	Enabled          bool
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("SQLCHAT_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid SQLCHAT_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	_, writeTimeoutSet := lookup("SQLCHAT_HTTP_WRITE_TIMEOUT")

	steps := []func() error{
		func() error { return applyString(lookup, "SQLCHAT_SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyString(lookup, "SQLCHAT_HTTP_ADDR", &cfg.HTTP.Address) },
		func() error { return applyDuration(lookup, "SQLCHAT_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout) },
		func() error { return applyDuration(lookup, "SQLCHAT_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout) },
		func() error { return applyDuration(lookup, "SQLCHAT_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout) },
		func() error { return applyString(lookup, "SQLCHAT_ENGINE_DRIVER", &cfg.Engine.Driver) },
		func() error { return applyString(lookup, "SQLCHAT_ENGINE_DSN", &cfg.Engine.DSN) },
		func() error { return applyString(lookup, "SQLCHAT_ENGINE_DIALECT", &cfg.Engine.Dialect) },
		func() error { return applyInt(lookup, "SQLCHAT_ENGINE_MAX_OPEN_CONNS", &cfg.Engine.MaxOpenConns) },
		func() error { return applyInt(lookup, "SQLCHAT_ENGINE_MAX_IDLE_CONNS", &cfg.Engine.MaxIdleConns) },
		func() error {
			return applyDuration(lookup, "SQLCHAT_ENGINE_CONN_MAX_IDLE_TIME", &cfg.Engine.ConnMaxIdleTime)
		},
		func() error {
			return applyDuration(lookup, "SQLCHAT_ENGINE_CONN_MAX_LIFETIME", &cfg.Engine.ConnMaxLifetime)
		},
		func() error { return applyDuration(lookup, "SQLCHAT_ENGINE_QUERY_TIMEOUT", &cfg.Engine.QueryTimeout) },
		func() error { return applyInt(lookup, "SQLCHAT_ENGINE_ROW_LIMIT", &cfg.Engine.RowLimit) },
		func() error { return applyString(lookup, "SQLCHAT_LLM_PROVIDER", &cfg.LLM.Provider) },
		func() error { return applyString(lookup, "SQLCHAT_LLM_BASE_URL", &cfg.LLM.BaseURL) },
		func() error { return applyString(lookup, "SQLCHAT_LLM_API_KEY", &cfg.LLM.APIKey) },
		func() error { return applyString(lookup, "SQLCHAT_LLM_MODEL", &cfg.LLM.Model) },
		func() error { return applyInt(lookup, "SQLCHAT_LLM_MAX_TOKENS", &cfg.LLM.MaxTokens) },
		func() error { return applyFloat(lookup, "SQLCHAT_LLM_TEMPERATURE", &cfg.LLM.Temperature) },
		func() error { return applyFloat(lookup, "SQLCHAT_LLM_TOP_P", &cfg.LLM.TopP) },
		func() error { return applyDuration(lookup, "SQLCHAT_LLM_TIMEOUT", &cfg.LLM.Timeout) },
		func() error { return applyString(lookup, "SQLCHAT_SCHEMA_FILE", &cfg.Schema.File) },
		func() error { return applyInt(lookup, "SQLCHAT_HISTORY_LIMIT", &cfg.Conversation.HistoryLimit) },
		func() error {
			return applyDuration(lookup, "SQLCHAT_CONVERSATION_IDLE_TTL", &cfg.Conversation.IdleTTL)
		},
		func() error {
			return applyInt(lookup, "SQLCHAT_CONVERSATION_MAX", &cfg.Conversation.MaxConversations)
		},
		func() error { return applyBool(lookup, "SQLCHAT_ARCHIVE_ENABLED", &cfg.Archive.Enabled) },
		func() error { return applyString(lookup, "SQLCHAT_ARCHIVE_ENDPOINT", &cfg.Archive.Endpoint) },
		func() error { return applyString(lookup, "SQLCHAT_ARCHIVE_REGION", &cfg.Archive.Region) },
		func() error { return applyString(lookup, "SQLCHAT_ARCHIVE_BUCKET", &cfg.Archive.Bucket) },
		func() error { return applyString(lookup, "SQLCHAT_ARCHIVE_ACCESS_KEY", &cfg.Archive.AccessKeyID) },
		func() error { return applyString(lookup, "SQLCHAT_ARCHIVE_SECRET_KEY", &cfg.Archive.SecretAccessKey) },
		func() error { return applyBool(lookup, "SQLCHAT_ARCHIVE_USE_SSL", &cfg.Archive.UseSSL) },
		func() error { return applyString(lookup, "SQLCHAT_ARCHIVE_PREFIX", &cfg.Archive.Prefix) },
		func() error {
			return applyBool(lookup, "SQLCHAT_ARCHIVE_AUTO_CREATE_BUCKET", &cfg.Archive.AutoCreateBucket)
		},
		func() error { return applyBool(lookup, "SQLCHAT_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "SQLCHAT_LOG_LEVEL", &cfg.Observability.LogLevel) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return Config{}, err
		}
	}

	cfg.Engine.Driver = strings.ToLower(cfg.Engine.Driver)
	cfg.LLM.Provider = strings.ToLower(cfg.LLM.Provider)
	if cfg.Engine.Dialect == "" {
		cfg.Engine.Dialect = dialectForDriver(cfg.Engine.Driver)
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = modelForProvider(cfg.LLM.Provider)
	}
	if cfg.LLM.BaseURL == "" && cfg.LLM.Provider == "openai" {
		cfg.LLM.BaseURL = "https://api.openai.com"
	}
	if !writeTimeoutSet {
		cfg.HTTP.WriteTimeout = TurnBudget(cfg) + writeTimeoutMargin
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if !isSupportedDriver(cfg.Engine.Driver) {
		return Config{}, fmt.Errorf("invalid SQLCHAT_ENGINE_DRIVER: %q", cfg.Engine.Driver)
	}
	if !isSupportedProvider(cfg.LLM.Provider) {
		return Config{}, fmt.Errorf("invalid SQLCHAT_LLM_PROVIDER: %q", cfg.LLM.Provider)
	}
	if cfg.Conversation.HistoryLimit <= 0 || cfg.Conversation.HistoryLimit > MaxHistoryTurns {
		return Config{}, fmt.Errorf("SQLCHAT_HISTORY_LIMIT must be between 1 and %d", MaxHistoryTurns)
	}
	if cfg.Conversation.IdleTTL < 0 || cfg.Conversation.MaxConversations < 0 {
		return Config{}, fmt.Errorf("conversation idle ttl and max conversations must not be negative")
	}
	if cfg.Archive.Enabled && strings.TrimSpace(cfg.Archive.Bucket) == "" {
		return Config{}, fmt.Errorf("archive bucket is required when archive is enabled")
	}
	return cfg, nil
}

// TurnBudget is the longest a chat turn can take when every model request and
// the query run to their timeouts.
func TurnBudget(cfg Config) time.Duration {
	return LLMCallsPerTurn*cfg.LLM.Timeout + cfg.Engine.QueryTimeout
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "sqlchat-api"},
		HTTP: HTTPConfig{
			Address:     ":8080",
			ReadTimeout: 5 * time.Second,
			IdleTimeout: 60 * time.Second,
		},
		Engine: EngineConfig{
			Driver:          "sqlite",
			DSN:             "file:Database/manufacturing_projects.db?_pragma=busy_timeout(5000)",
			MaxOpenConns:    8,
			MaxIdleConns:    8,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
			QueryTimeout:    30 * time.Second,
			RowLimit:        1000,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			MaxTokens:   200,
			Temperature: 0.7,
			TopP:        1.0,
			Timeout:     30 * time.Second,
		},
		Conversation: ConversationConfig{
			HistoryLimit:     MaxHistoryTurns,
			IdleTTL:          30 * time.Minute,
			MaxConversations: 10000,
		},
		Archive: ArchiveConfig{
			Enabled:          false,
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "sqlchat",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			AutoCreateBucket: true,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Engine.DSN = "file::memory:?cache=shared"
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Archive.UseSSL = true
		cfg.Archive.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func isSupportedDriver(driver string) bool {
	switch driver {
	case "sqlite", "pgx", "duckdb":
		return true
	default:
		return false
	}
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "openai", "gemini":
		return true
	default:
		return false
	}
}

func dialectForDriver(driver string) string {
	switch driver {
	case "pgx":
		return "PostgreSQL"
	case "duckdb":
		return "DuckDB"
	default:
		return "SQLite"
	}
}

func modelForProvider(provider string) string {
	if provider == "gemini" {
		return "gemini-2.5-flash"
	}
	return "gpt-4-turbo"
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
