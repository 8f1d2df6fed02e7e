package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every setting of the backend and the practice client.
type Config struct {
	Server   ServerConfig
	AI       AIConfig
	Practice PracticeConfig
	Log      LogConfig
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	practice, err := loadPracticeConfig()
	if err != nil {
		return nil, err
	}

	logCfg := loadLogConfig()

	cfg := &Config{Server: server, AI: ai, Practice: practice, Log: logCfg}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that the loaders cannot.
func (c *Config) Validate() error {
	var errs []error
	if c.Practice.TurnLimit < 1 {
		errs = append(errs, fmt.Errorf("PRACTICE_TURN_LIMIT must be positive, got %d", c.Practice.TurnLimit))
	}
	if c.Practice.RevealDelay < 0 {
		errs = append(errs, fmt.Errorf("PRACTICE_REVEAL_DELAY must not be negative"))
	}
	if c.Practice.SummaryDelay < 0 {
		errs = append(errs, fmt.Errorf("PRACTICE_SUMMARY_DELAY must not be negative"))
	}
	if strings.TrimSpace(c.Practice.CharacterID) == "" {
		errs = append(errs, errors.New("PRACTICE_CHARACTER must not be empty"))
	}
	if c.AI.HistoryLimit < 1 {
		errs = append(errs, fmt.Errorf("AI_HISTORY_LIMIT must be positive, got %d", c.AI.HistoryLimit))
	}
	return errors.Join(errs...)
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	origins := splitList(getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:3000"))

	if strings.Contains(port, ":") {
		// ":8080" and "127.0.0.1:8080" are taken as-is.
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// AIConfig describes the Ark chat model used for replies, coaching and
// impressions.
type AIConfig struct {
	APIKey          string
	AccessKey       string
	SecretKey       string
	Model           string
	BaseURL         string
	Region          string
	Temperature     *float64
	TopP            *float64
	MaxTokens       *int
	CoachLLMEnabled bool
	HistoryLimit    int
}

// Enabled reports whether enough credentials are present to build a model.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds an Ark chat model from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, errors.New("ark credentials or model missing: set ARK_API_KEY and Model, or ARK_ACCESS_KEY and ARK_SECRET_KEY")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	coachLLM, err := parseBoolEnv("AI_COACH_LLM_ENABLED", true)
	if err != nil {
		return AIConfig{}, err
	}

	historyLimit, err := parseIntEnv("AI_HISTORY_LIMIT", 10)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:          strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:       strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:       strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:           strings.TrimSpace(os.Getenv("Model")),
		BaseURL:         getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:          getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:     temperature,
		TopP:            topP,
		MaxTokens:       maxTokens,
		CoachLLMEnabled: coachLLM,
		HistoryLimit:    historyLimit,
	}, nil
}

// PracticeConfig controls the pacing and cast of a practice conversation.
type PracticeConfig struct {
	TurnLimit    int
	RevealDelay  time.Duration
	SummaryDelay time.Duration
	PersonaFile  string
	CharacterID  string
	// ServerURL is the backend the practice client talks to.
	ServerURL string
}

func loadPracticeConfig() (PracticeConfig, error) {
	turnLimit, err := parseIntEnv("PRACTICE_TURN_LIMIT", 5)
	if err != nil {
		return PracticeConfig{}, err
	}

	reveal, err := parseDurationEnv("PRACTICE_REVEAL_DELAY", 800*time.Millisecond)
	if err != nil {
		return PracticeConfig{}, err
	}

	summary, err := parseDurationEnv("PRACTICE_SUMMARY_DELAY", time.Second)
	if err != nil {
		return PracticeConfig{}, err
	}

	return PracticeConfig{
		TurnLimit:    turnLimit,
		RevealDelay:  reveal,
		SummaryDelay: summary,
		PersonaFile:  strings.TrimSpace(os.Getenv("PERSONA_FILE")),
		CharacterID:  getEnvOrDefault("PRACTICE_CHARACTER", "mio"),
		ServerURL:    getEnvOrDefault("PRACTICE_SERVER_URL", "http://localhost:8080"),
	}, nil
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level string
	JSON  bool
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level: getEnvOrDefault("LOG_LEVEL", "info"),
		JSON:  strings.EqualFold(getEnvOrDefault("LOG_FORMAT", "text"), "json"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	val, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if val == nil {
		return defaultValue, nil
	}
	return *val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	// Bare numbers are milliseconds.
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	return parseOptionalEnv(key, func(raw string) (float64, error) {
		return strconv.ParseFloat(raw, 64)
	})
}

func parseOptionalIntEnv(key string) (*int, error) {
	return parseOptionalEnv(key, strconv.Atoi)
}

// parseOptionalEnv returns nil when key is unset or blank.
func parseOptionalEnv[T any](key string, parse func(string) (T, error)) (*T, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil, nil
	}

	val, err := parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return &val, nil
}
