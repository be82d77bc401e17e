package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	AllowedOrigin string
	// OpenAI intent assist, used only for input the keyword rules miss
	OpenAIAPIKey     string
	Model            string
	IntentLLMEnabled bool
	IntentPromptFile string
	// Rule table and fixture overrides
	RulesFile   string
	CatalogFile string
	// Database archive
	DatabaseURL   string
	MigrationsDir string
	// Logging
	LogDir   string
	LogLevel string
	// Conversation behaviour
	ThinkDelay       time.Duration
	ResearchDelay    time.Duration
	FlowTTL          time.Duration
	MaxMessages      int
	MaxCustomActions int
	RequestTimeout   time.Duration
}

func Load() Config {
	_ = godotenv.Load()
	return Config{
		Port:             getEnvDefault("PORT", "8080"),
		AllowedOrigin:    getEnvDefault("ALLOWED_ORIGIN", "*"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		Model:            getEnvDefault("OPENAI_MODEL", "gpt-4o-mini"),
		IntentLLMEnabled: getEnvBoolDefault("INTENT_LLM_ENABLED", false),
		IntentPromptFile: os.Getenv("INTENT_PROMPT_FILE"),
		RulesFile:        os.Getenv("RULES_FILE"),
		CatalogFile:      os.Getenv("CATALOG_FILE"),
		DatabaseURL:      os.Getenv("DB_URL"),
		MigrationsDir:    getEnvDefault("MIGRATIONS_DIR", "./migrations"),
		LogDir:           os.Getenv("LOG_DIR"),
		LogLevel:         getEnvDefault("LOG_LEVEL", "info"),
		ThinkDelay:       getEnvDurationDefault("THINK_DELAY", 1200*time.Millisecond),
		ResearchDelay:    getEnvDurationDefault("RESEARCH_DELAY", 2500*time.Millisecond),
		FlowTTL:          getEnvDurationDefault("FLOW_TTL", 15*time.Minute),
		MaxMessages:      getEnvIntDefault("MAX_MESSAGES", 200),
		MaxCustomActions: getEnvIntDefault("MAX_CUSTOM_ACTIONS", 100),
		RequestTimeout:   getEnvDurationDefault("REQUEST_TIMEOUT", 30*time.Second),
	}
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.ThinkDelay < 0 || c.ResearchDelay < 0 || c.FlowTTL < 0 {
		return fmt.Errorf("delays and FLOW_TTL must not be negative")
	}
	if c.MaxMessages < 0 || c.MaxCustomActions < 0 {
		return fmt.Errorf("MAX_MESSAGES and MAX_CUSTOM_ACTIONS must not be negative")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must not be negative")
	}
	// 0 disables the per-request timeout.
	if c.RequestTimeout > 0 && c.RequestTimeout <= c.ResearchDelay {
		return fmt.Errorf("REQUEST_TIMEOUT (%s) must exceed RESEARCH_DELAY (%s)", c.RequestTimeout, c.ResearchDelay)
	}
	if c.IntentLLMEnabled && c.OpenAIAPIKey == "" {
		return fmt.Errorf("INTENT_LLM_ENABLED requires OPENAI_API_KEY")
	}
	return nil
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// getEnvDurationDefault accepts Go durations ("1.5s") or bare milliseconds.
func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}
