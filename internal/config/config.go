package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/themobileprof/ayu-be/internal/completion"
	"github.com/themobileprof/ayu-be/internal/memory"
)

// Completion backends selectable with LLM_PROVIDER
const (
	ProviderGemini    = "gemini"
	ProviderGeminiSDK = "gemini-sdk"
	ProviderOpenAI    = "openai"
)

const devSessionSecret = "ayu-dev-session-secret"

var ErrUnknownProvider = errors.New("unknown LLM provider")

type Config struct {
	// Server
	Port          string
	Env           string
	AllowedOrigin string
	RateLimit     int // requests per minute per client

	// Completion
	Provider      string
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	Timeout       time.Duration
	ContextWindow int
	Temperature   float64
	MaxTokens     int

	// Circuit breaker; zero failures disables it
	BreakerFailures int
	BreakerReset    time.Duration

	// Gemini pass-through proxy
	ProxyUpstreamURL string

	// Storage
	RedisURL    string
	DatabaseURL string

	// Sessions
	SessionSecret string
	SessionTTL    time.Duration // idle lifetime in the session store

	// Data files; empty uses the embedded defaults
	PhrasesFile   string
	DirectoryFile string
}

// Load reads configuration from the environment, after loading .env when present
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}
	return FromEnv()
}

// FromEnv reads configuration from the process environment only
func FromEnv() *Config {
	def := completion.DefaultConfig()

	cfg := &Config{
		Port:          getEnvOrDefault("PORT", "8080"),
		Env:           getEnvOrDefault("ENV", "development"),
		AllowedOrigin: os.Getenv("ALLOWED_ORIGIN"),
		RateLimit:     getEnvAsIntOrDefault("RATE_LIMIT_PER_MIN", 100),

		Provider:      getEnvOrDefault("LLM_PROVIDER", ProviderGemini),
		GeminiAPIKey:  firstEnv("GEMINI_API_KEY", "VITE_GEMINI_API_KEY"),
		GeminiModel:   getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL: os.Getenv("GEMINI_BASE_URL"),
		OpenAIAPIKey:  firstEnv("OPENAI_API_KEY", "VITE_OPENAI_API_KEY"),
		OpenAIModel:   getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		Timeout:       getEnvAsDurationOrDefault("COMPLETION_TIMEOUT", def.Timeout),
		ContextWindow: getEnvAsIntOrDefault("CONTEXT_WINDOW", def.ContextWindow),
		Temperature:   getEnvAsFloatOrDefault("TEMPERATURE", def.Temperature),
		MaxTokens:     getEnvAsIntOrDefault("MAX_TOKENS", def.MaxTokens),

		BreakerFailures: getEnvAsIntOrDefault("CIRCUIT_BREAKER_FAILURES", 0),
		BreakerReset:    getEnvAsDurationOrDefault("CIRCUIT_BREAKER_RESET", 30*time.Second),

		ProxyUpstreamURL: os.Getenv("PROXY_UPSTREAM_URL"),

		RedisURL:    os.Getenv("REDIS_URL"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		SessionSecret: os.Getenv("SESSION_SECRET"),
		SessionTTL:    getEnvAsDurationOrDefault("SESSION_TTL", memory.DefaultSessionTTL),

		PhrasesFile:   os.Getenv("PHRASES_FILE"),
		DirectoryFile: os.Getenv("DIRECTORY_FILE"),
	}

	if cfg.SessionSecret == "" && !cfg.IsProduction() {
		cfg.SessionSecret = devSessionSecret
	}
	return cfg
}

// IsProduction reports whether ENV is production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks settings the server cannot start without
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderGeminiSDK, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required in production")
	}
	if c.ContextWindow <= 0 {
		return fmt.Errorf("CONTEXT_WINDOW must be positive, got %d", c.ContextWindow)
	}
	return nil
}

// APIKey returns the key for the selected completion backend
func (c *Config) APIKey() string {
	if c.Provider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

// Model returns the model name for the selected completion backend
func (c *Config) Model() string {
	if c.Provider == ProviderOpenAI {
		return c.OpenAIModel
	}
	return c.GeminiModel
}

// Completion returns the remote completion settings
func (c *Config) Completion() completion.Config {
	return completion.Config{
		APIKey:        c.APIKey(),
		Model:         c.Model(),
		Timeout:       c.Timeout,
		ContextWindow: c.ContextWindow,
		Temperature:   c.Temperature,
		MaxTokens:     c.MaxTokens,
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	return ""
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %d", key, val, defaultVal)
		return defaultVal
	}
	return n
}

func getEnvAsFloatOrDefault(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %v", key, val, defaultVal)
		return defaultVal
	}
	return f
}

// getEnvAsDurationOrDefault accepts Go durations ("10s") or plain seconds ("10")
func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}
	log.Printf("Warning: invalid %s=%q, using %s", key, val, defaultVal)
	return defaultVal
}
