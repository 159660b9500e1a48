// Package config provides application configuration management.
// It loads settings from environment variables and provides defaults for
// server mode, data paths, classifier training, and collaborator credentials.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Knowledge data
	KnowledgeBasePath string // JSON document with intents
	RuleTablePath     string // JSON document with admission rules
	DataDir           string // Writable directory for SQLite DB and model artifact
	StaticDir         string // Directory served at /static (TTS audio output)

	// Classifier
	ConfidenceThreshold float64       // Minimum accepted classifier probability (default 0.70)
	TrainEpochs         int           // Gradient descent epochs for retraining
	TrainLearningRate   float64       // Gradient descent step size
	AudioCacheTTL       time.Duration // How long generated TTS files are kept

	// LLM fallback (optional)
	GeminiAPIKey  string // Gemini API key, empty disables the Gemini responder
	GroqAPIKey    string // Groq API key (OpenAI-compatible), empty disables Groq
	GeminiModel   string // Override for the Gemini model name
	GroqModel     string // Override for the Groq model name
	FallbackTopK  int    // Number of BM25-selected intents given as fallback context
	PivotLanguage string // Language the classifier pipeline operates in (default "en")

	// Ticketing (optional)
	TicketRecipient string // Staff email receiving query tickets
	TicketSender    string // Verified SES sender address
	AWSRegion       string // Region for the SES client

	// Artifact snapshots (optional)
	R2Endpoint    string
	R2AccessKeyID string
	R2SecretKey   string
	R2Bucket      string

	// Observability
	SentryToken      string // Better Stack Errors token, empty disables Sentry
	SentryHost       string // Better Stack Errors ingesting host
	BetterStackToken string // Better Stack Logs token, empty disables shipping
	MetricsUsername  string // Username for /metrics Basic Auth (default "prometheus")
	MetricsPassword  string // Password for /metrics Basic Auth (empty = no auth)

	// Server
	Port            string
	LogLevel        string
	Environment     string // "production", "staging", "development"
	ShutdownTimeout time.Duration

	// Collaborator timeouts
	TranslateTimeout time.Duration // Per-request timeout for the translation client
	FallbackTimeout  time.Duration // Per-request timeout for the generative fallback
	TTSTimeout       time.Duration // Per-request timeout for speech synthesis
}

// Load reads configuration from environment variables.
// It attempts to load .env file first, then reads from env vars.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		KnowledgeBasePath: getEnv("KNOWLEDGE_BASE_PATH", "data/knowledge_base.json"),
		RuleTablePath:     getEnv("RULE_TABLE_PATH", "data/admission_rules.json"),
		DataDir:           getEnv("DATA_DIR", "./data"),
		StaticDir:         getEnv("STATIC_DIR", "./static"),

		ConfidenceThreshold: getFloatEnv("CONFIDENCE_THRESHOLD", 0.70),
		TrainEpochs:         getIntEnv("TRAIN_EPOCHS", 300),
		TrainLearningRate:   getFloatEnv("TRAIN_LEARNING_RATE", 0.5),
		AudioCacheTTL:       getDurationEnv("AUDIO_CACHE_TTL", 24*time.Hour),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GroqAPIKey:    getEnv("GROQ_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", ""),
		GroqModel:     getEnv("GROQ_MODEL", ""),
		FallbackTopK:  getIntEnv("FALLBACK_TOP_K", 5),
		PivotLanguage: getEnv("PIVOT_LANGUAGE", "en"),

		TicketRecipient: getEnv("TICKET_RECIPIENT", ""),
		TicketSender:    getEnv("TICKET_SENDER", ""),
		AWSRegion:       getEnv("AWS_REGION", "ap-south-1"),

		R2Endpoint:    getEnv("R2_ENDPOINT", ""),
		R2AccessKeyID: getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretKey:   getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:      getEnv("R2_BUCKET", ""),

		SentryToken:      getEnv("SENTRY_TOKEN", ""),
		SentryHost:       getEnv("SENTRY_HOST", "errors.betterstack.com"),
		BetterStackToken: getEnv("BETTERSTACK_TOKEN", ""),
		MetricsUsername:  getEnv("METRICS_USERNAME", "prometheus"),
		MetricsPassword:  getEnv("METRICS_PASSWORD", ""),

		Port:            getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Environment:     getEnv("ENVIRONMENT", "production"),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),

		TranslateTimeout: getDurationEnv("TRANSLATE_TIMEOUT", 5*time.Second),
		FallbackTimeout:  getDurationEnv("FALLBACK_TIMEOUT", 15*time.Second),
		TTSTimeout:       getDurationEnv("TTS_TIMEOUT", 10*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set.
// Knowledge base and rule table paths are the only fatal requirements;
// every collaborator is optional and degrades when unconfigured.
func (c *Config) Validate() error {
	var errs []error

	if c.KnowledgeBasePath == "" {
		errs = append(errs, errors.New("KNOWLEDGE_BASE_PATH is required"))
	}
	if c.RuleTablePath == "" {
		errs = append(errs, errors.New("RULE_TABLE_PATH is required"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("DATA_DIR is required"))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if c.ConfidenceThreshold <= 0 || c.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("CONFIDENCE_THRESHOLD must be in (0,1], got %v", c.ConfidenceThreshold))
	}
	if c.TrainEpochs <= 0 {
		errs = append(errs, fmt.Errorf("TRAIN_EPOCHS must be positive, got %d", c.TrainEpochs))
	}
	if c.TrainLearningRate <= 0 {
		errs = append(errs, fmt.Errorf("TRAIN_LEARNING_RATE must be positive, got %v", c.TrainLearningRate))
	}
	if c.FallbackTopK <= 0 {
		errs = append(errs, fmt.Errorf("FALLBACK_TOP_K must be positive, got %d", c.FallbackTopK))
	}
	if c.TicketRecipient != "" && c.TicketSender == "" {
		errs = append(errs, errors.New("TICKET_SENDER is required when TICKET_RECIPIENT is set"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// SQLitePath returns the full path to the SQLite database file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "chatbot.db")
}

// ModelArtifactPath returns the full path to the persisted classifier artifact
func (c *Config) ModelArtifactPath() string {
	return filepath.Join(c.DataDir, "classifier.json")
}

// AudioDir returns the directory TTS audio files are written to
func (c *Config) AudioDir() string {
	return filepath.Join(c.StaticDir, "audio")
}

// HasLLMProvider returns true if at least one fallback LLM provider is configured.
func (c *Config) HasLLMProvider() bool {
	return c.GeminiAPIKey != "" || c.GroqAPIKey != ""
}

// HasTicketing returns true if the SES ticket mailer is configured.
func (c *Config) HasTicketing() bool {
	return c.TicketRecipient != "" && c.TicketSender != ""
}

// HasArtifactStore returns true if the R2 artifact snapshot store is configured.
func (c *Config) HasArtifactStore() bool {
	return c.R2Endpoint != "" && c.R2AccessKeyID != "" && c.R2SecretKey != "" && c.R2Bucket != ""
}
