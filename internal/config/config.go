package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported LLM backends.
const (
	BackendHTTP   = "http"
	BackendOpenAI = "openai"
)

// Supported vector stores.
const (
	VectorStoreMemory = "memory"
	VectorStoreQdrant = "qdrant"
)

// Config holds all configuration for the application.
type Config struct {
	APIPort   string
	LogLevel  slog.Level
	LogFormat string

	LLMBackend   string
	LLMBaseURL   string
	LLMAPIKey    string
	DefaultModel string

	EmbeddingBaseURL    string
	EmbeddingModelName  string
	EmbeddingVectorSize int

	DBPath           string
	VectorStore      string
	QdrantURL        string
	QdrantCollection string

	UploadDir       string
	LivenessTimeout time.Duration
	SessionTTL      time.Duration
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates the rest.
// If a .env file exists in the current directory or a parent, it is loaded first.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	llmBaseURL := getEnv("LLM_BASE_URL", "https://api.openai.com")

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
		LLMBackend:         strings.ToLower(getEnv("LLM_BACKEND", BackendHTTP)),
		LLMBaseURL:         llmBaseURL,
		LLMAPIKey:          getEnv("LLM_API_KEY", os.Getenv("OPENAI_API_KEY")),
		DefaultModel:       getEnv("DEFAULT_MODEL", "gpt-3.5-turbo"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", llmBaseURL),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "text-embedding-3-small"),
		DBPath:             getEnv("DB_PATH", "./data/fundbridge.db"),
		VectorStore:        strings.ToLower(getEnv("VECTOR_STORE", VectorStoreMemory)),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "documents"),
		UploadDir:          getEnv("UPLOAD_DIR", ""),
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	switch cfg.LLMBackend {
	case BackendHTTP, BackendOpenAI:
	default:
		return nil, fmt.Errorf("LLM_BACKEND must be %s or %s, got %q", BackendHTTP, BackendOpenAI, cfg.LLMBackend)
	}

	switch cfg.VectorStore {
	case VectorStoreMemory, VectorStoreQdrant:
	default:
		return nil, fmt.Errorf("VECTOR_STORE must be %s or %s, got %q", VectorStoreMemory, VectorStoreQdrant, cfg.VectorStore)
	}

	// Must match the output size of the embeddings model; a Qdrant collection
	// created with a different size has to be recreated.
	vectorSize, err := strconv.Atoi(getEnv("EMBEDDING_VECTOR_SIZE", "1536"))
	if err != nil {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE must be greater than 0")
	}
	cfg.EmbeddingVectorSize = vectorSize

	cfg.LivenessTimeout, err = parseDuration("LIVENESS_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cfg.SessionTTL, err = parseDuration("SESSION_TTL", "2h")
	if err != nil {
		return nil, err
	}

	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(key, defaultValue string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error: %w", err)
	}
	return level, nil
}
