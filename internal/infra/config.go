package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
// Credentials for all three upstream services plus the target board are
// required at startup; a missing one is a fatal configuration error, never a
// per-request failure.
type Config struct {
	AppEnv string
	Port   string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	OpenAIOrg     string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	PinterestAccessToken string
	PinterestBaseURL     string
	PinterestBoardID     string

	StoragePath string

	MaxImageUploadBytes     int64
	EditInstructionMaxChars int
	StageCallTimeout        time.Duration
	RetryMaxAttempts        int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnv("PORT", "8080"),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIOrg:     os.Getenv("OPENAI_ORG"),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash-image"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),

		PinterestAccessToken: os.Getenv("PINTEREST_ACCESS_TOKEN"),
		PinterestBaseURL:     getEnv("PINTEREST_BASE_URL", "https://api.pinterest.com/v5"),
		PinterestBoardID:     os.Getenv("PINTEREST_BOARD_ID"),

		StoragePath: getEnv("STORAGE_PATH", "./data/media"),

		MaxImageUploadBytes:     getEnvInt64("MAX_IMAGE_UPLOAD_BYTES", 20<<20),
		EditInstructionMaxChars: getEnvInt("EDIT_INSTRUCTION_MAX_CHARS", 2000),
		StageCallTimeout:        time.Second * time.Duration(getEnvInt("STAGE_CALL_TIMEOUT_SECONDS", 60)),
		RetryMaxAttempts:        getEnvInt("RETRY_MAX_ATTEMPTS", 2),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 240)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if cfg.PinterestAccessToken == "" {
		return nil, fmt.Errorf("PINTEREST_ACCESS_TOKEN is required")
	}
	if cfg.PinterestBoardID == "" {
		return nil, fmt.Errorf("PINTEREST_BOARD_ID is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}
