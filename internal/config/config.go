package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// SearchConfig holds settings for the web search API (Yandex Search API).
type SearchConfig struct {
	Endpoint   string
	APIKey     string
	FolderID   string
	Region     int
	Language   string
	MaxSources int
	Timeout    time.Duration
}

// LLMConfig holds settings for the OpenAI-compatible chat completions API (DeepSeek).
type LLMConfig struct {
	BaseURL      string
	APIKey       string
	Model        string
	Temperature  float32
	MaxTokens    int
	Timeout      time.Duration
	SystemPrompt string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level        string
	MaxBodyBytes int
	Development  bool
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Credentials are never hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	Timezone string
	Log      LogConfig
	Search   SearchConfig
	LLM      LLMConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// Real environment variables take precedence over .env values.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:  getEnv("APP_HOST", "localhost:8080"),
		Port:     getEnv("PORT", "8080"),
		Timezone: getEnv("APP_TIMEZONE", "UTC"),
		Log: LogConfig{
			Level:        getEnv("LOG_LEVEL", "info"),
			MaxBodyBytes: getEnvInt("LOG_MAX_BODY_BYTES", 4096),
			Development:  getEnvBool("LOG_DEVELOPMENT", false),
		},
		Search: SearchConfig{
			Endpoint:   getEnv("SEARCH_ENDPOINT", "https://yandex.ru/search/xml"),
			APIKey:     getEnv("SEARCH_API_KEY", ""),
			FolderID:   getEnv("SEARCH_FOLDER_ID", ""),
			Region:     getEnvInt("SEARCH_REGION", 2),
			Language:   getEnv("SEARCH_LANGUAGE", "ru"),
			MaxSources: getEnvInt("SEARCH_MAX_SOURCES", 3),
			Timeout:    getEnvDuration("SEARCH_TIMEOUT", 10*time.Second),
		},
		LLM: LLMConfig{
			BaseURL:      getEnv("LLM_BASE_URL", "https://api.deepseek.com/v1"),
			APIKey:       getEnv("LLM_API_KEY", ""),
			Model:        getEnv("LLM_MODEL", "deepseek-chat"),
			Temperature:  getEnvFloat32("LLM_TEMPERATURE", 0.2),
			MaxTokens:    getEnvInt("LLM_MAX_TOKENS", 1024),
			Timeout:      getEnvDuration("LLM_TIMEOUT", 60*time.Second),
			SystemPrompt: getEnv("LLM_SYSTEM_PROMPT", ""),
		},
	}
}

// Validate reports configuration that would make the service unusable.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Search.APIKey == "" {
		errs = append(errs, errors.New("SEARCH_API_KEY is required"))
	}
	if c.Search.FolderID == "" {
		errs = append(errs, errors.New("SEARCH_FOLDER_ID is required"))
	}
	if c.Search.MaxSources <= 0 {
		errs = append(errs, errors.New("SEARCH_MAX_SOURCES must be positive"))
	}
	if c.LLM.APIKey == "" {
		errs = append(errs, errors.New("LLM_API_KEY is required"))
	}
	if c.LLM.Model == "" {
		errs = append(errs, errors.New("LLM_MODEL is required"))
	}
	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat32(key string, def float32) float32 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err == nil {
			return float32(f)
		}
	}
	return def
}

// getEnvDuration accepts Go duration strings ("15s") or plain seconds ("15").
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if i, err := strconv.Atoi(v); err == nil {
		return time.Duration(i) * time.Second
	}
	return def
}
