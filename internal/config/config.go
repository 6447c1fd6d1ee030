package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Staging  StagingConfig
	STT      STTConfig
	Weather  WeatherConfig
	LLM      LLMConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Log      LogConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

type StagingConfig struct {
	Dir            string
	MaxUploadBytes int64
	SweepInterval  time.Duration
	MaxAge         time.Duration
}

type STTConfig struct {
	Backend       string // "openai" or "local"
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	Language      string
	LocalBaseURL  string // default: "http://localhost:8178"
}

type WeatherConfig struct {
	APIKey  string
	BaseURL string
	Units   string
	Lang    string
	Timeout time.Duration
}

type LLMConfig struct {
	Provider      string // "openai", "anthropic" or "ollama"
	Model         string
	OpenAIKey     string
	OpenAIBaseURL string
	AnthropicKey  string
	OllamaURL     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	port, err := getEnvInt("PORT", 4000)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	maxUpload, err := getEnvInt("UPLOAD_MAX_BYTES", 25*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_MAX_BYTES: %w", err)
	}

	sweepInterval, err := getEnvDuration("STAGING_SWEEP_INTERVAL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid STAGING_SWEEP_INTERVAL: %w", err)
	}

	maxAge, err := getEnvDuration("STAGING_MAX_AGE", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid STAGING_MAX_AGE: %w", err)
	}

	weatherTimeout, err := getEnvDuration("WEATHER_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WEATHER_TIMEOUT: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 1)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	openAIKey := getEnv("OPENAI_API_KEY", "")
	llmProvider := getEnv("LLM_PROVIDER", "openai")

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		},
		Staging: StagingConfig{
			Dir:            getEnv("UPLOADS_DIR", "uploads"),
			MaxUploadBytes: int64(maxUpload),
			SweepInterval:  sweepInterval,
			MaxAge:         maxAge,
		},
		STT: STTConfig{
			Backend:       getEnv("STT_BACKEND", "openai"),
			OpenAIKey:     openAIKey,
			OpenAIBaseURL: getEnv("STT_OPENAI_BASE_URL", ""),
			OpenAIModel:   getEnv("STT_OPENAI_MODEL", "whisper-1"),
			Language:      getEnv("STT_LANGUAGE", "es"),
			LocalBaseURL:  getEnv("STT_LOCAL_BASE_URL", "http://localhost:8178"),
		},
		Weather: WeatherConfig{
			APIKey:  getEnv("OPENWEATHER_KEY", ""),
			BaseURL: getEnv("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5"),
			Units:   getEnv("WEATHER_UNITS", "metric"),
			Lang:    getEnv("WEATHER_LANG", "es"),
			Timeout: weatherTimeout,
		},
		LLM: LLMConfig{
			Provider:      llmProvider,
			Model:         getEnv("LLM_MODEL", defaultModel(llmProvider)),
			OpenAIKey:     openAIKey,
			OpenAIBaseURL: getEnv("LLM_OPENAI_BASE_URL", ""),
			AnthropicKey:  getEnv("ANTHROPIC_API_KEY", ""),
			OllamaURL:     getEnv("OLLAMA_URL", "http://localhost:11434"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate reports credentials missing for the selected backends.
func (c *Config) Validate() error {
	var missing []string
	if c.STT.Backend == "openai" && c.STT.OpenAIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.Weather.APIKey == "" {
		missing = append(missing, "OPENWEATHER_KEY")
	}
	switch c.LLM.Provider {
	case "openai":
		if c.LLM.OpenAIKey == "" && c.STT.Backend != "openai" {
			missing = append(missing, "OPENAI_API_KEY")
		}
	case "anthropic":
		if c.LLM.AnthropicKey == "" {
			missing = append(missing, "ANTHROPIC_API_KEY")
		}
	case "ollama":
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider)
	}
	if c.Staging.MaxUploadBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func defaultModel(provider string) string {
	switch provider {
	case "anthropic":
		return "claude-3-haiku-20240307"
	case "ollama":
		return "llama3"
	default:
		return "gpt-3.5-turbo"
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
