package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"equity-lens/api/internal/analysis"
)

const (
	envPrefix  = "EQUITY_"
	envFileVar = "EQUITY_CONFIG"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Port     string `koanf:"port"`
	LogLevel string `koanf:"log_level"`

	DefaultEngine string `koanf:"default_engine"`
	GeminiAPIKey  string `koanf:"gemini_api_key"`
	GeminiModel   string `koanf:"gemini_model"`
	OpenAIAPIKey  string `koanf:"openai_api_key"`
	OpenAIModel   string `koanf:"openai_model"`

	// RequestTimeout bounds one provider call unless the client asks for another deadline.
	RequestTimeout     time.Duration `koanf:"request_timeout"`
	MaxAssignmentChars int           `koanf:"max_assignment_chars"`
	// FallbackSummarySource is "completion" or "assignment".
	FallbackSummarySource string `koanf:"fallback_summary_source"`
	PromptDir             string `koanf:"prompt_dir"`

	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
	CacheTTL      time.Duration `koanf:"cache_ttl"`

	CORSOrigins []string `koanf:"cors_origins"`

	TelegramBotToken string `koanf:"telegram_bot_token"`
	WebhookURL       string `koanf:"webhook_url"`
}

func defaults() Config {
	return Config{
		Port:                  "8000",
		LogLevel:              "info",
		DefaultEngine:         "gemini",
		GeminiModel:           "gemini-2.5-flash",
		OpenAIModel:           "gpt-4o-mini",
		RequestTimeout:        180 * time.Second,
		MaxAssignmentChars:    20000,
		FallbackSummarySource: string(analysis.FallbackFromCompletion),
		CacheTTL:              24 * time.Hour,
		CORSOrigins:           []string{"*"},
	}
}

// Load layers defaults, an optional YAML file named by EQUITY_CONFIG and
// EQUITY_* environment variables. A .env file in the working directory is
// read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if path := strings.TrimSpace(os.Getenv(envFileVar)); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	// EQUITY_GEMINI_API_KEY -> gemini_api_key
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// platform and legacy variable names
	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" {
		cfg.Port = p
	}
	cfg.GeminiAPIKey = firstNonEmpty(cfg.GeminiAPIKey, os.Getenv("GEMINI_API_KEY"))
	cfg.OpenAIAPIKey = firstNonEmpty(cfg.OpenAIAPIKey, os.Getenv("OPENAI_API_KEY"))
	cfg.TelegramBotToken = firstNonEmpty(cfg.TelegramBotToken, os.Getenv("TELEGRAM_BOT_TOKEN"))
	cfg.CORSOrigins = splitList(cfg.CORSOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("%w: port must not be empty", ErrInvalidConfig)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request_timeout must be > 0", ErrInvalidConfig)
	}
	if c.MaxAssignmentChars <= 0 {
		return fmt.Errorf("%w: max_assignment_chars must be > 0", ErrInvalidConfig)
	}
	if _, err := analysis.ParseFallbackSource(c.FallbackSummarySource); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.GeminiAPIKey == "" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("%w: set gemini_api_key or openai_api_key", ErrInvalidConfig)
	}
	switch strings.ToLower(c.DefaultEngine) {
	case "gemini", "gpt", "openai":
	default:
		return fmt.Errorf("%w: default_engine must be gemini or gpt", ErrInvalidConfig)
	}
	return nil
}

// FallbackSource returns the validated fallback summary source.
func (c *Config) FallbackSource() analysis.FallbackSource {
	src, _ := analysis.ParseFallbackSource(c.FallbackSummarySource)
	return src
}

// CacheEnabled reports whether a Redis address is configured.
func (c *Config) CacheEnabled() bool { return strings.TrimSpace(c.RedisAddr) != "" }

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// splitList flattens comma-separated items coming from a single env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, p := range strings.Split(item, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
