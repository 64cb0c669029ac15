// Package config builds the explicit configuration object handed to every
// component at start-up.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/smartspend/internal/common"
	"github.com/Veraticus/smartspend/internal/events"
	"github.com/Veraticus/smartspend/internal/llm"
	"github.com/Veraticus/smartspend/internal/ocr"
	"github.com/Veraticus/smartspend/internal/service"
	"github.com/Veraticus/smartspend/internal/sheets"
	"github.com/Veraticus/smartspend/internal/storage"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. SMARTSPEND_STORAGE_DRIVER.
const EnvPrefix = "SMARTSPEND"

// Config is the complete application configuration.
type Config struct {
	Budgets   map[string]decimal.Decimal
	Sheets    sheets.Config
	Events    events.Config
	Storage   storage.Config
	OCR       ocr.Config
	Catalogue CatalogueConfig
	Logging   LoggingConfig
	LLM       LLMConfig
	// DefaultLimit applies to categories without a configured budget.
	DefaultLimit decimal.Decimal
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// CatalogueConfig configures product resolution.
type CatalogueConfig struct {
	Path        string
	LLMFallback bool
	CacheTTL    time.Duration
}

// LLMConfig lists completion endpoints in priority order.
type LLMConfig struct {
	Endpoints []llm.Config
	Retry     service.RetryOptions
	RateLimit int
	Narrative bool
	Vision    bool
}

// Enabled reports whether any endpoint is configured.
func (c LLMConfig) Enabled() bool {
	return len(c.Endpoints) > 0
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("storage.driver", storage.DriverSQLite)
	v.SetDefault("storage.path", filepath.Join(DefaultDataDir(), "ledger.db"))
	v.SetDefault("budgets.default_limit", "100")
	v.SetDefault("catalogue.cache_ttl", 15*time.Minute)
	v.SetDefault("llm.retry.max_attempts", 2)
	v.SetDefault("llm.retry.initial_delay", time.Second)
	v.SetDefault("llm.retry.max_delay", 10*time.Second)
	v.SetDefault("llm.rate_limit", 60)
	v.SetDefault("llm.narrative", true)
	v.SetDefault("events.exchange", events.DefaultExchange)
	v.SetDefault("events.queue", events.DefaultQueue)
	v.SetDefault("events.kafka.topic", events.DefaultTopic)
	v.SetDefault("sheets.batch_size", 1000)
	v.SetDefault("sheets.retry_attempts", 3)
	v.SetDefault("sheets.retry_delay", time.Second)
	v.SetDefault("sheets.formatting", true)
}

// LoadDotEnv loads a .env file into the process environment. Variables that
// are already set win. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Load builds a Config from v. Defaults must already be registered with SetDefaults.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Storage: storage.Config{
			Driver: v.GetString("storage.driver"),
			Path:   ExpandPath(v.GetString("storage.path")),
			DSN:    v.GetString("storage.dsn"),
		},
		Catalogue: CatalogueConfig{
			Path:        ExpandPath(v.GetString("catalogue.path")),
			LLMFallback: v.GetBool("catalogue.llm_fallback"),
			CacheTTL:    v.GetDuration("catalogue.cache_ttl"),
		},
		OCR: ocr.Config{
			APIKey:   firstNonEmpty(v.GetString("ocr.api_key"), os.Getenv("GOOGLE_VISION_API_KEY"), os.Getenv("GOOGLE_API_KEY")),
			Endpoint: v.GetString("ocr.endpoint"),
			Document: v.GetBool("ocr.document"),
		},
		Events: events.Config{
			AMQPURL:      v.GetString("events.amqp_url"),
			Exchange:     v.GetString("events.exchange"),
			Queue:        v.GetString("events.queue"),
			KafkaBrokers: v.GetStringSlice("events.kafka.brokers"),
			KafkaTopic:   v.GetString("events.kafka.topic"),
		},
	}

	var err error
	if cfg.DefaultLimit, err = parseAmount(v.GetString("budgets.default_limit")); err != nil {
		return nil, fmt.Errorf("budgets.default_limit: %w", err)
	}
	if cfg.Budgets, err = loadBudgets(v); err != nil {
		return nil, err
	}
	if cfg.LLM, err = loadLLM(v); err != nil {
		return nil, err
	}
	cfg.Sheets = loadSheets(v)

	if _, err := common.ParseLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadBudgets(v *viper.Viper) (map[string]decimal.Decimal, error) {
	raw := v.GetStringMapString("budgets.limits")
	if len(raw) == 0 {
		return nil, nil
	}
	// viper lowercases map keys; an explicit category list restores casing.
	names := make(map[string]string, len(raw))
	for _, name := range v.GetStringSlice("budgets.categories") {
		names[strings.ToLower(name)] = name
	}

	budgets := make(map[string]decimal.Decimal, len(raw))
	for key, value := range raw {
		limit, err := parseAmount(value)
		if err != nil {
			return nil, fmt.Errorf("budgets.limits.%s: %w", key, err)
		}
		name, ok := names[key]
		if !ok {
			name = titleCase(key)
		}
		budgets[name] = limit
	}
	return budgets, nil
}

// endpointConfig is one entry of llm.endpoints in the config file.
type endpointConfig struct {
	Provider    string        `mapstructure:"provider"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
}

func loadLLM(v *viper.Viper) (LLMConfig, error) {
	cfg := LLMConfig{
		RateLimit: v.GetInt("llm.rate_limit"),
		Narrative: v.GetBool("llm.narrative"),
		Vision:    v.GetBool("llm.vision"),
		Retry: service.RetryOptions{
			MaxAttempts:  v.GetInt("llm.retry.max_attempts"),
			InitialDelay: v.GetDuration("llm.retry.initial_delay"),
			MaxDelay:     v.GetDuration("llm.retry.max_delay"),
			Multiplier:   2.0,
		},
	}

	var endpoints []endpointConfig
	if err := v.UnmarshalKey("llm.endpoints", &endpoints); err != nil {
		return cfg, fmt.Errorf("%w: llm.endpoints: %v", common.ErrInvalidConfig, err)
	}

	// a single provider may be given without the list form
	if len(endpoints) == 0 && v.GetString("llm.provider") != "" {
		endpoints = append(endpoints, endpointConfig{
			Provider: v.GetString("llm.provider"),
			APIKey:   v.GetString("llm.api_key"),
			Model:    v.GetString("llm.model"),
			Timeout:  v.GetDuration("llm.timeout"),
		})
	}

	for i, e := range endpoints {
		provider := strings.ToLower(e.Provider)
		if provider == "" {
			return cfg, fmt.Errorf("%w: llm.endpoints[%d] has no provider", common.ErrInvalidConfig, i)
		}
		apiKey := e.APIKey
		if apiKey == "" {
			apiKey = apiKeyFromEnv(provider)
		}
		cfg.Endpoints = append(cfg.Endpoints, llm.Config{
			Provider:    provider,
			APIKey:      apiKey,
			Model:       e.Model,
			BaseURL:     e.BaseURL,
			Timeout:     e.Timeout,
			Temperature: e.Temperature,
			MaxTokens:   e.MaxTokens,
		})
	}
	return cfg, nil
}

// apiKeyFromEnv returns the conventional provider key variable.
func apiKeyFromEnv(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "gemini", "google":
		return firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY"))
	default:
		return ""
	}
}

// loadSheets reads sheets.* and falls back to GOOGLE_SHEETS_* variables.
func loadSheets(v *viper.Viper) sheets.Config {
	cfg := sheets.DefaultConfig()
	cfg.ServiceAccountPath = ExpandPath(v.GetString("sheets.service_account_path"))
	cfg.ClientID = v.GetString("sheets.client_id")
	cfg.ClientSecret = v.GetString("sheets.client_secret")
	cfg.RefreshToken = v.GetString("sheets.refresh_token")
	cfg.SpreadsheetID = v.GetString("sheets.spreadsheet_id")
	if name := v.GetString("sheets.spreadsheet_name"); name != "" {
		cfg.SpreadsheetName = name
	}
	cfg.BatchSize = v.GetInt("sheets.batch_size")
	cfg.RetryAttempts = v.GetInt("sheets.retry_attempts")
	cfg.RetryDelay = v.GetDuration("sheets.retry_delay")
	cfg.EnableFormatting = v.GetBool("sheets.formatting")
	cfg.LoadFromEnv()
	return cfg
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid amount %q", common.ErrInvalidConfig, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative amount %q", common.ErrInvalidConfig, s)
	}
	return d, nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// EnvKeyReplacer maps nested keys to environment names: storage.driver
// becomes SMARTSPEND_STORAGE_DRIVER.
func EnvKeyReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}
