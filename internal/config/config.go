// Package config handles configuration loading for stockqa.
// It supports YAML config files, a .env file and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for all environment overrides, e.g. STOCKQA_API_PORT.
const EnvPrefix = "STOCKQA"

// Config represents the complete application configuration.
type Config struct {
	LLM        LLMConfig        `mapstructure:"llm"        yaml:"llm"`
	DataSource DataSourceConfig `mapstructure:"datasource" yaml:"datasource"`
	API        APIConfig        `mapstructure:"api"        yaml:"api"`
	UI         UIConfig         `mapstructure:"ui"         yaml:"ui"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"`
}

// LLMConfig holds the hosted LLM settings.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"      yaml:"provider"` // "groq" or "openai"
	APIKey      string  `mapstructure:"api_key"       yaml:"api_key"`
	BaseURL     string  `mapstructure:"base_url"      yaml:"base_url"` // empty = provider default
	Model       string  `mapstructure:"model"         yaml:"model"`
	Temperature float64 `mapstructure:"temperature"   yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"    yaml:"max_tokens"`
	MaxToolIter int     `mapstructure:"max_tool_iter" yaml:"max_tool_iter"`
	TimeoutSec  int     `mapstructure:"timeout_sec"   yaml:"timeout_sec"`
}

// DataSourceConfig holds market-data provider settings.
type DataSourceConfig struct {
	BaseURL    string `mapstructure:"base_url"    yaml:"base_url"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// UIConfig holds the form defaults.
type UIConfig struct {
	DefaultMarket string `mapstructure:"default_market" yaml:"default_market"` // "NSE" or "BSE"
	DefaultTicker string `mapstructure:"default_ticker" yaml:"default_ticker"`
	DefaultStart  string `mapstructure:"default_start"  yaml:"default_start"` // YYYY-MM-DD
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Addr returns the listen address for the HTTP server.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.stockqa/config.yaml (home directory)
//  3. /etc/stockqa/config.yaml (system)
//
// A .env file in the working directory is loaded into the environment first.
// Environment variables override config file values.
// Format: STOCKQA_<SECTION>_<KEY>, e.g., STOCKQA_LLM_API_KEY
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".stockqa"))
	v.AddConfigPath("/etc/stockqa")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	return &cfg, nil
}

// loadDotEnv loads KEY=VALUE pairs from path without overriding variables
// that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("error loading %s: %w", path, err)
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// LLM defaults: deterministic sampling against Groq-hosted Llama 3
	v.SetDefault("llm.provider", "groq")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "llama3-70b-8192")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.max_tool_iter", 4)
	v.SetDefault("llm.timeout_sec", 120)

	// Market data defaults
	v.SetDefault("datasource.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("datasource.timeout_sec", 30)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8501)
	v.SetDefault("api.cors_origins", []string{"*"})

	// Form defaults
	v.SetDefault("ui.default_market", "NSE")
	v.SetDefault("ui.default_ticker", "RELIANCE")
	v.SetDefault("ui.default_start", "2020-01-01")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads the LLM credential from the environment.
// STOCKQA_LLM_API_KEY wins; otherwise the provider's conventional variable
// (GROQ_API_KEY or OPENAI_API_KEY) fills an empty key.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv(EnvPrefix + "_LLM_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
		return
	}
	if cfg.LLM.APIKey != "" {
		return
	}
	if key := os.Getenv(providerKeyEnv(cfg.LLM.Provider)); key != "" {
		cfg.LLM.APIKey = key
	}
}

// providerKeyEnv returns the conventional API key variable for a provider.
func providerKeyEnv(provider string) string {
	if strings.EqualFold(provider, "openai") {
		return "OPENAI_API_KEY"
	}
	return "GROQ_API_KEY"
}

// YAML renders the configuration as YAML with secrets masked.
func (c *Config) YAML() ([]byte, error) {
	redacted := *c
	if redacted.LLM.APIKey != "" {
		redacted.LLM.APIKey = maskKey(redacted.LLM.APIKey)
	}
	out, err := yaml.Marshal(&redacted)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
