package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultUserAgent impersonates a desktop Chrome; the index page blocks obvious bots.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config represents the notifier configuration
type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Browser  BrowserConfig  `yaml:"browser"`
	Telegram TelegramConfig `yaml:"telegram"`
	Run      RunConfig      `yaml:"run"`
	Log      LogConfig      `yaml:"log"`
}

// SourceConfig describes the listing index page and the link layout on it
type SourceConfig struct {
	URL        string        `yaml:"url"`
	Origin     string        `yaml:"origin"`
	PathPrefix string        `yaml:"path_prefix"`
	MaxLinks   int           `yaml:"max_links"`
	UserAgent  string        `yaml:"user_agent"`
	Timeout    time.Duration `yaml:"timeout"`
}

// BrowserConfig controls the headless browser used for snapshots
type BrowserConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Bin               string        `yaml:"bin"`
	RemoteURL         string        `yaml:"remote_url"`
	Stealth           bool          `yaml:"stealth"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	ViewportWidth     int           `yaml:"viewport_width"`
	ViewportHeight    int           `yaml:"viewport_height"`
}

// TelegramConfig holds the delivery credentials and retry policy
type TelegramConfig struct {
	Token          string        `yaml:"token"`
	ChatID         string        `yaml:"chat_id"`
	APIEndpoint    string        `yaml:"api_endpoint"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
}

// RunConfig controls the orchestration of a run
type RunConfig struct {
	Interval       time.Duration `yaml:"interval"`
	ListingPause   time.Duration `yaml:"listing_pause"`
	TimeZone       string        `yaml:"time_zone"`
	FallbackOffset time.Duration `yaml:"fallback_offset"`
	SummaryTitle   string        `yaml:"summary_title"`
}

// LogConfig controls the console and fluent log sinks
type LogConfig struct {
	Level  string       `yaml:"level"`
	Format string       `yaml:"format"`
	Color  bool         `yaml:"color"`
	Fluent FluentConfig `yaml:"fluent"`
}

// FluentConfig describes an optional Fluent Bit forward endpoint
type FluentConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Tag     string `yaml:"tag"`
}

// Environment variables that override file values.
const (
	EnvConfigPath    = "NOTIFIER_CONFIG"
	EnvTelegramToken = "TELEGRAM_BOT_TOKEN"
	EnvTelegramChat  = "TELEGRAM_CHAT_ID"
	EnvLogLevel      = "LOG_LEVEL"
	EnvBrowserBin    = "BROWSER_BIN"
)

// GetDefaultConfig returns a default configuration
func GetDefaultConfig() *Config {
	cfg := &Config{}

	cfg.Source.URL = "https://divar.ir/s/tehran/buy-apartment/zaferanieh"
	cfg.Source.Origin = "https://divar.ir"
	cfg.Source.PathPrefix = "/v/"
	cfg.Source.MaxLinks = 10
	cfg.Source.UserAgent = DefaultUserAgent
	cfg.Source.Timeout = 15 * time.Second

	cfg.Browser.Enabled = true
	cfg.Browser.Stealth = true
	cfg.Browser.NavigationTimeout = 20 * time.Second
	cfg.Browser.IdleTimeout = 10 * time.Second
	cfg.Browser.ViewportWidth = 1280
	cfg.Browser.ViewportHeight = 800

	cfg.Telegram.APIEndpoint = "https://api.telegram.org/bot%s/%s"
	cfg.Telegram.Timeout = 30 * time.Second
	cfg.Telegram.MaxAttempts = 3
	cfg.Telegram.InitialBackoff = time.Second

	cfg.Run.ListingPause = time.Second
	cfg.Run.TimeZone = "Asia/Tehran"
	cfg.Run.FallbackOffset = 3*time.Hour + 30*time.Minute
	cfg.Run.SummaryTitle = "لینک اگهی های امروز"

	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Log.Color = true
	cfg.Log.Fluent.Port = 24224
	cfg.Log.Fluent.Tag = "divar-notifier"

	return cfg
}

// LoadConfig loads configuration from a YAML file on top of the defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := GetDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Load resolves the full configuration: .env file, YAML file (optional)
// and environment overrides, then validates the result.
func Load(envPath ...string) (*Config, error) {
	if err := godotenv.Load(envPath...); err != nil {
		log.Printf("Info: no .env file loaded: %v\n", err)
	}

	path := getEnvAsString(EnvConfigPath, "config.yaml")

	var cfg *Config
	if _, err := os.Stat(path); err == nil {
		cfg, err = LoadConfig(path)
		if err != nil {
			return nil, err
		}
	} else {
		log.Printf("Config file %s not found. Using default configuration.\n", path)
		cfg = GetDefaultConfig()
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides credentials and a few operational knobs from the environment
func (c *Config) ApplyEnv() {
	c.Telegram.Token = getEnvAsString(EnvTelegramToken, c.Telegram.Token)
	c.Telegram.ChatID = getEnvAsString(EnvTelegramChat, c.Telegram.ChatID)
	c.Log.Level = getEnvAsString(EnvLogLevel, c.Log.Level)
	c.Browser.Bin = getEnvAsString(EnvBrowserBin, c.Browser.Bin)
	c.Browser.Enabled = getEnvAsBool("BROWSER_ENABLED", c.Browser.Enabled)
	c.Source.MaxLinks = getEnvAsInt("MAX_LINKS", c.Source.MaxLinks)
}

// Validate checks values that would otherwise fail deep inside a run
func (c *Config) Validate() error {
	var errs []error

	if c.Source.URL == "" {
		errs = append(errs, errors.New("source.url is required"))
	}
	if c.Source.Origin == "" {
		errs = append(errs, errors.New("source.origin is required"))
	}
	if c.Source.PathPrefix == "" {
		errs = append(errs, errors.New("source.path_prefix is required"))
	}
	if c.Source.MaxLinks <= 0 {
		errs = append(errs, fmt.Errorf("source.max_links must be positive, got %d", c.Source.MaxLinks))
	}
	if c.Source.Timeout <= 0 {
		errs = append(errs, errors.New("source.timeout must be positive"))
	}
	if c.Telegram.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("telegram.max_attempts must be positive, got %d", c.Telegram.MaxAttempts))
	}
	if c.Telegram.InitialBackoff < 0 {
		errs = append(errs, errors.New("telegram.initial_backoff must not be negative"))
	}
	if c.Run.Interval < 0 {
		errs = append(errs, errors.New("run.interval must not be negative"))
	}
	if c.Browser.Enabled && (c.Browser.NavigationTimeout <= 0 || c.Browser.IdleTimeout <= 0) {
		errs = append(errs, errors.New("browser timeouts must be positive"))
	}

	return errors.Join(errs...)
}

// getEnvAsString reads an environment variable or returns the default value
func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as int or returns the default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as int: %v. Using default value: %d\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return valueInt
}

// getEnvAsBool reads an environment variable as bool or returns the default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valBool, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as bool: %v. Using default value: %t\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return valBool
}
