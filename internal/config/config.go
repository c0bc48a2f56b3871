package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Resolver backends
const (
	ResolverHTTP      = "http"
	ResolverAnthropic = "anthropic"
	ResolverOpenAI    = "openai"
)

// Config holds the service configuration
type Config struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`

	Store    StoreConfig    `yaml:"store"`
	Resolver ResolverConfig `yaml:"resolver"`
	Engine   EngineConfig   `yaml:"engine"`
	HTTP     HTTPConfig     `yaml:"http"`
}

// StoreConfig selects and tunes the session state backend
type StoreConfig struct {
	Backend         string        `yaml:"backend"`
	SQLitePath      string        `yaml:"sqlite_path"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
	JanitorInterval time.Duration `yaml:"janitor_interval"`
}

// ResolverConfig selects the Intent Resolver backend
type ResolverConfig struct {
	Backend           string        `yaml:"backend"`
	URL               string        `yaml:"url"`
	Timeout           time.Duration `yaml:"timeout"`
	SuggestionTimeout time.Duration `yaml:"suggestion_timeout"`
	APIKey            string        `yaml:"api_key"`
	Model             string        `yaml:"model"`
	BaseURL           string        `yaml:"base_url"`
	MaxOutputTokens   int           `yaml:"max_output_tokens"`
}

// EngineConfig tunes the customization engine
type EngineConfig struct {
	// DocumentCheck is "none" or "preserve-top-level-keys"
	DocumentCheck string `yaml:"document_check"`
}

// HTTPConfig tunes the HTTP surface
type HTTPConfig struct {
	WriteRole      string        `yaml:"write_role"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps"`
	RateLimitBurst int           `yaml:"rate_limit_burst"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Port: "8080",
		Store: StoreConfig{
			Backend:         StoreMemory,
			SQLitePath:      "arch-customizer.db",
			SessionTTL:      24 * time.Hour,
			JanitorInterval: 10 * time.Minute,
		},
		Resolver: ResolverConfig{
			Backend:           ResolverHTTP,
			URL:               "http://intent-resolver-service:8000",
			Timeout:           45 * time.Second,
			SuggestionTimeout: 20 * time.Second,
			MaxOutputTokens:   8192,
		},
		Engine: EngineConfig{
			DocumentCheck: "none",
		},
		HTTP: HTTPConfig{
			WriteRole:      "owner",
			RateLimitRPS:   2,
			RateLimitBurst: 10,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   120 * time.Second, // batch commands run several resolver calls
		},
	}
}

// Load builds the configuration from defaults, an optional .env file, an optional
// YAML file named by CONFIG_FILE and finally environment variables.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	log.Printf(`{"level":"info","message":"Loaded config file","path":%q}`, path)
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.DatabaseURL, "DATABASE_URL")

	setString(&c.Store.Backend, "STORE_BACKEND")
	setString(&c.Store.SQLitePath, "SQLITE_PATH")
	if err := setDuration(&c.Store.SessionTTL, "SESSION_TTL"); err != nil {
		return err
	}
	if err := setDuration(&c.Store.JanitorInterval, "SESSION_JANITOR_INTERVAL"); err != nil {
		return err
	}

	setString(&c.Resolver.Backend, "RESOLVER_BACKEND")
	setString(&c.Resolver.URL, "RESOLVER_URL")
	if err := setDuration(&c.Resolver.Timeout, "RESOLVER_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&c.Resolver.SuggestionTimeout, "SUGGESTION_TIMEOUT"); err != nil {
		return err
	}
	setString(&c.Resolver.Model, "RESOLVER_MODEL")
	setString(&c.Resolver.BaseURL, "RESOLVER_BASE_URL")
	if err := setInt(&c.Resolver.MaxOutputTokens, "RESOLVER_MAX_OUTPUT_TOKENS"); err != nil {
		return err
	}

	// Provider keys follow the provider's usual variable name
	switch c.Resolver.Backend {
	case ResolverAnthropic:
		setString(&c.Resolver.APIKey, "ANTHROPIC_API_KEY")
	case ResolverOpenAI:
		setString(&c.Resolver.APIKey, "OPENAI_API_KEY")
	}
	setString(&c.Resolver.APIKey, "RESOLVER_API_KEY")

	setString(&c.Engine.DocumentCheck, "DOCUMENT_CHECK")

	if v, ok := os.LookupEnv("WRITE_ROLE"); ok {
		c.HTTP.WriteRole = strings.TrimSpace(v)
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_RPS %q: %w", v, err)
		}
		c.HTTP.RateLimitRPS = rps
	}
	if err := setInt(&c.HTTP.RateLimitBurst, "RATE_LIMIT_BURST"); err != nil {
		return err
	}

	return nil
}

// Validate checks that the selected backends are known and fully configured
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
	default:
		return fmt.Errorf("unknown store backend: %s (supported: memory, postgres, sqlite)", c.Store.Backend)
	}

	switch c.Resolver.Backend {
	case ResolverHTTP:
		if c.Resolver.URL == "" {
			return fmt.Errorf("RESOLVER_URL is required for the http resolver")
		}
	case ResolverAnthropic, ResolverOpenAI:
		if c.Resolver.APIKey == "" {
			return fmt.Errorf("an API key is required for the %s resolver", c.Resolver.Backend)
		}
	default:
		return fmt.Errorf("unknown resolver backend: %s (supported: http, anthropic, openai)", c.Resolver.Backend)
	}

	switch c.Engine.DocumentCheck {
	case "", "none", "preserve-top-level-keys":
	default:
		return fmt.Errorf("unknown document check: %s", c.Engine.DocumentCheck)
	}

	if c.Resolver.Timeout <= 0 {
		return fmt.Errorf("resolver timeout must be positive")
	}
	if c.HTTP.RateLimitRPS < 0 || c.HTTP.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit settings must not be negative")
	}

	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}
