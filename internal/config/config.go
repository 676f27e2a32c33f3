// Package config loads reposcout settings from a TOML file, the environment
// and command-line flags.
//
// Precedence, highest first: bound flags, environment, config file,
// defaults. Environment variables use the REPOSCOUT_ prefix with dots
// replaced by underscores (REPOSCOUT_CACHE_BACKEND), and the GitHub token is
// also read from GITHUB_TOKEN.
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/matzehuels/reposcout/pkg/cache"
	"github.com/matzehuels/reposcout/pkg/errors"
	"github.com/matzehuels/reposcout/pkg/integrations"
	"github.com/matzehuels/reposcout/pkg/search"
	"github.com/matzehuels/reposcout/pkg/storage"
	"github.com/matzehuels/reposcout/pkg/validation"
)

// AppName names the config and cache directories.
const AppName = "reposcout"

// Cache backends.
const (
	CacheFile   = "file"
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config is the complete application configuration.
type Config struct {
	GitHub  GitHubConfig   `mapstructure:"github"`
	Cache   CacheConfig    `mapstructure:"cache"`
	Search  SearchConfig   `mapstructure:"search"`
	Server  ServerConfig   `mapstructure:"server"`
	Storage storage.Config `mapstructure:"storage"`
}

// GitHubConfig configures API access and the executor's waiting policy.
type GitHubConfig struct {
	Token         string        `mapstructure:"token"`
	BaseURL       string        `mapstructure:"base_url" validate:"required,url"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gte=0"`
	Shape         string        `mapstructure:"shape" validate:"oneof=graphql rest"`
	CourtesyDelay time.Duration `mapstructure:"courtesy_delay"`
	QuotaMargin   time.Duration `mapstructure:"quota_margin" validate:"gte=0"`
	MaxQuotaWaits int           `mapstructure:"max_quota_waits" validate:"gte=0"`
	MaxQuotaWait  time.Duration `mapstructure:"max_quota_wait" validate:"gte=0"`
}

// CacheConfig selects the response cache.
type CacheConfig struct {
	Backend string        `mapstructure:"backend" validate:"oneof=file memory redis none"`
	Dir     string        `mapstructure:"dir"`
	TTL     time.Duration `mapstructure:"ttl" validate:"gte=0"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// RedisConfig configures the shared Redis cache.
type RedisConfig struct {
	URL       string        `mapstructure:"url" validate:"omitempty,url"`
	Prefix    string        `mapstructure:"prefix"`
	Retention time.Duration `mapstructure:"retention" validate:"gte=0"`
}

// SearchConfig holds defaults for search parameters not given on the
// command line or in a request.
type SearchConfig struct {
	NumResults int    `mapstructure:"num_results" validate:"gte=1,lte=100"`
	Order      string `mapstructure:"order" validate:"oneof=upstream stars"`
	Precedence string `mapstructure:"precedence" validate:"oneof=years months"`
}

// ServerConfig configures `reposcout serve`.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
}

// Executor returns the executor configuration.
func (c *Config) Executor() integrations.Config {
	return integrations.Config{
		BaseURL:       c.GitHub.BaseURL,
		Token:         c.GitHub.Token,
		Timeout:       c.GitHub.Timeout,
		TTL:           c.Cache.TTL,
		CourtesyDelay: c.GitHub.CourtesyDelay,
		QuotaMargin:   c.GitHub.QuotaMargin,
		MaxQuotaWaits: c.GitHub.MaxQuotaWaits,
		MaxQuotaWait:  c.GitHub.MaxQuotaWait,
	}
}

// Options returns the default search policies.
func (c *Config) Options() (search.Options, error) {
	order, err := search.ParseOrder(c.Search.Order)
	if err != nil {
		return search.Options{}, err
	}
	prec, err := search.ParsePrecedence(c.Search.Precedence)
	if err != nil {
		return search.Options{}, err
	}
	return search.Options{Order: order, Precedence: prec}, nil
}

// Addr returns host:port for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validation.Default().Struct(c); err != nil {
		return err
	}
	if c.Cache.Backend == CacheRedis && c.Cache.Redis.URL == "" {
		return errors.New(errors.ErrCodeInvalidInput, "cache.redis.url is required when cache.backend is redis")
	}
	return nil
}

// Loader reads configuration with viper. Flags are bound through Viper
// before Load is called.
type Loader struct {
	v    *viper.Viper
	path string
}

// NewLoader creates a Loader. An empty path searches for config.toml in
// the user config directory and the working directory.
func NewLoader(path string) *Loader {
	v := viper.New()
	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.SetEnvPrefix("REPOSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Explicit binding so the conventional variable works without the prefix.
	_ = v.BindEnv("github.token", "REPOSCOUT_GITHUB_TOKEN", "GITHUB_TOKEN")

	return &Loader{v: v, path: path}
}

// Viper exposes the underlying instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load reads the config file if present, unmarshals and validates.
// A missing file is only an error when a path was given explicitly.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.path != "" || !stderrors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}
	if cfg.Cache.Dir == "" {
		if dir, err := CacheDir(); err == nil {
			cfg.Cache.Dir = dir
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load is shorthand for NewLoader(path).Load().
func Load(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// ConfigFileUsed returns the path of the file that was read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("github.token", "")
	v.SetDefault("github.base_url", integrations.DefaultBaseURL)
	v.SetDefault("github.timeout", integrations.DefaultTimeout)
	v.SetDefault("github.shape", "graphql")
	v.SetDefault("github.courtesy_delay", integrations.DefaultCourtesyDelay)
	v.SetDefault("github.quota_margin", integrations.DefaultQuotaMargin)
	v.SetDefault("github.max_quota_waits", integrations.DefaultMaxQuotaWaits)
	v.SetDefault("github.max_quota_wait", integrations.DefaultMaxQuotaWait)

	v.SetDefault("cache.backend", CacheFile)
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.ttl", cache.DefaultTTL)
	v.SetDefault("cache.redis.url", "")
	v.SetDefault("cache.redis.prefix", "reposcout:")
	v.SetDefault("cache.redis.retention", 24*time.Hour)

	v.SetDefault("search.num_results", search.DefaultNumResults)
	v.SetDefault("search.order", "upstream")
	v.SetDefault("search.precedence", "years")

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("storage.driver", storage.DriverNone)
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.database", "")
	v.SetDefault("storage.max_open_conns", 0)
}

// Dir returns the config directory ($XDG_CONFIG_HOME/reposcout or
// ~/.config/reposcout).
func Dir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName), nil
}

// CacheDir returns the cache directory using the XDG convention
// (~/.cache/reposcout).
func CacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}
