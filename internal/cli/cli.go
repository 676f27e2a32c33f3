package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/reposcout/internal/config"
	"github.com/matzehuels/reposcout/pkg/buildinfo"
	"github.com/matzehuels/reposcout/pkg/cache"
	"github.com/matzehuels/reposcout/pkg/errors"
	"github.com/matzehuels/reposcout/pkg/integrations"
	"github.com/matzehuels/reposcout/pkg/integrations/github"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = config.AppName

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Reposcout finds active GitHub repositories",
		Long:         `Reposcout searches GitHub for repositories by language and topic, keeps the ones that are still maintained, and exports or serves the results.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/reposcout/config.toml)")

	root.AddCommand(c.searchCommand())
	root.AddCommand(c.repoCommand())
	root.AddCommand(c.rateCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig reads the configuration. bindings maps config keys to flag
// names of cmd; a flag set on the command line overrides the file and
// environment.
func (c *CLI) loadConfig(cmd *cobra.Command, bindings map[string]string) (*config.Config, error) {
	loader := config.NewLoader(c.configPath)
	for key, name := range bindings {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := loader.Viper().BindPFlag(key, f); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInternal, err, "bind flag --%s", name)
			}
		}
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if used := loader.ConfigFileUsed(); used != "" {
		c.Logger.Debug("loaded config", "file", used)
	}
	return cfg, nil
}

// =============================================================================
// Client Factory
// =============================================================================

// app bundles the collaborators built from a Config.
type app struct {
	cfg    *config.Config
	cache  cache.Cache
	exec   *integrations.Executor
	client *github.Client
}

// newApp builds the cache, executor and GitHub client for cfg.
func newApp(ctx context.Context, cfg *config.Config, noCache bool) (*app, error) {
	logger := loggerFromContext(ctx)
	c, err := newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}
	logger.Debug("cache ready", "backend", cacheBackend(cfg, noCache))

	exec := integrations.NewExecutor(cfg.Executor(), c, nil, logger)
	return &app{
		cfg:    cfg,
		cache:  c,
		exec:   exec,
		client: github.NewClient(exec, logger),
	}, nil
}

// Close releases the cache.
func (a *app) Close() error {
	return a.cache.Close()
}

func cacheBackend(cfg *config.Config, noCache bool) string {
	if noCache {
		return config.CacheNone
	}
	return cfg.Cache.Backend
}

// newCache opens the configured cache backend.
func newCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	switch cacheBackend(cfg, noCache) {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheMemory:
		return cache.NewMemoryCache(), nil
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			URL:       cfg.Cache.Redis.URL,
			Prefix:    cfg.Cache.Redis.Prefix,
			Retention: cfg.Cache.Redis.Retention,
		})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeNetwork, err, "open redis cache")
		}
		return rc, nil
	default:
		if cfg.Cache.Dir == "" {
			loggerFromContext(ctx).Warn("no cache directory available, caching disabled")
			return cache.NewNullCache(), nil
		}
		fc, err := cache.NewFileCache(cfg.Cache.Dir)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "open file cache")
		}
		return fc, nil
	}
}
