package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/reposcout/internal/server"
	"github.com/matzehuels/reposcout/pkg/integrations/github"
	"github.com/matzehuels/reposcout/pkg/search"
	"github.com/matzehuels/reposcout/pkg/storage"
)

// serveBindings maps config keys to serve flags.
var serveBindings = map[string]string{
	"server.host": "host",
	"server.port": "port",
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve repository search over HTTP",
		Long: `Run an HTTP service exposing GET /search, /runs, /health, /version and
/metrics. With cache.backend = "redis" several instances share one cache.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig(cmd, serveBindings)
			if err != nil {
				return err
			}
			opts, err := cfg.Options()
			if err != nil {
				return err
			}
			a, err := newApp(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			store, err := storage.Open(ctx, cfg.Storage)
			if err != nil {
				return err
			}
			defer store.Close()

			metrics := server.NewMetrics()
			metrics.Install()

			srv := server.New(server.Config{
				Addr:            cfg.Addr(),
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
			}, server.Deps{
				Sources: map[string]search.Source{
					string(github.ShapeGraphQL): a.client.Source(github.ShapeGraphQL),
					string(github.ShapeREST):    a.client.Source(github.ShapeREST),
				},
				DefaultShape: cfg.GitHub.Shape,
				Options:      opts,
				NumResults:   cfg.Search.NumResults,
				Store:        store,
				RateLimit:    a.exec.RateLimit,
				Metrics:      metrics,
				Clock:        a.exec.Clock(),
				Logger:       c.Logger,
			})

			printInfo("Listening on %s", StyleLink.Render("http://"+cfg.Addr()))
			return srv.Run(ctx)
		},
	}
	cmd.Flags().String("host", "127.0.0.1", "listen host")
	cmd.Flags().Int("port", 8080, "listen port")
	return cmd
}
