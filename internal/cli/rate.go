package cli

import (
	"github.com/spf13/cobra"
)

// rateCommand creates the rate command.
func (c *CLI) rateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rate",
		Short: "Show the remaining GitHub API budget",
		Long: `Query GET /rate_limit and show the remaining requests per bucket.

Search uses the "search" bucket for the REST shape and the "graphql" bucket
for the GraphQL shape; per-repository commit lookups use "core".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer a.Close()

			status, err := a.client.RateLimit(cmd.Context())
			if err != nil {
				return err
			}
			renderRate(cmd.OutOrStdout(), status, a.exec.Clock().Now())
			if status.Search.Remaining == 0 || status.GraphQL.Remaining == 0 {
				printWarning("A search bucket is exhausted; searches will wait for its reset")
			}
			return nil
		},
	}
}
