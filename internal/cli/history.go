package cli

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/reposcout/pkg/errors"
	"github.com/matzehuels/reposcout/pkg/storage"
)

// historyCommand creates the history command.
func (c *CLI) historyCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [RUN_ID]",
		Short: "List saved search runs or show one",
		Long: `List the search runs saved with "search --save", most recent first, or
show the results of one run.

Runs are stored in the database named by storage.driver and storage.dsn.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			if cfg.Storage.Driver == "" || cfg.Storage.Driver == storage.DriverNone {
				return errors.New(errors.ErrCodeInvalidInput, "no storage configured; set storage.driver and storage.dsn")
			}
			store, err := storage.Open(ctx, cfg.Storage)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 0 {
				runs, err := store.Runs(ctx, limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					printInfo("No saved runs")
					return nil
				}
				renderRuns(cmd.OutOrStdout(), runs)
				printNextStep("Show a run", appName+" history "+runs[0].ID.String())
				return nil
			}

			id, err := uuid.Parse(args[0])
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid run id %q", args[0])
			}
			run, err := store.Run(ctx, id)
			if err != nil {
				return err
			}
			printKeyValue("Query", run.Query)
			printKeyValue("Shape", run.Shape)
			printKeyValue("When", run.At.Local().Format("2006-01-02 15:04:05"))
			printStats(run.Fetched, run.Matched, len(run.Records), run.Shape)
			renderRecords(cmd.OutOrStdout(), run.Records, run.At)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", storage.DefaultListLimit, "maximum number of runs to list")
	return cmd
}
