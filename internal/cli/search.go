package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/reposcout/internal/config"
	"github.com/matzehuels/reposcout/pkg/errors"
	"github.com/matzehuels/reposcout/pkg/export"
	"github.com/matzehuels/reposcout/pkg/integrations/github"
	"github.com/matzehuels/reposcout/pkg/search"
	"github.com/matzehuels/reposcout/pkg/storage"
)

// formatTable is the default --format: a human-readable table.
const formatTable = "table"

// searchFlags holds the flags of the search command.
type searchFlags struct {
	language   string
	languages  []string
	topics     []string
	stars      string
	minStars   int
	maxStars   int
	years      int
	months     int
	num        int
	order      string
	precedence string
	shape      string
	sort       string
	format     string
	output     string
	noCache    bool
	noFallback bool
	pick       bool
	save       bool
}

// searchBindings maps config keys to search flags.
var searchBindings = map[string]string{
	"github.shape":       "shape",
	"search.num_results": "num",
	"search.order":       "order",
	"search.precedence":  "precedence",
}

// searchCommand creates the search command.
func (c *CLI) searchCommand() *cobra.Command {
	f := &searchFlags{}
	cmd := &cobra.Command{
		Use:   "search [language]",
		Short: "Find active repositories by language and topic",
		Long: `Search GitHub for repositories written in a language, optionally tagged
with topics, and keep only those within a star range whose last commit is
recent enough.

Results are printed as a table, or written with --format to stdout or with
--output to a file (format chosen by extension: .csv, .json, .yaml, .toml).
With --pick the chosen repository is analyzed and --output receives it
instead of the result list.`,
		Example: `  reposcout search go --topic cli --stars ">100" --years 1
  reposcout search -l rust -t async -n 25 --order stars -o rust.csv
  reposcout search python --shape rest --months 6 --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if f.language != "" && f.language != args[0] {
					return errors.New(errors.ErrCodeInvalidInput, "language given both as argument (%s) and --language (%s)", args[0], f.language)
				}
				f.language = args[0]
			}
			cfg, err := c.loadConfig(cmd, searchBindings)
			if err != nil {
				return err
			}
			return c.runSearch(cmd, f, cfg)
		},
	}

	f.register(cmd.Flags())
	_ = cmd.RegisterFlagCompletionFunc("shape", cobra.FixedCompletions([]string{"graphql", "rest"}, cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("order", cobra.FixedCompletions([]string{"upstream", "stars"}, cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions([]string{"table", "csv", "json", "yaml", "toml"}, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

// register adds the search flags to flags.
func (f *searchFlags) register(flags *pflag.FlagSet) {
	flags.StringVarP(&f.language, "language", "l", "", "primary language (required)")
	flags.StringSliceVar(&f.languages, "languages", nil, "additional languages, any may match")
	flags.StringSliceVarP(&f.topics, "topic", "t", nil, "topic the repository must carry (repeatable)")
	flags.StringVarP(&f.stars, "stars", "s", "", `star range: ">100", "<500" or "100-500"`)
	flags.IntVar(&f.minStars, "min-stars", 0, "minimum stars (inclusive)")
	flags.IntVar(&f.maxStars, "max-stars", 0, "maximum stars (inclusive)")
	flags.IntVarP(&f.years, "years", "y", 0, "last commit within this many years")
	flags.IntVarP(&f.months, "months", "m", 0, "last commit within this many months")
	flags.IntVarP(&f.num, "num", "n", search.DefaultNumResults, "number of results")
	flags.StringVar(&f.order, "order", "upstream", "result order: upstream or stars")
	flags.StringVar(&f.precedence, "precedence", "years", "window used when both --years and --months are set: years or months")
	flags.StringVar(&f.shape, "shape", string(github.ShapeGraphQL), "query shape: graphql or rest")
	flags.StringVar(&f.sort, "sort", "", "upstream sort: stars, forks or updated")
	flags.StringVarP(&f.format, "format", "f", formatTable, "stdout format: table, csv, json, yaml or toml")
	flags.StringVarP(&f.output, "output", "o", "", "write results to this file")
	flags.BoolVar(&f.noCache, "no-cache", false, "bypass the response cache")
	flags.BoolVar(&f.noFallback, "no-fallback", false, "do not list unfiltered results when nothing matches")
	flags.BoolVar(&f.pick, "pick", false, "choose a result interactively and show its details (--output then receives the chosen repository)")
	flags.BoolVar(&f.save, "save", false, "save the run to the configured storage")
}

// descriptor builds the search descriptor from flags and config defaults.
func (f *searchFlags) descriptor(flags *pflag.FlagSet, cfg *config.Config) (search.Descriptor, error) {
	d := search.Descriptor{
		Language:   f.language,
		Languages:  f.languages,
		Topics:     f.topics,
		NumResults: cfg.Search.NumResults,
		Years:      f.years,
		Months:     f.months,
		Sort:       search.Sort(f.sort),
	}
	if flags.Changed("min-stars") {
		d.MinStars = search.IntPtr(f.minStars)
	}
	if flags.Changed("max-stars") {
		d.MaxStars = search.IntPtr(f.maxStars)
	}
	if f.stars != "" {
		if d.MinStars != nil || d.MaxStars != nil {
			return d, errors.New(errors.ErrCodeInvalidInput, "--stars cannot be combined with --min-stars or --max-stars")
		}
		minStars, maxStars, err := search.ParseStarRange(f.stars)
		if err != nil {
			return d, err
		}
		d.MinStars, d.MaxStars = minStars, maxStars
	}
	d = d.Normalize()
	return d, d.Validate()
}

func (c *CLI) runSearch(cmd *cobra.Command, f *searchFlags, cfg *config.Config) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	d, err := f.descriptor(cmd.Flags(), cfg)
	if err != nil {
		return err
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	shape, err := github.ParseShape(cfg.GitHub.Shape)
	if err != nil {
		return err
	}
	if f.format != formatTable {
		if _, err := export.ParseFormat(f.format); err != nil {
			return err
		}
	}

	a, err := newApp(ctx, cfg, f.noCache)
	if err != nil {
		return err
	}
	defer a.Close()

	if c.Logger.GetLevel() <= log.DebugLevel {
		c.logRateLimit(ctx, a.client)
	}

	res, err := c.fetch(ctx, a, d, opts, shape)
	var empty *errors.EmptyResultError
	if stderrors.As(err, &empty) {
		printWarning("No repositories found for %s", d.Query())
		return nil
	}
	if err != nil {
		return err
	}

	if f.save {
		if err := c.saveRun(ctx, cfg, res, string(shape)); err != nil {
			return err
		}
	}

	if len(res.Records) == 0 {
		printWarning("None of the %d repositories passed the filters", res.Fetched())
		if !f.noFallback {
			printInfo("Unfiltered results:")
			renderCandidates(out, res.Candidates[:min(len(res.Candidates), d.NumResults)], res.At)
		}
		return nil
	}

	if f.output != "" && !f.pick {
		if err := export.WriteFile(f.output, res.Records); err != nil {
			return err
		}
		printSuccess("Exported %d repositories", len(res.Records))
		printFile(f.output)
	}

	if f.format == formatTable {
		if f.output == "" {
			printSuccess("Found %d repositories for %s", len(res.Records), StyleHighlight.Render(res.Descriptor.Query()))
			printStats(res.Fetched(), res.Matched, len(res.Records), string(shape))
			renderRecords(out, res.Records, res.At)
		}
	} else if err := writeFormat(out, f.format, res.Records); err != nil {
		return err
	}

	if f.pick {
		return c.pickAndAnalyze(ctx, a, res, f.output)
	}
	return nil
}

// fetch runs the search behind a spinner. REST lookups update the spinner
// with per-repository progress.
func (c *CLI) fetch(ctx context.Context, a *app, d search.Descriptor, opts search.Options, shape github.Shape) (*search.Result, error) {
	prog := newProgress(c.Logger)
	var spinner *Spinner
	if c.Logger.GetLevel() > log.DebugLevel {
		spinner = newSpinnerWithContext(ctx, fmt.Sprintf("Searching %s...", d.Query()))
		spinner.Start()
		ctx = github.WithProgress(ctx, func(done, total int) {
			spinner.SetMessage(fmt.Sprintf("Fetching last commits (%d/%d)...", done, total))
		})
	}

	searcher := search.NewSearcher(a.client.Source(shape), a.exec.Clock(), c.Logger)
	res, err := searcher.Search(ctx, d, opts)
	if spinner != nil {
		if spinner.Cancelled() {
			spinner.StopWithError("Search cancelled")
			return nil, ctx.Err()
		}
		spinner.Stop()
	}
	if err != nil {
		return nil, err
	}
	prog.done(fmt.Sprintf("Fetched %d candidates", res.Fetched()))
	return res, nil
}

func (c *CLI) logRateLimit(ctx context.Context, client *github.Client) {
	status, err := client.RateLimit(ctx)
	if err != nil {
		c.Logger.Debug("rate limit check failed", "error", err)
		return
	}
	c.Logger.Debug("rate limit",
		"search_remaining", status.Search.Remaining,
		"graphql_remaining", status.GraphQL.Remaining,
		"core_remaining", status.Core.Remaining,
		"search_reset", status.Search.Reset.Local().Format("15:04:05"))
}

func (c *CLI) saveRun(ctx context.Context, cfg *config.Config, res *search.Result, shape string) error {
	if cfg.Storage.Driver == "" || cfg.Storage.Driver == storage.DriverNone {
		printWarning("No storage configured; set storage.driver to save runs")
		return nil
	}
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	run := storage.NewRun(res, shape)
	if err := store.SaveRun(ctx, run); err != nil {
		return err
	}
	printSuccess("Saved run %s", StyleHighlight.Render(run.ID.String()))
	return nil
}

// pickAndAnalyze lets the user choose one record, looks up its current
// metadata and writes it to output when set.
func (c *CLI) pickAndAnalyze(ctx context.Context, a *app, res *search.Result, output string) error {
	rec, err := pickRecord(res.Records, res.At)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Analyzing %s...", rec.FullName()))
	spinner.Start()
	repo, err := a.client.Repository(ctx, rec.Owner, rec.Name)
	if err != nil {
		spinner.StopWithError("Analysis of " + rec.FullName() + " failed")
		return err
	}
	spinner.StopWithSuccess("Analyzed " + rec.FullName())

	printNewline()
	printRepository(repo, res.At)

	if output != "" {
		if err := export.WriteFile(output, []search.Record{analyzedRecord(*rec, repo)}); err != nil {
			return err
		}
		printFile(output)
	}
	return nil
}

// analyzedRecord refreshes rec with the metadata of a repository lookup.
// The last commit date comes from the search and is kept.
func analyzedRecord(rec search.Record, repo *github.Repository) search.Record {
	rec.Description = repo.Description
	rec.Stars = repo.Stars
	rec.Forks = repo.Forks
	rec.UpdatedAt = repo.UpdatedAt
	if !repo.CreatedAt.IsZero() {
		rec.CreatedAt = repo.CreatedAt
	}
	if repo.URL != "" {
		rec.URL = repo.URL
	}
	return rec
}

func writeFormat(w io.Writer, name string, records []search.Record) error {
	format, err := export.ParseFormat(name)
	if err != nil {
		return err
	}
	return export.Write(w, format, records)
}
