package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/reposcout/pkg/integrations/github"
)

// repoCommand creates the repo command.
func (c *CLI) repoCommand() *cobra.Command {
	var (
		asJSON  bool
		noCache bool
	)
	cmd := &cobra.Command{
		Use:     "repo OWNER/NAME",
		Short:   "Show metadata for one repository",
		Example: `  reposcout repo spf13/cobra`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, name, err := github.ParseRepoRef(args[0])
			if err != nil {
				return err
			}
			cfg, err := c.loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, noCache)
			if err != nil {
				return err
			}
			defer a.Close()

			repo, err := a.client.Repository(cmd.Context(), owner, name)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(repo)
			}
			printRepository(repo, a.exec.Clock().Now())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the repository as JSON")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the response cache")
	return cmd
}

// printRepository prints repository metadata as key/value lines.
func printRepository(r *github.Repository, now time.Time) {
	fmt.Println(StyleTitle.Render(r.FullName))
	if r.Description != "" {
		printDetail("%s", r.Description)
	}
	printNewline()
	printKeyValue("Stars", StyleNumber.Render(strconv.Itoa(r.Stars)))
	printKeyValue("Forks", StyleNumber.Render(strconv.Itoa(r.Forks)))
	printKeyValue("Issues", strconv.Itoa(r.OpenIssues))
	if r.Language != "" {
		printKeyValue("Language", r.Language)
	}
	if len(r.Topics) > 0 {
		printKeyValue("Topics", strings.Join(r.Topics, ", "))
	}
	if r.License != "" {
		printKeyValue("License", r.License)
	}
	printKeyValue("Branch", r.DefaultBranch)
	printKeyValue("Created", r.CreatedAt.Format(time.DateOnly))
	if r.PushedAt != nil {
		printKeyValue("Pushed", formatAge(*r.PushedAt, now))
	}
	if r.Archived {
		printWarning("Archived")
	}
	printKeyValue("URL", StyleLink.Render(r.URL))
}
