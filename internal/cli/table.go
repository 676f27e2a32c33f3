package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/matzehuels/reposcout/pkg/integrations/github"
	"github.com/matzehuels/reposcout/pkg/search"
	"github.com/matzehuels/reposcout/pkg/storage"
)

// descriptionWidth truncates descriptions in tables.
const descriptionWidth = 48

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

// renderRecords writes records as a table, numbered from 1.
func renderRecords(w io.Writer, records []search.Record, now time.Time) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Repository", "Stars", "Forks", "Last Commit", "Description"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Stars", Align: text.AlignRight},
		{Name: "Forks", Align: text.AlignRight},
	})
	for i, r := range records {
		t.AppendRow(table.Row{
			i + 1,
			r.FullName(),
			formatCount(r.Stars),
			formatCount(r.Forks),
			formatAge(r.LastCommit, now),
			truncate(r.Description, descriptionWidth),
		})
	}
	t.Render()
}

// renderCandidates writes unfiltered candidates. Unknown commits show as "?".
func renderCandidates(w io.Writer, cands []search.Candidate, now time.Time) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Repository", "Stars", "Last Commit", "Description"})
	t.SetColumnConfigs([]table.ColumnConfig{{Name: "Stars", Align: text.AlignRight}})
	for _, c := range cands {
		last := "?"
		if c.LastCommit != nil {
			last = formatAge(*c.LastCommit, now)
		}
		t.AppendRow(table.Row{c.FullName(), formatCount(c.Stars), last, truncate(c.Description, descriptionWidth)})
	}
	t.Render()
}

// renderRuns writes saved runs without their records.
func renderRuns(w io.Writer, runs []storage.Run) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "When", "Query", "Shape", "Fetched", "Matched"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID.String(),
			r.At.Local().Format("2006-01-02 15:04"),
			r.Query,
			r.Shape,
			r.Fetched,
			r.Matched,
		})
	}
	t.Render()
}

// renderRate writes the rate-limit buckets.
func renderRate(w io.Writer, status *github.RateStatus, now time.Time) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Bucket", "Remaining", "Limit", "Used", "Resets"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Remaining", Align: text.AlignRight},
		{Name: "Limit", Align: text.AlignRight},
		{Name: "Used", Align: text.AlignRight},
	})
	for _, b := range []struct {
		name string
		rate github.Rate
	}{
		{"core", status.Core},
		{"search", status.Search},
		{"graphql", status.GraphQL},
	} {
		t.AppendRow(table.Row{b.name, b.rate.Remaining, b.rate.Limit, b.rate.Used, formatUntil(b.rate.Reset, now)})
	}
	t.Render()
}

// =============================================================================
// Formatting
// =============================================================================

func formatCount(n int) string {
	switch {
	case n >= 1_000_000:
		return strconv.FormatFloat(float64(n)/1_000_000, 'f', 1, 64) + "M"
	case n >= 10_000:
		return strconv.Itoa(n/1000) + "k"
	case n >= 1000:
		return strconv.FormatFloat(float64(n)/1000, 'f', 1, 64) + "k"
	default:
		return strconv.Itoa(n)
	}
}

// formatAge renders how long ago t was, relative to now.
func formatAge(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < 0:
		return t.Format("Jan 2, 2006")
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}

func formatUntil(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := t.Sub(now)
	if d <= 0 {
		return "now"
	}
	return "in " + d.Round(time.Second).String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
