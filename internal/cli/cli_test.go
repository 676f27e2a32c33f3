package cli

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/matzehuels/reposcout/internal/config"
	"github.com/matzehuels/reposcout/pkg/cache"
	"github.com/matzehuels/reposcout/pkg/errors"
	"github.com/matzehuels/reposcout/pkg/integrations/github"
	"github.com/matzehuels/reposcout/pkg/search"
)

// testEnv isolates config and cache lookups and points the client at url.
func testEnv(t *testing.T, url string) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("GITHUB_TOKEN", "test-token")
	t.Setenv("REPOSCOUT_GITHUB_TOKEN", "")
	t.Setenv("REPOSCOUT_GITHUB_BASE_URL", url)
	t.Setenv("REPOSCOUT_CACHE_BACKEND", "memory")
	t.Setenv("REPOSCOUT_GITHUB_COURTESY_DELAY", "-1ns")
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func graphqlNode(name string, stars int, commit time.Time) string {
	return fmt.Sprintf(`{
		"name": %q,
		"owner": {"login": "o"},
		"description": "the %s project",
		"stargazers": {"totalCount": %d},
		"forks": {"totalCount": 1},
		"createdAt": "2015-01-01T00:00:00Z",
		"updatedAt": %q,
		"url": "https://github.com/o/%s",
		"defaultBranchRef": {"target": {"history": {"edges": [{"node": {"committedDate": %q}}]}}}
	}`, name, name, stars, commit.Format(time.RFC3339), name, commit.Format(time.RFC3339))
}

func newGitHubServer(t *testing.T) *httptest.Server {
	t.Helper()
	now := time.Now().UTC()
	nodes := []string{
		graphqlNode("active", 100, now.Add(-48*time.Hour)),
		graphqlNode("old", 500, now.AddDate(-5, 0, 0)),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data": {"search": {"repositoryCount": 2, "nodes": [%s]}}}`, strings.Join(nodes, ","))
	})
	mux.HandleFunc("/repos/spf13/cobra", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{
			"name": "cobra",
			"full_name": "spf13/cobra",
			"description": "A Commander for modern Go CLI interactions",
			"owner": {"login": "spf13"},
			"stargazers_count": 38000,
			"forks_count": 2800,
			"default_branch": "main",
			"created_at": "2013-09-03T20:40:26Z",
			"updated_at": "2024-05-30T10:00:00Z",
			"html_url": "https://github.com/spf13/cobra",
			"license": {"spdx_id": "Apache-2.0"}
		}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestRootCommandSubcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	want := []string{"search", "repo", "rate", "history", "serve", "cache", "completion"}
	for _, name := range want {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestSearchCommandJSON(t *testing.T) {
	server := newGitHubServer(t)
	testEnv(t, server.URL)

	out, err := runCLI(t, "search", "go", "--years", "1", "--format", "json", "-n", "5")
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	var records []search.Record
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if len(records) != 1 || records[0].FullName() != "o/active" {
		t.Errorf("records = %+v, want only o/active", records)
	}
}

func TestSearchCommandExport(t *testing.T) {
	server := newGitHubServer(t)
	testEnv(t, server.URL)

	path := filepath.Join(t.TempDir(), "out.csv")
	out, err := runCLI(t, "search", "-l", "go", "--order", "stars", "-o", path, "--format", "csv")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if string(data) != out {
		t.Errorf("file and stdout differ:\nfile:\n%s\nstdout:\n%s", data, out)
	}
	if !strings.Contains(out, "https://github.com/o/active") {
		t.Errorf("csv missing repository link:\n%s", out)
	}
}

func TestSearchCommandFallback(t *testing.T) {
	server := newGitHubServer(t)
	testEnv(t, server.URL)

	out, err := runCLI(t, "search", "go", "--stars", ">1000")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, name := range []string{"o/active", "o/old"} {
		if !strings.Contains(out, name) {
			t.Errorf("fallback listing should contain %s, got:\n%s", name, out)
		}
	}
}

func TestSearchCommandInvalidInput(t *testing.T) {
	server := newGitHubServer(t)
	testEnv(t, server.URL)

	tests := [][]string{
		{"search"},
		{"search", "go", "--stars", "lots"},
		{"search", "go", "--stars", ">5", "--min-stars", "3"},
		{"search", "go", "--shape", "soap"},
		{"search", "go", "--format", "xml"},
		{"search", "go", "--language", "rust"},
	}
	for _, args := range tests {
		if _, err := runCLI(t, args...); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestSearchCommandCancelled(t *testing.T) {
	server := newGitHubServer(t)
	testEnv(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	root := New(io.Discard, LogInfo).RootCommand()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"search", "go"})
	if err := root.ExecuteContext(ctx); !stderrors.Is(err, context.Canceled) {
		t.Fatalf("search with cancelled context = %v, want context.Canceled", err)
	}
}

func TestSearchLanguagesHelp(t *testing.T) {
	flags := pflag.NewFlagSet("search", pflag.ContinueOnError)
	(&searchFlags{}).register(flags)
	if usage := flags.Lookup("languages").Usage; !strings.Contains(usage, "any may match") {
		t.Errorf("--languages usage = %q, want OR semantics", usage)
	}
}

func TestAnalyzedRecord(t *testing.T) {
	commit := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	rec := search.Record{Name: "cobra", Owner: "spf13", Stars: 10, LastCommit: commit, URL: "https://github.com/spf13/cobra"}
	repo := &github.Repository{
		Description: "A Commander for modern Go CLI interactions",
		Stars:       36000,
		Forks:       2800,
		CreatedAt:   time.Date(2013, 9, 3, 0, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	got := analyzedRecord(rec, repo)
	if got.Stars != 36000 || got.Forks != 2800 || got.Description != repo.Description {
		t.Errorf("analyzedRecord() = %+v, want repository metadata", got)
	}
	if !got.LastCommit.Equal(commit) {
		t.Errorf("LastCommit = %v, want %v", got.LastCommit, commit)
	}
	if got.URL != rec.URL {
		t.Errorf("URL = %q, want %q", got.URL, rec.URL)
	}
	if got.FullName() != "spf13/cobra" {
		t.Errorf("FullName() = %q", got.FullName())
	}
}

func TestSearchFlagsDescriptor(t *testing.T) {
	cfg := &config.Config{Search: config.SearchConfig{NumResults: 7}}

	tests := []struct {
		name    string
		args    []string
		wantMin *int
		wantMax *int
		wantErr errors.Code
	}{
		{name: "no bounds", args: []string{"-l", "Go"}},
		{name: "min and max", args: []string{"-l", "go", "--min-stars", "0", "--max-stars", "50"}, wantMin: search.IntPtr(0), wantMax: search.IntPtr(50)},
		{name: "range", args: []string{"-l", "go", "--stars", "10-20"}, wantMin: search.IntPtr(10), wantMax: search.IntPtr(20)},
		{name: "reversed", args: []string{"-l", "go", "--min-stars", "9", "--max-stars", "1"}, wantErr: errors.ErrCodeInvalidRange},
		{name: "missing language", args: []string{"-t", "cli"}, wantErr: errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &searchFlags{}
			flags := pflag.NewFlagSet("search", pflag.ContinueOnError)
			f.register(flags)
			if err := flags.Parse(tt.args); err != nil {
				t.Fatalf("parse: %v", err)
			}

			d, err := f.descriptor(flags, cfg)
			if tt.wantErr != "" {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want code %s", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("descriptor: %v", err)
			}
			if d.Language != "go" || d.NumResults != 7 {
				t.Errorf("descriptor = %+v", d)
			}
			if !equalIntPtr(d.MinStars, tt.wantMin) || !equalIntPtr(d.MaxStars, tt.wantMax) {
				t.Errorf("stars = %v..%v, want %v..%v", d.MinStars, d.MaxStars, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func TestRepoCommandJSON(t *testing.T) {
	server := newGitHubServer(t)
	testEnv(t, server.URL)

	out, err := runCLI(t, "repo", "spf13/cobra", "--json")
	if err != nil {
		t.Fatalf("repo: %v", err)
	}
	var repo github.Repository
	if err := json.Unmarshal([]byte(out), &repo); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if repo.FullName != "spf13/cobra" || repo.Stars != 38000 || repo.License != "Apache-2.0" {
		t.Errorf("repo = %+v", repo)
	}
}

func TestCachePathCommand(t *testing.T) {
	testEnv(t, "https://api.github.com")
	cacheHome := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cacheHome)

	out, err := runCLI(t, "cache", "path")
	if err != nil {
		t.Fatalf("cache path: %v", err)
	}
	if want := filepath.Join(cacheHome, appName); strings.TrimSpace(out) != want {
		t.Errorf("cache path = %q, want %q", out, want)
	}
}

func TestNewCacheBackends(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name    string
		backend string
		noCache bool
		check   func(cache.Cache) bool
	}{
		{"memory", config.CacheMemory, false, func(c cache.Cache) bool { _, ok := c.(*cache.MemoryCache); return ok }},
		{"none", config.CacheNone, false, func(c cache.Cache) bool { _, ok := c.(*cache.NullCache); return ok }},
		{"file", config.CacheFile, false, func(c cache.Cache) bool { _, ok := c.(*cache.FileCache); return ok }},
		{"no-cache overrides", config.CacheFile, true, func(c cache.Cache) bool { _, ok := c.(*cache.NullCache); return ok }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Cache: config.CacheConfig{Backend: tt.backend, Dir: dir}}
			c, err := newCache(ctx, cfg, tt.noCache)
			if err != nil {
				t.Fatalf("newCache: %v", err)
			}
			defer c.Close()
			if !tt.check(c) {
				t.Errorf("unexpected cache type %T", c)
			}
		})
	}
}

func TestRecordListModel(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	records := []search.Record{
		{Name: "a", Owner: "o", Stars: 10, LastCommit: now.Add(-time.Hour)},
		{Name: "b", Owner: "o", Stars: 20, LastCommit: now.Add(-48 * time.Hour)},
	}
	var m tea.Model = NewRecordListModel(records, now)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if got := m.(RecordListModel).Cursor; got != 0 {
		t.Fatalf("cursor moved above first row: %d", got)
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if got := m.(RecordListModel).Cursor; got != 1 {
		t.Fatalf("cursor = %d, want 1", got)
	}
	if view := m.View(); !strings.Contains(view, "o/b") || !strings.Contains(view, "[2/2]") {
		t.Errorf("view missing content:\n%s", view)
	}

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Error("enter should quit")
	}
	sel := m.(RecordListModel).Selected
	if sel == nil || sel.FullName() != "o/b" {
		t.Errorf("selected = %+v, want o/b", sel)
	}
}

func TestRenderRecords(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	renderRecords(&buf, []search.Record{
		{Name: "cobra", Owner: "spf13", Stars: 38000, Forks: 2800, LastCommit: now.Add(-3 * time.Hour), Description: "CLI library"},
	}, now)

	out := buf.String()
	for _, want := range []string{"spf13/cobra", "38k", "2.8k", "3h ago", "CLI library"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		t    time.Time
		want string
	}{
		{now.Add(-5 * time.Minute), "5m ago"},
		{now.Add(-5 * time.Hour), "5h ago"},
		{now.Add(-72 * time.Hour), "3d ago"},
		{time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC), "Mar 4, 2021"},
	}
	for _, tt := range tests {
		if got := formatAge(tt.t, now); got != tt.want {
			t.Errorf("formatAge(%v) = %q, want %q", tt.t, got, tt.want)
		}
	}
}

func TestFormatCount(t *testing.T) {
	tests := map[int]string{7: "7", 1500: "1.5k", 38000: "38k", 2_300_000: "2.3M"}
	for n, want := range tests {
		if got := formatCount(n); got != want {
			t.Errorf("formatCount(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate kept = %q", got)
	}
	if got := truncate("a very long description", 6); got != "a ver…" {
		t.Errorf("truncate = %q", got)
	}
}
