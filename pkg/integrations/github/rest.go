package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/matzehuels/reposcout/pkg/cache"
	"github.com/matzehuels/reposcout/pkg/errors"
	"github.com/matzehuels/reposcout/pkg/integrations"
	"github.com/matzehuels/reposcout/pkg/search"
)

// ProgressFunc is called after each per-repository commit lookup.
type ProgressFunc func(done, total int)

type progressKey struct{}

// WithProgress returns a context that reports REST commit lookups to fn.
func WithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	return context.WithValue(ctx, progressKey{}, fn)
}

func progressFrom(ctx context.Context) ProgressFunc {
	if fn, ok := ctx.Value(progressKey{}).(ProgressFunc); ok && fn != nil {
		return fn
	}
	return func(int, int) {}
}

// SearchREST runs GET /search/repositories for d and resolves each result's
// last commit with GET /repos/{owner}/{repo}/commits?per_page=1.
func (c *Client) SearchREST(ctx context.Context, d search.Descriptor) ([]search.Candidate, error) {
	d = d.Normalize()
	q := url.Values{}
	q.Set("q", d.Query())
	q.Set("per_page", strconv.Itoa(d.PerPage))
	q.Set("page", strconv.Itoa(d.Page))
	if d.Sort != search.SortBestMatch {
		q.Set("sort", string(d.Sort))
		q.Set("order", "desc")
	}

	payload, err := c.exec.Execute(ctx, integrations.Request{
		Path:  "/search/repositories",
		Query: q,
		Key:   cache.Key(string(ShapeREST), d.Identity()),
		Shape: string(ShapeREST),
	})
	if err != nil {
		return nil, err
	}

	var resp apiSearchResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, errors.Wrap(errors.ErrCodeUpstream, err, "decode search response")
	}
	c.logger.Debug("rest search", "query", d.Query(), "total", resp.TotalCount, "returned", len(resp.Items))

	progress := progressFrom(ctx)
	out := make([]search.Candidate, 0, len(resp.Items))
	for i, item := range resp.Items {
		last, err := c.LastCommit(ctx, item.Owner.Login, item.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, search.Candidate{
			Name:        item.Name,
			Owner:       item.Owner.Login,
			Description: derefString(item.Description),
			Stars:       item.Stars,
			Forks:       item.Forks,
			CreatedAt:   item.CreatedAt,
			UpdatedAt:   item.UpdatedAt,
			LastCommit:  last,
			URL:         item.HTMLURL,
		})
		progress(i+1, len(resp.Items))
	}
	return out, nil
}

// LastCommit returns the author date of the newest commit on the default
// branch, or nil when the repository is empty or gone.
func (c *Client) LastCommit(ctx context.Context, owner, repo string) (*time.Time, error) {
	payload, err := c.exec.Execute(ctx, integrations.Request{
		Path:  fmt.Sprintf("/repos/%s/%s/commits", owner, repo),
		Query: url.Values{"per_page": {"1"}},
		Shape: "commits",
	})
	if err != nil {
		// 409: repository is empty. 404: deleted or made private since the search.
		if isStatus(err, http.StatusConflict) || isStatus(err, http.StatusNotFound) {
			c.logger.Debug("no commits", "repo", owner+"/"+repo, "error", err)
			return nil, nil
		}
		return nil, err
	}

	var commits []apiCommit
	if err := json.Unmarshal(payload, &commits); err != nil {
		return nil, errors.Wrap(errors.ErrCodeUpstream, err, "decode commits for %s/%s", owner, repo)
	}
	if len(commits) == 0 {
		return nil, nil
	}
	t := commits[0].Commit.Author.Date
	if t.IsZero() {
		t = commits[0].Commit.Committer.Date
	}
	if t.IsZero() {
		return nil, nil
	}
	return &t, nil
}
