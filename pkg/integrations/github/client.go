package github

import (
	"context"
	stderrors "errors"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/reposcout/pkg/errors"
	"github.com/matzehuels/reposcout/pkg/integrations"
	"github.com/matzehuels/reposcout/pkg/search"
)

// Shape selects how repositories are searched.
type Shape string

const (
	// ShapeGraphQL issues one GraphQL search that returns each
	// repository's last commit inline.
	ShapeGraphQL Shape = "graphql"
	// ShapeREST issues one REST search plus one commit lookup per result.
	ShapeREST Shape = "rest"
)

// ParseShape parses "graphql" or "rest".
func ParseShape(s string) (Shape, error) {
	switch Shape(s) {
	case ShapeGraphQL, ShapeREST:
		return Shape(s), nil
	case "":
		return ShapeGraphQL, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown query shape %q (want graphql or rest)", s)
}

// Client builds GitHub queries and maps their payloads. All network access
// goes through the Executor.
type Client struct {
	exec   *integrations.Executor
	logger *log.Logger
}

// NewClient creates a Client on top of exec. A nil logger discards output.
func NewClient(exec *integrations.Executor, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Client{exec: exec, logger: logger}
}

// Source returns the search.Source for the given shape.
func (c *Client) Source(shape Shape) search.Source {
	if shape == ShapeREST {
		return search.SourceFunc(c.SearchREST)
	}
	return search.SourceFunc(c.SearchGraphQL)
}

// Repository fetches metadata for owner/repo.
func (c *Client) Repository(ctx context.Context, owner, repo string) (*Repository, error) {
	if err := ValidateRepoRef(owner, repo); err != nil {
		return nil, err
	}
	payload, err := c.exec.Execute(ctx, integrations.Request{
		Path:  fmt.Sprintf("/repos/%s/%s", owner, repo),
		Shape: string(ShapeREST),
	})
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "repository %s/%s not found", owner, repo)
		}
		return nil, err
	}

	var data apiRepoResponse
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeUpstream, err, "decode repository %s/%s", owner, repo)
	}
	r := &Repository{
		Name:          data.Name,
		FullName:      data.FullName,
		Owner:         data.Owner.Login,
		Description:   derefString(data.Description),
		Stars:         data.Stars,
		Forks:         data.Forks,
		OpenIssues:    data.OpenIssues,
		Watchers:      data.Watchers,
		Language:      data.Language,
		Topics:        data.Topics,
		DefaultBranch: data.DefaultBranch,
		Archived:      data.Archived,
		CreatedAt:     data.CreatedAt,
		UpdatedAt:     data.UpdatedAt,
		PushedAt:      data.PushedAt,
		URL:           data.HTMLURL,
	}
	if data.License != nil {
		r.License = data.License.SPDXID
	}
	return r, nil
}

// RateLimit fetches the current rate-limit status. It is never cached.
func (c *Client) RateLimit(ctx context.Context) (*RateStatus, error) {
	payload, err := c.exec.Execute(ctx, integrations.Request{
		Path:    "/rate_limit",
		Shape:   "rate_limit",
		NoCache: true,
	})
	if err != nil {
		return nil, err
	}
	var data apiRateLimitResponse
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeUpstream, err, "decode rate limit")
	}
	return &RateStatus{
		Core:    data.Resources.Core.toRate(),
		Search:  data.Resources.Search.toRate(),
		GraphQL: data.Resources.GraphQL.toRate(),
	}, nil
}

func isStatus(err error, status int) bool {
	var ue *errors.UpstreamError
	return stderrors.As(err, &ue) && ue.Status == status
}
