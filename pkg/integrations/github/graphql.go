package github

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/matzehuels/reposcout/pkg/cache"
	"github.com/matzehuels/reposcout/pkg/errors"
	"github.com/matzehuels/reposcout/pkg/integrations"
	"github.com/matzehuels/reposcout/pkg/search"
)

// searchRepositoriesQuery fetches repositories matching a search string
// together with the date of the latest commit on the default branch.
const searchRepositoriesQuery = `
	query searchRepositories($query: String!, $first: Int!) {
		search(query: $query, type: REPOSITORY, first: $first) {
			repositoryCount
			nodes {
				... on Repository {
					name
					owner {
						login
					}
					description
					stargazers {
						totalCount
					}
					forks {
						totalCount
					}
					createdAt
					updatedAt
					url
					defaultBranchRef {
						target {
							... on Commit {
								history(first: 1) {
									edges {
										node {
											committedDate
										}
									}
								}
							}
						}
					}
				}
			}
		}
	}
`

// searchDocument is the parsed query; parsing at init catches syntax errors
// before any request is made.
var searchDocument = mustParseQuery(searchRepositoriesQuery)

func mustParseQuery(q string) *ast.QueryDocument {
	doc, err := parser.ParseQuery(&ast.Source{Name: "searchRepositories", Input: q})
	if err != nil {
		panic(err)
	}
	return doc
}

// OperationName returns the name of the GraphQL search operation.
func OperationName() string {
	return searchDocument.Operations[0].Name
}

type graphqlRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables"`
}

type graphqlResponse struct {
	Data   *graphqlSearchData `json:"data"`
	Errors gqlerror.List      `json:"errors"`
}

type graphqlSearchData struct {
	Search struct {
		RepositoryCount int           `json:"repositoryCount"`
		Nodes           []graphqlNode `json:"nodes"`
	} `json:"search"`
}

type graphqlNode struct {
	Name  string `json:"name"`
	Owner struct {
		Login string `json:"login"`
	} `json:"owner"`
	Description *string `json:"description"`
	Stargazers  struct {
		TotalCount int `json:"totalCount"`
	} `json:"stargazers"`
	Forks struct {
		TotalCount int `json:"totalCount"`
	} `json:"forks"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
	URL              string    `json:"url"`
	DefaultBranchRef *struct {
		Target *struct {
			History *struct {
				Edges []struct {
					Node struct {
						CommittedDate time.Time `json:"committedDate"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"history"`
		} `json:"target"`
	} `json:"defaultBranchRef"`
}

func (n graphqlNode) lastCommit() *time.Time {
	ref := n.DefaultBranchRef
	if ref == nil || ref.Target == nil || ref.Target.History == nil || len(ref.Target.History.Edges) == 0 {
		return nil
	}
	t := ref.Target.History.Edges[0].Node.CommittedDate
	if t.IsZero() {
		return nil
	}
	return &t
}

func (n graphqlNode) candidate() search.Candidate {
	return search.Candidate{
		Name:        n.Name,
		Owner:       n.Owner.Login,
		Description: derefString(n.Description),
		Stars:       n.Stargazers.TotalCount,
		Forks:       n.Forks.TotalCount,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
		LastCommit:  n.lastCommit(),
		URL:         n.URL,
	}
}

// graphqlSearchString is the search string sent as $query.
func graphqlSearchString(d search.Descriptor) string {
	q := d.Query()
	if d.Sort != search.SortBestMatch {
		q += " sort:" + string(d.Sort) + "-desc"
	}
	return q
}

// SearchGraphQL runs the GraphQL search for d and maps every returned node.
// It requests d.NumResults nodes; filtering happens afterwards.
func (c *Client) SearchGraphQL(ctx context.Context, d search.Descriptor) ([]search.Candidate, error) {
	d = d.Normalize()
	body := graphqlRequest{
		Query:         searchRepositoriesQuery,
		OperationName: OperationName(),
		Variables: map[string]any{
			"query": graphqlSearchString(d),
			"first": d.NumResults,
		},
	}

	payload, err := c.exec.Execute(ctx, integrations.Request{
		Method: http.MethodPost,
		Path:   "/graphql",
		Body:   body,
		Key:    cache.Key(string(ShapeGraphQL), d.Identity()),
		Shape:  string(ShapeGraphQL),
		Check:  checkGraphQL,
	})
	if err != nil {
		return nil, err
	}

	var resp graphqlResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, errors.Wrap(errors.ErrCodeUpstream, err, "decode graphql response")
	}
	if len(resp.Errors) > 0 {
		c.logger.Warn("graphql returned partial errors", "errors", resp.Errors.Error())
	}
	if resp.Data == nil {
		return nil, nil
	}

	nodes := resp.Data.Search.Nodes
	out := make([]search.Candidate, 0, len(nodes))
	for _, n := range nodes {
		if n.Name == "" {
			continue
		}
		out = append(out, n.candidate())
	}
	c.logger.Debug("graphql search", "query", body.Variables["query"], "total", resp.Data.Search.RepositoryCount, "returned", len(out))
	return out, nil
}

// checkGraphQL rejects responses that carry errors and no data, so they are
// neither cached nor mapped.
func checkGraphQL(payload []byte) error {
	var resp graphqlResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return &errors.UpstreamError{Status: http.StatusOK, Body: string(payload), Cause: err}
	}
	if resp.Data == nil && len(resp.Errors) > 0 {
		return &errors.UpstreamError{Status: http.StatusOK, Body: resp.Errors.Error()}
	}
	return nil
}
