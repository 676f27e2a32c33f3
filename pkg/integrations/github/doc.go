// Package github maps GitHub's repository search APIs onto search.Candidate
// values.
//
// # Shapes
//
// Two query shapes are supported, selected with [Client.Source]:
//
//   - [ShapeGraphQL]: a single POST /graphql search returning name, owner,
//     description, stars, forks, timestamps, URL and the committed date of
//     the latest commit on the default branch.
//   - [ShapeREST]: GET /search/repositories followed by one
//     GET /repos/{owner}/{repo}/commits?per_page=1 per result. An empty
//     repository (409) or an empty commit list yields a candidate without
//     a last commit, which the filter pipeline always drops.
//
// Results from the two shapes are never merged.
//
// # Usage
//
//	exec := integrations.NewExecutor(integrations.Config{Token: token}, cache, nil, logger)
//	client := github.NewClient(exec, logger)
//	searcher := search.NewSearcher(client.Source(github.ShapeGraphQL), nil, logger)
//	res, err := searcher.Search(ctx, search.Descriptor{Language: "go", Topics: []string{"cli"}}, search.Options{})
//
// # Other endpoints
//
// [Client.Repository] fetches full metadata for one repository and
// [Client.RateLimit] reports the remaining budget per resource.
package github
