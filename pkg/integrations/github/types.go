package github

import "time"

// Repository is the metadata returned by GET /repos/{owner}/{repo}.
type Repository struct {
	Name          string     `json:"name"`
	FullName      string     `json:"full_name"`
	Owner         string     `json:"owner"`
	Description   string     `json:"description,omitempty"`
	Stars         int        `json:"stars"`
	Forks         int        `json:"forks"`
	OpenIssues    int        `json:"open_issues"`
	Watchers      int        `json:"watchers"`
	Language      string     `json:"language,omitempty"`
	Topics        []string   `json:"topics,omitempty"`
	License       string     `json:"license,omitempty"`
	DefaultBranch string     `json:"default_branch"`
	Archived      bool       `json:"archived"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	PushedAt      *time.Time `json:"pushed_at,omitempty"`
	URL           string     `json:"url"`
}

// Rate is one rate-limit bucket from GET /rate_limit.
type Rate struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Used      int       `json:"used"`
	Reset     time.Time `json:"reset"`
}

// RateStatus is the decoded GET /rate_limit response.
type RateStatus struct {
	Core    Rate `json:"core"`
	Search  Rate `json:"search"`
	GraphQL Rate `json:"graphql"`
}

// apiRepoResponse is the REST repository object, as returned both by
// /repos/{owner}/{repo} and inside /search/repositories items.
type apiRepoResponse struct {
	Name        string  `json:"name"`
	FullName    string  `json:"full_name"`
	Description *string `json:"description"`
	Owner       struct {
		Login string `json:"login"`
	} `json:"owner"`
	Stars         int        `json:"stargazers_count"`
	Forks         int        `json:"forks_count"`
	OpenIssues    int        `json:"open_issues_count"`
	Watchers      int        `json:"subscribers_count"`
	Language      string     `json:"language"`
	Topics        []string   `json:"topics"`
	DefaultBranch string     `json:"default_branch"`
	Archived      bool       `json:"archived"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	PushedAt      *time.Time `json:"pushed_at"`
	HTMLURL       string     `json:"html_url"`
	License       *struct {
		SPDXID string `json:"spdx_id"`
	} `json:"license"`
}

type apiSearchResponse struct {
	TotalCount int               `json:"total_count"`
	Items      []apiRepoResponse `json:"items"`
}

type apiCommit struct {
	Commit struct {
		Author struct {
			Date time.Time `json:"date"`
		} `json:"author"`
		Committer struct {
			Date time.Time `json:"date"`
		} `json:"committer"`
	} `json:"commit"`
}

type apiRate struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	Used      int   `json:"used"`
	Reset     int64 `json:"reset"`
}

type apiRateLimitResponse struct {
	Resources struct {
		Core    apiRate `json:"core"`
		Search  apiRate `json:"search"`
		GraphQL apiRate `json:"graphql"`
	} `json:"resources"`
}

func (r apiRate) toRate() Rate {
	return Rate{Limit: r.Limit, Remaining: r.Remaining, Used: r.Used, Reset: time.Unix(r.Reset, 0)}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
