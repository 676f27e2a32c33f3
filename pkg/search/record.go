package search

import "time"

// Record is a repository that passed every filter.
type Record struct {
	Name        string    `json:"name" yaml:"name" toml:"name" db:"name" bson:"name"`
	Owner       string    `json:"owner" yaml:"owner" toml:"owner" db:"owner" bson:"owner"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty" db:"description" bson:"description,omitempty"`
	Stars       int       `json:"stars" yaml:"stars" toml:"stars" db:"stars" bson:"stars"`
	Forks       int       `json:"forks" yaml:"forks" toml:"forks" db:"forks" bson:"forks"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at" toml:"created_at" db:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at" toml:"updated_at" db:"updated_at" bson:"updated_at"`
	LastCommit  time.Time `json:"last_commit" yaml:"last_commit" toml:"last_commit" db:"last_commit" bson:"last_commit"`
	URL         string    `json:"url" yaml:"url" toml:"url" db:"url" bson:"url"`
}

// FullName returns "owner/name".
func (r Record) FullName() string {
	return r.Owner + "/" + r.Name
}

// Candidate is a repository as mapped from an upstream payload, before
// filtering. LastCommit is nil when the last commit could not be resolved.
type Candidate struct {
	Name        string     `json:"name"`
	Owner       string     `json:"owner"`
	Description string     `json:"description,omitempty"`
	Stars       int        `json:"stars"`
	Forks       int        `json:"forks"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastCommit  *time.Time `json:"last_commit,omitempty"`
	URL         string     `json:"url"`
}

// FullName returns "owner/name".
func (c Candidate) FullName() string {
	return c.Owner + "/" + c.Name
}

// Record converts c to a Record. ok is false when the last commit is unknown.
func (c Candidate) Record() (r Record, ok bool) {
	if c.LastCommit == nil {
		return Record{}, false
	}
	return Record{
		Name:        c.Name,
		Owner:       c.Owner,
		Description: c.Description,
		Stars:       c.Stars,
		Forks:       c.Forks,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		LastCommit:  *c.LastCommit,
		URL:         c.URL,
	}, true
}
