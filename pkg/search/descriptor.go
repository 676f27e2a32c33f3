package search

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/reposcout/pkg/errors"
	"github.com/matzehuels/reposcout/pkg/validation"
)

// DefaultNumResults is used when a Descriptor leaves NumResults at zero.
const DefaultNumResults = 10

// Default REST pagination.
const (
	DefaultPage    = 1
	DefaultPerPage = 100
)

// Sort selects the order GitHub returns search results in.
type Sort string

const (
	SortBestMatch Sort = ""
	SortStars     Sort = "stars"
	SortForks     Sort = "forks"
	SortUpdated   Sort = "updated"
)

// Descriptor describes one repository search. Build it, call Normalize, and
// treat it as immutable afterwards.
type Descriptor struct {
	Language   string   `json:"language" mapstructure:"language" validate:"required,language"`
	Languages  []string `json:"languages,omitempty" mapstructure:"languages" validate:"dive,language"`
	Topics     []string `json:"topics,omitempty" mapstructure:"topics" validate:"dive,topic"`
	NumResults int      `json:"num_results" mapstructure:"num_results" validate:"gte=1,lte=100"`
	MinStars   *int     `json:"min_stars,omitempty" mapstructure:"min_stars" validate:"omitempty,gte=0"`
	MaxStars   *int     `json:"max_stars,omitempty" mapstructure:"max_stars" validate:"omitempty,gte=0"`
	Years      int      `json:"years,omitempty" mapstructure:"years" validate:"gte=0"`
	Months     int      `json:"months,omitempty" mapstructure:"months" validate:"gte=0"`
	Sort       Sort     `json:"sort,omitempty" mapstructure:"sort" validate:"omitempty,oneof=stars forks updated"`
	Page       int      `json:"page,omitempty" mapstructure:"page" validate:"gte=0"`
	PerPage    int      `json:"per_page,omitempty" mapstructure:"per_page" validate:"gte=0,lte=100"`
}

// Normalize returns a copy with defaults applied, language names
// lower-cased and topics lower-cased, sorted and de-duplicated.
func (d Descriptor) Normalize() Descriptor {
	d.Language = strings.ToLower(strings.TrimSpace(d.Language))
	d.Languages = normalizeSet(d.Languages)
	d.Languages = slices.DeleteFunc(d.Languages, func(l string) bool { return l == d.Language })
	d.Topics = normalizeSet(d.Topics)
	if d.NumResults == 0 {
		d.NumResults = DefaultNumResults
	}
	if d.Page == 0 {
		d.Page = DefaultPage
	}
	if d.PerPage == 0 {
		d.PerPage = DefaultPerPage
	}
	return d
}

func normalizeSet(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Validate checks field constraints and that MinStars <= MaxStars.
func (d Descriptor) Validate() error {
	if err := validation.Default().Struct(d); err != nil {
		return err
	}
	if d.MinStars != nil && d.MaxStars != nil && *d.MinStars > *d.MaxStars {
		return errors.New(errors.ErrCodeInvalidRange, "min_stars (%d) is greater than max_stars (%d)", *d.MinStars, *d.MaxStars)
	}
	return nil
}

// Query renders the GitHub search qualifiers, e.g.
// "language:go language:rust topic:cli topic:tui".
func (d Descriptor) Query() string {
	parts := make([]string, 0, 1+len(d.Languages)+len(d.Topics))
	parts = append(parts, "language:"+d.Language)
	for _, l := range d.Languages {
		parts = append(parts, "language:"+l)
	}
	for _, t := range d.Topics {
		parts = append(parts, "topic:"+t)
	}
	return strings.Join(parts, " ")
}

// Identity returns the canonical identity of the descriptor. Two
// descriptors that normalize to the same value have the same identity.
func (d Descriptor) Identity() string {
	n := d.Normalize()
	return fmt.Sprintf("lang=%s;langs=%s;topics=%s;n=%d;min=%s;max=%s;years=%d;months=%d;sort=%s;page=%d;per_page=%d",
		n.Language,
		strings.Join(n.Languages, ","),
		strings.Join(n.Topics, ","),
		n.NumResults,
		optInt(n.MinStars),
		optInt(n.MaxStars),
		n.Years,
		n.Months,
		n.Sort,
		n.Page,
		n.PerPage,
	)
}

func optInt(p *int) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(*p)
}

// Criteria derives the filter criteria for the descriptor.
func (d Descriptor) Criteria(opts Options) Criteria {
	return Criteria{
		MinStars:   d.MinStars,
		MaxStars:   d.MaxStars,
		Years:      d.Years,
		Months:     d.Months,
		NumResults: d.NumResults,
		Order:      opts.Order,
		Precedence: opts.Precedence,
	}
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }
