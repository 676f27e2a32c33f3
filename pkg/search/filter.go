package search

import (
	"fmt"
	"slices"
	"time"

	"github.com/matzehuels/reposcout/pkg/errors"
)

// Order is the ordering policy applied after filtering.
type Order int

const (
	// OrderUpstream keeps the order the candidates arrived in.
	OrderUpstream Order = iota
	// OrderStarsDesc sorts by star count, highest first. Ties keep their
	// upstream order.
	OrderStarsDesc
)

// ParseOrder parses "upstream" or "stars".
func ParseOrder(s string) (Order, error) {
	switch s {
	case "", "upstream":
		return OrderUpstream, nil
	case "stars":
		return OrderStarsDesc, nil
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown order %q (want upstream or stars)", s)
}

func (o Order) String() string {
	if o == OrderStarsDesc {
		return "stars"
	}
	return "upstream"
}

// Precedence decides which recency window applies when both years and
// months are set.
type Precedence int

const (
	// YearsFirst uses years*365 days when years > 0, else months*30 days.
	YearsFirst Precedence = iota
	// MonthsFirst uses months*30 days when months > 0, else years*365 days.
	MonthsFirst
)

// ParsePrecedence parses "years" or "months".
func ParsePrecedence(s string) (Precedence, error) {
	switch s {
	case "", "years":
		return YearsFirst, nil
	case "months":
		return MonthsFirst, nil
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown precedence %q (want years or months)", s)
}

func (p Precedence) String() string {
	if p == MonthsFirst {
		return "months"
	}
	return "years"
}

const (
	day   = 24 * time.Hour
	year  = 365 * day
	month = 30 * day
)

// Criteria are the exclusion predicates and policies applied by Filter.
type Criteria struct {
	MinStars   *int
	MaxStars   *int
	Years      int
	Months     int
	NumResults int // 0 keeps every survivor
	Order      Order
	Precedence Precedence
}

// Window returns the recency window, or 0 when no recency filter applies.
func (c Criteria) Window() time.Duration {
	years := time.Duration(c.Years) * year
	months := time.Duration(c.Months) * month
	if c.Precedence == MonthsFirst {
		years, months = months, years
	}
	if years > 0 {
		return years
	}
	return max(months, 0)
}

// Reject reports why cand would be excluded at now, or "" if it is kept.
// Predicates are checked in pipeline order.
func Reject(cand Candidate, c Criteria, now time.Time) string {
	if cand.LastCommit == nil {
		return "no last commit"
	}
	if c.MinStars != nil && cand.Stars < *c.MinStars {
		return fmt.Sprintf("%d stars < min %d", cand.Stars, *c.MinStars)
	}
	if c.MaxStars != nil && cand.Stars > *c.MaxStars {
		return fmt.Sprintf("%d stars > max %d", cand.Stars, *c.MaxStars)
	}
	if w := c.Window(); w > 0 {
		cutoff := now.Add(-w)
		if cand.LastCommit.Before(cutoff) {
			return fmt.Sprintf("last commit %s before %s", cand.LastCommit.Format(time.DateOnly), cutoff.Format(time.DateOnly))
		}
	}
	return ""
}

// Filter applies the exclusion predicates, the ordering policy and
// truncation. It does not modify cands.
func Filter(cands []Candidate, c Criteria, now time.Time) []Record {
	records := Matching(cands, c, now)
	if c.NumResults > 0 && len(records) > c.NumResults {
		records = records[:c.NumResults]
	}
	return records
}

// Matching is Filter without truncation.
func Matching(cands []Candidate, c Criteria, now time.Time) []Record {
	records := make([]Record, 0, len(cands))
	for _, cand := range cands {
		if Reject(cand, c, now) != "" {
			continue
		}
		r, _ := cand.Record()
		records = append(records, r)
	}
	if c.Order == OrderStarsDesc {
		slices.SortStableFunc(records, func(a, b Record) int {
			return b.Stars - a.Stars
		})
	}
	return records
}
