package search

import (
	"strconv"
	"strings"

	"github.com/matzehuels/reposcout/pkg/errors"
)

// ParseStarRange parses a star range expression:
//
//	">100" or ">=100"   at least 100 stars
//	"<500" or "<=500"   at most 500 stars
//	"100-500"           between 100 and 500 stars
//	"" or "*"           no bound
//
// Both bounds are inclusive. A nil pointer means unbounded on that side.
func ParseStarRange(s string) (minStars, maxStars *int, err error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return nil, nil, nil
	}

	parse := func(v string) (*int, error) {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 0 {
			return nil, errors.New(errors.ErrCodeInvalidRange, "invalid star count %q in range %q", v, s)
		}
		return &n, nil
	}

	switch {
	case strings.HasPrefix(s, ">"):
		minStars, err = parse(strings.TrimPrefix(strings.TrimPrefix(s, ">"), "="))
		return minStars, nil, err
	case strings.HasPrefix(s, "<"):
		maxStars, err = parse(strings.TrimPrefix(strings.TrimPrefix(s, "<"), "="))
		return nil, maxStars, err
	case strings.Contains(s, "-"):
		lo, hi, _ := strings.Cut(s, "-")
		if minStars, err = parse(lo); err != nil {
			return nil, nil, err
		}
		if maxStars, err = parse(hi); err != nil {
			return nil, nil, err
		}
		if *minStars > *maxStars {
			return nil, nil, errors.New(errors.ErrCodeInvalidRange, "star range %q is reversed", s)
		}
		return minStars, maxStars, nil
	default:
		return nil, nil, errors.New(errors.ErrCodeInvalidRange, "invalid star range %q (use >N, <N or N-M)", s)
	}
}
