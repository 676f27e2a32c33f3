package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/reposcout/pkg/errors"
)

func TestDescriptorNormalize(t *testing.T) {
	d := Descriptor{
		Language:  " Go ",
		Languages: []string{"Rust", "go", "rust"},
		Topics:    []string{"TUI", "cli", "tui", ""},
	}.Normalize()

	assert.Equal(t, "go", d.Language)
	assert.Equal(t, []string{"rust"}, d.Languages)
	assert.Equal(t, []string{"cli", "tui"}, d.Topics)
	assert.Equal(t, DefaultNumResults, d.NumResults)
	assert.Equal(t, DefaultPage, d.Page)
	assert.Equal(t, DefaultPerPage, d.PerPage)
}

func TestDescriptorIdentity(t *testing.T) {
	a := Descriptor{Language: "Python", Topics: []string{"web", "api"}, MinStars: IntPtr(100)}
	b := Descriptor{Language: "python", Topics: []string{"api", "web", "api"}, MinStars: IntPtr(100), NumResults: 10}
	assert.Equal(t, a.Identity(), b.Identity())

	c := b
	c.MaxStars = IntPtr(100)
	assert.NotEqual(t, b.Identity(), c.Identity())

	d := b
	d.NumResults = 20
	assert.NotEqual(t, b.Identity(), d.Identity())

	assert.Equal(t,
		"lang=python;langs=;topics=api,web;n=10;min=100;max=-;years=0;months=0;sort=;page=1;per_page=100",
		a.Identity())
}

func TestDescriptorQuery(t *testing.T) {
	d := Descriptor{Language: "go", Languages: []string{"rust"}, Topics: []string{"tui", "cli"}}.Normalize()
	assert.Equal(t, "language:go language:rust topic:cli topic:tui", d.Query())
}

func TestDescriptorValidate(t *testing.T) {
	tests := []struct {
		name string
		d    Descriptor
		code errors.Code
	}{
		{"valid", Descriptor{Language: "go"}, ""},
		{"missing language", Descriptor{}, errors.ErrCodeInvalidInput},
		{"bad language", Descriptor{Language: "go lang"}, errors.ErrCodeInvalidInput},
		{"bad topic", Descriptor{Language: "go", Topics: []string{"a b"}}, errors.ErrCodeInvalidInput},
		{"too many results", Descriptor{Language: "go", NumResults: 101}, errors.ErrCodeInvalidInput},
		{"negative years", Descriptor{Language: "go", Years: -1}, errors.ErrCodeInvalidInput},
		{"bad sort", Descriptor{Language: "go", Sort: "name"}, errors.ErrCodeInvalidInput},
		{"reversed stars", Descriptor{Language: "go", MinStars: IntPtr(10), MaxStars: IntPtr(5)}, errors.ErrCodeInvalidRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.d.Normalize().Validate()
			if tt.code == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}

func TestParseStarRange(t *testing.T) {
	tests := []struct {
		in       string
		min, max *int
		wantErr  bool
	}{
		{"", nil, nil, false},
		{"*", nil, nil, false},
		{">100", IntPtr(100), nil, false},
		{">=100", IntPtr(100), nil, false},
		{"<500", nil, IntPtr(500), false},
		{"<= 500", nil, IntPtr(500), false},
		{"100-500", IntPtr(100), IntPtr(500), false},
		{" 100 - 500 ", IntPtr(100), IntPtr(500), false},

		{"500-100", nil, nil, true},
		{">abc", nil, nil, true},
		{"100", nil, nil, true},
		{"-5", nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			lo, hi, err := ParseStarRange(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrCodeInvalidRange))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.min, lo)
			assert.Equal(t, tt.max, hi)
		})
	}
}
