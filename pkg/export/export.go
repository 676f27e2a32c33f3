package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/reposcout/pkg/errors"
	"github.com/matzehuels/reposcout/pkg/search"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Formats lists every supported format.
var Formats = []Format{FormatCSV, FormatJSON, FormatYAML, FormatTOML}

// csvHeader is the column layout of CSV exports.
var csvHeader = []string{
	"Repository", "Owner", "Description", "Stars", "Forks",
	"Created At", "Updated At", "Last Commit", "Link",
}

// ParseFormat parses a format name. "yml" is accepted for YAML.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatYAML, FormatTOML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unknown export format %q (want csv, json, yaml or toml)", s)
}

// FormatFromPath infers the format from the file extension of path.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", errors.New(errors.ErrCodeInvalidFormat, "cannot infer export format from %q: no file extension", path)
	}
	return ParseFormat(ext)
}

// Write encodes records to w in the given format.
func Write(w io.Writer, format Format, records []search.Record) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, records)
	case FormatJSON:
		return WriteJSON(w, records)
	case FormatYAML:
		return WriteYAML(w, records)
	case FormatTOML:
		return WriteTOML(w, records)
	}
	return errors.New(errors.ErrCodeInvalidFormat, "unknown export format %q", format)
}

// WriteFile writes records to path, choosing the format from its extension.
func WriteFile(path string, records []search.Record) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(f, format, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteCSV writes a header row followed by one row per record.
func WriteCSV(w io.Writer, records []search.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Name,
			r.Owner,
			r.Description,
			strconv.Itoa(r.Stars),
			strconv.Itoa(r.Forks),
			formatTime(r.CreatedAt),
			formatTime(r.UpdatedAt),
			formatTime(r.LastCommit),
			r.URL,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.FullName(), err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes records as an indented JSON array.
func WriteJSON(w io.Writer, records []search.Record) error {
	if records == nil {
		records = []search.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// WriteYAML writes records as a YAML sequence.
func WriteYAML(w io.Writer, records []search.Record) error {
	if records == nil {
		records = []search.Record{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// tomlDocument wraps records because a TOML document must be a table.
type tomlDocument struct {
	Repositories []search.Record `toml:"repositories"`
}

// WriteTOML writes records as [[repositories]] tables.
func WriteTOML(w io.Writer, records []search.Record) error {
	if err := toml.NewEncoder(w).Encode(tomlDocument{Repositories: records}); err != nil {
		return fmt.Errorf("encode toml: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
