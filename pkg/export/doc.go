// Package export writes search records to files.
//
// # Formats
//
// Four formats are supported, selected by [Format] or inferred from a file
// extension with [FormatFromPath]:
//
//   - csv: one row per record with the columns Repository, Owner,
//     Description, Stars, Forks, Created At, Updated At, Last Commit, Link
//   - json: an array of record objects
//   - yaml: a sequence of record mappings
//   - toml: an array of tables under the "repositories" key
//
// Timestamps are written in RFC 3339.
//
// # Usage
//
//	err := export.WriteFile("results.csv", res.Records)
//
// or, with an explicit writer:
//
//	err := export.Write(os.Stdout, export.FormatJSON, res.Records)
package export
