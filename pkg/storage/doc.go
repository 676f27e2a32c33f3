// Package storage persists search runs.
//
// A [Run] is one executed search: its descriptor identity, the query string,
// the counts reported by the searcher and the records that survived the
// filters, in order. Runs are written once and read back by ID or as a
// most-recent-first listing.
//
// Two backends implement [Store]:
//
//   - [SQLStore] on PostgreSQL (lib/pq) or MySQL (go-sql-driver/mysql) via sqlx
//   - [MongoStore] on MongoDB, one document per run
//
// [Open] selects a backend from a [Config]. The "none" driver returns
// [NopStore], which accepts writes and never returns runs.
package storage
