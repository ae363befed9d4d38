// Package stores persists solve history in SQLite. Runs and their iteration
// traces live in two tables whose schema is managed by embedded
// golang-migrate migrations.
package stores
