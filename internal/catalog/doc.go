// Package catalog is the relational system of record for galaxies, stars,
// planets and variables.
//
// Every statement runs against a Querier, normally the request transaction
// handed out by pkg/transaction, so catalog writes commit or roll back with
// the HTTP response. Driver errors are mapped onto ErrNotFound and
// ErrAlreadyExists for both supported drivers: pgx for postgres and
// modernc.org/sqlite for tests and single-node installs.
package catalog
