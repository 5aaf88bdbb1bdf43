// Package postgres implements the internal/store interfaces on PostgreSQL
// via database/sql and the pgx stdlib driver. It owns query execution,
// mapping between rows and domain entities, translation of driver errors to
// store sentinels, and the embedded schema migrations.
package postgres
