// Package store provides the record store adapters rows are read from.
//
// Two backends implement Querier:
//   - SQLite: database/sql with github.com/mattn/go-sqlite3
//   - Postgres: github.com/jackc/pgx/v5 connection pool
//
// Both materialize result rows as MapRow values keyed by column name, which
// satisfy the entity.Row accessor contract: a missing column reports
// present=false and SQL NULL reports a nil value.
//
// # Statements
//
// Statements use "$n" positional placeholders on both backends. SQLite
// binds them in order of appearance, so placeholders must appear in
// increasing order, which the query compiler guarantees.
//
// # SQLite Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// # Schema Registry
//
// Migrate creates an entity's table if it does not exist and records the
// schema in the rowkit_schemas table (see schema.sql), so later runs can
// detect a changed field list.
package store
