// Package query defines the client-facing filter and order specification.
//
// A page request carries two JSON arrays:
//
//	filters: [{"cols": "name", "ops": "Eq", "vals": "Alice"}, ...]
//	orders:  [{"cols": "age", "ops": "Desc"}, ...]
//
// Parsing is fail-open. Malformed or absent JSON yields an empty list and
// never errors the request; unknown operators and directions are kept as
// parsed so that the compiler can skip them and Validate can report them.
//
// Operator and direction names are matched case-insensitively with
// underscores ignored, so "LikeLeft", "like_left" and "LIKE_LEFT" are the
// same operator. They display in upper snake case.
//
// This package does not produce SQL. See package querysql for the compiler
// that turns a spec into parameterized predicates and an ORDER BY clause.
package query
