// Package store provides SQLite-backed tables of sample records that
// filter conditions can be run against.
//
// Tables are created from the keys of the loaded records with no declared
// column types, so SQLite stores each value with its own storage class.
// Nested objects and lists are rejected on load; relation-qualified
// predicates need a join the caller sets up.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - REGEXP: case-insensitive, backed by eval.MatchRegex
//
// All queries are compiled by querysql and therefore ordered by id with
// COLLATE BINARY.
package store
