// Package querysql compiles small SELECT descriptions to parameterized
// SQLite queries with a deterministic ORDER BY.
package querysql
