// Package migrations carries the embedded schema migration files applied
// by the SQLite store on open.
package migrations

import "embed"

// FS holds the .up.sql migration files, applied in lexical order.
//
//go:embed *.sql
var FS embed.FS
