// Package migrations holds the SQLite schema for goalbot as numbered
// golang-migrate files embedded into the binary.
package migrations

import "embed"

// FS exposes the up/down migration pairs.
//
//go:embed *.sql
var FS embed.FS
