package migrations

import "embed"

// FS contains embedded SQLite migrations for soul pit storage.
//
//go:embed *.sql
var FS embed.FS
