package migrations

import "embed"

// FS migraciones SQLite del ledger.
//
//go:embed *.sql
var FS embed.FS
