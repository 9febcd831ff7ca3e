// Package migrations holds the SQL schema applied at startup.
package migrations

import "embed"

// FS contains the *.up.sql and *.down.sql files in this directory.
//
//go:embed *.sql
var FS embed.FS
