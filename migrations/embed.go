// Package migrations embeds the schema migration files so binaries can run
// them without shipping the SQL alongside.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
