// Package migrations embeds the SQL migrations of the postgres key-value backend.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
