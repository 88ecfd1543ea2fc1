// Package migrations embeds the SQL schema migrations for builds that ship
// without a migrations directory on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
