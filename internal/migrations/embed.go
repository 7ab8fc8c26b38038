// Package migrations bundles the goose SQL migrations applied by the
// repository manager at startup. The files are templates over logical table
// names; Rendered resolves them through a catalog before goose runs them.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
