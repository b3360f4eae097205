// Package migrations embeds the goose SQL migrations for the zone
// definition store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
