// Package migrations embeds the Account Store schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
