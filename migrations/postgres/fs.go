// Package pgmigrations embeds the SQL migrations for the Postgres schema.
package pgmigrations

import "embed"

//go:embed *.sql
var FS embed.FS
