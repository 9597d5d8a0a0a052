package store

import "embed"

// MigrationsFS embeds the goose migration set so the CLI can apply schema
// changes without depending on a filesystem layout at runtime.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
