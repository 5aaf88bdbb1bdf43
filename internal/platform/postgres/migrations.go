package postgres

import "embed"

// MigrationsFS embeds the SQL migration set so the server binary carries
// its own schema history.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
