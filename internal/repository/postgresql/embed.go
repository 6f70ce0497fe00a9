package postgresql

import "embed"

// Migrations holds the schema applied by database.Migrate at startup.
//
//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsDir = "migrations"
