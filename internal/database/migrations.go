package database

import "embed"

//go:embed schemas/*.sql
var schemaFS embed.FS

// schemaFiles maps database names to their schema files.
// Each schema is the single source of truth for that database.
var schemaFiles = map[string]string{
	"universe": "universe_schema.sql",
	"history":  "history_schema.sql",
	"config":   "config_schema.sql",
	"results":  "results_schema.sql",
}
