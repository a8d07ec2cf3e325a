package datastore

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements create the companies/sources tables and their
// association. All statements are idempotent so every binary can run
// them at startup.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS companies (
		id   SERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS sources (
		id   SERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS company_source (
		company_id INTEGER NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		source_id  INTEGER NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
		PRIMARY KEY (company_id, source_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_companies_name ON companies(name)`,
	`CREATE INDEX IF NOT EXISTS idx_sources_name ON sources(name)`,
}

// InitSchema creates the tables when they do not already exist.
func InitSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialise schema: %w", err)
		}
	}
	return nil
}
