package config

import (
	"fmt"
	"strings"
)

// dialect carries the column types that differ between the supported
// databases. Everything else in the schema is portable SQL.
type dialect struct {
	name       string
	driverName string // database/sql driver registered by the import
	key        string // indexed or unique strings
	text       string
	timestamp  string
}

var dialects = map[string]dialect{
	DriverSQLite:   {name: DriverSQLite, driverName: "sqlite", key: "TEXT", text: "TEXT", timestamp: "DATETIME"},
	DriverPostgres: {name: DriverPostgres, driverName: "pgx", key: "TEXT", text: "TEXT", timestamp: "TIMESTAMPTZ"},
	DriverMySQL:    {name: DriverMySQL, driverName: "mysql", key: "VARCHAR(255)", text: "TEXT", timestamp: "DATETIME(6)"},
}

func (d dialect) expand(stmt string) string {
	return strings.NewReplacer(
		"{{key}}", d.key,
		"{{text}}", d.text,
		"{{ts}}", d.timestamp,
	).Replace(stmt)
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS admins (
			id {{key}} PRIMARY KEY,
			email {{key}} UNIQUE NOT NULL,
			password_hash {{text}} NOT NULL,
			failed_login_attempts INTEGER NOT NULL DEFAULT 0,
			lock_until {{ts}} NULL,
			last_login_at {{ts}} NULL,
			version BIGINT NOT NULL DEFAULT 0,
			created_at {{ts}} NOT NULL,
			updated_at {{ts}} NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS projects (
			id {{key}} PRIMARY KEY,
			title {{text}} NOT NULL,
			description {{text}} NOT NULL,
			category {{text}} NOT NULL,
			image_url {{text}} NOT NULL,
			video_url {{text}} NOT NULL,
			technologies_json {{text}} NOT NULL,
			github_url {{text}} NOT NULL,
			demo_url {{text}} NOT NULL,
			date_completed {{ts}} NULL,
			created_at {{ts}} NOT NULL,
			updated_at {{ts}} NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS contacts (
			id {{key}} PRIMARY KEY,
			name {{text}} NOT NULL,
			email {{text}} NOT NULL,
			subject {{text}} NOT NULL,
			message {{text}} NOT NULL,
			created_at {{ts}} NOT NULL
		)`,
	}

	for _, m := range migrations {
		stmt := s.dialect.expand(m)
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}
