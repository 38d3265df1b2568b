package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"path"

	"github.com/tour-dashboard/backend/internal/logging"
)

//go:embed migrations/*.sql
var schemaFiles embed.FS

// migrate brings the local history database up to the newest schema. Each
// file under migrations/ runs once, in file name order, inside its own
// transaction together with the row that marks it applied.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (
		name TEXT PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	// ReadDir returns entries sorted by name.
	files, err := schemaFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("listing migrations: %w", err)
	}

	logger := logging.Component("storage")
	for _, f := range files {
		name := f.Name()
		var done int
		if err := db.QueryRow(`SELECT COUNT(*) FROM _migrations WHERE name = ?`, name).Scan(&done); err != nil {
			return fmt.Errorf("checking migration %s: %w", name, err)
		}
		if done > 0 {
			continue
		}

		body, err := schemaFiles.ReadFile(path.Join("migrations", name))
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		logger.Info().Str("migration", name).Msg("Applying schema migration")
		if err := applySchema(db, name, string(body)); err != nil {
			return fmt.Errorf("applying migration %s: %w", name, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB, name, body string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(body); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO _migrations (name) VALUES (?)`, name); err != nil {
		return err
	}
	return tx.Commit()
}
