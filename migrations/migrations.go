// Package migrations embeds SQL migration files and provides a function to apply them.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

// FS contains the embedded SQL migration files, one directory per dialect.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS

// Supported database dialects.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// GooseDialect maps a dialect to the goose dialect name and migration directory.
func GooseDialect(dialect string) (gooseDialect, dir string, err error) {
	switch dialect {
	case DialectSQLite:
		return "sqlite3", "sqlite", nil
	case DialectPostgres:
		return "postgres", "postgres", nil
	}
	return "", "", fmt.Errorf("unsupported dialect %q", dialect)
}

// Run applies all pending migrations for the given dialect.
func Run(db *sql.DB, dialect string) error {
	gd, dir, err := GooseDialect(dialect)
	if err != nil {
		return err
	}

	goose.SetBaseFS(FS)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(gd); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
