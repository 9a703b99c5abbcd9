package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver registration.
	_ "modernc.org/sqlite"             // SQLite driver registration.

	"vidcorpus/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// DB implements Storage on top of database/sql for SQLite and Postgres.
type DB struct {
	db      *sql.DB
	dialect string
}

var _ Storage = (*DB)(nil)

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// :memory: databases live per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := migrations.Run(db, migrations.DialectSQLite); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &DB{db: db, dialect: migrations.DialectSQLite}, nil
}

// PostgresConfig holds the settings needed to reach a Postgres (or Supabase) database.
type PostgresConfig struct {
	// DSN is a full connection string. When empty it is built from SupabaseURL and Password.
	DSN string

	// SupabaseURL is the project URL, e.g. "https://[project-ref].supabase.co".
	SupabaseURL string
	Password    string

	MaxOpenConns int
	ConnMaxLife  time.Duration
}

// NewPostgres connects to Postgres, verifies connectivity and runs pending migrations.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		var err error
		dsn, err = supabaseDSN(cfg.SupabaseURL, cfg.Password)
		if err != nil {
			return nil, fmt.Errorf("build connection string: %w", err)
		}
	}
	// Poolers in front of Supabase reject server-side prepared statements.
	dsn = addConnectionParam(dsn, "statement_cache_capacity", "0")
	dsn = addConnectionParam(dsn, "default_query_exec_mode", "simple_protocol")

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLife > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLife)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := migrations.Run(db, migrations.DialectPostgres); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &DB{db: db, dialect: migrations.DialectPostgres}, nil
}

// supabaseDSN derives the direct connection string from a Supabase project URL.
func supabaseDSN(projectURL, password string) (string, error) {
	if projectURL == "" {
		return "", errors.New("supabase URL is required when DSN is not provided")
	}
	if password == "" {
		return "", errors.New("database password is required when DSN is not provided")
	}

	u, err := url.Parse(projectURL)
	if err != nil {
		return "", fmt.Errorf("parse supabase URL: %w", err)
	}
	parts := strings.Split(u.Host, ".")
	if len(parts) < 2 || parts[0] == "" {
		return "", fmt.Errorf("invalid supabase URL %q: expected [project-ref].supabase.co", projectURL)
	}

	return fmt.Sprintf("postgresql://postgres:%s@db.%s.supabase.co:5432/postgres?sslmode=require",
		url.QueryEscape(password), parts[0]), nil
}

func addConnectionParam(dsn, key, value string) string {
	if strings.Contains(dsn, key+"=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + key + "=" + value
}

// Close closes the underlying database connection.
func (s *DB) Close() error {
	return s.db.Close()
}

// Dialect returns the SQL dialect the store speaks.
func (s *DB) Dialect() string {
	return s.dialect
}

// rebind rewrites "?" placeholders into "$n" for Postgres.
func (s *DB) rebind(query string) string {
	if s.dialect != migrations.DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *DB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

func (s *DB) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

func (s *DB) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

// execOne runs an update that must touch exactly one row.
func (s *DB) execOne(ctx context.Context, query string, args ...any) error {
	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nowString() string {
	return formatTime(time.Now())
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func scanTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

// nullString treats nil and empty strings as NULL.
func nullString(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func scanString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func scanInt64(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

type scannable interface {
	Scan(dest ...any) error
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("scan %s: %w", what, err)
}
