package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/domain/repository"
	"fintrack/internal/platform/config"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// Store owns the connection pool and the SQL dialect repositories speak.
type Store struct {
	DB      *sql.DB
	Dialect repository.Dialect
}

// Connect opens the configured database, applies migrations and verifies the connection.
func Connect(ctx context.Context, cfg *config.Config) (*Store, error) {
	dialect, err := repository.DialectFor(cfg.DBDriver)
	if err != nil {
		return nil, err
	}

	driverName, dsn, err := driverAndDSN(cfg)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(dialect.Name(), dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxOpenConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	slog.Info("database connected", "driver", dialect.Name())
	return &Store{DB: db, Dialect: dialect}, nil
}

func driverAndDSN(cfg *config.Config) (string, string, error) {
	switch cfg.DBDriver {
	case repository.DialectPostgres:
		return "pgx", cfg.DBConnStr, nil
	case repository.DialectSQLite:
		if dir := filepath.Dir(cfg.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", "", fmt.Errorf("create db directory: %w", err)
			}
		}
		return "sqlite", SQLiteDSN(cfg.SQLiteDBPath), nil
	}
	return "", "", fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
}

// SQLiteDSN enables foreign keys and a busy timeout on every pooled connection.
func SQLiteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Session runs fn on a connection held for the duration of the call. The
// connection goes back to the pool on every path, including panics.
func (s *Store) Session(ctx context.Context, fn func(q repository.DBTX) error) error {
	conn, err := s.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()
	return fn(conn)
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *Store) Close() {
	if s.DB != nil {
		s.DB.Close()
		slog.Info("database connection closed")
	}
}
