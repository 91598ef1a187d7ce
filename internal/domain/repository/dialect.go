package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"fintrack/internal/common"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DBTX is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Dialect hides the differences between the supported SQL engines.
// Queries are written with `?` placeholders and rebound per engine.
type Dialect interface {
	Name() string
	Rebind(query string) string
	// TranslateError maps constraint violations onto common sentinels and
	// returns any other error unchanged.
	TranslateError(err error) error
}

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case DialectPostgres:
		return postgresDialect{}, nil
	case DialectSQLite:
		return sqliteDialect{}, nil
	}
	return nil, fmt.Errorf("unsupported database dialect %q", name)
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return DialectPostgres }

func (postgresDialect) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (postgresDialect) TranslateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505": // unique_violation
		return fmt.Errorf("%s: %w", constraintLabel(pgErr.ConstraintName), common.ErrConflict)
	case "23514": // check_violation
		return fmt.Errorf("%s: %w", constraintLabel(pgErr.ConstraintName), common.ErrValidation)
	case "23503": // foreign_key_violation
		return fmt.Errorf("referenced record does not exist: %w", common.ErrValidation)
	case "22003": // numeric_value_out_of_range
		return fmt.Errorf("value out of range: %w", common.ErrValidation)
	}
	return err
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return DialectSQLite }

func (sqliteDialect) Rebind(query string) string { return query }

func (sqliteDialect) TranslateError(err error) error {
	var sqlErr *sqlite.Error
	if !errors.As(err, &sqlErr) {
		return err
	}
	msg := sqlErr.Error()
	switch sqlErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return fmt.Errorf("%s: %w", constraintLabel(uniqueColumn(msg)), common.ErrConflict)
	case sqlite3.SQLITE_CONSTRAINT_CHECK:
		return fmt.Errorf("check constraint failed: %w", common.ErrValidation)
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return fmt.Errorf("referenced record does not exist: %w", common.ErrValidation)
	}
	if sqlErr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return err
	}
	// Primary result code only; fall back to the message.
	switch {
	case strings.Contains(msg, "UNIQUE"):
		return fmt.Errorf("%s: %w", constraintLabel(uniqueColumn(msg)), common.ErrConflict)
	case strings.Contains(msg, "CHECK"):
		return fmt.Errorf("check constraint failed: %w", common.ErrValidation)
	case strings.Contains(msg, "FOREIGN KEY"):
		return fmt.Errorf("referenced record does not exist: %w", common.ErrValidation)
	}
	return err
}

// uniqueColumn extracts "users.email" from "UNIQUE constraint failed: users.email".
func uniqueColumn(msg string) string {
	_, after, ok := strings.Cut(msg, "constraint failed: ")
	if !ok {
		return ""
	}
	if i := strings.IndexAny(after, " ()"); i >= 0 {
		after = after[:i]
	}
	return after
}

func constraintLabel(name string) string {
	switch {
	case strings.Contains(name, "username"):
		return "username already registered"
	case strings.Contains(name, "email"):
		return "email already registered"
	case name == "":
		return "constraint violated"
	}
	return "constraint " + name + " violated"
}
