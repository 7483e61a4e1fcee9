// ABOUTME: Parameterized query executor shared by all SQLiteStore methods
// ABOUTME: Keeps query templates typed and bind values out-of-band from query text

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// query is the template type for SQL statements. Templates are declared as
// typed constants so a string built at runtime (e.g. via fmt.Sprintf over
// caller input) cannot be passed to the executor without an explicit
// conversion. Caller-derived values must travel through binds.
type query string

// QueryError wraps a store-level failure: malformed template, bind/column
// type mismatch, or driver unavailability.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// executor runs typed query templates with positional binds against the
// underlying database. All store methods funnel through it.
type executor struct {
	db *sql.DB
}

// fetchOne executes q and scans the first matching row into dest.
// Returns ErrNotFound when no row matches.
func (e *executor) fetchOne(ctx context.Context, op string, q query, binds []any, dest ...any) error {
	err := e.db.QueryRowContext(ctx, string(q), binds...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return &QueryError{Op: op, Err: err}
	}
	return nil
}

// fetchAll executes q and invokes scan once per row. The result set is fully
// consumed before returning.
func (e *executor) fetchAll(ctx context.Context, op string, q query, binds []any, scan func(rows *sql.Rows) error) error {
	rows, err := e.db.QueryContext(ctx, string(q), binds...)
	if err != nil {
		return &QueryError{Op: op, Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return &QueryError{Op: op, Err: err}
		}
	}
	if err := rows.Err(); err != nil {
		return &QueryError{Op: op, Err: err}
	}
	return nil
}

// exec executes a mutating statement. Uniqueness and foreign-key failures
// map to ErrConstraint; other failures to QueryError.
func (e *executor) exec(ctx context.Context, op string, q query, binds ...any) (sql.Result, error) {
	res, err := e.db.ExecContext(ctx, string(q), binds...)
	if err != nil {
		if isConstraintViolation(err) {
			return nil, ErrConstraint
		}
		return nil, &QueryError{Op: op, Err: err}
	}
	return res, nil
}

// isConstraintViolation checks if the error is a SQLite constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "FOREIGN KEY constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}
