// Package repository provides generic scan and query helpers over database/sql.
package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier is the read surface shared by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Executor extends Querier with statement execution.
type Executor interface {
	Querier
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Scanner abstracts *sql.Row and *sql.Rows for shared scan functions.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanFunc builds a T from one scanned row.
type ScanFunc[T any] func(Scanner) (T, error)

// WithTx runs fn inside a transaction, committing on success and rolling
// back on error or panic.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// QueryOne runs a query expected to return exactly one row and scans it into a T.
func QueryOne[T any](ctx context.Context, q Querier, scan ScanFunc[T], query string, args ...any) (T, error) {
	result, err := scan(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		var zero T
		return zero, MapError(err)
	}
	return result, nil
}

// QueryMany runs a query and scans every row into a slice of T.
func QueryMany[T any](ctx context.Context, q Querier, scan ScanFunc[T], query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer rows.Close()

	var results []T
	for rows.Next() {
		result, err := scan(rows)
		if err != nil {
			return nil, MapError(err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return results, nil
}

// QueryValue runs a query returning a single scalar, such as a COUNT.
func QueryValue[T any](ctx context.Context, q Querier, query string, args ...any) (T, error) {
	var value T
	if err := q.QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		var zero T
		return zero, MapError(err)
	}
	return value, nil
}

// ExecExpectOne executes a statement that must affect exactly one row,
// returning ErrNotFound when it affects none.
func ExecExpectOne(ctx context.Context, e Executor, query string, args ...any) error {
	result, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		return MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
