/*-------------------------------------------------------------------------
 *
 * EV Dashboard MCP Relay
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package database

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE raised when a mutating statement runs inside a
// read-only transaction
const sqlStateReadOnlyViolation = "25006"

var (
	// ErrEmptyQuery is returned for empty or whitespace-only statements
	ErrEmptyQuery = errors.New("empty query")

	// ErrTableNotFound is returned when introspecting a table that does
	// not exist in the public schema
	ErrTableNotFound = errors.New("table not found")
)

// ForbiddenOperationError is returned when a statement contains a
// denylisted keyword. The match is a conservative substring check, so
// the keyword may appear anywhere in the statement.
type ForbiddenOperationError struct {
	Keyword string
}

func (e *ForbiddenOperationError) Error() string {
	return fmt.Sprintf("only read-only SQL queries are allowed (found %q)", e.Keyword)
}

// ReadOnlyViolationError is returned when the database engine rejects a
// statement because the transaction is read-only. This is the second
// enforcement layer, catching mutations that evade the keyword check.
type ReadOnlyViolationError struct {
	Err error
}

func (e *ReadOnlyViolationError) Error() string {
	return fmt.Sprintf("statement rejected by read-only transaction: %v", e.Err)
}

func (e *ReadOnlyViolationError) Unwrap() error {
	return e.Err
}

// ExecutionError wraps any other failure during query execution
// (syntax errors, missing tables, connection loss mid-query)
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("query execution failed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// classifyExecutionError maps a pgx error onto the gateway taxonomy
func classifyExecutionError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == sqlStateReadOnlyViolation {
		return &ReadOnlyViolationError{Err: err}
	}
	return &ExecutionError{Err: err}
}
