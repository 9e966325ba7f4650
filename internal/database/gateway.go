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
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"evdash-mcp/internal/logging"
)

// ForbiddenKeywords is the denylist applied to every statement before it
// reaches the database. The check is a case-insensitive substring match:
// a SELECT whose string literal contains "DELETE" is rejected too. False
// positives are acceptable, false negatives are not — the read-only
// transaction below is the real safety boundary.
var ForbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "CREATE", "DROP",
	"ALTER", "TRUNCATE", "GRANT", "REVOKE",
}

// Row is one result row keyed by column name
type Row map[string]interface{}

// QueryResult holds the full result of one gateway execution
type QueryResult struct {
	Columns  []string `json:"columns"`
	Rows     []Row    `json:"rows"`
	RowCount int      `json:"rowCount"`
}

// ValidateReadOnly applies the cheap syntactic checks: empty input and
// the keyword denylist. It never touches the database.
func ValidateReadOnly(sqlQuery string) error {
	if strings.TrimSpace(sqlQuery) == "" {
		return ErrEmptyQuery
	}

	upperSQL := strings.ToUpper(sqlQuery)
	for _, keyword := range ForbiddenKeywords {
		if strings.Contains(upperSQL, keyword) {
			return &ForbiddenOperationError{Keyword: keyword}
		}
	}

	return nil
}

// ExecuteReadOnly validates and runs a single SQL statement inside an
// explicit read-only transaction, returning the full row set. The
// gateway holds no state between calls; concurrency is bounded only by
// the pool size.
func (c *Client) ExecuteReadOnly(ctx context.Context, sqlQuery string) (*QueryResult, error) {
	if err := ValidateReadOnly(sqlQuery); err != nil {
		return nil, err
	}

	if c.pool == nil {
		return nil, &ExecutionError{Err: fmt.Errorf("database not connected")}
	}

	startTime := time.Now()

	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, &ExecutionError{Err: fmt.Errorf("failed to acquire connection: %w", err)}
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, &ExecutionError{Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}

	result, err := collectRows(ctx, tx, sqlQuery)
	if err != nil {
		// Best-effort rollback; the connection is released regardless
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logging.Warn("Rollback failed after query error", "error", rbErr.Error())
		}
		logging.Debug("Query failed",
			"duration_ms", time.Since(startTime).Milliseconds(),
			"error", err.Error())
		return nil, classifyExecutionError(err)
	}

	// Committing a read-only transaction just ends it
	if err := tx.Commit(ctx); err != nil {
		return nil, classifyExecutionError(err)
	}

	logging.Debug("Query executed",
		"rows", result.RowCount,
		"duration_ms", time.Since(startTime).Milliseconds())

	return result, nil
}

func collectRows(ctx context.Context, tx pgx.Tx, sqlQuery string) (*QueryResult, error) {
	rows, err := tx.Query(ctx, sqlQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columnNames []string
	for _, fd := range rows.FieldDescriptions() {
		columnNames = append(columnNames, string(fd.Name))
	}

	// An empty result set is success with zero rows, not an error
	results := make([]Row, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}

		row := make(Row, len(columnNames))
		for i, colName := range columnNames {
			row[colName] = values[i]
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &QueryResult{
		Columns:  columnNames,
		Rows:     results,
		RowCount: len(results),
	}, nil
}
