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
	"fmt"
)

// Column describes one column of a table in the public schema
type Column struct {
	Name     string `json:"column"`
	DataType string `json:"type"`
}

// ListTables returns the names of all tables in the public schema,
// queried fresh from the catalog on every call
func (c *Client) ListTables(ctx context.Context) ([]string, error) {
	if c.pool == nil {
		return nil, fmt.Errorf("database not connected")
	}

	rows, err := c.pool.Query(ctx,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = 'public'
		 ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read table list: %w", err)
	}

	return tables, nil
}

// TableColumns returns the columns of a public-schema table in declared
// order (ordinal_position, not alphabetical). A table with zero columns
// is distinguished from a missing table: the former returns an empty
// slice, the latter ErrTableNotFound.
func (c *Client) TableColumns(ctx context.Context, tableName string) ([]Column, error) {
	if c.pool == nil {
		return nil, fmt.Errorf("database not connected")
	}

	rows, err := c.pool.Query(ctx,
		`SELECT column_name, data_type FROM information_schema.columns
		 WHERE table_schema = 'public' AND table_name = $1
		 ORDER BY ordinal_position`, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	columns := make([]Column, 0)
	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.Name, &col.DataType); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	if len(columns) == 0 {
		exists, err := c.tableExists(ctx, tableName)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrTableNotFound, tableName)
		}
		// Table exists but has no columns; unlikely, not an error
	}

	return columns, nil
}

func (c *Client) tableExists(ctx context.Context, tableName string) (bool, error) {
	var exists bool
	err := c.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables
		 WHERE table_schema = 'public' AND table_name = $1)`, tableName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check table existence: %w", err)
	}
	return exists, nil
}
