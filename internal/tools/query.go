/*-------------------------------------------------------------------------
 *
 * EV Dashboard MCP Relay
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"evdash-mcp/internal/database"
	"evdash-mcp/internal/mcp"
)

// Executor is the slice of the database client the query tool needs
type Executor interface {
	ExecuteReadOnly(ctx context.Context, sqlQuery string) (*database.QueryResult, error)
}

// QueryTool creates the query tool, the single pass-through from the
// model's tool calls to the read-only query gateway
func QueryTool(db Executor) Tool {
	return Tool{
		Definition: mcp.Tool{
			Name:        "query",
			Description: "Run a read-only SQL query against the EV registration database.",
			InputSchema: mcp.InputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"sql": map[string]interface{}{
						"type":        "string",
						"description": "The SQL query to execute (must be read-only).",
					},
				},
				Required: []string{"sql"},
			},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (mcp.ToolResponse, error) {
			sqlQuery, ok := args["sql"].(string)
			if !ok {
				return mcp.NewToolError("Missing or invalid 'sql' argument for 'query' tool")
			}

			result, err := db.ExecuteReadOnly(ctx, sqlQuery)
			if err != nil {
				// Gateway errors are returned as data, never as a fault
				// that would terminate the session
				return mcp.NewToolError(fmt.Sprintf("Error executing query: %v", err))
			}

			rowsJSON, err := json.MarshalIndent(result.Rows, "", "  ")
			if err != nil {
				return mcp.NewToolError(fmt.Sprintf("Error formatting results: %v", err))
			}

			return mcp.NewToolSuccess(fmt.Sprintf("Results (%d rows):\n%s", result.RowCount, rowsJSON))
		},
	}
}
