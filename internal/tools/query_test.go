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
	"strings"
	"testing"

	"evdash-mcp/internal/database"
)

type fakeExecutor struct {
	lastSQL string
	result  *database.QueryResult
	err     error
}

func (f *fakeExecutor) ExecuteReadOnly(_ context.Context, sqlQuery string) (*database.QueryResult, error) {
	f.lastSQL = sqlQuery
	return f.result, f.err
}

func TestQueryToolDefinition(t *testing.T) {
	tool := QueryTool(&fakeExecutor{})

	if tool.Definition.Name != "query" {
		t.Errorf("expected tool name query, got %q", tool.Definition.Name)
	}
	if len(tool.Definition.InputSchema.Required) != 1 || tool.Definition.InputSchema.Required[0] != "sql" {
		t.Errorf("expected sql to be required, got %v", tool.Definition.InputSchema.Required)
	}
}

func TestQueryToolSuccess(t *testing.T) {
	executor := &fakeExecutor{
		result: &database.QueryResult{
			Columns:  []string{"county", "vehicle_count"},
			Rows:     []database.Row{{"county": "King", "vehicle_count": int64(95000)}},
			RowCount: 1,
		},
	}
	tool := QueryTool(executor)

	response, err := tool.Handler(context.Background(), map[string]interface{}{
		"sql": "SELECT county, COUNT(*) AS vehicle_count FROM vehicles GROUP BY county",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.IsError {
		t.Fatalf("unexpected tool error: %+v", response.Content)
	}
	if !strings.Contains(executor.lastSQL, "FROM vehicles") {
		t.Errorf("query not forwarded, got %q", executor.lastSQL)
	}

	text := response.Content[0].Text
	if !strings.HasPrefix(text, "Results (1 rows):") {
		t.Errorf("unexpected result prefix: %q", text)
	}
	if !strings.Contains(text, `"county": "King"`) {
		t.Errorf("expected row data in output, got %q", text)
	}
}

func TestQueryToolEmptyResult(t *testing.T) {
	tool := QueryTool(&fakeExecutor{
		result: &database.QueryResult{Rows: []database.Row{}, RowCount: 0},
	})

	response, err := tool.Handler(context.Background(), map[string]interface{}{"sql": "SELECT 1 WHERE false"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.IsError {
		t.Fatal("empty result must not be a tool error")
	}
	if !strings.HasPrefix(response.Content[0].Text, "Results (0 rows):") {
		t.Errorf("unexpected output: %q", response.Content[0].Text)
	}
}

func TestQueryToolMissingArgument(t *testing.T) {
	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{name: "no arguments", args: map[string]interface{}{}},
		{name: "nil arguments", args: nil},
		{name: "wrong type", args: map[string]interface{}{"sql": 42}},
	}

	tool := QueryTool(&fakeExecutor{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response, err := tool.Handler(context.Background(), tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !response.IsError {
				t.Fatal("expected a tool error")
			}
			if !strings.Contains(response.Content[0].Text, "Missing or invalid 'sql'") {
				t.Errorf("unexpected message: %q", response.Content[0].Text)
			}
		})
	}
}

func TestQueryToolGatewayFailure(t *testing.T) {
	tool := QueryTool(&fakeExecutor{
		err: &database.ForbiddenOperationError{Keyword: "DELETE"},
	})

	response, err := tool.Handler(context.Background(), map[string]interface{}{"sql": "DELETE FROM vehicles"})
	if err != nil {
		t.Fatalf("gateway failure must not surface as a protocol error: %v", err)
	}
	if !response.IsError {
		t.Fatal("expected a tool error")
	}
	if !strings.Contains(response.Content[0].Text, "Error executing query:") {
		t.Errorf("unexpected message: %q", response.Content[0].Text)
	}
	if !strings.Contains(response.Content[0].Text, "DELETE") {
		t.Errorf("expected rejected keyword in message, got %q", response.Content[0].Text)
	}
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	registry := NewRegistry()

	response, err := registry.Execute(context.Background(), "nope", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !response.IsError {
		t.Fatal("expected a tool error")
	}
	if response.Content[0].Text != "Tool not found: nope" {
		t.Errorf("unexpected message: %q", response.Content[0].Text)
	}
}

func TestRegistryListOrder(t *testing.T) {
	registry := NewRegistry()
	registry.Register("query", QueryTool(&fakeExecutor{}))

	list := registry.List()
	if len(list) != 1 || list[0].Name != "query" {
		t.Errorf("unexpected list: %+v", list)
	}
}
