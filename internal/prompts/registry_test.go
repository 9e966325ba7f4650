/*-------------------------------------------------------------------------
 *
 * EV Dashboard MCP Relay
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package prompts

import (
	"strings"
	"testing"
)

func TestRegisterAssistant(t *testing.T) {
	registry := NewRegistry()
	registry.RegisterAssistant()

	list := registry.List()
	if len(list) != 1 {
		t.Fatalf("expected 1 prompt, got %d", len(list))
	}
	if list[0].Name != AssistantPromptName {
		t.Errorf("expected %q, got %q", AssistantPromptName, list[0].Name)
	}
}

func TestAssistantPromptContent(t *testing.T) {
	registry := NewRegistry()
	registry.RegisterAssistant()

	result, err := registry.Execute(AssistantPromptName, nil)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if len(result.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(result.Messages))
	}

	msg := result.Messages[0]
	if msg.Role != "system" {
		t.Errorf("expected system role, got %q", msg.Role)
	}

	// The prompt must pin the model to the query tool, the table
	// schemas, and the tool_call protocol
	for _, required := range []string{
		"query",
		"CREATE TABLE vehicles",
		"CREATE TABLE stations",
		"tool_call",
		"Battery Electric Vehicle (BEV)",
	} {
		if !strings.Contains(msg.Content.Text, required) {
			t.Errorf("prompt missing %q", required)
		}
	}
}

func TestExecuteUnknownPrompt(t *testing.T) {
	registry := NewRegistry()
	registry.RegisterAssistant()

	_, err := registry.Execute("missing", nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), AssistantPromptName) {
		t.Errorf("expected available prompts in message, got %q", err.Error())
	}
}

func TestRegisterIsIdempotentForOrder(t *testing.T) {
	registry := NewRegistry()
	registry.RegisterAssistant()
	registry.RegisterAssistant()

	if len(registry.List()) != 1 {
		t.Errorf("re-registration must not duplicate the prompt")
	}
}
