/*-------------------------------------------------------------------------
 *
 * EV Dashboard MCP Relay - Chat Client
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package chat

import (
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)

	id, err := store.CreateConversation("How many EVs are registered in King County?")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	turns := []struct{ role, content string }{
		{"user", "How many EVs are registered in King County?"},
		{"tool", "Results (1 rows):\n[{\"count\": 95000}]"},
		{"assistant", "About 95,000 EVs are registered in King County."},
	}
	for _, turn := range turns {
		if err := store.AppendMessage(id, turn.role, turn.content); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	messages, err := store.Messages(id)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(messages) != len(turns) {
		t.Fatalf("expected %d messages, got %d", len(turns), len(messages))
	}
	for i, turn := range turns {
		if messages[i].Role != turn.role {
			t.Errorf("message %d: expected role %q, got %q", i, turn.role, messages[i].Role)
		}
		if messages[i].Content != turn.content {
			t.Errorf("message %d: unexpected content %q", i, messages[i].Content)
		}
	}
}

func TestStoreListConversations(t *testing.T) {
	store := newTestStore(t)

	first, err := store.CreateConversation("first")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	second, err := store.CreateConversation("second")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Touching the first conversation makes it the most recent
	if err := store.AppendMessage(first, "user", "hello again"); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	conversations, err := store.ListConversations(10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(conversations) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(conversations))
	}
	if conversations[0].ID != first {
		t.Errorf("expected most recently touched first, got %q", conversations[0].ID)
	}
	if conversations[1].ID != second {
		t.Errorf("expected %q second, got %q", second, conversations[1].ID)
	}
}

func TestStoreMessagesEmptyConversation(t *testing.T) {
	store := newTestStore(t)

	id, err := store.CreateConversation("empty")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	messages, err := store.Messages(id)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("expected no messages, got %d", len(messages))
	}
}
