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
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"evdash-mcp/internal/prompts"
)

// maxToolRounds caps tool-call loops per user turn so a confused model
// cannot spin forever
const maxToolRounds = 4

// Client drives the interactive chat session: it reads user input,
// relays it to the LLM, executes any tool calls against the MCP relay,
// and renders the final answer.
type Client struct {
	mcp   *SSEClient
	llm   *LLMClient
	ui    *UI
	store *Store

	serverURL      string
	system         string
	conversationID string
	messages       []ChatMessage
}

// ClientConfig configures the chat client
type ClientConfig struct {
	ServerURL string
	SSEPath   string
	LLM       LLMConfig
	DataDir   string
	NoColor   bool
	Plain     bool
}

// NewClient connects to the relay and prepares the chat session
func NewClient(ctx context.Context, config ClientConfig) (*Client, error) {
	llm, err := NewLLMClient(config.LLM)
	if err != nil {
		return nil, err
	}

	mcpClient := NewSSEClient(config.ServerURL, config.SSEPath)
	if err := mcpClient.Connect(ctx); err != nil {
		return nil, err
	}
	if err := mcpClient.Initialize(ctx); err != nil {
		mcpClient.Close()
		return nil, err
	}

	c := &Client{
		mcp:       mcpClient,
		llm:       llm,
		ui:        NewUI(config.NoColor, config.Plain),
		serverURL: config.ServerURL,
		system:    fetchSystemPrompt(ctx, mcpClient),
	}

	if config.DataDir != "" {
		store, err := NewStore(config.DataDir)
		if err != nil {
			mcpClient.Close()
			return nil, err
		}
		c.store = store
	}

	return c, nil
}

// fetchSystemPrompt pulls the assistant prompt from the relay, falling
// back to the baked-in copy when the request fails
func fetchSystemPrompt(ctx context.Context, mcpClient *SSEClient) string {
	result, err := mcpClient.GetPrompt(ctx, prompts.AssistantPromptName)
	if err == nil {
		for _, msg := range result.Messages {
			if msg.Role == "system" && msg.Content.Text != "" {
				return msg.Content.Text
			}
		}
	}
	return prompts.AssistantSystemPrompt()
}

// Run reads user input until EOF or /quit
func (c *Client) Run(ctx context.Context) error {
	defer c.mcp.Close()
	if c.store != nil {
		defer c.store.Close()
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          c.ui.UserPrompt(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize input: %w", err)
	}
	defer rl.Close()

	c.ui.PrintWelcome(c.serverURL, c.llm.Provider(), c.llm.Model())

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := c.handleCommand(ctx, input); quit {
				return nil
			}
			continue
		}

		if err := c.handleTurn(ctx, input); err != nil {
			c.ui.PrintError(err)
		}
	}
}

// handleCommand runs one slash command; returns true to exit
func (c *Client) handleCommand(ctx context.Context, input string) bool {
	switch strings.Fields(input)[0] {
	case "/quit", "/exit":
		return true
	case "/help":
		c.ui.PrintInfo("/help     show this help")
		c.ui.PrintInfo("/tools    list tools exposed by the server")
		c.ui.PrintInfo("/schema   list table schema resources")
		c.ui.PrintInfo("/history  list saved conversations")
		c.ui.PrintInfo("/clear    start a fresh conversation")
		c.ui.PrintInfo("/quit     exit")
	case "/tools":
		tools, err := c.mcp.ListTools(ctx)
		if err != nil {
			c.ui.PrintError(err)
			return false
		}
		for _, tool := range tools {
			c.ui.PrintInfo(fmt.Sprintf("%s - %s", tool.Name, tool.Description))
		}
	case "/schema":
		resources, err := c.mcp.ListResources(ctx)
		if err != nil {
			c.ui.PrintError(err)
			return false
		}
		if len(resources) == 0 {
			c.ui.PrintInfo("No schema resources available")
			return false
		}
		for _, res := range resources {
			c.ui.PrintInfo(fmt.Sprintf("%s - %s", res.URI, res.Name))
		}
	case "/history":
		if c.store == nil {
			c.ui.PrintInfo("History is disabled (no data directory configured)")
			return false
		}
		conversations, err := c.store.ListConversations(10)
		if err != nil {
			c.ui.PrintError(err)
			return false
		}
		if len(conversations) == 0 {
			c.ui.PrintInfo("No saved conversations")
			return false
		}
		for _, conv := range conversations {
			c.ui.PrintInfo(fmt.Sprintf("%s  %s  %s",
				conv.UpdatedAt.Local().Format("2006-01-02 15:04"), conv.ID[:8], conv.Title))
		}
	case "/clear":
		c.messages = nil
		c.conversationID = ""
		c.ui.PrintInfo("Conversation cleared")
	default:
		c.ui.PrintInfo("Unknown command; type /help")
	}
	return false
}

// handleTurn runs one user turn through the LLM, executing tool calls
// until the model produces plain text
func (c *Client) handleTurn(ctx context.Context, input string) error {
	c.record("user", input)
	c.messages = append(c.messages, ChatMessage{Role: "user", Content: input})

	for round := 0; round <= maxToolRounds; round++ {
		reply, err := c.llm.Chat(ctx, c.system, c.messages)
		if err != nil {
			return err
		}
		c.messages = append(c.messages, ChatMessage{Role: "assistant", Content: reply})

		call, text := DecodeReply(reply)
		if call == nil {
			c.record("assistant", text)
			c.ui.PrintAssistant(text)
			return nil
		}

		c.ui.PrintToolCall(call.Name, call.Arguments)
		resultText := c.executeTool(ctx, call)
		c.record("tool", resultText)
		c.messages = append(c.messages, ChatMessage{
			Role:    "user",
			Content: "Tool result:\n" + resultText,
		})
	}

	return fmt.Errorf("model exceeded %d tool calls without answering", maxToolRounds)
}

// executeTool runs one tool call on the relay. Failures come back as
// text so the model can recover or apologize.
func (c *Client) executeTool(ctx context.Context, call *ToolCall) string {
	response, err := c.mcp.CallTool(ctx, call.Name, call.Arguments)
	if err != nil {
		return fmt.Sprintf("Tool call failed: %v", err)
	}

	var parts []string
	for _, item := range response.Content {
		if item.Type == "text" {
			parts = append(parts, item.Text)
		}
	}
	text := strings.Join(parts, "\n")
	if text == "" {
		text = "(empty result)"
	}
	return text
}

// record persists one turn when history is enabled. The first user turn
// creates the conversation and becomes its title.
func (c *Client) record(role, content string) {
	if c.store == nil {
		return
	}

	if c.conversationID == "" {
		title := content
		if len(title) > 80 {
			title = title[:80]
		}
		id, err := c.store.CreateConversation(title)
		if err != nil {
			c.ui.PrintError(err)
			return
		}
		c.conversationID = id
	}

	if err := c.store.AppendMessage(c.conversationID, role, content); err != nil {
		c.ui.PrintError(err)
	}
}
