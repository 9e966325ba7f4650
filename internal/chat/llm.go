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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// LLM provider identifiers
const (
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Default models per provider
const (
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	DefaultOllamaModel    = "llama3.2"
)

const anthropicVersion = "2023-06-01"

// ChatMessage is one turn of the conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMConfig configures the language model client
type LLMConfig struct {
	Provider  string
	Model     string
	APIKey    string
	OllamaURL string
	MaxTokens int
}

// LLMClient sends chat completions to an Anthropic or Ollama backend
type LLMClient struct {
	config     LLMConfig
	httpClient *http.Client
}

// NewLLMClient creates an LLM client for the configured provider
func NewLLMClient(config LLMConfig) (*LLMClient, error) {
	if config.Model == "" {
		switch config.Provider {
		case ProviderAnthropic:
			config.Model = DefaultAnthropicModel
		case ProviderOllama:
			config.Model = DefaultOllamaModel
		}
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 4096
	}

	switch config.Provider {
	case ProviderAnthropic:
		if config.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key (set ANTHROPIC_API_KEY)")
		}
	case ProviderOllama:
		if config.OllamaURL == "" {
			config.OllamaURL = "http://localhost:11434"
		}
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", config.Provider)
	}

	return &LLMClient{
		config:     config,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// Model returns the model name in use
func (c *LLMClient) Model() string {
	return c.config.Model
}

// Provider returns the provider name in use
func (c *LLMClient) Provider() string {
	return c.config.Provider
}

// Chat sends the conversation and returns the assistant's reply text
func (c *LLMClient) Chat(ctx context.Context, system string, messages []ChatMessage) (string, error) {
	switch c.config.Provider {
	case ProviderAnthropic:
		return c.chatAnthropic(ctx, system, messages)
	case ProviderOllama:
		return c.chatOllama(ctx, system, messages)
	default:
		return "", fmt.Errorf("unknown LLM provider: %q", c.config.Provider)
	}
}

type anthropicRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []ChatMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *LLMClient) chatAnthropic(ctx context.Context, system string, messages []ChatMessage) (string, error) {
	reqBody := anthropicRequest{
		Model:     c.config.Model,
		MaxTokens: c.config.MaxTokens,
		System:    system,
		Messages:  messages,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.anthropic.com/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.config.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("anthropic API error (%s): %s", parsed.Error.Type, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic API returned %s", resp.Status)
	}

	var text string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}

type ollamaRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type ollamaResponse struct {
	Message ChatMessage `json:"message"`
	Error   string      `json:"error,omitempty"`
}

func (c *LLMClient) chatOllama(ctx context.Context, system string, messages []ChatMessage) (string, error) {
	// Ollama carries the system prompt as a leading message
	all := make([]ChatMessage, 0, len(messages)+1)
	if system != "" {
		all = append(all, ChatMessage{Role: "system", Content: system})
	}
	all = append(all, messages...)

	reqBody := ollamaRequest{
		Model:    c.config.Model,
		Messages: all,
		Stream:   false,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.OllamaURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed (is Ollama running at %s?): %w", c.config.OllamaURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("ollama error: %s", parsed.Error)
	}

	return parsed.Message.Content, nil
}
