/*-------------------------------------------------------------------------
 *
 * EV Dashboard MCP Relay - Chat Client
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"evdash-mcp/internal/chat"
)

var (
	serverURL string
	ssePath   string
	provider  string
	model     string
	apiKey    string
	ollamaURL string
	dataDir   string
	noHistory bool
	noColor   bool
	plain     bool
)

var rootCmd = &cobra.Command{
	Use:   "evdash-chat",
	Short: "Interactive chat client for the EV registration relay",
	Long: `evdash-chat connects to a running evdash-mcp relay over Server-Sent
Events and drives a natural-language session: questions go to an LLM
(Anthropic or a local Ollama), tool calls the model emits are executed
through the relay's read-only query tool, and answers are rendered as
markdown in the terminal.`,
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.Flags().StringVarP(&serverURL, "server", "s", "http://localhost:3001", "Relay server base URL")
	rootCmd.Flags().StringVar(&ssePath, "sse-path", "/sse", "Event stream path on the relay")
	rootCmd.Flags().StringVarP(&provider, "provider", "p", chat.ProviderAnthropic, "LLM provider: anthropic or ollama")
	rootCmd.Flags().StringVarP(&model, "model", "m", "", "Model name (provider default when empty)")
	rootCmd.Flags().StringVar(&apiKey, "api-key", "", "Anthropic API key (defaults to ANTHROPIC_API_KEY)")
	rootCmd.Flags().StringVar(&ollamaURL, "ollama-url", "", "Ollama base URL (default http://localhost:11434)")
	rootCmd.Flags().StringVar(&dataDir, "data-dir", "", "Directory for chat history (default ~/.evdash-chat)")
	rootCmd.Flags().BoolVar(&noHistory, "no-history", false, "Disable conversation history")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.Flags().BoolVar(&plain, "plain", false, "Print replies without markdown rendering")
}

func run(_ *cobra.Command, _ []string) error {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if dataDir == "" && !noHistory {
		if home, err := os.UserHomeDir(); err == nil {
			dataDir = filepath.Join(home, ".evdash-chat")
		}
	}
	if noHistory {
		dataDir = ""
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := chat.NewClient(ctx, chat.ClientConfig{
		ServerURL: serverURL,
		SSEPath:   ssePath,
		LLM: chat.LLMConfig{
			Provider:  provider,
			Model:     model,
			APIKey:    apiKey,
			OllamaURL: ollamaURL,
		},
		DataDir: dataDir,
		NoColor: noColor,
		Plain:   plain,
	})
	if err != nil {
		return err
	}

	return client.Run(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
