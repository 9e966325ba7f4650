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
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// ANSI color codes for the terminal UI
const (
	colorReset  = "\033[0m"
	colorCyan   = "\033[36m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// UI handles terminal rendering for the chat client
type UI struct {
	noColor  bool
	plain    bool
	renderer *glamour.TermRenderer
}

// NewUI creates a terminal UI. With plain set, markdown is printed
// verbatim instead of rendered.
func NewUI(noColor, plain bool) *UI {
	ui := &UI{noColor: noColor, plain: plain}

	if !plain {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(terminalWidth()),
		)
		if err == nil {
			ui.renderer = renderer
		}
	}

	return ui
}

// terminalWidth returns the usable render width, capped at 120
func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	if width > 120 {
		width = 120
	}
	return width
}

func (u *UI) colorize(color, text string) string {
	if u.noColor {
		return text
	}
	return color + text + colorReset
}

// UserPrompt returns the input prompt string
func (u *UI) UserPrompt() string {
	return u.colorize(colorCyan, "You: ")
}

// PrintWelcome prints the startup banner
func (u *UI) PrintWelcome(serverURL, provider, model string) {
	fmt.Println(u.colorize(colorGreen, "EV Registration Analytics Chat"))
	fmt.Printf("Connected to %s (provider: %s, model: %s)\n", serverURL, provider, model)
	fmt.Println(u.colorize(colorGray, "Type /help for commands, /quit to exit."))
	fmt.Println()
}

// PrintAssistant renders one assistant reply
func (u *UI) PrintAssistant(text string) {
	fmt.Print(u.colorize(colorGreen, "Assistant: "))
	if u.renderer != nil {
		rendered, err := u.renderer.Render(text)
		if err == nil {
			fmt.Println(strings.TrimRight(rendered, "\n"))
			fmt.Println()
			return
		}
	}
	fmt.Println(text)
	fmt.Println()
}

// PrintToolCall announces a tool invocation in progress
func (u *UI) PrintToolCall(name string, args map[string]interface{}) {
	if sql, ok := args["sql"].(string); ok {
		fmt.Println(u.colorize(colorYellow, fmt.Sprintf("[running %s] %s", name, sql)))
		return
	}
	fmt.Println(u.colorize(colorYellow, fmt.Sprintf("[running %s]", name)))
}

// PrintError prints an error line
func (u *UI) PrintError(err error) {
	fmt.Println(u.colorize(colorRed, "Error: "+err.Error()))
}

// PrintInfo prints a dim informational line
func (u *UI) PrintInfo(text string) {
	fmt.Println(u.colorize(colorGray, text))
}
