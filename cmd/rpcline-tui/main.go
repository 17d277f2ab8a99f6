// ABOUTME: Entry point for the rpcline TUI client
// ABOUTME: Connects to a server's WebSocket endpoint and starts the Bubbletea application
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harper/rpcline/internal/tui"
	"github.com/harper/rpcline/internal/tui/client"
	"github.com/harper/rpcline/internal/tui/theme"
	"github.com/joho/godotenv"
)

const defaultURL = "ws://127.0.0.1:7879/rpc"

func main() {
	_ = godotenv.Load()

	url := flag.String("url", envOr("RPCLINE_TUI_URL", defaultURL), "websocket URL of the rpcline server")
	themeName := flag.String("theme", envOr("RPCLINE_TUI_THEME", "default"), "color theme: default, dark or light")
	history := flag.Int("history", 1000, "number of transcript lines to keep")
	flag.Parse()

	m := tui.NewModel(client.NewClient(*url), theme.GetTheme(*themeName), *history)

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
