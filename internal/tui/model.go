// ABOUTME: Core Bubbletea model and state for the rpcline TUI client
// ABOUTME: Holds the connection, transcript and the input/viewport widgets
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/harper/rpcline/internal/tui/client"
	"github.com/harper/rpcline/internal/tui/theme"
)

// Conn is the part of client.Client the model drives.
type Conn interface {
	Connect(ctx context.Context) error
	Submit(input string) (client.Sent, error)
	IsConnected() bool
	Responses() <-chan client.Response
	Err() error
	Pending() int
	Close() error
	URL() string
}

const (
	statusConnecting   = "connecting"
	statusConnected    = "connected"
	statusDisconnected = "disconnected"
)

type Model struct {
	theme  theme.Theme
	width  int
	height int

	conn       Conn
	transcript *client.Transcript

	input    textinput.Model
	viewport viewport.Model

	status   string
	showRaw  bool
	sent     int
	received int
	errors   int
}

func NewModel(conn Conn, th theme.Theme, historyLimit int) Model {
	ti := textinput.New()
	ti.Placeholder = `add 1 2  |  !subtract 5 3  |  {"jsonrpc":"2.0",...}`
	ti.Prompt = "> "
	ti.CharLimit = 0
	ti.Focus()

	return Model{
		theme:      th,
		conn:       conn,
		transcript: client.NewTranscript(historyLimit),
		input:      ti,
		viewport:   viewport.New(80, 20),
		status:     statusConnecting,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.connect())
}
