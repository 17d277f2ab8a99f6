// ABOUTME: Update logic for the TUI (handles all messages and state transitions)
// ABOUTME: Implements the Elm architecture Update function
package tui

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harper/rpcline/internal/tui/client"
)

type ConnectedMsg struct{}

type ResponseMsg struct {
	Response client.Response
}

type ErrorMsg struct {
	Err error
}

type DisconnectedMsg struct{}

func (m Model) connect() tea.Cmd {
	conn := m.conn
	return func() tea.Msg {
		if err := conn.Connect(context.Background()); err != nil {
			return ErrorMsg{Err: err}
		}
		return ConnectedMsg{}
	}
}

// waitForMessage blocks until the connection delivers a response or ends.
func (m Model) waitForMessage() tea.Cmd {
	conn := m.conn
	responses := conn.Responses()
	return func() tea.Msg {
		resp, ok := <-responses
		if !ok {
			if err := conn.Err(); err != nil {
				return ErrorMsg{Err: err}
			}
			return DisconnectedMsg{}
		}
		return ResponseMsg{Response: resp}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateSizes()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			if m.conn != nil {
				_ = m.conn.Close()
			}
			return m, tea.Quit

		case "enter":
			return m.onSend(), nil

		case "ctrl+r":
			m.showRaw = !m.showRaw
			return m.refresh(), nil

		case "ctrl+l":
			m.transcript.Clear()
			return m.refresh(), nil

		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case ConnectedMsg:
		m.status = statusConnected
		m.transcript.Add(client.EntrySystem, "connected to "+m.conn.URL())
		return m.refresh(), m.waitForMessage()

	case ResponseMsg:
		m.received++
		m.transcript.AddResponse(msg.Response)
		return m.refresh(), m.waitForMessage()

	case ErrorMsg:
		m.status = statusDisconnected
		m.errors++
		m.transcript.Add(client.EntryError, msg.Err.Error())
		return m.refresh(), nil

	case DisconnectedMsg:
		m.status = statusDisconnected
		m.transcript.Add(client.EntrySystem, "connection closed")
		return m.refresh(), nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) updateSizes() {
	if m.width == 0 || m.height == 0 {
		return
	}

	// input line + status bar
	transcriptHeight := m.height - 2
	if transcriptHeight < 1 {
		transcriptHeight = 1
	}
	m.viewport.Width = m.width
	m.viewport.Height = transcriptHeight
	m.input.Width = m.width - 4
	m.viewport.SetContent(m.renderTranscript())
}

// onSend submits the input line. The input is kept when nothing was sent.
func (m Model) onSend() Model {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return m
	}

	sent, err := m.conn.Submit(text)
	switch {
	case errors.Is(err, client.ErrNotConnected):
		m.transcript.Add(client.EntryError, "not connected to "+m.conn.URL())
		return m.refresh()
	case err != nil:
		m.transcript.Add(client.EntryError, err.Error())
		return m.refresh()
	}

	m.input.Reset()
	m.sent++
	line := sent.Line
	if sent.Notify {
		line += " (notification)"
	}
	m.transcript.Add(client.EntrySent, line)
	return m.refresh()
}

func (m Model) refresh() Model {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
	return m
}
