// ABOUTME: View rendering for the TUI (converts model state to terminal output)
// ABOUTME: Implements the Elm architecture View function
package tui

import (
	"fmt"
	"strings"

	"github.com/harper/rpcline/internal/tui/client"
)

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var sb strings.Builder
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	sb.WriteString(m.theme.InputStyle().Width(m.width).Render(m.input.View()))
	sb.WriteString("\n")
	sb.WriteString(m.statusBar())
	return sb.String()
}

func (m Model) renderTranscript() string {
	entries := m.transcript.Entries()
	lines := make([]string, 0, len(entries))

	for _, e := range entries {
		text := e.Text
		style := m.theme.TranscriptStyle()

		switch e.Kind {
		case client.EntrySent:
			style = m.theme.SentStyle()
		case client.EntryReceived:
			style = m.theme.ReceivedStyle()
			if !m.showRaw && e.Summary != "" {
				text = e.Summary
			}
		case client.EntryError:
			style = m.theme.ErrorStyle()
		case client.EntrySystem:
			style = m.theme.DimStyle()
		}

		stamp := m.theme.DimStyle().Render(e.Timestamp.Format("15:04:05"))
		lines = append(lines, fmt.Sprintf("%s %s %s", stamp, e.Kind.Icon(), style.Render(text)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) statusBar() string {
	var indicator string
	switch m.status {
	case statusConnected:
		indicator = m.theme.SuccessStyle().Render("●") + " Connected"
	case statusConnecting:
		indicator = "○ Connecting"
	default:
		indicator = m.theme.ErrorStyle().Render("●") + " Disconnected"
	}

	mode := "summary"
	if m.showRaw {
		mode = "raw"
	}

	left := fmt.Sprintf("%s  sent:%d  received:%d  pending:%d  errors:%d  view:%s",
		indicator, m.sent, m.received, m.conn.Pending(), m.errors, mode)
	shortcuts := "Enter: send, Ctrl+R: raw, Ctrl+L: clear, Esc: quit"
	return m.theme.StatusBarStyle().Width(m.width).Render(left + "  |  " + shortcuts)
}
