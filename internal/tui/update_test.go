// ABOUTME: Unit tests for TUI update logic
// ABOUTME: Tests message handling and state transitions against a fake connection
package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harper/rpcline/internal/jsonvalue"
	"github.com/harper/rpcline/internal/tui/client"
	"github.com/harper/rpcline/internal/tui/theme"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	connected  bool
	connectErr error
	sendErr    error
	sent       []string
	nextID     int
	closed     bool
	pending    int
	err        error
	responses  chan client.Response
}

func newFakeConn() *fakeConn {
	return &fakeConn{responses: make(chan client.Response, 10)}
}

func (f *fakeConn) Connect(ctx context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

// Submit encodes shorthand the way client.Client does, numbering calls from 1.
func (f *fakeConn) Submit(input string) (client.Sent, error) {
	if !f.connected {
		return client.Sent{}, client.ErrNotConnected
	}
	cmd, err := client.ParseCommand(input)
	if err != nil {
		return client.Sent{}, err
	}
	if f.sendErr != nil {
		return client.Sent{}, f.sendErr
	}

	sent := client.Sent{Notify: cmd.Notify}
	var id jsonvalue.Value
	if !cmd.Notify {
		f.nextID++
		id = jsonvalue.Number(f.nextID)
		sent.IDs = []string{jsonvalue.Stringify(id)}
		f.pending++
	}
	sent.Line = client.EncodeRequest(cmd.Method, cmd.Params, id)
	f.sent = append(f.sent, sent.Line)
	return sent, nil
}

func (f *fakeConn) IsConnected() bool { return f.connected }
func (f *fakeConn) Responses() <-chan client.Response { return f.responses }
func (f *fakeConn) Err() error { return f.err }
func (f *fakeConn) Pending() int { return f.pending }
func (f *fakeConn) URL() string { return "ws://test/rpc" }
func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func newTestModel(conn *fakeConn) Model {
	m := NewModel(conn, theme.DefaultTheme, 100)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model)
}

func typeText(m Model, text string) Model {
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return updated.(Model)
}

func press(m Model, key tea.KeyType) (Model, tea.Cmd) {
	updated, cmd := m.Update(tea.KeyMsg{Type: key})
	return updated.(Model), cmd
}

func TestConnectCmd(t *testing.T) {
	conn := newFakeConn()
	m := newTestModel(conn)

	assert.Equal(t, ConnectedMsg{}, m.connect()())
	assert.True(t, conn.connected)

	conn.connectErr = errors.New("refused")
	msg, ok := m.connect()().(ErrorMsg)
	require.True(t, ok)
	assert.EqualError(t, msg.Err, "refused")
}

func TestConnectedStartsListening(t *testing.T) {
	conn := newFakeConn()
	m := newTestModel(conn)

	updated, cmd := m.Update(ConnectedMsg{})
	m = updated.(Model)
	assert.Equal(t, statusConnected, m.status)
	require.NotNil(t, cmd)

	resp := client.Response{Line: `{"jsonrpc":"2.0","id":1,"result":3}`, Summary: "#1 → 3", Matched: []string{"1"}}
	conn.responses <- resp
	assert.Equal(t, ResponseMsg{Response: resp}, cmd())
}

func TestConnectionEndReportsReadError(t *testing.T) {
	conn := newFakeConn()
	m := newTestModel(conn)

	conn.err = errors.New("read: connection reset")
	close(conn.responses)
	msg, ok := m.waitForMessage()().(ErrorMsg)
	require.True(t, ok)
	assert.EqualError(t, msg.Err, "read: connection reset")
}

func TestConnectionEndAfterNormalClose(t *testing.T) {
	conn := newFakeConn()
	m := newTestModel(conn)

	close(conn.responses)
	assert.Equal(t, DisconnectedMsg{}, m.waitForMessage()())
}

func TestSendShorthand(t *testing.T) {
	conn := newFakeConn()
	conn.connected = true
	m := newTestModel(conn)

	m = typeText(m, "add 1 2")
	m, _ = press(m, tea.KeyEnter)

	require.Len(t, conn.sent, 1)
	assert.Equal(t, `{"jsonrpc":"2.0","method":"add","params":[1,2],"id":1}`, conn.sent[0])
	assert.Equal(t, "", m.input.Value())
	assert.Equal(t, 1, m.sent)

	entries := m.transcript.Entries()
	require.NotEmpty(t, entries)
	assert.Equal(t, client.EntrySent, entries[len(entries)-1].Kind)
}

func TestSendNotification(t *testing.T) {
	conn := newFakeConn()
	conn.connected = true
	m := newTestModel(conn)

	m = typeText(m, "!subtract 5 3")
	m, _ = press(m, tea.KeyEnter)

	require.Len(t, conn.sent, 1)
	assert.Equal(t, `{"jsonrpc":"2.0","method":"subtract","params":[5,3]}`, conn.sent[0])
	assert.Contains(t, m.transcript.Entries()[0].Text, "(notification)")
}

func TestSendWhileDisconnected(t *testing.T) {
	conn := newFakeConn()
	m := newTestModel(conn)

	m = typeText(m, "add 1")
	m, _ = press(m, tea.KeyEnter)

	assert.Empty(t, conn.sent)
	entries := m.transcript.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, client.EntryError, entries[0].Kind)
	assert.Equal(t, "add 1", m.input.Value(), "input is kept for retry")
}

func TestSendBadShorthand(t *testing.T) {
	conn := newFakeConn()
	conn.connected = true
	m := newTestModel(conn)

	m = typeText(m, "add one")
	m, _ = press(m, tea.KeyEnter)

	assert.Empty(t, conn.sent)
	assert.Equal(t, client.EntryError, m.transcript.Entries()[0].Kind)
}

func TestSendFailure(t *testing.T) {
	conn := newFakeConn()
	conn.connected = true
	conn.sendErr = errors.New("send timeout")
	m := newTestModel(conn)

	m = typeText(m, "add 1")
	m, _ = press(m, tea.KeyEnter)

	assert.Equal(t, 0, m.sent)
	assert.Contains(t, m.transcript.Entries()[0].Text, "send timeout")
}

func TestResponsesAreSummarized(t *testing.T) {
	conn := newFakeConn()
	m := newTestModel(conn)

	updated, cmd := m.Update(ResponseMsg{Response: client.Response{
		Line:    `{"jsonrpc":"2.0","id":1,"result":3}`,
		Summary: "#1 → 3",
		Matched: []string{"1"},
	}})
	m = updated.(Model)
	assert.NotNil(t, cmd, "keeps listening")
	assert.Equal(t, 1, m.received)
	assert.Contains(t, m.renderTranscript(), "#1 → 3")

	m, _ = press(m, tea.KeyCtrlR)
	assert.True(t, m.showRaw)
	assert.Contains(t, m.renderTranscript(), `"result":3`)
}

func TestStatusBarShowsPending(t *testing.T) {
	conn := newFakeConn()
	conn.connected = true
	m := newTestModel(conn)

	m = typeText(m, "add 1 2")
	m, _ = press(m, tea.KeyEnter)
	assert.Contains(t, m.View(), "pending:1")
}

func TestErrorMarksDisconnected(t *testing.T) {
	m := newTestModel(newFakeConn())

	updated, cmd := m.Update(ErrorMsg{Err: errors.New("read: EOF")})
	m = updated.(Model)
	assert.Nil(t, cmd)
	assert.Equal(t, statusDisconnected, m.status)
	assert.Equal(t, 1, m.errors)
	assert.Contains(t, m.View(), "Disconnected")
}

func TestClearTranscript(t *testing.T) {
	m := newTestModel(newFakeConn())
	updated, _ := m.Update(DisconnectedMsg{})
	m = updated.(Model)
	require.Equal(t, 1, m.transcript.Len())

	m, _ = press(m, tea.KeyCtrlL)
	assert.Equal(t, 0, m.transcript.Len())
}

func TestQuitClosesConnection(t *testing.T) {
	conn := newFakeConn()
	m := newTestModel(conn)

	_, cmd := press(m, tea.KeyEsc)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.True(t, conn.closed)
}

func TestViewBeforeResize(t *testing.T) {
	m := NewModel(newFakeConn(), theme.DefaultTheme, 10)
	assert.Equal(t, "Loading...", m.View())
}
