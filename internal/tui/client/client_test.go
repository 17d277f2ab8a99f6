// ABOUTME: Unit tests for the WebSocket client against a real rpcline websocket handler
// ABOUTME: Tests id allocation, response matching for calls and batches, and disconnects
package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harper/rpcline/internal/jsonrpc"
	"github.com/harper/rpcline/internal/session"
	rpcws "github.com/harper/rpcline/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func connect(t *testing.T) *Client {
	t.Helper()
	mgr := session.NewManager(jsonrpc.NewDispatcher(), nil)
	server := httptest.NewServer(rpcws.NewServer(mgr, 1<<20, nil))
	t.Cleanup(server.Close)

	c := NewClient(wsURL(server))
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func next(t *testing.T, c *Client) Response {
	t.Helper()
	select {
	case resp, ok := <-c.Responses():
		require.True(t, ok, "connection closed")
		return resp
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for response")
		return Response{}
	}
}

func TestClient_Connect(t *testing.T) {
	c := connect(t)
	assert.True(t, c.IsConnected())
	assert.Error(t, c.Connect(context.Background()), "second connect is rejected")
}

func TestClient_CallMatchesResponse(t *testing.T) {
	c := connect(t)

	sent, err := c.Call("add", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, `{"jsonrpc":"2.0","method":"add","params":[1,2],"id":1}`, sent.Line)
	assert.Equal(t, []string{"1"}, sent.IDs)

	resp := next(t, c)
	assert.Equal(t, `{"jsonrpc":"2.0","id":1,"result":3}`, resp.Line)
	assert.Equal(t, "#1 → 3", resp.Summary)
	assert.Equal(t, []string{"1"}, resp.Matched)
	assert.Empty(t, resp.Unknown)
	assert.Equal(t, 0, c.Pending())

	sent, err = c.Call("subtract", 5, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, sent.IDs)
	assert.Equal(t, "#2 → 2", next(t, c).Summary)
}

func TestClient_NotifyExpectsNothing(t *testing.T) {
	c := connect(t)

	sent, err := c.Notify("add", 1)
	require.NoError(t, err)
	assert.True(t, sent.Notify)
	assert.Empty(t, sent.IDs)
	assert.Equal(t, 0, c.Pending())

	// The next reply belongs to the call, not the notification.
	_, err = c.Call("add", 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, next(t, c).Matched)
}

func TestClient_SubmitBatchMatchesEveryID(t *testing.T) {
	c := connect(t)

	sent, err := c.Submit(`[{"jsonrpc":"2.0","id":"a","method":"add","params":[1]},` +
		`{"jsonrpc":"2.0","method":"add","params":[2]},` +
		`{"jsonrpc":"2.0","id":"b","method":"nope"}]`)
	require.NoError(t, err)
	assert.Equal(t, []string{`"a"`, `"b"`}, sent.IDs)
	assert.Equal(t, 2, c.Pending())

	resp := next(t, c)
	assert.ElementsMatch(t, []string{`"a"`, `"b"`}, resp.Matched)
	assert.Equal(t, `#"a" → 1; #"b" ✗ -32601 Method not found`, resp.Summary)
	assert.Equal(t, 0, c.Pending())
}

func TestClient_SubmitShorthand(t *testing.T) {
	c := connect(t)

	sent, err := c.Submit("!subtract 5 3")
	require.NoError(t, err)
	assert.True(t, sent.Notify)

	sent, err = c.Submit("add 2 2")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, sent.IDs)
	assert.Equal(t, "#1 → 4", next(t, c).Summary)

	_, err = c.Submit("add two")
	assert.Error(t, err)
}

func TestClient_UnknownIDs(t *testing.T) {
	c := connect(t)

	_, err := c.Submit("{not json")
	require.NoError(t, err)

	resp := next(t, c)
	assert.Empty(t, resp.Matched)
	assert.Equal(t, []string{"null"}, resp.Unknown)
	assert.Equal(t, "#null ✗ -32700 Parse error", resp.Summary)
}

func TestClient_NotConnected(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1/rpc")
	assert.Error(t, c.Connect(context.Background()))
	assert.False(t, c.IsConnected())

	_, err := c.Call("add", 1)
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = c.Submit(`{"jsonrpc":"2.0","id":1,"method":"add"}`)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, 0, c.Pending())
}

func TestClient_ServerGoneReportsError(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// Read the request, then drop the connection without answering.
		_, _, _ = conn.ReadMessage()
		_ = conn.Close()
	}))
	defer server.Close()

	c := NewClient(wsURL(server))
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()
	responses := c.Responses()

	_, err := c.Call("add", 1)
	require.NoError(t, err)

	select {
	case _, ok := <-responses:
		assert.False(t, ok, "channel closes when the server goes away")
	case <-time.After(2 * time.Second):
		t.Fatal("expected the connection to end")
	}
	require.Error(t, c.Err())
	assert.Contains(t, c.Err().Error(), "read")
	assert.False(t, c.IsConnected())
	assert.Equal(t, 0, c.Pending(), "unanswered requests are dropped")
}

func TestClient_CloseAndReconnect(t *testing.T) {
	c := connect(t)
	responses := c.Responses()

	require.NoError(t, c.Close())
	assert.NoError(t, c.Close())
	assert.False(t, c.IsConnected())

	select {
	case _, ok := <-responses:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("responses not closed after Close")
	}
	assert.NoError(t, c.Err(), "a close we asked for is not an error")

	require.NoError(t, c.Connect(context.Background()))
	sent, err := c.Call("add", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, next(t, c).Matched)
	assert.NotEmpty(t, sent.Line)
}
