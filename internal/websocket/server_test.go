package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	rpchttp "github.com/harper/rpcline/internal/http"
	"github.com/harper/rpcline/internal/jsonrpc"
	"github.com/harper/rpcline/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()

	httpSrv := httptest.NewServer(srv)
	t.Cleanup(httpSrv.Close)

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err, "failed to connect")
	t.Cleanup(func() { _ = ws.Close() })
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	return ws
}

func send(t *testing.T, ws *websocket.Conn, line string) string {
	t.Helper()
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(line)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func TestWebSocketRequests(t *testing.T) {
	mgr := session.NewManager(jsonrpc.NewDispatcher(), nil) // nil db for test
	ws := dial(t, NewServer(mgr, 1<<20, nil))

	assert.Equal(t, `{"jsonrpc":"2.0","id":1,"result":3}`,
		send(t, ws, `{"jsonrpc":"2.0","id":1,"method":"add","params":[1,2]}`))

	// Notifications get no message back.
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","method":"add","params":[1]}`)))

	assert.Equal(t, `[{"jsonrpc":"2.0","id":"x","result":5},{"jsonrpc":"2.0","error":{"code":-32601,"message":"Method not found"},"id":"y"}]`,
		send(t, ws, `[{"jsonrpc":"2.0","id":"x","method":"subtract","params":[7,2]},{"jsonrpc":"2.0","id":"y","method":"nope"}]`))

	assert.Equal(t, `{"jsonrpc":"2.0","error":{"code":-32700,"message":"Parse error"},"id":null}`,
		send(t, ws, `not json`))
}

func TestWebSocketSessionClosesOnDisconnect(t *testing.T) {
	mgr := session.NewManager(jsonrpc.NewDispatcher(), nil)
	ws := dial(t, NewServer(mgr, 1<<20, nil))

	send(t, ws, `{"jsonrpc":"2.0","id":1,"method":"add","params":[]}`)
	assert.Equal(t, 1, mgr.ActiveCount())

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	require.NoError(t, ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)))

	assert.Eventually(t, func() bool { return mgr.ActiveCount() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestWebSocketReadLimit(t *testing.T) {
	mgr := session.NewManager(jsonrpc.NewDispatcher(), nil)
	ws := dial(t, NewServer(mgr, 64, nil))

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","id":1,"method":"add","params":[`+strings.Repeat("1,", 64)+`1]}`)))
	_, _, err := ws.ReadMessage()
	assert.Error(t, err)
}

func TestFallbackHandlesPlainPost(t *testing.T) {
	mgr := session.NewManager(jsonrpc.NewDispatcher(), nil)
	srv := NewServer(mgr, 1<<20, rpchttp.NewServer(mgr, 1<<20))

	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"add","params":[2,2]}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "{\"jsonrpc\":\"2.0\",\"id\":1,\"result\":4}\n", rec.Body.String())
}

func dialWithOrigin(t *testing.T, srv *Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	httpSrv := httptest.NewServer(srv)
	t.Cleanup(httpSrv.Close)

	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http")
	return websocket.DefaultDialer.Dial(wsURL, header)
}

func TestOriginPolicy(t *testing.T) {
	mgr := session.NewManager(jsonrpc.NewDispatcher(), nil)

	tests := []struct {
		name    string
		allowed []string
		origin  string
		ok      bool
	}{
		{"no origin header", nil, "", true},
		{"cross origin rejected by default", nil, "http://evil.example", false},
		{"listed origin", []string{"http://localhost:3000/"}, "http://LOCALHOST:3000", true},
		{"unlisted origin", []string{"http://localhost:3000"}, "http://evil.example", false},
		{"wildcard", []string{"*"}, "http://anything.example", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws, resp, err := dialWithOrigin(t, NewServer(mgr, 1<<20, nil, WithAllowedOrigins(tt.allowed)), tt.origin)
			if tt.ok {
				require.NoError(t, err)
				_ = ws.Close()
				return
			}
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}
}
