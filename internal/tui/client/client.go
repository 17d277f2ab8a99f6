// ABOUTME: WebSocket client for an rpcline server that pairs responses with their requests
// ABOUTME: Allocates request ids, tracks pending calls including batches and summarizes replies
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harper/rpcline/internal/jsonvalue"
)

var ErrNotConnected = errors.New("not connected")

const (
	dialTimeout  = 30 * time.Second
	writeTimeout = 5 * time.Second
)

// Sent is a line written to the server and the ids it expects back.
type Sent struct {
	Line   string
	IDs    []string
	Notify bool
}

// Response is one line from the server checked against the pending requests.
// Matched ids were waiting for an answer; Unknown ids were not, which includes
// the null id of parse and envelope errors.
type Response struct {
	Line    string
	Summary string
	Matched []string
	Unknown []string
	Latency time.Duration // slowest matched request
}

type Client struct {
	url    string
	nextID atomic.Uint64

	mu        sync.Mutex
	conn      *websocket.Conn
	done      chan struct{}
	closing   bool
	err       error
	pending   map[string]time.Time
	responses chan Response

	writeMu sync.Mutex
}

func NewClient(url string) *Client {
	return &Client{
		url:     url,
		pending: make(map[string]time.Time),
	}
}

func (c *Client) URL() string {
	return c.url
}

// Connect dials the server and starts reading responses. A client that was
// closed or lost its connection may connect again.
func (c *Client) Connect(ctx context.Context) error {
	if c.IsConnected() {
		return fmt.Errorf("already connected to %s", c.url)
	}

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil) //nolint:bodyclose // websocket connection, not HTTP response
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.mu.Lock()
	if c.conn != nil && !c.closing {
		c.mu.Unlock()
		_ = conn.Close()
		return fmt.Errorf("already connected to %s", c.url)
	}
	c.conn = conn
	c.done = make(chan struct{})
	c.closing = false
	c.err = nil
	c.responses = make(chan Response, 64)
	out, done := c.responses, c.done
	c.mu.Unlock()

	go c.readLoop(conn, out, done)
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.closing
}

// Responses delivers server lines for the current connection. The channel is
// closed when the connection ends; Err then tells why.
func (c *Client) Responses() <-chan Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.responses
}

// Err returns the read error that ended the last connection, or nil after a
// normal close.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Pending returns the number of requests still waiting for a response.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Call sends a request with the next id.
func (c *Client) Call(method string, params ...float64) (Sent, error) {
	id := jsonvalue.Number(float64(c.nextID.Add(1)))
	sent := Sent{
		Line: EncodeRequest(method, params, id),
		IDs:  []string{jsonvalue.Stringify(id)},
	}
	if err := c.send(sent); err != nil {
		return Sent{}, err
	}
	return sent, nil
}

// Notify sends a request without id; the server never answers it.
func (c *Client) Notify(method string, params ...float64) (Sent, error) {
	sent := Sent{Line: EncodeRequest(method, params, nil), Notify: true}
	if err := c.send(sent); err != nil {
		return Sent{}, err
	}
	return sent, nil
}

// Submit sends what the user typed: raw JSON as is, shorthand through Call or
// Notify.
func (c *Client) Submit(input string) (Sent, error) {
	if IsRaw(input) {
		line := strings.TrimSpace(input)
		sent := Sent{Line: line, IDs: RequestIDs(line)}
		if err := c.send(sent); err != nil {
			return Sent{}, err
		}
		return sent, nil
	}

	cmd, err := ParseCommand(input)
	if err != nil {
		return Sent{}, err
	}
	if cmd.Notify {
		return c.Notify(cmd.Method, cmd.Params...)
	}
	return c.Call(cmd.Method, cmd.Params...)
}

// send registers the expected ids before writing so a fast reply always
// finds its request.
func (c *Client) send(sent Sent) error {
	c.mu.Lock()
	conn := c.conn
	if conn == nil || c.closing {
		c.mu.Unlock()
		return ErrNotConnected
	}
	now := time.Now()
	for _, id := range sent.IDs {
		c.pending[id] = now
	}
	c.mu.Unlock()

	c.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := conn.WriteMessage(websocket.TextMessage, []byte(sent.Line))
	c.writeMu.Unlock()

	if err != nil {
		c.mu.Lock()
		for _, id := range sent.IDs {
			delete(c.pending, id)
		}
		c.mu.Unlock()
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Close sends a normal close frame and drops the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	if conn == nil || c.closing {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	close(c.done)
	c.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return conn.Close()
}

func (c *Client) readLoop(conn *websocket.Conn, out chan<- Response, done <-chan struct{}) {
	defer close(out)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.disconnected(conn, err)
			return
		}

		select {
		case out <- c.match(string(data)):
		case <-done:
			c.disconnected(conn, nil)
			return
		}
	}
}

// match resolves the ids in a response line against the pending requests.
func (c *Client) match(line string) Response {
	resp := Response{Line: line, Summary: Describe(line)}
	v, err := jsonvalue.Parse(line)
	if err != nil {
		return resp
	}

	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range responseIDs(v) {
		sentAt, ok := c.pending[id]
		if !ok {
			resp.Unknown = append(resp.Unknown, id)
			continue
		}
		delete(c.pending, id)
		resp.Matched = append(resp.Matched, id)
		if d := now.Sub(sentAt); d > resp.Latency {
			resp.Latency = d
		}
	}
	return resp
}

// disconnected forgets conn and everything still pending on it.
func (c *Client) disconnected(conn *websocket.Conn, err error) {
	_ = conn.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		return
	}
	if err != nil && !c.closing && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.err = fmt.Errorf("read: %w", err)
	}
	c.conn = nil
	c.closing = false
	c.pending = make(map[string]time.Time)
}
