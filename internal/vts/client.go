// Package vts is a client for the VTube Studio public API.
//
// The client keeps at most one WebSocket connection open. It connects lazily
// on the first Send and never reconnects on its own: after a disconnect the
// next Send dials again. Connection changes are reported on Events:
//   - EventConnected after every successful dial
//   - EventDisconnected when the connection ends for any reason
//   - EventNewAuthToken when the remote pushes a token nobody asked for
package vts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
)

const (
	// DefaultURL is where VTube Studio listens by default.
	DefaultURL = "ws://localhost:8001"

	apiName             = "VTubeStudioPublicAPI"
	apiVersion          = "1.0"
	messageTypeAPIError = "APIError"

	// Model icons and hotkey lists can be large.
	maxMessageSize = 16 << 20

	eventBuffer = 32

	// DefaultWriteTimeout bounds a single frame write.
	DefaultWriteTimeout = 10 * time.Second
)

type envelope struct {
	APIName     string          `json:"apiName"`
	APIVersion  string          `json:"apiVersion"`
	Timestamp   int64           `json:"timestamp,omitempty"`
	RequestID   string          `json:"requestID,omitempty"`
	MessageType string          `json:"messageType"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for connection diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets the HTTP client used for the WebSocket handshake.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithWriteTimeout bounds each frame write.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

// WithHeader adds headers to the WebSocket handshake.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		c.header = header
	}
}

// Client talks to one VTube Studio instance.
type Client struct {
	url          string
	httpClient   *http.Client
	header       http.Header
	logger       *slog.Logger
	writeTimeout time.Duration

	// dialMu serializes dials so concurrent senders share one connection.
	dialMu sync.Mutex

	// Connection state (guarded by mu).
	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan envelope
	closed  bool

	events chan Event
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a client for the API at url. No connection is made until the
// first Send.
func New(url string, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		url:          url,
		logger:       slog.Default(),
		writeTimeout: DefaultWriteTimeout,
		pending:      make(map[string]chan envelope),
		events:       make(chan Event, eventBuffer),
		ctx:          ctx,
		cancel:       cancel,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// URL returns the endpoint the client dials.
func (c *Client) URL() string {
	return c.url
}

// Events returns the connection event stream. It is closed by Close.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Connected reports whether a connection is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn != nil
}

// Send issues req and decodes the response data into out (which may be nil).
// It dials first when no connection is open. Failures are either a
// *TransportError (errors.Is ErrTransport), an *APIError, or a context error.
//
// ctx bounds the dial and the wait for the reply. The write itself runs on
// the client's own timeout, because websocket closes the whole connection
// when a write's context ends and other senders share it.
func (c *Client) Send(ctx context.Context, req Request, out any) error {
	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", req.MessageType(), err)
	}

	id := uuid.NewString()
	msg := envelope{
		APIName:     apiName,
		APIVersion:  apiVersion,
		RequestID:   id,
		MessageType: req.MessageType(),
		Data:        data,
	}

	replies := make(chan envelope, 1)

	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return &TransportError{Op: "send", Err: errConnectionLost}
	}
	c.pending[id] = replies
	c.mu.Unlock()

	defer c.forget(id)

	if err := c.write(ctx, conn, msg); err != nil {
		return &TransportError{Op: "write", Err: err}
	}

	select {
	case reply, ok := <-replies:
		if !ok {
			return &TransportError{Op: "read", Err: errConnectionLost}
		}

		return decodeReply(reply, req, out)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the connection and the event stream. It is safe to call more
// than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "client closed")
	}

	c.cancel()
	c.wg.Wait()
	close(c.events)

	return nil
}

func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	c.dialMu.Lock()
	defer c.dialMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, &TransportError{Op: "dial", Err: ErrClosed}
	}
	if c.conn != nil {
		conn := c.conn
		c.mu.Unlock()
		return conn, nil
	}
	c.mu.Unlock()

	conn, _, err := websocket.Dial(ctx, c.url, &websocket.DialOptions{
		HTTPClient: c.httpClient,
		HTTPHeader: c.header,
	})
	if err != nil {
		return nil, &TransportError{Op: "dial", Err: err}
	}

	conn.SetReadLimit(maxMessageSize)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.CloseNow()
		return nil, &TransportError{Op: "dial", Err: ErrClosed}
	}
	c.conn = conn
	c.wg.Add(1)
	c.mu.Unlock()

	c.logger.Debug("vts connection established", slog.String("url", c.url))

	go c.readLoop(conn)

	return conn, nil
}

// readLoop owns every event emitted for conn, so Connected is always queued
// before the matching Disconnected.
func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	c.emit(Event{Kind: EventConnected})

	for {
		_, data, err := conn.Read(c.ctx)
		if err != nil {
			c.drop(conn, err)
			return
		}

		var msg envelope
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Debug("discarding undecodable vts frame", slog.String("error", err.Error()))
			continue
		}

		c.mu.Lock()
		replies, ok := c.pending[msg.RequestID]
		if ok {
			delete(c.pending, msg.RequestID)
		}
		c.mu.Unlock()

		if ok {
			replies <- msg
			continue
		}

		c.unsolicited(msg)
	}
}

// unsolicited handles frames that answer no pending request.
func (c *Client) unsolicited(msg envelope) {
	if msg.MessageType == "AuthenticationTokenResponse" {
		var resp AuthenticationTokenResponse
		if err := json.Unmarshal(msg.Data, &resp); err == nil && resp.AuthenticationToken != "" {
			c.emit(Event{Kind: EventNewAuthToken, Token: resp.AuthenticationToken})
			return
		}
	}

	c.emit(Event{Kind: EventOther, MessageType: msg.MessageType})
}

// drop tears down conn and fails every request waiting on it.
func (c *Client) drop(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	var waiting map[string]chan envelope
	if c.conn == conn {
		c.conn = nil
		waiting = c.pending
		c.pending = make(map[string]chan envelope)
	}
	c.mu.Unlock()

	for _, replies := range waiting {
		close(replies)
	}

	_ = conn.CloseNow()

	c.logger.Debug("vts connection closed", slog.String("reason", cause.Error()))
	c.emit(Event{Kind: EventDisconnected, Err: cause})
}

func (c *Client) write(ctx context.Context, conn *websocket.Conn, msg envelope) error {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.writeTimeout)
	defer cancel()

	return wsjson.Write(writeCtx, conn, msg)
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.ctx.Done():
	}
}

func decodeReply(reply envelope, req Request, out any) error {
	if reply.MessageType == messageTypeAPIError {
		apiErr := &APIError{RequestID: reply.RequestID}
		if err := json.Unmarshal(reply.Data, apiErr); err != nil {
			return fmt.Errorf("decode api error: %w", err)
		}

		return apiErr
	}

	if want := ResponseType(req); reply.MessageType != want {
		return fmt.Errorf("unexpected response %q to %s (want %q)", reply.MessageType, req.MessageType(), want)
	}

	if out == nil || len(reply.Data) == 0 {
		return nil
	}

	if err := json.Unmarshal(reply.Data, out); err != nil {
		return fmt.Errorf("decode %s: %w", reply.MessageType, err)
	}

	return nil
}

// Ping sends an APIStateRequest and reports the round trip time.
func (c *Client) Ping(ctx context.Context) (APIStateResponse, time.Duration, error) {
	var resp APIStateResponse

	start := time.Now()
	err := c.Send(ctx, &APIStateRequest{}, &resp)

	return resp, time.Since(start), err
}
