package tilepad

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// writeTimeout bounds every write to the host.
const writeTimeout = 5 * time.Second

var (
	// ErrSessionClosed is returned by writes after the session ended.
	ErrSessionClosed = errors.New("tilepad: session closed")

	// ErrHostUnreachable wraps a failure to dial the host.
	ErrHostUnreachable = errors.New("tilepad: host unreachable")
)

// Session is the plugin's connection to the host.
type Session struct {
	pluginID string
	conn     *websocket.Conn

	mu     sync.Mutex
	closed bool
}

func newSession(pluginID string, conn *websocket.Conn) *Session {
	return &Session{pluginID: pluginID, conn: conn}
}

// PluginID returns the id the host launched the plugin with.
func (s *Session) PluginID() string {
	return s.pluginID
}

// RequestProperties asks the host to deliver the plugin settings.
func (s *Session) RequestProperties() error {
	return s.write(getProperties{Type: typeGetProperties})
}

// SetProperties replaces the plugin settings stored by the host.
func (s *Session) SetProperties(properties any) error {
	return s.write(setProperties{Type: typeSetProperties, Properties: properties})
}

// SendToInspector sends message to the inspector identified by ctx.
func (s *Session) SendToInspector(ctx InspectorContext, message any) error {
	return s.write(sendToInspector{Type: typeSendToInspector, Ctx: ctx, Message: message})
}

func (s *Session) write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := wsjson.Write(ctx, s.conn, v); err != nil {
		return fmt.Errorf("write to host: %w", err)
	}

	return nil
}

func (s *Session) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Inspector is an open inspector panel.
type Inspector struct {
	Ctx     InspectorContext
	session *Session
}

// NewInspector returns a handle for the inspector identified by ctx.
func NewInspector(session *Session, ctx InspectorContext) *Inspector {
	return &Inspector{Ctx: ctx, session: session}
}

// Send delivers message to the inspector.
func (i *Inspector) Send(message any) error {
	return i.session.SendToInspector(i.Ctx, message)
}
