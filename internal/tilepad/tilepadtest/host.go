// Package tilepadtest provides an in-process fake Tilepad host for tests.
package tilepadtest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const waitTimeout = 2 * time.Second

// Frame is one message sent by the plugin.
type Frame map[string]any

// Type returns the frame's "type" tag.
func (f Frame) Type() string {
	s, _ := f["type"].(string)
	return s
}

// Host accepts plugin connections and records what they send.
type Host struct {
	// URL is the ws:// address to pass as the connect url.
	URL string

	frames chan Frame
	conns  chan *websocket.Conn

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewHost starts a fake host. It is shut down when the test ends.
func NewHost(t testing.TB) *Host {
	t.Helper()

	h := &Host{
		frames: make(chan Frame, 128),
		conns:  make(chan *websocket.Conn, 1),
	}

	srv := httptest.NewServer(http.HandlerFunc(h.serve))
	t.Cleanup(srv.Close)

	h.URL = "ws" + strings.TrimPrefix(srv.URL, "http")

	return h
}

// WaitConnected blocks until a plugin connects.
func (h *Host) WaitConnected(t testing.TB) {
	t.Helper()

	select {
	case conn := <-h.conns:
		h.mu.Lock()
		h.conn = conn
		h.mu.Unlock()
	case <-time.After(waitTimeout):
		t.Fatal("plugin never connected to host")
	}
}

// Send writes a raw JSON frame to the plugin.
func (h *Host) Send(t testing.TB, raw string) {
	t.Helper()

	h.mu.Lock()
	conn := h.conn
	h.mu.Unlock()

	if conn == nil {
		t.Fatal("Send before WaitConnected")
	}

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()

	if err := conn.Write(ctx, websocket.MessageText, []byte(raw)); err != nil {
		t.Fatalf("host write: %v", err)
	}
}

// SendJSON marshals v and writes it to the plugin.
func (h *Host) SendJSON(t testing.TB, v any) {
	t.Helper()

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal host frame: %v", err)
	}

	h.Send(t, string(data))
}

// Close closes the plugin connection normally.
func (h *Host) Close() {
	h.mu.Lock()
	conn := h.conn
	h.mu.Unlock()

	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
}

// Next returns the next frame sent by the plugin.
func (h *Host) Next(t testing.TB) Frame {
	t.Helper()

	select {
	case f := <-h.frames:
		return f
	case <-time.After(waitTimeout):
		t.Fatal("no frame from plugin")
		return nil
	}
}

// NextOfType skips frames until one tagged typ arrives.
func (h *Host) NextOfType(t testing.TB, typ string) Frame {
	t.Helper()

	deadline := time.After(waitTimeout)

	for {
		select {
		case f := <-h.frames:
			if f.Type() == typ {
				return f
			}
		case <-deadline:
			t.Fatalf("no %s frame from plugin", typ)
			return nil
		}
	}
}

// Quiet fails the test if the plugin sends a frame tagged typ within d.
func (h *Host) Quiet(t testing.TB, typ string, d time.Duration) {
	t.Helper()

	deadline := time.After(d)

	for {
		select {
		case f := <-h.frames:
			if f.Type() == typ {
				t.Fatalf("unexpected %s frame: %v", typ, f)
			}
		case <-deadline:
			return
		}
	}
}

// Drain discards every frame sent within d.
func (h *Host) Drain(d time.Duration) {
	deadline := time.After(d)

	for {
		select {
		case <-h.frames:
		case <-deadline:
			return
		}
	}
}

func (h *Host) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()

	h.conns <- conn

	for {
		var f Frame
		if err := wsjson.Read(r.Context(), conn, &f); err != nil {
			return
		}

		h.frames <- f
	}
}
