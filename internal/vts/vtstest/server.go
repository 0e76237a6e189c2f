// Package vtstest provides an in-process fake of the VTube Studio public API
// for tests.
package vtstest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/musher-dev/tilepad-vtstudio/internal/vts"
)

// Handler answers one request. Returning a non-nil *vts.APIError sends an
// APIError frame instead of a response.
type Handler func(data json.RawMessage) (any, *vts.APIError)

// Received is one request seen by the server.
type Received struct {
	MessageType string
	Data        json.RawMessage
}

type frame struct {
	APIName     string          `json:"apiName"`
	APIVersion  string          `json:"apiVersion"`
	RequestID   string          `json:"requestID,omitempty"`
	MessageType string          `json:"messageType"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// Server is a fake VTube Studio endpoint.
type Server struct {
	// URL is the ws:// address to dial.
	URL string

	srv *httptest.Server

	mu       sync.Mutex
	handlers map[string]Handler
	requests []Received
	conns    map[*websocket.Conn]struct{}
	accepts  int
}

// NewServer starts a fake server that answers APIStateRequest by default.
// It is shut down when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		handlers: make(map[string]Handler),
		conns:    make(map[*websocket.Conn]struct{}),
	}

	s.Handle("APIStateRequest", func(json.RawMessage) (any, *vts.APIError) {
		return vts.APIStateResponse{Active: true, VTubeStudioVersion: "1.28.0"}, nil
	})

	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
	s.URL = "ws" + strings.TrimPrefix(s.srv.URL, "http")

	t.Cleanup(func() {
		s.DropConnections()
		s.srv.Close()
	})

	return s
}

// Handle registers h for requests of messageType.
func (s *Server) Handle(messageType string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers[messageType] = h
}

// Requests returns every request received so far, in order.
func (s *Server) Requests() []Received {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Received(nil), s.requests...)
}

// Count returns how many requests of messageType were received.
func (s *Server) Count(messageType string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.MessageType == messageType {
			n++
		}
	}

	return n
}

// Accepts returns how many connections were accepted.
func (s *Server) Accepts() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.accepts
}

// Push sends an unsolicited frame to every open connection.
func (s *Server) Push(messageType string, data any) {
	raw, _ := json.Marshal(data)

	for _, conn := range s.openConns() {
		_ = wsjson.Write(context.Background(), conn, frame{
			APIName:     "VTubeStudioPublicAPI",
			APIVersion:  "1.0",
			MessageType: messageType,
			Data:        raw,
		})
	}
}

// DropConnections closes every open connection from the server side.
func (s *Server) DropConnections() {
	for _, conn := range s.openConns() {
		_ = conn.CloseNow()
	}
}

func (s *Server) openConns() []*websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()

	conns := make([]*websocket.Conn, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}

	return conns
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.accepts++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.CloseNow()
	}()

	for {
		var req frame
		if err := wsjson.Read(r.Context(), conn, &req); err != nil {
			return
		}

		s.mu.Lock()
		s.requests = append(s.requests, Received{MessageType: req.MessageType, Data: req.Data})
		h := s.handlers[req.MessageType]
		s.mu.Unlock()

		reply := frame{
			APIName:    "VTubeStudioPublicAPI",
			APIVersion: "1.0",
			RequestID:  req.RequestID,
		}

		if h == nil {
			reply.MessageType = "APIError"
			reply.Data, _ = json.Marshal(vts.APIError{ErrorID: 2, Message: "unknown request " + req.MessageType})
		} else {
			resp, apiErr := h(req.Data)
			if apiErr != nil {
				reply.MessageType = "APIError"
				reply.Data, _ = json.Marshal(apiErr)
			} else {
				reply.MessageType = strings.TrimSuffix(req.MessageType, "Request") + "Response"
				reply.Data, _ = json.Marshal(resp)
			}
		}

		if err := wsjson.Write(r.Context(), conn, reply); err != nil {
			return
		}
	}
}
