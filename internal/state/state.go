// Package state holds the plugin's shared client state and publishes its
// changes.
//
// One mutex guards the phase, the connection epoch, the cached token and the
// attached host handles. Phase changes and the matching inspector
// notification happen inside the same critical section, so no reader can
// observe a phase the inspector has not been told about.
package state

import (
	"log/slog"
	"sync"
)

// Settings is the shape of the plugin settings persisted by the host.
type Settings struct {
	AccessToken *string `json:"access_token"`
}

// SessionHandle is the attached host session.
type SessionHandle interface {
	// RequestProperties asks the host to deliver the current settings again.
	RequestProperties() error
	// SetProperties replaces the persisted settings.
	SetProperties(properties any) error
}

// InspectorHandle is an open settings panel.
type InspectorHandle interface {
	Send(message any) error
}

// TokenMirror keeps a second copy of the token outside the host settings.
type TokenMirror interface {
	Save(token string) error
	Delete() error
}

// Option configures a State.
type Option func(*State)

// WithTokenMirror mirrors every persisted token change to m.
func WithTokenMirror(m TokenMirror) Option {
	return func(s *State) {
		s.mirror = m
	}
}

// State is the single shared state container.
type State struct {
	logger *slog.Logger
	mirror TokenMirror

	mu        sync.Mutex
	phase     Phase
	epoch     uint64
	token     string
	session   SessionHandle
	inspector InspectorHandle
}

// New creates a State in the Disconnected phase.
func New(logger *slog.Logger, opts ...Option) *State {
	if logger == nil {
		logger = slog.Default()
	}

	s := &State{logger: logger}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Phase returns the current phase.
func (s *State) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.phase
}

// Snapshot returns the phase together with the connection epoch. The epoch
// changes on every connect and disconnect.
func (s *State) Snapshot() (Phase, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.phase, s.epoch
}

// Token returns the cached token, or "" when none is known.
func (s *State) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.token
}

// CacheToken remembers a token delivered by the host without persisting it
// again.
func (s *State) CacheToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// AttachSession replaces the session handle.
func (s *State) AttachSession(session SessionHandle) {
	s.mu.Lock()
	s.session = session
	s.mu.Unlock()
}

// Session returns the attached session, or nil.
func (s *State) Session() SessionHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.session
}

// AttachInspector records an opened inspector.
func (s *State) AttachInspector(handle InspectorHandle) {
	s.mu.Lock()
	s.inspector = handle
	s.mu.Unlock()
}

// DetachInspector forgets the inspector.
func (s *State) DetachInspector() {
	s.mu.Lock()
	s.inspector = nil
	s.mu.Unlock()
}

// Inspector returns the attached inspector, or nil.
func (s *State) Inspector() InspectorHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inspector
}
