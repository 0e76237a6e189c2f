package state

import (
	"log/slog"

	"github.com/musher-dev/tilepad-vtstudio/internal/inspector"
)

// SetPhase moves to p and tells the inspector, if one is attached.
func (s *State) SetPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setPhaseLocked(p)
}

// MarkConnected starts a new connection epoch in the Connected phase.
func (s *State) MarkConnected() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.setPhaseLocked(Connected)

	return s.epoch
}

// MarkDisconnected starts a new connection epoch in the Disconnected phase.
func (s *State) MarkDisconnected() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.setPhaseLocked(Disconnected)

	return s.epoch
}

// TransitionIf moves to p only if no connect or disconnect happened since
// epoch was read and the link is still up. It reports whether it moved.
func (s *State) TransitionIf(epoch uint64, p Phase) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch || s.phase == Disconnected {
		return false
	}

	s.setPhaseLocked(p)

	return true
}

// SetToken caches token and persists it to the host settings. An empty token
// clears the persisted value.
func (s *State) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	session := s.session
	s.mu.Unlock()

	s.persist(session, token)
}

// RejectAuth handles an authentication rejection from any request: the
// token is cleared everywhere and the phase leaves Authorized. A plain
// Connected link without a cached token stays Connected. Disconnected and
// NotAuthorized are left alone. It returns the resulting phase.
func (s *State) RejectAuth() Phase {
	s.mu.Lock()
	hadToken := s.token != ""
	s.token = ""

	next := s.phase
	switch {
	case s.phase == Disconnected, s.phase == NotAuthorized:
	case s.phase == Connected && !hadToken:
	default:
		next = NotAuthorized
	}

	if next != s.phase {
		s.setPhaseLocked(next)
	}

	session := s.session
	s.mu.Unlock()

	s.persist(session, "")

	return next
}

func (s *State) setPhaseLocked(p Phase) {
	prev := s.phase
	s.phase = p

	if prev != p {
		s.logger.Debug("vts phase changed", slog.String("from", prev.String()), slog.String("to", p.String()))
	}

	if s.inspector == nil {
		return
	}

	if err := s.inspector.Send(inspector.VTState{State: p.String()}); err != nil {
		s.logger.Warn("failed to notify inspector of phase", slog.String("error", err.Error()))
	}
}

func (s *State) persist(session SessionHandle, token string) {
	settings := Settings{}
	if token != "" {
		settings.AccessToken = &token
	}

	if session != nil {
		if err := session.SetProperties(settings); err != nil {
			s.logger.Error("failed to persist access token", slog.String("error", err.Error()))
		}
	}

	if s.mirror == nil {
		return
	}

	var err error
	if token == "" {
		err = s.mirror.Delete()
	} else {
		err = s.mirror.Save(token)
	}

	if err != nil {
		s.logger.Warn("failed to mirror access token", slog.String("error", err.Error()))
	}
}
