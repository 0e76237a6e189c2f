package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/musher-dev/tilepad-vtstudio/internal/state"
	"github.com/musher-dev/tilepad-vtstudio/internal/supervisor"
	"github.com/musher-dev/tilepad-vtstudio/internal/testutil"
	"github.com/musher-dev/tilepad-vtstudio/internal/vts"
)

// fakeRequester answers by message type. A response may be a value that is
// JSON-encoded into out, or an error.
type fakeRequester struct {
	mu        sync.Mutex
	responses map[string]any
	requests  []vts.Request
	timeouts  []time.Duration
	gate      chan struct{}
	before    func()
}

func (f *fakeRequester) Send(ctx context.Context, req vts.Request, out any) error {
	return f.SendTimeout(ctx, req, out, -1)
}

func (f *fakeRequester) SendTimeout(ctx context.Context, req vts.Request, out any, timeout time.Duration) error {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.timeouts = append(f.timeouts, timeout)
	resp := f.responses[req.MessageType()]
	gate := f.gate
	before := f.before
	f.mu.Unlock()

	if gate != nil && req.MessageType() == "AuthenticationTokenRequest" {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if before != nil {
		before()
	}

	if err, ok := resp.(error); ok {
		return err
	}

	if out == nil || resp == nil {
		return nil
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, out)
}

func (f *fakeRequester) count(messageType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, r := range f.requests {
		if r.MessageType() == messageType {
			n++
		}
	}

	return n
}

var testIdentity = Identity{Name: "Tilepad VT Studio", Developer: "Jacobtread"}

func connectedState() *state.State {
	st := state.New(testutil.DiscardLogger())
	st.MarkConnected()

	return st
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name     string
		response any
		want     state.Phase
	}{
		{name: "accepted", response: vts.AuthenticationResponse{Authenticated: true}, want: state.Authorized},
		{name: "refused", response: vts.AuthenticationResponse{Authenticated: false, Reason: "revoked"}, want: state.NotAuthorized},
		{name: "remote error", response: &supervisor.Failure{Kind: supervisor.KindRemote, Err: errors.New("bad")}, want: state.NotAuthorized},
		{name: "transport error", response: &supervisor.Failure{Kind: supervisor.KindTransport, Err: io.EOF}, want: state.Connected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := connectedState()
			req := &fakeRequester{responses: map[string]any{"AuthenticationRequest": tt.response}}
			m := NewManager(req, st, testIdentity, WithLogger(testutil.DiscardLogger()))

			m.Authenticate(context.Background(), "T")

			if got := st.Phase(); got != tt.want {
				t.Errorf("Phase() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthenticate_SendsIdentityAndToken(t *testing.T) {
	req := &fakeRequester{responses: map[string]any{"AuthenticationRequest": vts.AuthenticationResponse{Authenticated: true}}}
	m := NewManager(req, connectedState(), testIdentity, WithLogger(testutil.DiscardLogger()))

	m.Authenticate(context.Background(), "T")

	got, ok := req.requests[0].(*vts.AuthenticationRequest)
	if !ok {
		t.Fatalf("request = %T, want *vts.AuthenticationRequest", req.requests[0])
	}

	if got.PluginName != "Tilepad VT Studio" || got.PluginDeveloper != "Jacobtread" || got.AuthenticationToken != "T" {
		t.Errorf("request = %+v", got)
	}
}

func TestAuthenticate_StaleOutcomeDropped(t *testing.T) {
	st := connectedState()
	req := &fakeRequester{
		responses: map[string]any{"AuthenticationRequest": vts.AuthenticationResponse{Authenticated: true}},
		before: func() {
			st.MarkDisconnected()
		},
	}
	m := NewManager(req, st, testIdentity, WithLogger(testutil.DiscardLogger()))

	m.Authenticate(context.Background(), "T")

	if got := st.Phase(); got != state.Disconnected {
		t.Fatalf("Phase() = %v, want DISCONNECTED", got)
	}
}

func TestAuthenticate_ReconnectDuringRequest(t *testing.T) {
	st := connectedState()
	req := &fakeRequester{
		responses: map[string]any{"AuthenticationRequest": vts.AuthenticationResponse{Authenticated: true}},
		before: func() {
			st.MarkDisconnected()
			st.MarkConnected()
		},
	}
	m := NewManager(req, st, testIdentity, WithLogger(testutil.DiscardLogger()))

	m.Authenticate(context.Background(), "T")

	if got := st.Phase(); got != state.Connected {
		t.Fatalf("Phase() = %v, want CONNECTED", got)
	}
}

func TestRequestToken(t *testing.T) {
	st := connectedState()
	req := &fakeRequester{responses: map[string]any{
		"AuthenticationTokenRequest": vts.AuthenticationTokenResponse{AuthenticationToken: "NEW"},
		"AuthenticationRequest":      vts.AuthenticationResponse{Authenticated: true},
	}}
	m := NewManager(req, st, testIdentity, WithLogger(testutil.DiscardLogger()), WithTokenRequestTimeout(time.Minute))

	token, err := m.RequestToken(context.Background())
	if err != nil {
		t.Fatalf("RequestToken() error = %v", err)
	}

	if token != "NEW" {
		t.Errorf("RequestToken() = %q, want NEW", token)
	}

	if got := st.Phase(); got != state.Authorized {
		t.Errorf("Phase() = %v, want AUTHORIZED", got)
	}

	if req.timeouts[0] != time.Minute {
		t.Errorf("token request timeout = %v, want 1m", req.timeouts[0])
	}

	auth, ok := req.requests[1].(*vts.AuthenticationRequest)
	if !ok || auth.AuthenticationToken != "NEW" {
		t.Errorf("second request = %#v, want AuthenticationRequest with new token", req.requests[1])
	}
}

func TestRequestToken_Failure(t *testing.T) {
	st := connectedState()
	failure := &supervisor.Failure{Kind: supervisor.KindRemote, Err: errors.New("user denied")}
	req := &fakeRequester{responses: map[string]any{"AuthenticationTokenRequest": failure}}
	m := NewManager(req, st, testIdentity, WithLogger(testutil.DiscardLogger()))

	if _, err := m.RequestToken(context.Background()); !errors.Is(err, failure) {
		t.Fatalf("RequestToken() error = %v, want %v", err, failure)
	}

	if n := req.count("AuthenticationRequest"); n != 0 {
		t.Errorf("AuthenticationRequest count = %d, want 0", n)
	}
}

func TestRequestToken_EmptyToken(t *testing.T) {
	req := &fakeRequester{responses: map[string]any{"AuthenticationTokenRequest": vts.AuthenticationTokenResponse{}}}
	m := NewManager(req, connectedState(), testIdentity, WithLogger(testutil.DiscardLogger()))

	if _, err := m.RequestToken(context.Background()); !errors.Is(err, ErrEmptyToken) {
		t.Fatalf("RequestToken() error = %v, want ErrEmptyToken", err)
	}
}

func TestRequestToken_SingleFlight(t *testing.T) {
	gate := make(chan struct{})
	req := &fakeRequester{
		gate: gate,
		responses: map[string]any{
			"AuthenticationTokenRequest": vts.AuthenticationTokenResponse{AuthenticationToken: "NEW"},
			"AuthenticationRequest":      vts.AuthenticationResponse{Authenticated: true},
		},
	}
	m := NewManager(req, connectedState(), testIdentity, WithLogger(testutil.DiscardLogger()))

	done := make(chan error, 1)

	go func() {
		_, err := m.RequestToken(context.Background())
		done <- err
	}()

	testutil.Eventually(t, m.Pending, "first token request never started")

	if _, err := m.RequestToken(context.Background()); !errors.Is(err, ErrTokenRequestPending) {
		t.Fatalf("second RequestToken() error = %v, want ErrTokenRequestPending", err)
	}

	close(gate)

	if err := <-done; err != nil {
		t.Fatalf("first RequestToken() error = %v", err)
	}

	if n := req.count("AuthenticationTokenRequest"); n != 1 {
		t.Errorf("AuthenticationTokenRequest count = %d, want 1", n)
	}

	if m.Pending() {
		t.Error("Pending() = true after completion")
	}
}

func TestNoToken(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*state.State)
		want  state.Phase
	}{
		{name: "connected", setup: func(s *state.State) { s.MarkConnected() }, want: state.NotAuthorized},
		{name: "authorized", setup: func(s *state.State) { s.MarkConnected(); s.SetPhase(state.Authorized) }, want: state.NotAuthorized},
		{name: "disconnected", setup: func(*state.State) {}, want: state.Disconnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := state.New(testutil.DiscardLogger())
			tt.setup(st)

			NewManager(&fakeRequester{}, st, testIdentity, WithLogger(testutil.DiscardLogger())).NoToken()

			if got := st.Phase(); got != tt.want {
				t.Errorf("Phase() = %v, want %v", got, tt.want)
			}
		})
	}
}
