package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/musher-dev/tilepad-vtstudio/internal/state"
	"github.com/musher-dev/tilepad-vtstudio/internal/supervisor"
	"github.com/musher-dev/tilepad-vtstudio/internal/vts"
)

// DefaultTokenRequestTimeout bounds how long a token request waits for the
// user to answer the prompt in VTube Studio.
const DefaultTokenRequestTimeout = 2 * time.Minute

var (
	// ErrTokenRequestPending is returned when a token request is already
	// waiting for approval.
	ErrTokenRequestPending = errors.New("token request already pending")

	// ErrEmptyToken is returned when VTube Studio grants an empty token.
	ErrEmptyToken = errors.New("vts granted an empty token")
)

// Identity is the plugin identity VTube Studio shows the user.
type Identity struct {
	Name      string
	Developer string
	// Icon is a base64 encoded 128x128 PNG, or "".
	Icon string
}

// LoadIcon reads a PNG file and returns it base64 encoded for Identity.Icon.
func LoadIcon(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is user configuration
	if err != nil {
		return "", fmt.Errorf("read plugin icon: %w", err)
	}

	return base64.StdEncoding.EncodeToString(data), nil
}

// Requester sends supervised requests.
type Requester interface {
	Send(ctx context.Context, req vts.Request, out any) error
	SendTimeout(ctx context.Context, req vts.Request, out any, timeout time.Duration) error
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithTokenRequestTimeout bounds RequestToken. Zero or less waits until the
// caller's context ends.
func WithTokenRequestTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.tokenTimeout = d
	}
}

// Manager runs the authentication handshake and the token request flow.
type Manager struct {
	requester    Requester
	state        *state.State
	identity     Identity
	logger       *slog.Logger
	tokenTimeout time.Duration

	requesting atomic.Bool
}

// NewManager creates a Manager.
func NewManager(requester Requester, st *state.State, identity Identity, opts ...ManagerOption) *Manager {
	m := &Manager{
		requester:    requester,
		state:        st,
		identity:     identity,
		logger:       slog.Default(),
		tokenTimeout: DefaultTokenRequestTimeout,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Authenticate validates token for the current session. Success moves the
// phase to AUTHORIZED and a refusal to NOT_AUTHORIZED. The outcome is
// dropped when the connection changed while the request was in flight.
// Transport failures leave the phase alone; the event stream reports them.
func (m *Manager) Authenticate(ctx context.Context, token string) {
	_, epoch := m.state.Snapshot()

	req := &vts.AuthenticationRequest{
		PluginName:          m.identity.Name,
		PluginDeveloper:     m.identity.Developer,
		AuthenticationToken: token,
	}

	var resp vts.AuthenticationResponse
	if err := m.requester.Send(ctx, req, &resp); err != nil {
		kind, _ := supervisor.KindOf(err)
		m.logger.Error("vts authentication failed",
			slog.String("failure_kind", kind.String()),
			slog.String("error", err.Error()),
		)

		if kind == supervisor.KindRemote {
			m.state.TransitionIf(epoch, state.NotAuthorized)
		}

		return
	}

	next := state.NotAuthorized
	if resp.Authenticated {
		next = state.Authorized
	} else {
		m.logger.Warn("vts refused access token", slog.String("reason", resp.Reason))
	}

	if !m.state.TransitionIf(epoch, next) {
		m.logger.Debug("discarding stale authentication outcome", slog.String("outcome", next.String()))
	}
}

// RequestToken asks VTube Studio for a new token, which prompts the user in
// the VTube Studio window. On success the token is validated with
// Authenticate and returned for the caller to persist. Only one request may
// wait for approval at a time.
func (m *Manager) RequestToken(ctx context.Context) (string, error) {
	if !m.requesting.CompareAndSwap(false, true) {
		m.logger.Info("token request already pending, ignoring")
		return "", ErrTokenRequestPending
	}
	defer m.requesting.Store(false)

	req := &vts.AuthenticationTokenRequest{
		PluginName:      m.identity.Name,
		PluginDeveloper: m.identity.Developer,
		PluginIcon:      m.identity.Icon,
	}

	var resp vts.AuthenticationTokenResponse
	if err := m.requester.SendTimeout(ctx, req, &resp, m.tokenTimeout); err != nil {
		m.logger.Error("vts token request failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("request token: %w", err)
	}

	if resp.AuthenticationToken == "" {
		m.logger.Error("vts token request failed", slog.String("error", ErrEmptyToken.Error()))
		return "", ErrEmptyToken
	}

	m.Authenticate(ctx, resp.AuthenticationToken)

	return resp.AuthenticationToken, nil
}

// Pending reports whether a token request is waiting for approval.
func (m *Manager) Pending() bool {
	return m.requesting.Load()
}

// NoToken records that the host delivered settings without a token. A
// connected link moves to NOT_AUTHORIZED; a disconnected one is left alone.
func (m *Manager) NoToken() {
	phase, epoch := m.state.Snapshot()
	if phase == state.NotAuthorized {
		return
	}

	m.state.TransitionIf(epoch, state.NotAuthorized)
}
