// Package eventloop consumes the VTube Studio event stream and keeps the
// shared state in step with it.
package eventloop

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/musher-dev/tilepad-vtstudio/internal/state"
	"github.com/musher-dev/tilepad-vtstudio/internal/vts"
)

// DefaultProbeInterval is the delay between reconnect probes.
const DefaultProbeInterval = 5 * time.Second

// Sender issues supervised requests.
type Sender interface {
	Send(ctx context.Context, req vts.Request, out any) error
}

// Authenticator validates a token against the current connection.
type Authenticator func(ctx context.Context, token string)

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithAuthenticator validates tokens VTube Studio pushes without a pending
// request, such as an approval that arrives after its request timed out.
func WithAuthenticator(fn Authenticator) Option {
	return func(l *Loop) {
		l.authenticate = fn
	}
}

// WithProbeInterval sets the delay between reconnect probes.
func WithProbeInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// Loop is the single consumer of the event stream.
type Loop struct {
	events   <-chan vts.Event
	state    *state.State
	sender   Sender
	logger   *slog.Logger
	interval time.Duration

	authenticate Authenticator

	mu          sync.Mutex
	probeGen    uint64
	probeCancel context.CancelFunc

	wg sync.WaitGroup
}

// New creates a Loop reading events and probing through sender.
func New(events <-chan vts.Event, st *state.State, sender Sender, opts ...Option) *Loop {
	l := &Loop{
		events:   events,
		state:    st,
		sender:   sender,
		logger:   slog.Default(),
		interval: DefaultProbeInterval,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Run processes events in arrival order until ctx is done or the stream is
// closed. A probe is started right away if the link is down, so the plugin
// connects on launch.
func (l *Loop) Run(ctx context.Context) error {
	defer l.wg.Wait()
	defer l.stopProbe()

	if l.state.Phase() == state.Disconnected {
		l.startProbe(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-l.events:
			if !ok {
				return nil
			}

			l.handle(ctx, ev)
		}
	}
}

// ProbeActive reports whether a reconnect probe is running.
func (l *Loop) ProbeActive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.probeCancel != nil
}

func (l *Loop) handle(ctx context.Context, ev vts.Event) {
	switch ev.Kind {
	case vts.EventConnected:
		l.stopProbe()
		l.state.MarkConnected()
		l.logger.Info("connected to vts")

		// Re-delivered settings re-attempt authentication with the stored token.
		if session := l.state.Session(); session != nil {
			if err := session.RequestProperties(); err != nil {
				l.logger.Error("failed to request plugin properties", slog.String("error", err.Error()))
			}
		}
	case vts.EventDisconnected:
		l.state.MarkDisconnected()

		attrs := []any{}
		if ev.Err != nil {
			attrs = append(attrs, slog.String("error", ev.Err.Error()))
		}

		l.logger.Info("disconnected from vts", attrs...)
		l.startProbe(ctx)
	case vts.EventNewAuthToken:
		l.logger.Info("vts issued a new access token")
		l.state.SetToken(ev.Token)

		if l.authenticate == nil {
			return
		}

		if phase := l.state.Phase(); phase == state.Connected || phase == state.NotAuthorized {
			l.wg.Add(1)

			go func() {
				defer l.wg.Done()
				l.authenticate(ctx, ev.Token)
			}()
		}
	default:
		l.logger.Debug("ignoring vts event", slog.String("kind", ev.Kind.String()), slog.String("message_type", ev.MessageType))
	}
}

func (l *Loop) startProbe(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.probeCancel != nil {
		return
	}

	l.probeGen++
	gen := l.probeGen

	probeCtx, cancel := context.WithCancel(ctx)
	l.probeCancel = cancel

	l.wg.Add(1)

	go l.probe(probeCtx, gen)
}

// stopProbe cancels the running probe without waiting for it.
func (l *Loop) stopProbe() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.probeCancel != nil {
		l.probeCancel()
		l.probeCancel = nil
	}
}

func (l *Loop) probe(ctx context.Context, gen uint64) {
	defer l.wg.Done()
	defer l.finishProbe(gen)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		err := l.sender.Send(ctx, &vts.APIStateRequest{}, nil)
		if err == nil {
			l.logger.Debug("reconnect probe succeeded", slog.Int("attempt", attempt))
			return
		}

		l.logger.Debug("reconnect probe failed", slog.Int("attempt", attempt), slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (l *Loop) finishProbe(gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.probeGen == gen && l.probeCancel != nil {
		l.probeCancel()
		l.probeCancel = nil
	}
}
