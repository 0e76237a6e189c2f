// Package supervisor owns the single path to VTube Studio. Every request goes
// through one lock, is bounded by a timeout, and fails with a classified
// *Failure.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/musher-dev/tilepad-vtstudio/internal/observability"
	"github.com/musher-dev/tilepad-vtstudio/internal/state"
	"github.com/musher-dev/tilepad-vtstudio/internal/vts"
)

// DefaultRequestTimeout bounds an ordinary request.
const DefaultRequestTimeout = 30 * time.Second

// Kind classifies a failed request.
type Kind int

const (
	// KindTransport means the connection failed or the request timed out.
	KindTransport Kind = iota
	// KindAuthRejected means VTube Studio rejected the credential.
	KindAuthRejected
	// KindRemote is any other error reported by VTube Studio or a reply
	// that could not be decoded.
	KindRemote
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindAuthRejected:
		return "auth_rejected"
	case KindRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Failure is the error returned by Send.
type Failure struct {
	Kind    Kind
	Request string
	Err     error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s %s failure: %v", f.Request, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// KindOf returns the failure kind of err. ok is false when err is not a
// *Failure.
func KindOf(err error) (kind Kind, ok bool) {
	var f *Failure
	if !errors.As(err, &f) {
		return 0, false
	}

	return f.Kind, true
}

// Sender is the underlying connection.
type Sender interface {
	Send(ctx context.Context, req vts.Request, out any) error
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

// WithRequestTimeout sets the bound applied by Send. Zero or less disables it.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		s.timeout = d
	}
}

// WithTracer overrides the tracer used for request spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Supervisor) {
		s.tracer = tracer
	}
}

// Supervisor serializes requests over one connection.
type Supervisor struct {
	conn    Sender
	state   *state.State
	logger  *slog.Logger
	tracer  trace.Tracer
	timeout time.Duration

	mu sync.Mutex
}

// New creates a Supervisor for conn. Authentication rejections are applied
// to st.
func New(conn Sender, st *state.State, opts ...Option) *Supervisor {
	s := &Supervisor{
		conn:    conn,
		state:   st,
		logger:  slog.Default(),
		timeout: DefaultRequestTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.tracer == nil {
		s.tracer = observability.Tracer("tilepad-vtstudio.supervisor")
	}

	return s
}

// Send issues req with the default request timeout and decodes the response
// into out.
func (s *Supervisor) Send(ctx context.Context, req vts.Request, out any) error {
	return s.SendTimeout(ctx, req, out, s.timeout)
}

// SendTimeout is Send with an explicit bound. Zero or less waits until ctx
// ends.
func (s *Supervisor) SendTimeout(ctx context.Context, req vts.Request, out any, timeout time.Duration) error {
	messageType := req.MessageType()

	ctx, span := s.tracer.Start(ctx, "vts.request",
		trace.WithAttributes(attribute.String("vts.message_type", messageType)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	reqCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := s.conn.Send(reqCtx, req, out)
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return nil
	}

	failure := &Failure{Kind: classify(err), Request: messageType, Err: err}

	span.RecordError(err)
	span.SetAttributes(attribute.String("vts.failure_kind", failure.Kind.String()))
	span.SetStatus(codes.Error, failure.Kind.String())

	if failure.Kind == KindAuthRejected && s.state != nil {
		phase := s.state.RejectAuth()
		s.logger.Warn("vts rejected authentication",
			slog.String("request", messageType),
			slog.String("phase", phase.String()),
		)
	}

	return failure
}

func classify(err error) Kind {
	switch {
	case vts.IsUnauthenticated(err):
		return KindAuthRejected
	case vts.IsTransport(err),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return KindTransport
	default:
		return KindRemote
	}
}
