package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/musher-dev/tilepad-vtstudio/internal/auth"
	"github.com/musher-dev/tilepad-vtstudio/internal/buildinfo"
	"github.com/musher-dev/tilepad-vtstudio/internal/state"
	"github.com/musher-dev/tilepad-vtstudio/internal/supervisor"
	"github.com/musher-dev/tilepad-vtstudio/internal/vts"
)

// LinkOptions configures Dial.
type LinkOptions struct {
	VTSURL              string
	Identity            auth.Identity
	RequestTimeout      time.Duration
	TokenRequestTimeout time.Duration
	HTTPClient          *http.Client
	Logger              *slog.Logger
}

// Link is a standalone VTube Studio session outside the Tilepad host, used by
// the CLI commands. It runs the same supervisor and auth flow as the plugin.
type Link struct {
	State *state.State
	Auth  *auth.Manager

	// APIState and Latency come from the initial ping.
	APIState vts.APIStateResponse
	Latency  time.Duration

	client *vts.Client
}

// Dial connects to VTube Studio and pings it. The returned Link is in the
// CONNECTED phase.
func Dial(ctx context.Context, opts LinkOptions) (*Link, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := vts.New(opts.VTSURL, vtsOptions(opts.HTTPClient, logger)...)

	apiState, latency, err := client.Ping(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping vts: %w", err)
	}

	st := state.New(logger)
	st.MarkConnected()

	sup := supervisor.New(client, st,
		supervisor.WithLogger(logger),
		supervisor.WithRequestTimeout(opts.RequestTimeout),
	)

	return &Link{
		State: st,
		Auth: auth.NewManager(sup, st, opts.Identity,
			auth.WithLogger(logger),
			auth.WithTokenRequestTimeout(opts.TokenRequestTimeout),
		),
		APIState: apiState,
		Latency:  latency,
		client:   client,
	}, nil
}

// URL returns the address the link dialed.
func (l *Link) URL() string {
	return l.client.URL()
}

// Close closes the connection.
func (l *Link) Close() error {
	return l.client.Close()
}

func vtsOptions(httpClient *http.Client, logger *slog.Logger) []vts.Option {
	opts := []vts.Option{
		vts.WithLogger(logger),
		vts.WithHeader(buildinfo.Header()),
	}

	if httpClient != nil {
		opts = append(opts, vts.WithHTTPClient(httpClient))
	}

	return opts
}
