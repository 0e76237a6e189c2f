package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/musher-dev/tilepad-vtstudio/internal/action"
	"github.com/musher-dev/tilepad-vtstudio/internal/auth"
	"github.com/musher-dev/tilepad-vtstudio/internal/eventloop"
	"github.com/musher-dev/tilepad-vtstudio/internal/state"
	"github.com/musher-dev/tilepad-vtstudio/internal/supervisor"
	"github.com/musher-dev/tilepad-vtstudio/internal/tilepad"
	"github.com/musher-dev/tilepad-vtstudio/internal/vts"
)

// RunOptions configures Run.
type RunOptions struct {
	// PluginID and ConnectURL come from the host's launch flags.
	PluginID   string
	ConnectURL string

	VTSURL              string
	Identity            auth.Identity
	RequestTimeout      time.Duration
	TokenRequestTimeout time.Duration
	ProbeInterval       time.Duration

	// Keyring mirrors the access token to the OS keyring and falls back to
	// it when the host settings carry none.
	Keyring bool

	// VTSHTTPClient is used to dial VTube Studio, e.g. with a traced transport.
	VTSHTTPClient *http.Client
	Logger        *slog.Logger
}

// Run starts the plugin and blocks until the host disconnects or ctx is done.
func Run(ctx context.Context, opts RunOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client := vts.New(opts.VTSURL, vtsOptions(opts.VTSHTTPClient, logger)...)

	var (
		stateOpts []state.Option
		fallback  func() string
	)

	if opts.Keyring {
		store := auth.TokenStore{}
		stateOpts = append(stateOpts, state.WithTokenMirror(store))
		fallback = func() string {
			_, token := store.Load()
			return token
		}
	}

	st := state.New(logger, stateOpts...)

	sup := supervisor.New(client, st,
		supervisor.WithLogger(logger),
		supervisor.WithRequestTimeout(opts.RequestTimeout),
	)

	mgr := auth.NewManager(sup, st, opts.Identity,
		auth.WithLogger(logger),
		auth.WithTokenRequestTimeout(opts.TokenRequestTimeout),
	)

	loop := eventloop.New(client.Events(), st, sup,
		eventloop.WithLogger(logger),
		eventloop.WithProbeInterval(opts.ProbeInterval),
		eventloop.WithAuthenticator(mgr.Authenticate),
	)

	p := New(ctx, Config{
		State:         st,
		Auth:          mgr,
		Requests:      sup,
		Dispatcher:    action.NewDispatcher(sup, logger),
		FallbackToken: fallback,
		Logger:        logger,
	})

	loopDone := make(chan error, 1)

	go func() {
		loopDone <- loop.Run(ctx)
	}()

	logger.Info("starting plugin", slog.String("vts_url", opts.VTSURL))

	runErr := tilepad.Run(ctx, tilepad.Options{
		URL:      opts.ConnectURL,
		PluginID: opts.PluginID,
		Logger:   logger,
	}, p)

	cancel()
	p.Wait()
	<-loopDone

	if err := client.Close(); err != nil {
		logger.Warn("failed to close vts connection", slog.String("error", err.Error()))
	}

	if runErr != nil {
		return fmt.Errorf("plugin session: %w", runErr)
	}

	return nil
}
