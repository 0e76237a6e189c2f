package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/musher-dev/tilepad-vtstudio/internal/config"
	clierrors "github.com/musher-dev/tilepad-vtstudio/internal/errors"
	"github.com/musher-dev/tilepad-vtstudio/internal/observability"
	"github.com/musher-dev/tilepad-vtstudio/internal/plugin"
	"github.com/musher-dev/tilepad-vtstudio/internal/tilepad"
)

// pluginFlags are the flags Tilepad passes when it launches the plugin.
type pluginFlags struct {
	pluginID   string
	connectURL string
}

func runPlugin(cmd *cobra.Command, flags pluginFlags) error {
	if flags.pluginID == "" {
		return clierrors.FlagRequired("plugin-id")
	}

	if flags.connectURL == "" {
		return clierrors.FlagRequired("connect-url")
	}

	ctx := cmd.Context()
	logger := observability.FromContext(ctx)
	cfg := config.Load()

	// A bad icon only costs the prompt its picture.
	identity, err := identityFromConfig(cfg)
	if err != nil {
		logger.Warn("plugin icon unavailable", slog.String("error", err.Error()))
	}

	link := linkOptions(cfg, identity, logger)

	err = plugin.Run(ctx, plugin.RunOptions{
		PluginID:            flags.pluginID,
		ConnectURL:          flags.connectURL,
		VTSURL:              link.VTSURL,
		Identity:            identity,
		RequestTimeout:      link.RequestTimeout,
		TokenRequestTimeout: link.TokenRequestTimeout,
		ProbeInterval:       cfg.ProbeInterval(),
		Keyring:             cfg.KeyringEnabled(),
		VTSHTTPClient:       link.HTTPClient,
		Logger:              logger,
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, tilepad.ErrHostUnreachable):
		return clierrors.HostUnreachable(flags.connectURL, err)
	default:
		return clierrors.SessionFailed(err)
	}
}
