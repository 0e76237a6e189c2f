package main

import (
	"log/slog"

	"github.com/musher-dev/tilepad-vtstudio/internal/auth"
	"github.com/musher-dev/tilepad-vtstudio/internal/config"
	clierrors "github.com/musher-dev/tilepad-vtstudio/internal/errors"
	"github.com/musher-dev/tilepad-vtstudio/internal/observability"
	"github.com/musher-dev/tilepad-vtstudio/internal/plugin"
)

// identityFromConfig builds the plugin identity. When the icon cannot be read
// the identity is still returned, without the icon, alongside the error.
func identityFromConfig(cfg *config.Config) (auth.Identity, error) {
	identity := auth.Identity{
		Name:      cfg.PluginName(),
		Developer: cfg.PluginDeveloper(),
	}

	path := cfg.PluginIcon()
	if path == "" {
		return identity, nil
	}

	icon, err := auth.LoadIcon(path)
	if err != nil {
		return identity, clierrors.IconUnreadable(path, err)
	}

	identity.Icon = icon

	return identity, nil
}

// linkOptions configures a standalone VTube Studio link from cfg.
func linkOptions(cfg *config.Config, identity auth.Identity, logger *slog.Logger) plugin.LinkOptions {
	opts := plugin.LinkOptions{
		VTSURL:              cfg.VTSURL(),
		Identity:            identity,
		RequestTimeout:      cfg.RequestTimeout(),
		TokenRequestTimeout: cfg.TokenRequestTimeout(),
		Logger:              logger,
	}

	if observability.IsTelemetryEnabled() {
		opts.HTTPClient = observability.TracedHTTPClient()
	}

	return opts
}
