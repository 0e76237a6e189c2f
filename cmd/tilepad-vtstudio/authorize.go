package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/musher-dev/tilepad-vtstudio/internal/auth"
	"github.com/musher-dev/tilepad-vtstudio/internal/config"
	clierrors "github.com/musher-dev/tilepad-vtstudio/internal/errors"
	"github.com/musher-dev/tilepad-vtstudio/internal/observability"
	"github.com/musher-dev/tilepad-vtstudio/internal/output"
	"github.com/musher-dev/tilepad-vtstudio/internal/plugin"
	"github.com/musher-dev/tilepad-vtstudio/internal/state"
)

// tokenSaver stores a granted token.
type tokenSaver interface {
	Save(token string) error
}

func newAuthorizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "authorize",
		Short: "Request an access token from VTube Studio",
		Long: `Ask VTube Studio to grant this plugin an access token and store it locally.

VTube Studio shows a permission prompt that must be accepted in its window.
The token is saved to the OS keyring (or the credentials file when no
keyring is available). Enable token.keyring so the plugin falls back to it
when Tilepad has no token in the plugin settings.`,
		Example: `  tilepad-vtstudio authorize
  tilepad-vtstudio config set token.keyring true`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthorize(cmd.Context(), output.FromContext(cmd.Context()), config.Load(), auth.TokenStore{})
		},
	}
}

func runAuthorize(ctx context.Context, out *output.Writer, cfg *config.Config, store tokenSaver) error {
	if out.NoInput {
		return clierrors.CannotPrompt("VTSTUDIO_ACCESS_TOKEN")
	}

	if os.Getenv("VTSTUDIO_ACCESS_TOKEN") != "" {
		out.Info("VTSTUDIO_ACCESS_TOKEN environment variable is set")
		out.Muted("Environment variable takes precedence over stored tokens")
		out.Println()
	}

	identity, err := identityFromConfig(cfg)
	if err != nil {
		return err
	}

	logger := observability.FromContext(ctx)

	spin := out.Spinner("Connecting to VTube Studio")
	spin.Start()

	link, err := plugin.Dial(ctx, linkOptions(cfg, identity, logger))
	if err != nil {
		spin.StopWithFailure("")
		return clierrors.VTSUnreachable(cfg.VTSURL(), err)
	}
	defer link.Close()

	spin.UpdateMessage("Waiting for approval in VTube Studio")

	token, err := link.Auth.RequestToken(ctx)
	if err != nil {
		spin.StopWithFailure("")

		if errors.Is(err, context.DeadlineExceeded) {
			return clierrors.RequestTimedOut("Token request", cfg.TokenRequestTimeout().String())
		}

		return clierrors.TokenRequestFailed(err)
	}

	if link.State.Phase() != state.Authorized {
		spin.StopWithFailure("")
		return clierrors.AuthFailed(errors.New("vts refused the token it just granted"))
	}

	spin.Stop()

	if err := store.Save(token); err != nil {
		return clierrors.ConfigFailed("store access token", err)
	}

	out.Success("Authorized with VTube Studio %s", link.APIState.VTubeStudioVersion)

	if !cfg.KeyringEnabled() {
		out.Muted("Run 'tilepad-vtstudio config set token.keyring true' so the plugin can use this token")
	}

	return nil
}
