package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/musher-dev/tilepad-vtstudio/internal/auth"
	clierrors "github.com/musher-dev/tilepad-vtstudio/internal/errors"
	"github.com/musher-dev/tilepad-vtstudio/internal/output"
	"github.com/musher-dev/tilepad-vtstudio/internal/prompt"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored access token",
		Long:  `Inspect or remove the VTube Studio access token stored on this machine.`,
	}

	cmd.AddCommand(newTokenStatusCmd())
	cmd.AddCommand(newTokenSetCmd())
	cmd.AddCommand(newTokenClearCmd())

	return cmd
}

// TokenStatus represents the stored token for JSON output.
type TokenStatus struct {
	Stored bool   `json:"stored"`
	Source string `json:"source,omitempty"`
	Token  string `json:"token,omitempty"`
}

func newTokenStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show where the access token is stored",
		Long:    `Report whether an access token is stored locally and where it was found. The token itself is masked.`,
		Example: `  tilepad-vtstudio token status
  tilepad-vtstudio token status --json`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			source, token := auth.TokenStore{}.Load()

			status := TokenStatus{Stored: token != ""}
			if status.Stored {
				status.Source = string(source)
				status.Token = maskToken(token)
			}

			if out.JSON {
				if err := out.PrintJSON(status); err != nil {
					return fmt.Errorf("print token status json: %w", err)
				}

				return nil
			}

			if !status.Stored {
				return clierrors.NoStoredToken()
			}

			out.Print("Source: %s\n", status.Source)
			out.Print("Token:  %s\n", status.Token)

			return nil
		},
	}
}

// tokenStore saves and removes the locally stored token.
type tokenStore interface {
	Save(token string) error
	Delete() error
}

func newTokenSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set [token]",
		Short: "Store an existing access token",
		Long: `Store an access token that VTube Studio already granted, for example one
copied from the Tilepad plugin settings. Without an argument the token is
read from a hidden prompt or from stdin.`,
		Example: `  tilepad-vtstudio token set
  echo "$TOKEN" | tilepad-vtstudio token set`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			var token string
			if len(args) == 1 {
				token = args[0]
			}

			return runTokenSet(out, prompt.NewWithInput(out, cmd.InOrStdin()), auth.TokenStore{}, token)
		},
	}
}

func runTokenSet(out *output.Writer, p *prompt.Prompter, store tokenStore, token string) error {
	if token == "" {
		var err error

		token, err = p.Secret("Access token")
		if err != nil && !prompt.IsCanceled(err) {
			return fmt.Errorf("read access token: %w", err)
		}
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return &clierrors.CLIError{
			Message: "No access token given",
			Hint:    "Pass the token as an argument or pipe it on stdin",
			Code:    clierrors.ExitUsage,
		}
	}

	if err := store.Save(token); err != nil {
		return clierrors.ConfigFailed("store access token", err)
	}

	out.Success("Access token stored (%s)", maskToken(token))

	return nil
}

func newTokenClearCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "clear",
		Short:   "Delete the stored access token",
		Long:    `Remove the access token from the OS keyring and the credentials file. Tokens kept by Tilepad in the plugin settings are not affected.`,
		Example: `  tilepad-vtstudio token clear
  tilepad-vtstudio token clear --force`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			p := prompt.NewWithInput(out, cmd.InOrStdin())

			return runTokenClear(out, p, auth.TokenStore{}, force || !p.CanPrompt())
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the confirmation prompt")

	return cmd
}

func runTokenClear(out *output.Writer, p *prompt.Prompter, store tokenStore, skipConfirm bool) error {
	if !skipConfirm {
		ok, err := p.Confirm("Delete the stored access token?", false)
		if err != nil && !prompt.IsCanceled(err) {
			return fmt.Errorf("confirm token clear: %w", err)
		}

		if !ok {
			out.Muted("Canceled")
			return nil
		}
	}

	if err := store.Delete(); err != nil {
		out.Muted("No stored access token found")
		return nil
	}

	out.Success("Access token cleared")

	if os.Getenv("VTSTUDIO_ACCESS_TOKEN") != "" {
		out.Println()
		out.Warning("VTSTUDIO_ACCESS_TOKEN environment variable is still set")
	}

	return nil
}

// maskToken keeps the first four characters of token.
func maskToken(token string) string {
	const visible = 4

	if len(token) <= visible {
		return "****"
	}

	return token[:visible] + "****"
}
