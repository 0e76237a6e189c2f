// Package main is the entry point for the tilepad-vtstudio plugin.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/musher-dev/tilepad-vtstudio/internal/buildinfo"
	clierrors "github.com/musher-dev/tilepad-vtstudio/internal/errors"
	"github.com/musher-dev/tilepad-vtstudio/internal/output"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() (exitCode int) {
	// Restore cursor visibility on panic to prevent hidden cursor if process crashes during spinner
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprint(os.Stderr, "\033[?25h") // Show cursor (ANSI escape sequence) - use stderr as it's unbuffered
			panic(r)
		}
	}()

	buildinfo.Version = version
	buildinfo.Commit = commit

	// Tilepad stops plugins with SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := output.Default()

	cmd, err := newRootCmd().ExecuteContextC(ctx)

	if cmd != nil {
		if relErr := releaserFrom(cmd.Context()).release(); relErr != nil && err == nil {
			err = relErr
		}
	}

	if err != nil {
		return handleError(out, err)
	}

	return 0
}

// handleError formats and displays a CLI error, returning the appropriate exit code.
// For CLIError types, it displays the message and hint with styled output.
// For Cobra errors (unknown command, flags), it prints them with suggestions.
func handleError(out *output.Writer, err error) int {
	var cliErr *clierrors.CLIError
	if clierrors.As(err, &cliErr) {
		out.Failure("%s", cliErr.Message)

		if cliErr.Hint != "" {
			out.Info("%s", cliErr.Hint)
		}

		return cliErr.Code
	}

	errStr := err.Error()

	// Format: "unknown command \"xyz\" for \"tilepad-vtstudio\"\n\nDid you mean this?\n\t..."
	if strings.HasPrefix(errStr, "unknown command") {
		out.Failure("%s", errStr)

		if !strings.Contains(errStr, "--help") {
			out.Info("Run 'tilepad-vtstudio --help' for usage")
		}

		return clierrors.ExitUsage
	}

	// Flag errors are normally wrapped by SetFlagErrorFunc; this catches the rest.
	if strings.HasPrefix(errStr, "unknown flag") ||
		strings.HasPrefix(errStr, "unknown shorthand flag") ||
		strings.Contains(errStr, "required flag") {
		out.Failure("%s", errStr)
		out.Info("Run 'tilepad-vtstudio --help' for usage")

		return clierrors.ExitUsage
	}

	out.Failure("%s", errStr)

	return clierrors.ExitGeneral
}

func newRootCmd() *cobra.Command {
	var (
		globals globalFlags
		launch  pluginFlags
	)

	out := output.Default()

	rootCmd := &cobra.Command{
		Use:   "tilepad-vtstudio",
		Short: "Tilepad plugin for controlling VTube Studio",
		Long: `tilepad-vtstudio connects Tilepad tiles to the VTube Studio plugin API.

Tilepad launches the plugin with --plugin-id and --connect-url. Tiles can
trigger hotkeys and switch models once the plugin is authorized in
VTube Studio. The subcommands help set up and diagnose the plugin outside
Tilepad.`,
		Example: `  tilepad-vtstudio --plugin-id com.jacobtread.vtstudio --connect-url ws://localhost:8532/plugins/ws
  tilepad-vtstudio authorize
  tilepad-vtstudio doctor`,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return globals.setup(cmd, out, launch.pluginID)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlugin(cmd, launch)
		},
	}

	globals.register(rootCmd.PersistentFlags())

	// Host launch flags
	rootCmd.Flags().StringVar(&launch.pluginID, "plugin-id", "", "Plugin ID assigned by Tilepad")
	rootCmd.Flags().StringVar(&launch.connectURL, "connect-url", "", "Tilepad host WebSocket URL")

	rootCmd.SuggestionsMinimumDistance = 2

	// Wrap Cobra's raw flag errors in CLIError so they get styled output
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &clierrors.CLIError{
			Message: err.Error(),
			Hint:    fmt.Sprintf("Run '%s --help' for available flags", cmd.CommandPath()),
			Code:    clierrors.ExitUsage,
		}
	})

	rootCmd.AddCommand(newAuthorizeCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newDoctorCmd())
	rootCmd.AddCommand(newPathsCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// loadEnvFile loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}

	return nil
}

// isInteractiveCommand reports whether a command keeps the terminal busy with
// a spinner or prompt, so auto stderr logging stays off.
func isInteractiveCommand(path string) bool {
	switch path {
	case "tilepad-vtstudio authorize", "tilepad-vtstudio token set", "tilepad-vtstudio token clear":
		return true
	default:
		return false
	}
}

// VersionInfo represents version information for JSON output.
type VersionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// noArgs returns a Cobra positional-arg validator that rejects any arguments
// with a clear, user-friendly message (unlike cobra.NoArgs which says "unknown command").
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return &clierrors.CLIError{
			Message: fmt.Sprintf("'%s' accepts no arguments", cmd.CommandPath()),
			Hint:    fmt.Sprintf("Run '%s --help' for usage", cmd.CommandPath()),
			Code:    clierrors.ExitUsage,
		}
	}

	return nil
}

// usageArgs turns the errors of a Cobra arg validator into usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &clierrors.CLIError{
				Message: fmt.Sprintf("'%s' %v", cmd.CommandPath(), err),
				Hint:    fmt.Sprintf("Run '%s --help' for usage", cmd.CommandPath()),
				Code:    clierrors.ExitUsage,
			}
		}

		return nil
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Show version information",
		Long:    `Display the tilepad-vtstudio binary version, git commit, and build date.`,
		Example: `  tilepad-vtstudio version`,
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			if out.JSON {
				return out.PrintJSON(VersionInfo{
					Version: version,
					Commit:  commit,
					Date:    date,
				})
			}

			out.Print("tilepad-vtstudio %s\n", version)
			out.Print("  commit: %s\n", commit)
			out.Print("  built:  %s\n", date)

			return nil
		},
	}
}
