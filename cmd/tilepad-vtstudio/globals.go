package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	clierrors "github.com/musher-dev/tilepad-vtstudio/internal/errors"
	"github.com/musher-dev/tilepad-vtstudio/internal/observability"
	"github.com/musher-dev/tilepad-vtstudio/internal/output"
)

// globalFlags are the persistent flags shared by every command. Each one
// falls back to a VTSTUDIO_ environment variable, since Tilepad launches the
// plugin with only its own flags.
type globalFlags struct {
	json    bool
	quiet   bool
	noColor bool
	noInput bool

	logLevel  string
	logFormat string
	logFile   string
	logStderr string
	envFile   string
}

func (g *globalFlags) register(fs *pflag.FlagSet) {
	fs.BoolVar(&g.json, "json", false, "Output in JSON format")
	fs.BoolVar(&g.quiet, "quiet", false, "Minimal output (for CI)")
	fs.BoolVar(&g.noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&g.noInput, "no-input", false, "Disable interactive prompts")
	fs.StringVar(&g.logLevel, "log-level", "", "Log level: error, warn, info, debug")
	fs.StringVar(&g.logFormat, "log-format", "", "Log format: json, text")
	fs.StringVar(&g.logFile, "log-file", "", "Optional structured log file path")
	fs.StringVar(&g.logStderr, "log-stderr", "", "Structured logging to stderr: auto, on, off")
	fs.StringVar(&g.envFile, "env-file", "", "Load environment variables from a dotenv file")
}

// setup prepares output, logging and tracing for cmd and stores them in its
// context. Opened resources are handed to the context's releaser.
func (g *globalFlags) setup(cmd *cobra.Command, out *output.Writer, pluginID string) error {
	if err := loadEnvFile(g.envFile); err != nil {
		return clierrors.ConfigFailed("load env file", err)
	}

	out.JSON = flagOrEnvBool(g.json, "VTSTUDIO_JSON")
	out.Quiet = flagOrEnvBool(g.quiet, "VTSTUDIO_QUIET")
	out.NoInput = flagOrEnvBool(g.noInput, "VTSTUDIO_NO_INPUT") || flagOrEnvBool(false, "CI")

	if g.noColor {
		out.SetNoColor(true)

		color.NoColor = true
	}

	logger, closeLog, err := observability.NewLogger(&observability.Config{
		Level:          flagOrEnv(g.logLevel, "VTSTUDIO_LOG_LEVEL", "info"),
		Format:         flagOrEnv(g.logFormat, "VTSTUDIO_LOG_FORMAT", "json"),
		LogFile:        flagOrEnv(g.logFile, "VTSTUDIO_LOG_FILE", ""),
		StderrMode:     flagOrEnv(g.logStderr, "VTSTUDIO_LOG_STDERR", "auto"),
		InteractiveTTY: out.Terminal().IsTTY && isInteractiveCommand(cmd.CommandPath()),
		SessionID:      uuid.NewString(),
		CommandPath:    cmd.CommandPath(),
		PluginID:       pluginID,
		Version:        version,
		Commit:         commit,
	})
	if err != nil {
		return &clierrors.CLIError{
			Message: fmt.Sprintf("Invalid logging configuration: %v", err),
			Hint:    "Use --log-level (error|warn|info|debug), --log-format (json|text), --log-stderr (auto|on|off), and/or --log-file",
			Code:    clierrors.ExitUsage,
		}
	}

	slog.SetDefault(logger)

	ctx, rel := withReleaser(out.WithContext(cmd.Context()))
	ctx = observability.WithLogger(ctx, logger)
	cmd.SetContext(ctx)

	rel.add("logger resources", closeLog)

	// Tracing is opt-in via OTEL_ENABLED.
	shutdown, err := observability.SetupTelemetry(ctx, &observability.TelemetryConfig{
		Enabled:  observability.IsTelemetryEnabled(),
		Version:  version,
		Commit:   commit,
		PluginID: pluginID,
	})
	if err != nil {
		logger.Warn("telemetry initialization failed", slog.String("error", err.Error()))
	}

	rel.add("telemetry resources", func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return shutdown(shutdownCtx)
	})

	return nil
}

// flagOrEnvBool is true when the flag is set or envKey holds 1, true or yes.
func flagOrEnvBool(flagValue bool, envKey string) bool {
	if flagValue {
		return true
	}

	switch strings.ToLower(strings.TrimSpace(os.Getenv(envKey))) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

// flagOrEnv returns the flag value, else envKey, else fallback.
func flagOrEnv(flagValue, envKey, fallback string) string {
	for _, v := range []string{flagValue, os.Getenv(envKey)} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}

	return fallback
}
