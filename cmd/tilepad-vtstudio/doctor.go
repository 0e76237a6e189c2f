package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/musher-dev/tilepad-vtstudio/internal/config"
	"github.com/musher-dev/tilepad-vtstudio/internal/doctor"
	"github.com/musher-dev/tilepad-vtstudio/internal/observability"
	"github.com/musher-dev/tilepad-vtstudio/internal/output"
	"github.com/musher-dev/tilepad-vtstudio/internal/paths"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose common issues",
		Long: `Run diagnostic checks to identify configuration and connectivity issues.

Checks performed:
  - Config file syntax and plugin icon
  - VTube Studio reachability and version
  - Stored access token validity`,
		Example: `  tilepad-vtstudio doctor`,
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			renderDoctor(out, runDoctor(ctx, config.Load()))

			return nil
		},
	}
}

func runDoctor(ctx context.Context, cfg *config.Config) []doctor.Result {
	// The icon check reports an unreadable icon, so the error is dropped here.
	identity, _ := identityFromConfig(cfg)

	configFile := cfg.FileUsed()
	if configFile == "" {
		configFile, _ = paths.ConfigFile()
	}

	runner := doctor.New(doctor.Options{
		Link:       linkOptions(cfg, identity, observability.FromContext(ctx)),
		ConfigFile: configFile,
		IconPath:   cfg.PluginIcon(),
	})

	return runner.Run(ctx)
}

// renderDoctor prints the results and a summary line.
func renderDoctor(out *output.Writer, results []doctor.Result) {
	out.Println("tilepad-vtstudio doctor")
	out.Println("=======================")
	out.Println()

	doctor.Render(out, results)

	passed, failed, warnings := doctor.Summary(results)

	out.Println()
	out.Print("%d passed", passed)

	if failed > 0 {
		out.Print(", %d failed", failed)
	}

	if warnings > 0 {
		out.Print(", %d warning(s)", warnings)
	}

	out.Println()
}
