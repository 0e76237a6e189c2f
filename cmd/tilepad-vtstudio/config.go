package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/musher-dev/tilepad-vtstudio/internal/config"
	clierrors "github.com/musher-dev/tilepad-vtstudio/internal/errors"
	"github.com/musher-dev/tilepad-vtstudio/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View and modify tilepad-vtstudio configuration settings.`,
	}

	cmd.AddCommand(newConfigListCmd())
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigSetCmd())

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		Long:  `Display every configuration setting with its effective value, including defaults, as YAML.`,
		Example: `  tilepad-vtstudio config list
  tilepad-vtstudio config list --json`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			cfg := config.Load()

			if !out.JSON {
				if file := cfg.FileUsed(); file != "" {
					out.Muted("# %s", file)
				} else {
					out.Muted("# defaults (no config file)")
				}
			}

			if err := out.PrintStructured(cfg.All()); err != nil {
				return fmt.Errorf("print config: %w", err)
			}

			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <key>",
		Short:   "Get a configuration value",
		Long:    `Retrieve and display the current value of a single configuration key.`,
		Example: `  tilepad-vtstudio config get vts.url`,
		Args:    usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			key := args[0]

			if !config.IsKnownKey(key) {
				return clierrors.UnknownConfigKey(key)
			}

			value := config.Load().Get(key)
			if value == nil || value == "" {
				out.Muted("%s is not set", key)
				return nil
			}

			out.Print("%s = %v\n", key, value)

			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  `Set a configuration key to the given value. The value is validated and persisted to the config file.`,
		Example: `  tilepad-vtstudio config set vts.url ws://localhost:8001
  tilepad-vtstudio config set auth.token_request_timeout 5m`,
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			key, raw := args[0], args[1]

			value, err := parseConfigValue(key, raw)
			if err != nil {
				return err
			}

			if err := config.Load().Set(key, value); err != nil {
				return clierrors.ConfigFailed("set config", err)
			}

			out.Success("Set %s = %s", key, raw)

			return nil
		},
	}
}

// parseConfigValue validates raw for key and returns the value to store.
func parseConfigValue(key, raw string) (any, error) {
	invalid := func(err error) error {
		return &clierrors.CLIError{
			Message: fmt.Sprintf("Invalid value for %s: %q", key, raw),
			Cause:   err,
			Hint:    "Durations look like 30s or 2m, booleans are true or false",
			Code:    clierrors.ExitUsage,
		}
	}

	switch key {
	case config.KeyRequestTimeout, config.KeyProbeInterval, config.KeyTokenRequestTimeout:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, invalid(err)
		}

		if d < 0 || (key == config.KeyProbeInterval && d == 0) {
			return nil, invalid(fmt.Errorf("out of range"))
		}

		return d.String(), nil
	case config.KeyTokenKeyring:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, invalid(err)
		}

		return b, nil
	default:
		if !config.IsKnownKey(key) {
			return nil, clierrors.UnknownConfigKey(key)
		}

		return raw, nil
	}
}
