package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/musher-dev/tilepad-vtstudio/internal/auth"
	"github.com/musher-dev/tilepad-vtstudio/internal/config"
	"github.com/musher-dev/tilepad-vtstudio/internal/output"
	"github.com/musher-dev/tilepad-vtstudio/internal/paths"
)

// PathsInfo holds all resolved paths for JSON output.
type PathsInfo struct {
	ConfigRoot  string `json:"config_root"`
	StateRoot   string `json:"state_root"`
	ConfigFile  string `json:"config_file"`
	Credentials string `json:"credentials"`
	LogFile     string `json:"log_file"`
	VTSURL      string `json:"vts_url"`
	TokenSource string `json:"token_source"`
}

func newPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Show where tilepad-vtstudio stores files",
		Long: `Display all file and directory paths used by tilepad-vtstudio.

Useful when Tilepad owns the plugin's output and the log file is the only
place to look.`,
		Example: `  tilepad-vtstudio paths
  tilepad-vtstudio paths --json`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			info := resolvePathsInfo()

			if out.JSON {
				return out.PrintJSON(info)
			}

			out.Print("Config root:    %s\n", info.ConfigRoot)
			out.Print("State root:     %s\n", info.StateRoot)
			out.Print("\n")
			out.Print("Config file:    %s\n", info.ConfigFile)
			out.Print("Credentials:    %s\n", info.Credentials)
			out.Print("Log file:       %s\n", info.LogFile)
			out.Print("\n")
			out.Print("VTS URL:        %s\n", info.VTSURL)
			out.Print("Token source:   %s\n", info.TokenSource)

			return nil
		},
	}
}

func resolvePathsInfo() PathsInfo {
	info := PathsInfo{
		ConfigRoot:  resolveOrError(paths.ConfigRoot),
		StateRoot:   resolveOrError(paths.StateRoot),
		ConfigFile:  resolveOrError(paths.ConfigFile),
		Credentials: resolveOrError(paths.CredentialsFile),
		LogFile:     resolveOrError(paths.DefaultLogFile),
		VTSURL:      config.Load().VTSURL(),
		TokenSource: "none",
	}

	if source, _ := (auth.TokenStore{}).Load(); source != auth.SourceNone {
		info.TokenSource = string(source)
	}

	return info
}

func resolveOrError(fn func() (string, error)) string {
	val, err := fn()
	if err != nil {
		return fmt.Sprintf("<error: %v>", err)
	}

	return val
}
