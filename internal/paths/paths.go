// Package paths resolves where the plugin keeps its files.
//
// Roots follow XDG when the variable holds an absolute path, then the OS
// default, then a directory under $HOME.
package paths

import (
	"errors"
	"os"
	"path/filepath"
)

const appName = "tilepad-vtstudio"

var errNoHome = errors.New("resolve user home directory")

// base is one family of directories, e.g. config or state.
type base struct {
	xdgEnv  string
	osDir   func() (string, error)
	homeRel string
}

var (
	configBase = base{xdgEnv: "XDG_CONFIG_HOME", osDir: os.UserConfigDir, homeRel: ".config"}

	// Go has no OS state directory, so state goes straight to the home fallback.
	stateBase = base{xdgEnv: "XDG_STATE_HOME", homeRel: filepath.Join(".local", "state")}
)

// join resolves the app root for b and appends elem.
func (b base) join(elem ...string) (string, error) {
	root, err := b.root()
	if err != nil {
		return "", err
	}

	return filepath.Join(append([]string{root}, elem...)...), nil
}

func (b base) root() (string, error) {
	if xdg := os.Getenv(b.xdgEnv); xdg != "" && filepath.IsAbs(xdg) {
		return filepath.Join(xdg, appName), nil
	}

	var osErr error

	if b.osDir != nil {
		dir, err := b.osDir()
		if err == nil && dir != "" {
			return filepath.Join(dir, appName), nil
		}

		osErr = err
	}

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, b.homeRel, appName), nil
	}

	if osErr != nil {
		return "", osErr
	}

	return "", errNoHome
}

// ConfigRoot returns the user config directory for the plugin.
func ConfigRoot() (string, error) { return configBase.join() }

// StateRoot returns the user state directory for the plugin.
func StateRoot() (string, error) { return stateBase.join() }

// ConfigFile returns the optional config file path.
func ConfigFile() (string, error) { return configBase.join("config.yaml") }

// CredentialsFile returns the access token fallback file, used when no OS
// keyring is available.
func CredentialsFile() (string, error) { return configBase.join("access-token") }

// LogsDir returns the default log directory.
func LogsDir() (string, error) { return stateBase.join("logs") }

// DefaultLogFile returns the default log file path. Tilepad owns the
// plugin's stdout, so logs land here when nothing else is configured.
func DefaultLogFile() (string, error) { return stateBase.join("logs", appName+".log") }
