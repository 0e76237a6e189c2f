// Package config handles tilepad-vtstudio configuration using Viper.
//
// Configuration sources (in priority order):
//  1. Environment variables (VTSTUDIO_*)
//  2. Config file (<user config dir>/tilepad-vtstudio/config.yaml)
//  3. Built-in defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/musher-dev/tilepad-vtstudio/internal/paths"
)

const (
	// DefaultVTSURL is the default VTube Studio plugin API address.
	DefaultVTSURL = "ws://localhost:8001"
	// DefaultRequestTimeout bounds ordinary VTube Studio requests.
	DefaultRequestTimeout = 30 * time.Second
	// DefaultProbeInterval is how often a lost connection is retried.
	DefaultProbeInterval = 5 * time.Second
	// DefaultTokenRequestTimeout bounds the wait for the user to allow the plugin.
	DefaultTokenRequestTimeout = 2 * time.Minute
	// DefaultPluginName is the name shown in the VTube Studio permission prompt.
	DefaultPluginName = "Tilepad VT Studio"
	// DefaultPluginDeveloper is the developer shown in the permission prompt.
	DefaultPluginDeveloper = "Jacobtread"
)

// Config keys.
const (
	KeyVTSURL              = "vts.url"
	KeyRequestTimeout      = "vts.request_timeout"
	KeyProbeInterval       = "vts.probe_interval"
	KeyTokenRequestTimeout = "auth.token_request_timeout"
	KeyPluginName          = "plugin.name"
	KeyPluginDeveloper     = "plugin.developer"
	KeyPluginIcon          = "plugin.icon"
	KeyTokenKeyring        = "token.keyring"
)

var knownKeys = []string{
	KeyVTSURL,
	KeyRequestTimeout,
	KeyProbeInterval,
	KeyTokenRequestTimeout,
	KeyPluginName,
	KeyPluginDeveloper,
	KeyPluginIcon,
	KeyTokenKeyring,
}

// Keys returns every supported config key in display order.
func Keys() []string {
	return slices.Clone(knownKeys)
}

// IsKnownKey reports whether key is a supported config key.
func IsKnownKey(key string) bool {
	return slices.Contains(knownKeys, key)
}

// Config holds the plugin configuration.
type Config struct {
	v *viper.Viper
}

// Load reads configuration from all sources.
func Load() *Config {
	v := viper.New()

	// Set defaults
	v.SetDefault(KeyVTSURL, DefaultVTSURL)
	v.SetDefault(KeyRequestTimeout, DefaultRequestTimeout)
	v.SetDefault(KeyProbeInterval, DefaultProbeInterval)
	v.SetDefault(KeyTokenRequestTimeout, DefaultTokenRequestTimeout)
	v.SetDefault(KeyPluginName, DefaultPluginName)
	v.SetDefault(KeyPluginDeveloper, DefaultPluginDeveloper)
	v.SetDefault(KeyPluginIcon, "")
	v.SetDefault(KeyTokenKeyring, false)

	// Config file location
	if configDir, err := paths.ConfigRoot(); err == nil {
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Environment variables
	v.SetEnvPrefix("VTSTUDIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found, but warn on other errors)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: error reading config file: %v\n", err)
		}
	}

	return &Config{v: v}
}

// Get returns a configuration value.
func (c *Config) Get(key string) interface{} {
	return c.v.Get(key)
}

// GetString returns a configuration value as string.
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// Set sets a configuration value and persists it.
func (c *Config) Set(key string, value interface{}) error {
	c.v.Set(key, value)

	configFile, err := paths.ConfigFile()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
		return err
	}

	return c.v.WriteConfigAs(configFile)
}

// All returns all configuration as a map.
func (c *Config) All() map[string]interface{} {
	return c.v.AllSettings()
}

// FileUsed returns the config file that was read, or "" when none was found.
func (c *Config) FileUsed() string {
	return c.v.ConfigFileUsed()
}

// VTSURL returns the VTube Studio API address.
func (c *Config) VTSURL() string {
	return c.GetString(KeyVTSURL)
}

// RequestTimeout returns the bound on ordinary requests. Zero disables it.
func (c *Config) RequestTimeout() time.Duration {
	return c.v.GetDuration(KeyRequestTimeout)
}

// ProbeInterval returns the reconnect probe interval.
func (c *Config) ProbeInterval() time.Duration {
	return c.v.GetDuration(KeyProbeInterval)
}

// TokenRequestTimeout returns the bound on a token request. Zero disables it.
func (c *Config) TokenRequestTimeout() time.Duration {
	return c.v.GetDuration(KeyTokenRequestTimeout)
}

// PluginName returns the plugin name sent to VTube Studio.
func (c *Config) PluginName() string {
	return c.GetString(KeyPluginName)
}

// PluginDeveloper returns the developer name sent to VTube Studio.
func (c *Config) PluginDeveloper() string {
	return c.GetString(KeyPluginDeveloper)
}

// PluginIcon returns the optional icon path.
func (c *Config) PluginIcon() string {
	return c.GetString(KeyPluginIcon)
}

// KeyringEnabled reports whether tokens are mirrored to the OS keyring.
func (c *Config) KeyringEnabled() bool {
	return c.v.GetBool(KeyTokenKeyring)
}
