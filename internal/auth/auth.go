// Package auth authenticates the plugin with VTube Studio and keeps the
// access token it was granted.
//
// Outside the host the token is sourced in the following priority order:
//  1. Environment variable: VTSTUDIO_ACCESS_TOKEN
//  2. OS Keyring (macOS Keychain, Windows Credential Manager, Linux Secret Service)
//  3. Config file fallback: <user config dir>/tilepad-vtstudio/access-token
//
// Inside the host the host settings are authoritative; the keyring only
// mirrors them when token.keyring is enabled.
package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/musher-dev/tilepad-vtstudio/internal/paths"
)

const (
	// keyringService is the service name used in OS keyring storage.
	keyringService = "tilepad-vtstudio"
	// keyringUser is the user/account name used in OS keyring storage.
	keyringUser = "vts-access-token"
	// envVarName is the environment variable for the access token.
	envVarName = "VTSTUDIO_ACCESS_TOKEN"
)

// TokenSource indicates where a token was found.
type TokenSource string

// Token source constants identify where a token was loaded from.
const (
	SourceEnv     TokenSource = "environment variable"
	SourceKeyring TokenSource = "keyring"
	SourceFile    TokenSource = "config file"
	SourceNone    TokenSource = ""
)

// TokenStore persists the access token outside the host settings.
type TokenStore struct{}

// Load returns the stored token and its source. It returns SourceNone and
// "" when no token is stored.
func (TokenStore) Load() (source TokenSource, token string) {
	if token := os.Getenv(envVarName); token != "" {
		return SourceEnv, token
	}

	if token, err := keyring.Get(keyringService, keyringUser); err == nil && token != "" {
		return SourceKeyring, token
	}

	if token := readTokenFile(); token != "" {
		return SourceFile, token
	}

	return SourceNone, ""
}

// Save stores the token in the OS keyring, falling back to the token file
// when no keyring is available.
func (TokenStore) Save(token string) error {
	if err := keyring.Set(keyringService, keyringUser, token); err == nil {
		return nil
	}

	return writeTokenFile(token)
}

// Delete removes the stored token from both the keyring and the file.
func (TokenStore) Delete() error {
	keyringErr := keyring.Delete(keyringService, keyringUser)
	fileErr := deleteTokenFile()

	if keyringErr != nil && fileErr != nil {
		return fmt.Errorf("no stored access token found")
	}

	return nil
}

func tokenFilePath() string {
	path, err := paths.CredentialsFile()
	if err != nil {
		return ""
	}

	return filepath.Clean(path)
}

func readTokenFile() string {
	path := tokenFilePath()
	if path == "" {
		return ""
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path from controlled config directory
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(data))
}

func writeTokenFile(token string) error {
	path := tokenFilePath()
	if path == "" {
		return fmt.Errorf("could not determine home directory")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Owner read/write only.
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	return nil
}

func deleteTokenFile() error {
	path := tokenFilePath()
	if path == "" {
		return fmt.Errorf("could not determine home directory")
	}

	err := os.Remove(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("token file not found")
	}

	if err != nil {
		return fmt.Errorf("remove token file: %w", err)
	}

	return nil
}
