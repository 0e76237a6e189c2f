package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestTokenStore_LoadFromEnv(t *testing.T) {
	keyring.MockInit()
	t.Setenv(envVarName, "env-token")

	source, token := TokenStore{}.Load()
	if source != SourceEnv {
		t.Errorf("source = %v, want %v", source, SourceEnv)
	}

	if token != "env-token" {
		t.Errorf("token = %q, want env-token", token)
	}
}

func TestTokenStore_KeyringRoundTrip(t *testing.T) {
	keyring.MockInit()
	t.Setenv(envVarName, "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	store := TokenStore{}
	if err := store.Save("kr-token"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	source, token := store.Load()
	if source != SourceKeyring || token != "kr-token" {
		t.Fatalf("Load() = (%v, %q), want (keyring, kr-token)", source, token)
	}

	if err := store.Delete(); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if source, token := store.Load(); source != SourceNone || token != "" {
		t.Fatalf("Load() after delete = (%v, %q)", source, token)
	}
}

func TestTokenStore_FileFallback(t *testing.T) {
	keyring.MockInitWithError(errors.New("no keyring"))
	t.Setenv(envVarName, "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	store := TokenStore{}
	if err := store.Save("file-token"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	source, token := store.Load()
	if source != SourceFile || token != "file-token" {
		t.Fatalf("Load() = (%v, %q), want (config file, file-token)", source, token)
	}

	info, err := os.Stat(tokenFilePath())
	if err != nil {
		t.Fatalf("os.Stat() error = %v", err)
	}

	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("token file permissions = %o, want 0600", perm)
	}

	if err := store.Delete(); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := os.Stat(tokenFilePath()); !os.IsNotExist(err) {
		t.Error("token file still exists after delete")
	}
}

func TestTokenStore_DeleteNothingStored(t *testing.T) {
	keyring.MockInit()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if err := (TokenStore{}).Delete(); err == nil {
		t.Error("Delete() error = nil, want error when nothing is stored")
	}
}

func TestTokenFilePath(t *testing.T) {
	cfg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", cfg)

	want := filepath.Join(cfg, "tilepad-vtstudio", "access-token")
	if got := tokenFilePath(); got != want {
		t.Errorf("tokenFilePath() = %q, want %q", got, want)
	}
}

func TestLoadIcon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icon.png")
	if err := os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := LoadIcon(path)
	if err != nil {
		t.Fatalf("LoadIcon() error = %v", err)
	}

	if got != "iVBORw==" {
		t.Errorf("LoadIcon() = %q, want iVBORw==", got)
	}

	if _, err := LoadIcon(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("LoadIcon() error = nil for missing file")
	}
}
