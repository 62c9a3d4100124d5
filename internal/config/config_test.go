package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(envClientID, "")
	t.Setenv(envClientSecret, "")
	t.Setenv(envRedisURL, "")
	return home
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadUnchecked_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := LoadUnchecked(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("LoadUnchecked returned error: %v", err)
	}
	if cfg.APIBase != defaultAPIBase {
		t.Fatalf("APIBase = %q, want %q", cfg.APIBase, defaultAPIBase)
	}
	if cfg.RedirectURI != defaultRedirectURI {
		t.Fatalf("RedirectURI = %q, want %q", cfg.RedirectURI, defaultRedirectURI)
	}
	if cfg.PerPage != defaultPerPage {
		t.Fatalf("PerPage = %d, want %d", cfg.PerPage, defaultPerPage)
	}
	if !strings.HasPrefix(cfg.LogFile, home) {
		t.Fatalf("LogFile = %q, want it under HOME %q", cfg.LogFile, home)
	}
	if cfg.TokenStore.Backend != "file" {
		t.Fatalf("TokenStore.Backend = %q, want file", cfg.TokenStore.Backend)
	}
}

func TestLoad_MissingCredentialsFailsValidation(t *testing.T) {
	home := isolate(t)

	_, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err == nil {
		t.Fatalf("Load returned nil error, want validation error")
	}
	if !strings.Contains(err.Error(), "ClientID") {
		t.Fatalf("Load error = %q, want it to name ClientID", err.Error())
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := isolate(t)

	path := writeConfig(t, `
api_base = "  http://127.0.0.1:9999/  "
client_id = "  id-123  "
client_secret = "secret"
per_page = 5
requests_per_hour = 0
log_file = "  ~/.shutter/logs/shutter.log  "

[token_store]
backend = "  Memory "
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBase != "http://127.0.0.1:9999" {
		t.Fatalf("APIBase = %q, want trailing slash trimmed", cfg.APIBase)
	}
	if cfg.ClientID != "id-123" {
		t.Fatalf("ClientID = %q, want %q", cfg.ClientID, "id-123")
	}
	if cfg.PerPage != 5 {
		t.Fatalf("PerPage = %d, want 5", cfg.PerPage)
	}
	if cfg.RequestsPerHour != 0 {
		t.Fatalf("RequestsPerHour = %d, want explicit 0 kept", cfg.RequestsPerHour)
	}
	if !strings.HasPrefix(cfg.LogFile, home) {
		t.Fatalf("LogFile = %q, want it under HOME %q", cfg.LogFile, home)
	}
	if cfg.TokenStore.Backend != "memory" {
		t.Fatalf("TokenStore.Backend = %q, want memory", cfg.TokenStore.Backend)
	}
	if cfg.TokenURL() != "https://unsplash.com/oauth/token" {
		t.Fatalf("TokenURL = %q", cfg.TokenURL())
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	isolate(t)
	t.Setenv(envClientID, "env-id")
	t.Setenv(envClientSecret, "env-secret")

	path := writeConfig(t, `
client_id = "file-id"
client_secret = "file-secret"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ClientID != "env-id" || cfg.ClientSecret != "env-secret" {
		t.Fatalf("credentials = %q/%q, want env values", cfg.ClientID, cfg.ClientSecret)
	}
}

func TestLoad_DotEnvNextToConfig(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SHUTTER_CLIENT_ID=dotenv-id\nSHUTTER_CLIENT_SECRET=dotenv-secret\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	// godotenv never overrides variables that are already set.
	os.Unsetenv(envClientID)
	os.Unsetenv(envClientSecret)

	cfg, err := Load(filepath.Join(dir, "config.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ClientID != "dotenv-id" {
		t.Fatalf("ClientID = %q, want dotenv-id", cfg.ClientID)
	}
}

func TestLoad_RedisBackendRequiresURL(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
client_id = "id"
client_secret = "secret"

[token_store]
backend = "redis"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("Load returned nil error, want redis_url validation error")
	}

	t.Setenv(envRedisURL, "redis://127.0.0.1:6379/0")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.TokenStore.RedisURL != "redis://127.0.0.1:6379/0" {
		t.Fatalf("RedisURL = %q", cfg.TokenStore.RedisURL)
	}
}

func TestLoad_UnknownBackendFails(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
client_id = "id"
client_secret = "secret"

[token_store]
backend = "keychain"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("Load returned nil error, want oneof validation error")
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `api_base = [`)
	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}

func TestLogDir_DefaultsWhenLogFileEmpty(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	var cfg Config
	got := cfg.LogDir()
	if !strings.HasPrefix(got, home) {
		t.Fatalf("LogDir = %q, want it under HOME %q", got, home)
	}
}
