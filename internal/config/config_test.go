package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCredentialsFromEnvOnly(t *testing.T) {
	t.Setenv("PGB_TWITCH_CLIENT_ID", "env-id")
	t.Setenv("PGB_TWITCH_CLIENT_SECRET", "env-secret")

	cfg, err := Load("", true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Twitch.ClientID != "env-id" {
		t.Fatalf("client id = %q, want env value", cfg.Twitch.ClientID)
	}
	if cfg.Twitch.ClientSecret != "env-secret" {
		t.Fatalf("client secret = %q, want env value", cfg.Twitch.ClientSecret)
	}
}

func TestLoadCredentialsFromEnvWithConfigFile(t *testing.T) {
	t.Setenv("PGB_TWITCH_CLIENT_ID", "env-id")
	t.Setenv("PGB_TWITCH_CLIENT_SECRET", "env-secret")

	// The file carries everything except the credentials, the committed
	// layout.
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := "app:\n  env: prod\nbackloggd:\n  usernames:\n    - alice\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Twitch.ClientID != "env-id" || cfg.Twitch.ClientSecret != "env-secret" {
		t.Fatalf("credentials = %q/%q, want env values", cfg.Twitch.ClientID, cfg.Twitch.ClientSecret)
	}
	if cfg.App.Env != "prod" {
		t.Fatalf("app env = %q, want file value", cfg.App.Env)
	}
	if len(cfg.Backloggd.Usernames) != 1 || cfg.Backloggd.Usernames[0] != "alice" {
		t.Fatalf("usernames = %v", cfg.Backloggd.Usernames)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IGDB.MaxRetries != 3 {
		t.Fatalf("max retries = %d", cfg.IGDB.MaxRetries)
	}
	if cfg.Cron.LibrarySync != "@daily" {
		t.Fatalf("library sync = %q", cfg.Cron.LibrarySync)
	}
	if cfg.DB.Path != "pg.db" {
		t.Fatalf("db path = %q", cfg.DB.Path)
	}
}
