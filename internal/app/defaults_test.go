package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv("GDSYNC_CONFIG_PATH", "/custom/config.toml")
		t.Setenv("GDSYNC_HOME", "/custom/gdsync")
		t.Setenv("GDSYNC_PASSPHRASE", "hunter2")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		if defaults.ConfigPath != "/custom/config.toml" {
			t.Errorf("ConfigPath = %q, want %q", defaults.ConfigPath, "/custom/config.toml")
		}
		if defaults.BaseDir != "/custom/gdsync" {
			t.Errorf("BaseDir = %q, want %q", defaults.BaseDir, "/custom/gdsync")
		}
		if defaults.LogDir != "/custom/gdsync/log" {
			t.Errorf("LogDir = %q, want %q", defaults.LogDir, "/custom/gdsync/log")
		}
		if defaults.Passphrase != "hunter2" {
			t.Errorf("Passphrase = %q, want %q", defaults.Passphrase, "hunter2")
		}
	})

	t.Run("falls back to home dir defaults", func(t *testing.T) {
		t.Setenv("GDSYNC_CONFIG_PATH", "")
		t.Setenv("GDSYNC_HOME", "")
		t.Setenv("GDSYNC_PASSPHRASE", "")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		homeDir, _ := os.UserHomeDir()

		wantConfig := filepath.Join(homeDir, ".config", "gdsync.toml")
		if defaults.ConfigPath != wantConfig {
			t.Errorf("ConfigPath = %q, want %q", defaults.ConfigPath, wantConfig)
		}

		wantBase := filepath.Join(homeDir, ".local", "share", "gdsync")
		if defaults.BaseDir != wantBase {
			t.Errorf("BaseDir = %q, want %q", defaults.BaseDir, wantBase)
		}

		wantLog := filepath.Join(wantBase, "log")
		if defaults.LogDir != wantLog {
			t.Errorf("LogDir = %q, want %q", defaults.LogDir, wantLog)
		}
		if defaults.Passphrase != "" {
			t.Errorf("Passphrase = %q, want empty", defaults.Passphrase)
		}
	})

	t.Run("reads a .env file without overriding the environment", func(t *testing.T) {
		dir := t.TempDir()
		content := "GDSYNC_HOME=/from/dotenv\nGDSYNC_CONFIG_PATH=/dotenv/config.toml\n"
		if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		t.Chdir(dir)
		t.Setenv("GDSYNC_CONFIG_PATH", "/env/config.toml")
		t.Setenv("GDSYNC_HOME", "")
		os.Unsetenv("GDSYNC_HOME")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}
		if defaults.BaseDir != "/from/dotenv" {
			t.Errorf("BaseDir = %q, want %q", defaults.BaseDir, "/from/dotenv")
		}
		if defaults.ConfigPath != "/env/config.toml" {
			t.Errorf("ConfigPath = %q, want %q", defaults.ConfigPath, "/env/config.toml")
		}
	})
}
