package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv("PSTALKER_CONFIG_PATH", "/custom/config.toml")
		t.Setenv("PSTALKER_HOME", "/custom/pstalker")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		want := Defaults{
			ConfigPath: "/custom/config.toml",
			BaseDir:    "/custom/pstalker",
			LogDir:     filepath.Join("/custom/pstalker", "log"),
		}
		if defaults != want {
			t.Errorf("GetDefaults() = %+v, want %+v", defaults, want)
		}
	})

	t.Run("falls back to home dir defaults", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("PSTALKER_CONFIG_PATH", "")
		t.Setenv("PSTALKER_HOME", "")
		t.Setenv("HOME", home)
		t.Setenv("XDG_CONFIG_HOME", "")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		configDir, err := os.UserConfigDir()
		if err != nil {
			t.Fatalf("UserConfigDir() error = %v", err)
		}
		if want := filepath.Join(configDir, "pstalker.toml"); defaults.ConfigPath != want {
			t.Errorf("ConfigPath = %q, want %q", defaults.ConfigPath, want)
		}

		wantBase := filepath.Join(home, ".local", "share", "pstalker")
		if defaults.BaseDir != wantBase {
			t.Errorf("BaseDir = %q, want %q", defaults.BaseDir, wantBase)
		}
		if want := filepath.Join(wantBase, "log"); defaults.LogDir != want {
			t.Errorf("LogDir = %q, want %q", defaults.LogDir, want)
		}
	})
}
