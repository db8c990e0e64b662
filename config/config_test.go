package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func isolate(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, k := range []string{"JUSTSPEAK_CONFIG", "NEMOSPEECH_URL", "JUSTSPEAK_PROVIDER", "JUSTSPEAK_KEY", "GROQ_API_KEY", "JUSTSPEAK_BEEP"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.URL != "http://localhost:5051" {
		t.Errorf("url = %q", cfg.Server.URL)
	}
	if cfg.Session.MinDuration.Duration != 300*time.Millisecond || cfg.Session.MaxDuration.Duration != 30*time.Second {
		t.Errorf("session = %+v", cfg.Session)
	}
	if cfg.Path != "" {
		t.Errorf("path = %q, want none", cfg.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
[server]
url = "http://gpu-box:5051"
timeout = "5s"
format = "flac"

[hotkey]
key = "f9"

[session]
interval = "750ms"
max_duration = "1m"

[overlay]
enabled = false
flight = "500ms"

[audio]
device = "USB Mic"
beep = false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.URL != "http://gpu-box:5051" || cfg.Server.Timeout.Duration != 5*time.Second {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Hotkey.Key != "f9" || cfg.Session.Interval.Duration != 750*time.Millisecond {
		t.Errorf("hotkey/session = %+v %+v", cfg.Hotkey, cfg.Session)
	}
	if cfg.Session.MinDuration.Duration != 300*time.Millisecond {
		t.Errorf("unset keys should keep defaults, min_duration = %v", cfg.Session.MinDuration)
	}
	if cfg.Overlay.Enabled || cfg.Overlay.Flight.Duration != 500*time.Millisecond {
		t.Errorf("overlay = %+v", cfg.Overlay)
	}
	if cfg.Audio.Device != "USB Mic" || cfg.Audio.Beep {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	if cfg.Path != path {
		t.Errorf("path = %q", cfg.Path)
	}
}

func TestDefaultPathFromXDG(t *testing.T) {
	isolate(t)
	dir := os.Getenv("XDG_CONFIG_HOME")
	if err := os.MkdirAll(filepath.Join(dir, "justspeak"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "justspeak", "config.toml"), []byte("[server]\nurl = \"http://xdg:1\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.URL != "http://xdg:1" {
		t.Errorf("url = %q", cfg.Server.URL)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "[server]\nurl = \"http://file:1\"\nprovider = \"nemospeech\"\n")
	t.Setenv("JUSTSPEAK_CONFIG", path)
	t.Setenv("NEMOSPEECH_URL", "http://env:2")
	t.Setenv("JUSTSPEAK_PROVIDER", "groq")
	t.Setenv("JUSTSPEAK_KEY", "capslock")
	t.Setenv("GROQ_API_KEY", "gsk_test")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.URL != "http://env:2" {
		t.Errorf("url = %q, env should win over file", cfg.Server.URL)
	}
	if cfg.Server.Provider != "groq" || cfg.Hotkey.Key != "capslock" || cfg.Server.APIKey != "gsk_test" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	isolate(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("explicit missing file should fail")
	}
	if _, err := Load(writeConfig(t, "[server\nurl=")); err == nil {
		t.Error("invalid TOML should fail")
	}
	if _, err := Load(writeConfig(t, "[server]\nurl = \"x\"\ncolour = \"red\"\n")); err == nil || !strings.Contains(err.Error(), "server.colour") {
		t.Errorf("unknown key: err = %v", err)
	}
	if _, err := Load(writeConfig(t, "[session]\ninterval = \"soon\"\n")); err == nil {
		t.Error("bad duration should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero interval", func(c *Config) { c.Session.Interval.Duration = 0 }, "session.interval"},
		{"negative timeout", func(c *Config) { c.Server.Timeout.Duration = -time.Second }, "server.timeout"},
		{"min above max", func(c *Config) { c.Session.MinDuration.Duration = time.Minute }, "min_duration"},
		{"provider", func(c *Config) { c.Server.Provider = "deepgram" }, "server.provider"},
		{"format", func(c *Config) { c.Server.Format = "mp3" }, "server.format"},
		{"key", func(c *Config) { c.Hotkey.Key = "nosuchkey" }, "hotkey.key"},
		{"screen", func(c *Config) { c.Overlay.ScreenWidth = 0 }, "screen_width"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
