// Package config loads justspeak settings. Precedence from lowest to highest
// is built-in defaults, the TOML file, then environment variables. Flags are
// applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"justspeak/encoder"
	"justspeak/hotkey"
)

// Duration decodes Go duration strings such as "300ms" or "1m30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type ServerConfig struct {
	URL      string   `toml:"url"`
	APIKey   string   `toml:"api_key"`
	Timeout  Duration `toml:"timeout"`
	Provider string   `toml:"provider"`
	Format   string   `toml:"format"`
	Language string   `toml:"language"`
}

type HotkeyConfig struct {
	Key string `toml:"key"`
}

type SessionConfig struct {
	MinDuration Duration `toml:"min_duration"`
	MaxDuration Duration `toml:"max_duration"`
	Interval    Duration `toml:"interval"`
	MinSnapshot Duration `toml:"min_snapshot"`
}

type OverlayConfig struct {
	Enabled      bool     `toml:"enabled"`
	ScreenWidth  float64  `toml:"screen_width"`
	ScreenHeight float64  `toml:"screen_height"`
	Reveal       Duration `toml:"reveal"`
	Stagger      Duration `toml:"stagger"`
	Flight       Duration `toml:"flight"`
	FallbackX    float64  `toml:"fallback_x"`
	FallbackY    float64  `toml:"fallback_y"`
}

type AudioConfig struct {
	Device string `toml:"device"`
	Beep   bool   `toml:"beep"`
}

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Hotkey  HotkeyConfig  `toml:"hotkey"`
	Session SessionConfig `toml:"session"`
	Overlay OverlayConfig `toml:"overlay"`
	Audio   AudioConfig   `toml:"audio"`

	// Path is the file the config was read from, empty if none.
	Path string `toml:"-"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			URL:      "http://localhost:5051",
			Timeout:  Duration{10 * time.Second},
			Provider: "nemospeech",
		},
		Hotkey: HotkeyConfig{Key: "rightalt"},
		Session: SessionConfig{
			MinDuration: Duration{300 * time.Millisecond},
			MaxDuration: Duration{30 * time.Second},
			Interval:    Duration{time.Second},
			MinSnapshot: Duration{500 * time.Millisecond},
		},
		Overlay: OverlayConfig{
			Enabled:      true,
			ScreenWidth:  1920,
			ScreenHeight: 1080,
			Reveal:       Duration{250 * time.Millisecond},
			Stagger:      Duration{25 * time.Millisecond},
			Flight:       Duration{350 * time.Millisecond},
			FallbackX:    960,
			FallbackY:    800,
		},
		Audio: AudioConfig{Beep: true},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/justspeak/config.toml, falling back to
// ~/.config.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "justspeak", "config.toml")
}

// Load reads the config file and applies environment overrides. An explicit
// path (argument or JUSTSPEAK_CONFIG) must exist; the default path may not.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := true
	if path == "" {
		path = os.Getenv("JUSTSPEAK_CONFIG")
	}
	if path == "" {
		path = DefaultPath()
		explicit = false
	}

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		switch {
		case err == nil:
			cfg.Path = path
			if undec := md.Undecoded(); len(undec) > 0 {
				keys := make([]string, len(undec))
				for i, k := range undec {
					keys[i] = k.String()
				}
				return cfg, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		case errors.Is(err, os.ErrNotExist):
			return cfg, fmt.Errorf("config file not found: %w", err)
		default:
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Server.URL, "NEMOSPEECH_URL")
	overrideString(&cfg.Server.Provider, "JUSTSPEAK_PROVIDER")
	overrideString(&cfg.Hotkey.Key, "JUSTSPEAK_KEY")
	overrideString(&cfg.Server.APIKey, "GROQ_API_KEY")
	overrideBool(&cfg.Audio.Beep, "JUSTSPEAK_BEEP")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

// Validate checks values after all overrides have been applied.
func (c Config) Validate() error {
	for name, d := range map[string]Duration{
		"server.timeout":       c.Server.Timeout,
		"session.min_duration": c.Session.MinDuration,
		"session.max_duration": c.Session.MaxDuration,
		"session.interval":     c.Session.Interval,
		"session.min_snapshot": c.Session.MinSnapshot,
		"overlay.reveal":       c.Overlay.Reveal,
		"overlay.flight":       c.Overlay.Flight,
	} {
		if d.Duration <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.Overlay.Stagger.Duration < 0 {
		return errors.New("overlay.stagger must not be negative")
	}
	if c.Session.MinDuration.Duration >= c.Session.MaxDuration.Duration {
		return errors.New("session.min_duration must be less than session.max_duration")
	}
	switch c.Server.Provider {
	case "nemospeech", "groq", "openai":
	default:
		return fmt.Errorf("server.provider must be one of nemospeech|groq|openai, got %q", c.Server.Provider)
	}
	if c.Server.Format != "" {
		if _, err := encoder.ParseFormat(c.Server.Format); err != nil {
			return fmt.Errorf("server.format: %w", err)
		}
	}
	if _, err := hotkey.ParseKey(c.Hotkey.Key); err != nil {
		return fmt.Errorf("hotkey.key: %w", err)
	}
	if c.Overlay.ScreenWidth <= 0 || c.Overlay.ScreenHeight <= 0 {
		return errors.New("overlay.screen_width and screen_height must be positive")
	}
	return nil
}
