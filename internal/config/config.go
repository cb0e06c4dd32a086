// Package config loads the application settings from an optional YAML file
// laid over compiled defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvVar names the config file when no path is given.
const EnvVar = "COLLABBOARD_CONFIG"

type Config struct {
	Port            int           `yaml:"port"`
	Room            string        `yaml:"room"`
	Name            string        `yaml:"name"`
	SnapRadius      float64       `yaml:"snap_radius"`
	PublishInterval time.Duration `yaml:"publish_interval"`
	CursorInterval  time.Duration `yaml:"cursor_interval"`
	AutosaveDelay   time.Duration `yaml:"autosave_delay"`
	HistoryLimit    int           `yaml:"history_limit"`
	SaveDir         string        `yaml:"save_dir"`
	WireFormat      string        `yaml:"wire_format"`
	GeneratorURL    string        `yaml:"generator_url"`
	ExportPadding   float64       `yaml:"export_padding"`
	Theme           string        `yaml:"theme"`
	MDNS            bool          `yaml:"mdns"`
}

// Default returns the settings used when no file overrides them.
func Default() Config {
	return Config{
		Port:            8888,
		Room:            "main",
		SnapRadius:      20,
		PublishInterval: 50 * time.Millisecond,
		CursorInterval:  16 * time.Millisecond,
		AutosaveDelay:   500 * time.Millisecond,
		HistoryLimit:    0,
		SaveDir:         defaultSaveDir(),
		WireFormat:      "json",
		ExportPadding:   20,
		Theme:           "light",
		MDNS:            true,
	}
}

func defaultSaveDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "boards"
	}
	return filepath.Join(dir, "collabboard", "boards")
}

// Load reads path, or the file named by COLLABBOARD_CONFIG when path is
// empty. With neither, the defaults are returned. Keys missing from the
// file keep their default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("error parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.SnapRadius < 0 {
		errs = append(errs, fmt.Errorf("snap_radius must not be negative"))
	}
	if c.PublishInterval <= 0 || c.CursorInterval <= 0 || c.AutosaveDelay <= 0 {
		errs = append(errs, fmt.Errorf("intervals must be positive"))
	}
	if c.HistoryLimit < 0 {
		errs = append(errs, fmt.Errorf("history_limit must not be negative"))
	}
	if c.ExportPadding < 0 {
		errs = append(errs, fmt.Errorf("export_padding must not be negative"))
	}
	switch c.WireFormat {
	case "json", "cbor":
	default:
		errs = append(errs, fmt.Errorf("unknown wire_format %q", c.WireFormat))
	}
	switch c.Theme {
	case "light", "dark":
	default:
		errs = append(errs, fmt.Errorf("unknown theme %q", c.Theme))
	}
	return errors.Join(errs...)
}

// Addr is the listen address of the hub.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
