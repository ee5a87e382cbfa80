package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// fileOverlay is the subset of Config a TOML file is allowed to override.
// A non-zero value in the file replaces the flag value for that field.
type fileOverlay struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	Dir        string `toml:"dir"`
	DBFilename string `toml:"dbfilename"`
	MasterHost string `toml:"master_host"`
	MasterPort int    `toml:"master_port"`
}

// ApplyFile overlays settings from a TOML config file onto cfg. Zero-valued
// fields in the file are simply left untouched on cfg.
func ApplyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var overlay fileOverlay
	if err := toml.Unmarshal(raw, &overlay); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if overlay.Host != "" {
		cfg.Host = overlay.Host
	}
	if overlay.Port != 0 {
		cfg.Port = overlay.Port
	}
	if overlay.Dir != "" {
		cfg.Dir = overlay.Dir
	}
	if overlay.DBFilename != "" {
		cfg.DBFilename = overlay.DBFilename
	}
	if overlay.MasterHost != "" {
		cfg.MasterHost = overlay.MasterHost
		cfg.IsReplica = true
	}
	if overlay.MasterPort != 0 {
		cfg.MasterPort = overlay.MasterPort
	}
	return nil
}
