package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// fileConfig is the on-disk shape of the daemon's TOML config file.
// Durations are parsed as Go duration strings ("30s", "2m") rather than
// bare integers, so the file stays self-describing.
type fileConfig struct {
	Addr          string `toml:"addr"`
	TLSCert       string `toml:"tls_cert"`
	TLSKey        string `toml:"tls_key"`
	BufferSize    int    `toml:"buffer_size"`
	AliveInterval string `toml:"alive_interval"`
	AliveTimeout  string `toml:"alive_timeout"`
	LogLevel      string `toml:"log_level"`
}

// daemonConfig is the validated, defaulted configuration the daemon
// actually runs with.
type daemonConfig struct {
	Addr          string
	TLSCert       string
	TLSKey        string
	BufferSize    int
	AliveInterval time.Duration
	AliveTimeout  time.Duration
	LogLevel      string
}

func defaultDaemonConfig() daemonConfig {
	return daemonConfig{
		Addr:          ":9443",
		BufferSize:    1024,
		AliveInterval: 60 * time.Second,
		AliveTimeout:  time.Second,
		LogLevel:      "info",
	}
}

func loadDaemonConfig(path string) (daemonConfig, error) {
	cfg := defaultDaemonConfig()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return daemonConfig{}, fmt.Errorf("load daemon config: %w", err)
	}

	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("tls_cert") {
		cfg.TLSCert = strings.TrimSpace(raw.TLSCert)
	}
	if meta.IsDefined("tls_key") {
		cfg.TLSKey = strings.TrimSpace(raw.TLSKey)
	}
	if meta.IsDefined("buffer_size") {
		cfg.BufferSize = raw.BufferSize
	}
	if meta.IsDefined("alive_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.AliveInterval))
		if err != nil {
			return daemonConfig{}, fmt.Errorf("parse alive_interval: %w", err)
		}
		cfg.AliveInterval = d
	}
	if meta.IsDefined("alive_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.AliveTimeout))
		if err != nil {
			return daemonConfig{}, fmt.Errorf("parse alive_timeout: %w", err)
		}
		cfg.AliveTimeout = d
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if err := validateDaemonConfig(cfg); err != nil {
		return daemonConfig{}, err
	}
	return cfg, nil
}

func validateDaemonConfig(cfg daemonConfig) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("daemon config missing addr")
	}
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return fmt.Errorf("daemon config must set both tls_cert and tls_key, or neither")
	}
	if cfg.BufferSize < 0 {
		return fmt.Errorf("daemon config buffer_size must not be negative")
	}
	return nil
}
