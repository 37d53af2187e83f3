package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type runtimeConfig struct {
	Verbose     bool
	Timeout     time.Duration
	AdminAddr   string
	CorsOrigins []string
	Inventory   string
}

func defaultRuntimeConfig() runtimeConfig {
	return runtimeConfig{
		Timeout: 60 * time.Second,
	}
}

type fileConfig struct {
	Verbose        bool     `toml:"verbose"`
	Timeout        string   `toml:"timeout"`
	TimeoutSeconds int64    `toml:"timeout_seconds"`
	AdminAddr      string   `toml:"admin_addr"`
	CorsOrigins    []string `toml:"cors_origins"`
	Inventory      string   `toml:"inventory"`
}

func loadRuntimeConfig(path string) (runtimeConfig, error) {
	cfg := defaultRuntimeConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return runtimeConfig{}, fmt.Errorf("load tunnelctl config: %w", err)
	}

	if meta.IsDefined("verbose") {
		cfg.Verbose = raw.Verbose
	}

	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return runtimeConfig{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}

	if meta.IsDefined("timeout_seconds") {
		cfg.Timeout = time.Duration(raw.TimeoutSeconds) * time.Second
	}

	if meta.IsDefined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}

	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeOrigins(raw.CorsOrigins)
	}

	if meta.IsDefined("inventory") {
		cfg.Inventory = strings.TrimSpace(raw.Inventory)
	}

	if cfg.Timeout < 0 {
		return runtimeConfig{}, fmt.Errorf("timeout must not be negative")
	}

	return cfg, nil
}

func normalizeOrigins(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
