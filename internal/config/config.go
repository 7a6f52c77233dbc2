// Package config loads the server's YAML configuration. Every field has a
// default, so running without a config file works.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bind address for the websocket + admin HTTP server.
	Addr string `yaml:"addr"`

	// Optional TLS. Both must be set to enable wss://.
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	// Runtime data directory; the sqlite database lives here.
	DataDir string `yaml:"data_dir"`

	// Log file path; empty logs to stdout only.
	LogFile string `yaml:"log_file"`

	// Disable the sqlite store entirely (state is then memory-only).
	DisableDB bool `yaml:"disable_db"`
}

func defaults() Config {
	return Config{
		Addr:    ":42666",
		DataDir: "./data",
	}
}

// Load reads the config at path, or returns pure defaults when path is empty.
func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) normalize() {
	if strings.TrimSpace(c.Addr) == "" {
		c.Addr = ":42666"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./data"
	}
}

func (c *Config) Validate() error {
	if (c.CertFile == "") != (c.KeyFile == "") {
		return fmt.Errorf("cert_file and key_file must be set together")
	}
	return nil
}

// TLS reports whether a certificate pair is configured.
func (c *Config) TLS() bool {
	return c.CertFile != "" && c.KeyFile != ""
}
