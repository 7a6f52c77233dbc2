package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_EmptyPathIsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":42666" || cfg.DataDir != "./data" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.TLS() {
		t.Fatalf("TLS enabled by default")
	}
}

func TestLoad_File(t *testing.T) {
	p := writeConfig(t, `
addr: ":9000"
data_dir: /var/lib/mpserver
log_file: /var/log/mpserver.log
disable_db: true
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.DataDir != "/var/lib/mpserver" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.LogFile != "/var/log/mpserver.log" || !cfg.DisableDB {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoad_BlankFieldsFallBackToDefaults(t *testing.T) {
	p := writeConfig(t, "addr: \"\"\ndata_dir: \"  \"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":42666" || cfg.DataDir != "./data" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoad_TLSPairValidation(t *testing.T) {
	p := writeConfig(t, "cert_file: server.crt\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("half a TLS pair accepted")
	}

	p = writeConfig(t, "cert_file: server.crt\nkey_file: server.key\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.TLS() {
		t.Fatalf("TLS pair not detected")
	}
}

func TestLoad_MissingFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("missing file accepted")
	}
}

func TestLoad_MalformedYAMLErrors(t *testing.T) {
	p := writeConfig(t, "addr: [unclosed\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("malformed yaml accepted")
	}
}
