package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "twmaild.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	def := Default()
	if cfg.Hostname != def.Hostname || cfg.Spool != def.Spool {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
hostname = "mail.example.org"
log_level = "debug"
spool = "/var/spool/twmail"

[[listeners]]
address = ":2465"

[[listeners]]
address = "127.0.0.1:2466"

[timeouts]
command = "45s"

[limits]
max_connections = 7

[metrics]
enabled = true
address = ":9200"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Hostname != "mail.example.org" {
		t.Errorf("Hostname = %q", cfg.Hostname)
	}
	if cfg.Spool != "/var/spool/twmail" {
		t.Errorf("Spool = %q", cfg.Spool)
	}
	if len(cfg.Listeners) != 2 || cfg.Listeners[0].Address != ":2465" {
		t.Errorf("Listeners = %+v", cfg.Listeners)
	}
	if cfg.Timeouts.Command != "45s" {
		t.Errorf("Timeouts.Command = %q", cfg.Timeouts.Command)
	}
	// Values absent from the file keep their defaults.
	if cfg.Timeouts.Connection != Default().Timeouts.Connection {
		t.Errorf("Timeouts.Connection = %q, want default", cfg.Timeouts.Connection)
	}
	if cfg.Limits.MaxConnections != 7 {
		t.Errorf("MaxConnections = %d", cfg.Limits.MaxConnections)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Address != ":9200" {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
	if cfg.Metrics.Path != Default().Metrics.Path {
		t.Errorf("Metrics.Path = %q, want default", cfg.Metrics.Path)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeConfigFile(t, `hostname = [not toml`)

	if _, err := Load(path); err == nil {
		t.Error("Load() of malformed file should fail")
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := Default()

	cfg = ApplyFlags(cfg, &Flags{
		Hostname:       "flagged.example.org",
		LogLevel:       "warn",
		Listen:         ":3465",
		Spool:          "/tmp/spool",
		MaxConnections: 3,
	})

	if cfg.Hostname != "flagged.example.org" {
		t.Errorf("Hostname = %q", cfg.Hostname)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if len(cfg.Listeners) != 1 || cfg.Listeners[0].Address != ":3465" {
		t.Errorf("Listeners = %+v, want the single -listen address", cfg.Listeners)
	}
	if cfg.Spool != "/tmp/spool" {
		t.Errorf("Spool = %q", cfg.Spool)
	}
	if cfg.Limits.MaxConnections != 3 {
		t.Errorf("MaxConnections = %d", cfg.Limits.MaxConnections)
	}
}

func TestApplyFlags_EmptyFlagsKeepConfig(t *testing.T) {
	cfg := Default()
	cfg.Hostname = "from-file"

	cfg = ApplyFlags(cfg, &Flags{})

	if cfg.Hostname != "from-file" {
		t.Errorf("Hostname = %q, want from-file", cfg.Hostname)
	}
	if len(cfg.Listeners) != 1 || cfg.Listeners[0].Address != Default().Listeners[0].Address {
		t.Errorf("Listeners = %+v, want defaults untouched", cfg.Listeners)
	}
}
