package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default() config is invalid: %v", err)
	}

	if cfg.Hostname != "localhost" {
		t.Errorf("Hostname = %q, want localhost", cfg.Hostname)
	}
	if cfg.Spool == "" {
		t.Error("Spool should have a default")
	}
	if len(cfg.Listeners) != 1 {
		t.Fatalf("Listeners = %d, want 1", len(cfg.Listeners))
	}
	if cfg.Limits.MaxConnections <= 0 {
		t.Error("MaxConnections should default to a positive value")
	}
	if cfg.Metrics.Enabled {
		t.Error("metrics should be disabled by default")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid default",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "missing hostname",
			mutate:  func(c *Config) { c.Hostname = "" },
			wantErr: "hostname",
		},
		{
			name:    "missing spool",
			mutate:  func(c *Config) { c.Spool = "" },
			wantErr: "spool",
		},
		{
			name:    "no listeners",
			mutate:  func(c *Config) { c.Listeners = nil },
			wantErr: "listener",
		},
		{
			name:    "listener without address",
			mutate:  func(c *Config) { c.Listeners = []ListenerConfig{{}} },
			wantErr: "address",
		},
		{
			name:    "non-positive max connections",
			mutate:  func(c *Config) { c.Limits.MaxConnections = 0 },
			wantErr: "max_connections",
		},
		{
			name:    "bad command timeout",
			mutate:  func(c *Config) { c.Timeouts.Command = "soon" },
			wantErr: "command timeout",
		},
		{
			name: "metrics enabled without address",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Address = ""
			},
			wantErr: "metrics address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestTimeoutAccessors(t *testing.T) {
	c := TimeoutsConfig{Connection: "2m", Command: "30s", Idle: "1h"}

	if got := c.ConnectionTimeout(); got != 2*time.Minute {
		t.Errorf("ConnectionTimeout() = %v, want 2m", got)
	}
	if got := c.CommandTimeout(); got != 30*time.Second {
		t.Errorf("CommandTimeout() = %v, want 30s", got)
	}
	if got := c.IdleTimeout(); got != time.Hour {
		t.Errorf("IdleTimeout() = %v, want 1h", got)
	}

	// Unset or malformed values fall back to defaults.
	var zero TimeoutsConfig
	if got := zero.CommandTimeout(); got != 5*time.Minute {
		t.Errorf("zero CommandTimeout() = %v, want 5m", got)
	}
	bad := TimeoutsConfig{Idle: "whenever"}
	if got := bad.IdleTimeout(); got != 30*time.Minute {
		t.Errorf("malformed IdleTimeout() = %v, want 30m", got)
	}
}
