package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
discovery:
  port: 47020
  poll_wait: 5ms
commands:
  port: 6005
  connect_timeout: 150ms
  reply_timeout: 300ms
control:
  reconcile_interval: 2s
  stale_threshold: 10
devices:
  static_file: "/etc/fleetlock/devices.txt"
database:
  path: "/tmp/test.db"
mqtt:
  enabled: true
  broker:
    host: "broker.lan"
api:
  port: 9090
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Discovery.Port != 47020 {
		t.Errorf("Discovery.Port = %d, want 47020", cfg.Discovery.Port)
	}
	if cfg.Discovery.PollWait != 5*time.Millisecond {
		t.Errorf("Discovery.PollWait = %v, want 5ms", cfg.Discovery.PollWait)
	}
	if cfg.Commands.Port != 6005 {
		t.Errorf("Commands.Port = %d, want 6005", cfg.Commands.Port)
	}
	if cfg.Commands.ConnectTimeout != 150*time.Millisecond {
		t.Errorf("Commands.ConnectTimeout = %v, want 150ms", cfg.Commands.ConnectTimeout)
	}
	if cfg.Commands.ReplyTimeout != 300*time.Millisecond {
		t.Errorf("Commands.ReplyTimeout = %v, want 300ms", cfg.Commands.ReplyTimeout)
	}
	if cfg.Control.ReconcileInterval != 2*time.Second {
		t.Errorf("Control.ReconcileInterval = %v, want 2s", cfg.Control.ReconcileInterval)
	}
	if cfg.Control.StaleThreshold != 10 {
		t.Errorf("Control.StaleThreshold = %d, want 10", cfg.Control.StaleThreshold)
	}
	// Untouched keys keep defaults.
	if cfg.Control.SweepInterval != time.Second {
		t.Errorf("Control.SweepInterval = %v, want 1s", cfg.Control.SweepInterval)
	}
	if cfg.Devices.StaticFile != "/etc/fleetlock/devices.txt" {
		t.Errorf("Devices.StaticFile = %q", cfg.Devices.StaticFile)
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.Broker.Host != "broker.lan" {
		t.Errorf("MQTT = %+v, want enabled with host broker.lan", cfg.MQTT)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
commands:
  reply_timeout: 0s
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() expected validation error for zero reply timeout, got nil")
	}
	if !strings.Contains(err.Error(), "commands.reply_timeout") {
		t.Errorf("error = %v, want mention of commands.reply_timeout", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "discovery port zero",
			mutate:  func(c *Config) { c.Discovery.Port = 0 },
			wantErr: true,
		},
		{
			name:    "command port too high",
			mutate:  func(c *Config) { c.Commands.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "negative connect timeout",
			mutate:  func(c *Config) { c.Commands.ConnectTimeout = -time.Second },
			wantErr: true,
		},
		{
			name:    "zero stale threshold",
			mutate:  func(c *Config) { c.Control.StaleThreshold = 0 },
			wantErr: true,
		},
		{
			name:    "zero reconcile interval",
			mutate:  func(c *Config) { c.Control.ReconcileInterval = 0 },
			wantErr: true,
		},
		{
			name: "database disabled without path",
			mutate: func(c *Config) {
				c.Database.Enabled = false
				c.Database.Path = ""
			},
			wantErr: false,
		},
		{
			name:    "database enabled without path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "influxdb enabled without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: true,
		},
		{
			name:    "JWT secret too short",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "short" },
			wantErr: true,
		},
		{
			name:    "JWT secret long enough",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "test-secret-key-at-least-32-chars!" },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Discovery.Port = 0
	cfg.Commands.Port = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	for _, want := range []string{"discovery.port", "commands.port"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := Default()

	t.Setenv("FLEETLOCK_DEVICES_FILE", "/srv/devices.txt")
	t.Setenv("FLEETLOCK_DATABASE_PATH", "/custom/path.db")
	t.Setenv("FLEETLOCK_MQTT_HOST", "mqtt.example.com")
	t.Setenv("FLEETLOCK_MQTT_USERNAME", "testuser")
	t.Setenv("FLEETLOCK_MQTT_PASSWORD", "testpass")
	t.Setenv("FLEETLOCK_API_HOST", "192.168.1.1")
	t.Setenv("FLEETLOCK_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("FLEETLOCK_JWT_SECRET", "jwt-secret")

	applyEnvOverrides(cfg)

	if cfg.Devices.StaticFile != "/srv/devices.txt" {
		t.Errorf("Devices.StaticFile = %q, want %q", cfg.Devices.StaticFile, "/srv/devices.txt")
	}
	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
	if cfg.Security.JWT.Secret != "jwt-secret" {
		t.Errorf("Security.JWT.Secret = %q, want %q", cfg.Security.JWT.Secret, "jwt-secret")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Discovery.Port != 37020 {
		t.Errorf("Discovery.Port = %d, want 37020", cfg.Discovery.Port)
	}
	if cfg.Commands.Port != 5005 {
		t.Errorf("Commands.Port = %d, want 5005", cfg.Commands.Port)
	}
	if cfg.Commands.ConnectTimeout != 200*time.Millisecond {
		t.Errorf("Commands.ConnectTimeout = %v, want 200ms", cfg.Commands.ConnectTimeout)
	}
	if cfg.Commands.BufferSize != 1024 {
		t.Errorf("Commands.BufferSize = %d, want 1024", cfg.Commands.BufferSize)
	}
	if cfg.Control.ReconcileInterval != 3*time.Second {
		t.Errorf("Control.ReconcileInterval = %v, want 3s", cfg.Control.ReconcileInterval)
	}
	if cfg.Control.StaleThreshold != 30 {
		t.Errorf("Control.StaleThreshold = %d, want 30", cfg.Control.StaleThreshold)
	}
	if cfg.MQTT.Enabled {
		t.Error("MQTT should be disabled by default")
	}
}

func TestLoad_SampleConfig(t *testing.T) {
	t.Setenv("FLEETLOCK_JWT_SECRET", "")

	cfg, err := Load(filepath.Join("..", "..", "..", "configs", "config.yaml"))
	if err != nil {
		t.Fatalf("Load(sample) error = %v", err)
	}
	want := Default()
	if cfg.Discovery != want.Discovery || cfg.Commands != want.Commands || cfg.Control != want.Control {
		t.Errorf("sample protocol settings differ from defaults:\n got %+v %+v %+v\nwant %+v %+v %+v",
			cfg.Discovery, cfg.Commands, cfg.Control, want.Discovery, want.Commands, want.Control)
	}
}
