package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for FleetLock.
// Values come from YAML and can be overridden by environment variables.
type Config struct {
	Discovery DiscoveryConfig `yaml:"discovery"`
	Commands  CommandsConfig  `yaml:"commands"`
	Control   ControlConfig   `yaml:"control"`
	Devices   DevicesConfig   `yaml:"devices"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// DiscoveryConfig contains the UDP announcement listener settings.
type DiscoveryConfig struct {
	// ListenAddress is the local interface to bind. Empty or "0.0.0.0" binds all.
	ListenAddress string `yaml:"listen_address"`

	// Port is the UDP port devices broadcast their announcements to.
	// Default: 37020
	Port int `yaml:"port"`

	// PollInterval is how often the listener is checked for datagrams.
	// Default: 1s
	PollInterval time.Duration `yaml:"poll_interval"`

	// PollWait bounds a single receive attempt so a poll never stalls the timer tier.
	// Default: 1ms
	PollWait time.Duration `yaml:"poll_wait"`

	// MaxPerPoll caps how many waiting datagrams one poll drains.
	// Default: 64
	MaxPerPoll int `yaml:"max_per_poll"`

	// BufferSize is the receive buffer for one datagram.
	// Default: 1024
	BufferSize int `yaml:"buffer_size"`
}

// CommandsConfig contains the TCP command channel settings.
type CommandsConfig struct {
	// Port is the TCP port every device listens on for commands.
	// Default: 5005
	Port int `yaml:"port"`

	// ConnectTimeout bounds the dial.
	// Default: 200ms
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// ReplyTimeout bounds the wait for the device reply.
	// Default: 200ms
	ReplyTimeout time.Duration `yaml:"reply_timeout"`

	// BufferSize is the maximum reply read in one call.
	// Default: 1024
	BufferSize int `yaml:"buffer_size"`
}

// ControlConfig contains the reconciliation and liveness timer settings.
type ControlConfig struct {
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	SweepInterval     time.Duration `yaml:"sweep_interval"`

	// StaleThreshold is the age (in sweep ticks) at which lock intent is released.
	// Default: 30
	StaleThreshold int `yaml:"stale_threshold"`
}

// DevicesConfig points at the optional static device list.
type DevicesConfig struct {
	// StaticFile is a line-oriented "address=name" file loaded once at startup.
	StaticFile string `yaml:"static_file"`
}

// DatabaseConfig contains SQLite settings for the command audit log.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings for the operator API.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT settings. An empty secret leaves the API unauthenticated.
type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// minJWTSecretLength applies only when a secret is configured.
const minJWTSecretLength = 32

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: FLEETLOCK_SECTION_KEY
// For example: FLEETLOCK_DATABASE_PATH, FLEETLOCK_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with the protocol defaults devices expect.
func Default() *Config {
	return &Config{
		Discovery: DiscoveryConfig{
			ListenAddress: "0.0.0.0",
			Port:          37020,
			PollInterval:  time.Second,
			PollWait:      time.Millisecond,
			MaxPerPoll:    64,
			BufferSize:    1024,
		},
		Commands: CommandsConfig{
			Port:           5005,
			ConnectTimeout: 200 * time.Millisecond,
			ReplyTimeout:   200 * time.Millisecond,
			BufferSize:     1024,
		},
		Control: ControlConfig{
			ReconcileInterval: 3 * time.Second,
			SweepInterval:     time.Second,
			StaleThreshold:    30,
		},
		Database: DatabaseConfig{
			Enabled:     true,
			Path:        "./data/fleetlock.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "fleetlock-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			Org:           "fleetlock",
			Bucket:        "commands",
			BatchSize:     100,
			FlushInterval: 10,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{Issuer: "fleetlock"},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FLEETLOCK_DEVICES_FILE"); v != "" {
		cfg.Devices.StaticFile = v
	}

	if v := os.Getenv("FLEETLOCK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("FLEETLOCK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("FLEETLOCK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("FLEETLOCK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("FLEETLOCK_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	if v := os.Getenv("FLEETLOCK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("FLEETLOCK_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if !validPort(c.Discovery.Port) {
		errs = append(errs, "discovery.port must be between 1 and 65535")
	}
	if c.Discovery.PollInterval <= 0 {
		errs = append(errs, "discovery.poll_interval must be positive")
	}
	if c.Discovery.PollWait <= 0 {
		errs = append(errs, "discovery.poll_wait must be positive")
	}
	if c.Discovery.BufferSize <= 0 {
		errs = append(errs, "discovery.buffer_size must be positive")
	}

	if !validPort(c.Commands.Port) {
		errs = append(errs, "commands.port must be between 1 and 65535")
	}
	if c.Commands.ConnectTimeout <= 0 {
		errs = append(errs, "commands.connect_timeout must be positive")
	}
	if c.Commands.ReplyTimeout <= 0 {
		errs = append(errs, "commands.reply_timeout must be positive")
	}
	if c.Commands.BufferSize <= 0 {
		errs = append(errs, "commands.buffer_size must be positive")
	}

	if c.Control.ReconcileInterval <= 0 {
		errs = append(errs, "control.reconcile_interval must be positive")
	}
	if c.Control.SweepInterval <= 0 {
		errs = append(errs, "control.sweep_interval must be positive")
	}
	if c.Control.StaleThreshold < 1 {
		errs = append(errs, "control.stale_threshold must be at least 1")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if !validPort(c.API.Port) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if s := c.Security.JWT.Secret; s != "" && len(s) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters when set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func validPort(p int) bool {
	return p >= 1 && p <= 65535
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
