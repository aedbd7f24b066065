// Package config loads the owlink daemon configuration from YAML.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/owl-uav/owlink/fleet"
	"github.com/owl-uav/owlink/transport/serial"
)

// Duration wraps time.Duration so YAML values can be written as "500ms"
// or "2s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config is the top-level daemon configuration.
type Config struct {
	Serial SerialConfig `yaml:"serial"`
	Fleet  FleetConfig  `yaml:"fleet"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	Log    LogConfig    `yaml:"log"`
}

// SerialConfig configures the shared serial line.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// FleetConfig configures the link manager.
type FleetConfig struct {
	HeartbeatInterval Duration `yaml:"heartbeat_interval"`
	QueueSize         int      `yaml:"queue_size"`
}

// MQTTConfig configures the optional telemetry publisher.
type MQTTConfig struct {
	Enabled         bool     `yaml:"enabled"`
	Broker          string   `yaml:"broker"`
	Username        string   `yaml:"username"`
	Password        string   `yaml:"password"`
	UseTLS          bool     `yaml:"use_tls"`
	TopicPrefix     string   `yaml:"topic_prefix"`
	FleetID         string   `yaml:"fleet_id"`
	PublishInterval Duration `yaml:"publish_interval"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Serial: SerialConfig{
			BaudRate: serial.DefaultBaudRate,
		},
		Fleet: FleetConfig{
			HeartbeatInterval: Duration(fleet.DefaultHeartbeatInterval),
			QueueSize:         fleet.DefaultQueueSize,
		},
		MQTT: MQTTConfig{
			FleetID: "default",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML configuration file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// SlogLevel maps the configured level name onto a slog level.
func (c Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
