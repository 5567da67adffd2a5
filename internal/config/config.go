// Package config loads the mixer CLI configuration file.
package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/mixer/internal/publish"
)

// Version is the only supported config file version.
const Version = 1

// Config is the contents of mixer.yaml.
type Config struct {
	Version   int     `yaml:"version"`
	Database  string  `yaml:"database"`
	FrameRate float64 `yaml:"frame_rate"`
	MaxSteps  int     `yaml:"max_steps"`
	LogLevel  string  `yaml:"log_level"`
	MQTT      MQTT    `yaml:"mqtt"`
}

// MQTT configures event publishing. Publishing is off unless Enabled.
type MQTT struct {
	Enabled       bool   `yaml:"enabled"`
	Broker        string `yaml:"broker"`
	ClientID      string `yaml:"client_id"`
	Username      string `yaml:"username"`
	TopicPrefix   string `yaml:"topic_prefix"`
	QoS           byte   `yaml:"qos"`
	QueueSize     int    `yaml:"queue_size"`
	Timeout       string `yaml:"timeout"`
	IncludeFrames bool   `yaml:"include_frames"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Version:  Version,
		Database: "mixer.db",
		LogLevel: "info",
	}
}

// Load reads and validates a config file. Missing keys keep their defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodes config YAML. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	cfg.Version = 0

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Version != Version {
		return nil, fmt.Errorf("unsupported mixer.yaml version: %d", cfg.Version)
	}
	if cfg.FrameRate < 0 {
		return nil, fmt.Errorf("frame_rate must not be negative: %v", cfg.FrameRate)
	}
	if cfg.MaxSteps < 0 {
		return nil, fmt.Errorf("max_steps must not be negative: %d", cfg.MaxSteps)
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	if cfg.MQTT.QoS > 2 {
		return nil, fmt.Errorf("mqtt.qos must be 0, 1 or 2: %d", cfg.MQTT.QoS)
	}
	if cfg.MQTT.Timeout != "" {
		if _, err := time.ParseDuration(cfg.MQTT.Timeout); err != nil {
			return nil, fmt.Errorf("mqtt.timeout: %w", err)
		}
	}
	return cfg, nil
}

// ParseLevel maps a log_level value to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log_level %q", s)
}

// Publisher converts the mqtt section to publisher settings. The broker
// password is read from MIXER_MQTT_PASSWORD or the file named by
// MIXER_MQTT_PASSWORD_FILE.
func (m MQTT) Publisher() (publish.Config, error) {
	password, err := ResolveSecret("MIXER_MQTT_PASSWORD")
	if err != nil {
		return publish.Config{}, err
	}
	var timeout time.Duration
	if m.Timeout != "" {
		timeout, err = time.ParseDuration(m.Timeout)
		if err != nil {
			return publish.Config{}, fmt.Errorf("mqtt.timeout: %w", err)
		}
	}
	broker := m.Broker
	if env := os.Getenv("MQTT_URL"); broker == "" && env != "" {
		broker = env
	}
	return publish.Config{
		BrokerURL:     broker,
		ClientID:      m.ClientID,
		Username:      m.Username,
		Password:      password,
		TopicPrefix:   m.TopicPrefix,
		QoS:           m.QoS,
		QueueSize:     m.QueueSize,
		Timeout:       timeout,
		IncludeFrames: m.IncludeFrames,
	}, nil
}

// ResolveSecret reads a secret using the *_FILE convention: when
// envName+"_FILE" is set the secret is read from that path, otherwise the
// value of envName is used.
func ResolveSecret(envName string) (string, error) {
	fileEnv := envName + "_FILE"
	if path := os.Getenv(fileEnv); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read secret from %s=%s: %w", fileEnv, path, err)
		}
		return strings.TrimSpace(string(content)), nil
	}
	return os.Getenv(envName), nil
}
