// Package config loads the flow and schema tables and the link settings
// shared by the spacecraft and ground ends.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"avaneesh/satstate-go/pkg/downlink"
	"avaneesh/satstate-go/pkg/internal/logger"
	"avaneesh/satstate-go/pkg/uplink"
)

type Config struct {
	Link      LinkConfig      `yaml:"link"`
	Downlink  DownlinkConfig  `yaml:"downlink"`
	Uplink    UplinkConfig    `yaml:"uplink"`
	Transport TransportConfig `yaml:"transport"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ---- LINK ----

type LinkConfig struct {
	CapacityBits int    `yaml:"capacity_bits"`
	CycleField   string `yaml:"cycle_field"`
	TagFlows     bool   `yaml:"tag_flows"`
}

// ---- DOWNLINK ----

type DownlinkConfig struct {
	Flows []FlowConfig `yaml:"flows"`
}

type FlowConfig struct {
	ID       int      `yaml:"id"`
	Priority int      `yaml:"priority"`
	Active   *bool    `yaml:"active"` // missing => true
	Fields   []string `yaml:"fields"`
}

// ---- UPLINK ----

type UplinkConfig struct {
	Version int      `yaml:"version"`
	Fields  []string `yaml:"fields"` // wire index = position + 1
}

// ---- TRANSPORT ----

type TransportConfig struct {
	Kind           string        `yaml:"kind"` // tcp | udp | quic
	Address        string        `yaml:"address"`
	Server         bool          `yaml:"server"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	Datagrams      bool          `yaml:"datagrams"` // quic only: one unreliable datagram per envelope
}

// ---- LOGGING ----

type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"` // empty => stdout only
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Load reads, validates and normalizes the YAML file at path
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads one YAML document, then validates and normalizes it
func Decode(r io.Reader) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty document")
		}
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	Normalize(&cfg)
	return &cfg, nil
}

// FlowTable converts the downlink section
func (c *Config) FlowTable() []downlink.FlowData {
	flows := make([]downlink.FlowData, len(c.Downlink.Flows))
	for i, f := range c.Downlink.Flows {
		active := true
		if f.Active != nil {
			active = *f.Active
		}
		flows[i] = downlink.FlowData{
			ID:       f.ID,
			Priority: f.Priority,
			Active:   active,
			Fields:   append([]string(nil), f.Fields...),
		}
	}
	return flows
}

// UplinkSchema converts the uplink section
func (c *Config) UplinkSchema() uplink.Schema {
	return uplink.Schema{
		Version: c.Uplink.Version,
		Fields:  append([]string(nil), c.Uplink.Fields...),
	}
}

// DownlinkOptions returns producer/parser options for the link section
func (c *Config) DownlinkOptions(log logger.Logger) downlink.Options {
	return downlink.Options{
		CapacityBits: c.Link.CapacityBits,
		CycleField:   c.Link.CycleField,
		TagFlows:     c.Link.TagFlows,
		Logger:       log,
	}
}

// UplinkOptions returns producer/consumer options for the link section
func (c *Config) UplinkOptions(log logger.Logger) uplink.Options {
	return uplink.Options{CapacityBits: c.Link.CapacityBits, Logger: log}
}

// Logger builds the configured logger. The closer is nil when logging to
// stdout only.
func (l LoggingConfig) Logger() (*logger.DefaultLogger, io.Closer, error) {
	level, err := logger.ParseLevel(l.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	if l.File == "" {
		return logger.NewDefaultLogger(level), nil, nil
	}
	return logger.NewRotatingLogger(logger.FileConfig{
		Path:       l.File,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		MaxAgeDays: l.MaxAgeDays,
		Compress:   l.Compress,
	}, level)
}
