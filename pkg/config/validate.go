package config

import (
	"fmt"
	"strings"

	"avaneesh/satstate-go/pkg/downlink"
	"avaneesh/satstate-go/pkg/internal/logger"
	"avaneesh/satstate-go/pkg/link"
)

// MaxCapacityBits is the largest frame one link envelope can carry
const MaxCapacityBits = link.MaxDataSize * 8

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	// ------------------------------------------------------------
	// LINK
	// ------------------------------------------------------------

	if cfg.Link.CapacityBits < 0 || cfg.Link.CapacityBits > MaxCapacityBits {
		return fmt.Errorf(
			"link: capacity_bits %d outside 0..%d",
			cfg.Link.CapacityBits,
			MaxCapacityBits,
		)
	}

	// ------------------------------------------------------------
	// DOWNLINK FLOWS
	// ids are exactly 1..n so the tag width is fixed by the flow count
	// ------------------------------------------------------------

	flows := cfg.Downlink.Flows
	if len(flows) > downlink.MaxFlows {
		return fmt.Errorf("downlink: %d flows, at most %d allowed", len(flows), downlink.MaxFlows)
	}

	seen := make(map[int]bool, len(flows))
	for i, f := range flows {
		if f.ID < 1 || f.ID > len(flows) {
			return fmt.Errorf(
				"downlink: flow #%d: id %d outside 1..%d",
				i,
				f.ID,
				len(flows),
			)
		}
		if seen[f.ID] {
			return fmt.Errorf("downlink: duplicate flow id %d", f.ID)
		}
		seen[f.ID] = true

		if len(f.Fields) == 0 {
			return fmt.Errorf("downlink: flow %d has no fields", f.ID)
		}
		for _, name := range f.Fields {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("downlink: flow %d has an empty field name", f.ID)
			}
		}
	}

	// ------------------------------------------------------------
	// UPLINK SCHEMA
	// ------------------------------------------------------------

	names := make(map[string]int, len(cfg.Uplink.Fields))
	for i, name := range cfg.Uplink.Fields {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("uplink: field #%d has an empty name", i)
		}
		if prev, exists := names[name]; exists {
			return fmt.Errorf(
				"uplink: field %q listed at positions %d and %d",
				name,
				prev,
				i,
			)
		}
		names[name] = i
	}

	// ------------------------------------------------------------
	// TRANSPORT (optional)
	// ------------------------------------------------------------

	t := cfg.Transport
	switch t.Kind {
	case "":
	case "tcp", "udp", "quic":
		if t.Address == "" {
			return fmt.Errorf("transport: %s requires an address", t.Kind)
		}
	default:
		return fmt.Errorf("transport: unknown kind %q", t.Kind)
	}
	if t.ReadTimeout < 0 || t.WriteTimeout < 0 || t.ReconnectDelay < 0 {
		return fmt.Errorf("transport: negative duration")
	}
	if t.Datagrams && t.Kind != "quic" {
		return fmt.Errorf("transport: datagrams needs kind quic, not %q", t.Kind)
	}

	// ------------------------------------------------------------
	// LOGGING
	// ------------------------------------------------------------

	if _, err := logger.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if cfg.Logging.MaxSizeMB < 0 || cfg.Logging.MaxBackups < 0 || cfg.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("logging: negative rotation limit")
	}

	return nil
}
