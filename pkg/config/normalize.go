package config

import (
	"strings"

	"avaneesh/satstate-go/pkg/bits"
)

// DefaultLogFileSizeMB applies when a log file is set without a size
const DefaultLogFileSizeMB = 10

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Link.CapacityBits == 0 {
		cfg.Link.CapacityBits = bits.DefaultFrameBits
	}

	for i := range cfg.Downlink.Flows {
		f := &cfg.Downlink.Flows[i]
		if f.Active == nil {
			active := true
			f.Active = &active
		}
	}

	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.File != "" && cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = DefaultLogFileSizeMB
	}

	// Transport timeouts stay zero here; the channels apply their own defaults.
}
