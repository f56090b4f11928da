package satlink

import (
	"fmt"

	"avaneesh/satstate-go/pkg/channel"
	"avaneesh/satstate-go/pkg/config"
)

// NewPhysicalChannel opens the transport described by cfg
func NewPhysicalChannel(cfg config.TransportConfig) (channel.PhysicalChannel, error) {
	var (
		physical channel.PhysicalChannel
		err      error
	)

	switch cfg.Kind {
	case "tcp":
		var tc *channel.TCPChannel
		tc, err = channel.NewTCPChannel(channel.TCPChannelConfig{
			Address:        cfg.Address,
			IsServer:       cfg.Server,
			ReconnectDelay: cfg.ReconnectDelay,
			ReadTimeout:    cfg.ReadTimeout,
			WriteTimeout:   cfg.WriteTimeout,
		})
		physical = tc
	case "udp":
		var uc *channel.UDPChannel
		uc, err = channel.NewUDPChannel(channel.UDPChannelConfig{
			Address:      cfg.Address,
			IsServer:     cfg.Server,
			WriteTimeout: cfg.WriteTimeout,
		})
		physical = uc
	case "quic":
		var qc *channel.QUICChannel
		qc, err = channel.NewQUICChannel(channel.QUICChannelConfig{
			Address:        cfg.Address,
			IsServer:       cfg.Server,
			Datagrams:      cfg.Datagrams,
			ReconnectDelay: cfg.ReconnectDelay,
			ReadTimeout:    cfg.ReadTimeout,
			WriteTimeout:   cfg.WriteTimeout,
		})
		physical = qc
	case "":
		return nil, fmt.Errorf("satlink: no transport configured")
	default:
		return nil, fmt.Errorf("satlink: unknown transport kind %q", cfg.Kind)
	}

	if err != nil {
		return nil, fmt.Errorf("satlink: open %s transport: %w", cfg.Kind, err)
	}
	return physical, nil
}
