package satlink

import (
	"sync/atomic"

	"avaneesh/satstate-go/pkg/channel"
	"avaneesh/satstate-go/pkg/config"
	"avaneesh/satstate-go/pkg/downlink"
	"avaneesh/satstate-go/pkg/internal/logger"
	"avaneesh/satstate-go/pkg/uplink"
)

// Options configures either end of a link. Both ends must agree on flows,
// schema and frame layout.
type Options struct {
	ID       string
	Flows    []downlink.FlowData
	Schema   uplink.Schema
	Downlink downlink.Options
	Uplink   uplink.Options
	Logger   Logger
}

// OptionsFromConfig builds Options from a loaded configuration
func OptionsFromConfig(id string, cfg *config.Config, log Logger) Options {
	return Options{
		ID:       id,
		Flows:    cfg.FlowTable(),
		Schema:   cfg.UplinkSchema(),
		Downlink: cfg.DownlinkOptions(log),
		Uplink:   cfg.UplinkOptions(log),
		Logger:   log,
	}
}

func (o *Options) normalize(defaultID string) {
	if o.ID == "" {
		o.ID = defaultID
	}
	if o.Logger == nil {
		o.Logger = logger.NewNoOpLogger()
	}
	if o.Downlink.Logger == nil {
		o.Downlink.Logger = o.Logger
	}
	if o.Uplink.Logger == nil {
		o.Uplink.Logger = o.Logger
	}
}

// linkState tracks the physical connection for one end
type linkState struct {
	id     string
	logger logger.Logger
	up     atomic.Bool
}

// newLinkState starts from the transport's current state; clients connect
// before a listener can be attached.
func newLinkState(id string, log logger.Logger, physical channel.PhysicalChannel) *linkState {
	l := &linkState{id: id, logger: log}
	l.up.Store(physical.Connected())
	return l
}

func (l *linkState) OnConnectionEstablished() {
	l.up.Store(true)
	l.logger.Info("%s: link up", l.id)
}

func (l *linkState) OnConnectionLost() {
	l.up.Store(false)
	l.logger.Info("%s: link down", l.id)
}
