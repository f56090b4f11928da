package satlink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"avaneesh/satstate-go/pkg/channel"
	"avaneesh/satstate-go/pkg/downlink"
	"avaneesh/satstate-go/pkg/internal/logger"
	"avaneesh/satstate-go/pkg/link"
	"avaneesh/satstate-go/pkg/registry"
	"avaneesh/satstate-go/pkg/uplink"
)

// SpacecraftCallbacks receives uplink results. Called on the read loop.
type SpacecraftCallbacks interface {
	OnUplink(seq uint8, result *uplink.Result)
}

// Spacecraft packs downlink frames from its registry and applies received
// uplink frames to it.
type Spacecraft struct {
	id        string
	registry  *registry.Registry
	producer  *downlink.Producer
	consumer  *uplink.Consumer
	channel   *channel.Channel
	callbacks SpacecraftCallbacks
	link      *linkState
	stats     Statistics
	logger    logger.Logger

	sendMu sync.Mutex
	seq    uint8
}

// NewSpacecraft builds the spacecraft end over physical. callbacks may be nil.
func NewSpacecraft(reg *registry.Registry, physical channel.PhysicalChannel, opts Options, callbacks SpacecraftCallbacks) (*Spacecraft, error) {
	opts.normalize("spacecraft")

	producer, err := downlink.NewProducer(reg, opts.Flows, opts.Downlink)
	if err != nil {
		return nil, fmt.Errorf("satlink: %w", err)
	}
	consumer, err := uplink.NewConsumer(reg, opts.Schema, opts.Uplink)
	if err != nil {
		return nil, fmt.Errorf("satlink: %w", err)
	}
	if producer.Capacity() > link.MaxDataSize*8 || consumer.Capacity() > link.MaxDataSize*8 {
		return nil, fmt.Errorf("satlink: frame capacity exceeds %d bits", link.MaxDataSize*8)
	}

	s := &Spacecraft{
		id:        opts.ID,
		registry:  reg,
		producer:  producer,
		consumer:  consumer,
		callbacks: callbacks,
		link:      newLinkState(opts.ID, opts.Logger, physical),
		logger:    opts.Logger,
	}
	s.channel = channel.New(opts.ID, physical, s.handleFrame, opts.Logger)
	s.channel.SetConnectionStateListener(s.link)
	return s, nil
}

// Start opens the channel and begins applying uplinks
func (s *Spacecraft) Start() error {
	if err := s.channel.Open(); err != nil {
		return fmt.Errorf("satlink: %w", err)
	}
	s.logger.Info("Spacecraft %s: started", s.id)
	return nil
}

// Stop closes the channel. A stopped Spacecraft cannot be restarted.
func (s *Spacecraft) Stop() error {
	err := s.channel.Close()
	s.logger.Info("Spacecraft %s: stopped", s.id)
	return err
}

// SendDownlink packs one frame from the current field values and sends it.
// The packet is returned even when sending fails.
func (s *Spacecraft) SendDownlink(ctx context.Context) (*downlink.Packet, error) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	pkt := s.producer.Produce()
	if pkt.Truncated {
		s.stats.truncatedFrames.Add(1)
	}

	frame := link.NewFrame(link.KindDownlink, s.seq, pkt.Frame.Bytes())
	if err := s.channel.Send(ctx, frame); err != nil {
		return pkt, fmt.Errorf("satlink: downlink %d: %w", frame.Seq, err)
	}
	s.seq++
	s.stats.framesSent.Add(1)
	s.logger.Debug("Spacecraft %s: downlink %d, %d fields, %d/%d bits",
		s.id, frame.Seq, len(pkt.Fields), pkt.Frame.Len(), pkt.Frame.Capacity())
	return pkt, nil
}

// Run sends a downlink every period until ctx is done. Send failures are
// logged and do not stop the loop.
func (s *Spacecraft) Run(ctx context.Context, period time.Duration) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.SendDownlink(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("Spacecraft %s: %v", s.id, err)
			}
		}
	}
}

func (s *Spacecraft) handleFrame(frame *link.Frame) {
	if frame.Kind != link.KindUplink {
		s.stats.unexpectedFrames.Add(1)
		s.logger.Warn("Spacecraft %s: ignoring %s", s.id, frame)
		return
	}
	s.stats.framesReceived.Add(1)

	result, err := s.consumer.Apply(frame.Payload)
	if err != nil {
		s.stats.decodeErrors.Add(1)
		s.logger.Error("Spacecraft %s: uplink %d: %v", s.id, frame.Seq, err)
		return
	}
	s.stats.updatesApplied.Add(uint64(len(result.Applied)))
	s.stats.updatesRejected.Add(uint64(len(result.Failures)))

	if s.callbacks != nil {
		s.callbacks.OnUplink(frame.Seq, result)
	}
}

// Registry returns the spacecraft registry
func (s *Spacecraft) Registry() *registry.Registry {
	return s.registry
}

// Producer returns the downlink producer, for flow commands
func (s *Spacecraft) Producer() *downlink.Producer {
	return s.producer
}

// LinkUp reports whether the physical channel is connected
func (s *Spacecraft) LinkUp() bool {
	return s.link.up.Load()
}

// Statistics returns link counters
func (s *Spacecraft) Statistics() StatsSnapshot {
	return s.stats.Snapshot()
}

// ChannelStatistics returns link frame counters of the channel
func (s *Spacecraft) ChannelStatistics() *channel.Statistics {
	return s.channel.GetStatistics()
}

// TransportStatistics returns envelope and connection counters of the transport
func (s *Spacecraft) TransportStatistics() channel.TransportStats {
	return s.channel.GetPhysicalStatistics()
}
