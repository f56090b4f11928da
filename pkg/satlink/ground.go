package satlink

import (
	"context"
	"fmt"
	"sync"

	"avaneesh/satstate-go/pkg/channel"
	"avaneesh/satstate-go/pkg/downlink"
	"avaneesh/satstate-go/pkg/internal/logger"
	"avaneesh/satstate-go/pkg/link"
	"avaneesh/satstate-go/pkg/registry"
	"avaneesh/satstate-go/pkg/uplink"
)

// GroundCallbacks receives decoded downlinks. Called on the read loop.
type GroundCallbacks interface {
	OnDownlink(seq uint8, report *downlink.Report)
	OnDownlinkError(seq uint8, err error)
}

// Ground decodes downlink frames into its mirror registry and sends uplinks.
type Ground struct {
	id        string
	registry  *registry.Registry
	parser    *downlink.Parser
	producer  *uplink.Producer
	channel   *channel.Channel
	callbacks GroundCallbacks
	link      *linkState
	stats     Statistics
	logger    logger.Logger

	sendMu sync.Mutex
	seq    uint8
}

// NewGround builds the ground end over physical. reg must hold fields of the
// same names and serializers as the spacecraft. callbacks may be nil.
func NewGround(reg *registry.Registry, physical channel.PhysicalChannel, opts Options, callbacks GroundCallbacks) (*Ground, error) {
	opts.normalize("ground")

	parser, err := downlink.NewParser(reg, opts.Flows, opts.Downlink)
	if err != nil {
		return nil, fmt.Errorf("satlink: %w", err)
	}
	producer, err := uplink.NewProducer(reg, opts.Schema, opts.Uplink)
	if err != nil {
		return nil, fmt.Errorf("satlink: %w", err)
	}
	if producer.Capacity() > link.MaxDataSize*8 {
		return nil, fmt.Errorf("satlink: frame capacity exceeds %d bits", link.MaxDataSize*8)
	}

	g := &Ground{
		id:        opts.ID,
		registry:  reg,
		parser:    parser,
		producer:  producer,
		callbacks: callbacks,
		link:      newLinkState(opts.ID, opts.Logger, physical),
		logger:    opts.Logger,
	}
	g.channel = channel.New(opts.ID, physical, g.handleFrame, opts.Logger)
	g.channel.SetConnectionStateListener(g.link)
	return g, nil
}

// Start opens the channel and begins decoding downlinks
func (g *Ground) Start() error {
	if err := g.channel.Open(); err != nil {
		return fmt.Errorf("satlink: %w", err)
	}
	g.logger.Info("Ground %s: started", g.id)
	return nil
}

// Stop closes the channel. A stopped Ground cannot be restarted.
func (g *Ground) Stop() error {
	err := g.channel.Close()
	g.logger.Info("Ground %s: stopped", g.id)
	return err
}

// SendUplink packs updates into one frame and sends it. Nothing is sent when
// the batch does not fit.
func (g *Ground) SendUplink(ctx context.Context, updates []uplink.Update) error {
	fr, err := g.producer.Pack(updates)
	if err != nil {
		return fmt.Errorf("satlink: %w", err)
	}

	g.sendMu.Lock()
	defer g.sendMu.Unlock()

	frame := link.NewFrame(link.KindUplink, g.seq, fr.Bytes())
	if err := g.channel.Send(ctx, frame); err != nil {
		return fmt.Errorf("satlink: uplink %d: %w", frame.Seq, err)
	}
	g.seq++
	g.stats.framesSent.Add(1)
	g.logger.Debug("Ground %s: uplink %d, %d updates, %d bits", g.id, frame.Seq, len(updates), fr.Len())
	g.mirrorFlowCommands(updates)
	return nil
}

// mirrorFlowCommands copies sent flow commands into the ground registry so
// the parser's flow table follows the spacecraft's
func (g *Ground) mirrorFlowCommands(updates []uplink.Update) {
	names := g.producer.Schema().Fields
	for _, u := range updates {
		name := names[u.Index]
		if !downlink.IsCommandField(name) {
			continue
		}
		if fld, ok := g.registry.FindWritableField(name); ok {
			fld.Deserialize(u.Bits, 0)
		}
	}
}

// SendCommands encodes operator commands and sends them as one uplink
func (g *Ground) SendCommands(ctx context.Context, cmds []uplink.Command) error {
	updates, err := g.producer.Commands(cmds)
	if err != nil {
		return fmt.Errorf("satlink: %w", err)
	}
	return g.SendUplink(ctx, updates)
}

func (g *Ground) handleFrame(frame *link.Frame) {
	if frame.Kind != link.KindDownlink {
		g.stats.unexpectedFrames.Add(1)
		g.logger.Warn("Ground %s: ignoring %s", g.id, frame)
		return
	}
	g.stats.framesReceived.Add(1)

	report, err := g.parser.Parse(frame.Payload)
	if err != nil {
		g.stats.decodeErrors.Add(1)
		g.logger.Error("Ground %s: downlink %d: %v", g.id, frame.Seq, err)
		if g.callbacks != nil {
			g.callbacks.OnDownlinkError(frame.Seq, err)
		}
		return
	}
	if g.callbacks != nil {
		g.callbacks.OnDownlink(frame.Seq, report)
	}
}

// Registry returns the ground mirror registry
func (g *Ground) Registry() *registry.Registry {
	return g.registry
}

// Parser returns the downlink parser, for mirroring flow commands
func (g *Ground) Parser() *downlink.Parser {
	return g.parser
}

// Uplink returns the uplink producer
func (g *Ground) Uplink() *uplink.Producer {
	return g.producer
}

// LinkUp reports whether the physical channel is connected
func (g *Ground) LinkUp() bool {
	return g.link.up.Load()
}

// Statistics returns link counters
func (g *Ground) Statistics() StatsSnapshot {
	return g.stats.Snapshot()
}

// ChannelStatistics returns link frame counters of the channel
func (g *Ground) ChannelStatistics() *channel.Statistics {
	return g.channel.GetStatistics()
}

// TransportStatistics returns envelope and connection counters of the transport
func (g *Ground) TransportStatistics() channel.TransportStats {
	return g.channel.GetPhysicalStatistics()
}
