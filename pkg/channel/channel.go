package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"avaneesh/satstate-go/pkg/internal/logger"
	"avaneesh/satstate-go/pkg/link"
)

// readRetryWait spaces out reads after a transport error
const readRetryWait = 100 * time.Millisecond

// maxSeqGap is the largest forward jump counted as missed frames; larger
// jumps are taken as a sender restart or reordering.
const maxSeqGap = 127

// FrameHandler receives every valid link frame read from a channel.
// It runs on the read loop goroutine.
type FrameHandler func(frame *link.Frame)

// ChannelState reports whether a Channel is running
type ChannelState int

const (
	ChannelStateClosed ChannelState = iota
	ChannelStateOpen
)

func (s ChannelState) String() string {
	if s == ChannelStateOpen {
		return "Open"
	}
	return "Closed"
}

// Channel parses envelopes from a physical channel into link frames and
// tracks each direction's sequence counter for gaps.
type Channel struct {
	id       string
	physical PhysicalChannel
	handler  FrameHandler
	stats    *Statistics
	logger   logger.Logger

	mu     sync.Mutex
	state  ChannelState
	opened bool
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	lastSeq map[link.Kind]uint8 // read loop only
}

// New creates a channel. handler may be nil for send-only use.
func New(id string, physical PhysicalChannel, handler FrameHandler, log logger.Logger) *Channel {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if handler == nil {
		handler = func(*link.Frame) {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Channel{
		id:       id,
		physical: physical,
		handler:  handler,
		stats:    NewStatistics(),
		logger:   log,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		lastSeq:  make(map[link.Kind]uint8, 2),
	}
}

// ID returns the channel ID
func (c *Channel) ID() string {
	return c.id
}

// Open starts the read loop. A closed channel cannot be reopened.
func (c *Channel) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == ChannelStateOpen {
		return ErrChannelOpen
	}
	if c.ctx.Err() != nil {
		return ErrChannelClosed
	}
	c.state = ChannelStateOpen
	c.opened = true
	go c.readLoop()
	c.logger.Info("Channel %s opened", c.id)
	return nil
}

// Close stops the read loop and closes the physical channel
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		return nil
	}
	c.state = ChannelStateClosed
	c.cancel()
	opened := c.opened
	c.mu.Unlock()

	err := c.physical.Close()
	if err != nil {
		c.logger.Error("Channel %s: closing transport: %v", c.id, err)
	}
	if opened {
		<-c.done
	}
	c.logger.Info("Channel %s closed", c.id)
	return err
}

func (c *Channel) readLoop() {
	defer close(c.done)
	for {
		data, err := c.physical.Read(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil || errors.Is(err, ErrChannelClosed) {
				return
			}
			c.logger.Warn("Channel %s: read: %v", c.id, err)
			select {
			case <-c.ctx.Done():
				return
			case <-time.After(readRetryWait):
			}
			continue
		}
		c.receive(data)
	}
}

func (c *Channel) receive(data []byte) {
	frame, _, err := link.Parse(data)
	if err != nil {
		c.stats.badFrames.Add(1)
		if errors.Is(err, link.ErrInvalidCRC) {
			c.stats.crcErrors.Add(1)
		}
		c.logger.Error("Channel %s: bad envelope: %v", c.id, err)
		return
	}

	if prev, ok := c.lastSeq[frame.Kind]; ok {
		if gap := frame.Seq - prev - 1; gap != 0 && gap <= maxSeqGap {
			c.stats.missedFrames.Add(uint64(gap))
			c.logger.Warn("Channel %s: %d %s frames missed before seq %d", c.id, gap, frame.Kind, frame.Seq)
		}
	}
	c.lastSeq[frame.Kind] = frame.Seq

	c.stats.received(frame.Kind)
	c.logger.Debug("Channel %s received %s", c.id, frame)
	c.handler(frame)
}

// Send serializes a link frame and writes it
func (c *Channel) Send(ctx context.Context, frame *link.Frame) error {
	data, err := frame.Serialize()
	if err != nil {
		return fmt.Errorf("channel %s: %w", c.id, err)
	}
	return c.Write(ctx, data)
}

// Write hands one raw envelope to the physical channel
func (c *Channel) Write(ctx context.Context, data []byte) error {
	if c.State() != ChannelStateOpen {
		return ErrChannelClosed
	}
	if err := c.physical.Write(ctx, data); err != nil {
		c.logger.Error("Channel %s: write: %v", c.id, err)
		return err
	}
	c.stats.framesTx.Add(1)
	return nil
}

// GetStatistics returns link frame counters
func (c *Channel) GetStatistics() *Statistics {
	return c.stats
}

// GetPhysicalStatistics returns transport counters
func (c *Channel) GetPhysicalStatistics() TransportStats {
	return c.physical.Statistics()
}

// SetConnectionStateListener forwards to the physical channel
func (c *Channel) SetConnectionStateListener(listener ConnectionStateListener) {
	c.physical.SetConnectionStateListener(listener)
}

// Connected reports whether the physical channel has a peer
func (c *Channel) Connected() bool {
	return c.physical.Connected()
}

// State returns the current channel state
func (c *Channel) State() ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) String() string {
	return fmt.Sprintf("Channel{ID=%s, State=%s}", c.id, c.State())
}
