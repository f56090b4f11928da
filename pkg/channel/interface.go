// Package channel moves link envelopes between a spacecraft and its ground
// station. A PhysicalChannel hands over whole envelopes; Channel parses them,
// counts what arrives and dispatches frames to a handler.
package channel

import (
	"context"
	"sync"
	"sync/atomic"
)

// ConnectionStateListener is told when the far end becomes reachable or is lost
type ConnectionStateListener interface {
	OnConnectionEstablished()
	OnConnectionLost()
}

// PhysicalChannel carries one link envelope per Read and per Write.
//
// Read blocks until an envelope arrives, ctx ends or the channel is closed.
// Write must be safe for concurrent use. Close unblocks pending calls.
type PhysicalChannel interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, envelope []byte) error
	Close() error
	Connected() bool
	Statistics() TransportStats
	SetConnectionStateListener(listener ConnectionStateListener)
}

// TransportStats are envelope and byte counters of a physical channel
type TransportStats struct {
	EnvelopesSent     uint64
	EnvelopesReceived uint64
	BytesSent         uint64
	BytesReceived     uint64
	Dropped           uint64 // received envelopes that failed framing
	WriteErrors       uint64
	ReadErrors        uint64
	Connects          uint64
	Disconnects       uint64
}

type transportCounters struct {
	envelopesSent     atomic.Uint64
	envelopesReceived atomic.Uint64
	bytesSent         atomic.Uint64
	bytesReceived     atomic.Uint64
	dropped           atomic.Uint64
	writeErrors       atomic.Uint64
	readErrors        atomic.Uint64
	connects          atomic.Uint64
	disconnects       atomic.Uint64
}

func (c *transportCounters) sent(n int) {
	c.envelopesSent.Add(1)
	c.bytesSent.Add(uint64(n))
}

func (c *transportCounters) received(n int) {
	c.envelopesReceived.Add(1)
	c.bytesReceived.Add(uint64(n))
}

func (c *transportCounters) snapshot() TransportStats {
	return TransportStats{
		EnvelopesSent:     c.envelopesSent.Load(),
		EnvelopesReceived: c.envelopesReceived.Load(),
		BytesSent:         c.bytesSent.Load(),
		BytesReceived:     c.bytesReceived.Load(),
		Dropped:           c.dropped.Load(),
		WriteErrors:       c.writeErrors.Load(),
		ReadErrors:        c.readErrors.Load(),
		Connects:          c.connects.Load(),
		Disconnects:       c.disconnects.Load(),
	}
}

// listenerSlot holds the connection state listener of a transport
type listenerSlot struct {
	mu       sync.RWMutex
	listener ConnectionStateListener
}

func (s *listenerSlot) set(l ConnectionStateListener) {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
}

func (s *listenerSlot) get() ConnectionStateListener {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listener
}

func (s *listenerSlot) established() {
	if l := s.get(); l != nil {
		l.OnConnectionEstablished()
	}
}

func (s *listenerSlot) lost() {
	if l := s.get(); l != nil {
		l.OnConnectionLost()
	}
}
