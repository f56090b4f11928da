package channel

import (
	"context"
	"sync"
)

// PipeChannel is one end of an in-memory PhysicalChannel pair. Each Write
// is delivered to the peer as one Read.
type PipeChannel struct {
	inbox chan []byte
	peer  *PipeChannel

	counters  transportCounters
	listeners listenerSlot

	done      chan struct{}
	closeOnce sync.Once
}

// NewPipe creates a connected pair of in-memory channels
func NewPipe() (*PipeChannel, *PipeChannel) {
	a := newPipeEnd()
	b := newPipeEnd()
	a.peer, b.peer = b, a
	return a, b
}

func newPipeEnd() *PipeChannel {
	p := &PipeChannel{
		inbox: make(chan []byte, 64),
		done:  make(chan struct{}),
	}
	p.counters.connects.Add(1)
	return p
}

// Read returns the next envelope written by the peer
func (p *PipeChannel) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-p.inbox:
		p.counters.received(len(data))
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		return nil, ErrChannelClosed
	}
}

// Write hands a copy of envelope to the peer
func (p *PipeChannel) Write(ctx context.Context, envelope []byte) error {
	select {
	case <-p.done:
		return ErrChannelClosed
	case <-p.peer.done:
		p.counters.writeErrors.Add(1)
		return ErrNoConnection
	default:
	}

	msg := append([]byte(nil), envelope...)
	select {
	case p.peer.inbox <- msg:
		p.counters.sent(len(envelope))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrChannelClosed
	case <-p.peer.done:
		p.counters.writeErrors.Add(1)
		return ErrNoConnection
	}
}

// Close closes this end. The peer sees the connection lost.
func (p *PipeChannel) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
		p.counters.disconnects.Add(1)
		p.peer.listeners.lost()
	})
	return nil
}

// Connected reports whether both ends are open
func (p *PipeChannel) Connected() bool {
	select {
	case <-p.done:
		return false
	case <-p.peer.done:
		return false
	default:
		return true
	}
}

// Statistics returns transport counters
func (p *PipeChannel) Statistics() TransportStats {
	return p.counters.snapshot()
}

// SetConnectionStateListener sets the listener. A pipe is connected from
// creation, so the listener is told so at once.
func (p *PipeChannel) SetConnectionStateListener(listener ConnectionStateListener) {
	p.listeners.set(listener)
	if listener != nil && p.Connected() {
		listener.OnConnectionEstablished()
	}
}
