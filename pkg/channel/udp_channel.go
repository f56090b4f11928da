package channel

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"avaneesh/satstate-go/pkg/link"
)

// UDPChannel sends each envelope as one datagram. There is no connection: a
// client counts as connected from creation, a server once it has heard a
// peer. A server answers the peer it heard from last.
type UDPChannel struct {
	conn         *net.UDPConn
	isServer     bool
	writeTimeout time.Duration

	peerMu sync.RWMutex
	peer   *net.UDPAddr

	counters  transportCounters
	listeners listenerSlot
	closed    atomic.Bool
}

// UDPChannelConfig configures a UDP channel
type UDPChannelConfig struct {
	Address      string // local address for a server, remote for a client
	IsServer     bool
	WriteTimeout time.Duration
}

// NewUDPChannel binds the socket
func NewUDPChannel(config UDPChannelConfig) (*UDPChannel, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("channel: udp address is required")
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = 10 * time.Second
	}
	addr, err := net.ResolveUDPAddr("udp", config.Address)
	if err != nil {
		return nil, fmt.Errorf("channel: resolve %s: %w", config.Address, err)
	}

	var conn *net.UDPConn
	if config.IsServer {
		conn, err = net.ListenUDP("udp", addr)
	} else {
		conn, err = net.DialUDP("udp", nil, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("channel: udp %s: %w", config.Address, err)
	}

	uc := &UDPChannel{
		conn:         conn,
		isServer:     config.IsServer,
		writeTimeout: config.WriteTimeout,
	}
	if !config.IsServer {
		uc.counters.connects.Add(1)
	}
	return uc, nil
}

// Read returns the next well-formed datagram. Datagrams that are not exactly
// one envelope are counted as dropped and skipped.
func (uc *UDPChannel) Read(ctx context.Context) ([]byte, error) {
	uc.conn.SetReadDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() { uc.conn.SetReadDeadline(time.Now()) })
	defer stop()

	buf := make([]byte, link.MaxFrameSize+1)
	for {
		n, from, err := uc.conn.ReadFromUDP(buf)
		if err != nil {
			if uc.closed.Load() {
				return nil, ErrChannelClosed
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			uc.counters.readErrors.Add(1)
			return nil, err
		}
		if err := checkEnvelope(buf[:n]); err != nil {
			uc.counters.dropped.Add(1)
			continue
		}
		if uc.isServer {
			uc.notePeer(from)
		}
		uc.counters.received(n)
		return append([]byte(nil), buf[:n]...), nil
	}
}

func (uc *UDPChannel) notePeer(addr *net.UDPAddr) {
	uc.peerMu.Lock()
	first := uc.peer == nil
	uc.peer = addr
	uc.peerMu.Unlock()
	if first {
		uc.counters.connects.Add(1)
		uc.listeners.established()
	}
}

// Write sends envelope as one datagram
func (uc *UDPChannel) Write(ctx context.Context, envelope []byte) error {
	if uc.closed.Load() {
		return ErrChannelClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline := time.Now().Add(uc.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	uc.conn.SetWriteDeadline(deadline)

	var err error
	if uc.isServer {
		uc.peerMu.RLock()
		peer := uc.peer
		uc.peerMu.RUnlock()
		if peer == nil {
			uc.counters.writeErrors.Add(1)
			return fmt.Errorf("%w: no datagram received yet", ErrNoConnection)
		}
		_, err = uc.conn.WriteToUDP(envelope, peer)
	} else {
		_, err = uc.conn.Write(envelope)
	}
	if err != nil {
		uc.counters.writeErrors.Add(1)
		return err
	}
	uc.counters.sent(len(envelope))
	return nil
}

// Close closes the socket
func (uc *UDPChannel) Close() error {
	connected := uc.Connected()
	if !uc.closed.CompareAndSwap(false, true) {
		return nil
	}
	if connected {
		uc.counters.disconnects.Add(1)
	}
	return uc.conn.Close()
}

// Connected reports whether there is a peer to send to
func (uc *UDPChannel) Connected() bool {
	if uc.closed.Load() {
		return false
	}
	if !uc.isServer {
		return true
	}
	uc.peerMu.RLock()
	defer uc.peerMu.RUnlock()
	return uc.peer != nil
}

// Statistics returns transport counters
func (uc *UDPChannel) Statistics() TransportStats {
	return uc.counters.snapshot()
}

// SetConnectionStateListener sets the listener. A server reports a
// connection when its first peer is heard.
func (uc *UDPChannel) SetConnectionStateListener(listener ConnectionStateListener) {
	uc.listeners.set(listener)
}

// LocalAddr returns the bound address
func (uc *UDPChannel) LocalAddr() net.Addr {
	return uc.conn.LocalAddr()
}
