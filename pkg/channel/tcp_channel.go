package channel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

const (
	tcpDialTimeout  = 10 * time.Second
	acceptRetryWait = 50 * time.Millisecond
)

// TCPChannel carries envelopes back to back on one TCP stream. A server
// keeps its most recent peer; a client redials once the stream drops.
type TCPChannel struct {
	address        string
	isServer       bool
	listener       net.Listener
	reconnectDelay time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration

	mu     sync.Mutex
	conn   net.Conn
	ready  chan struct{} // closed while conn is set
	redial chan struct{}

	writeMu sync.Mutex

	counters  transportCounters
	listeners listenerSlot

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// TCPChannelConfig configures a TCP channel
type TCPChannelConfig struct {
	Address        string        // "host:port"
	IsServer       bool          // listen instead of dial
	ReconnectDelay time.Duration // wait before a client redials
	ReadTimeout    time.Duration // limit on receiving the rest of a started envelope
	WriteTimeout   time.Duration
}

// NewTCPChannel listens or dials. A client returns an error when the first
// dial fails.
func NewTCPChannel(config TCPChannelConfig) (*TCPChannel, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("channel: tcp address is required")
	}
	if config.ReconnectDelay == 0 {
		config.ReconnectDelay = 2 * time.Second
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 10 * time.Second
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	tc := &TCPChannel{
		address:        config.Address,
		isServer:       config.IsServer,
		reconnectDelay: config.ReconnectDelay,
		readTimeout:    config.ReadTimeout,
		writeTimeout:   config.WriteTimeout,
		ready:          make(chan struct{}),
		redial:         make(chan struct{}, 1),
		ctx:            ctx,
		cancel:         cancel,
	}

	if config.IsServer {
		l, err := net.Listen("tcp", config.Address)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("channel: listen on %s: %w", config.Address, err)
		}
		tc.listener = l
		tc.wg.Add(1)
		go tc.acceptLoop()
		return tc, nil
	}

	conn, err := tc.dial()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("channel: connect to %s: %w", config.Address, err)
	}
	tc.attach(conn)
	tc.wg.Add(1)
	go tc.redialLoop()
	return tc, nil
}

func (tc *TCPChannel) dial() (net.Conn, error) {
	d := net.Dialer{Timeout: tcpDialTimeout}
	return d.DialContext(tc.ctx, "tcp", tc.address)
}

func (tc *TCPChannel) acceptLoop() {
	defer tc.wg.Done()
	for {
		conn, err := tc.listener.Accept()
		if err != nil {
			if tc.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			select {
			case <-tc.ctx.Done():
				return
			case <-time.After(acceptRetryWait):
			}
			continue
		}
		tc.attach(conn)
	}
}

func (tc *TCPChannel) redialLoop() {
	defer tc.wg.Done()
	for {
		select {
		case <-tc.ctx.Done():
			return
		case <-tc.redial:
		}
		for {
			select {
			case <-tc.ctx.Done():
				return
			case <-time.After(tc.reconnectDelay):
			}
			if conn, err := tc.dial(); err == nil {
				tc.attach(conn)
				break
			}
		}
	}
}

// attach makes conn the current stream, replacing any previous one
func (tc *TCPChannel) attach(conn net.Conn) {
	tc.mu.Lock()
	if tc.ctx.Err() != nil {
		tc.mu.Unlock()
		conn.Close()
		return
	}
	old := tc.conn
	tc.conn = conn
	tc.counters.connects.Add(1)
	if old == nil {
		close(tc.ready)
	}
	tc.mu.Unlock()

	if old != nil {
		old.Close()
		tc.counters.disconnects.Add(1)
	}
	tc.listeners.established()
}

// drop closes conn if it is still the current stream
func (tc *TCPChannel) drop(conn net.Conn) {
	tc.mu.Lock()
	if conn == nil || tc.conn != conn {
		tc.mu.Unlock()
		return
	}
	tc.conn = nil
	tc.ready = make(chan struct{})
	tc.mu.Unlock()

	conn.Close()
	tc.counters.disconnects.Add(1)
	tc.listeners.lost()
	if !tc.isServer {
		select {
		case tc.redial <- struct{}{}:
		default:
		}
	}
}

// wait returns the current stream, blocking until there is one
func (tc *TCPChannel) wait(ctx context.Context) (net.Conn, error) {
	for {
		tc.mu.Lock()
		conn, ready := tc.conn, tc.ready
		tc.mu.Unlock()
		if conn != nil {
			return conn, nil
		}
		select {
		case <-ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-tc.ctx.Done():
			return nil, ErrChannelClosed
		}
	}
}

// Read returns the next envelope. A read error part way through an envelope
// leaves the stream out of step, so the stream is dropped.
func (tc *TCPChannel) Read(ctx context.Context) ([]byte, error) {
	for {
		conn, err := tc.wait(ctx)
		if err != nil {
			return nil, err
		}

		conn.SetReadDeadline(time.Time{})
		stop := context.AfterFunc(ctx, func() { conn.SetReadDeadline(time.Now()) })
		began := false
		env, err := readEnvelope(conn, func() {
			began = true
			conn.SetReadDeadline(time.Now().Add(tc.readTimeout))
		})
		stop()

		switch {
		case err == nil:
			tc.counters.received(len(env))
			return env, nil
		case tc.ctx.Err() != nil:
			return nil, ErrChannelClosed
		case !began && ctx.Err() != nil:
			return nil, ctx.Err()
		}
		tc.counters.readErrors.Add(1)
		tc.drop(conn)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
}

// Write sends one envelope on the current stream
func (tc *TCPChannel) Write(ctx context.Context, envelope []byte) error {
	if tc.ctx.Err() != nil {
		return ErrChannelClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tc.mu.Lock()
	conn := tc.conn
	tc.mu.Unlock()
	if conn == nil {
		tc.counters.writeErrors.Add(1)
		return ErrNoConnection
	}

	tc.writeMu.Lock()
	defer tc.writeMu.Unlock()

	deadline := time.Now().Add(tc.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetWriteDeadline(deadline)
	if _, err := conn.Write(envelope); err != nil {
		tc.counters.writeErrors.Add(1)
		tc.drop(conn)
		return err
	}
	tc.counters.sent(len(envelope))
	return nil
}

// Close stops accepting or redialing and closes the stream
func (tc *TCPChannel) Close() error {
	tc.closeOnce.Do(func() {
		tc.mu.Lock()
		tc.cancel()
		conn := tc.conn
		tc.conn = nil
		tc.mu.Unlock()

		if tc.listener != nil {
			tc.listener.Close()
		}
		if conn != nil {
			conn.Close()
			tc.counters.disconnects.Add(1)
		}
		tc.wg.Wait()
	})
	return nil
}

// Connected reports whether a stream is up
func (tc *TCPChannel) Connected() bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.conn != nil
}

// Statistics returns transport counters
func (tc *TCPChannel) Statistics() TransportStats {
	return tc.counters.snapshot()
}

// SetConnectionStateListener sets the listener told about stream changes
func (tc *TCPChannel) SetConnectionStateListener(listener ConnectionStateListener) {
	tc.listeners.set(listener)
}

// ListenAddr returns the listening address in server mode
func (tc *TCPChannel) ListenAddr() net.Addr {
	if tc.listener == nil {
		return nil
	}
	return tc.listener.Addr()
}

// RemoteAddr returns the peer of the current stream
func (tc *TCPChannel) RemoteAddr() net.Addr {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.conn == nil {
		return nil
	}
	return tc.conn.RemoteAddr()
}
