package channel

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"math/big"
	"net"
	"sync"
	"time"

	"github.com/quic-go/quic-go"

	"avaneesh/satstate-go/pkg/link"
)

// ALPN is the application protocol negotiated on QUIC links
const ALPN = "satstate-quic"

const (
	quicDialTimeout = 10 * time.Second
	quicKeepAlive   = 5 * time.Second
	quicIdleTimeout = 30 * time.Second
	quicInboxSize   = 64
)

// QUICChannel carries each envelope in its own unidirectional stream, or as
// one unreliable datagram when Datagrams is set. Envelopes are queued for
// Read in the order they complete.
type QUICChannel struct {
	address        string
	isServer       bool
	datagrams      bool
	listener       *quic.Listener
	tlsConfig      *tls.Config
	quicConfig     *quic.Config
	reconnectDelay time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration

	mu   sync.Mutex
	conn *quic.Conn

	inbox chan []byte

	counters  transportCounters
	listeners listenerSlot

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// QUICChannelConfig configures a QUIC channel
type QUICChannelConfig struct {
	Address        string // "host:port"
	IsServer       bool
	Datagrams      bool          // send envelopes as datagrams; lost ones are not resent
	ReconnectDelay time.Duration // wait before a client redials
	ReadTimeout    time.Duration // limit on receiving one envelope stream
	WriteTimeout   time.Duration
	TLSConfig      *tls.Config // nil generates a self-signed certificate
}

// NewQUICChannel listens or dials. A client returns an error when the first
// dial fails.
func NewQUICChannel(config QUICChannelConfig) (*QUICChannel, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("channel: quic address is required")
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

	tlsConfig := config.TLSConfig
	if tlsConfig == nil {
		var err error
		if tlsConfig, err = selfSignedTLS(); err != nil {
			return nil, fmt.Errorf("channel: quic certificate: %w", err)
		}
	} else if len(tlsConfig.NextProtos) == 0 {
		tlsConfig = tlsConfig.Clone()
		tlsConfig.NextProtos = []string{ALPN}
	}

	ctx, cancel := context.WithCancel(context.Background())
	qc := &QUICChannel{
		address:   config.Address,
		isServer:  config.IsServer,
		datagrams: config.Datagrams,
		tlsConfig: tlsConfig,
		quicConfig: &quic.Config{
			EnableDatagrams: config.Datagrams,
			KeepAlivePeriod: quicKeepAlive,
			MaxIdleTimeout:  quicIdleTimeout,
		},
		reconnectDelay: config.ReconnectDelay,
		readTimeout:    config.ReadTimeout,
		writeTimeout:   config.WriteTimeout,
		inbox:          make(chan []byte, quicInboxSize),
		ctx:            ctx,
		cancel:         cancel,
	}

	if config.IsServer {
		l, err := quic.ListenAddr(config.Address, qc.tlsConfig, qc.quicConfig)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("channel: listen on %s: %w", config.Address, err)
		}
		qc.listener = l
		qc.wg.Add(1)
		go qc.acceptLoop()
		return qc, nil
	}

	conn, err := qc.dial()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("channel: connect to %s: %w", config.Address, err)
	}
	qc.attach(conn)
	qc.wg.Add(1)
	go qc.clientLoop(conn)
	return qc, nil
}

// selfSignedTLS makes a throwaway P-256 certificate. Peers skip verification.
func selfSignedTLS() (*tls.Config, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	tmpl := x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates:       []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key}},
		NextProtos:         []string{ALPN},
		InsecureSkipVerify: true,
	}, nil
}

func (qc *QUICChannel) dial() (*quic.Conn, error) {
	ctx, cancel := context.WithTimeout(qc.ctx, quicDialTimeout)
	defer cancel()
	return quic.DialAddr(ctx, qc.address, qc.tlsConfig, qc.quicConfig)
}

func (qc *QUICChannel) acceptLoop() {
	defer qc.wg.Done()
	for {
		conn, err := qc.listener.Accept(qc.ctx)
		if err != nil {
			if qc.ctx.Err() != nil {
				return
			}
			continue
		}
		if !qc.attach(conn) {
			return
		}
		qc.wg.Add(1)
		go func() {
			defer qc.wg.Done()
			qc.receive(conn)
			qc.detach(conn)
		}()
	}
}

func (qc *QUICChannel) clientLoop(conn *quic.Conn) {
	defer qc.wg.Done()
	for {
		qc.receive(conn)
		qc.detach(conn)
		for {
			select {
			case <-qc.ctx.Done():
				return
			case <-time.After(qc.reconnectDelay):
			}
			c, err := qc.dial()
			if err != nil {
				continue
			}
			if !qc.attach(c) {
				return
			}
			conn = c
			break
		}
	}
}

// attach makes conn current, closing any previous connection. It reports
// false once the channel is closed.
func (qc *QUICChannel) attach(conn *quic.Conn) bool {
	qc.mu.Lock()
	if qc.ctx.Err() != nil {
		qc.mu.Unlock()
		conn.CloseWithError(0, "channel closed")
		return false
	}
	old := qc.conn
	qc.conn = conn
	qc.counters.connects.Add(1)
	qc.mu.Unlock()

	if old != nil {
		old.CloseWithError(0, "replaced")
		qc.counters.disconnects.Add(1)
	}
	qc.listeners.established()
	return true
}

// detach forgets conn if it is still current
func (qc *QUICChannel) detach(conn *quic.Conn) {
	qc.mu.Lock()
	if qc.conn != conn {
		qc.mu.Unlock()
		return
	}
	qc.conn = nil
	qc.mu.Unlock()

	conn.CloseWithError(0, "link lost")
	qc.counters.disconnects.Add(1)
	qc.listeners.lost()
}

// receive queues envelopes from conn until it ends
func (qc *QUICChannel) receive(conn *quic.Conn) {
	if qc.datagrams {
		for {
			data, err := conn.ReceiveDatagram(qc.ctx)
			if err != nil {
				return
			}
			qc.deliver(data)
		}
	}
	for {
		s, err := conn.AcceptUniStream(qc.ctx)
		if err != nil {
			return
		}
		s.SetReadDeadline(time.Now().Add(qc.readTimeout))
		data, err := io.ReadAll(io.LimitReader(s, link.MaxFrameSize+1))
		if err != nil {
			s.CancelRead(0)
			qc.counters.readErrors.Add(1)
			continue
		}
		qc.deliver(data)
	}
}

func (qc *QUICChannel) deliver(data []byte) {
	if err := checkEnvelope(data); err != nil {
		qc.counters.dropped.Add(1)
		return
	}
	qc.counters.received(len(data))
	select {
	case qc.inbox <- data:
	case <-qc.ctx.Done():
	}
}

// Read returns the next queued envelope
func (qc *QUICChannel) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-qc.inbox:
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-qc.ctx.Done():
		return nil, ErrChannelClosed
	}
}

// Write sends one envelope on a fresh stream, or as a datagram
func (qc *QUICChannel) Write(ctx context.Context, envelope []byte) error {
	if qc.ctx.Err() != nil {
		return ErrChannelClosed
	}
	qc.mu.Lock()
	conn := qc.conn
	qc.mu.Unlock()
	if conn == nil {
		qc.counters.writeErrors.Add(1)
		return ErrNoConnection
	}

	var err error
	if qc.datagrams {
		err = conn.SendDatagram(envelope)
	} else {
		err = qc.writeStream(ctx, conn, envelope)
	}
	if err != nil {
		qc.counters.writeErrors.Add(1)
		if conn.Context().Err() != nil {
			qc.detach(conn)
		}
		return err
	}
	qc.counters.sent(len(envelope))
	return nil
}

func (qc *QUICChannel) writeStream(ctx context.Context, conn *quic.Conn, envelope []byte) error {
	ctx, cancel := context.WithTimeout(ctx, qc.writeTimeout)
	defer cancel()

	s, err := conn.OpenUniStreamSync(ctx)
	if err != nil {
		return err
	}
	if d, ok := ctx.Deadline(); ok {
		s.SetWriteDeadline(d)
	}
	if _, err := s.Write(envelope); err != nil {
		s.CancelWrite(0)
		return err
	}
	return s.Close()
}

// Close stops accepting or redialing and closes the connection
func (qc *QUICChannel) Close() error {
	qc.closeOnce.Do(func() {
		qc.mu.Lock()
		qc.cancel()
		conn := qc.conn
		qc.conn = nil
		qc.mu.Unlock()

		if qc.listener != nil {
			qc.listener.Close()
		}
		if conn != nil {
			conn.CloseWithError(0, "channel closed")
			qc.counters.disconnects.Add(1)
		}
		qc.wg.Wait()
	})
	return nil
}

// Connected reports whether a live connection is attached
func (qc *QUICChannel) Connected() bool {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	return qc.conn != nil && qc.conn.Context().Err() == nil
}

// Statistics returns transport counters
func (qc *QUICChannel) Statistics() TransportStats {
	return qc.counters.snapshot()
}

// SetConnectionStateListener sets the listener told about connection changes
func (qc *QUICChannel) SetConnectionStateListener(listener ConnectionStateListener) {
	qc.listeners.set(listener)
}

// ListenAddr returns the listening address in server mode
func (qc *QUICChannel) ListenAddr() net.Addr {
	if qc.listener == nil {
		return nil
	}
	return qc.listener.Addr()
}
