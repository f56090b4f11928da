package channel

import (
	"errors"
	"fmt"
	"io"

	"avaneesh/satstate-go/pkg/link"
)

var (
	ErrChannelClosed = errors.New("channel: closed")
	ErrChannelOpen   = errors.New("channel: already open")
	ErrNoConnection  = errors.New("channel: no connection")
	ErrEnvelopeSize  = errors.New("channel: envelope size does not match its header")
)

// readEnvelope reads exactly one envelope from a byte stream. started, if
// not nil, runs once the first byte is in; the idle wait before it is
// unbounded.
func readEnvelope(r io.Reader, started func()) ([]byte, error) {
	header := make([]byte, link.HeaderSize)
	if _, err := io.ReadFull(r, header[:1]); err != nil {
		return nil, err
	}
	if started != nil {
		started()
	}
	if _, err := io.ReadFull(r, header[1:]); err != nil {
		return nil, err
	}
	size, err := link.FrameSize(header)
	if err != nil {
		return nil, err
	}

	env := make([]byte, size)
	copy(env, header)
	if _, err := io.ReadFull(r, env[link.HeaderSize:]); err != nil {
		return nil, err
	}
	return env, nil
}

// checkEnvelope validates a message-framed envelope, one that arrived whole
// in a datagram or stream
func checkEnvelope(data []byte) error {
	size, err := link.FrameSize(data)
	if err != nil {
		return err
	}
	if size != len(data) {
		return fmt.Errorf("%w: %d bytes, header says %d", ErrEnvelopeSize, len(data), size)
	}
	return nil
}
