// Package link wraps one downlink or uplink frame per message for transport
// over byte streams:
//
//	EB 90 | kind | seq | len | CRC(header) | payload[len] | CRC(payload)
//
// The payload CRC is omitted when len is zero.
package link

import (
	"bytes"
	"fmt"
)

// Frame represents a link layer frame
type Frame struct {
	Kind    Kind   // Direction of travel
	Seq     uint8  // Sender's message counter, wraps at 256
	Payload []byte // Packed downlink or uplink frame bytes
}

// NewFrame creates a new link frame
func NewFrame(kind Kind, seq uint8, payload []byte) *Frame {
	return &Frame{Kind: kind, Seq: seq, Payload: payload}
}

// Serialize converts frame to wire format with CRCs
func (f *Frame) Serialize() ([]byte, error) {
	dataLen := len(f.Payload)
	if dataLen > MaxDataSize {
		return nil, ErrFrameTooLong
	}
	if f.Kind != KindDownlink && f.Kind != KindUplink {
		return nil, ErrInvalidKind
	}

	header := []byte{SyncByte1, SyncByte2, byte(f.Kind), f.Seq, byte(dataLen)}
	result := make([]byte, 0, HeaderSize+dataLen+CRCSize)
	result = append(result, AppendCRC(header)...)
	if dataLen == 0 {
		return result, nil
	}
	return append(result, AppendCRC(f.Payload)...), nil
}

// FrameSize returns the full size of the frame whose header starts data.
// data must hold at least HeaderSize bytes.
func FrameSize(data []byte) (int, error) {
	if len(data) < HeaderSize {
		return 0, ErrFrameTooShort
	}
	if data[0] != SyncByte1 || data[1] != SyncByte2 {
		return 0, ErrInvalidSyncBytes
	}
	if !VerifyCRC(data[:HeaderSize]) {
		return 0, ErrInvalidCRC
	}
	dataLen := int(data[4])
	if dataLen == 0 {
		return HeaderSize, nil
	}
	return HeaderSize + dataLen + CRCSize, nil
}

// Parse parses wire format data into a Frame, returning the bytes consumed
func Parse(data []byte) (*Frame, int, error) {
	size, err := FrameSize(data)
	if err != nil {
		return nil, 0, err
	}
	if len(data) < size {
		return nil, 0, ErrFrameTooShort
	}

	kind := Kind(data[2])
	if kind != KindDownlink && kind != KindUplink {
		return nil, 0, ErrInvalidKind
	}
	frame := &Frame{Kind: kind, Seq: data[3]}

	if size > HeaderSize {
		body := data[HeaderSize:size]
		if !VerifyCRC(body) {
			return nil, 0, ErrInvalidCRC
		}
		frame.Payload = make([]byte, len(body)-CRCSize)
		copy(frame.Payload, body)
	}
	return frame, size, nil
}

// String returns a string representation of the frame
func (f *Frame) String() string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("Frame{Kind=%s, ", f.Kind))
	buf.WriteString(fmt.Sprintf("Seq=%d, ", f.Seq))
	buf.WriteString(fmt.Sprintf("PayloadLen=%d}", len(f.Payload)))
	return buf.String()
}

// Clone creates a deep copy of the frame
func (f *Frame) Clone() *Frame {
	payload := make([]byte, len(f.Payload))
	copy(payload, f.Payload)
	return &Frame{Kind: f.Kind, Seq: f.Seq, Payload: payload}
}
