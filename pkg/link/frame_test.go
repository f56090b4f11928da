package link

import (
	"bytes"
	"errors"
	"testing"
)

// TestFrame_RoundTrip tests serialize then parse for both kinds
func TestFrame_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		seq     uint8
		payload []byte
	}{
		{"Downlink frame", KindDownlink, 1, bytes.Repeat([]byte{0x5A}, 70)},
		{"Uplink frame", KindUplink, 255, []byte{0x01, 0x02, 0x03}},
		{"Empty payload", KindUplink, 0, nil},
		{"Max payload", KindDownlink, 9, make([]byte, MaxDataSize)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire, err := NewFrame(tt.kind, tt.seq, tt.payload).Serialize()
			if err != nil {
				t.Fatalf("Serialize() error = %v", err)
			}
			wantLen := HeaderSize
			if len(tt.payload) > 0 {
				wantLen += len(tt.payload) + CRCSize
			}
			if len(wire) != wantLen {
				t.Errorf("wire length = %d, want %d", len(wire), wantLen)
			}
			if size, err := FrameSize(wire[:HeaderSize]); err != nil || size != wantLen {
				t.Errorf("FrameSize() = %d, %v, want %d", size, err, wantLen)
			}

			// trailing bytes belong to the next frame
			frame, n, err := Parse(append(wire, SyncByte1))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if n != len(wire) {
				t.Errorf("Parse() consumed %d, want %d", n, len(wire))
			}
			if frame.Kind != tt.kind || frame.Seq != tt.seq {
				t.Errorf("Parse() = %v", frame)
			}
			if !bytes.Equal(frame.Payload, tt.payload) {
				t.Errorf("Payload = % X, want % X", frame.Payload, tt.payload)
			}
		})
	}
}

// TestFrame_SerializeErrors tests invalid frames
func TestFrame_SerializeErrors(t *testing.T) {
	if _, err := NewFrame(KindDownlink, 0, make([]byte, MaxDataSize+1)).Serialize(); !errors.Is(err, ErrFrameTooLong) {
		t.Errorf("Serialize() error = %v, want ErrFrameTooLong", err)
	}
	if _, err := NewFrame(Kind(7), 0, nil).Serialize(); !errors.Is(err, ErrInvalidKind) {
		t.Errorf("Serialize() error = %v, want ErrInvalidKind", err)
	}
}

// TestParse_Errors tests rejection of damaged input
func TestParse_Errors(t *testing.T) {
	wire, err := NewFrame(KindDownlink, 3, []byte{0x10, 0x20, 0x30}).Serialize()
	if err != nil {
		t.Fatal(err)
	}
	mutate := func(i int, v byte) []byte {
		out := append([]byte(nil), wire...)
		out[i] = v
		return out
	}
	badKind := AppendCRC([]byte{SyncByte1, SyncByte2, 0x09, 0x00, 0x00})

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"Too short", wire[:4], ErrFrameTooShort},
		{"Bad sync", mutate(0, 0x05), ErrInvalidSyncBytes},
		{"Bad header CRC", mutate(3, 0x04), ErrInvalidCRC},
		{"Bad payload CRC", mutate(HeaderSize, 0x11), ErrInvalidCRC},
		{"Truncated payload", wire[:len(wire)-1], ErrFrameTooShort},
		{"Unknown kind", badKind, ErrInvalidKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Parse(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("Parse() error = %v, want %v", err, tt.want)
			}
		})
	}
}

// TestFrame_Clone tests deep copying
func TestFrame_Clone(t *testing.T) {
	f := NewFrame(KindUplink, 4, []byte{1, 2})
	c := f.Clone()
	c.Payload[0] = 9
	if f.Payload[0] != 1 {
		t.Errorf("Clone() shares payload")
	}
	if s := f.String(); s != "Frame{Kind=Uplink, Seq=4, PayloadLen=2}" {
		t.Errorf("String() = %q", s)
	}
}
