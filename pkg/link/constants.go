package link

import "errors"

// Sync bytes opening every link frame (CCSDS attached sync marker prefix)
const (
	SyncByte1 uint8 = 0xEB
	SyncByte2 uint8 = 0x90
)

// Frame sizes
const (
	HeaderSize   = 7   // sync(2) + kind + seq + len + header CRC(2)
	CRCSize      = 2   // CRC trailing a non-empty payload
	MinFrameSize = 7   // Header only, empty payload
	MaxDataSize  = 255 // Largest payload the length byte can describe
	MaxFrameSize = HeaderSize + MaxDataSize + CRCSize
)

// Kind says which way a frame travels
type Kind uint8

const (
	KindDownlink Kind = 0x01 // spacecraft to ground
	KindUplink   Kind = 0x02 // ground to spacecraft
)

// String returns string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindDownlink:
		return "Downlink"
	case KindUplink:
		return "Uplink"
	default:
		return "Unknown"
	}
}

// Errors
var (
	ErrInvalidSyncBytes = errors.New("link: invalid sync bytes")
	ErrInvalidKind      = errors.New("link: invalid frame kind")
	ErrInvalidCRC       = errors.New("link: invalid CRC")
	ErrFrameTooShort    = errors.New("link: frame too short")
	ErrFrameTooLong     = errors.New("link: frame too long")
)
