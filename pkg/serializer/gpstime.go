package serializer

import (
	"fmt"
	"strconv"
	"strings"

	"avaneesh/satstate-go/pkg/bits"
	"avaneesh/satstate-go/pkg/types"
)

// GPS time layout: set flag, week number, time of week (ms), then the
// nanosecond residual offset by gpsNSOffset.
const (
	gpsWNBits   = 16
	gpsTOWBits  = 32
	gpsNSBits   = 20
	gpsNSOffset = 500_000

	// GPSTimeBits is the encoded width of a GPS timestamp
	GPSTimeBits = 1 + gpsWNBits + gpsTOWBits + gpsNSBits
)

// GPSTime encodes a types.GPSTime exactly. NS is clamped to ±500000,
// the residual range reported by the receiver.
type GPSTime struct{}

// NewGPSTime creates a GPS timestamp serializer
func NewGPSTime() GPSTime {
	return GPSTime{}
}

func (GPSTime) Bitsize() int { return GPSTimeBits }

func (GPSTime) Put(dst *bits.Buffer, off int, v types.GPSTime) {
	if !v.Set {
		dst.SetUint(off, GPSTimeBits-64, 0)
		dst.SetUint(off+GPSTimeBits-64, 64, 0)
		return
	}
	ns := min(max(v.NS, -gpsNSOffset), gpsNSOffset)
	dst.Set(off, true)
	off++
	dst.SetUint(off, gpsWNBits, uint64(v.WN))
	off += gpsWNBits
	dst.SetUint(off, gpsTOWBits, uint64(v.TOW))
	off += gpsTOWBits
	dst.SetUint(off, gpsNSBits, uint64(ns+gpsNSOffset))
}

func (GPSTime) Get(src *bits.Buffer, off int) types.GPSTime {
	if !src.Get(off) {
		// Touch the remaining bits so a short buffer panics here too.
		src.Uint(off+1, GPSTimeBits-1-gpsNSBits)
		src.Uint(off+GPSTimeBits-gpsNSBits, gpsNSBits)
		return types.GPSTime{}
	}
	off++
	wn := src.Uint(off, gpsWNBits)
	off += gpsWNBits
	tow := src.Uint(off, gpsTOWBits)
	off += gpsTOWBits
	ns := int32(src.Uint(off, gpsNSBits)) - gpsNSOffset
	return types.NewGPSTime(uint16(wn), uint32(tow), ns)
}

func (GPSTime) Format(v types.GPSTime) string {
	return v.String()
}

func (GPSTime) Parse(text string) (types.GPSTime, error) {
	text = strings.TrimSpace(text)
	if text == "unset" {
		return types.GPSTime{}, nil
	}
	parts := strings.Split(text, ":")
	if len(parts) != 3 {
		return types.GPSTime{}, invalidValue(text, fmt.Errorf("want wn:tow:ns"))
	}
	wn, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return types.GPSTime{}, invalidValue(text, err)
	}
	tow, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return types.GPSTime{}, invalidValue(text, err)
	}
	ns, err := strconv.ParseInt(parts[2], 10, 32)
	if err != nil {
		return types.GPSTime{}, invalidValue(text, err)
	}
	return types.NewGPSTime(uint16(wn), uint32(tow), int32(ns)), nil
}
