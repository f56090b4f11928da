package types

import (
	"fmt"
	"time"
)

// NanosecondsInWeek is the length of one GPS week
const NanosecondsInWeek uint64 = 7 * 24 * 60 * 60 * 1_000_000_000

// GPSEpoch is the start of GPS week 0
var GPSEpoch = time.Date(1980, time.January, 6, 0, 0, 0, 0, time.UTC)

// GPSTime is an absolute timestamp as reported by the GPS receiver:
// week number, time of week in milliseconds and a signed nanosecond residual.
// The zero value is an unset time.
type GPSTime struct {
	WN  uint16
	TOW uint32
	NS  int32
	Set bool
}

// NewGPSTime creates a set timestamp
func NewGPSTime(wn uint16, tow uint32, ns int32) GPSTime {
	return GPSTime{WN: wn, TOW: tow, NS: ns, Set: true}
}

// GPSTimeFromNanos converts nanoseconds since the GPS epoch. TOW is rounded
// to the nearest millisecond so NS stays in [-500000, 500000).
func GPSTimeFromNanos(t uint64) GPSTime {
	const msInWeek = NanosecondsInWeek / 1_000_000
	wn := t / NanosecondsInWeek
	rem := t - wn*NanosecondsInWeek
	tow := (rem + 500_000) / 1_000_000
	ns := int64(rem) - int64(tow)*1_000_000
	if tow == msInWeek {
		wn++
		tow = 0
	}
	return GPSTime{
		WN:  uint16(wn),
		TOW: uint32(tow),
		NS:  int32(ns),
		Set: true,
	}
}

// FromTime converts a Go time.Time. Leap seconds are not applied.
func FromTime(t time.Time) GPSTime {
	d := t.Sub(GPSEpoch)
	if d < 0 {
		return GPSTime{}
	}
	return GPSTimeFromNanos(uint64(d))
}

// Nanos returns nanoseconds since the GPS epoch
func (g GPSTime) Nanos() uint64 {
	return uint64(g.WN)*NanosecondsInWeek + uint64(g.TOW)*1_000_000 + uint64(int64(g.NS))
}

// ToTime converts to a Go time.Time
func (g GPSTime) ToTime() time.Time {
	return GPSEpoch.Add(time.Duration(g.Nanos()))
}

// Equal compares two timestamps; unset timestamps never compare equal
func (g GPSTime) Equal(other GPSTime) bool {
	if !g.Set || !other.Set {
		return false
	}
	return g.Nanos() == other.Nanos()
}

// Before reports whether g is strictly earlier than other
func (g GPSTime) Before(other GPSTime) bool {
	if !g.Set || !other.Set {
		return false
	}
	return g.Nanos() < other.Nanos()
}

// String returns "wn:tow:ns", or "unset"
func (g GPSTime) String() string {
	if !g.Set {
		return "unset"
	}
	return fmt.Sprintf("%d:%d:%d", g.WN, g.TOW, g.NS)
}
