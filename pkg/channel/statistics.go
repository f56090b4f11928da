package channel

import (
	"sync/atomic"

	"avaneesh/satstate-go/pkg/link"
)

// Statistics counts link frames seen by a Channel
type Statistics struct {
	framesTx     atomic.Uint64
	downlinksRx  atomic.Uint64
	uplinksRx    atomic.Uint64
	badFrames    atomic.Uint64
	crcErrors    atomic.Uint64
	missedFrames atomic.Uint64
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	return &Statistics{}
}

func (s *Statistics) received(kind link.Kind) {
	if kind == link.KindUplink {
		s.uplinksRx.Add(1)
	} else {
		s.downlinksRx.Add(1)
	}
}

// GetLinkFramesTx returns frames written
func (s *Statistics) GetLinkFramesTx() uint64 { return s.framesTx.Load() }

// GetLinkFramesRx returns valid frames received of either kind
func (s *Statistics) GetLinkFramesRx() uint64 {
	return s.downlinksRx.Load() + s.uplinksRx.Load()
}

// GetDownlinksRx returns downlink frames received
func (s *Statistics) GetDownlinksRx() uint64 { return s.downlinksRx.Load() }

// GetUplinksRx returns uplink frames received
func (s *Statistics) GetUplinksRx() uint64 { return s.uplinksRx.Load() }

// GetBadLinkFrames returns envelopes that failed to parse, CRC errors included
func (s *Statistics) GetBadLinkFrames() uint64 { return s.badFrames.Load() }

// GetCRCErrors returns envelopes rejected by a CRC check
func (s *Statistics) GetCRCErrors() uint64 { return s.crcErrors.Load() }

// GetMissedFrames returns frames inferred lost from sequence gaps
func (s *Statistics) GetMissedFrames() uint64 { return s.missedFrames.Load() }

// Reset zeroes every counter
func (s *Statistics) Reset() {
	s.framesTx.Store(0)
	s.downlinksRx.Store(0)
	s.uplinksRx.Store(0)
	s.badFrames.Store(0)
	s.crcErrors.Store(0)
	s.missedFrames.Store(0)
}
