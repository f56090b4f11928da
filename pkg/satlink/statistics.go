// Package satlink joins a registry, its downlink and uplink codecs and a
// channel into the two ends of a link: the Spacecraft and the Ground.
package satlink

import "sync/atomic"

// Statistics counts link traffic at one end
type Statistics struct {
	framesSent       atomic.Uint64
	framesReceived   atomic.Uint64
	unexpectedFrames atomic.Uint64
	decodeErrors     atomic.Uint64
	updatesApplied   atomic.Uint64
	updatesRejected  atomic.Uint64
	truncatedFrames  atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Statistics
type StatsSnapshot struct {
	FramesSent       uint64 // downlink frames for a Spacecraft, uplink frames for a Ground
	FramesReceived   uint64 // frames of the expected kind
	UnexpectedFrames uint64 // frames of the wrong kind
	DecodeErrors     uint64 // payloads that did not fit the frame capacity
	UpdatesApplied   uint64 // uplink tuples written to fields (Spacecraft)
	UpdatesRejected  uint64 // uplink tuples skipped (Spacecraft)
	TruncatedFrames  uint64 // downlink frames that dropped fields (Spacecraft)
}

// Snapshot returns the current counts
func (s *Statistics) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		FramesSent:       s.framesSent.Load(),
		FramesReceived:   s.framesReceived.Load(),
		UnexpectedFrames: s.unexpectedFrames.Load(),
		DecodeErrors:     s.decodeErrors.Load(),
		UpdatesApplied:   s.updatesApplied.Load(),
		UpdatesRejected:  s.updatesRejected.Load(),
		TruncatedFrames:  s.truncatedFrames.Load(),
	}
}
