package types

import "testing"

func TestGPSTimeFromNanos(t *testing.T) {
	tests := []struct {
		name string
		ns   uint64
		want GPSTime
	}{
		{"zero", 0, NewGPSTime(0, 0, 0)},
		{"round down", 1_499_999, NewGPSTime(0, 1, 499_999)},
		{"round up", 1_500_000, NewGPSTime(0, 2, -500_000)},
		{"residual below", 123_456_789_999, NewGPSTime(0, 123_457, -210_001)},
		{"week carry", NanosecondsInWeek - 1, NewGPSTime(1, 0, -1)},
		{"second week", NanosecondsInWeek + 2_000_000, NewGPSTime(1, 2, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GPSTimeFromNanos(tt.ns)
			if got != tt.want {
				t.Errorf("GPSTimeFromNanos(%d) = %v, want %v", tt.ns, got, tt.want)
			}
			if got.NS < -500_000 || got.NS >= 500_000 {
				t.Errorf("NS = %d, want within [-500000, 500000)", got.NS)
			}
			if got.Nanos() != tt.ns {
				t.Errorf("Nanos() = %d, want %d", got.Nanos(), tt.ns)
			}
		})
	}
}
