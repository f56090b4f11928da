package link

import (
	"bytes"
	"testing"
)

// TestCalculateCRC_Fixed tests inputs whose CRC follows from the inverted output
func TestCalculateCRC_Fixed(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint16
	}{
		{"Empty data", []byte{}, 0xFFFF},
		{"Single zero byte", []byte{0x00}, 0xFFFF},
		{"All zeros (70 bytes)", make([]byte, 70), 0xFFFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := CalculateCRC(tt.data); result != tt.expected {
				t.Errorf("CalculateCRC() = 0x%04X, expected 0x%04X", result, tt.expected)
			}
		})
	}
}

// TestCalculateCRC_DetectsBitFlips flips every bit of a frame header
func TestCalculateCRC_DetectsBitFlips(t *testing.T) {
	data := []byte{SyncByte1, SyncByte2, byte(KindDownlink), 0x07, 70}
	want := CalculateCRC(data)

	for i := 0; i < len(data)*8; i++ {
		corrupt := append([]byte(nil), data...)
		corrupt[i/8] ^= 1 << (i % 8)
		if CalculateCRC(corrupt) == want {
			t.Errorf("flip of bit %d not detected", i)
		}
	}
}

// TestVerifyCRC_InvalidCRCs tests CRC verification with invalid CRCs
func TestVerifyCRC_InvalidCRCs(t *testing.T) {
	valid := AppendCRC([]byte{0xEB, 0x90, 0x01})
	swapped := append([]byte(nil), valid...)
	swapped[3], swapped[4] = swapped[4], swapped[3]
	corrupted := append([]byte(nil), valid...)
	corrupted[1] = 0xFF

	tests := []struct {
		name string
		data []byte
	}{
		{"Too short (0 bytes)", []byte{}},
		{"Too short (1 byte)", []byte{0x05}},
		{"Wrong CRC value", []byte{0xEB, 0x90, 0x01, 0x00, 0x00}},
		{"Corrupted data", corrupted},
		{"Swapped CRC bytes (wrong endianness)", swapped},
	}

	if !VerifyCRC(valid) {
		t.Fatalf("VerifyCRC() = false for AppendCRC output")
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if VerifyCRC(tt.data) {
				t.Errorf("VerifyCRC() = true, expected false for invalid CRC\nData: % X", tt.data)
			}
		})
	}
}

// TestAppendCRC tests CRC appending
func TestAppendCRC(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"Empty", []byte{}},
		{"Single byte", []byte{0x05}},
		{"Sync bytes", []byte{SyncByte1, SyncByte2}},
		{"Header", []byte{SyncByte1, SyncByte2, 0x02, 0x00, 0x46}},
		{"Full downlink frame", bytes.Repeat([]byte{0xA5}, 70)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := append([]byte(nil), tt.data...)
			result := AppendCRC(tt.data)

			if len(result) != len(tt.data)+2 {
				t.Errorf("AppendCRC() length = %d, expected %d", len(result), len(tt.data)+2)
			}
			if !bytes.Equal(result[:len(tt.data)], tt.data) {
				t.Errorf("AppendCRC() corrupted original data")
			}
			if !VerifyCRC(result) {
				t.Errorf("AppendCRC() result failed CRC verification\nResult: % X", result)
			}
			if !bytes.Equal(tt.data, original) {
				t.Errorf("AppendCRC() modified original slice")
			}

			crc := CalculateCRC(tt.data)
			if result[len(tt.data)] != byte(crc) || result[len(tt.data)+1] != byte(crc>>8) {
				t.Errorf("CRC byte order incorrect: got [%02X %02X], expected little-endian 0x%04X",
					result[len(tt.data)], result[len(tt.data)+1], crc)
			}
		})
	}
}

// BenchmarkCalculateCRC benchmarks CRC calculation performance
func BenchmarkCalculateCRC(b *testing.B) {
	data := make([]byte, MaxDataSize)
	for i := range data {
		data[i] = byte(i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = CalculateCRC(data)
	}
}
