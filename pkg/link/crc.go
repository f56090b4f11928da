package link

// CRC-16 with polynomial 0x3D65 (reversed 0xA6BC), final value inverted,
// sent little-endian. This is the DNP3 link CRC.

var crcTable [256]uint16

func init() {
	const poly uint16 = 0xA6BC

	for i := 0; i < 256; i++ {
		crc := uint16(i)
		for j := 0; j < 8; j++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ poly
			} else {
				crc >>= 1
			}
		}
		crcTable[i] = crc
	}
}

// CalculateCRC calculates the CRC-16 of data
func CalculateCRC(data []byte) uint16 {
	crc := uint16(0)
	for _, b := range data {
		crc = crcTable[(byte(crc)^b)&0xFF] ^ (crc >> 8)
	}
	return ^crc
}

// VerifyCRC verifies that data has correct CRC appended
// Data should include the 2-byte CRC at the end
func VerifyCRC(data []byte) bool {
	if len(data) < 2 {
		return false
	}

	// Calculate CRC for all data except last 2 bytes
	calculated := CalculateCRC(data[:len(data)-2])

	// Extract CRC from last 2 bytes (little-endian)
	received := uint16(data[len(data)-2]) | (uint16(data[len(data)-1]) << 8)

	return calculated == received
}

// AppendCRC appends CRC to data and returns new slice
func AppendCRC(data []byte) []byte {
	crc := CalculateCRC(data)
	result := make([]byte, len(data)+2)
	copy(result, data)
	result[len(data)] = byte(crc)
	result[len(data)+1] = byte(crc >> 8)
	return result
}
