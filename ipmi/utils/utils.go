package utils

// Multi-byte IPMI fields are little-endian on the wire.

func Uint16ToLE(n uint16) []byte {
	return []byte{byte(n & 0xFF), byte(n >> 8)}
}

func LEToUint16(b []byte) uint16 {
	if len(b) < 2 {
		panic("slice length must be at least 2")
	}
	return uint16(b[0]) | uint16(b[1])<<8
}

func Uint32ToLE(n uint32) []byte {
	return []byte{byte(n), byte(n >> 8), byte(n >> 16), byte(n >> 24)}
}

func LEToUint32(b []byte) uint32 {
	if len(b) < 4 {
		panic("slice length must be at least 4")
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func FlattenBytes(chunks [][]byte) []byte {
	totalSize := 0
	for _, chunk := range chunks {
		totalSize += len(chunk)
	}

	result := make([]byte, 0, totalSize)
	for _, chunk := range chunks {
		result = append(result, chunk...)
	}
	return result
}
