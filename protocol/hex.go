package protocol

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HexByte marshals a single byte as a two-digit hex string ("04").
type HexByte byte

func (b HexByte) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("%02x", byte(b)))
}

func (b *HexByte) UnmarshalJSON(data []byte) error {
	var hexStr string
	if err := json.Unmarshal(data, &hexStr); err != nil {
		return err
	}

	decoded, err := hex.DecodeString(hexStr)
	if err != nil {
		return err
	}
	if len(decoded) != 1 {
		return fmt.Errorf("invalid byte length: expected 1 byte, got %d bytes", len(decoded))
	}

	*b = HexByte(decoded[0])
	return nil
}

// HexBytes marshals a byte slice as a hex string ("1b0005"). A nil slice
// marshals as JSON null and null unmarshals back to nil.
type HexBytes []byte

func (b HexBytes) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("null"), nil
	}
	return json.Marshal(hex.EncodeToString(b))
}

func (b *HexBytes) UnmarshalJSON(data []byte) error {
	var hexStr string
	if err := json.Unmarshal(data, &hexStr); err != nil {
		if string(data) == "null" {
			*b = nil
			return nil
		}
		return err
	}

	decoded, err := hex.DecodeString(hexStr)
	if err != nil {
		return err
	}

	*b = HexBytes(decoded)
	return nil
}
