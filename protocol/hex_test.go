package protocol

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestHexByteMarshaling(t *testing.T) {
	tests := []struct {
		name string
		b    HexByte
		want string
	}{
		{"Zero", HexByte(0x00), `"00"`},
		{"SensorNetFn", HexByte(0x04), `"04"`},
		{"Max", HexByte(0xFF), `"ff"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.b)
			if err != nil {
				t.Fatalf("Failed to marshal HexByte: %v", err)
			}
			if got := string(raw); got != tt.want {
				t.Errorf("MarshalJSON() = %v, want %v", got, tt.want)
			}

			var b HexByte
			if err := json.Unmarshal([]byte(tt.want), &b); err != nil {
				t.Fatalf("Failed to unmarshal HexByte: %v", err)
			}
			if b != tt.b {
				t.Errorf("UnmarshalJSON() = %v, want %v", b, tt.b)
			}
		})
	}
}

func TestHexByteUnmarshalRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"NotHex", `"zz"`},
		{"TooLong", `"0405"`},
		{"Empty", `""`},
		{"NotAString", `4`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b HexByte
			if err := json.Unmarshal([]byte(tt.input), &b); err == nil {
				t.Errorf("UnmarshalJSON(%s) succeeded, want error", tt.input)
			}
		})
	}
}

func TestHexBytesMarshaling(t *testing.T) {
	tests := []struct {
		name string
		b    HexBytes
		want string
	}{
		{"Empty", HexBytes{}, `""`},
		{"SingleByte", HexBytes{0x1B}, `"1b"`},
		{"MultiByte", HexBytes{0x01, 0x00, 0xFF}, `"0100ff"`},
		{"Null", nil, `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.b)
			if err != nil {
				t.Fatalf("Failed to marshal HexBytes: %v", err)
			}
			if got := string(raw); got != tt.want {
				t.Errorf("MarshalJSON() = %v, want %v", got, tt.want)
			}

			var b HexBytes
			if err := json.Unmarshal([]byte(tt.want), &b); err != nil {
				t.Fatalf("Failed to unmarshal HexBytes: %v", err)
			}
			if !bytes.Equal(b, tt.b) {
				t.Errorf("UnmarshalJSON() = % X, want % X", []byte(b), []byte(tt.b))
			}
		})
	}
}

func TestHexBytesUnmarshalRejectsOddLength(t *testing.T) {
	var b HexBytes
	if err := json.Unmarshal([]byte(`"04f"`), &b); err == nil {
		t.Error("UnmarshalJSON accepted odd-length hex, want error")
	}
}
