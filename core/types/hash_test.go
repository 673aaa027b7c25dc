package types

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestHash_HexRoundTrip(t *testing.T) {
	h := HexToHash("0xdeadbeef")
	if h.IsZero() {
		t.Fatal("expected non-zero hash")
	}
	parsed, err := ParseHash(h.Hex())
	if err != nil {
		t.Fatalf("ParseHash failed: %v", err)
	}
	if parsed != h {
		t.Fatalf("round trip mismatch: %s != %s", parsed, h)
	}
}

func TestHash_HexIsCanonical(t *testing.T) {
	h := HexToHash("0xABCDEF")
	hex := h.Hex()
	if !strings.HasPrefix(hex, "0x") {
		t.Fatalf("missing 0x prefix: %s", hex)
	}
	if hex != strings.ToLower(hex) {
		t.Fatalf("hex not lowercase: %s", hex)
	}
	if len(hex) != 2+2*HashLength {
		t.Fatalf("hex length = %d, want %d", len(hex), 2+2*HashLength)
	}
}

func TestHash_CaseInsensitiveEquality(t *testing.T) {
	lower := HexToHash("0xabcdef")
	upper := HexToHash("0xABCDEF")
	if lower != upper {
		t.Fatal("hashes differing only in input hex case must be equal")
	}
}

func TestHash_SetBytesLeftPads(t *testing.T) {
	h := BytesToHash([]byte{0x01, 0x02})
	if h[HashLength-1] != 0x02 || h[HashLength-2] != 0x01 {
		t.Fatalf("expected right-aligned bytes, got %s", h)
	}
	if h[0] != 0 {
		t.Fatal("expected zero padding on the left")
	}
}

func TestParseHash_Invalid(t *testing.T) {
	for _, in := range []string{"0xzz", "0x123", strings.Repeat("ab", 40)} {
		if _, err := ParseHash(in); err == nil {
			t.Errorf("ParseHash(%q) should fail", in)
		}
	}
}

func TestHash_JSON(t *testing.T) {
	h := HexToHash("0x1122")
	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	want := `"` + h.Hex() + `"`
	if string(data) != want {
		t.Fatalf("JSON = %s, want %s", data, want)
	}

	var back Hash
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if back != h {
		t.Fatalf("JSON round trip mismatch: %s != %s", back, h)
	}
}
