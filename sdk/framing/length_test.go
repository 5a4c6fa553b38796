package framing

import "testing"

func TestMessageLength(t *testing.T) {
	tests := []struct {
		status byte
		want   int
	}{
		{0x80, 3}, {0x8F, 3}, {0x90, 3}, {0xA3, 3}, {0xB0, 3}, {0xEF, 3},
		{0xC0, 2}, {0xDF, 2},
		{0xF1, 2}, {0xF3, 2},
		{0xF2, 3},
		{0xF6, 1}, {0xF8, 1}, {0xFA, 1}, {0xFB, 1}, {0xFC, 1}, {0xFE, 1}, {0xFF, 1},
		{0xF0, 0}, {0xF4, 0}, {0xF5, 0}, {0xF7, 0}, {0xF9, 0}, {0xFD, 0},
		{0x00, 0}, {0x7F, 0},
	}

	for _, tt := range tests {
		if got := MessageLength(tt.status); got != tt.want {
			t.Errorf("MessageLength(%#02x) = %d, want %d", tt.status, got, tt.want)
		}
	}
}

func TestIsRealtime(t *testing.T) {
	for b := 0; b < 256; b++ {
		want := MessageLength(byte(b)) == 1 && byte(b) != 0xF6
		if got := IsRealtime(byte(b)); got != want {
			t.Errorf("IsRealtime(%#02x) = %v, want %v", b, got, want)
		}
	}
}

func TestIsStatus(t *testing.T) {
	if IsStatus(0x7F) {
		t.Error("IsStatus(0x7f) = true")
	}
	if !IsStatus(0x80) {
		t.Error("IsStatus(0x80) = false")
	}
}
