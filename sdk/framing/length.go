package framing

// Status byte values referenced by the framer.
const (
	SysExStart byte = 0xF0
	SysExEnd   byte = 0xF7
)

// MessageLength returns the total length, status byte included, of the
// message introduced by status. It returns 0 for bytes that do not start a
// fixed-length message: data bytes, 0xF0, 0xF4, 0xF5, 0xF7, 0xF9 and 0xFD.
func MessageLength(status byte) int {
	switch status {
	case 0xF6, 0xF8, 0xFA, 0xFB, 0xFC, 0xFE, 0xFF:
		return 1
	case 0xF1, 0xF3:
		return 2
	case 0xF2:
		return 3
	}

	switch status & 0xF0 {
	case 0xC0, 0xD0:
		return 2
	case 0x80, 0x90, 0xA0, 0xB0, 0xE0:
		return 3
	default:
		return 0
	}
}

// IsStatus reports whether b has the high bit set.
func IsStatus(b byte) bool {
	return b&0x80 != 0
}

// IsRealtime reports whether b is a single-byte system realtime message.
func IsRealtime(b byte) bool {
	switch b {
	case 0xF8, 0xFA, 0xFB, 0xFC, 0xFE, 0xFF:
		return true
	default:
		return false
	}
}
