package framing

import (
	"iter"
	"time"
)

// DefaultMaxPacketSize is the largest payload CoreMIDI accepts in a single
// MIDIPacket data field.
const DefaultMaxPacketSize = 256

var clockEpoch = time.Now()

// MonotonicNow returns nanoseconds elapsed on the monotonic clock since the
// package was initialised.
func MonotonicNow() uint64 {
	return uint64(time.Since(clockEpoch))
}

// Packet is one outbound wire packet.
type Packet struct {
	Data      []byte
	Timestamp uint64
}

// PacketizerOption configures a Packetizer.
type PacketizerOption func(*Packetizer)

// WithMaxPacketSize sets the packet payload ceiling. Values <= 0 are ignored.
func WithMaxPacketSize(n int) PacketizerOption {
	return func(p *Packetizer) {
		if n > 0 {
			p.maxSize = n
		}
	}
}

// WithClock replaces the clock used when no timestamp is supplied.
func WithClock(clock func() uint64) PacketizerOption {
	return func(p *Packetizer) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// Packetizer splits outbound byte buffers into bounded packets. It holds no
// per-call state and is safe for concurrent use.
type Packetizer struct {
	maxSize int
	clock   func() uint64
}

// NewPacketizer returns a Packetizer using DefaultMaxPacketSize and
// MonotonicNow unless overridden.
func NewPacketizer(opts ...PacketizerOption) *Packetizer {
	p := &Packetizer{
		maxSize: DefaultMaxPacketSize,
		clock:   MonotonicNow,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxSize returns the packet payload ceiling.
func (p *Packetizer) MaxSize() int {
	return p.maxSize
}

// Chunk splits data into packets stamped with the clock's current value,
// read once when iteration starts.
func (p *Packetizer) Chunk(data []byte) iter.Seq[Packet] {
	return func(yield func(Packet) bool) {
		p.split(data, p.clock(), yield)
	}
}

// ChunkAt splits data into packets that all carry timestamp.
//
// Packet data aliases data; callers must not modify data while iterating.
// Empty input yields nothing.
func (p *Packetizer) ChunkAt(data []byte, timestamp uint64) iter.Seq[Packet] {
	return func(yield func(Packet) bool) {
		p.split(data, timestamp, yield)
	}
}

func (p *Packetizer) split(data []byte, timestamp uint64, yield func(Packet) bool) {
	for offset := 0; offset < len(data); {
		n := min(p.maxSize, len(data)-offset)
		chunk := data[offset : offset+n : offset+n]
		if !yield(Packet{Data: chunk, Timestamp: timestamp}) {
			return
		}
		offset += n
	}
}
