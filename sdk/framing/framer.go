package framing

import "fmt"

// State is the decoding state of a Framer.
type State int

const (
	// StateHeader waits for a status byte or a running-status data byte.
	StateHeader State = iota
	// StateParams accumulates a fixed-length channel or system common message.
	StateParams
	// StateSysEx accumulates an open System Exclusive frame.
	StateSysEx
)

func (s State) String() string {
	switch s {
	case StateHeader:
		return "header"
	case StateParams:
		return "params"
	case StateSysEx:
		return "sysex"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Handler receives each completed message together with the timestamp passed
// to the Feed call that completed it. msg is owned by the handler.
//
// Handlers run synchronously inside Feed and should not block.
type Handler func(msg []byte, timestamp uint64)

// FramerOption configures a Framer.
type FramerOption func(*Framer)

// WithInterleavedRealtime makes the framer emit realtime bytes (0xF8, 0xFA,
// 0xFB, 0xFC, 0xFE, 0xFF) immediately as single-byte messages in every
// state, leaving the message under assembly and the running status
// untouched. By default a realtime byte seen mid-message is treated as
// ordinary message data.
func WithInterleavedRealtime() FramerOption {
	return func(f *Framer) {
		f.interleaveRealtime = true
	}
}

// Framer decodes a MIDI byte stream into messages. A Framer belongs to one
// connection and must not be fed from more than one goroutine at a time.
type Framer struct {
	handler Handler

	state         State
	runningStatus byte
	expected      int
	msg           []byte
	sysex         []byte

	interleaveRealtime bool
}

// NewFramer returns a Framer in StateHeader that reports messages to handler.
func NewFramer(handler Handler, opts ...FramerOption) *Framer {
	f := &Framer{
		handler: handler,
		msg:     make([]byte, 0, 3),
		sysex:   make([]byte, 0, 256),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// State returns the current decoding state.
func (f *Framer) State() State {
	return f.state
}

// RunningStatus returns the last status byte seen in StateHeader, or 0.
func (f *Framer) RunningStatus() byte {
	return f.runningStatus
}

// Reset discards any partial message and forgets the running status.
func (f *Framer) Reset() {
	f.state = StateHeader
	f.runningStatus = 0
	f.expected = 0
	f.msg = f.msg[:0]
	f.sysex = f.sysex[:0]
}

// Feed decodes all of data.
func (f *Framer) Feed(data []byte, timestamp uint64) {
	f.FeedWindow(data, 0, len(data), timestamp)
}

// FeedWindow decodes data[offset:offset+count]. A count reaching past the end
// of data is clamped. The call does nothing when count <= 0 or offset is
// outside data.
func (f *Framer) FeedWindow(data []byte, offset, count int, timestamp uint64) {
	if count <= 0 || offset < 0 || offset >= len(data) {
		return
	}
	end := len(data)
	if count < end-offset {
		end = offset + count
	}

	for _, b := range data[offset:end] {
		if f.interleaveRealtime && IsRealtime(b) {
			f.emitByte(b, timestamp)
			continue
		}

		switch f.state {
		case StateHeader:
			f.header(b, timestamp)
		case StateSysEx:
			f.sysexByte(b, timestamp)
		case StateParams:
			f.msg = append(f.msg, b)
			f.completeIfFull(timestamp)
		}
	}
}

func (f *Framer) header(b byte, timestamp uint64) {
	switch {
	case b == SysExStart:
		f.sysex = append(f.sysex[:0], b)
		f.state = StateSysEx

	case IsStatus(b):
		f.runningStatus = b
		f.expected = MessageLength(b)
		if f.expected == 0 {
			return
		}
		f.msg = append(f.msg[:0], b)
		f.state = StateParams
		f.completeIfFull(timestamp)

	case f.runningStatus != 0:
		f.expected = MessageLength(f.runningStatus)
		if f.expected <= 1 {
			return
		}
		f.msg = append(f.msg[:0], f.runningStatus, b)
		f.state = StateParams
		f.completeIfFull(timestamp)
	}
}

func (f *Framer) sysexByte(b byte, timestamp uint64) {
	if b == SysExStart {
		// A new frame began before the open one was terminated.
		f.sysex = append(f.sysex, SysExEnd)
		f.emit(f.sysex, timestamp)
		f.sysex = f.sysex[:0]
	}
	f.sysex = append(f.sysex, b)
	if b == SysExEnd {
		f.emit(f.sysex, timestamp)
		f.sysex = f.sysex[:0]
		f.state = StateHeader
	}
}

func (f *Framer) completeIfFull(timestamp uint64) {
	if f.expected > 0 && len(f.msg) == f.expected {
		f.emit(f.msg, timestamp)
		f.msg = f.msg[:0]
		f.state = StateHeader
	}
}

func (f *Framer) emit(buf []byte, timestamp uint64) {
	if f.handler == nil {
		return
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	f.handler(out, timestamp)
}

func (f *Framer) emitByte(b byte, timestamp uint64) {
	if f.handler == nil {
		return
	}
	f.handler([]byte{b}, timestamp)
}
