// Package bridge connects platform transports to the framing core. Every
// platform client owns one Session per open input and calls Transmit on its
// send path, so the decode and chunking rules live in one place.
package bridge

import (
	"sync"
	"sync/atomic"

	"github.com/leandrodaf/midiframe/sdk/contracts"
	"github.com/leandrodaf/midiframe/sdk/framing"
)

// Session turns transport reads into framed contracts.MIDI events.
//
// Feed may be called from any goroutine; calls are serialized before they
// reach the Framer.
type Session struct {
	logger contracts.Logger
	filter *contracts.MIDIEventFilter

	mu     sync.Mutex // guards framer and epoch; held for the whole of each Feed
	framer *framing.Framer
	epoch  uint64

	events  atomic.Pointer[chan contracts.MIDI]
	dropped atomic.Uint64
}

// NewSession returns a Session that is not yet delivering events.
func NewSession(logger contracts.Logger, filter *contracts.MIDIEventFilter, opts ...framing.FramerOption) *Session {
	s := &Session{
		logger: logger,
		filter: filter,
	}
	s.framer = framing.NewFramer(s.deliver, opts...)
	return s
}

// Start begins delivering events to eventChannel.
func (s *Session) Start(eventChannel chan contracts.MIDI) {
	s.events.Store(&eventChannel)
}

// Capturing reports whether Start has been called without a following Stop.
func (s *Session) Capturing() bool {
	ch := s.events.Load()
	return ch != nil && *ch != nil
}

// Stop detaches the event channel and resets the session, so a later Start
// begins from a clean stream.
func (s *Session) Stop() {
	s.events.Store(nil)
	s.Reset()
}

// Reset waits for an in-flight Feed to finish, discards any partial message
// and the running status, and closes the open Input. The event channel stays
// attached.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.epoch++
	s.framer.Reset()
}

// Input feeds the reads of one transport connection into a Session. It goes
// dead, silently dropping further reads, once the Session is reset or
// another Input is opened.
type Input struct {
	session *Session
	epoch   uint64
}

// OpenInput resets the session and returns the Input for a new connection.
func (s *Session) OpenInput() *Input {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	return &Input{session: s, epoch: s.epoch}
}

// Feed decodes one read of the connection.
func (in *Input) Feed(data []byte, timestamp uint64) {
	in.FeedWindow(data, 0, len(data), timestamp)
}

// FeedWindow decodes data[offset:offset+count] of one read of the connection.
func (in *Input) FeedWindow(data []byte, offset, count int, timestamp uint64) {
	s := in.session
	s.mu.Lock()
	defer s.mu.Unlock()
	if in.epoch != s.epoch {
		return
	}
	s.framer.FeedWindow(data, offset, count, timestamp)
}

// Open reports whether the Input still feeds its session.
func (in *Input) Open() bool {
	s := in.session
	s.mu.Lock()
	defer s.mu.Unlock()
	return in.epoch == s.epoch
}

// Feed decodes one transport read.
func (s *Session) Feed(data []byte, timestamp uint64) {
	s.FeedWindow(data, 0, len(data), timestamp)
}

// FeedWindow decodes data[offset:offset+count] of one transport read.
func (s *Session) FeedWindow(data []byte, offset, count int, timestamp uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.framer.FeedWindow(data, offset, count, timestamp)
}

// Dropped returns the number of events discarded because the event channel
// was full.
func (s *Session) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *Session) deliver(data []byte, timestamp uint64) {
	ch := s.events.Load()
	if ch == nil || *ch == nil {
		return
	}

	event := contracts.MIDI{Timestamp: timestamp, Data: data}
	if !s.filter.Allows(event.Command()) {
		return
	}

	select {
	case *ch <- event:
	default:
		n := s.dropped.Add(1)
		s.logger.Warn("Event buffer full; dropping MIDI event",
			s.logger.Field().String("message", event.String()),
			s.logger.Field().Uint64("dropped", n))
	}
}
