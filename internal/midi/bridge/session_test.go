package bridge

import (
	"bytes"
	"sync"
	"testing"

	"github.com/leandrodaf/midiframe/internal/logger"
	"github.com/leandrodaf/midiframe/sdk/contracts"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestSession(filter *contracts.MIDIEventFilter) (*Session, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewSession(logger.NewWithCore(core), filter), logs
}

func drain(ch chan contracts.MIDI) []contracts.MIDI {
	var out []contracts.MIDI
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestSessionDeliversFramedEvents(t *testing.T) {
	s, _ := newTestSession(nil)
	ch := make(chan contracts.MIDI, 8)
	s.Start(ch)

	s.Feed([]byte{0x90, 0x3C}, 1)
	s.Feed([]byte{0x64, 0x40, 0x7F, 0xF0, 0x01}, 2)
	s.Feed([]byte{0xF7}, 3)

	got := drain(ch)
	want := []contracts.MIDI{
		{Timestamp: 2, Data: []byte{0x90, 0x3C, 0x64}},
		{Timestamp: 2, Data: []byte{0x90, 0x40, 0x7F}},
		{Timestamp: 3, Data: []byte{0xF0, 0x01, 0xF7}},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Timestamp != want[i].Timestamp || !bytes.Equal(got[i].Data, want[i].Data) {
			t.Errorf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSessionFeedWindow(t *testing.T) {
	s, _ := newTestSession(nil)
	ch := make(chan contracts.MIDI, 1)
	s.Start(ch)

	s.FeedWindow([]byte{0x00, 0x90, 0x3C, 0x40, 0x00}, 1, 3, 42)

	got := drain(ch)
	if len(got) != 1 || !bytes.Equal(got[0].Data, []byte{0x90, 0x3C, 0x40}) {
		t.Fatalf("got %+v", got)
	}
}

func TestSessionFilter(t *testing.T) {
	s, _ := newTestSession(&contracts.MIDIEventFilter{Commands: []contracts.MIDICommand{contracts.NoteOn}})
	ch := make(chan contracts.MIDI, 8)
	s.Start(ch)

	s.Feed([]byte{0xB0, 0x07, 0x7F, 0xF8, 0x92, 0x3C, 0x40, 0x82, 0x3C, 0x00}, 0)

	got := drain(ch)
	if len(got) != 1 || got[0].Status() != 0x92 {
		t.Fatalf("got %+v, want the single note on", got)
	}
}

func TestSessionDropsWhenFull(t *testing.T) {
	s, logs := newTestSession(nil)
	ch := make(chan contracts.MIDI, 1)
	s.Start(ch)

	s.Feed([]byte{0xF8, 0xF8, 0xF8}, 0)

	if got := len(drain(ch)); got != 1 {
		t.Errorf("delivered %d events, want 1", got)
	}
	if got := s.Dropped(); got != 2 {
		t.Errorf("Dropped() = %d, want 2", got)
	}
	warns := logs.FilterLevelExact(zapcore.WarnLevel).All()
	if len(warns) != 2 {
		t.Fatalf("got %d warnings, want 2", len(warns))
	}
	if warns[1].ContextMap()["dropped"] != uint64(2) {
		t.Errorf("second warning dropped = %v", warns[1].ContextMap()["dropped"])
	}
}

func TestSessionNotStarted(t *testing.T) {
	s, _ := newTestSession(nil)
	if s.Capturing() {
		t.Fatal("Capturing() = true before Start")
	}
	s.Feed([]byte{0x90, 0x3C, 0x40}, 0)
	if s.Dropped() != 0 {
		t.Errorf("Dropped() = %d without a channel", s.Dropped())
	}
}

func TestSessionStop(t *testing.T) {
	s, _ := newTestSession(nil)
	ch := make(chan contracts.MIDI, 4)
	s.Start(ch)
	if !s.Capturing() {
		t.Fatal("Capturing() = false after Start")
	}

	s.Feed([]byte{0x90, 0x3C}, 0)
	s.Stop()
	if s.Capturing() {
		t.Fatal("Capturing() = true after Stop")
	}
	s.Feed([]byte{0x40}, 0)
	if got := drain(ch); len(got) != 0 {
		t.Fatalf("delivered %+v after Stop", got)
	}

	// The partial note on was discarded by Stop.
	s.Start(ch)
	s.Feed([]byte{0x40, 0xF8}, 0)
	got := drain(ch)
	if len(got) != 1 || got[0].Status() != 0xF8 {
		t.Fatalf("got %+v, want only the clock", got)
	}
}

func TestSessionConcurrentFeeds(t *testing.T) {
	s, _ := newTestSession(nil)
	const writers, perWriter = 8, 100
	ch := make(chan contracts.MIDI, writers*perWriter)
	s.Start(ch)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(channel byte) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				s.Feed([]byte{0x90 | channel, byte(i), 0x40}, uint64(i))
			}
		}(byte(w))
	}
	wg.Wait()

	got := drain(ch)
	if len(got) != writers*perWriter {
		t.Fatalf("got %d events, want %d", len(got), writers*perWriter)
	}
	for _, ev := range got {
		if len(ev.Data) != 3 || ev.Command() != contracts.NoteOn {
			t.Fatalf("malformed event %+v", ev)
		}
	}
}

func TestSessionResetKeepsChannel(t *testing.T) {
	s, _ := newTestSession(nil)
	ch := make(chan contracts.MIDI, 4)
	s.Start(ch)

	s.Feed([]byte{0x90, 0x3C, 0x40, 0xF0, 0x01}, 0)
	s.Reset()
	if !s.Capturing() {
		t.Fatal("Capturing() = false after Reset")
	}

	// Neither the open SysEx frame nor the running status survives.
	s.Feed([]byte{0x02, 0xF7, 0x3E, 0x41, 0xF8}, 1)

	got := drain(ch)
	if len(got) != 2 {
		t.Fatalf("got %+v, want the note on and the clock", got)
	}
	if !bytes.Equal(got[0].Data, []byte{0x90, 0x3C, 0x40}) || got[1].Status() != 0xF8 {
		t.Errorf("got %+v", got)
	}
}

func TestSessionInputGoesDeadOnReset(t *testing.T) {
	s, _ := newTestSession(nil)
	ch := make(chan contracts.MIDI, 8)
	s.Start(ch)

	first := s.OpenInput()
	first.Feed([]byte{0x90, 0x3C}, 0)
	second := s.OpenInput()
	if first.Open() {
		t.Fatal("first input still open after OpenInput")
	}

	first.Feed([]byte{0x40, 0xF8}, 1)
	second.Feed([]byte{0x40, 0xB0, 0x07, 0x7F}, 2)

	got := drain(ch)
	if len(got) != 1 || !bytes.Equal(got[0].Data, []byte{0xB0, 0x07, 0x7F}) {
		t.Fatalf("got %+v, want only the control change", got)
	}

	s.Reset()
	if second.Open() {
		t.Fatal("second input still open after Reset")
	}
	second.Feed([]byte{0xF8}, 3)
	if got := drain(ch); len(got) != 0 {
		t.Fatalf("delivered %+v through a closed input", got)
	}
}

func TestSessionInputFeedWindow(t *testing.T) {
	s, _ := newTestSession(nil)
	ch := make(chan contracts.MIDI, 1)
	s.Start(ch)

	s.OpenInput().FeedWindow([]byte{0xF0, 0xC1, 0x05, 0xF0}, 1, 2, 9)

	got := drain(ch)
	if len(got) != 1 || got[0].Timestamp != 9 || !bytes.Equal(got[0].Data, []byte{0xC1, 0x05}) {
		t.Fatalf("got %+v", got)
	}
}
