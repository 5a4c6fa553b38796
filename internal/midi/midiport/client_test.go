package midiport

import (
	"bytes"
	"errors"
	"testing"

	"github.com/leandrodaf/midiframe/internal/logger"
	"github.com/leandrodaf/midiframe/sdk/contracts"
	"gitlab.com/gomidi/midi/v2/drivers"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakePort struct {
	name   string
	number int
	open   bool
	closed int
}

func (p *fakePort) Open() error {
	p.open = true
	return nil
}

func (p *fakePort) Close() error {
	p.open = false
	p.closed++
	return nil
}

func (p *fakePort) IsOpen() bool { return p.open }
func (p *fakePort) Number() int { return p.number }
func (p *fakePort) String() string { return p.name }
func (p *fakePort) Underlying() interface{} { return nil }

type fakeIn struct {
	fakePort
	onMsg   func([]byte, int32)
	config  drivers.ListenConfig
	stopped bool
}

func (in *fakeIn) Listen(onMsg func(msg []byte, milliseconds int32), config drivers.ListenConfig) (func(), error) {
	in.onMsg = onMsg
	in.config = config
	return func() { in.stopped = true }, nil
}

type fakeOut struct {
	fakePort
	sent    [][]byte
	sendErr error
}

func (out *fakeOut) Send(data []byte) error {
	if out.sendErr != nil {
		return out.sendErr
	}
	out.sent = append(out.sent, append([]byte(nil), data...))
	return nil
}

func newTestClient(ins []*fakeIn, outs []*fakeOut, opts ...contracts.Option) *Client {
	core, _ := observer.New(zapcore.DebugLevel)
	options := &contracts.ClientOptions{Logger: logger.NewWithCore(core)}
	for _, opt := range opts {
		opt(options)
	}
	return New(options, Ports{
		Ins: func() []drivers.In {
			out := make([]drivers.In, len(ins))
			for i, in := range ins {
				out[i] = in
			}
			return out
		},
		Outs: func() []drivers.Out {
			out := make([]drivers.Out, len(outs))
			for i, o := range outs {
				out[i] = o
			}
			return out
		},
	})
}

func TestClientListDevices(t *testing.T) {
	c := newTestClient([]*fakeIn{
		{fakePort: fakePort{name: "IAC Bus 1"}},
		{fakePort: fakePort{name: "Launchpad X", number: 1}},
	}, nil)

	devices, err := c.ListDevices()
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(devices) != 2 || devices[1].ID != 1 || devices[1].Name != "Launchpad X" {
		t.Errorf("devices = %+v", devices)
	}

	if _, err := c.ListOutputs(); !errors.Is(err, contracts.ErrNoMIDIDevices) {
		t.Errorf("ListOutputs err = %v, want ErrNoMIDIDevices", err)
	}
}

func TestClientSelectDeviceInvalid(t *testing.T) {
	c := newTestClient([]*fakeIn{{fakePort: fakePort{name: "only"}}}, nil)
	for _, id := range []int{-1, 1} {
		if err := c.SelectDevice(id); !errors.Is(err, contracts.ErrInvalidMIDIDevice) {
			t.Errorf("SelectDevice(%d) err = %v", id, err)
		}
	}
}

func TestClientCapturesFramedMessages(t *testing.T) {
	in := &fakeIn{fakePort: fakePort{name: "in"}}
	c := newTestClient([]*fakeIn{in}, nil)

	if err := c.SelectDevice(0); err != nil {
		t.Fatalf("SelectDevice: %v", err)
	}
	if !in.open || !in.config.SysEx {
		t.Fatalf("port open=%v sysex=%v", in.open, in.config.SysEx)
	}

	events := make(chan contracts.MIDI, 4)
	c.StartCapture(events)

	// A SysEx dump split across driver callbacks, then running status.
	in.onMsg([]byte{0xF0, 0x00, 0x20}, 10)
	in.onMsg([]byte{0x29, 0xF7, 0x90, 0x3C, 0x40, 0x3E}, 11)
	in.onMsg([]byte{0x41}, 12)

	want := []contracts.MIDI{
		{Timestamp: 11, Data: []byte{0xF0, 0x00, 0x20, 0x29, 0xF7}},
		{Timestamp: 11, Data: []byte{0x90, 0x3C, 0x40}},
		{Timestamp: 12, Data: []byte{0x90, 0x3E, 0x41}},
	}
	for i, w := range want {
		got := <-events
		if got.Timestamp != w.Timestamp || !bytes.Equal(got.Data, w.Data) {
			t.Errorf("event %d = %+v, want %+v", i, got, w)
		}
	}

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !in.stopped || in.open {
		t.Errorf("after Stop: listener stopped=%v port open=%v", in.stopped, in.open)
	}
}

func TestClientReselectClosesPreviousInput(t *testing.T) {
	a := &fakeIn{fakePort: fakePort{name: "a"}}
	b := &fakeIn{fakePort: fakePort{name: "b", number: 1}}
	c := newTestClient([]*fakeIn{a, b}, nil)

	events := make(chan contracts.MIDI, 8)
	c.StartCapture(events)

	if err := c.SelectDevice(0); err != nil {
		t.Fatalf("SelectDevice(0): %v", err)
	}
	onA := a.onMsg
	onA([]byte{0x90, 0x3C, 0x40, 0xF0, 0x01}, 1)

	if err := c.SelectDevice(1); err != nil {
		t.Fatalf("SelectDevice(1): %v", err)
	}
	if !a.stopped || a.closed != 1 {
		t.Errorf("first port stopped=%v closed=%d", a.stopped, a.closed)
	}
	if !b.open {
		t.Error("second port not open")
	}

	// A late callback from the first port and the second port's stream
	// must not combine with the first port's open SysEx or running status.
	onA([]byte{0xF8}, 2)
	b.onMsg([]byte{0x02, 0xF7, 0x3E, 0x41, 0xB0, 0x07, 0x7F}, 3)

	want := []contracts.MIDI{
		{Timestamp: 1, Data: []byte{0x90, 0x3C, 0x40}},
		{Timestamp: 3, Data: []byte{0xB0, 0x07, 0x7F}},
	}
	got := make([]contracts.MIDI, 0, len(want))
	for len(events) > 0 {
		got = append(got, <-events)
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i, w := range want {
		if got[i].Timestamp != w.Timestamp || !bytes.Equal(got[i].Data, w.Data) {
			t.Errorf("event %d = %+v, want %+v", i, got[i], w)
		}
	}
}

func TestClientStopDiscardsPartialInput(t *testing.T) {
	a := &fakeIn{fakePort: fakePort{name: "a"}}
	c := newTestClient([]*fakeIn{a}, nil)
	events := make(chan contracts.MIDI, 4)

	if err := c.SelectDevice(0); err != nil {
		t.Fatalf("SelectDevice: %v", err)
	}
	c.StartCapture(events)
	a.onMsg([]byte{0xE0, 0x00}, 1)
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if err := c.SelectDevice(0); err != nil {
		t.Fatalf("SelectDevice after Stop: %v", err)
	}
	c.StartCapture(events)
	a.onMsg([]byte{0x40, 0xF8}, 2)

	if len(events) != 1 {
		t.Fatalf("got %d events, want only the clock", len(events))
	}
	if got := <-events; got.Status() != 0xF8 {
		t.Errorf("event = %+v, want the clock", got)
	}
}

func TestClientSendPacketizes(t *testing.T) {
	out := &fakeOut{fakePort: fakePort{name: "out"}}
	c := newTestClient(nil, []*fakeOut{out}, contracts.WithMaxPacketSize(4))

	if err := c.SendAt([]byte{0x90, 0x3C}, 1); !errors.Is(err, contracts.ErrNoOutputSelected) {
		t.Fatalf("SendAt before SelectOutput err = %v", err)
	}
	if err := c.SelectOutput(0); err != nil {
		t.Fatalf("SelectOutput: %v", err)
	}

	data := []byte{0xF0, 0x7D, 0x01, 0x02, 0x03, 0x04, 0x05, 0xF7, 0x90, 0x3C}
	if err := c.Send(data); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if len(out.sent) != 3 {
		t.Fatalf("sent %d packets, want 3", len(out.sent))
	}
	var joined []byte
	for _, p := range out.sent {
		if len(p) > 4 {
			t.Errorf("packet of %d bytes exceeds limit", len(p))
		}
		joined = append(joined, p...)
	}
	if !bytes.Equal(joined, data) {
		t.Errorf("joined = % X, want % X", joined, data)
	}
}

func TestClientSendError(t *testing.T) {
	errPort := errors.New("port gone")
	out := &fakeOut{fakePort: fakePort{name: "out"}, sendErr: errPort}
	c := newTestClient(nil, []*fakeOut{out})

	if err := c.SelectOutput(0); err != nil {
		t.Fatalf("SelectOutput: %v", err)
	}
	if err := c.SendAt([]byte{0xF8}, 3); !errors.Is(err, errPort) {
		t.Errorf("SendAt err = %v, want %v", err, errPort)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if out.open {
		t.Error("output still open after Stop")
	}
}
