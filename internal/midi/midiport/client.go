// Package midiport implements contracts.ClientMIDI on top of whichever
// gomidi driver the program registered (rtmididrv, portmididrv, ...).
package midiport

import (
	"fmt"
	"sync"

	"github.com/leandrodaf/midiframe/internal/midi/bridge"
	"github.com/leandrodaf/midiframe/sdk/contracts"
	"github.com/leandrodaf/midiframe/sdk/framing"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"go.uber.org/multierr"
)

// Ports enumerates driver ports. The zero value uses the registered gomidi
// driver.
type Ports struct {
	Ins  func() []drivers.In
	Outs func() []drivers.Out
}

func (p Ports) withDefaults() Ports {
	if p.Ins == nil {
		p.Ins = func() []drivers.In { return gomidi.GetInPorts() }
	}
	if p.Outs == nil {
		p.Outs = func() []drivers.Out { return gomidi.GetOutPorts() }
	}
	return p
}

// Client feeds bytes from a gomidi input port through a bridge.Session and
// writes packetized data to a gomidi output port.
type Client struct {
	logger     contracts.Logger
	ports      Ports
	session    *bridge.Session
	packetizer *framing.Packetizer

	mu         sync.Mutex
	in         drivers.In
	out        drivers.Out
	stopListen func()
}

// NewMIDIClient returns a Client bound to the registered gomidi driver.
func NewMIDIClient(options *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	return New(options, Ports{}), nil
}

// New returns a Client that enumerates endpoints through ports.
func New(options *contracts.ClientOptions, ports Ports) *Client {
	options.Logger.Info("MIDI client created for gomidi driver")
	return &Client{
		logger:     options.Logger,
		ports:      ports.withDefaults(),
		session:    bridge.NewSession(options.Logger, options.MIDIEventFilter),
		packetizer: framing.NewPacketizer(framing.WithMaxPacketSize(options.MaxPacketSize)),
	}
}

// ListDevices lists the input ports of the driver.
func (c *Client) ListDevices() ([]contracts.DeviceInfo, error) {
	ins := c.ports.Ins()
	if len(ins) == 0 {
		c.logger.Warn(contracts.ErrNoMIDIDevices.Error())
		return nil, contracts.ErrNoMIDIDevices
	}
	devices := make([]contracts.DeviceInfo, len(ins))
	for i, in := range ins {
		devices[i] = portInfo(i, in)
	}
	return devices, nil
}

// ListOutputs lists the output ports of the driver.
func (c *Client) ListOutputs() ([]contracts.DeviceInfo, error) {
	outs := c.ports.Outs()
	if len(outs) == 0 {
		return nil, contracts.ErrNoMIDIDevices
	}
	devices := make([]contracts.DeviceInfo, len(outs))
	for i, out := range outs {
		devices[i] = portInfo(i, out)
	}
	return devices, nil
}

func portInfo(id int, port drivers.Port) contracts.DeviceInfo {
	return contracts.DeviceInfo{
		ID:         id,
		Name:       port.String(),
		EntityName: port.String(),
	}
}

// SelectDevice opens the input port with the given ID and starts listening.
// Bytes are decoded immediately; they reach a channel once StartCapture is
// called.
func (c *Client) SelectDevice(deviceID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ins := c.ports.Ins()
	if deviceID < 0 || deviceID >= len(ins) {
		c.logger.Error(contracts.ErrInvalidMIDIDevice.Error(), c.logger.Field().Int("deviceID", deviceID))
		return contracts.ErrInvalidMIDIDevice
	}

	if err := c.closeInput(); err != nil {
		return fmt.Errorf("close previous input: %w", err)
	}

	in := ins[deviceID]
	if !in.IsOpen() {
		if err := in.Open(); err != nil {
			return fmt.Errorf("open input %q: %w", in.String(), err)
		}
	}

	input := c.session.OpenInput()
	stop, err := in.Listen(func(msg []byte, milliseconds int32) {
		input.Feed(msg, uint64(milliseconds))
	}, drivers.ListenConfig{
		SysEx:       true,
		TimeCode:    true,
		ActiveSense: true,
		OnErr: func(err error) {
			c.logger.Error("MIDI input error", c.logger.Field().Error("error", err))
		},
	})
	if err != nil {
		c.session.Reset()
		return multierr.Append(fmt.Errorf("listen on %q: %w", in.String(), err), in.Close())
	}

	c.in = in
	c.stopListen = stop
	c.logger.Info("MIDI device selected",
		c.logger.Field().Int("deviceID", deviceID),
		c.logger.Field().String("deviceName", in.String()))
	return nil
}

// SelectOutput opens the output port with the given ID.
func (c *Client) SelectOutput(deviceID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	outs := c.ports.Outs()
	if deviceID < 0 || deviceID >= len(outs) {
		return contracts.ErrInvalidMIDIDevice
	}

	if c.out != nil {
		if err := c.out.Close(); err != nil {
			return fmt.Errorf("close previous output: %w", err)
		}
		c.out = nil
	}

	out := outs[deviceID]
	if !out.IsOpen() {
		if err := out.Open(); err != nil {
			return fmt.Errorf("open output %q: %w", out.String(), err)
		}
	}
	c.out = out
	c.logger.Info("MIDI output selected",
		c.logger.Field().Int("deviceID", deviceID),
		c.logger.Field().String("deviceName", out.String()))
	return nil
}

// StartCapture begins delivering framed messages to eventChannel.
func (c *Client) StartCapture(eventChannel chan contracts.MIDI) {
	if eventChannel == nil {
		c.logger.Error("StartCapture called with nil eventChannel")
		return
	}
	c.logger.Info("Starting MIDI event capture")
	c.session.Start(eventChannel)
}

// Send writes data to the selected output in packets stamped with the
// monotonic clock.
func (c *Client) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.out == nil {
		return contracts.ErrNoOutputSelected
	}
	return bridge.Transmit(c.packetizer, data, c.sendPacket)
}

// SendAt writes data to the selected output. gomidi drivers send
// immediately, so timestamp only labels the packets.
func (c *Client) SendAt(data []byte, timestamp uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.out == nil {
		return contracts.ErrNoOutputSelected
	}
	return bridge.TransmitAt(c.packetizer, data, timestamp, c.sendPacket)
}

func (c *Client) sendPacket(pkt framing.Packet) error {
	return c.out.Send(pkt.Data)
}

// Stop stops listening and closes both ports.
func (c *Client) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.closeInput()
	if c.out != nil {
		err = multierr.Append(err, c.out.Close())
		c.out = nil
	}
	c.session.Stop()
	c.logger.Info("MIDI capture stopped", c.logger.Field().Uint64("dropped", c.session.Dropped()))
	return err
}

// closeInput stops the listener, closes the port and resets the session so
// no partial message or running status reaches the next input.
func (c *Client) closeInput() error {
	if c.in == nil {
		return nil
	}
	if c.stopListen != nil {
		c.stopListen()
		c.stopListen = nil
	}
	err := c.in.Close()
	c.in = nil
	c.session.Reset()
	return err
}
