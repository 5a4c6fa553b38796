//go:build darwin
// +build darwin

package mididarwin

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/leandrodaf/midiframe/internal/midi/bridge"
	"github.com/leandrodaf/midiframe/sdk/contracts"
	"github.com/leandrodaf/midiframe/sdk/framing"
	"github.com/youpy/go-coremidi"
)

// Error definitions for CoreMIDI connection issues.
var (
	ErrMIDIConnectionError = errors.New("error connecting to MIDI device")
	ErrCreateInputPort     = errors.New("error creating input port")
	ErrCreateOutputPort    = errors.New("error creating output port")
)

// internalPortConnection is an interface for handling disconnection from a MIDI port.
type internalPortConnection interface {
	Disconnect()
}

// connection pairs the selected source with the session input its packets
// feed.
type connection struct {
	source coremidi.Source
	input  *bridge.Input
}

// ClientMid manages MIDI operations on Darwin (macOS) systems.
// CoreMIDI packets are fed to a bridge.Session, which reassembles messages
// that CoreMIDI split across packets or packed into one.
type ClientMid struct {
	logger         contracts.Logger
	client         coremidi.Client        // CoreMIDI client instance for MIDI operations.
	inputPort      *coremidi.InputPort    // Created by the first SelectDevice and reused.
	portConn       internalPortConnection // Connection to the selected source.
	active         atomic.Pointer[connection]
	outputPort     *coremidi.OutputPort   // Created lazily by SelectOutput.
	destination    *coremidi.Destination  // Selected output endpoint.
	session        *bridge.Session
	packetizer     *framing.Packetizer
	coreMIDIConfig *contracts.CoreMIDIConfig
	mu             sync.Mutex
}

// NewMIDIClient initializes a new ClientMid for handling MIDI events on macOS.
func NewMIDIClient(options *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	client, err := coremidi.NewClient(options.CoreMIDIConfig.ClientName)
	if err != nil {
		return nil, err
	}
	options.Logger.Info("MIDI client successfully created",
		options.Logger.Field().String("clientName", options.CoreMIDIConfig.ClientName))

	return &ClientMid{
		logger:  options.Logger,
		client:  client,
		session: bridge.NewSession(options.Logger, options.MIDIEventFilter),
		packetizer: framing.NewPacketizer(
			framing.WithMaxPacketSize(options.MaxPacketSize),
			framing.WithClock(hostTime),
		),
		coreMIDIConfig: options.CoreMIDIConfig,
	}, nil
}

// ListDevices retrieves and returns available MIDI sources.
func (m *ClientMid) ListDevices() ([]contracts.DeviceInfo, error) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI sources: %w", err)
	}
	if len(sources) == 0 {
		m.logger.Warn(contracts.ErrNoMIDIDevices.Error())
		return nil, contracts.ErrNoMIDIDevices
	}

	devices := make([]contracts.DeviceInfo, len(sources))
	for i, source := range sources {
		entity := source.Entity()
		devices[i] = contracts.DeviceInfo{
			ID:           i,
			Name:         source.Name(),
			EntityName:   entity.Name(),
			Manufacturer: entity.Manufacturer(),
		}
	}
	return devices, nil
}

// ListOutputs retrieves and returns available MIDI destinations.
func (m *ClientMid) ListOutputs() ([]contracts.DeviceInfo, error) {
	destinations, err := coremidi.AllDestinations()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI destinations: %w", err)
	}
	if len(destinations) == 0 {
		return nil, contracts.ErrNoMIDIDevices
	}

	devices := make([]contracts.DeviceInfo, len(destinations))
	for i, destination := range destinations {
		entity := destination.Entity()
		devices[i] = contracts.DeviceInfo{
			ID:           i,
			Name:         destination.Name(),
			EntityName:   entity.Name(),
			Manufacturer: entity.Manufacturer(),
		}
	}
	return devices, nil
}

// SelectDevice connects to the source with the given ID, disconnecting any
// previously selected source.
func (m *ClientMid) SelectDevice(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sources, err := coremidi.AllSources()
	if err != nil {
		return fmt.Errorf("error retrieving MIDI sources: %w", err)
	}
	if deviceID < 0 || deviceID >= len(sources) {
		m.logger.Error(contracts.ErrInvalidMIDIDevice.Error(), m.logger.Field().Int("deviceID", deviceID))
		return contracts.ErrInvalidMIDIDevice
	}

	m.disconnect()

	source := sources[deviceID]
	m.logger.Info("MIDI device selected",
		m.logger.Field().Int("deviceID", deviceID),
		m.logger.Field().String("deviceName", source.Name()))

	if m.inputPort == nil {
		port, err := coremidi.NewInputPort(m.client, "Input Port", m.handlePacket)
		if err != nil {
			m.logger.Error(ErrCreateInputPort.Error(), m.logger.Field().Error("error", err))
			return fmt.Errorf("%w: %v", ErrCreateInputPort, err)
		}
		m.inputPort = &port
	}

	m.active.Store(&connection{source: source, input: m.session.OpenInput()})
	portConn, err := m.inputPort.Connect(source)
	if err != nil {
		m.disconnect()
		m.logger.Error(ErrMIDIConnectionError.Error(), m.logger.Field().Error("error", err))
		return fmt.Errorf("%w: %v", ErrMIDIConnectionError, err)
	}
	m.portConn = portConn

	m.logger.Info("MIDI device successfully connected")
	return nil
}

// SelectOutput chooses the destination used by Send and SendAt.
func (m *ClientMid) SelectOutput(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	destinations, err := coremidi.AllDestinations()
	if err != nil {
		return fmt.Errorf("error retrieving MIDI destinations: %w", err)
	}
	if deviceID < 0 || deviceID >= len(destinations) {
		return contracts.ErrInvalidMIDIDevice
	}

	if m.outputPort == nil {
		port, err := coremidi.NewOutputPort(m.client, "Output Port")
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCreateOutputPort, err)
		}
		m.outputPort = &port
	}

	destination := destinations[deviceID]
	m.destination = &destination
	m.logger.Info("MIDI output selected",
		m.logger.Field().Int("deviceID", deviceID),
		m.logger.Field().String("deviceName", destination.Name()))
	return nil
}

// handlePacket feeds a CoreMIDI packet from the selected source to the
// session, using the packet's host timestamp. Packets still queued from a
// previously selected source are dropped.
func (m *ClientMid) handlePacket(source coremidi.Source, packet coremidi.Packet) {
	conn := m.active.Load()
	if conn == nil || conn.source != source {
		return
	}
	conn.input.Feed(packet.Data, packet.TimeStamp)
}

// disconnect detaches the selected source and resets the session so nothing
// decoded from it reaches the next source.
func (m *ClientMid) disconnect() {
	if m.portConn != nil {
		m.portConn.Disconnect()
		m.portConn = nil
	}
	m.active.Store(nil)
	m.session.Reset()
}

// StartCapture begins delivering framed messages to eventChannel.
func (m *ClientMid) StartCapture(eventChannel chan contracts.MIDI) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if eventChannel == nil {
		m.logger.Error("StartCapture called with nil eventChannel")
		return
	}

	if m.session.Capturing() {
		m.logger.Warn("Capture already started; replacing event channel")
	}

	m.logger.Info("Starting MIDI event capture")
	m.session.Start(eventChannel)
}

// Send splits data into CoreMIDI packets stamped with the current host time.
func (m *ClientMid) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destination == nil {
		return contracts.ErrNoOutputSelected
	}
	return bridge.Transmit(m.packetizer, data, m.sendPacket)
}

// SendAt splits data into CoreMIDI packets scheduled at host time timestamp.
func (m *ClientMid) SendAt(data []byte, timestamp uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destination == nil {
		return contracts.ErrNoOutputSelected
	}
	return bridge.TransmitAt(m.packetizer, data, timestamp, m.sendPacket)
}

func (m *ClientMid) sendPacket(pkt framing.Packet) error {
	packet := coremidi.NewPacket(pkt.Data, pkt.Timestamp)
	return packet.Send(m.outputPort, m.destination)
}

// Stop halts capture, disconnects from the source, and waits for an in-flight
// packet to finish decoding. Calling Stop more than once is harmless.
func (m *ClientMid) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	capturing := m.session.Capturing()
	m.disconnect()
	m.session.Stop()
	if capturing {
		m.logger.Info("MIDI capture stopped",
			m.logger.Field().Uint64("dropped", m.session.Dropped()))
	}
	m.destination = nil
	return nil
}
