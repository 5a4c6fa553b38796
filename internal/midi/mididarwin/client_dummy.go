//go:build !darwin
// +build !darwin

package mididarwin

import (
	"github.com/leandrodaf/midiframe/sdk/contracts"
)

type DummyMIDIClient struct {
	logger contracts.Logger
}

func NewMIDIClient(options *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	options.Logger.Info("Using dummy MIDI client for non-macOS system")
	return &DummyMIDIClient{
		logger: options.Logger,
	}, nil
}

func (m *DummyMIDIClient) ListDevices() ([]contracts.DeviceInfo, error) {
	m.logger.Warn("ListDevices called on dummy MIDI client")
	return nil, contracts.ErrUnavailable
}

func (m *DummyMIDIClient) SelectDevice(deviceID int) error {
	m.logger.Warn("SelectDevice called on dummy MIDI client")
	return contracts.ErrUnavailable
}

func (m *DummyMIDIClient) StartCapture(eventChannel chan contracts.MIDI) {
	m.logger.Warn("StartCapture called on dummy MIDI client")
}

func (m *DummyMIDIClient) ListOutputs() ([]contracts.DeviceInfo, error) {
	m.logger.Warn("ListOutputs called on dummy MIDI client")
	return nil, contracts.ErrUnavailable
}

func (m *DummyMIDIClient) SelectOutput(deviceID int) error {
	m.logger.Warn("SelectOutput called on dummy MIDI client")
	return contracts.ErrUnavailable
}

func (m *DummyMIDIClient) Send(data []byte) error {
	return contracts.ErrUnavailable
}

func (m *DummyMIDIClient) SendAt(data []byte, timestamp uint64) error {
	return contracts.ErrUnavailable
}

func (m *DummyMIDIClient) Stop() error {
	m.logger.Warn("Stop called on dummy MIDI client")
	return nil
}
