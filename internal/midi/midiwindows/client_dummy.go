//go:build !windows
// +build !windows

package midiwindows

import (
	"github.com/leandrodaf/midiframe/sdk/contracts"
)

type dummyMIDIClient struct {
	logger contracts.Logger
}

// NewMIDIClient initializes a dummy MIDI client for non-Windows systems.
func NewMIDIClient(options *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	options.Logger.Info("Using dummy MIDI client for non-Windows system")
	return &dummyMIDIClient{
		logger: options.Logger,
	}, nil
}

// ListDevices logs a warning and reports that MIDI is unavailable on this platform.
func (m *dummyMIDIClient) ListDevices() ([]contracts.DeviceInfo, error) {
	m.logger.Warn("ListDevices called on dummy MIDI client")
	return nil, contracts.ErrUnavailable
}

// SelectDevice logs a warning and reports that MIDI is unavailable on this platform.
func (m *dummyMIDIClient) SelectDevice(deviceID int) error {
	m.logger.Warn("SelectDevice called on dummy MIDI client")
	return contracts.ErrUnavailable
}

// StartCapture logs a warning indicating that StartCapture was called on the dummy MIDI client.
func (m *dummyMIDIClient) StartCapture(eventChannel chan contracts.MIDI) {
	m.logger.Warn("StartCapture called on dummy MIDI client")
}

func (m *dummyMIDIClient) ListOutputs() ([]contracts.DeviceInfo, error) {
	m.logger.Warn("ListOutputs called on dummy MIDI client")
	return nil, contracts.ErrUnavailable
}

func (m *dummyMIDIClient) SelectOutput(deviceID int) error {
	m.logger.Warn("SelectOutput called on dummy MIDI client")
	return contracts.ErrUnavailable
}

func (m *dummyMIDIClient) Send(data []byte) error {
	return contracts.ErrUnavailable
}

func (m *dummyMIDIClient) SendAt(data []byte, timestamp uint64) error {
	return contracts.ErrUnavailable
}

// Stop logs a warning indicating that Stop was called on the dummy MIDI client.
func (m *dummyMIDIClient) Stop() error {
	m.logger.Warn("Stop called on dummy MIDI client")
	return nil
}
