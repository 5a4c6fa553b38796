package contracts

import (
	gomidi "gitlab.com/gomidi/midi/v2"
)

// MIDI is one complete message reconstructed from a transport byte stream.
type MIDI struct {
	Timestamp uint64 // Transport timestamp of the read that completed the message.
	Data      []byte // Status byte followed by data bytes, or a full F0..F7 SysEx frame.
}

// Status returns the leading status byte, or 0 for an empty message.
func (m MIDI) Status() byte {
	if len(m.Data) == 0 {
		return 0
	}
	return m.Data[0]
}

// Command returns the message type used for filtering: the high nibble for
// channel messages and the full status byte for system messages.
func (m MIDI) Command() MIDICommand {
	status := m.Status()
	if status >= 0xF0 {
		return MIDICommand(status)
	}
	return MIDICommand(status & 0xF0)
}

// Channel returns the zero-based channel of a channel message.
func (m MIDI) Channel() (byte, bool) {
	status := m.Status()
	if status < 0x80 || status >= 0xF0 {
		return 0, false
	}
	return status & 0x0F, true
}

// IsSysEx reports whether the message is a System Exclusive frame.
func (m MIDI) IsSysEx() bool {
	return m.Status() == byte(SysEx)
}

// String renders the message the way gomidi describes it.
func (m MIDI) String() string {
	return gomidi.Message(m.Data).String()
}

// ClientMIDI defines an interface for MIDI client operations.
type ClientMIDI interface {
	Stop() error                                // Stops the MIDI client and releases resources.
	ListDevices() ([]DeviceInfo, error)         // Lists all available MIDI input endpoints.
	SelectDevice(deviceID int) error            // Connects the input endpoint with the given ID.
	StartCapture(eventChannel chan MIDI)        // Delivers framed messages to eventChannel.
	ListOutputs() ([]DeviceInfo, error)         // Lists all available MIDI output endpoints.
	SelectOutput(deviceID int) error            // Opens the output endpoint with the given ID.
	Send(data []byte) error                     // Sends data stamped with the current time.
	SendAt(data []byte, timestamp uint64) error // Sends data stamped with timestamp.
}
