package contracts

import "errors"

// Errors shared by every platform client.
var (
	ErrNoMIDIDevices     = errors.New("no MIDI devices found")
	ErrInvalidMIDIDevice = errors.New("invalid MIDI device")
	ErrNoOutputSelected  = errors.New("no MIDI output selected")
	ErrUnavailable       = errors.New("MIDI functionality is not available on this platform")
)
