package midi

import (
	"fmt"
	"runtime"

	"github.com/leandrodaf/midiframe/sdk/contracts"
)

// NewMIDIClient creates a MIDI client for the current operating system.
// Unset options fall back to DefaultOptions.
//
// Inbound bytes are reassembled into complete messages (running status and
// SysEx included) before they reach the channel given to StartCapture.
// Outbound data passed to Send is split into packets of at most
// MaxPacketSize bytes.
func NewMIDIClient(opts ...contracts.Option) (contracts.ClientMIDI, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}

	client, err := NewClient(&options)
	if err != nil {
		return nil, fmt.Errorf("create MIDI client for %s: %w", runtime.GOOS, err)
	}

	options.Logger.Debug("MIDI client ready",
		options.Logger.Field().String("os", runtime.GOOS),
		options.Logger.Field().Int("maxPacketSize", options.MaxPacketSize))
	return client, nil
}

// DefaultOptions returns the options NewMIDIClient uses after applying opts.
func DefaultOptions(opts ...contracts.Option) (contracts.ClientOptions, error) {
	return applyDefaultOptions(opts...)
}
