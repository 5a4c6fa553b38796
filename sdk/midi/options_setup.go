package midi

import (
	"github.com/leandrodaf/midiframe/internal/logger"
	"github.com/leandrodaf/midiframe/sdk/contracts"
	"github.com/leandrodaf/midiframe/sdk/framing"
)

// DefaultClientName names the CoreMIDI client when none is configured.
const DefaultClientName = "GO MIDI Client"

// applyDefaultOptions sets default values for ClientOptions if not explicitly provided.
//
// opts ...contracts.Option: A variadic list of option functions that can modify ClientOptions.
//
// Returns:
//   - contracts.ClientOptions: A structure containing the finalized client options with defaults applied.
//   - error: An error if there was an issue applying the options.
func applyDefaultOptions(opts ...contracts.Option) (contracts.ClientOptions, error) {
	options := &contracts.ClientOptions{}
	for _, opt := range opts {
		opt(options)
	}

	// Set defaults if options are not provided
	if options.Logger == nil {
		options.Logger = logger.NewZapLogger()
	}
	if options.LogLevel == 0 {
		options.LogLevel = contracts.InfoLevel
	}
	if options.CoreMIDIConfig == nil || options.CoreMIDIConfig.ClientName == "" {
		options.CoreMIDIConfig = &contracts.CoreMIDIConfig{ClientName: DefaultClientName}
	}
	if options.MaxPacketSize <= 0 {
		options.MaxPacketSize = framing.DefaultMaxPacketSize
	}

	options.Logger.SetLevel(options.LogLevel)
	if options.LogFilePath != "" {
		options.Logger.SetDestination(contracts.FileLog, options.LogFilePath)
	}
	return *options, nil
}
