package midi

import (
	"runtime"

	"github.com/leandrodaf/midiframe/internal/midi/mididarwin"
	"github.com/leandrodaf/midiframe/internal/midi/midiport"
	"github.com/leandrodaf/midiframe/internal/midi/midiwindows"
	"github.com/leandrodaf/midiframe/sdk/contracts"
)

// clientInitializers maps OS names to native MIDI client initializers.
var clientInitializers = map[string]func(*contracts.ClientOptions) (contracts.ClientMIDI, error){
	"darwin":  mididarwin.NewMIDIClient,  // macOS (Darwin) CoreMIDI client initializer.
	"windows": midiwindows.NewMIDIClient, // Windows winmm client initializer.
}

// fallbackInitializer serves every other OS through the registered gomidi driver.
var fallbackInitializer = midiport.NewMIDIClient

// NewClient initializes a MIDI client based on the current operating system.
// macOS and Windows use their native APIs; any other OS uses the gomidi
// driver the program registered, for example by importing
// gitlab.com/gomidi/midi/v2/drivers/rtmididrv.
//
// opts *contracts.ClientOptions: Configuration options for the MIDI client.
//
// Returns:
//   - contracts.ClientMIDI: An instance of the MIDI client.
//   - error: An error if initialization fails.
func NewClient(opts *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	return initializerFor(runtime.GOOS)(opts)
}

func initializerFor(goos string) func(*contracts.ClientOptions) (contracts.ClientMIDI, error) {
	if initializer, exists := clientInitializers[goos]; exists {
		return initializer
	}
	return fallbackInitializer
}
