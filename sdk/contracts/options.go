package contracts

// MIDICommand represents the types of MIDI commands for event filtering.
// Channel messages are identified by their high nibble, system messages by
// their full status byte.
type MIDICommand byte

const (
	// NoteOff is the MIDI command for a Note Off event (0x80).
	NoteOff MIDICommand = 0x80
	// NoteOn is the MIDI command for a Note On event (0x90).
	NoteOn MIDICommand = 0x90
	// PolyAftertouch is the polyphonic key pressure command (0xA0).
	PolyAftertouch MIDICommand = 0xA0
	// ControlChange is the control change command (0xB0).
	ControlChange MIDICommand = 0xB0
	// ProgramChange is the program change command (0xC0).
	ProgramChange MIDICommand = 0xC0
	// ChannelPressure is the channel pressure command (0xD0).
	ChannelPressure MIDICommand = 0xD0
	// PitchBend is the pitch bend command (0xE0).
	PitchBend MIDICommand = 0xE0

	// SysEx is a System Exclusive frame, 0xF0 through 0xF7.
	SysEx MIDICommand = 0xF0
	// TimeCode is a MIDI Time Code quarter frame (0xF1).
	TimeCode MIDICommand = 0xF1
	// SongPosition is the song position pointer (0xF2).
	SongPosition MIDICommand = 0xF2
	// SongSelect is the song select message (0xF3).
	SongSelect MIDICommand = 0xF3
	// TuneRequest asks analog synthesizers to tune their oscillators (0xF6).
	TuneRequest MIDICommand = 0xF6
	// TimingClock is sent 24 times per quarter note (0xF8).
	TimingClock MIDICommand = 0xF8
	// Start starts the current sequence (0xFA).
	Start MIDICommand = 0xFA
	// Continue resumes the sequence where it stopped (0xFB).
	Continue MIDICommand = 0xFB
	// Stop stops the current sequence (0xFC).
	Stop MIDICommand = 0xFC
	// ActiveSense is the active sensing keep-alive (0xFE).
	ActiveSense MIDICommand = 0xFE
	// SystemReset resets receivers to their power-up state (0xFF).
	SystemReset MIDICommand = 0xFF
)

// MIDIEventFilter allows users to specify which MIDI commands to capture.
type MIDIEventFilter struct {
	Commands []MIDICommand // List of MIDI commands to filter.
}

// Allows reports whether cmd passes the filter. A nil filter allows everything.
func (f *MIDIEventFilter) Allows(cmd MIDICommand) bool {
	if f == nil {
		return true
	}
	for _, allowed := range f.Commands {
		if cmd == allowed {
			return true
		}
	}
	return false
}

// CoreMIDIConfig holds configuration for CoreMIDI.
type CoreMIDIConfig struct {
	ClientName string // Name of the MIDI client.
}

// ClientOptions defines the configuration options for the MIDI client.
type ClientOptions struct {
	Logger          Logger           // Logger for logging events and errors.
	LogLevel        LogLevel         // Level of logging to use.
	LogFilePath     string           // File path for logging if file logging is enabled.
	MIDIEventFilter *MIDIEventFilter // Optional filter for MIDI events to capture.
	CoreMIDIConfig  *CoreMIDIConfig  // Configuration specific to CoreMIDI.
	MaxPacketSize   int              // Payload ceiling for outbound packets.
}

// Option is a function that modifies ClientOptions.
type Option func(*ClientOptions)

// WithLogger sets the logger for the MIDI client.
func WithLogger(l Logger) Option {
	return func(opts *ClientOptions) {
		opts.Logger = l
	}
}

// WithLogLevel sets the logging level for the MIDI client.
func WithLogLevel(level LogLevel) Option {
	return func(opts *ClientOptions) {
		opts.LogLevel = level
	}
}

// WithLogFile directs log output to path.
func WithLogFile(path string) Option {
	return func(opts *ClientOptions) {
		opts.LogFilePath = path
	}
}

// WithMIDIEventFilter sets the MIDI event filter for the MIDI client.
func WithMIDIEventFilter(filter MIDIEventFilter) Option {
	return func(opts *ClientOptions) {
		opts.MIDIEventFilter = &filter
	}
}

// WithCoreMIDIConfig sets the CoreMIDI configuration for the MIDI client.
func WithCoreMIDIConfig(config CoreMIDIConfig) Option {
	return func(opts *ClientOptions) {
		opts.CoreMIDIConfig = &config
	}
}

// WithMaxPacketSize sets the payload ceiling used to split outbound data.
func WithMaxPacketSize(n int) Option {
	return func(opts *ClientOptions) {
		opts.MaxPacketSize = n
	}
}
