// Package config loads midimon settings from a TOML file and the environment.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/leandrodaf/midiframe/sdk/contracts"
	"github.com/leandrodaf/midiframe/sdk/framing"
)

// Environment overrides applied after the file.
const (
	EnvLogLevel = "MIDIFRAME_LOG_LEVEL"
	EnvLogFile  = "MIDIFRAME_LOG_FILE"
)

// Config is the runtime configuration of a MIDI client and its capture loop.
type Config struct {
	ClientName    string
	LogLevel      contracts.LogLevel
	LogFile       string
	MaxPacketSize int
	InputDevice   int // -1 disables capture
	OutputDevice  int // -1 disables sending
	BufferSize    int
	Filter        []contracts.MIDICommand
}

// fileConfig maps midimon.toml keys to Config.
type fileConfig struct {
	ClientName    string   `toml:"client_name"`
	LogLevel      string   `toml:"log_level"`
	LogFile       string   `toml:"log_file"`
	MaxPacketSize int      `toml:"max_packet_size"`
	InputDevice   int      `toml:"input_device"`
	OutputDevice  int      `toml:"output_device"`
	BufferSize    int      `toml:"buffer_size"`
	Filter        []string `toml:"filter"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		ClientName:    "GO MIDI Client",
		LogLevel:      contracts.InfoLevel,
		MaxPacketSize: framing.DefaultMaxPacketSize,
		InputDevice:   0,
		OutputDevice:  -1,
		BufferSize:    100,
	}
}

// Load overlays the keys defined in the TOML file at path onto Default, then
// applies environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		var raw fileConfig
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return Config{}, fmt.Errorf("load midimon config: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("load midimon config: unknown key %q", undecoded[0].String())
		}

		if meta.IsDefined("client_name") {
			cfg.ClientName = strings.TrimSpace(raw.ClientName)
		}
		if meta.IsDefined("log_level") {
			level, err := contracts.ParseLogLevel(raw.LogLevel)
			if err != nil {
				return Config{}, fmt.Errorf("load midimon config: %w", err)
			}
			cfg.LogLevel = level
		}
		if meta.IsDefined("log_file") {
			cfg.LogFile = strings.TrimSpace(raw.LogFile)
		}
		if meta.IsDefined("max_packet_size") {
			cfg.MaxPacketSize = raw.MaxPacketSize
		}
		if meta.IsDefined("input_device") {
			cfg.InputDevice = raw.InputDevice
		}
		if meta.IsDefined("output_device") {
			cfg.OutputDevice = raw.OutputDevice
		}
		if meta.IsDefined("buffer_size") {
			cfg.BufferSize = raw.BufferSize
		}
		if meta.IsDefined("filter") {
			filter, err := ParseFilter(raw.Filter)
			if err != nil {
				return Config{}, fmt.Errorf("load midimon config: %w", err)
			}
			cfg.Filter = filter
		}
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		level, err := contracts.ParseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
		cfg.LogLevel = level
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		cfg.LogFile = strings.TrimSpace(v)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values no client could run with.
func (c Config) Validate() error {
	if c.MaxPacketSize <= 0 {
		return fmt.Errorf("max_packet_size must be positive, got %d", c.MaxPacketSize)
	}
	if c.BufferSize < 0 {
		return fmt.Errorf("buffer_size must not be negative, got %d", c.BufferSize)
	}
	if c.InputDevice < -1 || c.OutputDevice < -1 {
		return fmt.Errorf("device ids must be -1 or greater, got input=%d output=%d", c.InputDevice, c.OutputDevice)
	}
	return nil
}

// Options converts the configuration into client options.
func (c Config) Options() []contracts.Option {
	opts := []contracts.Option{
		contracts.WithLogLevel(c.LogLevel),
		contracts.WithCoreMIDIConfig(contracts.CoreMIDIConfig{ClientName: c.ClientName}),
		contracts.WithMaxPacketSize(c.MaxPacketSize),
	}
	if c.LogFile != "" {
		opts = append(opts, contracts.WithLogFile(c.LogFile))
	}
	if len(c.Filter) > 0 {
		opts = append(opts, contracts.WithMIDIEventFilter(contracts.MIDIEventFilter{Commands: c.Filter}))
	}
	return opts
}

var commands = map[string]contracts.MIDICommand{
	"note_off":         contracts.NoteOff,
	"note_on":          contracts.NoteOn,
	"poly_aftertouch":  contracts.PolyAftertouch,
	"control_change":   contracts.ControlChange,
	"program_change":   contracts.ProgramChange,
	"channel_pressure": contracts.ChannelPressure,
	"pitch_bend":       contracts.PitchBend,
	"sysex":            contracts.SysEx,
	"time_code":        contracts.TimeCode,
	"song_position":    contracts.SongPosition,
	"song_select":      contracts.SongSelect,
	"tune_request":     contracts.TuneRequest,
	"timing_clock":     contracts.TimingClock,
	"start":            contracts.Start,
	"continue":         contracts.Continue,
	"stop":             contracts.Stop,
	"active_sense":     contracts.ActiveSense,
	"system_reset":     contracts.SystemReset,
}

// ParseFilter maps command names such as "note_on" to MIDI commands.
func ParseFilter(names []string) ([]contracts.MIDICommand, error) {
	out := make([]contracts.MIDICommand, 0, len(names))
	for _, name := range names {
		cmd, ok := commands[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown MIDI command %q", name)
		}
		out = append(out, cmd)
	}
	return out, nil
}
