//go:build darwin
// +build darwin

package mididarwin

// #include <mach/mach_time.h>
import "C"

// hostTime returns the current CoreMIDI host time, the clock MIDIPacket
// timestamps are expressed in.
func hostTime() uint64 {
	return uint64(C.mach_absolute_time())
}
