// Package framing turns raw MIDI 1.0 byte streams into discrete messages and
// splits outbound buffers into bounded wire packets.
//
// A Framer is fed bytes exactly as a transport delivers them: any chunk
// boundary, any length, possibly mid-message. It reconstructs complete
// channel, system common, realtime and System Exclusive messages, carrying
// running status across calls, and hands each one to a Handler as soon as it
// is complete.
//
// A Packetizer is the send-side counterpart. It partitions a buffer into
// packets of at most MaxSize bytes that all share one timestamp.
//
// Neither type performs I/O, locks, or returns errors. Malformed input is
// recovered from silently: unknown status bytes are dropped, data bytes
// without a running status are dropped, and a SysEx frame interrupted by a
// new 0xF0 is closed with a synthetic 0xF7.
package framing
