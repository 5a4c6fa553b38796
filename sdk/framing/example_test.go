package framing_test

import (
	"fmt"

	"github.com/leandrodaf/midiframe/sdk/framing"
)

func ExampleFramer() {
	f := framing.NewFramer(func(msg []byte, ts uint64) {
		fmt.Printf("% X @%d\n", msg, ts)
	})

	// Note On with running status, split across two transport reads.
	f.Feed([]byte{0x90, 0x3C}, 1)
	f.Feed([]byte{0x64, 0x40, 0x7F}, 2)

	// Output:
	// 90 3C 64 @2
	// 90 40 7F @2
}

func ExamplePacketizer_ChunkAt() {
	p := framing.NewPacketizer(framing.WithMaxPacketSize(4))
	for pkt := range p.ChunkAt([]byte{0xF0, 0x7D, 0x01, 0x02, 0x03, 0xF7}, 500) {
		fmt.Printf("% X @%d\n", pkt.Data, pkt.Timestamp)
	}

	// Output:
	// F0 7D 01 02 @500
	// 03 F7 @500
}
