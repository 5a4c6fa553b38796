package bridge

import (
	"fmt"
	"iter"

	"github.com/leandrodaf/midiframe/sdk/framing"
)

// SendFunc hands one packet to the platform send primitive.
type SendFunc func(packet framing.Packet) error

// Transmit splits data with p, stamping every packet with the packetizer's
// clock, and sends the packets in order. It stops at the first send error.
func Transmit(p *framing.Packetizer, data []byte, send SendFunc) error {
	return sendAll(p.Chunk(data), send)
}

// TransmitAt is Transmit with an explicit timestamp.
func TransmitAt(p *framing.Packetizer, data []byte, timestamp uint64, send SendFunc) error {
	return sendAll(p.ChunkAt(data, timestamp), send)
}

func sendAll(packets iter.Seq[framing.Packet], send SendFunc) error {
	i := 0
	for pkt := range packets {
		if err := send(pkt); err != nil {
			return fmt.Errorf("send packet %d (%d bytes): %w", i, len(pkt.Data), err)
		}
		i++
	}
	return nil
}
