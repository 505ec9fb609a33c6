package led

import "github.com/coreman2200/funtimes-stripdriver/internal/channel"

// Transport pushes one channel's frame onto its wire.
type Transport interface {
	// Transmit sends rgb, 3 scaled bytes per pixel in buffer order, and
	// latches it. It returns once the frame is fully on the wire.
	Transmit(ch *channel.Channel, rgb []byte) error
	// Close releases resources.
	Close() error
}
