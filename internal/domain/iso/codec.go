package iso

import "context"

// Codec translates between raw wire bytes and decoded messages.
// Implementations live in the connection layer; the switch core only
// consumes decoded messages and hands back messages to encode.
type Codec interface {
	Decode(raw []byte) (*Message, error)
	Encode(msg *Message) ([]byte, error)
}

// Source is an opaque handle to the connection a request arrived on.
// Responses must be sent back through the exact source that carried the
// request, never broadcast or routed to another connection.
type Source interface {
	// Send delivers a response message to the originating connection.
	Send(ctx context.Context, msg *Message) error

	// ID identifies the connection for logging. It carries no routing
	// meaning inside the core.
	ID() string
}
