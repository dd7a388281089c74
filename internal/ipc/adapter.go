// Package ipc implements the engine-facing transport adapters: a
// line-oriented stdio adapter, a stdio variant that tolerates a
// "not-acceptable" sentinel and a "quit" terminator, and a paired-message
// adapter over a WebSocket connection. All three satisfy the same
// IngressSource/EgressSink pair so internal/vsmengine can swap transports
// without changing its run loop.
package ipc

import "context"

// Message is one signal update crossing the wire, either inbound (ingress)
// or outbound (emitted egress). RawLexeme is the literal text of the value
// exactly as received or exactly as it should be written, so the engine's
// trace lines can reproduce it verbatim.
type Message struct {
	Name      string
	RawLexeme string
}

// IngressSource delivers inbound signal updates to the engine. Listen may
// be called only after Connect; the returned channel is closed when ctx is
// canceled or the underlying transport reaches EOF/termination.
type IngressSource interface {
	Connect(ctx context.Context) error
	Listen(ctx context.Context) (<-chan Message, error)
	Close() error
}

// EgressSink delivers emitted signal updates outward. Send is called once
// per emission, in the order the Emitter produced them.
type EgressSink interface {
	Connect(ctx context.Context) error
	Send(ctx context.Context, msg Message) error
	Close() error
}
