package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// receiveTimeout bounds how long a single WebSocket read may block before
// the adapter gives the engine loop a chance to check for shutdown.
const receiveTimeout = 200 * time.Millisecond

// wireMessage is the JSON frame exchanged over the WebSocket connection in
// both directions: one name/value signal update per frame.
type wireMessage struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// WebSocketAdapter implements IngressSource and EgressSink over a single
// gorilla/websocket connection, reading with a bounded deadline so Listen's
// goroutine never blocks the engine's shutdown past receiveTimeout.
type WebSocketAdapter struct {
	url string

	mu      sync.Mutex
	conn    *websocket.Conn
	inbound chan Message
}

// NewWebSocket creates an adapter that dials url on Connect.
func NewWebSocket(url string) *WebSocketAdapter {
	return &WebSocketAdapter{url: url}
}

// Connect dials the WebSocket endpoint.
func (a *WebSocketAdapter) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, a.url, nil)
	if err != nil {
		return fmt.Errorf("ipc: websocket dial %s: %w", a.url, err)
	}
	a.mu.Lock()
	a.conn = conn
	a.mu.Unlock()
	return nil
}

// Listen reads JSON frames off the connection until ctx is canceled or the
// connection closes, decoding each into a Message. A read that times out
// after receiveTimeout is retried rather than treated as an error, so the
// loop can observe ctx.Done promptly.
func (a *WebSocketAdapter) Listen(ctx context.Context) (<-chan Message, error) {
	a.inbound = make(chan Message, 16)
	go func() {
		defer close(a.inbound)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			a.conn.SetReadDeadline(time.Now().Add(receiveTimeout))
			_, data, err := a.conn.ReadMessage()
			if err != nil {
				if ne, ok := err.(interface{ Timeout() bool }); ok && ne.Timeout() {
					continue
				}
				return
			}

			var wm wireMessage
			if err := json.Unmarshal(data, &wm); err != nil {
				continue
			}
			select {
			case a.inbound <- Message{Name: wm.Name, RawLexeme: wm.Value}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return a.inbound, nil
}

// Send writes one JSON frame for msg.
func (a *WebSocketAdapter) Send(ctx context.Context, msg Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn.WriteJSON(wireMessage{Name: msg.Name, Value: msg.RawLexeme})
}

// Close closes the underlying WebSocket connection.
func (a *WebSocketAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return nil
	}
	return a.conn.Close()
}
