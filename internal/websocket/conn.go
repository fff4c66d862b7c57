package websocket

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	PingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// PayloadError reports a client frame that is not a valid Request. The
// connection stays usable.
type PayloadError struct {
	Err error
}

func (e *PayloadError) Error() string { return fmt.Sprintf("invalid payload: %v", e.Err) }
func (e *PayloadError) Unwrap() error { return e.Err }

// Conn wraps a gorilla connection so several goroutines can write to it.
// Reads must stay on a single goroutine.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

// NewConn applies the read limit and keepalive deadlines to ws.
func NewConn(ws *websocket.Conn) *Conn {
	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	return &Conn{ws: ws}
}

// WriteTyped sends a strongly-typed payload as JSON.
func (c *Conn) WriteTyped(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(v)
}

// WriteError sends an error event with a machine-readable code.
func (c *Conn) WriteError(code, message string) error {
	return c.WriteTyped(ErrorResponse{
		Event: EventError,
		Data:  ErrorData{Code: code, Message: message},
	})
}

// Ping sends a control ping; the pong handler extends the read deadline.
func (c *Conn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// ReadRequest blocks for the next client message. Any client message also
// counts as liveness. A malformed frame yields a *PayloadError.
func (c *Conn) ReadRequest() (*Request, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, &PayloadError{Err: err}
	}
	return &req, nil
}

// Close sends a normal close frame and closes the connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.mu.Unlock()
	return c.ws.Close()
}

// IsUnexpectedClose reports read errors worth logging as warnings.
func IsUnexpectedClose(err error) bool {
	return websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure)
}
