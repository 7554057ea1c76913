package signal

import (
	"time"

	"github.com/gorilla/websocket"
)

const internalCloseReason = "internal error"

func (c *WsSignalConn) Close() {
	c.closeWith(websocket.CloseNormalClosure, "")
}

// ClosePolicy closes with 1008 so rejected joins learn nothing else.
func (c *WsSignalConn) ClosePolicy(reason string) {
	c.closeWith(websocket.ClosePolicyViolation, reason)
}

func (c *WsSignalConn) CloseInternal() {
	c.closeWith(websocket.CloseInternalServerErr, internalCloseReason)
}

// closeWith sends a close frame best-effort and releases the socket.
// WriteControl may run concurrently with writePump.
func (c *WsSignalConn) closeWith(code int, reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.opts.WriteWait))
	_ = c.conn.Close()
}
