package signal

import (
	"errors"
	"io"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// prepareRead arms the heartbeat: every pong pushes the read deadline out,
// so a peer that stops answering pings fails its next read.
func (c *WsSignalConn) prepareRead() {
	c.conn.SetReadLimit(c.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})
}

// ReadFrame returns the next text or binary message.
func (c *WsSignalConn) ReadFrame() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		logReadError(err)
		return nil, err
	}
	return data, nil
}

// writePump is the only writer of data frames and pings.
func (c *WsSignalConn) writePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait)); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteWait)); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump ping error")
				return
			}
		}
	}
}

func logReadError(err error) {
	switch {
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		log.Debug().Err(err).Str("module", "signal").Msg("peer closed")
	case errors.Is(err, websocket.ErrReadLimit):
		log.Warn().Err(err).Str("module", "signal").Msg("frame exceeds read limit")
	case errors.Is(err, io.EOF), websocket.IsUnexpectedCloseError(err):
		log.Debug().Err(err).Str("module", "signal").Msg("connection dropped")
	default:
		log.Debug().Err(err).Str("module", "signal").Msg("read error")
	}
}
