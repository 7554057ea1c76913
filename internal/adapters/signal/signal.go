package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Nevojt/project-chat-sub000/internal/app"
	"github.com/Nevojt/project-chat-sub000/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Options tune the websocket transport.
type Options struct {
	ReadLimit      int64
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	SendBuffer     int
	AllowedOrigins []string
}

func (o Options) withDefaults() Options {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 32768
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 5 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	return o
}

type SignalWSController struct {
	Orch     *app.Orchestrator
	opts     Options
	upgrader websocket.Upgrader
}

func NewSignalWSController(orch *app.Orchestrator, opts Options) *SignalWSController {
	opts = opts.withDefaults()
	return &SignalWSController{
		Orch: orch,
		opts: opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(opts.AllowedOrigins),
		},
	}
}

// WsSignalConn is the gorilla/websocket implementation of app.Transport.
// Outbound frames are queued on a bounded channel drained by writePump.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame
	opts Options

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn, opts Options) *WsSignalConn {
	return &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, opts.SendBuffer),
		opts: opts,
	}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// HandleJoin upgrades the request and runs a room session on it until the
// connection ends. ctx is the server lifetime, not the request.
func (ctl *SignalWSController) HandleJoin(ctx context.Context, c *gin.Context, roomRef, token string) {
	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := newWsSignalConn(ws, ctl.opts)
	conn.prepareRead()
	go conn.writePump()

	sess := ctl.Orch.NewSession(conn)
	log.Info().Str("module", "signal").Str("conn", string(sess.ID())).Str("remote", c.ClientIP()).Str("room_ref", roomRef).Msg("new WS connection")
	if err := sess.Run(ctx, roomRef, token); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("conn", string(sess.ID())).Msg("session ended with error")
	}
}

// originChecker accepts any origin only when no allow-list is configured or
// it contains "*". A list whose entries are all invalid rejects every
// cross-site request.
func originChecker(allowed []string) func(r *http.Request) bool {
	origins, allowAll := normalizeOrigins(allowed)
	if !configured(allowed) {
		allowAll = true
	} else if len(origins) == 0 && !allowAll {
		log.Warn().Str("module", "signal").Strs("allowed_origins", allowed).Msg("no valid allowed origin, cross-origin joins are rejected")
	}
	set := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		normalized, ok := normalizeOrigin(origin)
		if !ok {
			return false
		}
		_, exists := set[normalized]
		return exists
	}
}
