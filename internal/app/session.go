package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Nevojt/project-chat-sub000/internal/core"
	"github.com/Nevojt/project-chat-sub000/internal/domain"
	"github.com/Nevojt/project-chat-sub000/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var errInternal = errors.New("internal session error")

type State int32

const (
	StateConnecting State = iota
	StateAuthenticating
	StateJoined
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateJoined:
		return "joined"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Transport is the streaming endpoint a session runs over.
// Writes go through TrySend; the transport drains them on its own.
type Transport interface {
	core.SignalConnection
	// ReadFrame blocks until the next inbound frame or a transport error.
	ReadFrame() ([]byte, error)
	// ClosePolicy closes the transport with a policy-violation code.
	ClosePolicy(reason string)
	// CloseInternal closes the transport with a generic server-error code.
	CloseInternal()
}

// Session runs one connection through
// connecting -> authenticating -> joined -> closing -> closed.
type Session struct {
	id    core.ConnID
	o     *Orchestrator
	t     Transport
	state atomic.Int32

	user   *domain.User
	room   *domain.Room
	handle *core.Handle
	logger zerolog.Logger

	leaveOnce sync.Once
}

func (o *Orchestrator) NewSession(t Transport) *Session {
	id := core.ConnID(uuid.NewString())
	return &Session{
		id:     id,
		o:      o,
		t:      t,
		logger: log.With().Str("module", "app.session").Str("conn", string(id)).Logger(),
	}
}

func (s *Session) ID() core.ConnID { return s.id }

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) { s.state.Store(int32(st)) }

// Run authenticates the connection, joins it to the room and processes
// inbound frames until the transport fails or ctx is done. Auth failures are
// returned; a normal disconnect returns nil.
func (s *Session) Run(ctx context.Context, roomRef, token string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("session panic")
			s.t.CloseInternal()
			s.leave()
			err = errInternal
		}
	}()

	s.setState(StateAuthenticating)
	if err := s.authenticate(ctx, roomRef, token); err != nil {
		metrics.AuthRejected.WithLabelValues(rejectReason(err)).Inc()
		s.logger.Info().Err(err).Str("room_ref", roomRef).Msg("join rejected")
		s.t.ClosePolicy("")
		s.setState(StateClosed)
		return err
	}

	stop := context.AfterFunc(ctx, s.t.Close)
	defer stop()

	s.join(ctx)
	s.loop(ctx)
	s.leave()
	return nil
}

func (s *Session) authenticate(ctx context.Context, roomRef, token string) error {
	if strings.TrimSpace(token) == "" {
		return core.ErrMissingCredential
	}
	user, err := s.o.Identity.Verify(ctx, token)
	if err != nil {
		return err
	}
	if user == nil {
		return core.ErrInvalidCredential
	}
	room, err := s.o.Guard.ResolveRoom(ctx, roomRef)
	if err != nil {
		return err
	}
	if err := s.o.Guard.CheckJoin(ctx, room, user); err != nil {
		return err
	}
	s.user = user
	s.room = room
	s.logger = s.logger.With().Stringer("room", room.ID).Stringer("user", user.ID).Logger()
	return nil
}

// join registers the connection and queues the history batch. Both happen
// with the room's broadcasts held, so live events always follow the history.
func (s *Session) join(ctx context.Context) {
	s.handle = core.NewHandle(s.id, s.room.ID, s.user.Presence(), s.t)
	s.o.Dispatcher.WithRoom(s.room.ID, func() {
		s.o.Registry.Register(s.room.ID, s.handle)
		s.sendHistory(ctx)
	})
	metrics.ActiveConnections.Inc()
	s.setState(StateJoined)
	s.logger.Info().Msg("joined")
}

func (s *Session) sendHistory(ctx context.Context) {
	recs, err := s.o.Store.RecentMessages(ctx, s.room.ID, s.o.historyLimit(), 0)
	if err != nil {
		s.logger.Error().Err(err).Msg("load history")
		recs = nil
	}
	s.sendJSON(historyEvents(recs))
}

func (s *Session) loop(ctx context.Context) {
	for {
		data, err := s.t.ReadFrame()
		if err != nil {
			s.logger.Debug().Err(err).Msg("read loop ended")
			return
		}
		s.handleFrame(ctx, data)
	}
}

func (s *Session) handleFrame(ctx context.Context, data []byte) {
	var in inboundFrame
	if err := json.Unmarshal(data, &in); err != nil {
		metrics.InvalidFrames.Inc()
		s.logger.Debug().Err(err).Msg("bad frame")
		s.sendError("invalid message format")
		return
	}

	switch in.Type {
	case "", "message":
		s.postMessage(ctx, in)
	case eventActiveUsers:
		s.sendJSON(presenceEvent{Type: eventActiveUsers, Data: s.o.Registry.Users(s.room.ID)})
	default:
		metrics.InvalidFrames.Inc()
		s.sendError("unknown frame type")
	}
}

// postMessage persists the message and only then broadcasts it.
func (s *Session) postMessage(ctx context.Context, in inboundFrame) {
	if s.o.Limiter != nil && !s.o.Limiter.Allow(s.user.ID) {
		s.sendError("rate limit exceeded")
		return
	}

	msg := domain.Message{
		RoomID:   s.room.ID,
		SenderID: s.user.ID,
		Body:     in.Message,
		FileURL:  in.FileURL,
		ReplyTo:  in.ReplyTo,
	}
	if err := msg.Validate(); err != nil {
		metrics.InvalidFrames.Inc()
		s.sendError(err.Error())
		return
	}

	rec, err := s.o.Store.Append(ctx, msg)
	if err != nil {
		metrics.PersistFailures.Inc()
		s.logger.Error().Err(err).Msg("persist message")
		s.sendError("message could not be saved")
		return
	}
	metrics.MessagesPersisted.Inc()

	rec.Sender = s.user.Presence()
	s.o.BroadcastJSON(s.room.ID, NewMessageEvent(rec))
}

// leave unregisters the connection, closes the transport and tells the room.
// It is safe to call more than once.
func (s *Session) leave() {
	s.leaveOnce.Do(func() {
		s.setState(StateClosing)
		s.t.Close()
		if s.handle != nil {
			s.o.Registry.Unregister(s.room.ID, s.id)
			metrics.ActiveConnections.Dec()
			s.o.BroadcastJSON(s.room.ID, userLeftEvent{Type: eventUserLeft, Data: s.handle.User})
			s.logger.Info().Msg("left")
		}
		s.setState(StateClosed)
	})
}

func (s *Session) sendError(msg string) {
	s.sendJSON(errorEvent{Type: eventError, Error: msg})
}

func (s *Session) sendJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.logger.Error().Err(err).Msg("sendJSON marshal")
		return
	}
	if err := s.t.TrySend(b); err != nil {
		s.logger.Debug().Err(err).Msg("sendJSON")
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, core.ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, core.ErrInvalidCredential):
		return "invalid_credential"
	case errors.Is(err, core.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, core.ErrRoomBlocked):
		return "room_blocked"
	case errors.Is(err, core.ErrUserBanned):
		return "user_banned"
	case errors.Is(err, core.ErrUserBlocked):
		return "user_blocked"
	default:
		return "error"
	}
}
