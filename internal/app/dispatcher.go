package app

import (
	"errors"
	"sync"
	"time"

	"github.com/Nevojt/project-chat-sub000/internal/core"
	"github.com/Nevojt/project-chat-sub000/internal/domain"
	"github.com/Nevojt/project-chat-sub000/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Dispatcher fans a frame out to every connection registered for a room.
//
// Broadcasts to the same room are serialized, so every recipient observes
// frames in the order Broadcast was called. Dead recipients are removed
// after the sweep.
type Dispatcher struct {
	registry *core.Registry
	policy   Policy

	mu    sync.Mutex
	rooms map[domain.RoomID]*roomLock
}

// roomLock is dropped from Dispatcher.rooms once nobody holds or waits on it.
type roomLock struct {
	mu   sync.Mutex
	refs int
}

func NewDispatcher(reg *core.Registry, policy Policy) *Dispatcher {
	if policy == nil {
		policy = SimplePolicy{}
	}
	return &Dispatcher{
		registry: reg,
		policy:   policy,
		rooms:    make(map[domain.RoomID]*roomLock),
	}
}

func (d *Dispatcher) lockRoom(room domain.RoomID) *roomLock {
	d.mu.Lock()
	l, ok := d.rooms[room]
	if !ok {
		l = &roomLock{}
		d.rooms[room] = l
	}
	l.refs++
	d.mu.Unlock()

	l.mu.Lock()
	return l
}

func (d *Dispatcher) unlockRoom(room domain.RoomID, l *roomLock) {
	l.mu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(d.rooms, room)
	}
}

// WithRoom runs fn while no broadcast to room is in flight.
func (d *Dispatcher) WithRoom(room domain.RoomID, fn func()) {
	l := d.lockRoom(room)
	defer d.unlockRoom(room, l)
	fn()
}

func (d *Dispatcher) Broadcast(room domain.RoomID, data core.Frame) core.PublishResult {
	start := time.Now()
	var (
		res  core.PublishResult
		dead []*core.Handle
	)
	d.WithRoom(room, func() {
		res, dead = d.fanOut(room, data)
	})
	for _, h := range dead {
		d.kick(room, h)
	}
	metrics.BroadcastDuration.Observe(time.Since(start).Seconds())
	log.Debug().Str("module", "app.dispatcher").Stringer("room", room).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (d *Dispatcher) fanOut(room domain.RoomID, data core.Frame) (core.PublishResult, []*core.Handle) {
	res := core.PublishResult{}
	var dead []*core.Handle
	for _, h := range d.registry.Connections(room) {
		err := h.Signal.TrySend(data)
		if err == nil {
			res.SendTo++
			continue
		}
		res.Dropped = append(res.Dropped, h)
		if errors.Is(err, core.ErrConnClosed) {
			metrics.BroadcastDropped.WithLabelValues("closed").Inc()
			dead = append(dead, h)
			continue
		}
		metrics.BroadcastDropped.WithLabelValues("backpressure").Inc()
		switch action := d.policy.OnBackPressure(room, h); action {
		case KickMember:
			dead = append(dead, h)
		case DropFrame, NoAction:
		}
	}
	metrics.BroadcastDeliveries.Add(float64(res.SendTo))
	return res, dead
}

func (d *Dispatcher) kick(room domain.RoomID, h *core.Handle) {
	if d.registry.Unregister(room, h.ID) {
		log.Info().Str("module", "app.dispatcher").Str("conn", string(h.ID)).Stringer("room", room).Stringer("user", h.User.UserID).Msg("kicked dead member")
	}
	h.Signal.Close()
}
