package app

import (
	"context"
	"encoding/json"

	"github.com/Nevojt/project-chat-sub000/internal/core"
	"github.com/Nevojt/project-chat-sub000/internal/domain"
	"github.com/rs/zerolog/log"
)

const DefaultHistoryLimit = 50

// Limiter throttles message creation per user.
type Limiter interface {
	Allow(uid domain.UserID) bool
}

// Orchestrator owns the connection registry and wires the room sessions to
// their collaborators. One instance lives for the whole server process.
type Orchestrator struct {
	Registry   *core.Registry
	Dispatcher *Dispatcher
	Store      core.MessageStore
	Identity   core.IdentityProvider
	Guard      core.RoomGuard
	Limiter    Limiter

	HistoryLimit int
}

func NewOrchestrator(store core.MessageStore, identity core.IdentityProvider, guard core.RoomGuard, policy Policy) *Orchestrator {
	reg := core.NewRegistry()
	return &Orchestrator{
		Registry:     reg,
		Dispatcher:   NewDispatcher(reg, policy),
		Store:        store,
		Identity:     identity,
		Guard:        guard,
		HistoryLimit: DefaultHistoryLimit,
	}
}

// OnlineUsers answers the "who is online" side-channel query.
func (o *Orchestrator) OnlineUsers(ctx context.Context, ref string) (*domain.Room, []domain.Presence, error) {
	room, err := o.Guard.ResolveRoom(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	return room, o.Registry.Users(room.ID), nil
}

func (o *Orchestrator) Rooms() []core.RoomInfo {
	return o.Registry.List()
}

// BroadcastJSON marshals v and fans it out to room.
func (o *Orchestrator) BroadcastJSON(room domain.RoomID, v any) core.PublishResult {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orchestrator").Msg("broadcast marshal")
		return core.PublishResult{}
	}
	return o.Dispatcher.Broadcast(room, b)
}

func (o *Orchestrator) historyLimit() int {
	if o.HistoryLimit <= 0 {
		return DefaultHistoryLimit
	}
	return o.HistoryLimit
}
