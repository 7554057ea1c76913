package core

import (
	"sort"
	"sync"

	"github.com/Nevojt/project-chat-sub000/internal/domain"
	"github.com/rs/zerolog/log"
)

// Registry tracks live connections per room. It is the only shared mutable
// structure of the real-time core; one instance is owned by the server.
//
// A connection id belongs to exactly one room at a time. Removing an absent
// id is a no-op.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*roomEntry
	conns map[ConnID]domain.RoomID
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[domain.RoomID]*roomEntry),
		conns: make(map[ConnID]domain.RoomID),
	}
}

// Register adds h under room, replacing any handle with the same id.
// If the id was registered in another room it is moved.
func (r *Registry) Register(room domain.RoomID, h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.conns[h.ID]; ok && prev != room {
		r.removeLocked(prev, h.ID)
	}
	entry, ok := r.rooms[room]
	if !ok {
		entry = newRoomEntry(room)
		r.rooms[room] = entry
	}
	entry.bySID[h.ID] = h
	r.conns[h.ID] = room
	log.Debug().Str("module", "core.registry").Str("conn", string(h.ID)).Stringer("room", room).Stringer("user", h.User.UserID).Msg("registered")
}

// Unregister removes the connection from room. It reports whether a handle was removed.
func (r *Registry) Unregister(room domain.RoomID, id ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.conns[id]; !ok || cur != room {
		return false
	}
	r.removeLocked(room, id)
	log.Debug().Str("module", "core.registry").Str("conn", string(id)).Stringer("room", room).Msg("unregistered")
	return true
}

func (r *Registry) removeLocked(room domain.RoomID, id ConnID) {
	delete(r.conns, id)
	entry, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(entry.bySID, id)
	if len(entry.bySID) == 0 {
		delete(r.rooms, room)
	}
}

// Connections returns a snapshot of the room's handles, oldest join first.
func (r *Registry) Connections(room domain.RoomID) []*Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.rooms[room]
	if !ok {
		return nil
	}
	return entry.snapshot()
}

// Users returns the presence summaries of the room, one per user.
func (r *Registry) Users(room domain.RoomID) []domain.Presence {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.rooms[room]
	if !ok {
		return []domain.Presence{}
	}
	return entry.users()
}

func (r *Registry) RoomOf(id ConnID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.conns[id]
	return room, ok
}

func (r *Registry) Count(room domain.RoomID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.rooms[room]; ok {
		return len(entry.bySID)
	}
	return 0
}

func (r *Registry) List() []RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RoomInfo, 0, len(r.rooms))
	for id, entry := range r.rooms {
		out = append(out, RoomInfo{ID: id, MemberCount: len(entry.bySID)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
