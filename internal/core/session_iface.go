package core

import (
	"time"

	"github.com/Nevojt/project-chat-sub000/internal/domain"
)

// ConnID is an opaque id generated once per accepted connection.
type ConnID string

// Handle is the server-side record of one live connection.
// It is immutable once registered; the registry only keeps a reference to it.
type Handle struct {
	ID       ConnID
	RoomID   domain.RoomID
	User     domain.Presence
	JoinedAt time.Time
	Signal   SignalConnection
}

func NewHandle(id ConnID, room domain.RoomID, user domain.Presence, sig SignalConnection) *Handle {
	return &Handle{
		ID:       id,
		RoomID:   room,
		User:     user,
		JoinedAt: time.Now().UTC(),
		Signal:   sig,
	}
}
