package app

import (
	"github.com/Nevojt/project-chat-sub000/internal/core"
	"github.com/Nevojt/project-chat-sub000/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

func (a BackpressureAction) String() string {
	switch a {
	case KickMember:
		return "kick"
	case DropFrame:
		return "drop_frame"
	default:
		return "none"
	}
}

// Policy decides what happens to a recipient whose outbound queue is full.
// Recipients whose transport is already closed are always removed.
type Policy interface {
	OnBackPressure(room domain.RoomID, member *core.Handle) BackpressureAction
}

// SimplePolicy treats a peer that does not drain as dead.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(room domain.RoomID, member *core.Handle) BackpressureAction {
	return KickMember
}
