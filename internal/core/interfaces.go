package core

import (
	"context"
	"errors"

	"github.com/Nevojt/project-chat-sub000/internal/domain"
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomBlocked       = errors.New("room is blocked")
	ErrUserBanned        = errors.New("user is banned in room")
	ErrUserBlocked       = errors.New("user is blocked")
)

// MessageStore is the durable, append-only message log.
type MessageStore interface {
	// Append persists msg and returns the stored record. The call is atomic:
	// either the record is committed or an error is returned.
	Append(ctx context.Context, msg domain.Message) (domain.MessageRecord, error)
	// RecentMessages returns at most limit records of a room, newest first.
	RecentMessages(ctx context.Context, room domain.RoomID, limit, offset int) ([]domain.MessageRecord, error)
}

// IdentityProvider verifies a bearer credential.
type IdentityProvider interface {
	Verify(ctx context.Context, token string) (*domain.User, error)
}

// RoomGuard resolves room references and decides whether a user may join.
type RoomGuard interface {
	// ResolveRoom accepts a numeric room id or a room name.
	ResolveRoom(ctx context.Context, ref string) (*domain.Room, error)
	CheckJoin(ctx context.Context, room *domain.Room, user *domain.User) error
}
