package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Nevojt/project-chat-sub000/internal/core"
	"github.com/Nevojt/project-chat-sub000/internal/domain"
)

var ErrNotFound = errors.New("not found")

// Store defines persistence operations used by the server. The chat core
// only sees it through core.MessageStore and core.RoomGuard.
type Store interface {
	Close() error
	Migrate(ctx context.Context) error

	core.MessageStore
	core.RoomGuard

	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id domain.UserID) (*domain.User, error)

	CreateRoom(ctx context.Context, room *domain.Room) error
	// BanUser mutes user in room until the given time; nil means forever.
	BanUser(ctx context.Context, room domain.RoomID, user domain.UserID, until *time.Time) error
	// Vote records user's rating of a message, replacing an earlier one.
	// Totals surface in history; there is no live vote broadcast.
	Vote(ctx context.Context, message int64, user domain.UserID, rating int) error
}
