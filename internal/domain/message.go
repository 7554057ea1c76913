package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrEmptyMessage  = errors.New("message and file url are both empty")
	ErrMissingRoom   = errors.New("message has no room")
	ErrMissingSender = errors.New("message has no sender")
)

// Message is a room message about to be persisted.
// Body and FileURL are nullable; at least one of them must be set.
type Message struct {
	RoomID   RoomID
	SenderID UserID
	Body     *string
	FileURL  *string
	ReplyTo  *int64
}

func (m Message) Validate() error {
	if m.RoomID == 0 {
		return ErrMissingRoom
	}
	if m.SenderID == 0 {
		return ErrMissingSender
	}
	if blank(m.Body) && blank(m.FileURL) {
		return ErrEmptyMessage
	}
	return nil
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// MessageRecord is a persisted message together with the sender projection.
type MessageRecord struct {
	ID        int64
	CreatedAt time.Time
	Message
	Sender Presence
	Edited bool
	Votes  int
}
