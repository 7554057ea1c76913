package app

import (
	"time"

	"github.com/Nevojt/project-chat-sub000/internal/domain"
)

const (
	eventActiveUsers = "active_users"
	eventUserLeft    = "user_left"
	eventError       = "error"
)

// MessageEvent is the client-facing projection of a persisted message.
type MessageEvent struct {
	ID        int64         `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	RoomID    domain.RoomID `json:"receiver_id"`
	UserID    domain.UserID `json:"user_id"`
	UserName  string        `json:"user_name"`
	Avatar    string        `json:"avatar"`
	Verified  bool          `json:"verified"`
	Message   *string       `json:"message"`
	FileURL   *string       `json:"fileUrl"`
	ReplyTo   *int64        `json:"id_return"`
	Edited    bool          `json:"edited"`
	Vote      int           `json:"vote"`
}

func NewMessageEvent(rec domain.MessageRecord) MessageEvent {
	return MessageEvent{
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt,
		RoomID:    rec.RoomID,
		UserID:    rec.SenderID,
		UserName:  rec.Sender.UserName,
		Avatar:    rec.Sender.Avatar,
		Verified:  rec.Sender.Verified,
		Message:   rec.Body,
		FileURL:   rec.FileURL,
		ReplyTo:   rec.ReplyTo,
		Edited:    rec.Edited,
		Vote:      rec.Votes,
	}
}

// historyEvents turns a newest-first page into an oldest-first batch.
func historyEvents(recs []domain.MessageRecord) []MessageEvent {
	out := make([]MessageEvent, len(recs))
	for i, rec := range recs {
		out[len(recs)-1-i] = NewMessageEvent(rec)
	}
	return out
}

type presenceEvent struct {
	Type string            `json:"type"`
	Data []domain.Presence `json:"data"`
}

type userLeftEvent struct {
	Type string          `json:"type"`
	Data domain.Presence `json:"data"`
}

type errorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// inboundFrame is the create-message schema plus an optional control type.
type inboundFrame struct {
	Type    string  `json:"type"`
	Message *string `json:"message"`
	FileURL *string `json:"fileUrl"`
	ReplyTo *int64  `json:"id_return"`
}
