package core

import "github.com/Nevojt/project-chat-sub000/internal/domain"

// PublishResult reports delivery stats/backpressure to the dispatcher.
type PublishResult struct {
	SendTo  int
	Dropped []*Handle
}

type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"client_count"`
}
