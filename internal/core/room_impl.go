package core

import (
	"sort"

	"github.com/Nevojt/project-chat-sub000/internal/domain"
)

// roomEntry is the set of handles joined to one room.
// It is guarded by the owning Registry's lock.
type roomEntry struct {
	id    domain.RoomID
	bySID map[ConnID]*Handle
}

func newRoomEntry(id domain.RoomID) *roomEntry {
	return &roomEntry{id: id, bySID: make(map[ConnID]*Handle)}
}

func (r *roomEntry) snapshot() []*Handle {
	out := make([]*Handle, 0, len(r.bySID))
	for _, h := range r.bySID {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

// users projects the handles to presence summaries, one per user.
func (r *roomEntry) users() []domain.Presence {
	seen := make(map[domain.UserID]struct{}, len(r.bySID))
	out := make([]domain.Presence, 0, len(r.bySID))
	for _, h := range r.snapshot() {
		if _, ok := seen[h.User.UserID]; ok {
			continue
		}
		seen[h.User.UserID] = struct{}{}
		out = append(out, h.User)
	}
	return out
}
