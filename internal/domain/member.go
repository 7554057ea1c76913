package domain

// Presence is the projection of a user shown in "who is online" payloads
// and attached to broadcast messages.
type Presence struct {
	UserID   UserID `json:"user_id"`
	UserName string `json:"user_name"`
	Avatar   string `json:"avatar"`
	Verified bool   `json:"verified"`
}
