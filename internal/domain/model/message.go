package model

import "time"

// Message is append-only: never mutated or deleted. CreatedAt is
// server-assigned at insert time.
type Message struct {
	ID           string    `json:"id"`
	ChannelID    string    `json:"channel_id"`
	SenderUserID int64     `json:"sender_user_id"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"created_at"`
}

// Before orders messages by (created_at, id); the id tiebreak keeps
// the order total so merge and dedup are deterministic.
func (m Message) Before(other Message) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.ID < other.ID
	}
	return m.CreatedAt.Before(other.CreatedAt)
}
