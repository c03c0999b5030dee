package dto

import "time"

type MessageResponse struct {
	ID           string    `json:"id"`
	ChannelID    string    `json:"channel_id"`
	SenderUserID int64     `json:"sender_user_id"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"created_at"`
}

type ChatHistoryResponse struct {
	Items        []MessageResponse `json:"items"`
	NextBeforeAt *time.Time        `json:"next_before_at,omitempty"`
	NextBeforeID string            `json:"next_before_id,omitempty"`
	HasMore      bool              `json:"has_more"`
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

type SendMessageResponse struct {
	OK      bool            `json:"ok"`
	Message MessageResponse `json:"message"`
}
