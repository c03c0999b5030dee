package dto

import "time"

type MatchItemResponse struct {
	PartnerUserID int64     `json:"partner_user_id"`
	DisplayName   string    `json:"display_name"`
	WeightClass   string    `json:"weight_class,omitempty"`
	City          string    `json:"city,omitempty"`
	ChannelID     string    `json:"channel_id"`
	MatchedAt     time.Time `json:"matched_at"`
}

type MatchesResponse struct {
	Items []MatchItemResponse `json:"items"`
}

type UnmatchRequest struct {
	PartnerUserID int64 `json:"partner_user_id"`
}
