package dto

type SwipeRequest struct {
	TargetID  int64  `json:"target_id"`
	Direction string `json:"direction"`
}

type SwipeResponse struct {
	OK           bool   `json:"ok"`
	MatchCreated bool   `json:"match_created"`
	ChannelID    string `json:"channel_id,omitempty"`
	Queued       bool   `json:"queued,omitempty"`
}
