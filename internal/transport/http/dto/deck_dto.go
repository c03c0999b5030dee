package dto

type DeckCardResponse struct {
	UserID      int64    `json:"user_id"`
	DisplayName string   `json:"display_name"`
	Age         int      `json:"age,omitempty"`
	WeightClass string   `json:"weight_class,omitempty"`
	Disciplines []string `json:"disciplines,omitempty"`
	Gym         string   `json:"gym,omitempty"`
	City        string   `json:"city,omitempty"`
	PhotoURLs   []string `json:"photo_urls,omitempty"`
}

type DeckResponse struct {
	State     string            `json:"state"`
	Top       *DeckCardResponse `json:"top,omitempty"`
	Next      *DeckCardResponse `json:"next,omitempty"`
	Remaining int               `json:"remaining"`
}

type DeckReleaseRequest struct {
	DX        float64 `json:"dx"`
	VX        float64 `json:"vx"`
	ViewportW float64 `json:"viewport_w"`
}

type DeckReleaseResponse struct {
	OK           bool         `json:"ok"`
	Committed    bool         `json:"committed"`
	Direction    string       `json:"direction,omitempty"`
	MatchCreated bool         `json:"match_created"`
	ChannelID    string       `json:"channel_id,omitempty"`
	Deck         DeckResponse `json:"deck"`
}
