package model

import "time"

// Profile is the read-only projection of the external profile store
// used by this service.
type Profile struct {
	UserID      int64     `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Handle      string    `json:"handle"`
	Age         int       `json:"age"`
	WeightClass string    `json:"weight_class"`
	Disciplines []string  `json:"disciplines"`
	Gym         string    `json:"gym"`
	City        string    `json:"city"`
	CreatedAt   time.Time `json:"created_at"`
}

// Candidate is one deck card: a profile row plus resolved media.
type Candidate struct {
	UserID      int64     `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Age         int       `json:"age"`
	WeightClass string    `json:"weight_class"`
	Disciplines []string  `json:"disciplines"`
	Gym         string    `json:"gym"`
	City        string    `json:"city"`
	PhotoURLs   []string  `json:"photo_urls"`
	CreatedAt   time.Time `json:"created_at"`
}
