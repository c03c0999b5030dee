package model

import (
	"errors"
	"strings"
	"time"
)

type SwipeDirection string

const (
	DirectionLeft  SwipeDirection = "left"
	DirectionRight SwipeDirection = "right"
)

var ErrUnknownDirection = errors.New("unknown swipe direction")

func ParseDirection(input string) (SwipeDirection, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case string(DirectionLeft):
		return DirectionLeft, nil
	case string(DirectionRight):
		return DirectionRight, nil
	default:
		return "", ErrUnknownDirection
	}
}

// SwipeDecision is the single live ledger record for an ordered pair.
// Re-swiping the same pair overwrites it; no history is kept.
type SwipeDecision struct {
	ActorUserID  int64          `json:"actor_user_id"`
	TargetUserID int64          `json:"target_user_id"`
	Direction    SwipeDirection `json:"direction"`
	CreatedAt    time.Time      `json:"created_at"`
}
