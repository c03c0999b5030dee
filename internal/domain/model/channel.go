package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const channelIDSeparator = "_"

var ErrInvalidChannelID = errors.New("invalid channel id")

// ChatChannel is the persistent context for a matched pair's direct
// messages. The row is created lazily on first mutual-match detection
// (or first message) and is never deleted by this service.
type ChatChannel struct {
	ChannelID       string    `json:"channel_id"`
	UserLoID        int64     `json:"user_lo_id"`
	UserHiID        int64     `json:"user_hi_id"`
	LastMessageText string    `json:"last_message_text"`
	LastMessageAt   time.Time `json:"last_message_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ChannelID derives the shared channel identity for a pair. It is a
// pure function of the unordered pair: both participants compute the
// same id regardless of who triggers the bootstrap.
func ChannelID(a, b int64) string {
	lo, hi := OrderPair(a, b)
	return strconv.FormatInt(lo, 10) + channelIDSeparator + strconv.FormatInt(hi, 10)
}

// OrderPair returns the pair under the fixed total order used for
// channel ids and pair-keyed rows.
func OrderPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

// ParticipantsFromChannelID recovers the two participant ids encoded
// in a channel id.
func ParticipantsFromChannelID(channelID string) (int64, int64, error) {
	loRaw, hiRaw, found := strings.Cut(strings.TrimSpace(channelID), channelIDSeparator)
	if !found {
		return 0, 0, ErrInvalidChannelID
	}

	lo, err := strconv.ParseInt(loRaw, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %s", ErrInvalidChannelID, channelID)
	}
	hi, err := strconv.ParseInt(hiRaw, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %s", ErrInvalidChannelID, channelID)
	}
	if lo <= 0 || hi <= 0 || lo >= hi {
		return 0, 0, ErrInvalidChannelID
	}

	return lo, hi, nil
}

// IsParticipant reports whether userID is one of the two identities
// encoded in the channel id.
func IsParticipant(channelID string, userID int64) bool {
	lo, hi, err := ParticipantsFromChannelID(channelID)
	if err != nil {
		return false
	}
	return userID == lo || userID == hi
}
