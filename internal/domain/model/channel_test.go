package model

import (
	"errors"
	"testing"
	"time"
)

func mustTime(t *testing.T, raw string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		t.Fatalf("parse time %q: %v", raw, err)
	}
	return parsed
}

func TestChannelIDSymmetric(t *testing.T) {
	a := ChannelID(42, 7)
	b := ChannelID(7, 42)
	if a != b {
		t.Fatalf("channel id depends on argument order: %q vs %q", a, b)
	}
	if a != "7_42" {
		t.Fatalf("unexpected channel id: %q", a)
	}
}

func TestParticipantsFromChannelIDRoundTrip(t *testing.T) {
	lo, hi, err := ParticipantsFromChannelID(ChannelID(1001, 13))
	if err != nil {
		t.Fatalf("parse channel id: %v", err)
	}
	if lo != 13 || hi != 1001 {
		t.Fatalf("unexpected participants: %d, %d", lo, hi)
	}
}

func TestParticipantsFromChannelIDRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "13", "13_", "_42", "13_13", "42_13", "a_b", "0_5", "-1_5"} {
		if _, _, err := ParticipantsFromChannelID(raw); !errors.Is(err, ErrInvalidChannelID) {
			t.Fatalf("expected ErrInvalidChannelID for %q, got %v", raw, err)
		}
	}
}

func TestIsParticipant(t *testing.T) {
	channelID := ChannelID(5, 9)
	if !IsParticipant(channelID, 5) || !IsParticipant(channelID, 9) {
		t.Fatalf("participants not recognized for %q", channelID)
	}
	if IsParticipant(channelID, 7) {
		t.Fatalf("non-participant accepted for %q", channelID)
	}
}

func TestParseDirection(t *testing.T) {
	if dir, err := ParseDirection(" Right "); err != nil || dir != DirectionRight {
		t.Fatalf("parse right: %v, %q", err, dir)
	}
	if dir, err := ParseDirection("left"); err != nil || dir != DirectionLeft {
		t.Fatalf("parse left: %v, %q", err, dir)
	}
	if _, err := ParseDirection("up"); !errors.Is(err, ErrUnknownDirection) {
		t.Fatalf("expected ErrUnknownDirection, got %v", err)
	}
}

func TestMessageBeforeTiebreak(t *testing.T) {
	at := Message{ID: "a", CreatedAt: mustTime(t, "2026-03-01T10:00:00Z")}
	bt := Message{ID: "b", CreatedAt: at.CreatedAt}
	if !at.Before(bt) || bt.Before(at) {
		t.Fatalf("id tiebreak broken")
	}
}
