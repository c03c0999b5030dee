package deck

import (
	"sync"

	"github.com/itsmeHabibs/poundrr-backend/internal/domain/model"
)

type State string

const (
	StateIdle         State = "idle"
	StatePresenting   State = "presenting"
	StateAnimatingOut State = "animating_out"
	StateEmpty        State = "empty"
)

// session is the discrete-event state machine behind one user's deck:
// Idle -> Presenting -> AnimatingOut -> Presenting|Empty, with
// Empty -> Presenting only through an explicit refresh. The index only
// ever advances, except when a refresh replaces the pool.
type session struct {
	mu         sync.Mutex
	state      State
	cards      []model.Candidate
	index      int
	generation uint64
}

func newSession() *session {
	return &session{state: StateIdle}
}

// beginRefresh bumps the generation and returns the token the caller
// must present to applyPool. Refusing to refresh mid-animation keeps
// the AnimatingOut contract: that state always resolves through
// finishAnimation.
func (s *session) beginRefresh() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateAnimatingOut {
		return 0, ErrCardInFlight
	}

	s.generation++
	return s.generation, nil
}

// applyPool installs a fetched pool if gen is still current. A stale
// generation means a newer refresh started while this fetch was in
// flight; the result is discarded unapplied.
func (s *session) applyPool(gen uint64, cards []model.Candidate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return false
	}

	s.cards = cards
	s.index = 0
	if len(cards) > 0 {
		s.state = StatePresenting
	} else {
		s.state = StateEmpty
	}
	return true
}

// beginCommit resolves the gesture against the thresholds. On commit
// it atomically moves to AnimatingOut with gesture input disabled;
// otherwise the card springs back and the state is untouched.
func (s *session) beginCommit(g Gesture, cfg Config) (model.SwipeDirection, int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateAnimatingOut:
		return "", 0, false, ErrCardInFlight
	case StatePresenting:
	default:
		return "", 0, false, ErrNoActiveCard
	}

	direction, committed := decide(g, cfg)
	if !committed {
		return "", 0, false, nil
	}

	s.state = StateAnimatingOut
	return direction, s.cards[s.index].UserID, true, nil
}

// cancelCommit reverts a beginCommit whose ledger write was rejected
// before the card left the deck.
func (s *session) cancelCommit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateAnimatingOut {
		s.state = StatePresenting
	}
}

// finishAnimation advances the index by one and resolves AnimatingOut
// to exactly one of Presenting or Empty.
func (s *session) finishAnimation() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAnimatingOut {
		return ErrNotAnimating
	}

	s.index++
	if s.index < len(s.cards) {
		s.state = StatePresenting
	} else {
		s.state = StateEmpty
	}
	return nil
}

func (s *session) view() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{State: s.state}
	if s.index < len(s.cards) {
		v.Remaining = len(s.cards) - s.index
		top := s.cards[s.index]
		v.Top = &top
		if s.index+1 < len(s.cards) {
			next := s.cards[s.index+1]
			v.Next = &next
		}
	}
	return v
}

// decide applies the commit rule: displacement at or past the
// threshold wins first, then release velocity. T = ratio * viewport
// width; both boundaries are inclusive.
func decide(g Gesture, cfg Config) (model.SwipeDirection, bool) {
	threshold := cfg.ThresholdRatio * g.ViewportWidth

	switch {
	case g.DX >= threshold:
		return model.DirectionRight, true
	case g.DX <= -threshold:
		return model.DirectionLeft, true
	case cfg.VelocityThreshold > 0 && g.VX >= cfg.VelocityThreshold:
		return model.DirectionRight, true
	case cfg.VelocityThreshold > 0 && g.VX <= -cfg.VelocityThreshold:
		return model.DirectionLeft, true
	}

	return "", false
}
