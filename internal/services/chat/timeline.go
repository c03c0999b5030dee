package chat

import "github.com/itsmeHabibs/poundrr-backend/internal/domain/model"

// Timeline is the merged, display-ordered view of one channel: an
// initial page, older pages loaded upward, and live messages appended
// at the bottom. It maintains two invariants regardless of arrival
// interleaving: ids are unique, and (created_at, id) never decreases
// front to back.
type Timeline struct {
	messages []model.Message
	seen     map[string]struct{}
}

func NewTimeline() *Timeline {
	return &Timeline{seen: make(map[string]struct{})}
}

// Seed installs the initial page. Input must be ascending.
func (t *Timeline) Seed(page []model.Message) {
	t.messages = t.messages[:0]
	t.seen = make(map[string]struct{}, len(page))
	for _, m := range page {
		if _, dup := t.seen[m.ID]; dup {
			continue
		}
		t.messages = append(t.messages, m)
		t.seen[m.ID] = struct{}{}
	}
}

// MergeOlder prepends an older page (ascending). Messages at or past
// the current oldest are dropped: the fetch raced a concurrent seed or
// tail and the timeline already covers them.
func (t *Timeline) MergeOlder(page []model.Message) int {
	accepted := make([]model.Message, 0, len(page))
	for _, m := range page {
		if _, dup := t.seen[m.ID]; dup {
			continue
		}
		if len(t.messages) > 0 && !m.Before(t.messages[0]) {
			continue
		}
		accepted = append(accepted, m)
	}
	if len(accepted) == 0 {
		return 0
	}

	for _, m := range accepted {
		t.seen[m.ID] = struct{}{}
	}
	t.messages = append(accepted, t.messages...)
	return len(accepted)
}

// Tail appends a live message. Duplicates of already-fetched messages
// and anything older than the current newest are rejected, so a
// pub/sub replay overlapping the initial fetch cannot reorder the
// view.
func (t *Timeline) Tail(m model.Message) bool {
	if _, dup := t.seen[m.ID]; dup {
		return false
	}
	if n := len(t.messages); n > 0 && m.Before(t.messages[n-1]) {
		return false
	}

	t.messages = append(t.messages, m)
	t.seen[m.ID] = struct{}{}
	return true
}

func (t *Timeline) Messages() []model.Message {
	out := make([]model.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Timeline) Len() int {
	return len(t.messages)
}

// Oldest returns the upward paging cursor.
func (t *Timeline) Oldest() (model.Message, bool) {
	if len(t.messages) == 0 {
		return model.Message{}, false
	}
	return t.messages[0], true
}
