package swipes

import (
	"sync"

	"github.com/itsmeHabibs/poundrr-backend/internal/domain/model"
)

type pairKey struct {
	actorUserID  int64
	targetUserID int64
}

type retryEntry struct {
	direction model.SwipeDirection
	attempts  int
}

type pendingWrite struct {
	actorUserID  int64
	targetUserID int64
	direction    model.SwipeDirection
}

// retryQueue holds decision writes that failed against the ledger.
// One slot per ordered pair: enqueueing a newer decision replaces the
// parked one, mirroring the ledger's last-write-wins contract, so a
// stale retry can never overwrite a fresher decision.
type retryQueue struct {
	mu    sync.Mutex
	items map[pairKey]retryEntry
}

func newRetryQueue() *retryQueue {
	return &retryQueue{items: make(map[pairKey]retryEntry)}
}

func (q *retryQueue) put(actorUserID, targetUserID int64, direction model.SwipeDirection) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items[pairKey{actorUserID, targetUserID}] = retryEntry{direction: direction}
}

func (q *retryQueue) drop(actorUserID, targetUserID int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.items, pairKey{actorUserID, targetUserID})
}

// fail bumps the attempt counter and drops the entry once maxAttempts
// is reached. Returns true when the entry was dropped.
func (q *retryQueue) fail(actorUserID, targetUserID int64, maxAttempts int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := pairKey{actorUserID, targetUserID}
	entry, ok := q.items[key]
	if !ok {
		return false
	}

	entry.attempts++
	if entry.attempts >= maxAttempts {
		delete(q.items, key)
		return true
	}

	q.items[key] = entry
	return false
}

func (q *retryQueue) snapshot() []pendingWrite {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]pendingWrite, 0, len(q.items))
	for key, entry := range q.items {
		out = append(out, pendingWrite{
			actorUserID:  key.actorUserID,
			targetUserID: key.targetUserID,
			direction:    entry.direction,
		})
	}
	return out
}

func (q *retryQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
