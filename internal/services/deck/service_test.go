package deck

import (
	"context"
	"errors"
	"testing"

	"github.com/itsmeHabibs/poundrr-backend/internal/domain/model"
	swipesvc "github.com/itsmeHabibs/poundrr-backend/internal/services/swipes"
)

type stubPool struct {
	cards []model.Candidate
	calls int
}

func (p *stubPool) Build(_ context.Context, _ int64, _ int) []model.Candidate {
	p.calls++
	return p.cards
}

type recordingCommitter struct {
	commits []recordedCommit
	result  swipesvc.CommitResult
	err     error
}

type recordedCommit struct {
	actorUserID  int64
	targetUserID int64
	direction    model.SwipeDirection
}

func (c *recordingCommitter) Commit(_ context.Context, actorUserID, targetUserID int64, direction model.SwipeDirection) (swipesvc.CommitResult, error) {
	c.commits = append(c.commits, recordedCommit{actorUserID, targetUserID, direction})
	if c.err != nil {
		return swipesvc.CommitResult{}, c.err
	}
	result := c.result
	result.Direction = direction
	return result, nil
}

func candidates(ids ...int64) []model.Candidate {
	out := make([]model.Candidate, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Candidate{UserID: id})
	}
	return out
}

func newTestDeck(t *testing.T, pool *stubPool, committer *recordingCommitter) *Service {
	t.Helper()
	return NewService(pool, committer, Config{
		ThresholdRatio:    0.28,
		VelocityThreshold: 0.5,
		PageSize:          20,
	}, nil)
}

func TestRefreshPresentsFirstCard(t *testing.T) {
	svc := newTestDeck(t, &stubPool{cards: candidates(11, 12, 13)}, &recordingCommitter{})

	view, err := svc.Refresh(context.Background(), 1)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if view.State != StatePresenting {
		t.Fatalf("unexpected state: %s", view.State)
	}
	if view.Top == nil || view.Top.UserID != 11 {
		t.Fatalf("unexpected top card: %+v", view.Top)
	}
	if view.Next == nil || view.Next.UserID != 12 {
		t.Fatalf("under-card must stay rendered, got %+v", view.Next)
	}
	if view.Remaining != 3 {
		t.Fatalf("unexpected remaining: %d", view.Remaining)
	}
}

func TestRefreshEmptyPool(t *testing.T) {
	svc := newTestDeck(t, &stubPool{}, &recordingCommitter{})

	view, err := svc.Refresh(context.Background(), 1)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if view.State != StateEmpty {
		t.Fatalf("unexpected state: %s", view.State)
	}
	if view.Top != nil {
		t.Fatalf("empty deck must have no top card")
	}
}

func TestReleaseCommitThresholdInclusive(t *testing.T) {
	committer := &recordingCommitter{}
	svc := newTestDeck(t, &stubPool{cards: candidates(11, 12)}, committer)
	if _, err := svc.Refresh(context.Background(), 1); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// dx == T exactly commits right.
	result, err := svc.Release(context.Background(), 1, Gesture{DX: 0.28 * 1000, ViewportWidth: 1000})
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if !result.Committed || result.Direction != model.DirectionRight {
		t.Fatalf("boundary release must commit right, got %+v", result)
	}
	if len(committer.commits) != 1 || committer.commits[0].targetUserID != 11 {
		t.Fatalf("unexpected commits: %+v", committer.commits)
	}
	if result.View.State != StateAnimatingOut {
		t.Fatalf("unexpected state after commit: %s", result.View.State)
	}
}

func TestReleaseCommitLeft(t *testing.T) {
	committer := &recordingCommitter{}
	svc := newTestDeck(t, &stubPool{cards: candidates(11)}, committer)
	if _, err := svc.Refresh(context.Background(), 1); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	result, err := svc.Release(context.Background(), 1, Gesture{DX: -300, ViewportWidth: 1000})
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if !result.Committed || result.Direction != model.DirectionLeft {
		t.Fatalf("expected left commit, got %+v", result)
	}
}

func TestReleaseSpringBack(t *testing.T) {
	committer := &recordingCommitter{}
	svc := newTestDeck(t, &stubPool{cards: candidates(11)}, committer)
	if _, err := svc.Refresh(context.Background(), 1); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	result, err := svc.Release(context.Background(), 1, Gesture{DX: 279.9, VX: 0.49, ViewportWidth: 1000})
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if result.Committed {
		t.Fatalf("sub-threshold release must spring back")
	}
	if result.View.State != StatePresenting {
		t.Fatalf("unexpected state: %s", result.View.State)
	}
	if len(committer.commits) != 0 {
		t.Fatalf("spring-back must not write a decision")
	}
}

func TestReleaseVelocityCommit(t *testing.T) {
	committer := &recordingCommitter{}
	svc := newTestDeck(t, &stubPool{cards: candidates(11)}, committer)
	if _, err := svc.Refresh(context.Background(), 1); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// Displacement below T, velocity at the threshold.
	result, err := svc.Release(context.Background(), 1, Gesture{DX: -50, VX: -0.5, ViewportWidth: 1000})
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if !result.Committed || result.Direction != model.DirectionLeft {
		t.Fatalf("expected velocity left commit, got %+v", result)
	}
}

func TestDisplacementWinsOverVelocity(t *testing.T) {
	committer := &recordingCommitter{}
	svc := newTestDeck(t, &stubPool{cards: candidates(11)}, committer)
	if _, err := svc.Refresh(context.Background(), 1); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// Past the right threshold while flicking left: displacement rules.
	result, err := svc.Release(context.Background(), 1, Gesture{DX: 400, VX: -3, ViewportWidth: 1000})
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if result.Direction != model.DirectionRight {
		t.Fatalf("displacement must win, got %q", result.Direction)
	}
}

func TestReleaseWhileAnimatingRejected(t *testing.T) {
	svc := newTestDeck(t, &stubPool{cards: candidates(11, 12)}, &recordingCommitter{})
	if _, err := svc.Refresh(context.Background(), 1); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := svc.Release(context.Background(), 1, Gesture{DX: 500, ViewportWidth: 1000}); err != nil {
		t.Fatalf("first release: %v", err)
	}

	if _, err := svc.Release(context.Background(), 1, Gesture{DX: 500, ViewportWidth: 1000}); !errors.Is(err, ErrCardInFlight) {
		t.Fatalf("expected ErrCardInFlight, got %v", err)
	}
	if _, err := svc.Refresh(context.Background(), 1); !errors.Is(err, ErrCardInFlight) {
		t.Fatalf("refresh during animation must be rejected, got %v", err)
	}
}

func TestAnimationDoneAdvances(t *testing.T) {
	svc := newTestDeck(t, &stubPool{cards: candidates(11, 12)}, &recordingCommitter{})
	if _, err := svc.Refresh(context.Background(), 1); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := svc.Release(context.Background(), 1, Gesture{DX: 500, ViewportWidth: 1000}); err != nil {
		t.Fatalf("release: %v", err)
	}

	view, err := svc.AnimationDone(1)
	if err != nil {
		t.Fatalf("animation done: %v", err)
	}
	if view.State != StatePresenting || view.Top == nil || view.Top.UserID != 12 {
		t.Fatalf("unexpected view after advance: %+v", view)
	}

	if _, err := svc.Release(context.Background(), 1, Gesture{DX: 500, ViewportWidth: 1000}); err != nil {
		t.Fatalf("release last card: %v", err)
	}
	view, err = svc.AnimationDone(1)
	if err != nil {
		t.Fatalf("animation done on last card: %v", err)
	}
	if view.State != StateEmpty {
		t.Fatalf("expected empty deck, got %s", view.State)
	}

	if _, err := svc.AnimationDone(1); !errors.Is(err, ErrNotAnimating) {
		t.Fatalf("expected ErrNotAnimating, got %v", err)
	}
}

func TestReleaseWithoutDeck(t *testing.T) {
	svc := newTestDeck(t, &stubPool{}, &recordingCommitter{})

	if _, err := svc.Release(context.Background(), 1, Gesture{DX: 500, ViewportWidth: 1000}); !errors.Is(err, ErrNoActiveCard) {
		t.Fatalf("expected ErrNoActiveCard, got %v", err)
	}
}

func TestRejectedCommitSpringsBack(t *testing.T) {
	committer := &recordingCommitter{err: swipesvc.TooFastError{RetryAfterSec: 4}}
	svc := newTestDeck(t, &stubPool{cards: candidates(11)}, committer)
	if _, err := svc.Refresh(context.Background(), 1); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	_, err := svc.Release(context.Background(), 1, Gesture{DX: 500, ViewportWidth: 1000})
	if _, ok := swipesvc.IsTooFast(err); !ok {
		t.Fatalf("expected rate limit error, got %v", err)
	}

	view, err := svc.Snapshot(1)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if view.State != StatePresenting || view.Top == nil || view.Top.UserID != 11 {
		t.Fatalf("card must spring back after rejected commit, got %+v", view)
	}
}

func TestStaleRefreshGenerationDiscarded(t *testing.T) {
	sess := newSession()

	gen1, err := sess.beginRefresh()
	if err != nil {
		t.Fatalf("begin first refresh: %v", err)
	}
	gen2, err := sess.beginRefresh()
	if err != nil {
		t.Fatalf("begin second refresh: %v", err)
	}

	if sess.applyPool(gen1, candidates(11)) {
		t.Fatalf("superseded fetch must be discarded")
	}
	if sess.state != StateIdle {
		t.Fatalf("discarded fetch must not change state, got %s", sess.state)
	}
	if !sess.applyPool(gen2, candidates(21, 22)) {
		t.Fatalf("current fetch must apply")
	}
	if sess.cards[0].UserID != 21 {
		t.Fatalf("wrong pool applied: %+v", sess.cards)
	}
}

func TestIndexNeverDecreasesWithinGeneration(t *testing.T) {
	svc := newTestDeck(t, &stubPool{cards: candidates(11, 12, 13)}, &recordingCommitter{})
	if _, err := svc.Refresh(context.Background(), 1); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	seen := int64(0)
	for i := 0; i < 3; i++ {
		view, err := svc.Snapshot(1)
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if view.Top.UserID <= seen {
			t.Fatalf("deck moved backward: %d after %d", view.Top.UserID, seen)
		}
		seen = view.Top.UserID
		if _, err := svc.Release(context.Background(), 1, Gesture{DX: -500, ViewportWidth: 1000}); err != nil {
			t.Fatalf("release #%d: %v", i+1, err)
		}
		if _, err := svc.AnimationDone(1); err != nil {
			t.Fatalf("animation done #%d: %v", i+1, err)
		}
	}
}
