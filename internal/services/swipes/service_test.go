package swipes

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/itsmeHabibs/poundrr-backend/internal/domain/model"
	pgrepo "github.com/itsmeHabibs/poundrr-backend/internal/repo/postgres"
)

type memoryLedger struct {
	records  map[string]pgrepo.DecisionRecord
	failNext int
	getErr   error
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{records: make(map[string]pgrepo.DecisionRecord)}
}

func (l *memoryLedger) key(actor, target int64) string {
	return fmt.Sprintf("%d:%d", actor, target)
}

func (l *memoryLedger) Upsert(_ context.Context, actorUserID, targetUserID int64, direction string, now time.Time) (pgrepo.DecisionRecord, error) {
	if l.failNext > 0 {
		l.failNext--
		return pgrepo.DecisionRecord{}, errors.New("ledger write failed")
	}

	rec := pgrepo.DecisionRecord{
		ActorUserID:  actorUserID,
		TargetUserID: targetUserID,
		Direction:    direction,
		CreatedAt:    now,
	}
	l.records[l.key(actorUserID, targetUserID)] = rec
	return rec, nil
}

func (l *memoryLedger) Get(_ context.Context, actorUserID, targetUserID int64) (pgrepo.DecisionRecord, error) {
	if l.getErr != nil {
		return pgrepo.DecisionRecord{}, l.getErr
	}
	rec, ok := l.records[l.key(actorUserID, targetUserID)]
	if !ok {
		return pgrepo.DecisionRecord{}, pgrepo.ErrDecisionNotFound
	}
	return rec, nil
}

type recordingChannels struct {
	upserts []string
	err     error
}

func (c *recordingChannels) MergeUpsert(_ context.Context, channelID string, userLoID, userHiID int64) (pgrepo.ChannelRecord, error) {
	if c.err != nil {
		return pgrepo.ChannelRecord{}, c.err
	}
	c.upserts = append(c.upserts, channelID)
	return pgrepo.ChannelRecord{ChannelID: channelID, UserLoID: userLoID, UserHiID: userHiID}, nil
}

type recordingNotifier struct {
	notified []string
}

func (n *recordingNotifier) NotifyMatch(_ context.Context, _, _ int64, channelID string) error {
	n.notified = append(n.notified, channelID)
	return nil
}

type stubLimiter struct {
	retryAfter int64
	allowed    bool
	err        error
}

func (l *stubLimiter) AllowSwipe(_ context.Context, _ int64) (int64, bool, error) {
	return l.retryAfter, l.allowed, l.err
}

func newTestService(ledger *memoryLedger, channels *recordingChannels, notifier *recordingNotifier) *Service {
	deps := Dependencies{
		Ledger:   ledger,
		Channels: channels,
	}
	if notifier != nil {
		deps.Notifier = notifier
	}
	return NewService(deps, Config{})
}

func TestCommitMutualRightCreatesMatch(t *testing.T) {
	ledger := newMemoryLedger()
	channels := &recordingChannels{}
	notifier := &recordingNotifier{}
	svc := newTestService(ledger, channels, notifier)
	ctx := context.Background()

	result, err := svc.Commit(ctx, 7, 42, model.DirectionRight)
	if err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if result.MatchCreated {
		t.Fatalf("one-sided right must not match")
	}

	result, err = svc.Commit(ctx, 42, 7, model.DirectionRight)
	if err != nil {
		t.Fatalf("second commit: %v", err)
	}
	if !result.MatchCreated {
		t.Fatalf("mutual right must match")
	}
	if result.ChannelID != "7_42" {
		t.Fatalf("unexpected channel id: %q", result.ChannelID)
	}
	if len(channels.upserts) != 1 || channels.upserts[0] != "7_42" {
		t.Fatalf("channel not provisioned: %+v", channels.upserts)
	}
	if len(notifier.notified) != 1 {
		t.Fatalf("notification missing: %+v", notifier.notified)
	}
}

func TestCommitLeftNeverMatches(t *testing.T) {
	ledger := newMemoryLedger()
	channels := &recordingChannels{}
	svc := newTestService(ledger, channels, nil)
	ctx := context.Background()

	if _, err := svc.Commit(ctx, 7, 42, model.DirectionRight); err != nil {
		t.Fatalf("commit: %v", err)
	}
	result, err := svc.Commit(ctx, 42, 7, model.DirectionLeft)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if result.MatchCreated || len(channels.upserts) != 0 {
		t.Fatalf("left commit created a match")
	}
}

func TestCommitLastWriteWins(t *testing.T) {
	ledger := newMemoryLedger()
	svc := newTestService(ledger, &recordingChannels{}, nil)
	ctx := context.Background()

	if _, err := svc.Commit(ctx, 7, 42, model.DirectionRight); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := svc.Commit(ctx, 7, 42, model.DirectionLeft); err != nil {
		t.Fatalf("re-commit: %v", err)
	}

	rec, err := ledger.Get(ctx, 7, 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Direction != "left" {
		t.Fatalf("newest decision must win, got %q", rec.Direction)
	}
}

func TestCommitValidation(t *testing.T) {
	svc := newTestService(newMemoryLedger(), &recordingChannels{}, nil)
	ctx := context.Background()

	if _, err := svc.Commit(ctx, 7, 7, model.DirectionRight); !errors.Is(err, ErrValidation) {
		t.Fatalf("self-swipe must fail validation, got %v", err)
	}
	if _, err := svc.Commit(ctx, 0, 42, model.DirectionRight); !errors.Is(err, ErrValidation) {
		t.Fatalf("zero actor must fail validation, got %v", err)
	}
	if _, err := svc.Commit(ctx, 7, 42, model.SwipeDirection("up")); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown direction must fail validation, got %v", err)
	}
}

func TestCommitFailureQueuesSilently(t *testing.T) {
	ledger := newMemoryLedger()
	ledger.failNext = 1
	svc := newTestService(ledger, &recordingChannels{}, nil)
	ctx := context.Background()

	result, err := svc.Commit(ctx, 7, 42, model.DirectionRight)
	if err != nil {
		t.Fatalf("failed write must not surface: %v", err)
	}
	if !result.Queued {
		t.Fatalf("failed write must be queued")
	}
	if svc.PendingRetries() != 1 {
		t.Fatalf("unexpected queue depth: %d", svc.PendingRetries())
	}

	svc.FlushRetries(ctx)
	if svc.PendingRetries() != 0 {
		t.Fatalf("retry did not drain: %d pending", svc.PendingRetries())
	}
	if rec, err := ledger.Get(ctx, 7, 42); err != nil || rec.Direction != "right" {
		t.Fatalf("retried decision missing: %+v, %v", rec, err)
	}
}

func TestFlushRetriesDetectsDeferredMatch(t *testing.T) {
	ledger := newMemoryLedger()
	channels := &recordingChannels{}
	svc := newTestService(ledger, channels, nil)
	ctx := context.Background()

	if _, err := svc.Commit(ctx, 42, 7, model.DirectionRight); err != nil {
		t.Fatalf("mirror commit: %v", err)
	}

	ledger.failNext = 1
	if _, err := svc.Commit(ctx, 7, 42, model.DirectionRight); err != nil {
		t.Fatalf("queued commit: %v", err)
	}
	if len(channels.upserts) != 0 {
		t.Fatalf("match detected before the write landed")
	}

	svc.FlushRetries(ctx)
	if len(channels.upserts) != 1 || channels.upserts[0] != "7_42" {
		t.Fatalf("deferred match not provisioned: %+v", channels.upserts)
	}
}

func TestNewerDecisionReplacesQueuedRetry(t *testing.T) {
	ledger := newMemoryLedger()
	svc := newTestService(ledger, &recordingChannels{}, nil)
	ctx := context.Background()

	ledger.failNext = 2
	if _, err := svc.Commit(ctx, 7, 42, model.DirectionRight); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := svc.Commit(ctx, 7, 42, model.DirectionLeft); err != nil {
		t.Fatalf("re-commit: %v", err)
	}
	if svc.PendingRetries() != 1 {
		t.Fatalf("pair must hold one queued write, got %d", svc.PendingRetries())
	}

	svc.FlushRetries(ctx)
	if rec, err := ledger.Get(ctx, 7, 42); err != nil || rec.Direction != "left" {
		t.Fatalf("stale retry overwrote fresher decision: %+v, %v", rec, err)
	}
}

func TestRetryDroppedAfterMaxAttempts(t *testing.T) {
	ledger := newMemoryLedger()
	svc := NewService(Dependencies{Ledger: ledger}, Config{RetryMaxAttempts: 2})
	ctx := context.Background()

	ledger.failNext = 10
	if _, err := svc.Commit(ctx, 7, 42, model.DirectionRight); err != nil {
		t.Fatalf("commit: %v", err)
	}

	svc.FlushRetries(ctx)
	svc.FlushRetries(ctx)
	if svc.PendingRetries() != 0 {
		t.Fatalf("exhausted retry must be dropped, got %d pending", svc.PendingRetries())
	}
}

func TestMirrorReadErrorMeansNoMatch(t *testing.T) {
	ledger := newMemoryLedger()
	channels := &recordingChannels{}
	svc := newTestService(ledger, channels, nil)
	ctx := context.Background()

	if _, err := svc.Commit(ctx, 42, 7, model.DirectionRight); err != nil {
		t.Fatalf("mirror commit: %v", err)
	}

	ledger.getErr = errors.New("read timeout")
	result, err := svc.Commit(ctx, 7, 42, model.DirectionRight)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if result.MatchCreated || len(channels.upserts) != 0 {
		t.Fatalf("read failure must read as no match")
	}
}

func TestChannelFailureSuppressesMatch(t *testing.T) {
	ledger := newMemoryLedger()
	channels := &recordingChannels{err: errors.New("channel store down")}
	notifier := &recordingNotifier{}
	svc := newTestService(ledger, channels, notifier)
	ctx := context.Background()

	if _, err := svc.Commit(ctx, 42, 7, model.DirectionRight); err != nil {
		t.Fatalf("mirror commit: %v", err)
	}
	result, err := svc.Commit(ctx, 7, 42, model.DirectionRight)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if result.MatchCreated {
		t.Fatalf("match must be suppressed when the channel bootstrap fails")
	}
	if len(notifier.notified) != 0 {
		t.Fatalf("notification must be suppressed with the channel")
	}
}

func TestRateLimiterRejectsCommit(t *testing.T) {
	ledger := newMemoryLedger()
	svc := NewService(Dependencies{
		Ledger:  ledger,
		Limiter: &stubLimiter{retryAfter: 9},
	}, Config{})

	_, err := svc.Commit(context.Background(), 7, 42, model.DirectionRight)
	tf, ok := IsTooFast(err)
	if !ok {
		t.Fatalf("expected TooFastError, got %v", err)
	}
	if tf.RetryAfterSec != 9 {
		t.Fatalf("unexpected retry after: %d", tf.RetryAfterSec)
	}
	if len(ledger.records) != 0 {
		t.Fatalf("rejected commit must not write")
	}
}

func TestRateLimiterFailureAllowsCommit(t *testing.T) {
	ledger := newMemoryLedger()
	svc := NewService(Dependencies{
		Ledger:  ledger,
		Limiter: &stubLimiter{err: errors.New("redis down")},
	}, Config{})

	if _, err := svc.Commit(context.Background(), 7, 42, model.DirectionRight); err != nil {
		t.Fatalf("limiter outage must not block commits: %v", err)
	}
	if len(ledger.records) != 1 {
		t.Fatalf("decision not written")
	}
}
