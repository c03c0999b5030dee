package swipes

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/itsmeHabibs/poundrr-backend/internal/domain/model"
	pgrepo "github.com/itsmeHabibs/poundrr-backend/internal/repo/postgres"
)

var ErrValidation = errors.New("validation error")

// TooFastError is returned when the rate limiter rejects a commit.
type TooFastError struct {
	RetryAfterSec int64
}

func (e TooFastError) Error() string {
	return "too many swipes, slow down"
}

type LedgerStore interface {
	Upsert(ctx context.Context, actorUserID, targetUserID int64, direction string, now time.Time) (pgrepo.DecisionRecord, error)
	Get(ctx context.Context, actorUserID, targetUserID int64) (pgrepo.DecisionRecord, error)
}

type ChannelStore interface {
	MergeUpsert(ctx context.Context, channelID string, userLoID, userHiID int64) (pgrepo.ChannelRecord, error)
}

type Notifier interface {
	NotifyMatch(ctx context.Context, userID, partnerUserID int64, channelID string) error
}

type RateLimiter interface {
	AllowSwipe(ctx context.Context, userID int64) (int64, bool, error)
}

type Config struct {
	RetryInterval    time.Duration
	RetryMaxAttempts int
}

type CommitResult struct {
	Direction    model.SwipeDirection
	MatchCreated bool
	ChannelID    string
	// Queued means the ledger write failed and was parked for a silent
	// retry. The gesture has already animated away, so the caller must
	// treat this as success.
	Queued bool
}

type Dependencies struct {
	Ledger   LedgerStore
	Channels ChannelStore
	Notifier Notifier
	Limiter  RateLimiter
	Logger   *zap.Logger
}

// Service records swipe decisions and runs reciprocal match detection
// on right-commits. A match is never stored: it is the predicate "both
// directional records exist and both are right", and the only durable
// side effect of detecting one is the idempotent channel merge-upsert.
type Service struct {
	ledger   LedgerStore
	channels ChannelStore
	notifier Notifier
	limiter  RateLimiter
	cfg      Config
	logger   *zap.Logger
	queue    *retryQueue
	now      func() time.Time
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 5 * time.Second
	}
	if cfg.RetryMaxAttempts <= 0 {
		cfg.RetryMaxAttempts = 10
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		ledger:   deps.Ledger,
		channels: deps.Channels,
		notifier: deps.Notifier,
		limiter:  deps.Limiter,
		cfg:      cfg,
		logger:   logger,
		queue:    newRetryQueue(),
		now:      time.Now,
	}
}

// Commit upserts the decision for (actor, target) and, on a right
// decision, checks for the mirror record. Write failures are queued
// and never surfaced: the card is already gone from the deck, and a
// lost write only risks a missed match, not a stuck deck.
func (s *Service) Commit(ctx context.Context, actorUserID, targetUserID int64, direction model.SwipeDirection) (CommitResult, error) {
	if actorUserID <= 0 || targetUserID <= 0 || actorUserID == targetUserID {
		return CommitResult{}, ErrValidation
	}
	if direction != model.DirectionLeft && direction != model.DirectionRight {
		return CommitResult{}, ErrValidation
	}
	if s.ledger == nil {
		return CommitResult{}, errors.New("swipe dependencies are not configured")
	}

	if s.limiter != nil {
		retryAfter, allowed, err := s.limiter.AllowSwipe(ctx, actorUserID)
		if err != nil {
			s.logger.Warn("swipe rate limiter failed, allowing commit",
				zap.Int64("actor_user_id", actorUserID), zap.Error(err))
		} else if !allowed {
			return CommitResult{}, TooFastError{RetryAfterSec: retryAfter}
		}
	}

	result := CommitResult{Direction: direction}

	if _, err := s.ledger.Upsert(ctx, actorUserID, targetUserID, string(direction), s.now().UTC()); err != nil {
		s.logger.Warn("swipe decision write failed, queued for retry",
			zap.Int64("actor_user_id", actorUserID),
			zap.Int64("target_user_id", targetUserID),
			zap.String("direction", string(direction)),
			zap.Error(err))
		s.queue.put(actorUserID, targetUserID, direction)
		result.Queued = true
		return result, nil
	}
	// A fresh successful write supersedes anything parked for this pair.
	s.queue.drop(actorUserID, targetUserID)

	if direction != model.DirectionRight {
		return result, nil
	}

	matched, channelID := s.detectAndProvision(ctx, actorUserID, targetUserID)
	result.MatchCreated = matched
	result.ChannelID = channelID
	return result, nil
}

// detectAndProvision reads the mirror decision and, on a mutual right,
// merge-upserts the shared channel. Read failures mean "no match" (a
// false negative self-heals on the next matches recompute). A channel
// upsert failure suppresses the notification but keeps the decision.
func (s *Service) detectAndProvision(ctx context.Context, actorUserID, targetUserID int64) (bool, string) {
	mirror, err := s.ledger.Get(ctx, targetUserID, actorUserID)
	if err != nil {
		if !errors.Is(err, pgrepo.ErrDecisionNotFound) {
			s.logger.Warn("reciprocal decision read failed, treating as no match",
				zap.Int64("actor_user_id", actorUserID),
				zap.Int64("target_user_id", targetUserID),
				zap.Error(err))
		}
		return false, ""
	}
	if mirror.Direction != string(model.DirectionRight) {
		return false, ""
	}

	channelID := model.ChannelID(actorUserID, targetUserID)
	if s.channels != nil {
		lo, hi := model.OrderPair(actorUserID, targetUserID)
		if _, err := s.channels.MergeUpsert(ctx, channelID, lo, hi); err != nil {
			s.logger.Warn("channel bootstrap failed, match will surface on recompute",
				zap.String("channel_id", channelID), zap.Error(err))
			return false, ""
		}
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyMatch(ctx, actorUserID, targetUserID, channelID); err != nil {
			s.logger.Warn("match notification failed",
				zap.String("channel_id", channelID), zap.Error(err))
		}
	}

	return true, channelID
}

// Run drains the retry queue until ctx is done. The api app starts it
// alongside the server.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.FlushRetries(ctx)
		}
	}
}

// FlushRetries makes one pass over the queued decision writes.
func (s *Service) FlushRetries(ctx context.Context) {
	for _, item := range s.queue.snapshot() {
		if _, err := s.ledger.Upsert(ctx, item.actorUserID, item.targetUserID, string(item.direction), s.now().UTC()); err != nil {
			if dropped := s.queue.fail(item.actorUserID, item.targetUserID, s.cfg.RetryMaxAttempts); dropped {
				s.logger.Warn("swipe decision retry exhausted, dropping write",
					zap.Int64("actor_user_id", item.actorUserID),
					zap.Int64("target_user_id", item.targetUserID),
					zap.Error(err))
			}
			continue
		}

		s.queue.drop(item.actorUserID, item.targetUserID)
		if item.direction == model.DirectionRight {
			s.detectAndProvision(ctx, item.actorUserID, item.targetUserID)
		}
	}
}

// PendingRetries reports the queue depth.
func (s *Service) PendingRetries() int {
	return s.queue.len()
}

func IsTooFast(err error) (TooFastError, bool) {
	var tf TooFastError
	if errors.As(err, &tf) {
		return tf, true
	}
	return TooFastError{}, false
}
