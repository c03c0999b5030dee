package matches

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/itsmeHabibs/poundrr-backend/internal/domain/model"
	pgrepo "github.com/itsmeHabibs/poundrr-backend/internal/repo/postgres"
)

var ErrValidation = errors.New("validation error")

type LedgerStore interface {
	ListMutualRight(ctx context.Context, userID int64, limit int) ([]pgrepo.MutualMatchRecord, error)
	Delete(ctx context.Context, actorUserID, targetUserID int64) (bool, error)
}

type ChannelStore interface {
	MergeUpsert(ctx context.Context, channelID string, userLoID, userHiID int64) (pgrepo.ChannelRecord, error)
	ListExisting(ctx context.Context, channelIDs []string) ([]string, error)
}

type Config struct {
	ListLimit int
}

// Match is derived, never stored: a row in this view exists iff both
// directional ledger records exist and both are right.
type Match struct {
	PartnerUserID int64     `json:"partner_user_id"`
	DisplayName   string    `json:"display_name"`
	WeightClass   string    `json:"weight_class,omitempty"`
	City          string    `json:"city,omitempty"`
	ChannelID     string    `json:"channel_id"`
	MatchedAt     time.Time `json:"matched_at"`
}

type Service struct {
	ledger   LedgerStore
	channels ChannelStore
	cfg      Config
	logger   *zap.Logger
}

func NewService(ledger LedgerStore, channels ChannelStore, cfg Config, logger *zap.Logger) *Service {
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		ledger:   ledger,
		channels: channels,
		cfg:      cfg,
		logger:   logger,
	}
}

// List recomputes the user's matches from the ledger and re-provisions
// any channel whose bootstrap was lost at swipe time. Opening the
// matches view is what heals a missed match-time provision.
func (s *Service) List(ctx context.Context, userID int64) ([]Match, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}

	records, err := s.ledger.ListMutualRight(ctx, userID, s.cfg.ListLimit)
	if err != nil {
		return nil, err
	}

	items := make([]Match, 0, len(records))
	channelIDs := make([]string, 0, len(records))
	for _, rec := range records {
		channelID := model.ChannelID(userID, rec.TargetUserID)
		channelIDs = append(channelIDs, channelID)
		items = append(items, Match{
			PartnerUserID: rec.TargetUserID,
			DisplayName:   rec.DisplayName,
			WeightClass:   rec.WeightClass,
			City:          rec.City,
			ChannelID:     channelID,
			MatchedAt:     rec.MatchedAt,
		})
	}

	s.reprovisionMissing(ctx, userID, channelIDs)
	return items, nil
}

// reprovisionMissing merge-upserts channels present in the derived
// match set but absent from storage. Best-effort: a failure here just
// leaves the heal to the next open.
func (s *Service) reprovisionMissing(ctx context.Context, userID int64, channelIDs []string) {
	if s.channels == nil || len(channelIDs) == 0 {
		return
	}

	existing, err := s.channels.ListExisting(ctx, channelIDs)
	if err != nil {
		s.logger.Warn("matches: existing channel lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}

	present := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		present[id] = struct{}{}
	}

	for _, channelID := range channelIDs {
		if _, ok := present[channelID]; ok {
			continue
		}
		lo, hi, err := model.ParticipantsFromChannelID(channelID)
		if err != nil {
			continue
		}
		if _, err := s.channels.MergeUpsert(ctx, channelID, lo, hi); err != nil {
			s.logger.Warn("matches: channel re-provision failed",
				zap.String("channel_id", channelID), zap.Error(err))
		}
	}
}

// Unmatch deletes both directional ledger records as two independent
// best-effort deletes, not a transaction. A partial failure leaves a
// half-unmatched pair that no longer satisfies the mutual-right
// predicate, so the match is gone either way; the channel and its
// messages are left untouched.
func (s *Service) Unmatch(ctx context.Context, userID, partnerUserID int64) error {
	if userID <= 0 || partnerUserID <= 0 || userID == partnerUserID {
		return ErrValidation
	}

	if _, err := s.ledger.Delete(ctx, userID, partnerUserID); err != nil {
		s.logger.Warn("unmatch: forward decision delete failed",
			zap.Int64("user_id", userID),
			zap.Int64("partner_user_id", partnerUserID),
			zap.Error(err))
	}
	if _, err := s.ledger.Delete(ctx, partnerUserID, userID); err != nil {
		s.logger.Warn("unmatch: reverse decision delete failed",
			zap.Int64("user_id", userID),
			zap.Int64("partner_user_id", partnerUserID),
			zap.Error(err))
	}

	return nil
}
