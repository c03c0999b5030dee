package pool

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/itsmeHabibs/poundrr-backend/internal/domain/model"
	"github.com/itsmeHabibs/poundrr-backend/internal/pkg/validate"
	pgrepo "github.com/itsmeHabibs/poundrr-backend/internal/repo/postgres"
)

type ProfileStore interface {
	GetHandle(ctx context.Context, userID int64) (string, error)
	ListRecent(ctx context.Context, q pgrepo.CandidateQuery) ([]pgrepo.CandidateRecord, error)
}

type LedgerStore interface {
	ListTargetIDs(ctx context.Context, actorUserID int64) ([]int64, error)
}

type MediaResolver interface {
	PresignPhotoURL(ctx context.Context, key string) (string, error)
}

type Config struct {
	PageSize   int
	WindowDays int
}

// Service builds the bounded, newest-first candidate pool for a
// viewer. Every fetch failure degrades to an empty pool; the deck
// exposes a manual refresh, so nothing here is worth failing a request
// over.
type Service struct {
	profiles ProfileStore
	ledger   LedgerStore
	media    MediaResolver
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(profiles ProfileStore, ledger LedgerStore, media MediaResolver, cfg Config, logger *zap.Logger) *Service {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 30
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		profiles: profiles,
		ledger:   ledger,
		media:    media,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Build returns up to limit candidates for the viewer, newest profile
// first. Excluded: the viewer, every target already in the viewer's
// outgoing ledger, and any profile whose normalized handle equals the
// viewer's (duplicate-account guard).
func (s *Service) Build(ctx context.Context, viewerUserID int64, limit int) []model.Candidate {
	if viewerUserID <= 0 || s.profiles == nil || s.ledger == nil {
		return []model.Candidate{}
	}
	if limit <= 0 {
		limit = s.cfg.PageSize
	}

	excluded, err := s.ledger.ListTargetIDs(ctx, viewerUserID)
	if err != nil {
		s.logger.Warn("candidate pool: exclusion set fetch failed", zap.Int64("user_id", viewerUserID), zap.Error(err))
		return []model.Candidate{}
	}

	viewerHandle := ""
	if handle, err := s.profiles.GetHandle(ctx, viewerUserID); err == nil {
		viewerHandle = validate.NormalizeHandle(handle)
	} else {
		s.logger.Warn("candidate pool: viewer handle fetch failed", zap.Int64("user_id", viewerUserID), zap.Error(err))
	}

	windowStart := s.now().UTC().AddDate(0, 0, -s.cfg.WindowDays)
	rows, err := s.profiles.ListRecent(ctx, pgrepo.CandidateQuery{
		ViewerUserID: viewerUserID,
		ViewerHandle: viewerHandle,
		ExcludedIDs:  excluded,
		WindowStart:  windowStart,
		Limit:        limit,
	})
	if err != nil {
		s.logger.Warn("candidate pool: profile window fetch failed", zap.Int64("user_id", viewerUserID), zap.Error(err))
		return []model.Candidate{}
	}

	candidates := make([]model.Candidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, model.Candidate{
			UserID:      row.UserID,
			DisplayName: row.DisplayName,
			Age:         row.Age,
			WeightClass: row.WeightClass,
			Disciplines: row.Disciplines,
			Gym:         row.Gym,
			City:        row.City,
			PhotoURLs:   s.resolvePhotos(ctx, row.PhotoKeys),
			CreatedAt:   row.CreatedAt,
		})
	}

	return candidates
}

func (s *Service) resolvePhotos(ctx context.Context, keys []string) []string {
	urls := make([]string, 0, len(keys))
	if s.media == nil {
		return urls
	}

	for _, key := range keys {
		u, err := s.media.PresignPhotoURL(ctx, key)
		if err != nil {
			s.logger.Debug("candidate pool: presign photo failed", zap.String("key", key), zap.Error(err))
			continue
		}
		urls = append(urls, u)
	}

	return urls
}
