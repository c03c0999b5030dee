package deck

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/itsmeHabibs/poundrr-backend/internal/domain/model"
	swipesvc "github.com/itsmeHabibs/poundrr-backend/internal/services/swipes"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrNoActiveCard = errors.New("no card is being presented")
	ErrCardInFlight = errors.New("card animation is in flight")
	ErrNotAnimating = errors.New("no card animation to complete")
)

type PoolBuilder interface {
	Build(ctx context.Context, viewerUserID int64, limit int) []model.Candidate
}

type Committer interface {
	Commit(ctx context.Context, actorUserID, targetUserID int64, direction model.SwipeDirection) (swipesvc.CommitResult, error)
}

type Config struct {
	// ThresholdRatio scales the commit threshold to the reported
	// viewport width: T = ratio * width. The boundary is inclusive on
	// both sides.
	ThresholdRatio    float64
	VelocityThreshold float64
	PageSize          int
}

// Gesture is a release event reported by the client: final horizontal
// displacement and release velocity, both in viewport units.
type Gesture struct {
	DX            float64
	VX            float64
	ViewportWidth float64
}

type ReleaseResult struct {
	Committed    bool
	Direction    model.SwipeDirection
	MatchCreated bool
	ChannelID    string
	View         View
}

// View is the renderable deck snapshot. Next is always exposed so the
// client keeps the under-card rendered beneath the live drag and card
// removal never pops.
type View struct {
	State     State            `json:"state"`
	Top       *model.Candidate `json:"top,omitempty"`
	Next      *model.Candidate `json:"next,omitempty"`
	Remaining int              `json:"remaining"`
}

// Service owns one deck session per user: position, the in-flight
// flag, and the refresh generation. No other component mutates these.
type Service struct {
	mu        sync.Mutex
	sessions  map[int64]*session
	pool      PoolBuilder
	committer Committer
	cfg       Config
	logger    *zap.Logger
}

func NewService(pool PoolBuilder, committer Committer, cfg Config, logger *zap.Logger) *Service {
	if cfg.ThresholdRatio <= 0 {
		cfg.ThresholdRatio = 0.28
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		sessions:  make(map[int64]*session),
		pool:      pool,
		committer: committer,
		cfg:       cfg,
		logger:    logger,
	}
}

func (s *Service) Snapshot(userID int64) (View, error) {
	if userID <= 0 {
		return View{}, ErrValidation
	}
	return s.session(userID).view(), nil
}

// Refresh reloads the pool. The fetch runs outside the session lock;
// a fetch superseded by a newer refresh is discarded at apply time via
// the generation token.
func (s *Service) Refresh(ctx context.Context, userID int64) (View, error) {
	if userID <= 0 {
		return View{}, ErrValidation
	}
	if s.pool == nil {
		return View{}, errors.New("deck pool builder is not configured")
	}

	sess := s.session(userID)
	gen, err := sess.beginRefresh()
	if err != nil {
		return View{}, err
	}

	cards := s.pool.Build(ctx, userID, s.cfg.PageSize)

	if !sess.applyPool(gen, cards) {
		s.logger.Debug("deck refresh superseded, discarding fetched pool",
			zap.Int64("user_id", userID), zap.Uint64("generation", gen))
	}

	return sess.view(), nil
}

// Release resolves a gesture release on the top card. On commit the
// session enters AnimatingOut atomically, so a second release for the
// same card is structurally impossible; the decision is recorded while
// the client animates.
func (s *Service) Release(ctx context.Context, userID int64, g Gesture) (ReleaseResult, error) {
	if userID <= 0 || g.ViewportWidth <= 0 {
		return ReleaseResult{}, ErrValidation
	}
	if s.committer == nil {
		return ReleaseResult{}, errors.New("deck committer is not configured")
	}

	sess := s.session(userID)
	direction, targetID, committed, err := sess.beginCommit(g, s.cfg)
	if err != nil {
		return ReleaseResult{}, err
	}
	if !committed {
		return ReleaseResult{View: sess.view()}, nil
	}

	res, err := s.committer.Commit(ctx, userID, targetID, direction)
	if err != nil {
		// The card never left: a rejected commit (rate limit,
		// validation) springs the top card back to center.
		sess.cancelCommit()
		return ReleaseResult{}, err
	}

	return ReleaseResult{
		Committed:    true,
		Direction:    direction,
		MatchCreated: res.MatchCreated,
		ChannelID:    res.ChannelID,
		View:         sess.view(),
	}, nil
}

// AnimationDone advances past the card that just animated out.
func (s *Service) AnimationDone(userID int64) (View, error) {
	if userID <= 0 {
		return View{}, ErrValidation
	}

	sess := s.session(userID)
	if err := sess.finishAnimation(); err != nil {
		return View{}, err
	}
	return sess.view(), nil
}

func (s *Service) session(userID int64) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		sess = newSession()
		s.sessions[userID] = sess
	}
	return sess
}
