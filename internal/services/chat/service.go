package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/itsmeHabibs/poundrr-backend/internal/domain/model"
	pgrepo "github.com/itsmeHabibs/poundrr-backend/internal/repo/postgres"
	redisrepo "github.com/itsmeHabibs/poundrr-backend/internal/repo/redis"
)

var (
	ErrEmptyMessage   = errors.New("message text is empty")
	ErrNotParticipant = errors.New("user is not a channel participant")
)

type MessageStore interface {
	Append(ctx context.Context, tx pgx.Tx, id, channelID string, senderUserID int64, body string) (pgrepo.MessageRecord, error)
	ListLatest(ctx context.Context, channelID string, limit int) ([]pgrepo.MessageRecord, error)
	ListOlder(ctx context.Context, channelID string, beforeAt time.Time, beforeID string, limit int) ([]pgrepo.MessageRecord, error)
}

type ChannelStore interface {
	MergeUpsert(ctx context.Context, channelID string, userLoID, userHiID int64) (pgrepo.ChannelRecord, error)
	TouchSummary(ctx context.Context, tx pgx.Tx, channelID, preview string, at time.Time) error
}

type Stream interface {
	Publish(ctx context.Context, channelID string, payload []byte) error
	Subscribe(ctx context.Context, channelID string) (*redisrepo.Subscription, error)
}

type Config struct {
	PageSize      int
	SummaryMaxLen int
}

type Dependencies struct {
	Messages MessageStore
	Channels ChannelStore
	Stream   Stream
	Logger   *zap.Logger
}

// Service is the message store adapter plus the live-tail plumbing.
// Sends commit the message and the channel summary in one transaction;
// fan-out to subscribers is best-effort, because the durable log is
// the source of truth and the timeline re-fetches on reconnect.
type Service struct {
	messages MessageStore
	channels ChannelStore
	stream   Stream
	cfg      Config
	logger   *zap.Logger
	runTx    func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

func NewService(pool *pgxpool.Pool, deps Dependencies, cfg Config) *Service {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 30
	}
	if cfg.SummaryMaxLen <= 0 {
		cfg.SummaryMaxLen = 120
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		messages: deps.Messages,
		channels: deps.Channels,
		stream:   deps.Stream,
		cfg:      cfg,
		logger:   logger,
		runTx: func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, pool, fn)
		},
	}
}

// Send appends a message to the channel's sub-log. The channel row is
// merge-upserted first, so a send that lands before the match-time
// bootstrap still finds its channel; the append and the summary touch
// commit atomically.
func (s *Service) Send(ctx context.Context, channelID string, senderUserID int64, text string) (model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Message{}, ErrEmptyMessage
	}

	lo, hi, err := model.ParticipantsFromChannelID(channelID)
	if err != nil {
		return model.Message{}, err
	}
	if senderUserID != lo && senderUserID != hi {
		return model.Message{}, ErrNotParticipant
	}

	if _, err := s.channels.MergeUpsert(ctx, channelID, lo, hi); err != nil {
		return model.Message{}, err
	}

	var rec pgrepo.MessageRecord
	id := uuid.NewString()
	err = s.runTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		rec, err = s.messages.Append(ctx, tx, id, channelID, senderUserID, text)
		if err != nil {
			return err
		}
		return s.channels.TouchSummary(ctx, tx, channelID, summarize(text, s.cfg.SummaryMaxLen), rec.CreatedAt)
	})
	if err != nil {
		return model.Message{}, err
	}

	msg := toMessage(rec)
	s.publish(ctx, msg)
	return msg, nil
}

type HistoryPage struct {
	Messages     []model.Message
	NextBeforeAt time.Time
	NextBeforeID string
	HasMore      bool
}

// History returns one page in display order. An empty cursor fetches
// the latest page; otherwise the page strictly older than the cursor.
func (s *Service) History(ctx context.Context, channelID string, userID int64, beforeAt time.Time, beforeID string, limit int) (HistoryPage, error) {
	if !model.IsParticipant(channelID, userID) {
		return HistoryPage{}, ErrNotParticipant
	}
	if limit <= 0 || limit > s.cfg.PageSize {
		limit = s.cfg.PageSize
	}

	var (
		recs []pgrepo.MessageRecord
		err  error
	)
	if beforeID == "" {
		recs, err = s.messages.ListLatest(ctx, channelID, limit)
	} else {
		recs, err = s.messages.ListOlder(ctx, channelID, beforeAt, beforeID, limit)
	}
	if err != nil {
		return HistoryPage{}, err
	}

	page := HistoryPage{
		Messages: make([]model.Message, 0, len(recs)),
		HasMore:  len(recs) == limit,
	}
	// Repo pages are newest first; display order is ascending.
	for i := len(recs) - 1; i >= 0; i-- {
		page.Messages = append(page.Messages, toMessage(recs[i]))
	}
	if len(page.Messages) > 0 {
		oldest := page.Messages[0]
		page.NextBeforeAt = oldest.CreatedAt
		page.NextBeforeID = oldest.ID
	}

	return page, nil
}

// Subscription is an open live view: the initial page plus updates.
type Subscription struct {
	Initial []model.Message
	updates chan model.Message
	stream  *redisrepo.Subscription
}

func (s *Subscription) Updates() <-chan model.Message {
	return s.updates
}

func (s *Subscription) Close() error {
	return s.stream.Close()
}

// Subscribe opens the live tail and then fetches the initial page, in
// that order: anything sent between the two lands on both paths and
// the timeline dedups it, so no message can fall in the gap.
func (s *Service) Subscribe(ctx context.Context, channelID string, userID int64) (*Subscription, error) {
	if !model.IsParticipant(channelID, userID) {
		return nil, ErrNotParticipant
	}

	stream, err := s.stream.Subscribe(ctx, channelID)
	if err != nil {
		return nil, err
	}

	recs, err := s.messages.ListLatest(ctx, channelID, s.cfg.PageSize)
	if err != nil {
		_ = stream.Close()
		return nil, err
	}

	initial := make([]model.Message, 0, len(recs))
	for i := len(recs) - 1; i >= 0; i-- {
		initial = append(initial, toMessage(recs[i]))
	}

	timeline := NewTimeline()
	timeline.Seed(initial)

	sub := &Subscription{
		Initial: initial,
		updates: make(chan model.Message, 16),
		stream:  stream,
	}

	go func() {
		defer close(sub.updates)
		for raw := range stream.Messages() {
			var msg model.Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				s.logger.Warn("chat: malformed stream payload", zap.String("channel_id", channelID), zap.Error(err))
				continue
			}
			if !timeline.Tail(msg) {
				continue
			}
			select {
			case sub.updates <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	return sub, nil
}

func (s *Service) publish(ctx context.Context, msg model.Message) {
	if s.stream == nil {
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		s.logger.Warn("chat: marshal stream payload", zap.String("message_id", msg.ID), zap.Error(err))
		return
	}
	if err := s.stream.Publish(ctx, msg.ChannelID, payload); err != nil {
		s.logger.Warn("chat: publish to stream failed", zap.String("channel_id", msg.ChannelID), zap.Error(err))
	}
}

func toMessage(rec pgrepo.MessageRecord) model.Message {
	return model.Message{
		ID:           rec.ID,
		ChannelID:    rec.ChannelID,
		SenderUserID: rec.SenderUserID,
		Text:         rec.Body,
		CreatedAt:    rec.CreatedAt,
	}
}

func summarize(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen])
}
