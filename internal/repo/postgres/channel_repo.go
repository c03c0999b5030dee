package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrChannelNotFound = errors.New("chat channel not found")

// ChannelRepo stores chat channels keyed by the deterministic pair id.
// Provisioning is a merge-upsert: both sides of a match may race to
// create the row and the conflict branch only touches updated_at, so
// neither message history nor the summary is ever truncated by a
// concurrent bootstrap.
type ChannelRepo struct {
	pool *pgxpool.Pool
}

func NewChannelRepo(pool *pgxpool.Pool) *ChannelRepo {
	return &ChannelRepo{pool: pool}
}

type ChannelRecord struct {
	ChannelID       string
	UserLoID        int64
	UserHiID        int64
	LastMessageText string
	LastMessageAt   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (r *ChannelRepo) MergeUpsert(ctx context.Context, channelID string, userLoID, userHiID int64) (ChannelRecord, error) {
	if strings.TrimSpace(channelID) == "" || userLoID <= 0 || userHiID <= 0 || userLoID >= userHiID {
		return ChannelRecord{}, fmt.Errorf("invalid channel payload")
	}
	if r.pool == nil {
		return ChannelRecord{}, fmt.Errorf("postgres pool is nil")
	}

	var rec ChannelRecord
	err := r.pool.QueryRow(ctx, `
INSERT INTO chat_channels (
	channel_id,
	user_lo_id,
	user_hi_id,
	last_message_text,
	created_at,
	updated_at
) VALUES ($1, $2, $3, '', NOW(), NOW())
ON CONFLICT (channel_id) DO UPDATE SET
	updated_at = NOW()
RETURNING channel_id, user_lo_id, user_hi_id, last_message_text, last_message_at, created_at, updated_at
`, channelID, userLoID, userHiID).Scan(
		&rec.ChannelID,
		&rec.UserLoID,
		&rec.UserHiID,
		&rec.LastMessageText,
		&rec.LastMessageAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return ChannelRecord{}, fmt.Errorf("merge upsert channel: %w", err)
	}

	return rec, nil
}

func (r *ChannelRepo) Get(ctx context.Context, channelID string) (ChannelRecord, error) {
	if strings.TrimSpace(channelID) == "" {
		return ChannelRecord{}, fmt.Errorf("channel id is required")
	}
	if r.pool == nil {
		return ChannelRecord{}, ErrChannelNotFound
	}

	var rec ChannelRecord
	err := r.pool.QueryRow(ctx, `
SELECT channel_id, user_lo_id, user_hi_id, last_message_text, last_message_at, created_at, updated_at
FROM chat_channels
WHERE channel_id = $1
LIMIT 1
`, channelID).Scan(
		&rec.ChannelID,
		&rec.UserLoID,
		&rec.UserHiID,
		&rec.LastMessageText,
		&rec.LastMessageAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ChannelRecord{}, ErrChannelNotFound
		}
		return ChannelRecord{}, fmt.Errorf("get channel: %w", err)
	}

	return rec, nil
}

// ListExisting filters the given ids down to those already
// provisioned. The matches view uses it to find pairs whose channel
// bootstrap was lost and needs re-provisioning.
func (r *ChannelRepo) ListExisting(ctx context.Context, channelIDs []string) ([]string, error) {
	if len(channelIDs) == 0 {
		return []string{}, nil
	}
	if r.pool == nil {
		return []string{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT channel_id
FROM chat_channels
WHERE channel_id = ANY($1)
`, channelIDs)
	if err != nil {
		return nil, fmt.Errorf("list existing channels: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, len(channelIDs))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan existing channel: %w", err)
		}
		ids = append(ids, id)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate existing channels: %w", rows.Err())
	}

	return ids, nil
}

// TouchSummary runs inside the message-append transaction so the
// channel summary and the appended message commit together.
func (r *ChannelRepo) TouchSummary(ctx context.Context, tx pgx.Tx, channelID, preview string, at time.Time) error {
	if strings.TrimSpace(channelID) == "" {
		return fmt.Errorf("channel id is required")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	result, err := tx.Exec(ctx, `
UPDATE chat_channels
SET
	last_message_text = $2,
	last_message_at = $3,
	updated_at = NOW()
WHERE channel_id = $1
`, channelID, preview, at.UTC())
	if err != nil {
		return fmt.Errorf("touch channel summary: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrChannelNotFound
	}

	return nil
}
