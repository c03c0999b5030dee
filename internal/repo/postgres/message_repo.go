package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MessageRepo is the per-channel ordered message sub-log. Rows are
// append-only with server-assigned timestamps; paging walks backward
// on the keyset (created_at, id).
type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

type MessageRecord struct {
	ID           string
	ChannelID    string
	SenderUserID int64
	Body         string
	CreatedAt    time.Time
}

func (r *MessageRepo) Append(ctx context.Context, tx pgx.Tx, id, channelID string, senderUserID int64, body string) (MessageRecord, error) {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(channelID) == "" || senderUserID <= 0 {
		return MessageRecord{}, fmt.Errorf("invalid message payload")
	}
	if tx == nil {
		return MessageRecord{}, fmt.Errorf("transaction is required")
	}

	var rec MessageRecord
	err := tx.QueryRow(ctx, `
INSERT INTO chat_messages (
	id,
	channel_id,
	sender_user_id,
	body,
	created_at
) VALUES ($1, $2, $3, $4, NOW())
RETURNING id, channel_id, sender_user_id, body, created_at
`, id, channelID, senderUserID, body).Scan(
		&rec.ID,
		&rec.ChannelID,
		&rec.SenderUserID,
		&rec.Body,
		&rec.CreatedAt,
	)
	if err != nil {
		return MessageRecord{}, fmt.Errorf("append message: %w", err)
	}

	return rec, nil
}

// ListLatest returns the newest messages, newest first. Callers
// reverse for display order.
func (r *MessageRepo) ListLatest(ctx context.Context, channelID string, limit int) ([]MessageRecord, error) {
	if strings.TrimSpace(channelID) == "" {
		return nil, fmt.Errorf("channel id is required")
	}
	if limit <= 0 {
		limit = 30
	}
	if r.pool == nil {
		return []MessageRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, channel_id, sender_user_id, body, created_at
FROM chat_messages
WHERE channel_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("list latest messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows, limit)
}

// ListOlder fetches the page strictly older than the cursor
// (created_at, id), newest first.
func (r *MessageRepo) ListOlder(ctx context.Context, channelID string, beforeAt time.Time, beforeID string, limit int) ([]MessageRecord, error) {
	if strings.TrimSpace(channelID) == "" {
		return nil, fmt.Errorf("channel id is required")
	}
	if beforeAt.IsZero() || strings.TrimSpace(beforeID) == "" {
		return nil, fmt.Errorf("invalid message cursor")
	}
	if limit <= 0 {
		limit = 30
	}
	if r.pool == nil {
		return []MessageRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, channel_id, sender_user_id, body, created_at
FROM chat_messages
WHERE
	channel_id = $1
	AND (created_at < $2 OR (created_at = $2 AND id < $3))
ORDER BY created_at DESC, id DESC
LIMIT $4
`, channelID, beforeAt.UTC(), beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list older messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows, limit)
}

func scanMessages(rows pgx.Rows, capacity int) ([]MessageRecord, error) {
	items := make([]MessageRecord, 0, capacity)
	for rows.Next() {
		var rec MessageRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.ChannelID,
			&rec.SenderUserID,
			&rec.Body,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		items = append(items, rec)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate messages: %w", rows.Err())
	}

	return items, nil
}
