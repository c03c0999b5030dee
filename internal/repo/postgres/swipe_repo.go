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

var ErrDecisionNotFound = errors.New("swipe decision not found")

// SwipeRepo is the ledger of directional decisions. The key is the
// ordered pair (actor, target); the contract is merge-upsert with
// last-write-wins and no causal ordering across clients. At most one
// live record exists per ordered pair.
type SwipeRepo struct {
	pool *pgxpool.Pool
}

func NewSwipeRepo(pool *pgxpool.Pool) *SwipeRepo {
	return &SwipeRepo{pool: pool}
}

type DecisionRecord struct {
	ActorUserID  int64
	TargetUserID int64
	Direction    string
	CreatedAt    time.Time
}

type MutualMatchRecord struct {
	TargetUserID int64
	DisplayName  string
	WeightClass  string
	City         string
	MatchedAt    time.Time
}

func (r *SwipeRepo) Upsert(ctx context.Context, actorUserID, targetUserID int64, direction string, now time.Time) (DecisionRecord, error) {
	if actorUserID <= 0 || targetUserID <= 0 || strings.TrimSpace(direction) == "" {
		return DecisionRecord{}, fmt.Errorf("invalid decision payload")
	}
	if r.pool == nil {
		return DecisionRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var rec DecisionRecord
	err := r.pool.QueryRow(ctx, `
INSERT INTO swipe_decisions (
	actor_user_id,
	target_user_id,
	direction,
	created_at
) VALUES ($1, $2, $3, $4)
ON CONFLICT (actor_user_id, target_user_id) DO UPDATE SET
	direction = EXCLUDED.direction,
	created_at = EXCLUDED.created_at
RETURNING actor_user_id, target_user_id, direction, created_at
`, actorUserID, targetUserID, strings.ToLower(strings.TrimSpace(direction)), now.UTC()).Scan(
		&rec.ActorUserID,
		&rec.TargetUserID,
		&rec.Direction,
		&rec.CreatedAt,
	)
	if err != nil {
		return DecisionRecord{}, fmt.Errorf("upsert swipe decision: %w", err)
	}

	return rec, nil
}

func (r *SwipeRepo) Get(ctx context.Context, actorUserID, targetUserID int64) (DecisionRecord, error) {
	if actorUserID <= 0 || targetUserID <= 0 {
		return DecisionRecord{}, fmt.Errorf("invalid decision key")
	}
	if r.pool == nil {
		return DecisionRecord{}, fmt.Errorf("postgres pool is nil")
	}

	var rec DecisionRecord
	err := r.pool.QueryRow(ctx, `
SELECT actor_user_id, target_user_id, direction, created_at
FROM swipe_decisions
WHERE actor_user_id = $1 AND target_user_id = $2
LIMIT 1
`, actorUserID, targetUserID).Scan(
		&rec.ActorUserID,
		&rec.TargetUserID,
		&rec.Direction,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DecisionRecord{}, ErrDecisionNotFound
		}
		return DecisionRecord{}, fmt.Errorf("get swipe decision: %w", err)
	}

	return rec, nil
}

func (r *SwipeRepo) Delete(ctx context.Context, actorUserID, targetUserID int64) (bool, error) {
	if actorUserID <= 0 || targetUserID <= 0 {
		return false, fmt.Errorf("invalid decision key")
	}
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	result, err := r.pool.Exec(ctx, `
DELETE FROM swipe_decisions
WHERE actor_user_id = $1 AND target_user_id = $2
`, actorUserID, targetUserID)
	if err != nil {
		return false, fmt.Errorf("delete swipe decision: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// ListTargetIDs returns every target the actor has an outgoing
// decision for, regardless of direction. The pool builder uses it as
// the exclusion set.
func (r *SwipeRepo) ListTargetIDs(ctx context.Context, actorUserID int64) ([]int64, error) {
	if actorUserID <= 0 {
		return nil, fmt.Errorf("invalid actor user id")
	}
	if r.pool == nil {
		return []int64{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT target_user_id
FROM swipe_decisions
WHERE actor_user_id = $1
`, actorUserID)
	if err != nil {
		return nil, fmt.Errorf("list decision targets: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, 64)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan decision target: %w", err)
		}
		ids = append(ids, id)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate decision targets: %w", rows.Err())
	}

	return ids, nil
}

// ListMutualRight recomputes matches from the ledger: a pair matches
// iff both directional records exist and both are right. Nothing about
// a match is stored, so the result is always current.
func (r *SwipeRepo) ListMutualRight(ctx context.Context, userID int64, limit int) ([]MutualMatchRecord, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 {
		limit = 100
	}
	if r.pool == nil {
		return []MutualMatchRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	s1.target_user_id,
	COALESCE(p.display_name, ''),
	COALESCE(p.weight_class, ''),
	COALESCE(p.city, ''),
	GREATEST(s1.created_at, s2.created_at) AS matched_at
FROM swipe_decisions s1
JOIN swipe_decisions s2
	ON s2.actor_user_id = s1.target_user_id
	AND s2.target_user_id = s1.actor_user_id
LEFT JOIN profiles p ON p.user_id = s1.target_user_id
WHERE
	s1.actor_user_id = $1
	AND s1.direction = 'right'
	AND s2.direction = 'right'
ORDER BY matched_at DESC, s1.target_user_id DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list mutual right decisions: %w", err)
	}
	defer rows.Close()

	items := make([]MutualMatchRecord, 0, limit)
	for rows.Next() {
		var item MutualMatchRecord
		if err := rows.Scan(
			&item.TargetUserID,
			&item.DisplayName,
			&item.WeightClass,
			&item.City,
			&item.MatchedAt,
		); err != nil {
			return nil, fmt.Errorf("scan mutual match: %w", err)
		}
		items = append(items, item)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate mutual matches: %w", rows.Err())
	}

	return items, nil
}
