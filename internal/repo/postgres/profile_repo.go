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

var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepo is the read-only view of the external profile store.
// This service never writes profiles.
type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

type CandidateQuery struct {
	ViewerUserID int64
	ViewerHandle string
	ExcludedIDs  []int64
	WindowStart  time.Time
	Limit        int
}

type CandidateRecord struct {
	UserID      int64
	DisplayName string
	Handle      string
	Age         int
	WeightClass string
	Disciplines []string
	Gym         string
	City        string
	PhotoKeys   []string
	CreatedAt   time.Time
}

func (r *ProfileRepo) GetHandle(ctx context.Context, userID int64) (string, error) {
	if userID <= 0 {
		return "", fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return "", ErrProfileNotFound
	}

	var handle string
	err := r.pool.QueryRow(ctx, `
SELECT COALESCE(handle, '')
FROM profiles
WHERE user_id = $1
LIMIT 1
`, userID).Scan(&handle)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrProfileNotFound
		}
		return "", fmt.Errorf("get profile handle: %w", err)
	}

	return handle, nil
}

func (r *ProfileRepo) GetDisplayName(ctx context.Context, userID int64) (string, error) {
	if userID <= 0 {
		return "", fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return "", ErrProfileNotFound
	}

	var name string
	err := r.pool.QueryRow(ctx, `
SELECT COALESCE(display_name, '')
FROM profiles
WHERE user_id = $1
LIMIT 1
`, userID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrProfileNotFound
		}
		return "", fmt.Errorf("get profile display name: %w", err)
	}

	return name, nil
}

// ListRecent fetches the bounded recency window of approved profiles,
// newest first, excluding the viewer, every id in the exclusion set,
// and any profile sharing the viewer's normalized handle.
func (r *ProfileRepo) ListRecent(ctx context.Context, q CandidateQuery) ([]CandidateRecord, error) {
	if q.ViewerUserID <= 0 {
		return nil, fmt.Errorf("invalid viewer id")
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if r.pool == nil {
		return []CandidateRecord{}, nil
	}

	excluded := q.ExcludedIDs
	if excluded == nil {
		excluded = []int64{}
	}
	viewerHandle := strings.TrimSpace(q.ViewerHandle)
	applyHandleFilter := viewerHandle != ""
	windowStart := q.WindowStart.UTC()
	if windowStart.IsZero() {
		windowStart = time.Unix(0, 0).UTC()
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	p.user_id,
	COALESCE(p.display_name, ''),
	COALESCE(p.handle, ''),
	COALESCE(DATE_PART('year', AGE(NOW(), p.birthdate::timestamp))::int, 0) AS age,
	COALESCE(p.weight_class, ''),
	COALESCE(p.disciplines, '{}'::text[]),
	COALESCE(p.gym, ''),
	COALESCE(p.city, ''),
	COALESCE(p.photo_keys, '{}'::text[]),
	p.created_at
FROM profiles p
WHERE
	p.approved = TRUE
	AND p.user_id <> $1
	AND NOT (p.user_id = ANY($2::bigint[]))
	AND ($3::boolean = FALSE OR LOWER(COALESCE(p.handle, '')) <> $4)
	AND p.created_at >= $5::timestamptz
ORDER BY p.created_at DESC, p.user_id DESC
LIMIT $6
`,
		q.ViewerUserID,
		excluded,
		applyHandleFilter,
		strings.ToLower(viewerHandle),
		windowStart,
		q.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list recent profiles: %w", err)
	}
	defer rows.Close()

	items := make([]CandidateRecord, 0, q.Limit)
	for rows.Next() {
		var item CandidateRecord
		if err := rows.Scan(
			&item.UserID,
			&item.DisplayName,
			&item.Handle,
			&item.Age,
			&item.WeightClass,
			&item.Disciplines,
			&item.Gym,
			&item.City,
			&item.PhotoKeys,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan candidate profile: %w", err)
		}
		items = append(items, item)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate candidate profiles: %w", rows.Err())
	}

	return items, nil
}
