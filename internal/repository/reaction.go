package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakesanders16/mini-youtube/internal/model"
	"github.com/jakesanders16/mini-youtube/internal/pkg/db"
)

// ToggleOutcome describes what a reaction toggle did to the voter's row.
type ToggleOutcome int

const (
	ReactionAdded ToggleOutcome = iota
	ReactionRemoved
	ReactionChanged
)

// CountDelta is the change the outcome makes to the video's reaction count.
func (o ToggleOutcome) CountDelta() int64 {
	switch o {
	case ReactionAdded:
		return 1
	case ReactionRemoved:
		return -1
	}
	return 0
}

// ReactionRepository stores at most one reaction per (video, voter).
type ReactionRepository struct {
	db db.DBTX
}

// NewReactionRepository creates a new ReactionRepository instance.
func NewReactionRepository(q db.DBTX) *ReactionRepository {
	return &ReactionRepository{db: q}
}

// Toggle applies the toggle rule for one voter and must run inside a
// transaction. An insert that hits the (video_id, voter_key) key falls
// through to a row-locked read, so concurrent toggles by the same voter
// never create a second row.
func (r *ReactionRepository) Toggle(ctx context.Context, videoID int64, voter model.VoterKey, emoji model.Emoji, userID *int64) (ToggleOutcome, error) {
	const insertQuery = `
		INSERT INTO reactions (video_id, voter_key, user_id, emoji)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (video_id, voter_key) DO NOTHING
	`
	const lockQuery = `
		SELECT emoji FROM reactions
		WHERE video_id = $1 AND voter_key = $2
		FOR UPDATE
	`

	// A concurrent remove can delete the row between the insert and the
	// locked read; the second pass then inserts.
	for attempt := 0; attempt < 2; attempt++ {
		tag, err := r.db.Exec(ctx, insertQuery, videoID, voter, userID, emoji)
		if err != nil {
			return 0, mapError(err, ErrVideoNotFound, "insert reaction")
		}
		if tag.RowsAffected() == 1 {
			return ReactionAdded, nil
		}

		var current model.Emoji
		err = r.db.QueryRow(ctx, lockQuery, videoID, voter).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to lock reaction: %w", err)
		}

		if current == emoji {
			const deleteQuery = `DELETE FROM reactions WHERE video_id = $1 AND voter_key = $2`
			if _, err := r.db.Exec(ctx, deleteQuery, videoID, voter); err != nil {
				return 0, fmt.Errorf("failed to remove reaction: %w", err)
			}
			return ReactionRemoved, nil
		}

		const updateQuery = `
			UPDATE reactions SET emoji = $3, user_id = COALESCE($4, user_id), updated_at = NOW()
			WHERE video_id = $1 AND voter_key = $2
		`
		if _, err := r.db.Exec(ctx, updateQuery, videoID, voter, emoji, userID); err != nil {
			return 0, fmt.Errorf("failed to change reaction: %w", err)
		}
		return ReactionChanged, nil
	}

	return 0, fmt.Errorf("failed to toggle reaction: row kept disappearing")
}

// Get returns the voter's live reaction on a video.
// Returns a NotFound error when the voter has none.
func (r *ReactionRepository) Get(ctx context.Context, videoID int64, voter model.VoterKey) (*model.Reaction, error) {
	const query = `
		SELECT video_id, voter_key, user_id, emoji, created_at, updated_at
		FROM reactions
		WHERE video_id = $1 AND voter_key = $2
	`

	var re model.Reaction
	err := r.db.QueryRow(ctx, query, videoID, voter).Scan(
		&re.VideoID,
		&re.VoterKey,
		&re.UserID,
		&re.Emoji,
		&re.CreatedAt,
		&re.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err, errReactionNotFound, "get reaction")
	}
	return &re, nil
}

// Count returns the number of live reaction rows on a video.
func (r *ReactionRepository) Count(ctx context.Context, videoID int64) (int64, error) {
	const query = `SELECT COUNT(*) FROM reactions WHERE video_id = $1`

	var n int64
	if err := r.db.QueryRow(ctx, query, videoID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count reactions: %w", err)
	}
	return n, nil
}

// CountByDay returns reactions created per calendar day since the given
// instant, oldest day first. Days without reactions are omitted.
func (r *ReactionRepository) CountByDay(ctx context.Context, videoID int64, since time.Time, loc *time.Location) ([]model.DailyCount, error) {
	const query = `
		SELECT (created_at AT TIME ZONE $3)::date AS day, COUNT(*)
		FROM reactions
		WHERE video_id = $1 AND created_at >= $2
		GROUP BY day
		ORDER BY day
	`

	if loc == nil {
		loc = time.UTC
	}
	rows, err := r.db.Query(ctx, query, videoID, since, loc.String())
	if err != nil {
		return nil, fmt.Errorf("failed to count reactions by day: %w", err)
	}
	defer rows.Close()

	var out []model.DailyCount
	for rows.Next() {
		var d model.DailyCount
		if err := rows.Scan(&d.Day, &d.Count); err != nil {
			return nil, fmt.Errorf("failed to scan daily count: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
