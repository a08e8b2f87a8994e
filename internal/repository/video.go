package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jakesanders16/mini-youtube/internal/model"
	"github.com/jakesanders16/mini-youtube/internal/pkg/db"
	"github.com/jakesanders16/mini-youtube/internal/scoring"
)

const videoColumns = `v.id, v.user_id, v.title, v.lift_type, v.weight, v.reaction_count,
	v.comment_count, v.view_count, v.score, v.created_at, u.username`

// VideoRepository handles video rows and their engagement counters.
type VideoRepository struct {
	db db.DBTX
}

// NewVideoRepository creates a new VideoRepository instance.
func NewVideoRepository(q db.DBTX) *VideoRepository {
	return &VideoRepository{db: q}
}

func scanVideo(row pgx.Row) (*model.Video, error) {
	var v model.Video
	err := row.Scan(
		&v.ID,
		&v.UserID,
		&v.Title,
		&v.LiftType,
		&v.Weight,
		&v.ReactionCount,
		&v.CommentCount,
		&v.ViewCount,
		&v.Score,
		&v.CreatedAt,
		&v.Username,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func scanVideos(rows pgx.Rows) ([]*model.Video, error) {
	defer rows.Close()
	var videos []*model.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate videos: %w", err)
	}
	return videos, nil
}

// Create inserts video metadata handed over by the media pipeline.
func (r *VideoRepository) Create(ctx context.Context, userID int64, title string, liftType *string, weight decimal.NullDecimal) (*model.Video, error) {
	query := `
		WITH v AS (
			INSERT INTO videos (user_id, title, lift_type, weight)
			VALUES ($1, $2, $3, $4)
			RETURNING *
		)
		SELECT ` + videoColumns + ` FROM v JOIN users u ON u.id = v.user_id`

	v, err := scanVideo(r.db.QueryRow(ctx, query, userID, title, liftType, weight))
	if err != nil {
		return nil, mapError(err, ErrUserNotFound, "create video")
	}
	return v, nil
}

// GetByID retrieves a video with its owner's username.
func (r *VideoRepository) GetByID(ctx context.Context, id int64) (*model.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos v JOIN users u ON u.id = v.user_id WHERE v.id = $1`

	v, err := scanVideo(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, ErrVideoNotFound, "get video")
	}
	return v, nil
}

// LockForUpdate row-locks a video for the rest of the transaction and
// returns it. Engagement mutations on one video are serialized by this lock.
func (r *VideoRepository) LockForUpdate(ctx context.Context, id int64) (*model.Video, error) {
	query := `SELECT ` + videoColumns + `
		FROM videos v JOIN users u ON u.id = v.user_id
		WHERE v.id = $1
		FOR UPDATE OF v`

	v, err := scanVideo(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, ErrVideoNotFound, "lock video")
	}
	return v, nil
}

// AdjustCounters applies signed deltas to a video's counters in one
// statement, flooring each at zero, and returns the updated row.
func (r *VideoRepository) AdjustCounters(ctx context.Context, id, reactions, comments, views int64) (*model.Video, error) {
	query := `
		WITH v AS (
			UPDATE videos SET
				reaction_count = GREATEST(reaction_count + $2, 0),
				comment_count = GREATEST(comment_count + $3, 0),
				view_count = GREATEST(view_count + $4, 0)
			WHERE id = $1
			RETURNING *
		)
		SELECT ` + videoColumns + ` FROM v JOIN users u ON u.id = v.user_id`

	v, err := scanVideo(r.db.QueryRow(ctx, query, id, reactions, comments, views))
	if err != nil {
		return nil, mapError(err, ErrVideoNotFound, "adjust video counters")
	}
	return v, nil
}

// SetScore stores a freshly computed ranking score.
func (r *VideoRepository) SetScore(ctx context.Context, id int64, score float64) error {
	const query = `UPDATE videos SET score = $2 WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, score)
	if err != nil {
		return fmt.Errorf("failed to set video score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVideoNotFound
	}
	return nil
}

// SetScores stores scores for many videos in one round trip.
func (r *VideoRepository) SetScores(ctx context.Context, videos []*model.Video) error {
	if len(videos) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, v := range videos {
		batch.Queue(`UPDATE videos SET score = $2 WHERE id = $1`, v.ID, v.Score)
	}
	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range videos {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to refresh scores: %w", err)
		}
	}
	return nil
}

// Delete removes a video; reactions and comments cascade.
func (r *VideoRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM videos WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVideoNotFound
	}
	return nil
}

// EngagementByOwner returns the counters needed to derive a user's points.
func (r *VideoRepository) EngagementByOwner(ctx context.Context, userID int64) ([]scoring.EngagementCounters, error) {
	const query = `SELECT reaction_count, comment_count FROM videos WHERE user_id = $1`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load engagement: %w", err)
	}
	defer rows.Close()

	var out []scoring.EngagementCounters
	for rows.Next() {
		var c scoring.EngagementCounters
		if err := rows.Scan(&c.Reactions, &c.Comments); err != nil {
			return nil, fmt.Errorf("failed to scan engagement: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FeedFilter narrows a feed listing.
type FeedFilter struct {
	UserID   *int64
	LiftType *string
	Since    *time.Time
	Limit    int
	Offset   int
}

// ListFeed returns videos in feed order: score, then recency.
func (r *VideoRepository) ListFeed(ctx context.Context, f FeedFilter) ([]*model.Video, error) {
	query := `SELECT ` + videoColumns + `
		FROM videos v JOIN users u ON u.id = v.user_id
		WHERE ($1::bigint IS NULL OR v.user_id = $1)
		  AND ($2::text IS NULL OR v.lift_type = $2)
		  AND ($3::timestamptz IS NULL OR v.created_at >= $3)
		ORDER BY v.score DESC, v.created_at DESC
		LIMIT $4 OFFSET $5`

	rows, err := r.db.Query(ctx, query, f.UserID, f.LiftType, f.Since, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed: %w", err)
	}
	return scanVideos(rows)
}

// ListTrending returns videos created since the given instant in trending
// order: comment count, then score, then recency.
func (r *VideoRepository) ListTrending(ctx context.Context, since time.Time, limit int) ([]*model.Video, error) {
	query := `SELECT ` + videoColumns + `
		FROM videos v JOIN users u ON u.id = v.user_id
		WHERE v.created_at >= $1
		ORDER BY v.comment_count DESC, v.score DESC, v.created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list trending: %w", err)
	}
	return scanVideos(rows)
}
