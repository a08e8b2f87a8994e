package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jakesanders16/mini-youtube/internal/model"
	"github.com/jakesanders16/mini-youtube/internal/pkg/db"
)

// PersonalBestRepository tracks each user's heaviest lift per lift type.
type PersonalBestRepository struct {
	db db.DBTX
}

// NewPersonalBestRepository creates a new PersonalBestRepository instance.
func NewPersonalBestRepository(q db.DBTX) *PersonalBestRepository {
	return &PersonalBestRepository{db: q}
}

// Raise records weight as the user's best for liftType if it beats the
// stored best. It reports whether a new best was set.
func (r *PersonalBestRepository) Raise(ctx context.Context, userID int64, liftType string, weight decimal.Decimal, videoID *int64) (bool, error) {
	const query = `
		INSERT INTO personal_bests (user_id, lift_type, weight, video_id, set_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, lift_type) DO UPDATE
		SET weight = EXCLUDED.weight, video_id = EXCLUDED.video_id, set_at = EXCLUDED.set_at
		WHERE personal_bests.weight < EXCLUDED.weight
	`

	tag, err := r.db.Exec(ctx, query, userID, liftType, weight, videoID)
	if err != nil {
		return false, mapError(err, ErrUserNotFound, "raise personal best")
	}
	return tag.RowsAffected() == 1, nil
}

// Set stores weight as the user's best for liftType, replacing any
// stored best even when it was heavier.
func (r *PersonalBestRepository) Set(ctx context.Context, userID int64, liftType string, weight decimal.Decimal, videoID *int64) (*model.PersonalBest, error) {
	const query = `
		INSERT INTO personal_bests (user_id, lift_type, weight, video_id, set_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, lift_type) DO UPDATE
		SET weight = EXCLUDED.weight, video_id = EXCLUDED.video_id, set_at = EXCLUDED.set_at
		RETURNING user_id, lift_type, weight, video_id, set_at
	`

	var pb model.PersonalBest
	err := r.db.QueryRow(ctx, query, userID, liftType, weight, videoID).Scan(
		&pb.UserID,
		&pb.LiftType,
		&pb.Weight,
		&pb.VideoID,
		&pb.SetAt,
	)
	if err != nil {
		return nil, mapError(err, ErrUserNotFound, "set personal best")
	}
	return &pb, nil
}

// ListByUser returns a user's personal bests by lift type.
func (r *PersonalBestRepository) ListByUser(ctx context.Context, userID int64) ([]*model.PersonalBest, error) {
	const query = `
		SELECT user_id, lift_type, weight, video_id, set_at
		FROM personal_bests
		WHERE user_id = $1
		ORDER BY lift_type
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list personal bests: %w", err)
	}
	defer rows.Close()

	var out []*model.PersonalBest
	for rows.Next() {
		var pb model.PersonalBest
		if err := rows.Scan(&pb.UserID, &pb.LiftType, &pb.Weight, &pb.VideoID, &pb.SetAt); err != nil {
			return nil, fmt.Errorf("failed to scan personal best: %w", err)
		}
		out = append(out, &pb)
	}
	return out, rows.Err()
}
