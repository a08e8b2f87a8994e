package repository

import (
	"context"
	"fmt"

	"github.com/jakesanders16/mini-youtube/internal/model"
	"github.com/jakesanders16/mini-youtube/internal/pkg/db"
)

// CommentRepository handles comment persistence.
type CommentRepository struct {
	db db.DBTX
}

// NewCommentRepository creates a new CommentRepository instance.
func NewCommentRepository(q db.DBTX) *CommentRepository {
	return &CommentRepository{db: q}
}

// Create inserts a comment.
func (r *CommentRepository) Create(ctx context.Context, videoID, userID int64, text string) (*model.Comment, error) {
	const query = `
		INSERT INTO comments (video_id, user_id, text)
		VALUES ($1, $2, $3)
		RETURNING id, video_id, user_id, text, created_at
	`

	var c model.Comment
	err := r.db.QueryRow(ctx, query, videoID, userID, text).Scan(
		&c.ID,
		&c.VideoID,
		&c.UserID,
		&c.Text,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err, ErrVideoNotFound, "create comment")
	}
	return &c, nil
}

// ListByVideo returns a video's comments with their authors, oldest first.
func (r *CommentRepository) ListByVideo(ctx context.Context, videoID int64, limit int) ([]*model.Comment, error) {
	const query = `
		SELECT c.id, c.video_id, c.user_id, c.text, c.created_at, u.username
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.video_id = $1
		ORDER BY c.created_at, c.id
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, videoID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []*model.Comment
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.VideoID, &c.UserID, &c.Text, &c.CreatedAt, &c.Username); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}
