package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakesanders16/mini-youtube/internal/model"
	"github.com/jakesanders16/mini-youtube/internal/pkg/db"
)

const challengeColumns = `c.id, c.challenger_id, c.opponent_id, c.lift_type, c.duration_days,
	c.stake, c.pot, c.status, c.winner_id, c.challenger_video_id, c.opponent_video_id,
	c.challenger_weight, c.opponent_weight, c.expires_at, c.created_at, c.resolved_at,
	cu.username, ou.username`

const challengeFrom = `challenges c
	JOIN users cu ON cu.id = c.challenger_id
	JOIN users ou ON ou.id = c.opponent_id`

// ChallengeRepository handles challenge persistence.
type ChallengeRepository struct {
	db db.DBTX
}

// NewChallengeRepository creates a new ChallengeRepository instance.
func NewChallengeRepository(q db.DBTX) *ChallengeRepository {
	return &ChallengeRepository{db: q}
}

func scanChallenge(row pgx.Row) (*model.Challenge, error) {
	var c model.Challenge
	err := row.Scan(
		&c.ID,
		&c.ChallengerID,
		&c.OpponentID,
		&c.LiftType,
		&c.DurationDays,
		&c.Stake,
		&c.Pot,
		&c.Status,
		&c.WinnerID,
		&c.ChallengerVideoID,
		&c.OpponentVideoID,
		&c.ChallengerWeight,
		&c.OpponentWeight,
		&c.ExpiresAt,
		&c.CreatedAt,
		&c.ResolvedAt,
		&c.ChallengerName,
		&c.OpponentName,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a pending challenge and fills in its id.
func (r *ChallengeRepository) Create(ctx context.Context, c *model.Challenge) (*model.Challenge, error) {
	query := `
		WITH c AS (
			INSERT INTO challenges (challenger_id, opponent_id, lift_type, duration_days,
				stake, pot, status, expires_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING *
		)
		SELECT ` + challengeColumns + `
		FROM c
		JOIN users cu ON cu.id = c.challenger_id
		JOIN users ou ON ou.id = c.opponent_id`

	created, err := scanChallenge(r.db.QueryRow(ctx, query,
		c.ChallengerID, c.OpponentID, c.LiftType, c.DurationDays,
		c.Stake, c.Pot, c.Status, c.ExpiresAt, c.CreatedAt,
	))
	if err != nil {
		return nil, mapError(err, ErrUserNotFound, "create challenge")
	}
	return created, nil
}

// GetByID retrieves a challenge with participant names.
func (r *ChallengeRepository) GetByID(ctx context.Context, id int64) (*model.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM ` + challengeFrom + ` WHERE c.id = $1`

	c, err := scanChallenge(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, ErrChallengeNotFound, "get challenge")
	}
	return c, nil
}

// GetForUpdate retrieves a challenge and row-locks it for the rest of the
// transaction.
func (r *ChallengeRepository) GetForUpdate(ctx context.Context, id int64) (*model.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM ` + challengeFrom + ` WHERE c.id = $1 FOR UPDATE OF c`

	c, err := scanChallenge(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, ErrChallengeNotFound, "lock challenge")
	}
	return c, nil
}

// Save writes the mutable state of a challenge back.
func (r *ChallengeRepository) Save(ctx context.Context, c *model.Challenge) error {
	const query = `
		UPDATE challenges
		SET status = $2,
			winner_id = $3,
			challenger_video_id = $4,
			opponent_video_id = $5,
			challenger_weight = $6,
			opponent_weight = $7,
			resolved_at = $8
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		c.ID, c.Status, c.WinnerID,
		c.ChallengerVideoID, c.OpponentVideoID,
		c.ChallengerWeight, c.OpponentWeight,
		c.ResolvedAt,
	)
	if err != nil {
		return mapError(err, ErrVideoNotFound, "save challenge")
	}
	if tag.RowsAffected() == 0 {
		return ErrChallengeNotFound
	}
	return nil
}

// ListForUser returns challenges the user takes part in, newest first.
func (r *ChallengeRepository) ListForUser(ctx context.Context, userID int64, limit int) ([]*model.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM ` + challengeFrom + `
		WHERE c.challenger_id = $1 OR c.opponent_id = $1
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	defer rows.Close()

	var out []*model.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListOverdueIDs returns open challenges whose deadline passed before now.
func (r *ChallengeRepository) ListOverdueIDs(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	const query = `
		SELECT id FROM challenges
		WHERE status IN ('pending', 'active') AND expires_at < $1
		ORDER BY expires_at, id
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue challenges: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan challenge id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
