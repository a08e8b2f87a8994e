package repository

import (
	"context"
	"fmt"

	"github.com/jakesanders16/mini-youtube/internal/model"
	"github.com/jakesanders16/mini-youtube/internal/pkg/apperr"
	"github.com/jakesanders16/mini-youtube/internal/pkg/db"
	"github.com/jakesanders16/mini-youtube/internal/scoring"
)

// LedgerRepository mutates user balances, monthly epochs and the point
// entry journal. Multi-statement operations must run in a transaction.
type LedgerRepository struct {
	db db.DBTX
}

// NewLedgerRepository creates a new LedgerRepository instance.
func NewLedgerRepository(q db.DBTX) *LedgerRepository {
	return &LedgerRepository{db: q}
}

// Debit subtracts amount from the spendable balance only. The conditional
// update never lets a debit push the balance below zero.
// Returns an InsufficientFunds error when balance < amount.
func (r *LedgerRepository) Debit(ctx context.Context, userID, amount int64) (int64, error) {
	const query = `
		UPDATE users
		SET challenge_points = challenge_points - $2, updated_at = NOW()
		WHERE id = $1 AND balance >= $2
		RETURNING balance
	`

	var balance int64
	err := r.db.QueryRow(ctx, query, userID, amount).Scan(&balance)
	if err == nil {
		return balance, nil
	}

	mapped := mapError(err, ErrUserNotFound, "debit points")
	if mapped != ErrUserNotFound {
		return 0, mapped
	}

	// Distinguish an unknown user from a short balance.
	var current int64
	if err := r.db.QueryRow(ctx, `SELECT balance FROM users WHERE id = $1`, userID).Scan(&current); err != nil {
		return 0, mapError(err, ErrUserNotFound, "debit points")
	}
	return 0, apperr.Newf(apperr.ErrInsufficientFunds,
		"insufficient points: need %d, have %d", amount, current)
}

// Credit adds amount to the spendable balance. When allTime is set the
// all-time total is credited too.
func (r *LedgerRepository) Credit(ctx context.Context, userID, amount int64, allTime bool) (int64, error) {
	const query = `
		UPDATE users
		SET challenge_points = challenge_points + $2,
			balance_alltime = balance_alltime + CASE WHEN $3 THEN $2 ELSE 0 END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING balance
	`

	var balance int64
	if err := r.db.QueryRow(ctx, query, userID, amount, allTime).Scan(&balance); err != nil {
		return 0, mapError(err, ErrUserNotFound, "credit points")
	}
	return balance, nil
}

// AddMonthly applies delta to the user's row for month. Positive deltas
// create the row on first use; negative deltas only lower an existing row,
// never below zero.
func (r *LedgerRepository) AddMonthly(ctx context.Context, userID int64, month string, delta int64) error {
	var query string
	switch {
	case delta > 0:
		query = `
			INSERT INTO monthly_points (user_id, month, points)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, month) DO UPDATE
			SET points = monthly_points.points + EXCLUDED.points
		`
	case delta < 0:
		query = `
			UPDATE monthly_points
			SET points = GREATEST(points + $3, 0)
			WHERE user_id = $1 AND month = $2
		`
	default:
		return nil
	}

	if _, err := r.db.Exec(ctx, query, userID, month, delta); err != nil {
		return mapError(err, ErrUserNotFound, "update monthly points")
	}
	return nil
}

// LockEarned row-locks the user and returns the derived-points state a
// recompute starts from.
func (r *LedgerRepository) LockEarned(ctx context.Context, userID int64) (earned, highWater int64, err error) {
	const query = `
		SELECT earned_points, earned_high_water
		FROM users
		WHERE id = $1
		FOR UPDATE
	`

	if err := r.db.QueryRow(ctx, query, userID).Scan(&earned, &highWater); err != nil {
		return 0, 0, mapError(err, ErrUserNotFound, "lock user points")
	}
	return earned, highWater, nil
}

// ApplyRecompute stores a recompute plan: the new earned total, the new
// high-water mark and the all-time credit.
func (r *LedgerRepository) ApplyRecompute(ctx context.Context, userID int64, rc scoring.Recompute) error {
	const query = `
		UPDATE users
		SET earned_points = $2,
			earned_high_water = $3,
			balance_alltime = balance_alltime + $4,
			updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, userID, rc.Earned, rc.HighWater, rc.AllTimeCredit)
	if err != nil {
		return fmt.Errorf("failed to apply recompute: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Balance returns a user's balances with the given month's points.
func (r *LedgerRepository) Balance(ctx context.Context, userID int64, month string) (*model.Balance, error) {
	const query = `
		SELECT u.id, u.balance, u.balance_alltime, COALESCE(mp.points, 0)
		FROM users u
		LEFT JOIN monthly_points mp ON mp.user_id = u.id AND mp.month = $2
		WHERE u.id = $1
	`

	b := model.Balance{MonthID: month}
	err := r.db.QueryRow(ctx, query, userID, month).Scan(&b.UserID, &b.Balance, &b.AllTime, &b.Month)
	if err != nil {
		return nil, mapError(err, ErrUserNotFound, "get balance")
	}
	return &b, nil
}

// AddEntry records a direct balance mutation in the journal.
func (r *LedgerRepository) AddEntry(ctx context.Context, userID int64, challengeID *int64, amount int64, kind model.EntryKind, description *string) (*model.PointEntry, error) {
	const query = `
		INSERT INTO point_entries (user_id, challenge_id, amount, kind, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, challenge_id, amount, kind, description, created_at
	`

	var e model.PointEntry
	err := r.db.QueryRow(ctx, query, userID, challengeID, amount, kind, description).Scan(
		&e.ID,
		&e.UserID,
		&e.ChallengeID,
		&e.Amount,
		&e.Kind,
		&e.Description,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err, ErrUserNotFound, "record point entry")
	}
	return &e, nil
}

// History returns a user's point entries, newest first.
func (r *LedgerRepository) History(ctx context.Context, userID int64, limit int) ([]*model.PointEntry, error) {
	const query = `
		SELECT id, user_id, challenge_id, amount, kind, description, created_at
		FROM point_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get point entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.PointEntry
	for rows.Next() {
		var e model.PointEntry
		err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.ChallengeID,
			&e.Amount,
			&e.Kind,
			&e.Description,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan point entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating point entries: %w", err)
	}

	return entries, nil
}

// ChallengeNet returns the signed sum of all entries tied to a challenge.
// It is zero once a challenge has released its whole pot.
func (r *LedgerRepository) ChallengeNet(ctx context.Context, challengeID int64) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM point_entries WHERE challenge_id = $1`

	var sum int64
	if err := r.db.QueryRow(ctx, query, challengeID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum challenge entries: %w", err)
	}
	return sum, nil
}
