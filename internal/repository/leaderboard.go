package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jakesanders16/mini-youtube/internal/model"
	"github.com/jakesanders16/mini-youtube/internal/pkg/db"
)

// LeaderboardRepository runs the read-only ranking queries. Ranks are
// assigned by the caller from output position.
type LeaderboardRepository struct {
	db db.DBTX
}

// NewLeaderboardRepository creates a new LeaderboardRepository instance.
func NewLeaderboardRepository(q db.DBTX) *LeaderboardRepository {
	return &LeaderboardRepository{db: q}
}

const videoCountExpr = `(SELECT COUNT(*) FROM videos v WHERE v.user_id = u.id)`

// Monthly ranks users by their points for month; users without a row count
// as 0. VideoCount only counts videos posted at or after since, the start
// of month.
func (r *LeaderboardRepository) Monthly(ctx context.Context, month string, since time.Time, q model.LeaderboardQuery) ([]model.LeaderboardEntry, error) {
	query := `
		SELECT u.id, u.username, u.gym_id, g.name, COALESCE(mp.points, 0) AS points,
		       (SELECT COUNT(*) FROM videos v WHERE v.user_id = u.id AND v.created_at >= $2)
		FROM users u
		LEFT JOIN gyms g ON g.id = u.gym_id
		LEFT JOIN monthly_points mp ON mp.user_id = u.id AND mp.month = $1
		WHERE ($3::bigint IS NULL OR u.gym_id = $3)
		  AND ($4::text IS NULL OR u.gender = $4)
		ORDER BY points DESC, u.id ASC
		LIMIT $5`

	rows, err := r.db.Query(ctx, query, month, since, q.GymID, q.Gender, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly leaderboard: %w", err)
	}
	return scanPointEntries(rows)
}

// AllTime ranks users by their all-time balance.
func (r *LeaderboardRepository) AllTime(ctx context.Context, q model.LeaderboardQuery) ([]model.LeaderboardEntry, error) {
	query := `
		SELECT u.id, u.username, u.gym_id, g.name, u.balance_alltime, ` + videoCountExpr + `
		FROM users u
		LEFT JOIN gyms g ON g.id = u.gym_id
		WHERE ($1::bigint IS NULL OR u.gym_id = $1)
		  AND ($2::text IS NULL OR u.gender = $2)
		ORDER BY u.balance_alltime DESC, u.id ASC
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, q.GymID, q.Gender, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query all-time leaderboard: %w", err)
	}
	return scanPointEntries(rows)
}

func scanPointEntries(rows pgx.Rows) ([]model.LeaderboardEntry, error) {
	defer rows.Close()

	var out []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.GymID, &e.GymName, &e.Points, &e.VideoCount); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}
	return out, nil
}

// Strength ranks users by personal best weight for one lift type.
func (r *LeaderboardRepository) Strength(ctx context.Context, liftType string, q model.LeaderboardQuery) ([]model.LeaderboardEntry, error) {
	query := `
		SELECT u.id, u.username, u.gym_id, g.name, pb.weight, ` + videoCountExpr + `
		FROM personal_bests pb
		JOIN users u ON u.id = pb.user_id
		LEFT JOIN gyms g ON g.id = u.gym_id
		WHERE LOWER(pb.lift_type) = LOWER($1)
		  AND ($2::bigint IS NULL OR u.gym_id = $2)
		  AND ($3::text IS NULL OR u.gender = $3)
		ORDER BY pb.weight DESC, u.id ASC
		LIMIT $4`

	rows, err := r.db.Query(ctx, query, liftType, q.GymID, q.Gender, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query strength leaderboard: %w", err)
	}
	defer rows.Close()

	var out []model.LeaderboardEntry
	for rows.Next() {
		var (
			e      model.LeaderboardEntry
			weight decimal.Decimal
		)
		if err := rows.Scan(&e.UserID, &e.Username, &e.GymID, &e.GymName, &weight, &e.VideoCount); err != nil {
			return nil, fmt.Errorf("failed to scan strength entry: %w", err)
		}
		e.Weight = &weight
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating strength leaderboard: %w", err)
	}
	return out, nil
}

// GymBattle ranks gyms by the summed month points of their members.
func (r *LeaderboardRepository) GymBattle(ctx context.Context, month string, limit int) ([]model.GymStanding, error) {
	const query = `
		SELECT g.id, g.name, g.city, COALESCE(SUM(mp.points), 0)::bigint AS points
		FROM gyms g
		LEFT JOIN users u ON u.gym_id = g.id
		LEFT JOIN monthly_points mp ON mp.user_id = u.id AND mp.month = $1
		GROUP BY g.id, g.name, g.city
		ORDER BY points DESC, g.id ASC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, month, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query gym battle: %w", err)
	}
	defer rows.Close()

	var out []model.GymStanding
	for rows.Next() {
		var s model.GymStanding
		if err := rows.Scan(&s.GymID, &s.Name, &s.City, &s.Points); err != nil {
			return nil, fmt.Errorf("failed to scan gym standing: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
