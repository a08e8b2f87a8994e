package db

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

type migration struct {
	name string
	sql  string
}

// migrations are applied in order and must stay idempotent.
var migrations = []migration{
	{"gyms", `
		CREATE TABLE IF NOT EXISTS gyms (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			city VARCHAR(255),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`},
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(64) NOT NULL UNIQUE,
			gym_id BIGINT REFERENCES gyms(id) ON DELETE SET NULL,
			gender VARCHAR(16),
			telegram_id BIGINT UNIQUE,
			earned_points BIGINT NOT NULL DEFAULT 0,
			challenge_points BIGINT NOT NULL DEFAULT 0,
			balance BIGINT GENERATED ALWAYS AS (GREATEST(earned_points + challenge_points, 0)) STORED,
			balance_alltime BIGINT NOT NULL DEFAULT 0 CHECK (balance_alltime >= 0),
			earned_high_water BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_users_alltime ON users(balance_alltime DESC, id);
		CREATE INDEX IF NOT EXISTS idx_users_gym ON users(gym_id);
	`},
	{"videos", `
		CREATE TABLE IF NOT EXISTS videos (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title VARCHAR(200) NOT NULL,
			lift_type VARCHAR(64),
			weight NUMERIC(8, 2),
			reaction_count BIGINT NOT NULL DEFAULT 0 CHECK (reaction_count >= 0),
			comment_count BIGINT NOT NULL DEFAULT 0 CHECK (comment_count >= 0),
			view_count BIGINT NOT NULL DEFAULT 0 CHECK (view_count >= 0),
			score DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_videos_feed ON videos(score DESC, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_videos_user ON videos(user_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_videos_created ON videos(created_at);
	`},
	{"reactions", `
		CREATE TABLE IF NOT EXISTS reactions (
			video_id BIGINT NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
			voter_key VARCHAR(100) NOT NULL,
			user_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
			emoji VARCHAR(16) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (video_id, voter_key)
		);
		CREATE INDEX IF NOT EXISTS idx_reactions_video_time ON reactions(video_id, created_at);
	`},
	{"comments", `
		CREATE TABLE IF NOT EXISTS comments (
			id BIGSERIAL PRIMARY KEY,
			video_id BIGINT NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			text TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_comments_video_time ON comments(video_id, created_at);
	`},
	{"monthly_points", `
		CREATE TABLE IF NOT EXISTS monthly_points (
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			month CHAR(7) NOT NULL,
			points BIGINT NOT NULL DEFAULT 0 CHECK (points >= 0),
			PRIMARY KEY (user_id, month)
		);
		CREATE INDEX IF NOT EXISTS idx_monthly_points_month ON monthly_points(month, points DESC);
	`},
	{"challenges", `
		CREATE TABLE IF NOT EXISTS challenges (
			id BIGSERIAL PRIMARY KEY,
			challenger_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			opponent_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			lift_type VARCHAR(64) NOT NULL,
			duration_days INT NOT NULL CHECK (duration_days > 0),
			stake BIGINT NOT NULL CHECK (stake > 0),
			pot BIGINT NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'pending'
				CHECK (status IN ('pending', 'active', 'complete', 'declined', 'tie', 'expired')),
			winner_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
			challenger_video_id BIGINT REFERENCES videos(id) ON DELETE SET NULL,
			opponent_video_id BIGINT REFERENCES videos(id) ON DELETE SET NULL,
			challenger_weight NUMERIC(8, 2),
			opponent_weight NUMERIC(8, 2),
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			resolved_at TIMESTAMPTZ,
			CHECK (challenger_id <> opponent_id)
		);
		CREATE INDEX IF NOT EXISTS idx_challenges_challenger ON challenges(challenger_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_challenges_opponent ON challenges(opponent_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_challenges_open ON challenges(expires_at) WHERE status IN ('pending', 'active');
	`},
	{"point_entries", `
		CREATE TABLE IF NOT EXISTS point_entries (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			challenge_id BIGINT REFERENCES challenges(id) ON DELETE SET NULL,
			amount BIGINT NOT NULL,
			kind VARCHAR(32) NOT NULL,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_point_entries_user_time ON point_entries(user_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_point_entries_challenge ON point_entries(challenge_id);
	`},
	{"personal_bests", `
		CREATE TABLE IF NOT EXISTS personal_bests (
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			lift_type VARCHAR(64) NOT NULL,
			weight NUMERIC(8, 2) NOT NULL,
			video_id BIGINT REFERENCES videos(id) ON DELETE SET NULL,
			set_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, lift_type)
		);
		CREATE INDEX IF NOT EXISTS idx_personal_bests_lift ON personal_bests(lift_type, weight DESC);
	`},
}

// Migrate applies the schema. It is safe to run on every start.
func Migrate(ctx context.Context, q DBTX) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := q.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s): %w", i+1, m.name, err)
		}
		log.Debug().Int("step", i+1).Str("table", m.name).Msg("Migration applied")
	}

	log.Info().Int("steps", len(migrations)).Msg("All migrations completed successfully")
	return nil
}
