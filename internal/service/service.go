// Package service provides the business logic of the feed, the points
// ledger, challenges and leaderboards. Every mutation runs in a single
// database transaction.
package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jakesanders16/mini-youtube/internal/model"
	"github.com/jakesanders16/mini-youtube/internal/pkg/db"
)

// Database is the pool the services run queries and transactions on.
// *pgxpool.Pool and *db.Pool satisfy it.
type Database interface {
	db.DBTX
	db.Beginner
}

// Invalidator drops cached leaderboard pages after a ledger write.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// LeaderboardCache is the read-through cache used by LeaderboardService.
// Pages are read and written under the generation taken before the
// database read.
type LeaderboardCache interface {
	Invalidator
	Generation(ctx context.Context) (int64, error)
	GetEntries(ctx context.Context, gen int64, q model.LeaderboardQuery) ([]model.LeaderboardEntry, bool, error)
	SetEntries(ctx context.Context, gen int64, q model.LeaderboardQuery, entries []model.LeaderboardEntry) error
	GetGyms(ctx context.Context, gen int64, month string, limit int) ([]model.GymStanding, bool, error)
	SetGyms(ctx context.Context, gen int64, month string, limit int, gyms []model.GymStanding) error
}

type noopCache struct{}

func (noopCache) Invalidate(context.Context) {}

func (noopCache) Generation(context.Context) (int64, error) { return 0, nil }

func (noopCache) GetEntries(context.Context, int64, model.LeaderboardQuery) ([]model.LeaderboardEntry, bool, error) {
	return nil, false, nil
}

func (noopCache) SetEntries(context.Context, int64, model.LeaderboardQuery, []model.LeaderboardEntry) error {
	return nil
}

func (noopCache) GetGyms(context.Context, int64, string, int) ([]model.GymStanding, bool, error) {
	return nil, false, nil
}

func (noopCache) SetGyms(context.Context, int64, string, int, []model.GymStanding) error { return nil }

// Clock returns the current time; tests replace it.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

var validate = validator.New(validator.WithRequiredStructEnabled())
