// Package cache keeps short-lived leaderboard results in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/jakesanders16/mini-youtube/internal/config"
	"github.com/jakesanders16/mini-youtube/internal/metrics"
	"github.com/jakesanders16/mini-youtube/internal/model"
)

const generationKey = "leaderboard:gen"

// LeaderboardCache stores leaderboard pages under a generation number.
// Every ledger write bumps the generation, which orphans all cached pages
// at once; orphans expire with their TTL.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient builds a client from config. Only Addr is mandatory.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	opts := &redis.Options{Addr: cfg.Addr}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	return redis.NewClient(opts)
}

// NewLeaderboardCache wraps client. A nil client yields a cache that
// always misses.
func NewLeaderboardCache(client *redis.Client, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{client: client, ttl: ttl}
}

// Ping checks the Redis connection.
func (c *LeaderboardCache) Ping(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Generation returns the current cache generation. Callers read it
// before querying the database and pass it back to Set*, so a page
// computed before an Invalidate lands under the orphaned generation.
func (c *LeaderboardCache) Generation(ctx context.Context) (int64, error) {
	if c.client == nil {
		return 0, nil
	}
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	} else if err != nil {
		metrics.LeaderboardCache.WithLabelValues("error").Inc()
		return 0, err
	}
	return gen, nil
}

func pageKey(gen int64, name string) string {
	return fmt.Sprintf("leaderboard:v%d:%s", gen, name)
}

func gymsName(month string, limit int) string {
	return fmt.Sprintf("gyms:month=%s:limit=%d", month, limit)
}

// get loads a cached value into dst. It reports false on a miss.
func (c *LeaderboardCache) get(ctx context.Context, gen int64, name string, dst any) (bool, error) {
	if c.client == nil {
		return false, nil
	}
	raw, err := c.client.Get(ctx, pageKey(gen, name)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.LeaderboardCache.WithLabelValues("miss").Inc()
		return false, nil
	} else if err != nil {
		metrics.LeaderboardCache.WithLabelValues("error").Inc()
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		metrics.LeaderboardCache.WithLabelValues("error").Inc()
		return false, fmt.Errorf("decode cached %s: %w", name, err)
	}
	metrics.LeaderboardCache.WithLabelValues("hit").Inc()
	return true, nil
}

func (c *LeaderboardCache) set(ctx context.Context, gen int64, name string, v any) error {
	if c.client == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, pageKey(gen, name), raw, c.ttl).Err()
}

// GetEntries returns a cached leaderboard page.
func (c *LeaderboardCache) GetEntries(ctx context.Context, gen int64, q model.LeaderboardQuery) ([]model.LeaderboardEntry, bool, error) {
	var entries []model.LeaderboardEntry
	ok, err := c.get(ctx, gen, "board:"+q.Key(), &entries)
	return entries, ok, err
}

// SetEntries caches a leaderboard page under gen.
func (c *LeaderboardCache) SetEntries(ctx context.Context, gen int64, q model.LeaderboardQuery, entries []model.LeaderboardEntry) error {
	return c.set(ctx, gen, "board:"+q.Key(), entries)
}

// GetGyms returns the cached gym battle standings for month.
func (c *LeaderboardCache) GetGyms(ctx context.Context, gen int64, month string, limit int) ([]model.GymStanding, bool, error) {
	var gyms []model.GymStanding
	ok, err := c.get(ctx, gen, gymsName(month, limit), &gyms)
	return gyms, ok, err
}

// SetGyms caches the gym battle standings for month under gen.
func (c *LeaderboardCache) SetGyms(ctx context.Context, gen int64, month string, limit int, gyms []model.GymStanding) error {
	return c.set(ctx, gen, gymsName(month, limit), gyms)
}

// Invalidate drops every cached page by moving to a new generation.
// Failures are logged; stale pages then live until their TTL.
func (c *LeaderboardCache) Invalidate(ctx context.Context) {
	if c.client == nil {
		return
	}
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate leaderboard cache")
	}
}
