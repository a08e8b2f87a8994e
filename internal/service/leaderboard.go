package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jakesanders16/mini-youtube/internal/model"
	"github.com/jakesanders16/mini-youtube/internal/pkg/apperr"
	"github.com/jakesanders16/mini-youtube/internal/pkg/db"
	"github.com/jakesanders16/mini-youtube/internal/repository"
	"github.com/jakesanders16/mini-youtube/internal/scoring"
)

// LeaderboardService serves ranked views of the ledger. It never writes
// balances; results are cached briefly and the cache is dropped on every
// ledger write.
type LeaderboardService struct {
	repo         *repository.LeaderboardRepository
	gyms         *repository.GymRepository
	cache        LeaderboardCache
	timezone     *time.Location
	defaultLimit int
	maxLimit     int
	clock        Clock
}

// NewLeaderboardService creates a new LeaderboardService instance.
func NewLeaderboardService(
	q db.DBTX,
	cache LeaderboardCache,
	timezone *time.Location,
	defaultLimit, maxLimit int,
) *LeaderboardService {
	if timezone == nil {
		timezone = time.UTC
	}
	if cache == nil {
		cache = noopCache{}
	}
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	return &LeaderboardService{
		repo:         repository.NewLeaderboardRepository(q),
		gyms:         repository.NewGymRepository(q),
		cache:        cache,
		timezone:     timezone,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// WithClock overrides the time source.
func (s *LeaderboardService) WithClock(c Clock) *LeaderboardService {
	s.clock = c
	return s
}

func (s *LeaderboardService) normalize(q model.LeaderboardQuery, now time.Time) (model.LeaderboardQuery, error) {
	epoch, ok := model.ParseEpoch(string(q.Epoch))
	if !ok {
		return q, apperr.Newf(apperr.ErrInvalidArgument, "unknown epoch %q", q.Epoch)
	}
	q.Epoch = epoch

	switch {
	case q.Limit <= 0:
		q.Limit = s.defaultLimit
	case q.Limit > s.maxLimit:
		q.Limit = s.maxLimit
	}

	if q.LiftType != nil {
		lt := strings.ToLower(strings.TrimSpace(*q.LiftType))
		if lt == "" {
			q.LiftType = nil
		} else {
			q.LiftType = &lt
		}
	}
	if q.Gender != nil {
		g := strings.ToLower(strings.TrimSpace(*q.Gender))
		if g == "" {
			q.Gender = nil
		} else {
			q.Gender = &g
		}
	}

	q.Month = ""
	if q.LiftType == nil && q.Epoch == model.EpochMonth {
		q.Month = scoring.MonthKey(now, s.timezone)
	}
	return q, nil
}

// Query returns a ranked leaderboard. Rank is the 1-based output position;
// equal points are ordered by user id.
func (s *LeaderboardService) Query(ctx context.Context, q model.LeaderboardQuery) ([]model.LeaderboardEntry, error) {
	now := s.clock.now()
	q, err := s.normalize(q, now)
	if err != nil {
		return nil, err
	}

	gen, cacheErr := s.cache.Generation(ctx)
	if cacheErr != nil {
		log.Warn().Err(cacheErr).Str("query", q.Key()).Msg("Leaderboard cache unavailable")
	} else if entries, ok, err := s.cache.GetEntries(ctx, gen, q); err != nil {
		log.Warn().Err(err).Str("query", q.Key()).Msg("Leaderboard cache unavailable")
	} else if ok {
		return entries, nil
	}

	var entries []model.LeaderboardEntry
	switch {
	case q.LiftType != nil:
		entries, err = s.repo.Strength(ctx, *q.LiftType, q)
	case q.Epoch == model.EpochAllTime:
		entries, err = s.repo.AllTime(ctx, q)
	default:
		entries, err = s.repo.Monthly(ctx, q.Month, scoring.MonthStart(now, s.timezone), q)
	}
	if err != nil {
		return nil, err
	}

	for i := range entries {
		entries[i].Rank = i + 1
	}

	if cacheErr == nil {
		if err := s.cache.SetEntries(ctx, gen, q, entries); err != nil {
			log.Warn().Err(err).Msg("Failed to cache leaderboard")
		}
	}
	return entries, nil
}

// GymBattle ranks gyms by their members' points this month.
func (s *LeaderboardService) GymBattle(ctx context.Context, limit int) ([]model.GymStanding, error) {
	if limit <= 0 || limit > s.maxLimit {
		limit = s.defaultLimit
	}
	month := s.monthKey()

	gen, cacheErr := s.cache.Generation(ctx)
	if cacheErr != nil {
		log.Warn().Err(cacheErr).Msg("Leaderboard cache unavailable")
	} else if gyms, ok, err := s.cache.GetGyms(ctx, gen, month, limit); err != nil {
		log.Warn().Err(err).Msg("Leaderboard cache unavailable")
	} else if ok {
		return gyms, nil
	}

	gyms, err := s.repo.GymBattle(ctx, month, limit)
	if err != nil {
		return nil, err
	}
	for i := range gyms {
		gyms[i].Rank = i + 1
	}

	if cacheErr == nil {
		if err := s.cache.SetGyms(ctx, gen, month, limit, gyms); err != nil {
			log.Warn().Err(err).Msg("Failed to cache gym battle")
		}
	}
	return gyms, nil
}

// Gym returns a gym with its members ranked by this month's points.
func (s *LeaderboardService) Gym(ctx context.Context, gymID int64, limit int) (*model.GymBoard, error) {
	gym, err := s.gyms.GetByID(ctx, gymID)
	if err != nil {
		return nil, err
	}
	members, err := s.Query(ctx, model.LeaderboardQuery{Epoch: model.EpochMonth, GymID: &gym.ID, Limit: limit})
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []model.LeaderboardEntry{}
	}
	return &model.GymBoard{Gym: gym, Month: s.monthKey(), Members: members}, nil
}

// ResetsInDays returns the days left until the monthly board resets.
func (s *LeaderboardService) ResetsInDays() int {
	return scoring.DaysUntilReset(s.clock.now(), s.timezone)
}

func (s *LeaderboardService) monthKey() string {
	return scoring.MonthKey(s.clock.now(), s.timezone)
}
