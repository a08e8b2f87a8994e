package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/jakesanders16/mini-youtube/internal/challenge"
	"github.com/jakesanders16/mini-youtube/internal/metrics"
	"github.com/jakesanders16/mini-youtube/internal/model"
	"github.com/jakesanders16/mini-youtube/internal/pkg/apperr"
	"github.com/jakesanders16/mini-youtube/internal/pkg/db"
	"github.com/jakesanders16/mini-youtube/internal/pkg/lock"
	"github.com/jakesanders16/mini-youtube/internal/repository"
)

// ErrChallengeExpired is returned when an action hits a challenge that ran
// past its deadline. The expiry and its refunds are committed regardless.
var ErrChallengeExpired = apperr.New(apperr.ErrInvalidState, "challenge expired")

const (
	lockTimeout      = 5 * time.Second
	expireBatchSize  = 100
	maxChallengeList = 100
)

// ChallengeService runs the challenge lifecycle. Each transition, the
// stake movements it causes and the status change commit together.
type ChallengeService struct {
	db     Database
	ledger *LedgerService
	locks  *lock.UserLock
	stake  int64
	cache  Invalidator
	clock  Clock
}

// NewChallengeService creates a new ChallengeService instance.
func NewChallengeService(database Database, ledger *LedgerService, locks *lock.UserLock, stake int64, cache Invalidator) *ChallengeService {
	if stake <= 0 {
		stake = challenge.DefaultStake
	}
	if locks == nil {
		locks = lock.NewUserLock()
	}
	if cache == nil {
		cache = noopCache{}
	}
	return &ChallengeService{db: database, ledger: ledger, locks: locks, stake: stake, cache: cache}
}

// WithClock overrides the time source.
func (s *ChallengeService) WithClock(c Clock) *ChallengeService {
	s.clock = c
	return s
}

// Stake returns the per-participant stake.
func (s *ChallengeService) Stake() int64 {
	return s.stake
}

// Create opens a pending challenge and escrows the challenger's stake.
func (s *ChallengeService) Create(ctx context.Context, p challenge.Proposal) (*model.Challenge, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var created *model.Challenge
	err := s.locks.WithLock(ctx, lockTimeout, func() error {
		return db.InTx(ctx, s.db, func(tx pgx.Tx) error {
			st := repository.NewStore(tx)

			if _, err := st.Users.GetByID(ctx, p.OpponentID); err != nil {
				return err
			}

			var err error
			created, err = st.Challenges.Create(ctx, challenge.New(p, s.stake, s.clock.now()))
			if err != nil {
				return err
			}

			return s.ledger.debit(ctx, st, Movement{
				UserID:      p.ChallengerID,
				Amount:      s.stake,
				Kind:        model.EntryStake,
				ChallengeID: &created.ID,
				Note:        fmt.Sprintf("stake for challenge #%d", created.ID),
			})
		})
	}, p.ChallengerID)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx)
	metrics.ChallengeTransitions.WithLabelValues(string(model.StatusPending)).Inc()
	log.Info().
		Int64("challenge_id", created.ID).
		Int64("challenger_id", created.ChallengerID).
		Int64("opponent_id", created.OpponentID).
		Str("lift_type", created.LiftType).
		Msg("Challenge created")
	return created, nil
}

// Accept moves a pending challenge to active and escrows the opponent's stake.
func (s *ChallengeService) Accept(ctx context.Context, challengeID, actorID int64) (*model.Challenge, error) {
	return s.transition(ctx, challengeID, func(ctx context.Context, st *repository.Store, c *model.Challenge) error {
		if err := challenge.CanRespond(c, actorID); err != nil {
			return err
		}
		if err := s.ledger.debit(ctx, st, Movement{
			UserID:      c.OpponentID,
			Amount:      c.Stake,
			Kind:        model.EntryStake,
			ChallengeID: &c.ID,
			Note:        fmt.Sprintf("stake for challenge #%d", c.ID),
		}); err != nil {
			return err
		}
		c.Status = model.StatusActive
		if err := st.Challenges.Save(ctx, c); err != nil {
			return err
		}
		metrics.ChallengeTransitions.WithLabelValues(string(model.StatusActive)).Inc()
		return nil
	})
}

// Decline closes a pending challenge and refunds the challenger.
func (s *ChallengeService) Decline(ctx context.Context, challengeID, actorID int64) (*model.Challenge, error) {
	return s.transition(ctx, challengeID, func(ctx context.Context, st *repository.Store, c *model.Challenge) error {
		if err := challenge.CanRespond(c, actorID); err != nil {
			return err
		}
		return s.apply(ctx, st, c, challenge.Decline(c))
	})
}

// Submit attaches the actor's video to an active challenge. Once both
// sides have submitted, the challenge settles in the same transaction.
func (s *ChallengeService) Submit(ctx context.Context, challengeID, actorID, videoID int64) (*model.Challenge, error) {
	return s.transition(ctx, challengeID, func(ctx context.Context, st *repository.Store, c *model.Challenge) error {
		if err := challenge.CanSubmit(c, actorID); err != nil {
			return err
		}

		v, err := st.Videos.GetByID(ctx, videoID)
		if err != nil {
			return err
		}
		if v.UserID != actorID {
			return apperr.New(apperr.ErrInvalidArgument, "video does not belong to you")
		}

		challenge.Attach(c, actorID, videoID)
		if !c.BothSubmitted() {
			return st.Challenges.Save(ctx, c)
		}

		cv, err := st.Videos.GetByID(ctx, *c.ChallengerVideoID)
		if err != nil {
			return err
		}
		ov, err := st.Videos.GetByID(ctx, *c.OpponentVideoID)
		if err != nil {
			return err
		}
		c.ChallengerWeight = cv.Weight
		c.OpponentWeight = ov.Weight

		out := challenge.Settle(c,
			challenge.WeightOrZero(c.ChallengerWeight),
			challenge.WeightOrZero(c.OpponentWeight),
		)
		return s.apply(ctx, st, c, out)
	})
}

// ExpireOverdue expires every open challenge whose deadline passed and
// refunds the stakes it held. It returns how many were expired.
func (s *ChallengeService) ExpireOverdue(ctx context.Context) (int, error) {
	now := s.clock.now()
	ids, err := repository.NewChallengeRepository(s.db).ListOverdueIDs(ctx, now, expireBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		var did bool
		err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
			st := repository.NewStore(tx)
			c, err := st.Challenges.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if !challenge.Overdue(c, now) {
				return nil
			}
			did = true
			return s.apply(ctx, st, c, challenge.Expire(c))
		})
		if err != nil {
			return expired, fmt.Errorf("expire challenge %d: %w", id, err)
		}
		if did {
			expired++
		}
	}

	if expired > 0 {
		s.cache.Invalidate(ctx)
		log.Info().Int("count", expired).Msg("Expired overdue challenges")
	}
	return expired, nil
}

// Get returns one challenge.
func (s *ChallengeService) Get(ctx context.Context, id int64) (*model.Challenge, error) {
	return repository.NewChallengeRepository(s.db).GetByID(ctx, id)
}

// ListForUser returns the user's challenges, newest first.
func (s *ChallengeService) ListForUser(ctx context.Context, userID int64, limit int) ([]*model.Challenge, error) {
	if limit <= 0 || limit > maxChallengeList {
		limit = maxChallengeList
	}
	return repository.NewChallengeRepository(s.db).ListForUser(ctx, userID, limit)
}

type stepFunc func(ctx context.Context, st *repository.Store, c *model.Challenge) error

// transition runs step on a row-locked challenge. Both participants are
// locked in-process and in the database, in ascending id order. A challenge
// found past its deadline is expired instead and ErrChallengeExpired is
// returned after the expiry commits.
func (s *ChallengeService) transition(ctx context.Context, challengeID int64, step stepFunc) (*model.Challenge, error) {
	current, err := s.Get(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	var (
		result  *model.Challenge
		expired bool
	)
	err = s.locks.WithLock(ctx, lockTimeout, func() error {
		return db.InTx(ctx, s.db, func(tx pgx.Tx) error {
			st := repository.NewStore(tx)

			c, err := st.Challenges.GetForUpdate(ctx, challengeID)
			if err != nil {
				return err
			}
			if _, err := st.Users.LockForUpdate(ctx, c.ChallengerID, c.OpponentID); err != nil {
				return err
			}

			if challenge.Overdue(c, s.clock.now()) {
				expired = true
				result = c
				return s.apply(ctx, st, c, challenge.Expire(c))
			}

			if err := step(ctx, st, c); err != nil {
				return err
			}
			result = c
			return nil
		})
	}, current.ChallengerID, current.OpponentID)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx)
	if expired {
		return nil, ErrChallengeExpired
	}
	return result, nil
}

// apply pays out an outcome and records the resulting terminal status.
func (s *ChallengeService) apply(ctx context.Context, st *repository.Store, c *model.Challenge, out challenge.Outcome) error {
	for _, cr := range out.Credits {
		m := Movement{
			UserID:      cr.UserID,
			Amount:      cr.Amount,
			Kind:        cr.Kind,
			ChallengeID: &c.ID,
			Note:        fmt.Sprintf("%s from challenge #%d", cr.Kind, c.ID),
		}
		var err error
		if cr.Kind == model.EntryWinnings {
			err = s.ledger.creditMonthly(ctx, st, m)
		} else {
			err = s.ledger.refund(ctx, st, m)
		}
		if err != nil {
			return err
		}
	}

	resolved := s.clock.now()
	c.Status = out.Status
	c.WinnerID = out.WinnerID
	c.ResolvedAt = &resolved
	if err := st.Challenges.Save(ctx, c); err != nil {
		return err
	}

	metrics.ChallengeTransitions.WithLabelValues(string(out.Status)).Inc()
	log.Info().
		Int64("challenge_id", c.ID).
		Str("status", string(out.Status)).
		Int64("paid_out", out.Total()).
		Msg("Challenge resolved")
	return nil
}
