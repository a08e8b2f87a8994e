package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/jakesanders16/mini-youtube/internal/metrics"
	"github.com/jakesanders16/mini-youtube/internal/model"
	"github.com/jakesanders16/mini-youtube/internal/pkg/apperr"
	"github.com/jakesanders16/mini-youtube/internal/pkg/db"
	"github.com/jakesanders16/mini-youtube/internal/repository"
	"github.com/jakesanders16/mini-youtube/internal/scoring"
)

// Movement is one direct balance mutation and the journal entry it leaves.
type Movement struct {
	UserID      int64
	Amount      int64
	Kind        model.EntryKind
	ChallengeID *int64
	Note        string
}

func (m Movement) note() *string {
	if m.Note == "" {
		return nil
	}
	return &m.Note
}

// LedgerService owns every write to user balances.
//
// Spendable balance is earned_points + challenge_points, floored at zero by
// the database. earned_points is derived from engagement and overwritten by
// recomputes; challenge_points collects stakes, refunds and winnings and is
// never touched by a recompute, so a recompute cannot erase a stake.
type LedgerService struct {
	db    Database
	loc   *time.Location
	cache Invalidator
	clock Clock
}

// NewLedgerService creates a new LedgerService instance. Monthly epochs
// roll over at midnight on the first of the month in loc.
func NewLedgerService(database Database, loc *time.Location, cache Invalidator) *LedgerService {
	if loc == nil {
		loc = time.UTC
	}
	if cache == nil {
		cache = noopCache{}
	}
	return &LedgerService{db: database, loc: loc, cache: cache}
}

// WithClock overrides the time source.
func (s *LedgerService) WithClock(c Clock) *LedgerService {
	s.clock = c
	return s
}

// Location returns the timezone monthly epochs are computed in.
func (s *LedgerService) Location() *time.Location {
	return s.loc
}

func (s *LedgerService) monthKey() string {
	return scoring.MonthKey(s.clock.now(), s.loc)
}

func (s *LedgerService) inTx(ctx context.Context, fn func(st *repository.Store) error) error {
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		return fn(repository.NewStore(tx))
	})
	if err == nil {
		s.cache.Invalidate(ctx)
	}
	return err
}

// CreditMonthly credits a positive amount to the spendable balance, the
// all-time total and the current month.
func (s *LedgerService) CreditMonthly(ctx context.Context, m Movement) error {
	return s.inTx(ctx, func(st *repository.Store) error {
		return s.creditMonthly(ctx, st, m)
	})
}

// Debit subtracts a positive amount from the spendable balance only.
// Returns an InsufficientFunds error when the balance is short.
func (s *LedgerService) Debit(ctx context.Context, m Movement) error {
	return s.inTx(ctx, func(st *repository.Store) error {
		return s.debit(ctx, st, m)
	})
}

// Refund returns escrowed points to the spendable balance without
// crediting any epoch.
func (s *LedgerService) Refund(ctx context.Context, m Movement) error {
	return s.inTx(ctx, func(st *repository.Store) error {
		return s.refund(ctx, st, m)
	})
}

// RecomputeFromEngagement re-derives the user's earned points from the
// current counters of their videos. Running it twice is a no-op.
func (s *LedgerService) RecomputeFromEngagement(ctx context.Context, userID int64) (*model.Balance, error) {
	var b *model.Balance
	err := s.inTx(ctx, func(st *repository.Store) error {
		if _, err := s.recompute(ctx, st, userID); err != nil {
			return err
		}
		var err error
		b, err = st.Ledger.Balance(ctx, userID, s.monthKey())
		return err
	})
	return b, err
}

// Balance returns the user's spendable, all-time and current month points.
func (s *LedgerService) Balance(ctx context.Context, userID int64) (*model.Balance, error) {
	return repository.NewLedgerRepository(s.db).Balance(ctx, userID, s.monthKey())
}

// History returns the user's journal entries, newest first.
func (s *LedgerService) History(ctx context.Context, userID int64, limit int) ([]*model.PointEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return repository.NewLedgerRepository(s.db).History(ctx, userID, limit)
}

func validAmount(amount int64) error {
	if amount <= 0 {
		return apperr.Newf(apperr.ErrInvalidArgument, "amount must be positive, got %d", amount)
	}
	return nil
}

func (s *LedgerService) creditMonthly(ctx context.Context, st *repository.Store, m Movement) error {
	if err := validAmount(m.Amount); err != nil {
		return err
	}
	if _, err := st.Ledger.Credit(ctx, m.UserID, m.Amount, true); err != nil {
		return err
	}
	if err := st.Ledger.AddMonthly(ctx, m.UserID, s.monthKey(), m.Amount); err != nil {
		return err
	}
	return s.journal(ctx, st, m.UserID, m.Amount, m)
}

func (s *LedgerService) debit(ctx context.Context, st *repository.Store, m Movement) error {
	if err := validAmount(m.Amount); err != nil {
		return err
	}
	if _, err := st.Ledger.Debit(ctx, m.UserID, m.Amount); err != nil {
		return err
	}
	return s.journal(ctx, st, m.UserID, -m.Amount, m)
}

func (s *LedgerService) refund(ctx context.Context, st *repository.Store, m Movement) error {
	if err := validAmount(m.Amount); err != nil {
		return err
	}
	if _, err := st.Ledger.Credit(ctx, m.UserID, m.Amount, false); err != nil {
		return err
	}
	return s.journal(ctx, st, m.UserID, m.Amount, m)
}

func (s *LedgerService) journal(ctx context.Context, st *repository.Store, userID, signed int64, m Movement) error {
	if _, err := st.Ledger.AddEntry(ctx, userID, m.ChallengeID, signed, m.Kind, m.note()); err != nil {
		return err
	}
	metrics.PointsMoved.WithLabelValues(string(m.Kind)).Add(float64(m.Amount))
	return nil
}

// recompute applies the earned-points rule inside an open transaction.
// The month row moves by the earned delta (floored at zero) and all-time
// only grows when earned points pass their previous peak.
func (s *LedgerService) recompute(ctx context.Context, st *repository.Store, userID int64) (scoring.Recompute, error) {
	prev, highWater, err := st.Ledger.LockEarned(ctx, userID)
	if err != nil {
		return scoring.Recompute{}, err
	}

	videos, err := st.Videos.EngagementByOwner(ctx, userID)
	if err != nil {
		return scoring.Recompute{}, err
	}

	plan := scoring.PlanRecompute(prev, highWater, scoring.EarnedPoints(videos))
	metrics.LedgerRecomputes.Inc()
	if plan.Delta == 0 && plan.AllTimeCredit == 0 {
		return plan, nil
	}

	if err := st.Ledger.ApplyRecompute(ctx, userID, plan); err != nil {
		return plan, fmt.Errorf("recompute user %d: %w", userID, err)
	}
	if err := st.Ledger.AddMonthly(ctx, userID, s.monthKey(), plan.Delta); err != nil {
		return plan, err
	}
	if plan.Delta != 0 {
		if _, err := st.Ledger.AddEntry(ctx, userID, nil, plan.Delta, model.EntryEngagement, nil); err != nil {
			return plan, err
		}
	}

	log.Debug().
		Int64("user_id", userID).
		Int64("earned", plan.Earned).
		Int64("delta", plan.Delta).
		Int64("alltime_credit", plan.AllTimeCredit).
		Msg("Points recomputed")

	return plan, nil
}
