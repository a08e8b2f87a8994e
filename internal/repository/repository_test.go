package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jakesanders16/mini-youtube/internal/model"
	"github.com/jakesanders16/mini-youtube/internal/pkg/apperr"
	"github.com/jakesanders16/mini-youtube/internal/pkg/db"
	"github.com/jakesanders16/mini-youtube/internal/scoring"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	return exec.Command("docker", "info").Run() == nil
}

// setupTestDB starts a PostgreSQL container with the schema applied.
// Skips the test if Docker is not available.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, db.Migrate(ctx, pool))

	t.Cleanup(func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	})
	return pool
}

func mustUser(t *testing.T, s *Store, name string) *model.User {
	t.Helper()
	u, err := s.Users.Create(context.Background(), NewUser{Username: name})
	require.NoError(t, err)
	return u
}

func mustVideo(t *testing.T, s *Store, ownerID int64, lift string, weight int64) *model.Video {
	t.Helper()
	w := decimal.NullDecimal{}
	if weight > 0 {
		w = decimal.NewNullDecimal(decimal.NewFromInt(weight))
	}
	var lt *string
	if lift != "" {
		lt = &lift
	}
	v, err := s.Videos.Create(context.Background(), ownerID, "set", lt, w)
	require.NoError(t, err)
	return v
}

// ============================================================================
// UserRepository Tests
// ============================================================================

func TestUserRepository_CreateAndGet(t *testing.T) {
	s := NewStore(setupTestDB(t))
	ctx := context.Background()

	u := mustUser(t, s, "ana")
	assert.Equal(t, "ana", u.Username)
	assert.Zero(t, u.Balance)
	assert.Zero(t, u.BalanceAllTime)

	got, err := s.Users.GetByUsername(ctx, "ANA")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.Users.Create(ctx, NewUser{Username: "ana"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = s.Users.GetByID(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, s.Users.LinkTelegram(ctx, u.ID, 4242))
	got, err = s.Users.GetByTelegramID(ctx, 4242)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

// ============================================================================
// LedgerRepository Tests
// ============================================================================

func TestLedgerRepository_DebitNeverGoesNegative(t *testing.T) {
	s := NewStore(setupTestDB(t))
	ctx := context.Background()
	u := mustUser(t, s, "ben")

	_, err := s.Ledger.Credit(ctx, u.ID, 30, false)
	require.NoError(t, err)

	balance, err := s.Ledger.Debit(ctx, u.ID, 25)
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance)

	_, err = s.Ledger.Debit(ctx, u.ID, 25)
	assert.ErrorIs(t, err, apperr.ErrInsufficientFunds)

	_, err = s.Ledger.Debit(ctx, 999, 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	b, err := s.Ledger.Balance(ctx, u.ID, "2026-03")
	require.NoError(t, err)
	assert.Equal(t, int64(5), b.Balance)
	assert.Zero(t, b.AllTime, "refund-style credits and debits never touch all-time")
}

func TestLedgerRepository_CreditAllTimeAndMonthly(t *testing.T) {
	s := NewStore(setupTestDB(t))
	ctx := context.Background()
	u := mustUser(t, s, "cara")

	_, err := s.Ledger.Credit(ctx, u.ID, 25, true)
	require.NoError(t, err)
	require.NoError(t, s.Ledger.AddMonthly(ctx, u.ID, "2026-03", 25))
	require.NoError(t, s.Ledger.AddMonthly(ctx, u.ID, "2026-03", 5))
	require.NoError(t, s.Ledger.AddMonthly(ctx, u.ID, "2026-03", -100))
	require.NoError(t, s.Ledger.AddMonthly(ctx, u.ID, "2026-04", -3))

	march, err := s.Ledger.Balance(ctx, u.ID, "2026-03")
	require.NoError(t, err)
	assert.Equal(t, int64(25), march.Balance)
	assert.Equal(t, int64(25), march.AllTime)
	assert.Zero(t, march.Month, "monthly points floor at zero")

	april, err := s.Ledger.Balance(ctx, u.ID, "2026-04")
	require.NoError(t, err)
	assert.Zero(t, april.Month)
}

func TestLedgerRepository_RecomputeState(t *testing.T) {
	s := NewStore(setupTestDB(t))
	ctx := context.Background()
	u := mustUser(t, s, "dev")

	earned, hw, err := s.Ledger.LockEarned(ctx, u.ID)
	require.NoError(t, err)
	plan := scoring.PlanRecompute(earned, hw, 21)
	require.NoError(t, s.Ledger.ApplyRecompute(ctx, u.ID, plan))

	plan = scoring.PlanRecompute(21, 21, 20)
	require.NoError(t, s.Ledger.ApplyRecompute(ctx, u.ID, plan))

	got, err := s.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), got.EarnedPoints)
	assert.Equal(t, int64(20), got.Balance)
	assert.Equal(t, int64(21), got.BalanceAllTime)
	assert.Equal(t, int64(21), got.EarnedHighWater)
}

func TestLedgerRepository_EntriesAndHistory(t *testing.T) {
	s := NewStore(setupTestDB(t))
	ctx := context.Background()
	u := mustUser(t, s, "eve")

	_, err := s.Ledger.AddEntry(ctx, u.ID, nil, -25, model.EntryStake, nil)
	require.NoError(t, err)
	desc := "refund"
	_, err = s.Ledger.AddEntry(ctx, u.ID, nil, 25, model.EntryRefund, &desc)
	require.NoError(t, err)

	entries, err := s.Ledger.History(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.EntryRefund, entries[0].Kind, "newest first")
	assert.Equal(t, int64(-25), entries[1].Amount)
}

// ============================================================================
// Video and Reaction Tests
// ============================================================================

func TestVideoRepository_CountersFloorAtZero(t *testing.T) {
	s := NewStore(setupTestDB(t))
	ctx := context.Background()
	u := mustUser(t, s, "finn")
	v := mustVideo(t, s, u.ID, "squat", 140)

	updated, err := s.Videos.AdjustCounters(ctx, v.ID, 2, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.ReactionCount)
	assert.Equal(t, "finn", updated.Username)

	updated, err = s.Videos.AdjustCounters(ctx, v.ID, -5, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, updated.ReactionCount)

	_, err = s.Videos.AdjustCounters(ctx, 999, 1, 0, 0)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.True(t, updated.Weight.Valid)
	assert.True(t, updated.Weight.Decimal.Equal(decimal.NewFromInt(140)))
}

func TestReactionRepository_ToggleRule(t *testing.T) {
	pool := setupTestDB(t)
	s := NewStore(pool)
	ctx := context.Background()
	u := mustUser(t, s, "gia")
	v := mustVideo(t, s, u.ID, "", 0)
	voter := model.FingerprintVoterKey("abc")

	toggle := func(e model.Emoji) ToggleOutcome {
		var out ToggleOutcome
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			var err error
			out, err = NewReactionRepository(tx).Toggle(ctx, v.ID, voter, e, nil)
			return err
		})
		require.NoError(t, err)
		return out
	}

	assert.Equal(t, ReactionAdded, toggle(model.EmojiFire))
	assert.Equal(t, ReactionChanged, toggle(model.EmojiGoat))

	re, err := s.Reactions.Get(ctx, v.ID, voter)
	require.NoError(t, err)
	assert.Equal(t, model.EmojiGoat, re.Emoji)

	assert.Equal(t, ReactionRemoved, toggle(model.EmojiGoat))
	_, err = s.Reactions.Get(ctx, v.ID, voter)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	n, err := s.Reactions.Count(ctx, v.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReactionRepository_UnknownVideo(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	_, err := NewReactionRepository(pool).Toggle(ctx, 999, model.UserVoterKey(1), model.EmojiClap, nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// ============================================================================
// Challenge, PersonalBest and Leaderboard Tests
// ============================================================================

func TestChallengeRepository_CreateSaveList(t *testing.T) {
	s := NewStore(setupTestDB(t))
	ctx := context.Background()
	a := mustUser(t, s, "hal")
	b := mustUser(t, s, "ivy")
	now := time.Now().UTC().Truncate(time.Second)

	c, err := s.Challenges.Create(ctx, &model.Challenge{
		ChallengerID: a.ID, OpponentID: b.ID, LiftType: "bench", DurationDays: 7,
		Stake: 25, Pot: 50, Status: model.StatusPending,
		ExpiresAt: now.Add(7 * 24 * time.Hour), CreatedAt: now,
	})
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
	assert.Equal(t, "hal", c.ChallengerName)
	assert.Equal(t, "ivy", c.OpponentName)

	v := mustVideo(t, s, a.ID, "bench", 100)
	c.Status = model.StatusActive
	c.ChallengerVideoID = &v.ID
	c.ChallengerWeight = decimal.NewNullDecimal(decimal.RequireFromString("100.5"))
	require.NoError(t, s.Challenges.Save(ctx, c))

	got, err := s.Challenges.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, got.Status)
	require.NotNil(t, got.ChallengerVideoID)
	assert.True(t, got.ChallengerWeight.Decimal.Equal(decimal.RequireFromString("100.5")))
	assert.False(t, got.OpponentWeight.Valid)

	// Deleting a submitted video clears the reference instead of failing.
	require.NoError(t, s.Videos.Delete(ctx, v.ID))
	got, err = s.Challenges.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ChallengerVideoID)

	list, err := s.Challenges.ListForUser(ctx, b.ID, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	ids, err := s.Challenges.ListOverdueIDs(ctx, now.Add(8*24*time.Hour), 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{c.ID}, ids)

	ids, err = s.Challenges.ListOverdueIDs(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestPersonalBestRepository_RaiseOnlyUpward(t *testing.T) {
	s := NewStore(setupTestDB(t))
	ctx := context.Background()
	u := mustUser(t, s, "jo")

	raised, err := s.PersonalBests.Raise(ctx, u.ID, "deadlift", decimal.NewFromInt(180), nil)
	require.NoError(t, err)
	assert.True(t, raised)

	raised, err = s.PersonalBests.Raise(ctx, u.ID, "deadlift", decimal.NewFromInt(170), nil)
	require.NoError(t, err)
	assert.False(t, raised)

	raised, err = s.PersonalBests.Raise(ctx, u.ID, "deadlift", decimal.RequireFromString("182.5"), nil)
	require.NoError(t, err)
	assert.True(t, raised)

	pbs, err := s.PersonalBests.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, pbs, 1)
	assert.True(t, pbs[0].Weight.Equal(decimal.RequireFromString("182.5")))
}

func TestPersonalBestRepository_SetOverwrites(t *testing.T) {
	s := NewStore(setupTestDB(t))
	ctx := context.Background()
	u := mustUser(t, s, "jo")
	v := mustVideo(t, s, u.ID, "bench", 120)

	_, err := s.PersonalBests.Raise(ctx, u.ID, "bench", decimal.NewFromInt(120), &v.ID)
	require.NoError(t, err)

	pb, err := s.PersonalBests.Set(ctx, u.ID, "bench", decimal.NewFromInt(110), nil)
	require.NoError(t, err)
	assert.True(t, pb.Weight.Equal(decimal.NewFromInt(110)))
	assert.Nil(t, pb.VideoID)

	_, err = s.PersonalBests.Set(ctx, 999, "bench", decimal.NewFromInt(100), nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCommentRepository_ListByVideo(t *testing.T) {
	s := NewStore(setupTestDB(t))
	ctx := context.Background()
	owner := mustUser(t, s, "owner")
	fan := mustUser(t, s, "fan")
	v := mustVideo(t, s, owner.ID, "", 0)

	_, err := s.Comments.Create(ctx, v.ID, fan.ID, "first")
	require.NoError(t, err)
	_, err = s.Comments.Create(ctx, v.ID, owner.ID, "second")
	require.NoError(t, err)

	comments, err := s.Comments.ListByVideo(ctx, v.ID, 10)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Text)
	assert.Equal(t, "fan", comments[0].Username)
	assert.Equal(t, "owner", comments[1].Username)
}

func TestGymRepository_GetByID(t *testing.T) {
	s := NewStore(setupTestDB(t))
	ctx := context.Background()

	gym, err := s.Gyms.Create(ctx, "Iron Temple", nil)
	require.NoError(t, err)
	got, err := s.Gyms.GetByID(ctx, gym.ID)
	require.NoError(t, err)
	assert.Equal(t, "Iron Temple", got.Name)
	_, err = s.Gyms.GetByID(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestLeaderboardRepository_Boards(t *testing.T) {
	s := NewStore(setupTestDB(t))
	ctx := context.Background()

	gym, err := s.Gyms.Create(ctx, "Iron Temple", nil)
	require.NoError(t, err)
	a, err := s.Users.Create(ctx, NewUser{Username: "kai", GymID: &gym.ID})
	require.NoError(t, err)
	b := mustUser(t, s, "lea")
	c := mustUser(t, s, "max")

	require.NoError(t, s.Ledger.AddMonthly(ctx, a.ID, "2026-03", 10))
	require.NoError(t, s.Ledger.AddMonthly(ctx, b.ID, "2026-03", 30))
	_, err = s.Ledger.Credit(ctx, c.ID, 99, true)
	require.NoError(t, err)

	march := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	month, err := s.Leaderboard.Monthly(ctx, "2026-03", march, model.LeaderboardQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, month, 3)
	assert.Equal(t, []int64{b.ID, a.ID, c.ID}, []int64{month[0].UserID, month[1].UserID, month[2].UserID})
	assert.Zero(t, month[2].Points, "users without a monthly row count as zero")
	require.NotNil(t, month[1].GymName)
	assert.Equal(t, "Iron Temple", *month[1].GymName)

	byGym, err := s.Leaderboard.Monthly(ctx, "2026-03", march, model.LeaderboardQuery{GymID: &gym.ID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, byGym, 1)
	assert.Equal(t, a.ID, byGym[0].UserID)

	all, err := s.Leaderboard.AllTime(ctx, model.LeaderboardQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, c.ID, all[0].UserID)
	assert.Equal(t, int64(99), all[0].Points)

	_, err = s.PersonalBests.Raise(ctx, a.ID, "squat", decimal.NewFromInt(150), nil)
	require.NoError(t, err)
	_, err = s.PersonalBests.Raise(ctx, b.ID, "squat", decimal.NewFromInt(160), nil)
	require.NoError(t, err)
	strength, err := s.Leaderboard.Strength(ctx, "Squat", model.LeaderboardQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, strength, 2)
	assert.Equal(t, b.ID, strength[0].UserID)
	require.NotNil(t, strength[0].Weight)
	assert.True(t, strength[0].Weight.Equal(decimal.NewFromInt(160)))

	gyms, err := s.Leaderboard.GymBattle(ctx, "2026-03", 5)
	require.NoError(t, err)
	require.Len(t, gyms, 1)
	assert.Equal(t, int64(10), gyms[0].Points)
}
