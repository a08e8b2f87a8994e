package handler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"github.com/jakesanders16/mini-youtube/internal/challenge"
	"github.com/jakesanders16/mini-youtube/internal/model"
	"github.com/jakesanders16/mini-youtube/internal/pkg/apperr"
	"github.com/jakesanders16/mini-youtube/internal/service"
)

// fakeContext implements the parts of tele.Context the handlers use.
type fakeContext struct {
	tele.Context
	sender  *tele.User
	args    []string
	store   map[string]any
	replies []string

	callback *tele.Callback
	answered []string
	edited   []string
}

func newFakeContext(user *model.User, args ...string) *fakeContext {
	c := &fakeContext{
		sender: &tele.User{ID: 100, Username: "tester"},
		args:   args,
		store:  map[string]any{},
	}
	if user != nil {
		c.store[UserKey] = user
	}
	return c
}

func (c *fakeContext) Sender() *tele.User { return c.sender }
func (c *fakeContext) Args() []string { return c.args }
func (c *fakeContext) Get(key string) any { return c.store[key] }
func (c *fakeContext) Set(key string, v any) { c.store[key] = v }

func (c *fakeContext) Reply(what any, _ ...any) error {
	c.replies = append(c.replies, what.(string))
	return nil
}

func (c *fakeContext) Callback() *tele.Callback { return c.callback }

func (c *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	if len(resp) > 0 {
		c.answered = append(c.answered, resp[0].Text)
	}
	return nil
}

func (c *fakeContext) Edit(what any, _ ...any) error {
	c.edited = append(c.edited, what.(string))
	return nil
}

func (c *fakeContext) lastReply(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, c.replies)
	return c.replies[len(c.replies)-1]
}

type fakeBackend struct {
	err        error
	users      map[string]*model.User
	proposal   challenge.Proposal
	query      model.LeaderboardQuery
	entries    []model.LeaderboardEntry
	submitted  *model.Challenge
	recomputed int64
}

func (f *fakeBackend) EnsureTelegramUser(_ context.Context, telegramID int64, username string) (*model.User, bool, error) {
	return &model.User{ID: telegramID, Username: username}, true, f.err
}

func (f *fakeBackend) GetByUsername(_ context.Context, username string) (*model.User, error) {
	u, ok := f.users[username]
	if !ok {
		return nil, apperr.New(apperr.ErrNotFound, "user not found")
	}
	return u, nil
}

func (f *fakeBackend) Balance(_ context.Context, userID int64) (*model.Balance, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.Balance{UserID: userID, Balance: 30, AllTime: 45, Month: 12, MonthID: "2026-03"}, nil
}

func (f *fakeBackend) History(context.Context, int64, int) ([]*model.PointEntry, error) {
	id := int64(4)
	return []*model.PointEntry{{Amount: -25, Kind: model.EntryStake, ChallengeID: &id, CreatedAt: time.Now()}}, f.err
}

func (f *fakeBackend) RecomputeFromEngagement(_ context.Context, userID int64) (*model.Balance, error) {
	f.recomputed = userID
	return &model.Balance{UserID: userID, Balance: 21, AllTime: 21, Month: 21}, f.err
}

func (f *fakeBackend) Query(_ context.Context, q model.LeaderboardQuery) ([]model.LeaderboardEntry, error) {
	f.query = q
	return f.entries, f.err
}

func (f *fakeBackend) GymBattle(context.Context, int) ([]model.GymStanding, error) {
	return []model.GymStanding{{GymID: 1, Name: "Iron Temple", Points: 80, Rank: 1}}, f.err
}

func (f *fakeBackend) ResetsInDays() int { return 9 }

func (f *fakeBackend) Create(_ context.Context, p challenge.Proposal) (*model.Challenge, error) {
	f.proposal = p
	if f.err != nil {
		return nil, f.err
	}
	c := challenge.New(p, 25, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	c.ID = 7
	return c, nil
}

func (f *fakeBackend) Accept(_ context.Context, id, _ int64) (*model.Challenge, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.Challenge{ID: id, Pot: 50, Status: model.StatusActive}, nil
}

func (f *fakeBackend) Decline(_ context.Context, id, _ int64) (*model.Challenge, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.Challenge{ID: id, Status: model.StatusDeclined}, nil
}

func (f *fakeBackend) Submit(context.Context, int64, int64, int64) (*model.Challenge, error) {
	return f.submitted, f.err
}

func (f *fakeBackend) ListForUser(context.Context, int64, int) ([]*model.Challenge, error) {
	return nil, f.err
}

func (f *fakeBackend) ExpireOverdue(context.Context) (int, error) { return 3, f.err }

func (f *fakeBackend) Stake() int64 { return 25 }

var ana = &model.User{ID: 1, Username: "ana"}

func TestHandleBalance(t *testing.T) {
	h := NewAccountHandler(&fakeBackend{}, &fakeBackend{})
	c := newFakeContext(ana)

	require.NoError(t, h.HandleBalance(c))
	reply := c.lastReply(t)
	assert.Contains(t, reply, "Spendable: 30")
	assert.Contains(t, reply, "All-time: 45")
	assert.Contains(t, reply, "This month (2026-03): 12")
	assert.Contains(t, reply, "resets in 9 days")
}

func TestHandlersIgnoreUnresolvedSender(t *testing.T) {
	h := NewAccountHandler(&fakeBackend{}, &fakeBackend{})
	c := newFakeContext(nil)

	require.NoError(t, h.HandleBalance(c))
	assert.Empty(t, c.replies)
}

func TestHandleHistory(t *testing.T) {
	h := NewAccountHandler(&fakeBackend{}, &fakeBackend{})
	c := newFakeContext(ana)

	require.NoError(t, h.HandleHistory(c))
	assert.Contains(t, c.lastReply(t), "-25 stake (challenge #4)")
}

func TestHandleTop(t *testing.T) {
	backend := &fakeBackend{entries: []model.LeaderboardEntry{
		{UserID: 1, Username: "ana", Points: 40, Rank: 1},
		{UserID: 2, Username: "bo", Points: 12, Rank: 2},
		{UserID: 3, Username: "cy", Points: 9, Rank: 3},
		{UserID: 4, Username: "di", Points: 1, Rank: 4},
	}}
	h := NewRankingHandler(backend)

	c := newFakeContext(ana, "alltime", "3")
	require.NoError(t, h.HandleTop(c))

	assert.Equal(t, model.EpochAllTime, backend.query.Epoch)
	require.NotNil(t, backend.query.GymID)
	assert.Equal(t, int64(3), *backend.query.GymID)

	reply := c.lastReply(t)
	assert.Contains(t, reply, "🥇 @ana: 40 pts")
	assert.Contains(t, reply, "4. @di: 1 pts")
	assert.NotContains(t, reply, "Resets", "all-time boards never reset")

	c = newFakeContext(ana, "weekly")
	require.NoError(t, h.HandleTop(c))
	assert.Contains(t, c.lastReply(t), "Usage")
}

func TestHandleLift(t *testing.T) {
	w := decimal.RequireFromString("182.5")
	backend := &fakeBackend{entries: []model.LeaderboardEntry{{Username: "ana", Weight: &w, Rank: 1}}}
	h := NewRankingHandler(backend)

	c := newFakeContext(ana, "Squat")
	require.NoError(t, h.HandleLift(c))

	require.NotNil(t, backend.query.LiftType)
	assert.Equal(t, "squat", *backend.query.LiftType)
	assert.Contains(t, c.lastReply(t), "@ana: 182.5 lbs")
}

func TestHandleChallenge(t *testing.T) {
	bo := &model.User{ID: 2, Username: "bo"}
	backend := &fakeBackend{users: map[string]*model.User{"bo": bo}}
	h := NewChallengeHandler(backend, backend)

	c := newFakeContext(ana, "bo", "Bench", "7")
	require.NoError(t, h.HandleChallenge(c))

	assert.Equal(t, challenge.Proposal{ChallengerID: 1, OpponentID: 2, LiftType: "bench", DurationDays: 7}, backend.proposal)
	reply := c.lastReply(t)
	assert.Contains(t, reply, "Challenge #7: @ana vs @bo")
	assert.Contains(t, reply, "/accept 7")

	c = newFakeContext(ana, "nobody", "bench", "7")
	require.NoError(t, h.HandleChallenge(c))
	assert.Equal(t, "❌ user not found", c.lastReply(t))

	c = newFakeContext(ana, "bo")
	require.NoError(t, h.HandleChallenge(c))
	assert.Contains(t, c.lastReply(t), "stake 25 points")
}

func TestHandleChallenge_InsufficientFunds(t *testing.T) {
	backend := &fakeBackend{
		users: map[string]*model.User{"bo": {ID: 2, Username: "bo"}},
		err:   apperr.New(apperr.ErrInsufficientFunds, "insufficient points: need 25, have 3"),
	}
	h := NewChallengeHandler(backend, backend)

	c := newFakeContext(ana, "bo", "bench", "7")
	require.NoError(t, h.HandleChallenge(c))
	assert.Equal(t, "❌ insufficient points: need 25, have 3", c.lastReply(t))
}

func TestHandleAcceptAndDecline(t *testing.T) {
	backend := &fakeBackend{}
	h := NewChallengeHandler(backend, backend)

	c := newFakeContext(ana, "7")
	require.NoError(t, h.HandleAccept(c))
	assert.Contains(t, c.lastReply(t), "Challenge #7 is on!")

	require.NoError(t, h.HandleDecline(c))
	assert.Contains(t, c.lastReply(t), "declined")

	c = newFakeContext(ana, "x")
	require.NoError(t, h.HandleAccept(c))
	assert.Equal(t, "❌ Invalid challenge id", c.lastReply(t))

	backend.err = service.ErrChallengeExpired
	c = newFakeContext(ana, "7")
	require.NoError(t, h.HandleAccept(c))
	assert.Contains(t, c.lastReply(t), "expired")

	backend.err = apperr.ErrAlreadyResolved
	require.NoError(t, h.HandleAccept(c))
	assert.Equal(t, "❌ challenge already resolved", c.lastReply(t))

	backend.err = errors.New("connection refused")
	require.NoError(t, h.HandleAccept(c))
	assert.NotContains(t, c.lastReply(t), "connection refused")
}

func TestHandleSubmit(t *testing.T) {
	winner := int64(2)
	backend := &fakeBackend{submitted: &model.Challenge{
		ID: 7, ChallengerID: 1, OpponentID: 2, ChallengerName: "ana", OpponentName: "bo",
		Pot: 50, Status: model.StatusComplete, WinnerID: &winner,
	}}
	h := NewChallengeHandler(backend, backend)

	c := newFakeContext(ana, "7", "11")
	require.NoError(t, h.HandleSubmit(c))
	assert.Contains(t, c.lastReply(t), "@bo took the 50 point pot")

	backend.submitted = &model.Challenge{ID: 7, Status: model.StatusActive}
	require.NoError(t, h.HandleSubmit(c))
	assert.Contains(t, c.lastReply(t), "Waiting for your opponent")

	backend.submitted = &model.Challenge{ID: 7, Status: model.StatusTie}
	require.NoError(t, h.HandleSubmit(c))
	assert.Contains(t, c.lastReply(t), "tie")
}

func TestAdminHandlers(t *testing.T) {
	backend := &fakeBackend{}
	h := NewAdminHandler(backend, backend)

	c := newFakeContext(ana, "12")
	require.NoError(t, h.HandleRecompute(c))
	assert.Equal(t, int64(12), backend.recomputed)
	assert.Contains(t, c.lastReply(t), "All-time: 21")

	c = newFakeContext(ana)
	require.NoError(t, h.HandleExpire(c))
	assert.Equal(t, "✅ Expired 3 overdue challenges", c.lastReply(t))
}

func TestCallbackRoundTrip(t *testing.T) {
	action, id, ok := DecodeCallback("\f" + EncodeCallback(ActionAccept, 42))
	require.True(t, ok)
	assert.Equal(t, ActionAccept, action)
	assert.Equal(t, int64(42), id)

	for _, data := range []string{"", "sicbo_big", "chal_accept", "chal_accept_x", "chal_decline_-3"} {
		_, _, ok := DecodeCallback(data)
		assert.False(t, ok, data)
	}
}

func TestHandleCallback(t *testing.T) {
	h := NewChallengeHandler(&fakeBackend{}, &fakeBackend{})

	c := newFakeContext(ana)
	c.callback = &tele.Callback{Data: EncodeCallback(ActionDecline, 7)}
	require.NoError(t, h.HandleCallback(c))
	require.Len(t, c.answered, 1)
	assert.Contains(t, c.answered[0], "Challenge #7 declined")
	assert.Equal(t, c.answered, c.edited)

	failing := NewChallengeHandler(&fakeBackend{}, &fakeBackend{err: apperr.ErrAlreadyResolved})
	c = newFakeContext(ana)
	c.callback = &tele.Callback{Data: EncodeCallback(ActionAccept, 7)}
	require.NoError(t, failing.HandleCallback(c))
	require.Len(t, c.answered, 1)
	assert.True(t, strings.HasPrefix(c.answered[0], "❌"))
	assert.Empty(t, c.edited, "a failed press keeps the panel")
}
