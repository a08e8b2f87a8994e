package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakesanders16/mini-youtube/internal/challenge"
	"github.com/jakesanders16/mini-youtube/internal/model"
	"github.com/jakesanders16/mini-youtube/internal/pkg/apperr"
	"github.com/jakesanders16/mini-youtube/internal/service"
)

var testSecret = []byte("test-secret")

const testSalt = "pepper"

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeServices implements every service interface the router depends on.
type fakeServices struct {
	err error

	views     []int64
	voter     model.VoterKey
	actingID  *int64
	comment   string
	deletedBy int64
	proposal  challenge.Proposal
	query     model.LeaderboardQuery
	entries   []model.LeaderboardEntry
	gymID     int64
	pbLift    string
	pbWeight  decimal.Decimal
	pbVideo   *int64
	pbUser    int64
}

func (f *fakeServices) Feed(context.Context, service.FeedQuery) ([]*model.Video, error) {
	return []*model.Video{{ID: 1}}, f.err
}

func (f *fakeServices) Trending(context.Context, int) ([]*model.Video, error) {
	return nil, f.err
}

func (f *fakeServices) GetVideo(_ context.Context, id int64) (*model.Video, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.Video{ID: id, Title: "squat"}, nil
}

func (f *fakeServices) DeleteVideo(_ context.Context, _, actorID int64) error {
	f.deletedBy = actorID
	return f.err
}

func (f *fakeServices) PersonalBests(context.Context, int64) ([]*model.PersonalBest, error) {
	return nil, f.err
}

func (f *fakeServices) SetPersonalBest(_ context.Context, userID int64, liftType string, weight decimal.Decimal, videoID *int64) (*model.PersonalBest, error) {
	f.pbUser, f.pbLift, f.pbWeight, f.pbVideo = userID, liftType, weight, videoID
	if f.err != nil {
		return nil, f.err
	}
	return &model.PersonalBest{UserID: userID, LiftType: liftType, Weight: weight, VideoID: videoID}, nil
}

func (f *fakeServices) RecordReaction(_ context.Context, _ int64, voter model.VoterKey, emoji model.Emoji, acting *int64) (*model.ReactionResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.voter = voter
	f.actingID = acting
	return &model.ReactionResult{Count: 1, VoterEmoji: &emoji}, nil
}

func (f *fakeServices) RecordComment(_ context.Context, videoID, userID int64, text string) (*model.Comment, error) {
	f.comment = text
	return &model.Comment{ID: 1, VideoID: videoID, UserID: userID, Text: text}, f.err
}

func (f *fakeServices) RecordView(_ context.Context, videoID int64) {
	f.views = append(f.views, videoID)
}

func (f *fakeServices) Counters(_ context.Context, id int64, voter model.VoterKey) (*model.VideoCounters, error) {
	f.voter = voter
	return &model.VideoCounters{VideoID: id}, f.err
}

func (f *fakeServices) Comments(_ context.Context, videoID int64, _ int) ([]*model.Comment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []*model.Comment{{ID: 1, VideoID: videoID, UserID: 2, Text: "nice", Username: "ana"}}, nil
}

func (f *fakeServices) ReactionsByDay(context.Context, int64, int64, int) ([]model.DailyCount, error) {
	return nil, f.err
}

func (f *fakeServices) Create(_ context.Context, p challenge.Proposal) (*model.Challenge, error) {
	f.proposal = p
	if f.err != nil {
		return nil, f.err
	}
	return &model.Challenge{ID: 9, ChallengerID: p.ChallengerID, OpponentID: p.OpponentID, Status: model.StatusPending}, nil
}

func (f *fakeServices) Accept(_ context.Context, id, _ int64) (*model.Challenge, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.Challenge{ID: id, Status: model.StatusActive}, nil
}

func (f *fakeServices) Decline(_ context.Context, id, _ int64) (*model.Challenge, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.Challenge{ID: id, Status: model.StatusDeclined}, nil
}

func (f *fakeServices) Submit(_ context.Context, id, _, _ int64) (*model.Challenge, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.Challenge{ID: id, Status: model.StatusActive}, nil
}

func (f *fakeServices) ListForUser(context.Context, int64, int) ([]*model.Challenge, error) {
	return nil, f.err
}

func (f *fakeServices) Query(_ context.Context, q model.LeaderboardQuery) ([]model.LeaderboardEntry, error) {
	f.query = q
	return f.entries, f.err
}

func (f *fakeServices) GymBattle(context.Context, int) ([]model.GymStanding, error) {
	return nil, f.err
}

func (f *fakeServices) Gym(_ context.Context, gymID int64, _ int) (*model.GymBoard, error) {
	f.gymID = gymID
	if f.err != nil {
		return nil, f.err
	}
	return &model.GymBoard{
		Gym:     &model.Gym{ID: gymID, Name: "Iron Temple"},
		Month:   "2026-03",
		Members: []model.LeaderboardEntry{{UserID: 1, Username: "ana", Points: 40, Rank: 1}},
	}, nil
}

func (f *fakeServices) ResetsInDays() int { return 12 }

func (f *fakeServices) Balance(_ context.Context, userID int64) (*model.Balance, error) {
	return &model.Balance{UserID: userID, Balance: 30}, f.err
}

func (f *fakeServices) History(context.Context, int64, int) ([]*model.PointEntry, error) {
	return nil, f.err
}

func newTestRouter(f *fakeServices) *gin.Engine {
	return NewRouter(Deps{
		Videos:      f,
		Engagement:  f,
		Challenges:  f,
		Leaderboard: f,
		Ledger:      f,
		JWTSecret:   string(testSecret),
		VoteSalt:    testSalt,
	})
}

// signToken signs an HS256 token carrying userID as its subject.
func signToken(secret []byte, userID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func token(t *testing.T, userID int64) string {
	t.Helper()
	tok, err := signToken(testSecret, userID, time.Hour)
	require.NoError(t, err)
	return tok
}

func do(r http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	f := &fakeServices{}
	r := NewRouter(Deps{Videos: f, Engagement: f, Challenges: f, Leaderboard: f, Ledger: f,
		Health: func(context.Context) error { return errors.New("db down") }})

	w := do(r, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(newTestRouter(f), http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(headerRequestID))
}

func TestRequestIDIsPropagated(t *testing.T) {
	r := newTestRouter(&fakeServices{})
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(headerRequestID, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(headerRequestID))
}

func TestReact_AnonymousUsesFingerprint(t *testing.T) {
	f := &fakeServices{}
	r := newTestRouter(f)

	w := do(r, http.MethodPost, "/api/videos/5/reactions", "", gin.H{"emoji": "fire"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, Fingerprint("192.0.2.1", "test-agent", testSalt), f.voter)
	assert.Nil(t, f.actingID)
	assert.Equal(t, float64(1), decode(t, w)["reaction_count"])
}

func TestReact_AuthenticatedUsesUserKey(t *testing.T) {
	f := &fakeServices{}
	r := newTestRouter(f)

	w := do(r, http.MethodPost, "/api/videos/5/reactions", token(t, 42), gin.H{"emoji": "💪"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, model.UserVoterKey(42), f.voter)
	require.NotNil(t, f.actingID)
	assert.Equal(t, int64(42), *f.actingID)
}

func TestReact_BadInput(t *testing.T) {
	r := newTestRouter(&fakeServices{})

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/videos/5/reactions", "", gin.H{"emoji": "thumbs"}).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/videos/5/reactions", "", gin.H{}).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/videos/abc/reactions", "", gin.H{"emoji": "fire"}).Code)
}

func TestAuthentication(t *testing.T) {
	f := &fakeServices{}
	r := newTestRouter(f)

	w := do(r, http.MethodPost, "/api/videos/5/comments", "", gin.H{"text": "nice"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/api/videos/5/comments", "not-a-token", gin.H{"text": "nice"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	forged, err := signToken([]byte("other-secret"), 42, time.Hour)
	require.NoError(t, err)
	w = do(r, http.MethodPost, "/api/videos/5/comments", forged, gin.H{"text": "nice"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	expired, err := signToken(testSecret, 42, -time.Minute)
	require.NoError(t, err)
	w = do(r, http.MethodPost, "/api/videos/5/comments", expired, gin.H{"text": "nice"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/api/videos/5/comments", token(t, 42), gin.H{"text": "nice"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "nice", f.comment)
}

func TestParseToken_IDClaim(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": 7}).SignedString(testSecret)
	require.NoError(t, err)

	id, err := ParseToken(testSecret, raw)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	none, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"name": "x"}).SignedString(testSecret)
	require.NoError(t, err)
	_, err = ParseToken(testSecret, none)
	assert.Error(t, err)
}

func TestGetVideoRecordsView(t *testing.T) {
	f := &fakeServices{}
	r := newTestRouter(f)

	w := do(r, http.MethodGet, "/api/videos/3", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int64{3}, f.views)

	f.err = apperr.New(apperr.ErrNotFound, "video not found")
	w = do(r, http.MethodGet, "/api/videos/4", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "video not found", decode(t, w)["error"])
	assert.Equal(t, []int64{3}, f.views, "missing videos are not viewed")
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"not found", apperr.New(apperr.ErrNotFound, "challenge not found"), http.StatusNotFound, "challenge not found"},
		{"already resolved", apperr.ErrAlreadyResolved, http.StatusConflict, "challenge already resolved"},
		{"conflict", apperr.New(apperr.ErrConflict, "taken"), http.StatusConflict, "taken"},
		{"insufficient", apperr.New(apperr.ErrInsufficientFunds, "insufficient points: need 25, have 3"), http.StatusPaymentRequired, "insufficient points: need 25, have 3"},
		{"invalid", apperr.New(apperr.ErrInvalidArgument, "cannot challenge yourself"), http.StatusBadRequest, "cannot challenge yourself"},
		{"forbidden", apperr.New(apperr.ErrForbidden, "nope"), http.StatusForbidden, "nope"},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&fakeServices{err: tt.err})
			w := do(r, http.MethodPost, "/api/challenges/1/accept", token(t, 2), nil)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.msg, decode(t, w)["error"])
		})
	}
}

func TestCreateChallenge(t *testing.T) {
	f := &fakeServices{}
	r := newTestRouter(f)

	w := do(r, http.MethodPost, "/api/challenges", token(t, 1), gin.H{
		"opponent_id": 2, "lift_type": "bench", "duration_days": 7,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, challenge.Proposal{ChallengerID: 1, OpponentID: 2, LiftType: "bench", DurationDays: 7}, f.proposal)

	w = do(r, http.MethodPost, "/api/challenges", token(t, 1), gin.H{"opponent_id": 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteVideoUsesCaller(t *testing.T) {
	f := &fakeServices{}
	r := newTestRouter(f)

	w := do(r, http.MethodDelete, "/api/videos/8", token(t, 31), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(31), f.deletedBy)
}

func TestLeaderboard(t *testing.T) {
	f := &fakeServices{entries: []model.LeaderboardEntry{{UserID: 1, Username: "ana", Points: 40, Rank: 1}}}
	r := newTestRouter(f)

	w := do(r, http.MethodGet, "/api/leaderboard?epoch=alltime&gym_id=3&lift=squat&limit=5", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "alltime", body["epoch"])
	assert.Equal(t, float64(12), body["resets_in_days"])
	assert.Len(t, body["entries"], 1)

	assert.Equal(t, model.EpochAllTime, f.query.Epoch)
	require.NotNil(t, f.query.GymID)
	assert.Equal(t, int64(3), *f.query.GymID)
	require.NotNil(t, f.query.LiftType)
	assert.Equal(t, "squat", *f.query.LiftType)
	assert.Equal(t, 5, f.query.Limit)

	w = do(r, http.MethodGet, "/api/leaderboard?gym_id=x", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMyPoints(t *testing.T) {
	r := newTestRouter(&fakeServices{})

	w := do(r, http.MethodGet, "/api/me/points", token(t, 6), nil)
	require.Equal(t, http.StatusOK, w.Code)
	balance := decode(t, w)["balance"].(map[string]any)
	assert.Equal(t, float64(6), balance["user_id"])
	assert.Equal(t, float64(30), balance["balance"])
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(&fakeServices{})
	do(r, http.MethodGet, "/api/health", "", nil)

	w := do(r, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "reproom_http_requests_total")
}

func TestGetCountersUsesCaller(t *testing.T) {
	f := &fakeServices{}
	r := newTestRouter(f)

	w := do(r, http.MethodGet, "/api/videos/5/counters", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, Fingerprint("192.0.2.1", "test-agent", testSalt), f.voter)

	w = do(r, http.MethodGet, "/api/videos/5/counters", token(t, 42), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.UserVoterKey(42), f.voter)
}

func TestListComments(t *testing.T) {
	f := &fakeServices{}
	r := newTestRouter(f)

	w := do(r, http.MethodGet, "/api/videos/5/comments", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	comments := decode(t, w)["comments"].([]any)
	require.Len(t, comments, 1)
	assert.Equal(t, "ana", comments[0].(map[string]any)["username"])

	f.err = apperr.New(apperr.ErrNotFound, "video not found")
	w = do(r, http.MethodGet, "/api/videos/6/comments", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGymBoard(t *testing.T) {
	f := &fakeServices{}
	r := newTestRouter(f)

	w := do(r, http.MethodGet, "/api/gyms/3", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(3), f.gymID)
	body := decode(t, w)
	assert.Equal(t, "Iron Temple", body["gym"].(map[string]any)["name"])
	assert.Len(t, body["members"], 1)

	w = do(r, http.MethodGet, "/api/gyms/battle", "", nil)
	assert.Equal(t, http.StatusOK, w.Code, "static route wins over the gym id")

	f.err = apperr.New(apperr.ErrNotFound, "gym not found")
	w = do(r, http.MethodGet, "/api/gyms/4", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetPersonalBest(t *testing.T) {
	f := &fakeServices{}
	r := newTestRouter(f)

	w := do(r, http.MethodPut, "/api/pbs/squat", "", gin.H{"weight_lbs": 315})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPut, "/api/pbs/squat", token(t, 9), gin.H{"weight_lbs": "302.5", "video_id": 4})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(9), f.pbUser)
	assert.Equal(t, "squat", f.pbLift)
	assert.True(t, decimal.RequireFromString("302.5").Equal(f.pbWeight))
	require.NotNil(t, f.pbVideo)
	assert.Equal(t, int64(4), *f.pbVideo)

	f.err = apperr.New(apperr.ErrForbidden, "not the owner of this video")
	w = do(r, http.MethodPut, "/api/pbs/squat", token(t, 9), gin.H{"weight_lbs": 300, "video_id": 5})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
