// Package api exposes the feed, ledger and challenge services over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/jakesanders16/mini-youtube/internal/challenge"
	"github.com/jakesanders16/mini-youtube/internal/model"
	"github.com/jakesanders16/mini-youtube/internal/service"
)

// VideoService is the catalogue and feed surface used by the API.
type VideoService interface {
	Feed(ctx context.Context, q service.FeedQuery) ([]*model.Video, error)
	Trending(ctx context.Context, limit int) ([]*model.Video, error)
	GetVideo(ctx context.Context, id int64) (*model.Video, error)
	DeleteVideo(ctx context.Context, videoID, actorID int64) error
	PersonalBests(ctx context.Context, userID int64) ([]*model.PersonalBest, error)
	SetPersonalBest(ctx context.Context, userID int64, liftType string, weight decimal.Decimal, videoID *int64) (*model.PersonalBest, error)
}

// EngagementService records reactions, comments and views.
type EngagementService interface {
	RecordReaction(ctx context.Context, videoID int64, voter model.VoterKey, emoji model.Emoji, actingUserID *int64) (*model.ReactionResult, error)
	RecordComment(ctx context.Context, videoID, userID int64, text string) (*model.Comment, error)
	RecordView(ctx context.Context, videoID int64)
	Counters(ctx context.Context, videoID int64, voter model.VoterKey) (*model.VideoCounters, error)
	Comments(ctx context.Context, videoID int64, limit int) ([]*model.Comment, error)
	ReactionsByDay(ctx context.Context, videoID, actorID int64, days int) ([]model.DailyCount, error)
}

// ChallengeService runs the challenge lifecycle.
type ChallengeService interface {
	Create(ctx context.Context, p challenge.Proposal) (*model.Challenge, error)
	Accept(ctx context.Context, challengeID, actorID int64) (*model.Challenge, error)
	Decline(ctx context.Context, challengeID, actorID int64) (*model.Challenge, error)
	Submit(ctx context.Context, challengeID, actorID, videoID int64) (*model.Challenge, error)
	ListForUser(ctx context.Context, userID int64, limit int) ([]*model.Challenge, error)
}

// LeaderboardService serves ranked boards.
type LeaderboardService interface {
	Query(ctx context.Context, q model.LeaderboardQuery) ([]model.LeaderboardEntry, error)
	GymBattle(ctx context.Context, limit int) ([]model.GymStanding, error)
	Gym(ctx context.Context, gymID int64, limit int) (*model.GymBoard, error)
	ResetsInDays() int
}

// LedgerService reads balances and the journal.
type LedgerService interface {
	Balance(ctx context.Context, userID int64) (*model.Balance, error)
	History(ctx context.Context, userID int64, limit int) ([]*model.PointEntry, error)
}

// Deps holds everything the router needs.
type Deps struct {
	Videos      VideoService
	Engagement  EngagementService
	Challenges  ChallengeService
	Leaderboard LeaderboardService
	Ledger      LedgerService

	// Health reports readiness of the backing stores. Optional.
	Health func(ctx context.Context) error

	JWTSecret string
	VoteSalt  string
}

// Handler serves the API routes.
type Handler struct {
	videos      VideoService
	engagement  EngagementService
	challenges  ChallengeService
	leaderboard LeaderboardService
	ledger      LedgerService
	health      func(ctx context.Context) error
	voteSalt    string
}

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(d Deps) *gin.Engine {
	h := &Handler{
		videos:      d.Videos,
		engagement:  d.Engagement,
		challenges:  d.Challenges,
		leaderboard: d.Leaderboard,
		ledger:      d.Ledger,
		health:      d.Health,
		voteSalt:    d.VoteSalt,
	}

	r := gin.New()
	r.Use(RequestID(), RequestLogger(), Recovery(), Metrics(), Identify([]byte(d.JWTSecret)))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/health", h.Health)

	api.GET("/videos", h.ListFeed)
	api.GET("/videos/trending", h.ListTrending)
	api.GET("/videos/:id", h.GetVideo)
	api.GET("/videos/:id/counters", h.GetCounters)
	api.POST("/videos/:id/reactions", h.React)
	api.GET("/videos/:id/comments", h.ListComments)
	api.POST("/videos/:id/comments", RequireUser(), h.Comment)
	api.DELETE("/videos/:id", RequireUser(), h.DeleteVideo)
	api.GET("/videos/:id/analytics", RequireUser(), h.Analytics)

	api.GET("/leaderboard", h.Leaderboard)
	api.GET("/gyms/battle", h.GymBattle)
	api.GET("/gyms/:id", h.GymBoard)
	api.GET("/users/:id/pbs", h.PersonalBests)
	api.PUT("/pbs/:lift", RequireUser(), h.SetPersonalBest)

	api.GET("/challenges", RequireUser(), h.ListChallenges)
	api.POST("/challenges", RequireUser(), h.CreateChallenge)
	api.POST("/challenges/:id/accept", RequireUser(), h.AcceptChallenge)
	api.POST("/challenges/:id/decline", RequireUser(), h.DeclineChallenge)
	api.POST("/challenges/:id/submit", RequireUser(), h.SubmitChallenge)

	api.GET("/me/points", RequireUser(), h.MyPoints)

	return r
}

// Health handles GET /api/health
func (h *Handler) Health(c *gin.Context) {
	if h.health != nil {
		if err := h.health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
