// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/jakesanders16/mini-youtube/internal/challenge"
	"github.com/jakesanders16/mini-youtube/internal/model"
	"github.com/jakesanders16/mini-youtube/internal/pkg/apperr"
	"github.com/jakesanders16/mini-youtube/internal/service"
)

// UserKey is the context key under which the bot middleware stores the
// sender's *model.User.
const UserKey = "reproom_user"

const requestTimeout = 10 * time.Second

// Accounts resolves Telegram senders and usernames to athletes.
type Accounts interface {
	EnsureTelegramUser(ctx context.Context, telegramID int64, username string) (*model.User, bool, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

// Ledger reads balances and recomputes earned points.
type Ledger interface {
	Balance(ctx context.Context, userID int64) (*model.Balance, error)
	History(ctx context.Context, userID int64, limit int) ([]*model.PointEntry, error)
	RecomputeFromEngagement(ctx context.Context, userID int64) (*model.Balance, error)
}

// Leaderboard serves ranked boards.
type Leaderboard interface {
	Query(ctx context.Context, q model.LeaderboardQuery) ([]model.LeaderboardEntry, error)
	GymBattle(ctx context.Context, limit int) ([]model.GymStanding, error)
	ResetsInDays() int
}

// Challenges runs the challenge lifecycle.
type Challenges interface {
	Create(ctx context.Context, p challenge.Proposal) (*model.Challenge, error)
	Accept(ctx context.Context, challengeID, actorID int64) (*model.Challenge, error)
	Decline(ctx context.Context, challengeID, actorID int64) (*model.Challenge, error)
	Submit(ctx context.Context, challengeID, actorID, videoID int64) (*model.Challenge, error)
	ListForUser(ctx context.Context, userID int64, limit int) ([]*model.Challenge, error)
	ExpireOverdue(ctx context.Context) (int, error)
	Stake() int64
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// currentUser returns the athlete the middleware resolved for the sender.
func currentUser(c tele.Context) (*model.User, bool) {
	u, ok := c.Get(UserKey).(*model.User)
	return u, ok && u != nil
}

// DisplayName picks the name a Telegram sender is registered under.
func DisplayName(sender *tele.User) string {
	if sender.Username != "" {
		return sender.Username
	}
	return sender.FirstName
}

// errorReply turns a service error into the text sent back to the user.
func errorReply(err error, command string) string {
	switch {
	case errors.Is(err, service.ErrChallengeExpired):
		return "⌛ That challenge expired. All stakes were refunded."
	case apperr.IsDomain(err):
		return "❌ " + apperr.Message(err)
	}
	log.Error().Err(err).Str("command", command).Msg("Command failed")
	return "❌ Something went wrong, please try again later"
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}

var medals = []string{"🥇", "🥈", "🥉"}

func rankLabel(rank int) string {
	if rank >= 1 && rank <= len(medals) {
		return medals[rank-1]
	}
	return fmt.Sprintf("%d.", rank)
}

const divider = "━━━━━━━━━━━━━━━"
