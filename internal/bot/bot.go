// Package bot wires the Telegram transport to the RepRoom services.
package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/jakesanders16/mini-youtube/internal/config"
	"github.com/jakesanders16/mini-youtube/internal/handler"
)

// Bot wraps the telebot instance with its handlers.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	accountHandler   *handler.AccountHandler
	rankingHandler   *handler.RankingHandler
	challengeHandler *handler.ChallengeHandler
	adminHandler     *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config      *config.Config
	Accounts    handler.Accounts
	Ledger      handler.Ledger
	Leaderboard handler.Leaderboard
	Challenges  handler.Challenges
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	timeout := deps.Config.Bot.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	teleBot, err := tele.NewBot(tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
		OnError: func(err error, c tele.Context) {
			event := log.Error().Err(err)
			if c != nil {
				event = event.Str("text", c.Text())
			}
			event.Msg("Bot handler error")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:              teleBot,
		cfg:              deps.Config,
		accountHandler:   handler.NewAccountHandler(deps.Ledger, deps.Leaderboard),
		rankingHandler:   handler.NewRankingHandler(deps.Leaderboard),
		challengeHandler: handler.NewChallengeHandler(deps.Accounts, deps.Challenges),
		adminHandler:     handler.NewAdminHandler(deps.Ledger, deps.Challenges),
	}

	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(LoggingMiddleware())
	b.bot.Use(UserMiddleware(deps.Accounts))

	b.registerHandlers()

	return b, nil
}

// registerHandlers registers all command handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/balance", b.accountHandler.HandleBalance)
	b.bot.Handle("/history", b.accountHandler.HandleHistory)

	b.bot.Handle("/top", b.rankingHandler.HandleTop)
	b.bot.Handle("/lift", b.rankingHandler.HandleLift)
	b.bot.Handle("/gyms", b.rankingHandler.HandleGyms)

	b.bot.Handle("/challenges", b.challengeHandler.HandleChallenges)
	b.bot.Handle("/challenge", b.challengeHandler.HandleChallenge)
	b.bot.Handle("/accept", b.challengeHandler.HandleAccept)
	b.bot.Handle("/decline", b.challengeHandler.HandleDecline)
	b.bot.Handle("/submit", b.challengeHandler.HandleSubmit)
	b.bot.Handle(tele.OnCallback, b.challengeHandler.HandleCallback)

	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/recompute", b.adminHandler.HandleRecompute)
	adminGroup.Handle("/expire", b.adminHandler.HandleExpire)
}

// Start starts polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("bot", b.bot.Me.Username).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
