package bot

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/jakesanders16/mini-youtube/internal/config"
	"github.com/jakesanders16/mini-youtube/internal/handler"
)

// UserMiddleware resolves the sender to an athlete account, registering
// one on first contact, and stores it under handler.UserKey.
func UserMiddleware(accounts handler.Accounts) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil || sender.IsBot {
				return nil
			}

			ctx, cancel := requestContext()
			defer cancel()

			user, created, err := accounts.EnsureTelegramUser(ctx, sender.ID, handler.DisplayName(sender))
			if err != nil {
				log.Error().Err(err).Int64("telegram_id", sender.ID).Msg("Failed to resolve sender")
				return c.Reply("❌ Could not load your account, please try again later")
			}
			if created {
				log.Info().
					Int64("user_id", user.ID).
					Int64("telegram_id", sender.ID).
					Str("username", user.Username).
					Msg("New athlete joined via Telegram")
			}

			c.Set(handler.UserKey, user)
			return next(c)
		}
	}
}

// AdminMiddleware creates a middleware that checks if the user is an admin.
func AdminMiddleware(cfg *config.Config) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}

			if !cfg.IsAdmin(sender.ID) {
				log.Warn().
					Int64("telegram_id", sender.ID).
					Str("command", c.Text()).
					Msg("Non-admin attempted admin command")
				return c.Reply("❌ Admins only")
			}

			return next(c)
		}
	}
}

// LoggingMiddleware creates a middleware that logs all incoming messages.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			logEvent := log.Debug()
			if sender := c.Sender(); sender != nil {
				logEvent = logEvent.
					Int64("telegram_id", sender.ID).
					Str("username", sender.Username)
			}
			if chat := c.Chat(); chat != nil {
				logEvent = logEvent.
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type))
			}
			logEvent.
				Str("text", c.Text()).
				Msg("Received message")

			return next(c)
		}
	}
}

// RecoveryMiddleware creates a middleware that recovers from panics.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("text", c.Text()).
						Msg("Recovered from panic in handler")
					err = c.Reply("❌ Internal error, please try again later")
				}
			}()
			return next(c)
		}
	}
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}
