package handler

import (
	"fmt"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"
)

// AdminHandler handles maintenance commands. Access is enforced by the
// bot's admin middleware.
type AdminHandler struct {
	ledger     Ledger
	challenges Challenges
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(ledger Ledger, challenges Challenges) *AdminHandler {
	return &AdminHandler{ledger: ledger, challenges: challenges}
}

// HandleRecompute handles /recompute <user_id>, re-deriving a user's
// earned points from their videos' current engagement.
func (h *AdminHandler) HandleRecompute(c tele.Context) error {
	args := c.Args()
	if len(args) != 1 {
		return c.Reply("Usage: /recompute <user_id>")
	}
	userID, ok := parseID(args[0])
	if !ok {
		return c.Reply("❌ Invalid user id")
	}

	ctx, cancel := requestContext()
	defer cancel()

	b, err := h.ledger.RecomputeFromEngagement(ctx, userID)
	if err != nil {
		return c.Reply(errorReply(err, "/recompute"))
	}

	log.Info().
		Int64("admin_id", c.Sender().ID).
		Int64("user_id", userID).
		Int64("balance", b.Balance).
		Msg("Admin recomputed points")

	return c.Reply(fmt.Sprintf(
		"✅ Recomputed user #%d\nSpendable: %d · All-time: %d · Month: %d",
		userID, b.Balance, b.AllTime, b.Month,
	))
}

// HandleExpire handles /expire, running the overdue challenge sweep now.
func (h *AdminHandler) HandleExpire(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	n, err := h.challenges.ExpireOverdue(ctx)
	if err != nil {
		return c.Reply(errorReply(err, "/expire"))
	}
	return c.Reply(fmt.Sprintf("✅ Expired %d overdue challenges", n))
}
