package handler

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"
)

// AccountHandler handles account and balance commands.
type AccountHandler struct {
	ledger      Ledger
	leaderboard Leaderboard
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(ledger Ledger, leaderboard Leaderboard) *AccountHandler {
	return &AccountHandler{ledger: ledger, leaderboard: leaderboard}
}

// HandleStart handles the /start command.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return nil
	}

	return c.Reply(fmt.Sprintf(
		"🏋️ Welcome to RepRoom, @%s!\n\n"+
			"Post lifts, collect reactions and comments, and climb the boards.\n\n"+
			"Commands:\n"+
			"/balance - your points\n"+
			"/history - recent point movements\n"+
			"/top [month|alltime] [gym_id] - leaderboard\n"+
			"/lift <type> - strongest lifts\n"+
			"/gyms - gym battle\n"+
			"/challenges - your challenges\n"+
			"/challenge <username> <lift> <days> - start a challenge\n"+
			"/accept <id>, /decline <id>\n"+
			"/submit <id> <video_id> - enter your lift",
		user.Username,
	))
}

// HandleBalance handles the /balance command.
func (h *AccountHandler) HandleBalance(c tele.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return nil
	}
	ctx, cancel := requestContext()
	defer cancel()

	b, err := h.ledger.Balance(ctx, user.ID)
	if err != nil {
		return c.Reply(errorReply(err, "/balance"))
	}

	return c.Reply(fmt.Sprintf(
		"💰 Points for @%s\n"+
			divider+"\n"+
			"Spendable: %d\n"+
			"All-time: %d\n"+
			"This month (%s): %d\n"+
			divider+"\n"+
			"⏳ Monthly board resets in %d days",
		user.Username, b.Balance, b.AllTime, b.MonthID, b.Month, h.leaderboard.ResetsInDays(),
	))
}

// HandleHistory handles the /history command.
func (h *AccountHandler) HandleHistory(c tele.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return nil
	}
	ctx, cancel := requestContext()
	defer cancel()

	entries, err := h.ledger.History(ctx, user.ID, 10)
	if err != nil {
		return c.Reply(errorReply(err, "/history"))
	}
	if len(entries) == 0 {
		return c.Reply("📒 No point movements yet")
	}

	var b strings.Builder
	b.WriteString("📒 Recent points\n" + divider + "\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%+d %s", e.Amount, e.Kind)
		if e.ChallengeID != nil {
			fmt.Fprintf(&b, " (challenge #%d)", *e.ChallengeID)
		}
		fmt.Fprintf(&b, " · %s\n", e.CreatedAt.Format("Jan 2"))
	}
	b.WriteString(divider)
	return c.Reply(b.String())
}
