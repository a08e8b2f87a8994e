package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"github.com/jakesanders16/mini-youtube/internal/challenge"
	"github.com/jakesanders16/mini-youtube/internal/model"
)

// ChallengeHandler handles 1v1 challenge commands.
type ChallengeHandler struct {
	accounts   Accounts
	challenges Challenges
}

// NewChallengeHandler creates a new ChallengeHandler.
func NewChallengeHandler(accounts Accounts, challenges Challenges) *ChallengeHandler {
	return &ChallengeHandler{accounts: accounts, challenges: challenges}
}

// HandleChallenge handles /challenge <username> <lift> <days>.
func (h *ChallengeHandler) HandleChallenge(c tele.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return nil
	}

	args := c.Args()
	if len(args) != 3 {
		return c.Reply(fmt.Sprintf(
			"Usage: /challenge <username> <lift> <days>\nBoth sides stake %d points; the heavier lift takes the pot.",
			h.challenges.Stake(),
		))
	}
	days, err := strconv.Atoi(args[2])
	if err != nil {
		return c.Reply("❌ Days must be a number")
	}

	ctx, cancel := requestContext()
	defer cancel()

	opponent, err := h.accounts.GetByUsername(ctx, args[0])
	if err != nil {
		return c.Reply(errorReply(err, "/challenge"))
	}

	created, err := h.challenges.Create(ctx, challenge.Proposal{
		ChallengerID: user.ID,
		OpponentID:   opponent.ID,
		LiftType:     strings.ToLower(args[1]),
		DurationDays: days,
	})
	if err != nil {
		return c.Reply(errorReply(err, "/challenge"))
	}

	return c.Reply(fmt.Sprintf(
		"⚔️ Challenge #%d: @%s vs @%s\n"+
			"Lift: %s · Pot: %d · Ends %s\n\n"+
			"@%s, tap a button or reply /accept %d or /decline %d",
		created.ID, user.Username, opponent.Username,
		created.LiftType, created.Pot, created.ExpiresAt.Format("Jan 2 15:04"),
		opponent.Username, created.ID, created.ID,
	), BuildResponsePanel(created.ID))
}

// HandleAccept handles /accept <id>.
func (h *ChallengeHandler) HandleAccept(c tele.Context) error {
	return h.respond(c, ActionAccept)
}

// HandleDecline handles /decline <id>.
func (h *ChallengeHandler) HandleDecline(c tele.Context) error {
	return h.respond(c, ActionDecline)
}

func (h *ChallengeHandler) respond(c tele.Context, action string) error {
	user, ok := currentUser(c)
	if !ok {
		return nil
	}

	args := c.Args()
	if len(args) != 1 {
		return c.Reply("Usage: /" + action + " <challenge_id>")
	}
	id, ok := parseID(args[0])
	if !ok {
		return c.Reply("❌ Invalid challenge id")
	}

	ctx, cancel := requestContext()
	defer cancel()

	return c.Reply(h.resolve(ctx, action, id, user.ID))
}

// HandleCallback handles the accept/decline buttons of a challenge panel.
func (h *ChallengeHandler) HandleCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	action, id, ok := DecodeCallback(cb.Data)
	if !ok {
		return c.Respond()
	}
	user, ok := currentUser(c)
	if !ok {
		return c.Respond()
	}

	ctx, cancel := requestContext()
	defer cancel()

	text := h.resolve(ctx, action, id, user.ID)
	if err := c.Respond(&tele.CallbackResponse{Text: text}); err != nil {
		return err
	}
	if strings.HasPrefix(text, "❌") {
		// failed presses keep the panel
		return nil
	}
	return c.Edit(text)
}

// resolve runs an accept or decline and renders the reply.
func (h *ChallengeHandler) resolve(ctx context.Context, action string, challengeID, actorID int64) string {
	switch action {
	case ActionAccept:
		ch, err := h.challenges.Accept(ctx, challengeID, actorID)
		if err != nil {
			return errorReply(err, "/accept")
		}
		return fmt.Sprintf("✅ Challenge #%d is on! Pot: %d. Submit with /submit %d <video_id>", ch.ID, ch.Pot, ch.ID)
	case ActionDecline:
		ch, err := h.challenges.Decline(ctx, challengeID, actorID)
		if err != nil {
			return errorReply(err, "/decline")
		}
		return fmt.Sprintf("🚫 Challenge #%d declined. The challenger's stake was refunded.", ch.ID)
	}
	return "❌ Unknown action"
}

// HandleSubmit handles /submit <id> <video_id>.
func (h *ChallengeHandler) HandleSubmit(c tele.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return nil
	}

	args := c.Args()
	if len(args) != 2 {
		return c.Reply("Usage: /submit <challenge_id> <video_id>")
	}
	id, ok := parseID(args[0])
	if !ok {
		return c.Reply("❌ Invalid challenge id")
	}
	videoID, ok := parseID(args[1])
	if !ok {
		return c.Reply("❌ Invalid video id")
	}

	ctx, cancel := requestContext()
	defer cancel()

	updated, err := h.challenges.Submit(ctx, id, user.ID, videoID)
	if err != nil {
		return c.Reply(errorReply(err, "/submit"))
	}

	switch updated.Status {
	case model.StatusComplete:
		winner := "@" + updated.ChallengerName
		if updated.WinnerID != nil && *updated.WinnerID == updated.OpponentID {
			winner = "@" + updated.OpponentName
		}
		return c.Reply(fmt.Sprintf("🏆 Challenge #%d settled: %s took the %d point pot!", updated.ID, winner, updated.Pot))
	case model.StatusTie:
		return c.Reply(fmt.Sprintf("🤝 Challenge #%d is a tie. Both stakes were refunded.", updated.ID))
	}
	return c.Reply(fmt.Sprintf("📹 Video #%d submitted for challenge #%d. Waiting for your opponent.", videoID, updated.ID))
}

// HandleChallenges handles /challenges, listing the sender's challenges.
func (h *ChallengeHandler) HandleChallenges(c tele.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return nil
	}
	ctx, cancel := requestContext()
	defer cancel()

	list, err := h.challenges.ListForUser(ctx, user.ID, 10)
	if err != nil {
		return c.Reply(errorReply(err, "/challenges"))
	}
	if len(list) == 0 {
		return c.Reply("⚔️ No challenges yet. Start one with /challenge <username> <lift> <days>")
	}

	var b strings.Builder
	b.WriteString("⚔️ Your challenges\n" + divider + "\n")
	for _, ch := range list {
		fmt.Fprintf(&b, "#%d %s: @%s vs @%s · %s\n",
			ch.ID, ch.LiftType, ch.ChallengerName, ch.OpponentName, ch.Status)
	}
	b.WriteString(divider)
	return c.Reply(b.String())
}
