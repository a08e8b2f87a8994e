package handler

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"github.com/jakesanders16/mini-youtube/internal/model"
)

const boardSize = 10

// RankingHandler handles leaderboard commands.
type RankingHandler struct {
	leaderboard Leaderboard
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(leaderboard Leaderboard) *RankingHandler {
	return &RankingHandler{leaderboard: leaderboard}
}

// HandleTop handles /top [month|alltime] [gym_id].
func (h *RankingHandler) HandleTop(c tele.Context) error {
	q := model.LeaderboardQuery{Epoch: model.EpochMonth, Limit: boardSize}
	for _, arg := range c.Args() {
		if epoch, ok := model.ParseEpoch(strings.ToLower(arg)); ok {
			q.Epoch = epoch
			continue
		}
		id, ok := parseID(arg)
		if !ok {
			return c.Reply("Usage: /top [month|alltime] [gym_id]")
		}
		q.GymID = &id
	}

	ctx, cancel := requestContext()
	defer cancel()

	entries, err := h.leaderboard.Query(ctx, q)
	if err != nil {
		return c.Reply(errorReply(err, "/top"))
	}

	title := "🏆 Monthly top 10"
	if q.Epoch == model.EpochAllTime {
		title = "🏆 All-time top 10"
	}
	msg := formatBoard(title, entries, func(e model.LeaderboardEntry) string {
		return fmt.Sprintf("%d pts", e.Points)
	})
	if q.Epoch == model.EpochMonth {
		msg += fmt.Sprintf("\n⏳ Resets in %d days", h.leaderboard.ResetsInDays())
	}
	return c.Reply(msg)
}

// HandleLift handles /lift <type>, ranking personal bests for one lift.
func (h *RankingHandler) HandleLift(c tele.Context) error {
	args := c.Args()
	if len(args) == 0 {
		return c.Reply("Usage: /lift <type>, e.g. /lift squat")
	}
	lift := strings.ToLower(strings.Join(args, " "))

	ctx, cancel := requestContext()
	defer cancel()

	entries, err := h.leaderboard.Query(ctx, model.LeaderboardQuery{LiftType: &lift, Limit: boardSize})
	if err != nil {
		return c.Reply(errorReply(err, "/lift"))
	}

	return c.Reply(formatBoard("💪 Strongest "+lift, entries, func(e model.LeaderboardEntry) string {
		if e.Weight == nil {
			return "-"
		}
		return e.Weight.String() + " lbs"
	}))
}

// HandleGyms handles /gyms, the monthly gym battle.
func (h *RankingHandler) HandleGyms(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	gyms, err := h.leaderboard.GymBattle(ctx, boardSize)
	if err != nil {
		return c.Reply(errorReply(err, "/gyms"))
	}
	if len(gyms) == 0 {
		return c.Reply("🏟 No gyms registered yet")
	}

	var b strings.Builder
	b.WriteString("🏟 Gym battle\n" + divider + "\n")
	for _, g := range gyms {
		fmt.Fprintf(&b, "%s %s: %d pts\n", rankLabel(g.Rank), g.Name, g.Points)
	}
	b.WriteString(divider)
	fmt.Fprintf(&b, "\n⏳ Resets in %d days", h.leaderboard.ResetsInDays())
	return c.Reply(b.String())
}

func formatBoard(title string, entries []model.LeaderboardEntry, value func(model.LeaderboardEntry) string) string {
	if len(entries) == 0 {
		return title + "\n📊 No entries yet"
	}

	var b strings.Builder
	b.WriteString(title + "\n" + divider + "\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%s @%s: %s\n", rankLabel(e.Rank), e.Username, value(e))
	}
	b.WriteString(divider)
	return b.String()
}
