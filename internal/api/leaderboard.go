package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jakesanders16/mini-youtube/internal/model"
)

// Leaderboard handles GET /api/leaderboard
//
// Query parameters: epoch (month|alltime), gym_id, gender, lift, limit.
func (h *Handler) Leaderboard(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}

	q := model.LeaderboardQuery{
		Epoch:    model.Epoch(c.Query("epoch")),
		Gender:   optionalString(c, "gender"),
		LiftType: optionalString(c, "lift"),
		Limit:    limit,
	}
	if raw := c.Query("gym_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, "invalid gym_id")
			return
		}
		q.GymID = &id
	}

	entries, err := h.leaderboard.Query(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}

	epoch, _ := model.ParseEpoch(string(q.Epoch))
	c.JSON(http.StatusOK, gin.H{
		"epoch":          epoch,
		"entries":        entries,
		"resets_in_days": h.leaderboard.ResetsInDays(),
	})
}

// GymBattle handles GET /api/gyms/battle
func (h *Handler) GymBattle(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	gyms, err := h.leaderboard.GymBattle(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if gyms == nil {
		gyms = []model.GymStanding{}
	}
	c.JSON(http.StatusOK, gin.H{"gyms": gyms, "resets_in_days": h.leaderboard.ResetsInDays()})
}

// GymBoard handles GET /api/gyms/:id
func (h *Handler) GymBoard(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	board, err := h.leaderboard.Gym(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

// MyPoints handles GET /api/me/points
func (h *Handler) MyPoints(c *gin.Context) {
	userID, _ := currentUser(c)
	ctx := c.Request.Context()

	balance, err := h.ledger.Balance(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	history, err := h.ledger.History(ctx, userID, 20)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance, "history": history})
}
