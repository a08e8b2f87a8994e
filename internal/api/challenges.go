package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jakesanders16/mini-youtube/internal/challenge"
	"github.com/jakesanders16/mini-youtube/internal/model"
)

// ListChallenges handles GET /api/challenges
func (h *Handler) ListChallenges(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	userID, _ := currentUser(c)
	list, err := h.challenges.ListForUser(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []*model.Challenge{}
	}
	c.JSON(http.StatusOK, gin.H{"challenges": list})
}

type createChallengeRequest struct {
	OpponentID   int64  `json:"opponent_id" binding:"required,gt=0"`
	LiftType     string `json:"lift_type" binding:"required"`
	DurationDays int    `json:"duration_days" binding:"required,gt=0"`
}

// CreateChallenge handles POST /api/challenges
func (h *Handler) CreateChallenge(c *gin.Context) {
	var req createChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	userID, _ := currentUser(c)
	created, err := h.challenges.Create(c.Request.Context(), challenge.Proposal{
		ChallengerID: userID,
		OpponentID:   req.OpponentID,
		LiftType:     req.LiftType,
		DurationDays: req.DurationDays,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// AcceptChallenge handles POST /api/challenges/:id/accept
func (h *Handler) AcceptChallenge(c *gin.Context) {
	h.respond(c, h.challenges.Accept)
}

// DeclineChallenge handles POST /api/challenges/:id/decline
func (h *Handler) DeclineChallenge(c *gin.Context) {
	h.respond(c, h.challenges.Decline)
}

type submitRequest struct {
	VideoID int64 `json:"video_id" binding:"required,gt=0"`
}

// SubmitChallenge handles POST /api/challenges/:id/submit
func (h *Handler) SubmitChallenge(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	userID, _ := currentUser(c)
	updated, err := h.challenges.Submit(c.Request.Context(), id, userID, req.VideoID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type respondFunc func(ctx context.Context, challengeID, actorID int64) (*model.Challenge, error)

func (h *Handler) respond(c *gin.Context, fn respondFunc) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, _ := currentUser(c)
	updated, err := fn(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
