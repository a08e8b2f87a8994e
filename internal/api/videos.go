package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/jakesanders16/mini-youtube/internal/model"
	"github.com/jakesanders16/mini-youtube/internal/service"
)

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return n, true
}

// voterKey identifies the caller for reactions: the user when signed in,
// otherwise a salted fingerprint of the client.
func (h *Handler) voterKey(c *gin.Context) (model.VoterKey, *int64) {
	if userID, ok := currentUser(c); ok {
		return model.UserVoterKey(userID), &userID
	}
	return Fingerprint(c.ClientIP(), c.Request.UserAgent(), h.voteSalt), nil
}

func optionalString(c *gin.Context, name string) *string {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil
	}
	return &v
}

// ListFeed handles GET /api/videos
func (h *Handler) ListFeed(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}

	q := service.FeedQuery{
		LiftType: optionalString(c, "lift"),
		Limit:    limit,
		Offset:   offset,
	}
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, "invalid user_id")
			return
		}
		q.UserID = &id
	}

	videos, err := h.videos.Feed(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos})
}

// ListTrending handles GET /api/videos/trending
func (h *Handler) ListTrending(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	videos, err := h.videos.Trending(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos})
}

// GetVideo handles GET /api/videos/:id and counts a view.
func (h *Handler) GetVideo(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	video, err := h.videos.GetVideo(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.engagement.RecordView(c.Request.Context(), id)

	c.JSON(http.StatusOK, video)
}

// GetCounters handles GET /api/videos/:id/counters
func (h *Handler) GetCounters(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	voter, _ := h.voterKey(c)
	counters, err := h.engagement.Counters(c.Request.Context(), id, voter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, counters)
}

type reactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

// React handles POST /api/videos/:id/reactions
func (h *Handler) React(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req reactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	emoji, err := model.ParseEmoji(req.Emoji)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	voter, acting := h.voterKey(c)
	result, err := h.engagement.RecordReaction(c.Request.Context(), id, voter, emoji, acting)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListComments handles GET /api/videos/:id/comments
func (h *Handler) ListComments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	comments, err := h.engagement.Comments(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"video_id": id, "comments": comments})
}

type commentRequest struct {
	Text string `json:"text" binding:"required,max=2000"`
}

// Comment handles POST /api/videos/:id/comments
func (h *Handler) Comment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	userID, _ := currentUser(c)
	comment, err := h.engagement.RecordComment(c.Request.Context(), id, userID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// DeleteVideo handles DELETE /api/videos/:id
func (h *Handler) DeleteVideo(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	userID, _ := currentUser(c)
	if err := h.videos.DeleteVideo(c.Request.Context(), id, userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Analytics handles GET /api/videos/:id/analytics
func (h *Handler) Analytics(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	days, ok := queryInt(c, "days", 30)
	if !ok {
		return
	}

	userID, _ := currentUser(c)
	counts, err := h.engagement.ReactionsByDay(c.Request.Context(), id, userID, days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"video_id": id, "days": days, "reactions": counts})
}

// PersonalBests handles GET /api/users/:id/pbs
func (h *Handler) PersonalBests(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	pbs, err := h.videos.PersonalBests(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": id, "personal_bests": pbs})
}

type personalBestRequest struct {
	Weight  decimal.Decimal `json:"weight_lbs"`
	VideoID *int64          `json:"video_id"`
}

// SetPersonalBest handles PUT /api/pbs/:lift
func (h *Handler) SetPersonalBest(c *gin.Context) {
	var req personalBestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	userID, _ := currentUser(c)
	pb, err := h.videos.SetPersonalBest(c.Request.Context(), userID, c.Param("lift"), req.Weight, req.VideoID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"personal_best": pb})
}
