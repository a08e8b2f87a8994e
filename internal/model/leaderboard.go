package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Epoch is the window a leaderboard aggregates points over.
type Epoch string

const (
	EpochMonth   Epoch = "month"
	EpochAllTime Epoch = "alltime"
)

// LeaderboardEntry is one ranked row of a leaderboard.
// Weight is only set on strength (lift type) boards.
type LeaderboardEntry struct {
	UserID     int64            `json:"user_id"`
	Username   string           `json:"username"`
	GymID      *int64           `json:"gym_id,omitempty"`
	GymName    *string          `json:"gym_name,omitempty"`
	Points     int64            `json:"points"`
	Weight     *decimal.Decimal `json:"weight,omitempty"`
	Rank       int              `json:"rank"`
	VideoCount int64            `json:"video_count"`
}

// GymStanding is a gym's summed member points for the current month.
type GymStanding struct {
	GymID  int64   `json:"gym_id"`
	Name   string  `json:"name"`
	City   *string `json:"city,omitempty"`
	Points int64   `json:"points"`
	Rank   int     `json:"rank"`
}

// ParseEpoch maps user input to an epoch, defaulting to the month.
func ParseEpoch(s string) (Epoch, bool) {
	switch Epoch(s) {
	case "", EpochMonth:
		return EpochMonth, true
	case EpochAllTime, "all":
		return EpochAllTime, true
	}
	return "", false
}

// LeaderboardQuery selects and filters a leaderboard. A non-nil LiftType
// turns it into a strength board ranked by personal best weight. Month is
// the YYYY-MM bucket of a monthly points board and is empty otherwise.
type LeaderboardQuery struct {
	Epoch    Epoch
	Month    string
	GymID    *int64
	Gender   *string
	LiftType *string
	Limit    int
}

// Key returns a stable identifier of the query, used for caching.
func (q LeaderboardQuery) Key() string {
	var b strings.Builder
	b.WriteString(string(q.Epoch))
	if q.Month != "" {
		fmt.Fprintf(&b, ":month=%s", q.Month)
	}
	if q.GymID != nil {
		fmt.Fprintf(&b, ":gym=%d", *q.GymID)
	}
	if q.Gender != nil {
		fmt.Fprintf(&b, ":gender=%s", *q.Gender)
	}
	if q.LiftType != nil {
		fmt.Fprintf(&b, ":lift=%s", *q.LiftType)
	}
	fmt.Fprintf(&b, ":limit=%d", q.Limit)
	return b.String()
}
