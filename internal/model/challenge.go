package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChallengeStatus is the lifecycle state of a challenge.
type ChallengeStatus string

const (
	StatusPending  ChallengeStatus = "pending"
	StatusActive   ChallengeStatus = "active"
	StatusComplete ChallengeStatus = "complete"
	StatusDeclined ChallengeStatus = "declined"
	StatusTie      ChallengeStatus = "tie"
	StatusExpired  ChallengeStatus = "expired"
)

// Terminal reports whether no transition may leave this status.
func (s ChallengeStatus) Terminal() bool {
	switch s {
	case StatusComplete, StatusDeclined, StatusTie, StatusExpired:
		return true
	}
	return false
}

// Challenge is a wagered 1v1 lift competition between two users.
type Challenge struct {
	ID                int64               `db:"id" json:"id"`
	ChallengerID      int64               `db:"challenger_id" json:"challenger_id"`
	OpponentID        int64               `db:"opponent_id" json:"opponent_id"`
	LiftType          string              `db:"lift_type" json:"lift_type"`
	DurationDays      int                 `db:"duration_days" json:"duration_days"`
	Stake             int64               `db:"stake" json:"stake"`
	Pot               int64               `db:"pot" json:"pot"`
	Status            ChallengeStatus     `db:"status" json:"status"`
	WinnerID          *int64              `db:"winner_id" json:"winner_id"`
	ChallengerVideoID *int64              `db:"challenger_video_id" json:"challenger_video_id"`
	OpponentVideoID   *int64              `db:"opponent_video_id" json:"opponent_video_id"`
	ChallengerWeight  decimal.NullDecimal `db:"challenger_weight" json:"challenger_weight"`
	OpponentWeight    decimal.NullDecimal `db:"opponent_weight" json:"opponent_weight"`
	ExpiresAt         time.Time           `db:"expires_at" json:"expires_at"`
	CreatedAt         time.Time           `db:"created_at" json:"created_at"`
	ResolvedAt        *time.Time          `db:"resolved_at" json:"resolved_at"`

	ChallengerName string `db:"challenger_name" json:"challenger_name"`
	OpponentName   string `db:"opponent_name" json:"opponent_name"`
}

// IsParticipant reports whether userID is one of the two sides.
func (c *Challenge) IsParticipant(userID int64) bool {
	return c.ChallengerID == userID || c.OpponentID == userID
}

// BothSubmitted reports whether both sides attached a video.
func (c *Challenge) BothSubmitted() bool {
	return c.ChallengerVideoID != nil && c.OpponentVideoID != nil
}
