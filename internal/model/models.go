// Package model defines the data models for the RepRoom scoring and ledger core.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents an athlete account and its point balances.
// Balance is derived by the database as GREATEST(earned_points + challenge_points, 0).
type User struct {
	ID              int64     `db:"id" json:"id"`
	Username        string    `db:"username" json:"username"`
	GymID           *int64    `db:"gym_id" json:"gym_id"`
	Gender          *string   `db:"gender" json:"gender"`
	TelegramID      *int64    `db:"telegram_id" json:"telegram_id"`
	EarnedPoints    int64     `db:"earned_points" json:"earned_points"`
	ChallengePoints int64     `db:"challenge_points" json:"challenge_points"`
	Balance         int64     `db:"balance" json:"balance"`
	BalanceAllTime  int64     `db:"balance_alltime" json:"balance_alltime"`
	EarnedHighWater int64     `db:"earned_high_water" json:"earned_high_water"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Gym is a weak reference target for users.
type Gym struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	City      *string   `db:"city" json:"city"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Video is an uploaded lift with cached engagement counters and ranking score.
type Video struct {
	ID            int64               `db:"id" json:"id"`
	UserID        int64               `db:"user_id" json:"user_id"`
	Title         string              `db:"title" json:"title"`
	LiftType      *string             `db:"lift_type" json:"lift_type"`
	Weight        decimal.NullDecimal `db:"weight" json:"weight"`
	ReactionCount int64               `db:"reaction_count" json:"reaction_count"`
	CommentCount  int64               `db:"comment_count" json:"comment_count"`
	ViewCount     int64               `db:"view_count" json:"view_count"`
	Score         float64             `db:"score" json:"score"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	Username      string              `db:"username" json:"username"`
}

// VideoCounters is the read-only engagement projection of a video.
type VideoCounters struct {
	VideoID       int64   `json:"video_id"`
	ReactionCount int64   `json:"reaction_count"`
	CommentCount  int64   `json:"comment_count"`
	ViewCount     int64   `json:"view_count"`
	Score         float64 `json:"score"`
	VoterEmoji    *Emoji  `json:"my_reaction,omitempty"`
}

// Reaction is the single live reaction of one voter on one video.
type Reaction struct {
	VideoID   int64     `db:"video_id" json:"video_id"`
	VoterKey  VoterKey  `db:"voter_key" json:"voter_key"`
	UserID    *int64    `db:"user_id" json:"user_id"`
	Emoji     Emoji     `db:"emoji" json:"emoji"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ReactionResult is returned after a reaction toggle.
// VoterEmoji is nil when the toggle removed the voter's reaction.
type ReactionResult struct {
	Count      int64  `json:"reaction_count"`
	VoterEmoji *Emoji `json:"voter_emoji"`
}

// Comment is an authenticated comment on a video.
type Comment struct {
	ID        int64     `db:"id" json:"id"`
	VideoID   int64     `db:"video_id" json:"video_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Text      string    `db:"text" json:"text"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	Username  string    `db:"username" json:"username,omitempty"`
}

// DailyCount is a per-day aggregate used by video analytics.
type DailyCount struct {
	Day   time.Time `json:"day"`
	Count int64     `json:"count"`
}

// MonthlyPoints is one user's accumulated points for one calendar month.
type MonthlyPoints struct {
	UserID int64  `db:"user_id" json:"user_id"`
	Month  string `db:"month" json:"month"`
	Points int64  `db:"points" json:"points"`
}

// PointEntry records a direct balance mutation.
type PointEntry struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	ChallengeID *int64    `db:"challenge_id" json:"challenge_id"`
	Amount      int64     `db:"amount" json:"amount"`
	Kind        EntryKind `db:"kind" json:"kind"`
	Description *string   `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// EntryKind categorizes point entries.
type EntryKind string

const (
	EntryStake      EntryKind = "stake"      // Stake moved into a challenge pot
	EntryRefund     EntryKind = "refund"     // Stake returned from a pot
	EntryWinnings   EntryKind = "winnings"   // Opponent's stake won from a pot
	EntryEngagement EntryKind = "engagement" // Earned points change after a recompute
)

// Balance is a user's spendable and epoch totals.
type Balance struct {
	UserID  int64  `json:"user_id"`
	Balance int64  `json:"balance"`
	AllTime int64  `json:"balance_alltime"`
	Month   int64  `json:"month_points"`
	MonthID string `json:"month"`
}

// PersonalBest is a user's heaviest recorded weight for a lift type.
type PersonalBest struct {
	UserID   int64           `db:"user_id" json:"user_id"`
	LiftType string          `db:"lift_type" json:"lift_type"`
	Weight   decimal.Decimal `db:"weight" json:"weight"`
	VideoID  *int64          `db:"video_id" json:"video_id"`
	SetAt    time.Time       `db:"set_at" json:"set_at"`
}

// GymBoard is a gym with its members ranked by this month's points.
type GymBoard struct {
	Gym     *Gym               `json:"gym"`
	Month   string             `json:"month"`
	Members []LeaderboardEntry `json:"members"`
}
