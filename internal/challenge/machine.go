// Package challenge implements the lifecycle rules of wagered 1v1 lift
// challenges: who may move a challenge between states, and how the pot is
// redistributed when it settles, is declined, or expires.
//
// The functions here are pure. Persisting the outcome, including the
// matching point entries, is the caller's job and must happen atomically
// with the status change.
package challenge

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jakesanders16/mini-youtube/internal/model"
	"github.com/jakesanders16/mini-youtube/internal/pkg/apperr"
)

// DefaultStake is the per-participant stake; the pot is twice this.
const DefaultStake int64 = 25

// MaxDurationDays bounds how long a challenge may run.
const MaxDurationDays = 90

// Side identifies which participant an actor is.
type Side int

const (
	SideNone Side = iota
	SideChallenger
	SideOpponent
)

// Credit is one payout from the pot to a participant.
type Credit struct {
	UserID int64
	Amount int64
	Kind   model.EntryKind
}

// Outcome is the result of a transition that releases pot points.
type Outcome struct {
	Status   model.ChallengeStatus
	WinnerID *int64
	Credits  []Credit
}

// Total returns the sum of all credits in the outcome.
func (o Outcome) Total() int64 {
	var total int64
	for _, c := range o.Credits {
		total += c.Amount
	}
	return total
}

// Proposal is the input to create a challenge.
type Proposal struct {
	ChallengerID int64
	OpponentID   int64
	LiftType     string
	DurationDays int
}

// Validate checks that all required fields of a proposal are present.
func (p Proposal) Validate() error {
	switch {
	case p.OpponentID == 0:
		return apperr.New(apperr.ErrInvalidArgument, "opponent is required")
	case strings.TrimSpace(p.LiftType) == "":
		return apperr.New(apperr.ErrInvalidArgument, "lift type is required")
	case p.DurationDays <= 0:
		return apperr.New(apperr.ErrInvalidArgument, "duration must be at least one day")
	case p.DurationDays > MaxDurationDays:
		return apperr.Newf(apperr.ErrInvalidArgument, "duration cannot exceed %d days", MaxDurationDays)
	case p.ChallengerID == p.OpponentID:
		return apperr.New(apperr.ErrInvalidArgument, "cannot challenge yourself")
	}
	return nil
}

// New builds a pending challenge from a validated proposal.
func New(p Proposal, stake int64, now time.Time) *model.Challenge {
	return &model.Challenge{
		ChallengerID: p.ChallengerID,
		OpponentID:   p.OpponentID,
		LiftType:     strings.TrimSpace(p.LiftType),
		DurationDays: p.DurationDays,
		Stake:        stake,
		Pot:          2 * stake,
		Status:       model.StatusPending,
		ExpiresAt:    now.Add(time.Duration(p.DurationDays) * 24 * time.Hour),
		CreatedAt:    now,
	}
}

// SideOf returns which side of the challenge userID is on.
func SideOf(c *model.Challenge, userID int64) Side {
	switch userID {
	case c.ChallengerID:
		return SideChallenger
	case c.OpponentID:
		return SideOpponent
	}
	return SideNone
}

// Overdue reports whether a non-terminal challenge has passed its deadline.
func Overdue(c *model.Challenge, now time.Time) bool {
	return !c.Status.Terminal() && now.After(c.ExpiresAt)
}

// CanRespond checks that actorID may accept or decline c.
func CanRespond(c *model.Challenge, actorID int64) error {
	if actorID != c.OpponentID {
		return apperr.New(apperr.ErrInvalidState, "only the challenged athlete can respond")
	}
	if c.Status != model.StatusPending {
		return apperr.ErrAlreadyResolved
	}
	return nil
}

// CanSubmit checks that actorID may attach a video to c.
func CanSubmit(c *model.Challenge, actorID int64) error {
	if SideOf(c, actorID) == SideNone {
		return apperr.New(apperr.ErrInvalidState, "not a participant in this challenge")
	}
	switch {
	case c.Status == model.StatusPending:
		return apperr.New(apperr.ErrInvalidState, "challenge has not been accepted yet")
	case c.Status.Terminal():
		return apperr.ErrAlreadyResolved
	}
	return nil
}

// Attach records videoID on the actor's side. A side may replace its video
// until the other side submits, at which point the challenge settles.
func Attach(c *model.Challenge, actorID, videoID int64) {
	id := videoID
	switch SideOf(c, actorID) {
	case SideChallenger:
		c.ChallengerVideoID = &id
	case SideOpponent:
		c.OpponentVideoID = &id
	}
}

// Decline refunds the challenger's stake. The opponent never staked.
func Decline(c *model.Challenge) Outcome {
	return Outcome{
		Status:  model.StatusDeclined,
		Credits: []Credit{{UserID: c.ChallengerID, Amount: c.Stake, Kind: model.EntryRefund}},
	}
}

// Settle compares the submitted weights. Equal weights split the pot back
// to both sides; otherwise the heavier lift takes the whole pot, paid as its
// own stake back plus the opponent's stake as winnings.
func Settle(c *model.Challenge, challengerWeight, opponentWeight decimal.Decimal) Outcome {
	cmp := challengerWeight.Cmp(opponentWeight)
	if cmp == 0 {
		return Outcome{
			Status: model.StatusTie,
			Credits: []Credit{
				{UserID: c.ChallengerID, Amount: c.Stake, Kind: model.EntryRefund},
				{UserID: c.OpponentID, Amount: c.Stake, Kind: model.EntryRefund},
			},
		}
	}

	winner := c.ChallengerID
	if cmp < 0 {
		winner = c.OpponentID
	}
	return Outcome{
		Status:   model.StatusComplete,
		WinnerID: &winner,
		Credits: []Credit{
			{UserID: winner, Amount: c.Stake, Kind: model.EntryRefund},
			{UserID: winner, Amount: c.Pot - c.Stake, Kind: model.EntryWinnings},
		},
	}
}

// Expire refunds every stake actually held by an overdue challenge.
func Expire(c *model.Challenge) Outcome {
	out := Outcome{
		Status:  model.StatusExpired,
		Credits: []Credit{{UserID: c.ChallengerID, Amount: c.Stake, Kind: model.EntryRefund}},
	}
	if c.Status == model.StatusActive {
		out.Credits = append(out.Credits, Credit{UserID: c.OpponentID, Amount: c.Stake, Kind: model.EntryRefund})
	}
	return out
}

// Escrowed returns the points currently held in the pot for a challenge in
// the given status.
func Escrowed(status model.ChallengeStatus, stake int64) int64 {
	switch status {
	case model.StatusPending:
		return stake
	case model.StatusActive:
		return 2 * stake
	}
	return 0
}

// WeightOrZero treats a missing weight as zero for comparison.
func WeightOrZero(w decimal.NullDecimal) decimal.Decimal {
	if !w.Valid {
		return decimal.Zero
	}
	return w.Decimal
}
