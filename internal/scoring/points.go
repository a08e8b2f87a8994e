package scoring

import (
	"math"
	"time"
)

// Point rule constants.
const (
	ReactionsPerPoint = 5
	PointsPerComment  = 2
)

// VideoPoints is the number of points one video earns its owner:
// floor(reactions/5) + 2*comments.
func VideoPoints(reactions, comments int64) int64 {
	return nonNegative(reactions)/ReactionsPerPoint + PointsPerComment*nonNegative(comments)
}

// EngagementCounters is the subset of a video needed to derive points.
type EngagementCounters struct {
	Reactions int64
	Comments  int64
}

// EarnedPoints sums VideoPoints over a user's videos.
func EarnedPoints(videos []EngagementCounters) int64 {
	var total int64
	for _, v := range videos {
		total += VideoPoints(v.Reactions, v.Comments)
	}
	return total
}

// Recompute describes how a fresh earned total moves the stored balances.
type Recompute struct {
	Earned        int64 // new earned_points
	Delta         int64 // Earned minus the previous earned_points
	AllTimeCredit int64 // amount added to balance_alltime, never negative
	HighWater     int64 // new earned_high_water
}

// PlanRecompute derives the balance movements for a recompute. All-time is
// only credited when earned points climb above the highest level already
// credited, so toggling a reaction off and on cannot inflate it.
func PlanRecompute(prevEarned, highWater, earned int64) Recompute {
	r := Recompute{
		Earned:    earned,
		Delta:     earned - prevEarned,
		HighWater: highWater,
	}
	if earned > highWater {
		r.AllTimeCredit = earned - highWater
		r.HighWater = earned
	}
	return r
}

// MonthKey returns the calendar-month epoch key ("2006-01") of t in loc.
func MonthKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01")
}

// MonthStart returns the first instant of t's calendar month in loc.
func MonthStart(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
}

// DaysUntilReset returns the whole days, rounded up, until the monthly epoch rolls over.
func DaysUntilReset(now time.Time, loc *time.Location) int {
	next := MonthStart(now, loc).AddDate(0, 1, 0)
	return int(math.Ceil(next.Sub(now).Hours() / 24))
}
