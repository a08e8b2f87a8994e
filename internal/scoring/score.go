// Package scoring holds the pure ranking and point rules of the feed:
// the decayed video score, feed and trending orderings, and the rule that
// converts engagement counters into earned points.
package scoring

import (
	"math"
	"slices"
	"time"

	"github.com/jakesanders16/mini-youtube/internal/model"
)

// Score weights. Comments are the strongest signal, views are log-dampened.
const (
	CommentWeight  = 3.0
	ReactionWeight = 1.0
	ViewWeight     = 0.5

	AgeOffsetHours = 2.0
	DecayExponent  = 0.8
)

// Score computes the decayed ranking score of a video:
//
//	(comments*3 + reactions*1 + ln(views+1)*0.5) / (ageHours + 2)^0.8
//
// Negative counters and negative ages are treated as zero.
func Score(reactions, comments, views int64, ageHours float64) float64 {
	if ageHours < 0 {
		ageHours = 0
	}
	engagement := float64(nonNegative(comments))*CommentWeight +
		float64(nonNegative(reactions))*ReactionWeight +
		math.Log(float64(nonNegative(views))+1)*ViewWeight
	return engagement / math.Pow(ageHours+AgeOffsetHours, DecayExponent)
}

// AgeHours returns the age of something created at createdAt, in hours.
func AgeHours(createdAt, now time.Time) float64 {
	return now.Sub(createdAt).Hours()
}

// VideoScore computes the score of a video at the given instant.
func VideoScore(v *model.Video, now time.Time) float64 {
	return Score(v.ReactionCount, v.CommentCount, v.ViewCount, AgeHours(v.CreatedAt, now))
}

// CompareFeed orders videos for the main feed: score descending, newest first on ties.
func CompareFeed(a, b *model.Video) int {
	if a.Score != b.Score {
		if a.Score > b.Score {
			return -1
		}
		return 1
	}
	return b.CreatedAt.Compare(a.CreatedAt)
}

// CompareTrending orders videos for the trending view: raw comment count
// first, then score, then recency.
func CompareTrending(a, b *model.Video) int {
	if a.CommentCount != b.CommentCount {
		if a.CommentCount > b.CommentCount {
			return -1
		}
		return 1
	}
	return CompareFeed(a, b)
}

// SortFeed sorts videos in place in feed order.
func SortFeed(videos []*model.Video) {
	slices.SortStableFunc(videos, CompareFeed)
}

// SortTrending sorts videos in place in trending order.
func SortTrending(videos []*model.Video) {
	slices.SortStableFunc(videos, CompareTrending)
}

func nonNegative(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
