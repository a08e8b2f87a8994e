package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/jakesanders16/mini-youtube/internal/model"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		reactions int64
		comments  int64
		views     int64
		ageHours  float64
		expected  float64
	}{
		{"no engagement", 0, 0, 0, 0, 0},
		{"one reaction brand new", 1, 0, 0, 0, 1 / math.Pow(2, 0.8)},
		{"one comment brand new", 0, 1, 0, 0, 3 / math.Pow(2, 0.8)},
		{"views are log dampened", 0, 0, 99, 0, math.Log(100) * 0.5 / math.Pow(2, 0.8)},
		{"day old mix", 10, 4, 50, 24, (12 + 10 + math.Log(51)*0.5) / math.Pow(26, 0.8)},
		{"negative age clamps", 1, 0, 0, -5, 1 / math.Pow(2, 0.8)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.reactions, tt.comments, tt.views, tt.ageHours)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

// TestScoreDecaysWithAgeProperty checks that, holding counters fixed,
// an older video always scores strictly lower.
func TestScoreDecaysWithAgeProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reactions := rapid.Int64Range(1, 100000).Draw(t, "reactions")
		comments := rapid.Int64Range(0, 100000).Draw(t, "comments")
		views := rapid.Int64Range(0, 10000000).Draw(t, "views")
		age := rapid.Float64Range(0, 24*365*5).Draw(t, "age")
		older := age + rapid.Float64Range(0.01, 24*365).Draw(t, "extraAge")

		young := Score(reactions, comments, views, age)
		old := Score(reactions, comments, views, older)
		if !(old < young) {
			t.Fatalf("score did not decay: age %.3f -> %f, age %.3f -> %f", age, young, older, old)
		}
	})
}

// TestCommentsOutweighReactionsProperty checks the relative signal strength.
func TestCommentsOutweighReactionsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.Int64Range(1, 10000).Draw(t, "n")
		age := rapid.Float64Range(0, 1000).Draw(t, "age")

		if Score(0, n, 0, age) <= Score(n, 0, 0, age) {
			t.Fatalf("%d comments should outrank %d reactions", n, n)
		}
	})
}

func TestSortFeed(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	videos := []*model.Video{
		{ID: 1, Score: 1.5, CreatedAt: now.Add(-3 * time.Hour)},
		{ID: 2, Score: 4.0, CreatedAt: now.Add(-5 * time.Hour)},
		{ID: 3, Score: 1.5, CreatedAt: now.Add(-1 * time.Hour)},
		{ID: 4, Score: 0, CreatedAt: now},
	}

	SortFeed(videos)

	assert.Equal(t, []int64{2, 3, 1, 4}, ids(videos))
}

func TestSortTrending(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	videos := []*model.Video{
		{ID: 1, CommentCount: 2, Score: 9, CreatedAt: now},
		{ID: 2, CommentCount: 7, Score: 1, CreatedAt: now},
		{ID: 3, CommentCount: 2, Score: 12, CreatedAt: now},
		{ID: 4, CommentCount: 0, Score: 50, CreatedAt: now},
	}

	SortTrending(videos)

	assert.Equal(t, []int64{2, 3, 1, 4}, ids(videos))
}

func TestVideoScoreUsesAge(t *testing.T) {
	created := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	v := &model.Video{ReactionCount: 5, CommentCount: 1, ViewCount: 0, CreatedAt: created}

	got := VideoScore(v, created.Add(10*time.Hour))

	assert.InDelta(t, Score(5, 1, 0, 10), got, 1e-12)
}

func ids(videos []*model.Video) []int64 {
	out := make([]int64, len(videos))
	for i, v := range videos {
		out[i] = v.ID
	}
	return out
}
