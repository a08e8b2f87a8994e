package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/jakesanders16/mini-youtube/internal/metrics"
	"github.com/jakesanders16/mini-youtube/internal/model"
	"github.com/jakesanders16/mini-youtube/internal/pkg/apperr"
	"github.com/jakesanders16/mini-youtube/internal/pkg/db"
	"github.com/jakesanders16/mini-youtube/internal/repository"
	"github.com/jakesanders16/mini-youtube/internal/scoring"
)

// MaxAnalyticsDays bounds the window of ReactionsByDay.
const MaxAnalyticsDays = 90

// MaxComments bounds one page of Comments.
const MaxComments = 100

// EngagementService records reactions, comments and views. Each event
// updates the video's counters and score and the owner's points in the
// same transaction.
type EngagementService struct {
	db     Database
	ledger *LedgerService
	cache  Invalidator
	clock  Clock
}

// NewEngagementService creates a new EngagementService instance.
func NewEngagementService(database Database, ledger *LedgerService, cache Invalidator) *EngagementService {
	if cache == nil {
		cache = noopCache{}
	}
	return &EngagementService{db: database, ledger: ledger, cache: cache}
}

// WithClock overrides the time source.
func (s *EngagementService) WithClock(c Clock) *EngagementService {
	s.clock = c
	return s
}

// rescore recomputes and stores the score of a freshly updated video.
func (s *EngagementService) rescore(ctx context.Context, st *repository.Store, v *model.Video) error {
	v.Score = scoring.VideoScore(v, s.clock.now())
	return st.Videos.SetScore(ctx, v.ID, v.Score)
}

// RecordReaction toggles the voter's reaction on a video:
//   - no reaction yet: it is added and the count goes up;
//   - same emoji again: it is removed and the count goes down;
//   - another emoji: it is replaced and the count is unchanged.
func (s *EngagementService) RecordReaction(ctx context.Context, videoID int64, voter model.VoterKey, emoji model.Emoji, actingUserID *int64) (*model.ReactionResult, error) {
	if voter.IsZero() {
		return nil, apperr.New(apperr.ErrInvalidArgument, "voter identity is required")
	}
	if !emoji.Valid() {
		return nil, apperr.Newf(apperr.ErrInvalidArgument, "unsupported reaction %q", emoji)
	}

	var (
		result  model.ReactionResult
		outcome repository.ToggleOutcome
	)
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		st := repository.NewStore(tx)

		if _, err := st.Videos.LockForUpdate(ctx, videoID); err != nil {
			return err
		}

		var err error
		outcome, err = st.Reactions.Toggle(ctx, videoID, voter, emoji, actingUserID)
		if err != nil {
			return err
		}

		v, err := st.Videos.AdjustCounters(ctx, videoID, outcome.CountDelta(), 0, 0)
		if err != nil {
			return err
		}
		if err := s.rescore(ctx, st, v); err != nil {
			return err
		}
		if _, err := s.ledger.recompute(ctx, st, v.UserID); err != nil {
			return err
		}

		result.Count = v.ReactionCount
		if outcome != repository.ReactionRemoved {
			e := emoji
			result.VoterEmoji = &e
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx)
	metrics.EngagementEvents.WithLabelValues(reactionKind(outcome)).Inc()
	return &result, nil
}

func reactionKind(o repository.ToggleOutcome) string {
	switch o {
	case repository.ReactionAdded:
		return "reaction_add"
	case repository.ReactionRemoved:
		return "reaction_remove"
	}
	return "reaction_change"
}

// NewComment is the validated input of RecordComment.
type NewComment struct {
	VideoID int64  `validate:"gt=0"`
	UserID  int64  `validate:"gt=0"`
	Text    string `validate:"required,max=2000"`
}

// RecordComment adds an authenticated user's comment to a video.
func (s *EngagementService) RecordComment(ctx context.Context, videoID, userID int64, text string) (*model.Comment, error) {
	in := NewComment{VideoID: videoID, UserID: userID, Text: strings.TrimSpace(text)}
	if err := validate.Struct(in); err != nil {
		return nil, apperr.Newf(apperr.ErrInvalidArgument, "invalid comment: %v", err)
	}

	var comment *model.Comment
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		st := repository.NewStore(tx)

		if _, err := st.Videos.LockForUpdate(ctx, videoID); err != nil {
			return err
		}
		if _, err := st.Users.GetByID(ctx, userID); err != nil {
			return err
		}

		var err error
		comment, err = st.Comments.Create(ctx, videoID, userID, in.Text)
		if err != nil {
			return err
		}

		v, err := st.Videos.AdjustCounters(ctx, videoID, 0, 1, 0)
		if err != nil {
			return err
		}
		if err := s.rescore(ctx, st, v); err != nil {
			return err
		}
		_, err = s.ledger.recompute(ctx, st, v.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx)
	metrics.EngagementEvents.WithLabelValues("comment").Inc()
	return comment, nil
}

// RecordView counts one view. Views never fail the caller; errors are
// logged and counted instead.
func (s *EngagementService) RecordView(ctx context.Context, videoID int64) {
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		st := repository.NewStore(tx)
		v, err := st.Videos.AdjustCounters(ctx, videoID, 0, 0, 1)
		if err != nil {
			return err
		}
		return s.rescore(ctx, st, v)
	})
	if err != nil {
		metrics.ViewFailures.Inc()
		log.Warn().Err(err).Int64("video_id", videoID).Msg("Failed to record view")
		return
	}
	metrics.EngagementEvents.WithLabelValues("view").Inc()
}

// Counters returns the current engagement counters of a video. When voter
// is set, VoterEmoji carries that voter's live reaction, if any.
func (s *EngagementService) Counters(ctx context.Context, videoID int64, voter model.VoterKey) (*model.VideoCounters, error) {
	st := repository.NewStore(s.db)
	v, err := st.Videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	counters := &model.VideoCounters{
		VideoID:       v.ID,
		ReactionCount: v.ReactionCount,
		CommentCount:  v.CommentCount,
		ViewCount:     v.ViewCount,
		Score:         scoring.VideoScore(v, s.clock.now()),
	}
	if voter.IsZero() {
		return counters, nil
	}

	re, err := st.Reactions.Get(ctx, videoID, voter)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		// no live reaction
	case err != nil:
		return nil, err
	default:
		e := re.Emoji
		counters.VoterEmoji = &e
	}
	return counters, nil
}

// Comments returns up to limit comments on a video, oldest first.
func (s *EngagementService) Comments(ctx context.Context, videoID int64, limit int) ([]*model.Comment, error) {
	if limit <= 0 || limit > MaxComments {
		limit = MaxComments
	}
	st := repository.NewStore(s.db)
	if _, err := st.Videos.GetByID(ctx, videoID); err != nil {
		return nil, err
	}
	comments, err := st.Comments.ListByVideo(ctx, videoID, limit)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []*model.Comment{}
	}
	return comments, nil
}

// ReactionsByDay returns the owner's per-day reaction counts for the last
// days days, including today.
func (s *EngagementService) ReactionsByDay(ctx context.Context, videoID, actorID int64, days int) ([]model.DailyCount, error) {
	if days <= 0 || days > MaxAnalyticsDays {
		return nil, apperr.Newf(apperr.ErrInvalidArgument, "days must be between 1 and %d", MaxAnalyticsDays)
	}

	st := repository.NewStore(s.db)
	v, err := st.Videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if v.UserID != actorID {
		return nil, apperr.New(apperr.ErrForbidden, "only the owner can view analytics")
	}

	loc := s.ledger.Location()
	now := s.clock.now().In(loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -(days - 1))
	return st.Reactions.CountByDay(ctx, videoID, start, loc)
}
