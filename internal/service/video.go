package service

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/jakesanders16/mini-youtube/internal/model"
	"github.com/jakesanders16/mini-youtube/internal/pkg/apperr"
	"github.com/jakesanders16/mini-youtube/internal/pkg/db"
	"github.com/jakesanders16/mini-youtube/internal/repository"
	"github.com/jakesanders16/mini-youtube/internal/scoring"
)

// Feed paging limits.
const (
	DefaultFeedLimit = 20
	MaxFeedLimit     = 100
)

// NewVideo is the metadata the media pipeline hands over once an upload
// is stored. Weight is authoritative and kept as given.
type NewVideo struct {
	UserID   int64               `validate:"gt=0"`
	Title    string              `validate:"required,max=200"`
	LiftType *string             `validate:"omitempty,min=1,max=64"`
	Weight   decimal.NullDecimal `validate:"-"`
}

// FeedQuery pages and filters the main feed.
type FeedQuery struct {
	UserID   *int64
	LiftType *string
	Limit    int
	Offset   int
}

// VideoService manages the video catalogue and the feed views.
type VideoService struct {
	db     Database
	ledger *LedgerService
	cache  Invalidator
	clock  Clock
}

// NewVideoService creates a new VideoService instance.
func NewVideoService(database Database, ledger *LedgerService, cache Invalidator) *VideoService {
	if cache == nil {
		cache = noopCache{}
	}
	return &VideoService{db: database, ledger: ledger, cache: cache}
}

// WithClock overrides the time source.
func (s *VideoService) WithClock(c Clock) *VideoService {
	s.clock = c
	return s
}

// RegisterVideo stores a new video and raises the owner's personal best
// for the lift when the weight beats it.
func (s *VideoService) RegisterVideo(ctx context.Context, in NewVideo) (*model.Video, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.LiftType != nil {
		lt := strings.ToLower(strings.TrimSpace(*in.LiftType))
		in.LiftType = &lt
	}
	if err := validate.Struct(in); err != nil {
		return nil, apperr.Newf(apperr.ErrInvalidArgument, "invalid video: %v", err)
	}
	if in.Weight.Valid && in.Weight.Decimal.IsNegative() {
		return nil, apperr.New(apperr.ErrInvalidArgument, "weight cannot be negative")
	}

	var video *model.Video
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		st := repository.NewStore(tx)

		var err error
		video, err = st.Videos.Create(ctx, in.UserID, in.Title, in.LiftType, in.Weight)
		if err != nil {
			return err
		}

		if in.LiftType == nil || !in.Weight.Valid || !in.Weight.Decimal.IsPositive() {
			return nil
		}
		raised, err := st.PersonalBests.Raise(ctx, in.UserID, *in.LiftType, in.Weight.Decimal, &video.ID)
		if err != nil {
			return err
		}
		if raised {
			log.Info().
				Int64("user_id", in.UserID).
				Str("lift_type", *in.LiftType).
				Str("weight", in.Weight.Decimal.String()).
				Msg("New personal best")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx)
	return video, nil
}

// GetVideo returns a video with its score decayed to now.
func (s *VideoService) GetVideo(ctx context.Context, id int64) (*model.Video, error) {
	v, err := repository.NewVideoRepository(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v.Score = scoring.VideoScore(v, s.clock.now())
	return v, nil
}

// DeleteVideo removes the actor's own video, its reactions and comments,
// and recomputes the owner's points from what is left.
func (s *VideoService) DeleteVideo(ctx context.Context, videoID, actorID int64) error {
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		st := repository.NewStore(tx)

		v, err := st.Videos.LockForUpdate(ctx, videoID)
		if err != nil {
			return err
		}
		if v.UserID != actorID {
			return apperr.New(apperr.ErrForbidden, "not the owner of this video")
		}
		if err := st.Videos.Delete(ctx, videoID); err != nil {
			return err
		}
		_, err = s.ledger.recompute(ctx, st, v.UserID)
		return err
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(ctx)
	log.Info().Int64("video_id", videoID).Int64("user_id", actorID).Msg("Video deleted")
	return nil
}

func pageLimit(limit int) int {
	if limit <= 0 {
		return DefaultFeedLimit
	}
	return min(limit, MaxFeedLimit)
}

// Feed returns a page of videos by decayed score, newest first on ties.
func (s *VideoService) Feed(ctx context.Context, q FeedQuery) ([]*model.Video, error) {
	videos, err := repository.NewVideoRepository(s.db).ListFeed(ctx, repository.FeedFilter{
		UserID:   q.UserID,
		LiftType: q.LiftType,
		Limit:    pageLimit(q.Limit),
		Offset:   max(q.Offset, 0),
	})
	if err != nil {
		return nil, err
	}
	s.RefreshScores(ctx, videos)
	scoring.SortFeed(videos)
	return videos, nil
}

// Trending returns this month's videos with the most comments.
func (s *VideoService) Trending(ctx context.Context, limit int) ([]*model.Video, error) {
	since := scoring.MonthStart(s.clock.now(), s.ledger.Location())
	videos, err := repository.NewVideoRepository(s.db).ListTrending(ctx, since, pageLimit(limit))
	if err != nil {
		return nil, err
	}
	s.RefreshScores(ctx, videos)
	scoring.SortTrending(videos)
	return videos, nil
}

// RefreshScores decays the scores of videos to now and stores them, so
// videos nobody interacts with still sink. Storage errors are logged only.
func (s *VideoService) RefreshScores(ctx context.Context, videos []*model.Video) {
	now := s.clock.now()
	for _, v := range videos {
		v.Score = scoring.VideoScore(v, now)
	}
	if err := repository.NewVideoRepository(s.db).SetScores(ctx, videos); err != nil {
		log.Warn().Err(err).Int("videos", len(videos)).Msg("Failed to store refreshed scores")
	}
}

// PersonalBests returns a user's best lifts.
func (s *VideoService) PersonalBests(ctx context.Context, userID int64) ([]*model.PersonalBest, error) {
	if _, err := repository.NewUserRepository(s.db).GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return repository.NewPersonalBestRepository(s.db).ListByUser(ctx, userID)
}

// ManualBest is the validated input of SetPersonalBest.
type ManualBest struct {
	UserID   int64  `validate:"gt=0"`
	LiftType string `validate:"required,max=64"`
	VideoID  *int64 `validate:"omitempty,gt=0"`
}

// SetPersonalBest overwrites the user's best for a lift, even with a
// lighter weight. A referenced video must belong to the user.
func (s *VideoService) SetPersonalBest(ctx context.Context, userID int64, liftType string, weight decimal.Decimal, videoID *int64) (*model.PersonalBest, error) {
	in := ManualBest{UserID: userID, LiftType: strings.ToLower(strings.TrimSpace(liftType)), VideoID: videoID}
	if err := validate.Struct(in); err != nil {
		return nil, apperr.Newf(apperr.ErrInvalidArgument, "invalid personal best: %v", err)
	}
	if !weight.IsPositive() {
		return nil, apperr.New(apperr.ErrInvalidArgument, "weight must be positive")
	}

	var pb *model.PersonalBest
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		st := repository.NewStore(tx)

		if _, err := st.Users.GetByID(ctx, userID); err != nil {
			return err
		}
		if videoID != nil {
			v, err := st.Videos.GetByID(ctx, *videoID)
			if err != nil {
				return err
			}
			if v.UserID != userID {
				return apperr.New(apperr.ErrForbidden, "not the owner of this video")
			}
		}

		var err error
		pb, err = st.PersonalBests.Set(ctx, userID, in.LiftType, weight, videoID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx)
	log.Info().
		Int64("user_id", userID).
		Str("lift_type", in.LiftType).
		Str("weight", weight.String()).
		Msg("Personal best set")
	return pb, nil
}
