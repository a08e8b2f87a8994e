package repository

import "github.com/jakesanders16/mini-youtube/internal/pkg/db"

// Store bundles every repository over one connection, pool or transaction.
type Store struct {
	Users         *UserRepository
	Gyms          *GymRepository
	Videos        *VideoRepository
	Reactions     *ReactionRepository
	Comments      *CommentRepository
	Ledger        *LedgerRepository
	Challenges    *ChallengeRepository
	PersonalBests *PersonalBestRepository
	Leaderboard   *LeaderboardRepository
}

// NewStore creates a Store whose repositories all run on q.
func NewStore(q db.DBTX) *Store {
	return &Store{
		Users:         NewUserRepository(q),
		Gyms:          NewGymRepository(q),
		Videos:        NewVideoRepository(q),
		Reactions:     NewReactionRepository(q),
		Comments:      NewCommentRepository(q),
		Ledger:        NewLedgerRepository(q),
		Challenges:    NewChallengeRepository(q),
		PersonalBests: NewPersonalBestRepository(q),
		Leaderboard:   NewLeaderboardRepository(q),
	}
}
