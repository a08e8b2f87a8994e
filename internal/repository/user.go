package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakesanders16/mini-youtube/internal/model"
	"github.com/jakesanders16/mini-youtube/internal/pkg/db"
)

const userColumns = `id, username, gym_id, gender, telegram_id, earned_points, challenge_points,
	balance, balance_alltime, earned_high_water, created_at, updated_at`

// UserRepository handles user data persistence.
type UserRepository struct {
	db db.DBTX
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(q db.DBTX) *UserRepository {
	return &UserRepository{db: q}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.GymID,
		&u.Gender,
		&u.TelegramID,
		&u.EarnedPoints,
		&u.ChallengePoints,
		&u.Balance,
		&u.BalanceAllTime,
		&u.EarnedHighWater,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// NewUser holds the attributes of a user being registered.
type NewUser struct {
	Username   string
	GymID      *int64
	Gender     *string
	TelegramID *int64
}

// Create inserts a user with zero balances.
// Returns a Conflict error if the username or Telegram ID is taken.
func (r *UserRepository) Create(ctx context.Context, nu NewUser) (*model.User, error) {
	query := `
		INSERT INTO users (username, gym_id, gender, telegram_id)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRow(ctx, query, nu.Username, nu.GymID, nu.Gender, nu.TelegramID))
	if err != nil {
		return nil, mapError(err, ErrGymNotFound, "create user")
	}
	return u, nil
}

// GetByID retrieves a user by ID.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, ErrUserNotFound, "get user")
	}
	return u, nil
}

// GetByUsername retrieves a user by username, case-insensitively.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(username) = LOWER($1)`

	u, err := scanUser(r.db.QueryRow(ctx, query, username))
	if err != nil {
		return nil, mapError(err, ErrUserNotFound, "get user by username")
	}
	return u, nil
}

// GetByTelegramID retrieves the user linked to a Telegram account.
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`

	u, err := scanUser(r.db.QueryRow(ctx, query, telegramID))
	if err != nil {
		return nil, mapError(err, ErrUserNotFound, "get user by telegram id")
	}
	return u, nil
}

// LinkTelegram attaches a Telegram account to a user.
func (r *UserRepository) LinkTelegram(ctx context.Context, userID, telegramID int64) error {
	const query = `UPDATE users SET telegram_id = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, userID, telegramID)
	if err != nil {
		return mapError(err, ErrUserNotFound, "link telegram account")
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// LockForUpdate row-locks the given users in ascending id order and
// returns how many of them exist.
func (r *UserRepository) LockForUpdate(ctx context.Context, ids ...int64) (int, error) {
	const query = `SELECT id FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to lock users: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		n++
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to lock users: %w", err)
	}
	return n, nil
}
