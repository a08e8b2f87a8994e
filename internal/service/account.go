package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jakesanders16/mini-youtube/internal/model"
	"github.com/jakesanders16/mini-youtube/internal/pkg/apperr"
	"github.com/jakesanders16/mini-youtube/internal/repository"
)

// AccountService resolves and registers athletes.
type AccountService struct {
	users *repository.UserRepository
	gyms  *repository.GymRepository
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(database Database) *AccountService {
	return &AccountService{
		users: repository.NewUserRepository(database),
		gyms:  repository.NewGymRepository(database),
	}
}

// Registration is the validated input of Register.
type Registration struct {
	Username   string  `validate:"required,min=2,max=64"`
	GymID      *int64  `validate:"omitempty,gt=0"`
	Gender     *string `validate:"omitempty,oneof=male female other"`
	TelegramID *int64  `validate:"omitempty,gt=0"`
}

// Register creates an athlete account with empty balances.
func (s *AccountService) Register(ctx context.Context, r Registration) (*model.User, error) {
	r.Username = strings.TrimSpace(r.Username)
	if err := validate.Struct(r); err != nil {
		return nil, apperr.Newf(apperr.ErrInvalidArgument, "invalid registration: %v", err)
	}
	return s.users.Create(ctx, repository.NewUser{
		Username:   r.Username,
		GymID:      r.GymID,
		Gender:     r.Gender,
		TelegramID: r.TelegramID,
	})
}

// EnsureTelegramUser returns the athlete linked to a Telegram account,
// registering one on first contact. A taken username falls back to tg<id>.
// Returns the user and whether it was newly created.
func (s *AccountService) EnsureTelegramUser(ctx context.Context, telegramID int64, username string) (*model.User, bool, error) {
	user, err := s.users.GetByTelegramID(ctx, telegramID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, err
	}

	name := strings.TrimSpace(username)
	if len(name) < 2 {
		name = fmt.Sprintf("tg%d", telegramID)
	}

	user, err = s.users.Create(ctx, repository.NewUser{Username: name, TelegramID: &telegramID})
	if errors.Is(err, apperr.ErrConflict) {
		// Either the name is taken or another request linked this account first.
		if existing, getErr := s.users.GetByTelegramID(ctx, telegramID); getErr == nil {
			return existing, false, nil
		}
		user, err = s.users.Create(ctx, repository.NewUser{
			Username:   fmt.Sprintf("tg%d", telegramID),
			TelegramID: &telegramID,
		})
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to ensure user: %w", err)
	}

	log.Info().Int64("user_id", user.ID).Int64("telegram_id", telegramID).Msg("Registered Telegram athlete")
	return user, true, nil
}

// GetUser retrieves a user by ID.
func (s *AccountService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

// GetByUsername retrieves a user by username; a leading @ is ignored.
func (s *AccountService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.users.GetByUsername(ctx, strings.TrimPrefix(strings.TrimSpace(username), "@"))
}

// CreateGym registers a gym.
func (s *AccountService) CreateGym(ctx context.Context, name string, city *string) (*model.Gym, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.ErrInvalidArgument, "gym name is required")
	}
	return s.gyms.Create(ctx, name, city)
}

// ListGyms returns all gyms.
func (s *AccountService) ListGyms(ctx context.Context) ([]*model.Gym, error) {
	return s.gyms.List(ctx)
}
