package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Wewst/coffe-pass/internal/domain/model"
	"github.com/Wewst/coffe-pass/internal/domain/rules"
	authsvc "github.com/Wewst/coffe-pass/internal/services/auth"
)

var ErrValidation = errors.New("validation error")

type UserStore interface {
	UpsertByTelegramID(ctx context.Context, telegramID int64, firstName, username, languageCode string) (model.User, bool, error)
	FindByID(ctx context.Context, userID int64) (model.User, error)
}

type PeriodStore interface {
	GetOrCreatePeriod(ctx context.Context, userID int64, monthKey string) (model.AllowancePeriod, error)
}

type Service struct {
	users   UserStore
	periods PeriodStore
	now     func() time.Time
}

func NewService(users UserStore, periods PeriodStore) *Service {
	return &Service{
		users:   users,
		periods: periods,
		now:     time.Now,
	}
}

// ResolveOrCreate finds or creates the user behind a verified Telegram
// identity. Display fields merge on repeat logins; a brand-new user also gets
// the current month's allowance row at zero so the state endpoint always has
// a row to read.
func (s *Service) ResolveOrCreate(ctx context.Context, tgUser authsvc.TelegramUser) (model.User, error) {
	if s.users == nil {
		return model.User{}, fmt.Errorf("user store is nil")
	}
	if tgUser.ID <= 0 || strings.TrimSpace(tgUser.FirstName) == "" {
		return model.User{}, ErrValidation
	}

	user, created, err := s.users.UpsertByTelegramID(ctx, tgUser.ID, tgUser.FirstName, tgUser.Username, tgUser.LanguageCode)
	if err != nil {
		return model.User{}, err
	}

	if created && s.periods != nil {
		monthKey := rules.MonthKey(s.now())
		if _, err := s.periods.GetOrCreatePeriod(ctx, user.ID, monthKey); err != nil {
			return model.User{}, fmt.Errorf("init allowance period for new user: %w", err)
		}
	}

	return user, nil
}

func (s *Service) Get(ctx context.Context, userID int64) (model.User, error) {
	if s.users == nil {
		return model.User{}, fmt.Errorf("user store is nil")
	}
	if userID <= 0 {
		return model.User{}, ErrValidation
	}
	return s.users.FindByID(ctx, userID)
}
