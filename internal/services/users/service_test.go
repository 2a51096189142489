package users

import (
	"context"
	"errors"
	"testing"

	"github.com/Wewst/coffe-pass/internal/domain/enums"
	"github.com/Wewst/coffe-pass/internal/domain/model"
	authsvc "github.com/Wewst/coffe-pass/internal/services/auth"
)

type stubUserStore struct {
	nextID     int64
	byTelegram map[int64]model.User
}

func newStubUserStore() *stubUserStore {
	return &stubUserStore{nextID: 1, byTelegram: make(map[int64]model.User)}
}

func (s *stubUserStore) UpsertByTelegramID(_ context.Context, telegramID int64, firstName, username, languageCode string) (model.User, bool, error) {
	if existing, ok := s.byTelegram[telegramID]; ok {
		if firstName != "" {
			existing.FirstName = firstName
		}
		if username != "" {
			existing.Username = username
		}
		if languageCode != "" {
			existing.LanguageCode = languageCode
		}
		s.byTelegram[telegramID] = existing
		return existing, false, nil
	}

	user := model.User{
		ID:           s.nextID,
		TelegramID:   telegramID,
		FirstName:    firstName,
		Username:     username,
		LanguageCode: languageCode,
		Role:         enums.RoleUser,
	}
	s.nextID++
	s.byTelegram[telegramID] = user
	return user, true, nil
}

func (s *stubUserStore) FindByID(_ context.Context, userID int64) (model.User, error) {
	for _, user := range s.byTelegram {
		if user.ID == userID {
			return user, nil
		}
	}
	return model.User{}, errors.New("not found")
}

type stubPeriodStore struct {
	created map[string]bool
}

func (s *stubPeriodStore) GetOrCreatePeriod(_ context.Context, userID int64, monthKey string) (model.AllowancePeriod, error) {
	if s.created == nil {
		s.created = make(map[string]bool)
	}
	s.created[monthKey] = true
	return model.AllowancePeriod{UserID: userID, MonthKey: monthKey}, nil
}

func TestResolveOrCreateNewUser(t *testing.T) {
	store := newStubUserStore()
	periods := &stubPeriodStore{}
	svc := NewService(store, periods)

	user, err := svc.ResolveOrCreate(context.Background(), authsvc.TelegramUser{
		ID:           42,
		FirstName:    "Ada",
		Username:     "ada",
		LanguageCode: "en",
	})
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}
	if user.ID == 0 || user.TelegramID != 42 {
		t.Fatalf("unexpected user: %+v", user)
	}
	if len(periods.created) != 1 {
		t.Fatalf("periods created = %d, want 1 for a new user", len(periods.created))
	}
}

func TestResolveOrCreateMergesOnRepeatLogin(t *testing.T) {
	store := newStubUserStore()
	periods := &stubPeriodStore{}
	svc := NewService(store, periods)

	first, err := svc.ResolveOrCreate(context.Background(), authsvc.TelegramUser{ID: 42, FirstName: "Ada", Username: "ada"})
	if err != nil {
		t.Fatalf("first login: %v", err)
	}

	// Repeat login with a changed display name keeps the same internal id.
	second, err := svc.ResolveOrCreate(context.Background(), authsvc.TelegramUser{ID: 42, FirstName: "Adeline"})
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("user id changed across logins: %d != %d", second.ID, first.ID)
	}
	if second.FirstName != "Adeline" {
		t.Fatalf("first name = %q, want Adeline", second.FirstName)
	}
	if second.Username != "ada" {
		t.Fatalf("username = %q, empty fields must not clobber", second.Username)
	}
	if len(periods.created) != 1 {
		t.Fatalf("periods created = %d, repeat login must not re-init", len(periods.created))
	}
}

func TestResolveOrCreateValidates(t *testing.T) {
	svc := NewService(newStubUserStore(), &stubPeriodStore{})

	if _, err := svc.ResolveOrCreate(context.Background(), authsvc.TelegramUser{ID: 0, FirstName: "X"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("zero id: err = %v, want ErrValidation", err)
	}
	if _, err := svc.ResolveOrCreate(context.Background(), authsvc.TelegramUser{ID: 42, FirstName: "  "}); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank name: err = %v, want ErrValidation", err)
	}
}
