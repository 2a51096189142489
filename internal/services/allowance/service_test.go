package allowance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Wewst/coffe-pass/internal/domain/model"
)

type stubPeriodStore struct {
	remaining int
	keys      []string
}

func (s *stubPeriodStore) GetOrCreatePeriod(_ context.Context, userID int64, monthKey string) (model.AllowancePeriod, error) {
	s.keys = append(s.keys, monthKey)
	return model.AllowancePeriod{UserID: userID, MonthKey: monthKey, Remaining: s.remaining}, nil
}

type stubPaymentReader struct {
	purchased bool
	since     time.Time
}

func (s *stubPaymentReader) HasCompletedSince(_ context.Context, _ int64, since time.Time) (bool, error) {
	s.since = since
	return s.purchased, nil
}

func TestCurrentUsesUTCMonthKey(t *testing.T) {
	periods := &stubPeriodStore{remaining: 5}
	payments := &stubPaymentReader{purchased: true}
	svc := NewService(periods, payments)

	// Local time is already April, UTC still March.
	loc := time.FixedZone("UTC+6", 6*3600)
	svc.now = func() time.Time { return time.Date(2025, time.April, 1, 3, 0, 0, 0, loc) }

	snap, err := svc.Current(context.Background(), 7)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if snap.MonthKey != "2025-03" {
		t.Fatalf("month key = %q, want 2025-03", snap.MonthKey)
	}
	if snap.Remaining != 5 || !snap.Purchased {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	wantSince := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	if !payments.since.Equal(wantSince) {
		t.Fatalf("purchased window starts %v, want %v", payments.since, wantSince)
	}
}

func TestCurrentNewMonthStartsEmpty(t *testing.T) {
	periods := &stubPeriodStore{remaining: 0}
	payments := &stubPaymentReader{purchased: false}
	svc := NewService(periods, payments)
	svc.now = func() time.Time { return time.Date(2025, time.April, 2, 9, 0, 0, 0, time.UTC) }

	snap, err := svc.Current(context.Background(), 7)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if snap.Remaining != 0 || snap.Purchased {
		t.Fatalf("fresh month snapshot = %+v, want empty and unpurchased", snap)
	}
	if len(periods.keys) != 1 || periods.keys[0] != "2025-04" {
		t.Fatalf("period keys = %v, want [2025-04]", periods.keys)
	}
}

func TestCurrentValidatesUser(t *testing.T) {
	svc := NewService(&stubPeriodStore{}, &stubPaymentReader{})
	if _, err := svc.Current(context.Background(), 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}
