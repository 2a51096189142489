package allowance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Wewst/coffe-pass/internal/domain/model"
	"github.com/Wewst/coffe-pass/internal/domain/rules"
)

var ErrValidation = errors.New("validation error")

type PeriodStore interface {
	GetOrCreatePeriod(ctx context.Context, userID int64, monthKey string) (model.AllowancePeriod, error)
}

type PaymentReader interface {
	HasCompletedSince(ctx context.Context, userID int64, since time.Time) (bool, error)
}

type Service struct {
	periods  PeriodStore
	payments PaymentReader
	now      func() time.Time
}

// Snapshot is the per-month ledger view the state endpoint renders.
type Snapshot struct {
	UserID    int64
	MonthKey  string
	Remaining int
	Purchased bool
	Period    model.AllowancePeriod
}

func NewService(periods PeriodStore, payments PaymentReader) *Service {
	return &Service{
		periods:  periods,
		payments: payments,
		now:      time.Now,
	}
}

// Current returns the calendar-month ledger for the user, creating the row at
// zero on first access. Purchased means at least one completed payment landed
// this month; leftover cups from earlier months never roll forward.
func (s *Service) Current(ctx context.Context, userID int64) (Snapshot, error) {
	if userID <= 0 {
		return Snapshot{}, ErrValidation
	}
	if s.periods == nil {
		return Snapshot{}, fmt.Errorf("period store is nil")
	}

	now := s.now().UTC()
	monthKey := rules.MonthKey(now)

	period, err := s.periods.GetOrCreatePeriod(ctx, userID, monthKey)
	if err != nil {
		return Snapshot{}, err
	}

	purchased := false
	if s.payments != nil {
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		purchased, err = s.payments.HasCompletedSince(ctx, userID, monthStart)
		if err != nil {
			return Snapshot{}, err
		}
	}

	return Snapshot{
		UserID:    userID,
		MonthKey:  monthKey,
		Remaining: period.Remaining,
		Purchased: purchased,
		Period:    period,
	}, nil
}
