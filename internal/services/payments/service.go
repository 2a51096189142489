package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Wewst/coffe-pass/internal/domain/enums"
	"github.com/Wewst/coffe-pass/internal/domain/model"
	"github.com/Wewst/coffe-pass/internal/domain/rules"
	pgrepo "github.com/Wewst/coffe-pass/internal/repo/postgres"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrCapExceeded     = errors.New("purchase exceeds allowance cap")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrPaymentTerminal = errors.New("payment already settled")
)

type TxRunner interface {
	WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

type PaymentStore interface {
	CreateCompletedTx(ctx context.Context, tx pgx.Tx, userID int64, amount, cups int, method enums.PaymentMethod, externalTxID string) (model.Payment, error)
	CreatePending(ctx context.Context, userID int64, amount, cups int, method enums.PaymentMethod) (model.Payment, error)
	ConfirmTx(ctx context.Context, tx pgx.Tx, paymentID int64, externalTxID string) (model.Payment, bool, error)
	MarkFailed(ctx context.Context, paymentID int64) (model.Payment, error)
	FindByExternalTx(ctx context.Context, externalTxID string) (model.Payment, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]model.Payment, error)
}

type LedgerStore interface {
	GetOrCreatePeriod(ctx context.Context, userID int64, monthKey string) (model.AllowancePeriod, error)
	CreditTx(ctx context.Context, tx pgx.Tx, userID int64, monthKey string, cups, cap int) (int, error)
}

type Config struct {
	// PassPrice is the price of a full pass; top-ups are pro rata.
	PassPrice int
}

type Service struct {
	txs      TxRunner
	payments PaymentStore
	ledger   LedgerStore
	cfg      Config
	now      func() time.Time
}

type Dependencies struct {
	Txs      TxRunner
	Payments PaymentStore
	Ledger   LedgerStore
}

type PurchaseResult struct {
	PaymentID int64
	Amount    int
	Cups      int
	Remaining int
	MonthKey  string
}

type ConfirmResult struct {
	Payment    model.Payment
	Remaining  int
	Idempotent bool
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.PassPrice <= 0 {
		cfg.PassPrice = rules.PassPrice
	}

	return &Service{
		txs:      deps.Txs,
		payments: deps.Payments,
		ledger:   deps.Ledger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Purchase settles a synchronous top-up: one transaction appends a completed
// payment and credits this month's ledger, so the two can never diverge.
func (s *Service) Purchase(ctx context.Context, userID int64, cups int) (PurchaseResult, error) {
	if userID <= 0 || cups <= 0 {
		return PurchaseResult{}, ErrValidation
	}
	if s.txs == nil || s.payments == nil || s.ledger == nil {
		return PurchaseResult{}, fmt.Errorf("payments dependencies are not configured")
	}

	monthKey := rules.MonthKey(s.now())

	period, err := s.ledger.GetOrCreatePeriod(ctx, userID, monthKey)
	if err != nil {
		return PurchaseResult{}, err
	}
	if cups > rules.Headroom(period.Remaining) {
		return PurchaseResult{}, ErrCapExceeded
	}

	amount := rules.AmountForCups(s.cfg.PassPrice, cups)
	externalTxID := "sync-" + uuid.NewString()

	var result PurchaseResult
	err = s.txs.WithTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		payment, err := s.payments.CreateCompletedTx(txCtx, tx, userID, amount, cups, enums.PaymentMethodCard, externalTxID)
		if err != nil {
			return err
		}

		remaining, err := s.ledger.CreditTx(txCtx, tx, userID, monthKey, cups, rules.MaxCups)
		if err != nil {
			return err
		}

		result = PurchaseResult{
			PaymentID: payment.ID,
			Amount:    payment.Amount,
			Cups:      payment.Cups,
			Remaining: remaining,
			MonthKey:  monthKey,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrAllowanceOverCap) {
			return PurchaseResult{}, ErrCapExceeded
		}
		return PurchaseResult{}, err
	}

	return result, nil
}

// CreatePending opens a payment for an asynchronous provider. The ledger is
// untouched until Confirm.
func (s *Service) CreatePending(ctx context.Context, userID int64, cups int, method enums.PaymentMethod) (model.Payment, error) {
	if userID <= 0 || cups <= 0 {
		return model.Payment{}, ErrValidation
	}
	if s.payments == nil || s.ledger == nil {
		return model.Payment{}, fmt.Errorf("payments dependencies are not configured")
	}
	if method == "" {
		method = enums.PaymentMethodExternal
	}

	period, err := s.ledger.GetOrCreatePeriod(ctx, userID, rules.MonthKey(s.now()))
	if err != nil {
		return model.Payment{}, err
	}
	if cups > rules.Headroom(period.Remaining) {
		return model.Payment{}, ErrCapExceeded
	}

	amount := rules.AmountForCups(s.cfg.PassPrice, cups)
	return s.payments.CreatePending(ctx, userID, amount, cups, method)
}

// Confirm transitions a pending payment to completed and credits the ledger
// in the same transaction. Redelivered confirmations (same payment already
// completed, or a known external txn id) are answered idempotently and credit
// nothing.
func (s *Service) Confirm(ctx context.Context, paymentID int64, externalTxID string) (ConfirmResult, error) {
	if s.txs == nil || s.payments == nil || s.ledger == nil {
		return ConfirmResult{}, fmt.Errorf("payments dependencies are not configured")
	}

	externalTxID = strings.TrimSpace(externalTxID)
	if externalTxID == "" {
		return ConfirmResult{}, ErrValidation
	}

	// Redelivery fast path: the provider txn is already attached somewhere.
	if existing, err := s.payments.FindByExternalTx(ctx, externalTxID); err == nil {
		if existing.Status != enums.PaymentStatusCompleted {
			return ConfirmResult{}, ErrPaymentTerminal
		}
		return ConfirmResult{Payment: existing, Idempotent: true}, nil
	} else if !errors.Is(err, pgrepo.ErrPaymentNotFound) {
		return ConfirmResult{}, err
	}

	if paymentID <= 0 {
		return ConfirmResult{}, ErrValidation
	}

	monthKey := rules.MonthKey(s.now())

	var result ConfirmResult
	err := s.txs.WithTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		payment, changed, err := s.payments.ConfirmTx(txCtx, tx, paymentID, externalTxID)
		if err != nil {
			return err
		}

		if !changed {
			if payment.Status != enums.PaymentStatusCompleted {
				return ErrPaymentTerminal
			}
			result = ConfirmResult{Payment: payment, Idempotent: true}
			return nil
		}

		remaining, err := s.ledger.CreditTx(txCtx, tx, payment.UserID, monthKey, payment.Cups, rules.MaxCups)
		if err != nil {
			return err
		}

		result = ConfirmResult{Payment: payment, Remaining: remaining}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, pgrepo.ErrPaymentNotFound):
			return ConfirmResult{}, ErrPaymentNotFound
		case errors.Is(err, pgrepo.ErrAllowanceOverCap):
			return ConfirmResult{}, ErrCapExceeded
		case errors.Is(err, ErrPaymentTerminal):
			return ConfirmResult{}, ErrPaymentTerminal
		default:
			return ConfirmResult{}, err
		}
	}

	return result, nil
}

// Fail marks a pending payment failed. Terminal statuses stay as they are.
func (s *Service) Fail(ctx context.Context, paymentID int64) (model.Payment, error) {
	if paymentID <= 0 {
		return model.Payment{}, ErrValidation
	}
	if s.payments == nil {
		return model.Payment{}, fmt.Errorf("payments dependencies are not configured")
	}

	payment, err := s.payments.MarkFailed(ctx, paymentID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrPaymentTerminal) {
			return model.Payment{}, ErrPaymentTerminal
		}
		return model.Payment{}, err
	}
	return payment, nil
}

func (s *Service) History(ctx context.Context, userID int64, limit int) ([]model.Payment, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.payments == nil {
		return nil, fmt.Errorf("payments dependencies are not configured")
	}
	return s.payments.ListByUser(ctx, userID, limit)
}
