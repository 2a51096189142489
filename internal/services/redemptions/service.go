package redemptions

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Wewst/coffe-pass/internal/domain/model"
	"github.com/Wewst/coffe-pass/internal/domain/rules"
	pgrepo "github.com/Wewst/coffe-pass/internal/repo/postgres"
)

// Ambiguous glyphs (0/O, 1/I/L) are excluded so codes can be read aloud.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	codeLength  = 6
	maxAttempts = 20
)

var (
	ErrValidation              = errors.New("validation error")
	ErrPartnerNotFound         = errors.New("partner not found")
	ErrInsufficientAllowance   = errors.New("no cups remaining this month")
	ErrCodeGenerationExhausted = errors.New("could not generate a unique code")
	ErrCodeNotFound            = errors.New("redemption code not found")
)

type TxRunner interface {
	WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

type CodeStore interface {
	InsertTx(ctx context.Context, tx pgx.Tx, userID int64, code, partnerName string) (model.RedemptionCode, error)
	MarkUsed(ctx context.Context, code string) (model.RedemptionCode, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]model.RedemptionCode, error)
}

type LedgerStore interface {
	DebitOneTx(ctx context.Context, tx pgx.Tx, userID int64, monthKey string) (int, error)
}

type PartnerDirectory interface {
	FindActiveByName(ctx context.Context, name string) (model.Partner, error)
}

type Service struct {
	txs      TxRunner
	codes    CodeStore
	ledger   LedgerStore
	partners PartnerDirectory
	now      func() time.Time
	randCode func() (string, error)
}

type Dependencies struct {
	Txs      TxRunner
	Codes    CodeStore
	Ledger   LedgerStore
	Partners PartnerDirectory
}

type IssueResult struct {
	Code      model.RedemptionCode
	Remaining int
}

func NewService(deps Dependencies) *Service {
	return &Service{
		txs:      deps.Txs,
		codes:    deps.Codes,
		ledger:   deps.Ledger,
		partners: deps.Partners,
		now:      time.Now,
		randCode: randomCode,
	}
}

// Issue debits one cup from the current month and mints a unique code for the
// named partner, both inside a single transaction. Collisions on the code
// roll the whole attempt back and a fresh candidate is tried.
func (s *Service) Issue(ctx context.Context, userID int64, partnerName string) (IssueResult, error) {
	partnerName = strings.TrimSpace(partnerName)
	if userID <= 0 || partnerName == "" {
		return IssueResult{}, ErrValidation
	}
	if s.txs == nil || s.codes == nil || s.ledger == nil || s.partners == nil {
		return IssueResult{}, fmt.Errorf("redemptions dependencies are not configured")
	}

	partner, err := s.partners.FindActiveByName(ctx, partnerName)
	if err != nil {
		if errors.Is(err, pgrepo.ErrPartnerNotFound) {
			return IssueResult{}, ErrPartnerNotFound
		}
		return IssueResult{}, err
	}

	monthKey := rules.MonthKey(s.now())

	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate, err := s.randCode()
		if err != nil {
			return IssueResult{}, fmt.Errorf("generate code: %w", err)
		}

		var result IssueResult
		err = s.txs.WithTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
			rec, err := s.codes.InsertTx(txCtx, tx, userID, candidate, partner.Name)
			if err != nil {
				return err
			}

			remaining, err := s.ledger.DebitOneTx(txCtx, tx, userID, monthKey)
			if err != nil {
				return err
			}

			result = IssueResult{Code: rec, Remaining: remaining}
			return nil
		})
		if err != nil {
			if errors.Is(err, pgrepo.ErrCodeCollision) {
				continue
			}
			if errors.Is(err, pgrepo.ErrAllowanceEmpty) || errors.Is(err, pgrepo.ErrAllowanceNotFound) {
				return IssueResult{}, ErrInsufficientAllowance
			}
			return IssueResult{}, err
		}

		return result, nil
	}

	return IssueResult{}, ErrCodeGenerationExhausted
}

// Redeem marks a code used. Marking is terminal and idempotent at the store,
// so a double scan reports the code as used rather than failing.
func (s *Service) Redeem(ctx context.Context, code string) (model.RedemptionCode, error) {
	code = strings.TrimSpace(strings.ToUpper(code))
	if code == "" {
		return model.RedemptionCode{}, ErrValidation
	}
	if s.codes == nil {
		return model.RedemptionCode{}, fmt.Errorf("redemptions dependencies are not configured")
	}

	rec, err := s.codes.MarkUsed(ctx, code)
	if err != nil {
		if errors.Is(err, pgrepo.ErrCodeNotFound) {
			return model.RedemptionCode{}, ErrCodeNotFound
		}
		return model.RedemptionCode{}, err
	}
	return rec, nil
}

func (s *Service) History(ctx context.Context, userID int64, limit int) ([]model.RedemptionCode, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.codes == nil {
		return nil, fmt.Errorf("redemptions dependencies are not configured")
	}
	return s.codes.ListByUser(ctx, userID, limit)
}

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
