package redemptions

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Wewst/coffe-pass/internal/domain/model"
	pgrepo "github.com/Wewst/coffe-pass/internal/repo/postgres"
)

// stubTxRunner mimics transaction semantics over the in-memory stores: a
// callback error restores the stores to their pre-callback state.
type stubTxRunner struct {
	calls  int
	codes  *stubCodeStore
	ledger *stubLedger
}

func (s *stubTxRunner) WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	s.calls++

	var codesSnap map[string]model.RedemptionCode
	var nextIDSnap int64
	if s.codes != nil {
		codesSnap = make(map[string]model.RedemptionCode, len(s.codes.byCode))
		for code, rec := range s.codes.byCode {
			codesSnap[code] = rec
		}
		nextIDSnap = s.codes.nextID
	}
	var ledgerSnap stubLedger
	if s.ledger != nil {
		ledgerSnap = *s.ledger
	}

	if err := fn(ctx, nil); err != nil {
		if s.codes != nil {
			s.codes.byCode = codesSnap
			s.codes.nextID = nextIDSnap
		}
		if s.ledger != nil {
			*s.ledger = ledgerSnap
		}
		return err
	}
	return nil
}

type stubCodeStore struct {
	nextID int64
	byCode map[string]model.RedemptionCode
}

func newStubCodeStore() *stubCodeStore {
	return &stubCodeStore{nextID: 1, byCode: make(map[string]model.RedemptionCode)}
}

func (s *stubCodeStore) InsertTx(_ context.Context, _ pgx.Tx, userID int64, code, partnerName string) (model.RedemptionCode, error) {
	if _, ok := s.byCode[code]; ok {
		return model.RedemptionCode{}, pgrepo.ErrCodeCollision
	}
	rec := model.RedemptionCode{
		ID:          s.nextID,
		UserID:      userID,
		Code:        code,
		PartnerName: partnerName,
		CreatedAt:   time.Now(),
	}
	s.nextID++
	s.byCode[code] = rec
	return rec, nil
}

func (s *stubCodeStore) MarkUsed(_ context.Context, code string) (model.RedemptionCode, error) {
	rec, ok := s.byCode[code]
	if !ok {
		return model.RedemptionCode{}, pgrepo.ErrCodeNotFound
	}
	rec.IsUsed = true
	s.byCode[code] = rec
	return rec, nil
}

func (s *stubCodeStore) ListByUser(_ context.Context, userID int64, _ int) ([]model.RedemptionCode, error) {
	var out []model.RedemptionCode
	for _, rec := range s.byCode {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type stubLedger struct {
	remaining int
	debits    int
}

func (s *stubLedger) DebitOneTx(_ context.Context, _ pgx.Tx, _ int64, _ string) (int, error) {
	if s.remaining <= 0 {
		return 0, pgrepo.ErrAllowanceEmpty
	}
	s.remaining--
	s.debits++
	return s.remaining, nil
}

type stubPartners struct {
	partners map[string]model.Partner
}

func (s *stubPartners) FindActiveByName(_ context.Context, name string) (model.Partner, error) {
	p, ok := s.partners[name]
	if !ok {
		return model.Partner{}, pgrepo.ErrPartnerNotFound
	}
	return p, nil
}

func newTestService(txs *stubTxRunner, codes *stubCodeStore, ledger *stubLedger) *Service {
	txs.codes = codes
	txs.ledger = ledger
	return NewService(Dependencies{
		Txs:    txs,
		Codes:  codes,
		Ledger: ledger,
		Partners: &stubPartners{partners: map[string]model.Partner{
			"Roastery": {ID: 1, Name: "Roastery", Active: true},
		}},
	})
}

func TestIssueDebitsAndMints(t *testing.T) {
	txs := &stubTxRunner{}
	codes := newStubCodeStore()
	ledger := &stubLedger{remaining: 3}
	svc := newTestService(txs, codes, ledger)

	res, err := svc.Issue(context.Background(), 7, "Roastery")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if res.Remaining != 2 {
		t.Fatalf("remaining = %d, want 2", res.Remaining)
	}
	if res.Code.PartnerName != "Roastery" {
		t.Fatalf("partner = %q, want Roastery", res.Code.PartnerName)
	}
	if len(res.Code.Code) != codeLength {
		t.Fatalf("code length = %d, want %d", len(res.Code.Code), codeLength)
	}
	for _, ch := range res.Code.Code {
		if !strings.ContainsRune(codeAlphabet, ch) {
			t.Fatalf("code %q contains %q outside the alphabet", res.Code.Code, ch)
		}
	}
	if ledger.debits != 1 {
		t.Fatalf("debits = %d, want 1", ledger.debits)
	}
}

func TestIssueEmptyAllowance(t *testing.T) {
	txs := &stubTxRunner{}
	codes := newStubCodeStore()
	ledger := &stubLedger{remaining: 0}
	svc := newTestService(txs, codes, ledger)

	_, err := svc.Issue(context.Background(), 7, "Roastery")
	if !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("err = %v, want ErrInsufficientAllowance", err)
	}
	if len(codes.byCode) != 0 {
		t.Fatalf("codes minted despite empty allowance: %d", len(codes.byCode))
	}
}

func TestIssueUnknownPartner(t *testing.T) {
	txs := &stubTxRunner{}
	svc := newTestService(txs, newStubCodeStore(), &stubLedger{remaining: 3})

	_, err := svc.Issue(context.Background(), 7, "Nowhere")
	if !errors.Is(err, ErrPartnerNotFound) {
		t.Fatalf("err = %v, want ErrPartnerNotFound", err)
	}
	if txs.calls != 0 {
		t.Fatalf("tx calls = %d, want 0", txs.calls)
	}
}

func TestIssueRetriesOnCollision(t *testing.T) {
	txs := &stubTxRunner{}
	codes := newStubCodeStore()
	ledger := &stubLedger{remaining: 3}
	svc := newTestService(txs, codes, ledger)

	sequence := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	svc.randCode = func() (string, error) {
		next := sequence[0]
		if len(sequence) > 1 {
			sequence = sequence[1:]
		}
		return next, nil
	}

	first, err := svc.Issue(context.Background(), 7, "Roastery")
	if err != nil {
		t.Fatalf("first Issue: %v", err)
	}
	if first.Code.Code != "AAAAAA" {
		t.Fatalf("first code = %q, want AAAAAA", first.Code.Code)
	}

	second, err := svc.Issue(context.Background(), 7, "Roastery")
	if err != nil {
		t.Fatalf("second Issue: %v", err)
	}
	if second.Code.Code != "BBBBBB" {
		t.Fatalf("second code = %q, want BBBBBB after collision retry", second.Code.Code)
	}
	if ledger.debits != 2 {
		t.Fatalf("debits = %d, want 2", ledger.debits)
	}
}

func TestIssueExhaustsAttempts(t *testing.T) {
	txs := &stubTxRunner{}
	codes := newStubCodeStore()
	ledger := &stubLedger{remaining: 5}
	svc := newTestService(txs, codes, ledger)
	svc.randCode = func() (string, error) { return "SAMECD", nil }

	if _, err := svc.Issue(context.Background(), 7, "Roastery"); err != nil {
		t.Fatalf("seed Issue: %v", err)
	}

	_, err := svc.Issue(context.Background(), 7, "Roastery")
	if !errors.Is(err, ErrCodeGenerationExhausted) {
		t.Fatalf("err = %v, want ErrCodeGenerationExhausted", err)
	}
	if ledger.debits != 1 {
		t.Fatalf("debits = %d, want 1 (collisions must not debit)", ledger.debits)
	}
}

func TestRedeemMarksUsed(t *testing.T) {
	txs := &stubTxRunner{}
	codes := newStubCodeStore()
	ledger := &stubLedger{remaining: 1}
	svc := newTestService(txs, codes, ledger)

	res, err := svc.Issue(context.Background(), 7, "Roastery")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	rec, err := svc.Redeem(context.Background(), strings.ToLower(res.Code.Code))
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if !rec.IsUsed {
		t.Fatal("code not marked used")
	}

	if _, err := svc.Redeem(context.Background(), "ZZZZZZ"); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("unknown code: err = %v, want ErrCodeNotFound", err)
	}
}

func TestRandomCodeShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := randomCode()
		if err != nil {
			t.Fatalf("randomCode: %v", err)
		}
		if len(code) != codeLength {
			t.Fatalf("len(%q) = %d, want %d", code, len(code), codeLength)
		}
		for _, ch := range code {
			if !strings.ContainsRune(codeAlphabet, ch) {
				t.Fatalf("code %q contains %q outside the alphabet", code, ch)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatal("randomCode produced no variety")
	}
}
