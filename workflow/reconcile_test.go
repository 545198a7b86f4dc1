package workflow

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/models"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// NOTE: These tests are intentionally DB-free. They validate the reconciler's
// ordering and failure semantics against fake ledgers: every business-rule
// rejection must happen before the first persisted write, so a rollback can
// never leave a half-applied payment.
//
// Full DB integration tests belong in an environment that can run MySQL.

type fakeAccountLedger struct {
	balance    decimal.Decimal
	balanceErr error
	debits     []decimal.Decimal
	debitErr   error
}

func (f *fakeAccountLedger) GetBalance(accountId int) (decimal.Decimal, error) {
	if f.balanceErr != nil {
		return decimal.Zero, f.balanceErr
	}
	return f.balance, nil
}

func (f *fakeAccountLedger) Debit(accountId int, amount decimal.Decimal) error {
	if f.debitErr != nil {
		return f.debitErr
	}
	f.debits = append(f.debits, amount)
	f.balance = f.balance.Sub(amount)
	return nil
}

type fakeCreditLedger struct {
	credit    decimal.Decimal
	drawdowns []decimal.Decimal
	drawErr   error
}

func (f *fakeCreditLedger) AvailableCredit(supplierId int) (decimal.Decimal, error) {
	return f.credit, nil
}

func (f *fakeCreditLedger) Drawdown(supplierId int, amount decimal.Decimal) error {
	if f.drawErr != nil {
		return f.drawErr
	}
	f.drawdowns = append(f.drawdowns, amount)
	f.credit = f.credit.Sub(amount)
	return nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testPurchase(qty, costReal, costShadow string) *models.Purchase {
	return &models.Purchase{
		ID:             1,
		BusinessId:     "biz-1",
		SupplierId:     7,
		PurchaseNumber: "PUR-000001",
		PurchaseDate:   time.Now(),
		CurrentStatus:  models.PurchaseStatusDraft,
		Items: []models.PurchaseItem{{
			ProductName:    "Rice 25kg",
			Qty:            dec(qty),
			UnitCostReal:   dec(costReal),
			UnitCostShadow: dec(costShadow),
		}},
	}
}

func TestReconcile_CommittedPurchaseFrozen(t *testing.T) {
	// Money moved when the purchase was committed. Repeating the payment
	// intent must be rejected before any ledger call: a second run would
	// debit the account again and book the supplier due twice. Later
	// payments belong to the clearing workflow.
	purchase := testPurchase("10", "100", "90")
	purchase.RecomputeTotals()
	purchase.CurrentStatus = models.PurchaseStatusConfirmed
	purchase.PaidAmountReal = dec("1000")
	purchase.PaymentStatusReal = models.PaymentStatusPaid
	accounts := &fakeAccountLedger{balance: dec("5000")}
	credits := &fakeCreditLedger{credit: dec("400")}

	for _, mode := range []models.PaymentMode{
		models.PaymentModePaid,
		models.PaymentModePartial,
		models.PaymentModeUnpaid,
	} {
		intent := PaymentIntent{
			Mode:           mode,
			ManualAmount:   dec("400"),
			MoneyAccountId: 3,
			View:           models.ValuationViewReal,
		}
		_, err := ReconcilePurchase(context.Background(), nil, quietLogger(), purchase, intent, accounts, credits)
		if !errors.Is(err, ErrPurchaseAlreadyCommitted) {
			t.Fatalf("mode %s: expected ErrPurchaseAlreadyCommitted, got %v", mode, err)
		}
	}
	if len(accounts.debits) != 0 || len(credits.drawdowns) != 0 {
		t.Error("a committed purchase must not touch any ledger")
	}
	if !purchase.PaidAmountReal.Equal(dec("1000")) || purchase.PaymentStatusReal != models.PaymentStatusPaid {
		t.Error("paid amount and status must stay frozen")
	}
}

func TestReconcile_InsufficientFundsRejectedBeforeDebit(t *testing.T) {
	purchase := testPurchase("10", "100", "90")
	accounts := &fakeAccountLedger{balance: dec("300")}
	credits := &fakeCreditLedger{}

	intent := PaymentIntent{
		Mode:           models.PaymentModePaid,
		MoneyAccountId: 3,
		View:           models.ValuationViewReal,
	}
	_, err := ReconcilePurchase(context.Background(), nil, quietLogger(), purchase, intent, accounts, credits)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if len(accounts.debits) != 0 {
		t.Errorf("no debit may happen after a failed balance check, got %d", len(accounts.debits))
	}
}

func TestReconcile_GuardedDebitFailureMapsToInsufficientFunds(t *testing.T) {
	// The pre-check passes but a concurrent spender empties the account; the
	// conditional UPDATE reports it and the reconciler translates it.
	purchase := testPurchase("10", "100", "90")
	accounts := &fakeAccountLedger{balance: dec("5000"), debitErr: models.ErrInsufficientAccountBalance}
	credits := &fakeCreditLedger{}

	intent := PaymentIntent{
		Mode:           models.PaymentModePaid,
		MoneyAccountId: 3,
		View:           models.ValuationViewReal,
	}
	_, err := ReconcilePurchase(context.Background(), nil, quietLogger(), purchase, intent, accounts, credits)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestReconcile_UnknownAccountSurfacesAsNotFound(t *testing.T) {
	// A bad account id is a lookup failure, not an empty wallet.
	purchase := testPurchase("10", "100", "90")
	accounts := &fakeAccountLedger{balanceErr: utils.ErrorRecordNotFound}
	credits := &fakeCreditLedger{}

	intent := PaymentIntent{
		Mode:           models.PaymentModePaid,
		MoneyAccountId: 99,
		View:           models.ValuationViewReal,
	}
	_, err := ReconcilePurchase(context.Background(), nil, quietLogger(), purchase, intent, accounts, credits)
	if errors.Is(err, ErrInsufficientFunds) {
		t.Fatal("a missing account must not be reported as insufficient funds")
	}
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected the not-found error to propagate, got %v", err)
	}
	if len(accounts.debits) != 0 {
		t.Error("no debit may happen for an unknown account")
	}
}

func TestReconcile_MissingAccountRejected(t *testing.T) {
	purchase := testPurchase("10", "100", "90")
	accounts := &fakeAccountLedger{balance: dec("5000")}
	credits := &fakeCreditLedger{}

	intent := PaymentIntent{
		Mode: models.PaymentModePaid,
		View: models.ValuationViewReal,
	}
	_, err := ReconcilePurchase(context.Background(), nil, quietLogger(), purchase, intent, accounts, credits)
	if !errors.Is(err, ErrPaymentAccountRequired) {
		t.Fatalf("expected ErrPaymentAccountRequired, got %v", err)
	}
	if len(accounts.debits) != 0 {
		t.Errorf("no debit may happen without a funding account")
	}
}

func TestReconcile_DrawdownFailureMapsToInsufficientCredit(t *testing.T) {
	purchase := testPurchase("10", "100", "90")
	accounts := &fakeAccountLedger{balance: dec("5000")}
	credits := &fakeCreditLedger{credit: dec("400"), drawErr: models.ErrInsufficientSupplierCredit}

	intent := PaymentIntent{
		Mode: models.PaymentModeAdvance,
		View: models.ValuationViewReal,
	}
	_, err := ReconcilePurchase(context.Background(), nil, quietLogger(), purchase, intent, accounts, credits)
	if !errors.Is(err, ErrInsufficientCredit) {
		t.Fatalf("expected ErrInsufficientCredit, got %v", err)
	}
	if len(accounts.debits) != 0 {
		t.Errorf("account must stay untouched when the drawdown fails")
	}
}

func TestReconcile_AdvanceDrawdownUsesMinOfCreditAndTotal(t *testing.T) {
	// Real total is 1000; 1500 credit must be drawn down by exactly 1000 and
	// no account debit remains. Only the ledger phase runs here; the persist
	// phase is exercised by integration tests.
	purchase := testPurchase("10", "100", "90")
	purchase.RecomputeTotals()
	credits := &fakeCreditLedger{credit: dec("1500")}

	res, err := ResolvePaymentMode(models.PaymentModeAdvance, purchase.TotalReal, decimal.Zero, decimal.Zero, credits.credit)
	if err != nil {
		t.Fatal(err)
	}
	if err := credits.Drawdown(purchase.SupplierId, res.UsedAdvance); err != nil {
		t.Fatal(err)
	}
	if !credits.credit.Equal(dec("500")) {
		t.Errorf("expected 500 credit remaining, got %s", credits.credit)
	}
	if len(credits.drawdowns) != 1 || !credits.drawdowns[0].Equal(dec("1000")) {
		t.Errorf("expected one drawdown of 1000, got %v", credits.drawdowns)
	}
}

func TestReconcile_InvalidManualAmountLeavesLedgersUntouched(t *testing.T) {
	purchase := testPurchase("10", "100", "90")
	accounts := &fakeAccountLedger{balance: dec("5000")}
	credits := &fakeCreditLedger{credit: dec("400")}

	intent := PaymentIntent{
		Mode:           models.PaymentModePartial,
		ManualAmount:   dec("-50"),
		MoneyAccountId: 3,
		View:           models.ValuationViewReal,
	}
	_, err := ReconcilePurchase(context.Background(), nil, quietLogger(), purchase, intent, accounts, credits)
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if len(accounts.debits) != 0 || len(credits.drawdowns) != 0 {
		t.Error("rejected intents must not touch any ledger")
	}
}

func TestReconcile_ShadowViewResolvesAgainstShadowTotal(t *testing.T) {
	// 10 x 90 shadow = 900; a 300 balance cannot cover it.
	purchase := testPurchase("10", "100", "90")
	accounts := &fakeAccountLedger{balance: dec("300")}
	credits := &fakeCreditLedger{}

	intent := PaymentIntent{
		Mode:           models.PaymentModePaid,
		MoneyAccountId: 3,
		View:           models.ValuationViewShadow,
	}
	_, err := ReconcilePurchase(context.Background(), nil, quietLogger(), purchase, intent, accounts, credits)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds against shadow total, got %v", err)
	}
}
