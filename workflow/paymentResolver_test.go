package workflow

import (
	"testing"

	"bitbucket.org/mmdatafocus/retail_backend/models"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestResolveUnpaid_ClearsPaid(t *testing.T) {
	res, err := ResolvePaymentMode(models.PaymentModeUnpaid, dec("1000"), dec("400"), decimal.Zero, decimal.Zero)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Paid.IsZero() {
		t.Errorf("expected paid 0, got %s", res.Paid)
	}
	if res.Status != models.PaymentStatusUnpaid {
		t.Errorf("expected unpaid status, got %s", res.Status)
	}
	if !res.Due.Equal(dec("1000")) {
		t.Errorf("expected due 1000, got %s", res.Due)
	}
	if res.RequiresAccount {
		t.Error("unpaid must not require a funding account")
	}
}

func TestResolvePaid_CoversTotal(t *testing.T) {
	res, err := ResolvePaymentMode(models.PaymentModePaid, dec("1000"), decimal.Zero, decimal.Zero, decimal.Zero)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Paid.Equal(dec("1000")) {
		t.Errorf("expected paid 1000, got %s", res.Paid)
	}
	if res.Status != models.PaymentStatusPaid {
		t.Errorf("expected paid status, got %s", res.Status)
	}
	if !res.Due.IsZero() {
		t.Errorf("expected due 0, got %s", res.Due)
	}
	if !res.RequiresAccount {
		t.Error("full payment requires a funding account")
	}
}

func TestResolvePaid_ZeroTotalDegradesToUnpaid(t *testing.T) {
	res, err := ResolvePaymentMode(models.PaymentModePaid, decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero)
	if err != nil {
		t.Fatal(err)
	}
	if res.Mode != models.PaymentModeUnpaid {
		t.Errorf("expected degraded mode Unpaid, got %s", res.Mode)
	}
	if res.Status != models.PaymentStatusUnpaid {
		t.Errorf("expected unpaid status, got %s", res.Status)
	}
}

func TestResolvePartial_Scenario(t *testing.T) {
	// 1000 total, a 400 partial payment leaves 600 due.
	res, err := ResolvePaymentMode(models.PaymentModePartial, dec("1000"), decimal.Zero, dec("400"), decimal.Zero)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Paid.Equal(dec("400")) {
		t.Errorf("expected paid 400, got %s", res.Paid)
	}
	if !res.Due.Equal(dec("600")) {
		t.Errorf("expected due 600, got %s", res.Due)
	}
	if res.Status != models.PaymentStatusPartial {
		t.Errorf("expected partial status, got %s", res.Status)
	}
	if !res.RequiresAccount {
		t.Error("partial payment requires a funding account")
	}
}

func TestResolvePartial_NegativeAmountRejected(t *testing.T) {
	_, err := ResolvePaymentMode(models.PaymentModePartial, dec("1000"), decimal.Zero, dec("-5"), decimal.Zero)
	if err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestResolvePartial_OverpaymentClampsToTotal(t *testing.T) {
	res, err := ResolvePaymentMode(models.PaymentModePartial, dec("1000"), decimal.Zero, dec("1500"), decimal.Zero)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Paid.Equal(dec("1000")) {
		t.Errorf("paid must clamp to total, got %s", res.Paid)
	}
	if res.Status != models.PaymentStatusPaid {
		t.Errorf("expected paid status, got %s", res.Status)
	}
}

func TestResolveManualOverride_BehavesLikePartial(t *testing.T) {
	res, err := ResolvePaymentMode(models.PaymentModeManualOverride, dec("1000"), decimal.Zero, dec("250"), decimal.Zero)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Paid.Equal(dec("250")) {
		t.Errorf("expected paid 250, got %s", res.Paid)
	}
	if res.Status != models.PaymentStatusPartial {
		t.Errorf("expected partial status, got %s", res.Status)
	}
}

func TestResolveAdvance_CreditExceedsTotal(t *testing.T) {
	// 1500 credit against a 1000 purchase consumes 1000 and settles it.
	res, err := ResolvePaymentMode(models.PaymentModeAdvance, dec("1000"), decimal.Zero, decimal.Zero, dec("1500"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.UsedAdvance.Equal(dec("1000")) {
		t.Errorf("expected advance use 1000, got %s", res.UsedAdvance)
	}
	if !res.Paid.Equal(dec("1000")) {
		t.Errorf("expected paid 1000, got %s", res.Paid)
	}
	if res.Status != models.PaymentStatusPaid {
		t.Errorf("expected paid status, got %s", res.Status)
	}
	if res.RequiresAccount {
		t.Error("pure advance drawdown must not require a funding account")
	}
}

func TestResolveAdvance_CreditShortOfTotal(t *testing.T) {
	res, err := ResolvePaymentMode(models.PaymentModeAdvance, dec("1000"), decimal.Zero, decimal.Zero, dec("300"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.UsedAdvance.Equal(dec("300")) {
		t.Errorf("expected advance use 300, got %s", res.UsedAdvance)
	}
	if !res.Paid.Equal(dec("300")) {
		t.Errorf("expected paid 300, got %s", res.Paid)
	}
	if res.Status != models.PaymentStatusPartial {
		t.Errorf("expected partial status, got %s", res.Status)
	}
}

func TestResolveAdvance_KeepsNonZeroPaidWithinTotal(t *testing.T) {
	// A recorded paid amount between zero and total survives an advance
	// drawdown untouched.
	res, err := ResolvePaymentMode(models.PaymentModeAdvance, dec("1000"), dec("400"), decimal.Zero, dec("1500"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Paid.Equal(dec("400")) {
		t.Errorf("expected existing paid 400 kept, got %s", res.Paid)
	}
	if !res.UsedAdvance.Equal(dec("1000")) {
		t.Errorf("expected advance use 1000, got %s", res.UsedAdvance)
	}
}

func TestResolveAdvance_OverwritesOutOfRangePaid(t *testing.T) {
	// paid above total is treated as stale and replaced by the drawdown.
	res, err := ResolvePaymentMode(models.PaymentModeAdvance, dec("1000"), dec("1200"), decimal.Zero, dec("700"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Paid.Equal(dec("700")) {
		t.Errorf("expected paid overwritten to 700, got %s", res.Paid)
	}
}

func TestResolveAdvance_ZeroPaidFilledFromDrawdown(t *testing.T) {
	res, err := ResolvePaymentMode(models.PaymentModeAdvance, dec("1000"), decimal.Zero, decimal.Zero, dec("700"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Paid.Equal(dec("700")) {
		t.Errorf("expected paid filled to 700, got %s", res.Paid)
	}
}

func TestDerivePaymentStatus_EpsilonSettlement(t *testing.T) {
	// 999.995 against 1000 is within the settlement tolerance.
	status := derivePaymentStatus(dec("999.995"), dec("1000"))
	if status != models.PaymentStatusPaid {
		t.Errorf("expected paid within epsilon, got %s", status)
	}
	status = derivePaymentStatus(dec("999.98"), dec("1000"))
	if status != models.PaymentStatusPartial {
		t.Errorf("expected partial outside epsilon, got %s", status)
	}
	status = derivePaymentStatus(decimal.Zero, dec("1000"))
	if status != models.PaymentStatusUnpaid {
		t.Errorf("expected unpaid at zero, got %s", status)
	}
}

func TestResolve_DueNeverNegative(t *testing.T) {
	res, err := ResolvePaymentMode(models.PaymentModePartial, dec("100"), decimal.Zero, dec("100"), decimal.Zero)
	if err != nil {
		t.Fatal(err)
	}
	if res.Due.IsNegative() {
		t.Errorf("due must never be negative, got %s", res.Due)
	}
}
