package workflow

import (
	"bitbucket.org/mmdatafocus/retail_backend/models"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
)

// PaymentIntent carries one in-flight payment computation. It is built from
// the request, passed through the reconciler and discarded after commit;
// nothing in it is persisted.
type PaymentIntent struct {
	Mode           models.PaymentMode
	ManualAmount   decimal.Decimal
	MoneyAccountId int
	View           models.ValuationView
}

// PaymentResolution is the outcome of resolving a payment mode against one
// valuation's total.
type PaymentResolution struct {
	// Mode is the effective mode after degradation (Paid/Partial against a
	// zero total collapse to Unpaid).
	Mode models.PaymentMode

	Paid        decimal.Decimal
	Due         decimal.Decimal
	UsedAdvance decimal.Decimal
	Status      models.PaymentStatus

	// RequiresAccount is set when the effective mode settles from a funding
	// account rather than from supplier credit.
	RequiresAccount bool
}

// derivePaymentStatus is the single source of truth for status:
// paid <= 0 is unpaid, paid covering total (within epsilon) is paid,
// anything in between is partial.
func derivePaymentStatus(paid, total decimal.Decimal) models.PaymentStatus {
	if paid.LessThanOrEqual(decimal.Zero) {
		return models.PaymentStatusUnpaid
	}
	if utils.IsSettled(paid, total) {
		return models.PaymentStatusPaid
	}
	return models.PaymentStatusPartial
}

// ResolvePaymentMode derives paid amount, due amount and payment status for
// one valuation view. It is a pure function: ledger reads happen before the
// call (availableCredit) and ledger writes after it.
//
// currentPaid is the view's already-recorded paid amount; AdvanceDrawdown
// only overwrites it when it is zero or exceeds the total. ManualOverride and
// AdvanceDrawdown exclude each other because a request carries exactly one
// mode: dispatching on the mode alone makes the previously active one inert.
func ResolvePaymentMode(
	mode models.PaymentMode,
	total decimal.Decimal,
	currentPaid decimal.Decimal,
	manualAmount decimal.Decimal,
	availableCredit decimal.Decimal,
) (PaymentResolution, error) {

	total = utils.Round2(total)
	res := PaymentResolution{
		Mode:   mode,
		Status: models.PaymentStatusUnpaid,
	}

	switch mode {
	case models.PaymentModeUnpaid:
		// Clears any funding-account requirement along with the amount.
		res.Paid = decimal.Zero

	case models.PaymentModePaid:
		if total.LessThanOrEqual(decimal.Zero) {
			res.Mode = models.PaymentModeUnpaid
			res.Paid = decimal.Zero
			break
		}
		res.Paid = total
		res.Status = models.PaymentStatusPaid
		res.RequiresAccount = true

	case models.PaymentModePartial, models.PaymentModeManualOverride:
		if manualAmount.IsNegative() {
			return PaymentResolution{}, ErrInvalidAmount
		}
		if total.LessThanOrEqual(decimal.Zero) {
			res.Mode = models.PaymentModeUnpaid
			res.Paid = decimal.Zero
			break
		}
		res.Paid = utils.ClampNonNegative(utils.MinDecimal(utils.Round2(manualAmount), total))
		res.Status = derivePaymentStatus(res.Paid, total)
		res.RequiresAccount = res.Paid.IsPositive()

	case models.PaymentModeAdvance:
		res.UsedAdvance = utils.ClampNonNegative(utils.MinDecimal(utils.Round2(availableCredit), total))
		// Auto-fill only an otherwise-unset amount: an in-range manual paid
		// amount survives the drawdown.
		if currentPaid.LessThanOrEqual(decimal.Zero) || currentPaid.GreaterThan(total) {
			res.Paid = res.UsedAdvance
		} else {
			res.Paid = utils.Round2(currentPaid)
		}
		res.Status = derivePaymentStatus(res.Paid, total)

	default:
		return PaymentResolution{}, ErrInvalidAmount
	}

	res.Paid = utils.Round2(res.Paid)
	res.Due = utils.ClampNonNegative(total.Sub(res.Paid))
	return res, nil
}
