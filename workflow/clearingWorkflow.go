package workflow

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/models"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ClearPaymentInput struct {
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	MoneyAccountId int             `json:"money_account_id" binding:"required"`
}

// ClearPurchasePayment settles part or all of an outstanding due on an
// already-reconciled purchase. Paid amounts only ever move up; overshooting
// the remaining due is rejected rather than clamped, so a double-submitted
// settlement cannot silently pay twice.
//
// The valuation view comes from the acting identity, never from the request:
// a real-view caller cannot steer a settlement onto the shadow ledger.
func ClearPurchasePayment(ctx context.Context, logger *logrus.Logger, purchaseId int, input ClearPaymentInput) (*ReconciliationOutcome, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	amount := utils.Round2(input.Amount)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if input.MoneyAccountId <= 0 {
		return nil, ErrPaymentAccountRequired
	}
	view := ActiveValuationView(ctx)
	correlationId := correlationIdFromContextOrNew(ctx)

	var outcome *ReconciliationOutcome
	db := config.GetDB()
	err := db.Transaction(func(tx *gorm.DB) error {
		txCtx := tx.WithContext(ctx)
		if err := AcquirePurchasePostingLock(txCtx, businessId, purchaseId); err != nil {
			return wrapReconciliation("posting lock", err)
		}
		defer ReleasePurchasePostingLock(txCtx, businessId, purchaseId)

		var purchase models.Purchase
		err := txCtx.Where("business_id = ?", businessId).First(&purchase, purchaseId).Error
		if err != nil {
			return utils.ErrorRecordNotFound
		}
		if purchase.CurrentStatus != models.PurchaseStatusConfirmed {
			return errors.New("only confirmed purchases accept settlements")
		}

		total := purchase.Total(view)
		currentPaid := purchase.PaidAmount(view)
		remainingDue := utils.ClampNonNegative(total.Sub(currentPaid))
		if amount.GreaterThan(remainingDue.Add(utils.PaymentEpsilon)) {
			return ErrInvalidAmount
		}

		if err := models.DebitMoneyAccount(txCtx, businessId, input.MoneyAccountId, amount); err != nil {
			if errors.Is(err, models.ErrInsufficientAccountBalance) {
				return ErrInsufficientFunds
			}
			config.LogError(logger, "ClearingWorkflow.go", "ClearPurchasePayment", "DebitMoneyAccount", amount, err)
			return wrapReconciliation("account debit", err)
		}

		newPaid := utils.MinDecimal(currentPaid.Add(amount), total)
		status := derivePaymentStatus(newPaid, total)
		purchase.SetPayment(view, newPaid, status)

		updates := map[string]interface{}{"MoneyAccountId": input.MoneyAccountId}
		if view == models.ValuationViewShadow {
			updates["PaidAmountShadow"] = purchase.PaidAmountShadow
			updates["PaymentStatusShadow"] = purchase.PaymentStatusShadow
		} else {
			updates["PaidAmountReal"] = purchase.PaidAmountReal
			updates["PaymentStatusReal"] = purchase.PaymentStatusReal
		}
		err = txCtx.Model(&models.Purchase{}).Where("id = ?", purchase.ID).Updates(updates).Error
		if err != nil {
			config.LogError(logger, "ClearingWorkflow.go", "ClearPurchasePayment", "UpdatePurchase", purchase.ID, err)
			return wrapReconciliation("purchase persist", err)
		}

		if view == models.ValuationViewReal {
			if err := models.SettleSupplierDue(txCtx, businessId, purchase.SupplierId, amount); err != nil {
				config.LogError(logger, "ClearingWorkflow.go", "ClearPurchasePayment", "SettleSupplierDue", amount, err)
				return wrapReconciliation("supplier due settle", err)
			}
		}

		err = models.CreateAccountTransactions(txCtx, []models.AccountTransaction{{
			BusinessId:          businessId,
			MoneyAccountId:      input.MoneyAccountId,
			SupplierId:          purchase.SupplierId,
			TransactionDateTime: purchase.PurchaseDate,
			Credit:              amount,
			ValuationView:       view,
			ReferenceType:       models.AccountReferenceTypePurchasePayment,
			ReferenceId:         purchase.ID,
			Description:         "Settlement for " + purchase.PurchaseNumber,
			CorrelationId:       correlationId,
		}})
		if err != nil {
			config.LogError(logger, "ClearingWorkflow.go", "ClearPurchasePayment", "CreateAccountTransactions", amount, err)
			return wrapReconciliation("journal persist", err)
		}

		remaining, err := models.AvailableSupplierCredit(txCtx, businessId, purchase.SupplierId)
		if err != nil {
			return wrapReconciliation("supplier credit read", err)
		}
		outcome = &ReconciliationOutcome{
			PurchaseId:              purchase.ID,
			TotalReal:               purchase.TotalReal,
			TotalShadow:             purchase.TotalShadow,
			PaidAmount:              newPaid,
			DueAmount:               utils.ClampNonNegative(total.Sub(newPaid)),
			UsedAdvance:             purchase.AdvanceUsedAmount,
			PaymentStatus:           status,
			SupplierCreditRemaining: remaining,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}
