package workflow

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/models"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReconciliationOutcome reports the committed state of one reconciliation.
type ReconciliationOutcome struct {
	PurchaseId              int                  `json:"purchase_id"`
	TotalReal               decimal.Decimal      `json:"total_real"`
	TotalShadow             decimal.Decimal      `json:"total_shadow"`
	PaidAmount              decimal.Decimal      `json:"paid_amount"`
	DueAmount               decimal.Decimal      `json:"due_amount"`
	UsedAdvance             decimal.Decimal      `json:"used_advance"`
	PaymentStatus           models.PaymentStatus `json:"payment_status"`
	SupplierCreditRemaining decimal.Decimal      `json:"supplier_credit_remaining"`
}

// ReconcilePurchase runs the payment reconciliation for one purchase against
// the supplied ledger adapters, inside the caller's transaction. Side effects
// are confined to the drawdown, the debit and the final persist; any error
// aborts with the transaction, so no partial mutation ever commits.
func ReconcilePurchase(ctx context.Context, tx *gorm.DB, logger *logrus.Logger,
	purchase *models.Purchase, intent PaymentIntent,
	accounts AccountLedger, credits SupplierCreditLedger) (*ReconciliationOutcome, error) {

	// A committed purchase is frozen: money already moved once, and running
	// the reconciliation again would debit the account and book the supplier
	// due a second time. Later payments go through ClearPurchasePayment,
	// which only ever advances the paid amount.
	if purchase.CurrentStatus == models.PurchaseStatusConfirmed {
		return nil, ErrPurchaseAlreadyCommitted
	}

	// Never trust stale totals: re-derive everything from the current
	// quantities and unit costs first.
	purchase.RecomputeTotals()

	total := purchase.Total(intent.View)
	currentPaid := purchase.PaidAmount(intent.View)

	availableCredit := decimal.Zero
	if intent.Mode == models.PaymentModeAdvance {
		var err error
		availableCredit, err = credits.AvailableCredit(purchase.SupplierId)
		if err != nil {
			config.LogError(logger, "ReconcileWorkflow.go", "ReconcilePurchase", "AvailableCredit", purchase.SupplierId, err)
			return nil, wrapReconciliation("supplier credit read", err)
		}
	}

	res, err := ResolvePaymentMode(intent.Mode, total, currentPaid, intent.ManualAmount, availableCredit)
	if err != nil {
		return nil, err
	}

	correlationId := correlationIdFromContextOrNew(ctx)
	journal := make([]models.AccountTransaction, 0, 2)

	if res.UsedAdvance.IsPositive() {
		if err := credits.Drawdown(purchase.SupplierId, res.UsedAdvance); err != nil {
			if errors.Is(err, models.ErrInsufficientSupplierCredit) {
				return nil, ErrInsufficientCredit
			}
			config.LogError(logger, "ReconcileWorkflow.go", "ReconcilePurchase", "Drawdown", res.UsedAdvance, err)
			return nil, wrapReconciliation("supplier credit drawdown", err)
		}
		journal = append(journal, models.AccountTransaction{
			BusinessId:          purchase.BusinessId,
			SupplierId:          purchase.SupplierId,
			TransactionDateTime: purchase.PurchaseDate,
			Debit:               res.UsedAdvance,
			ValuationView:       intent.View,
			ReferenceType:       models.AccountReferenceTypeAdvanceApplied,
			ReferenceId:         purchase.ID,
			Description:         "Advance applied to " + purchase.PurchaseNumber,
			CorrelationId:       correlationId,
		})
	}

	// The account funds whatever the advance did not cover.
	debitAmount := utils.ClampNonNegative(res.Paid.Sub(res.UsedAdvance))

	if res.RequiresAccount && debitAmount.IsPositive() && intent.MoneyAccountId <= 0 {
		return nil, ErrPaymentAccountRequired
	}

	if debitAmount.IsPositive() && intent.MoneyAccountId > 0 {
		// Pre-check before any account mutation; the conditional UPDATE in
		// Debit re-asserts the guard atomically.
		balance, err := accounts.GetBalance(intent.MoneyAccountId)
		if err != nil {
			config.LogError(logger, "ReconcileWorkflow.go", "ReconcilePurchase", "GetBalance", intent.MoneyAccountId, err)
			return nil, wrapReconciliation("account balance read", err)
		}
		if balance.LessThan(debitAmount) {
			return nil, ErrInsufficientFunds
		}
		if err := accounts.Debit(intent.MoneyAccountId, debitAmount); err != nil {
			if errors.Is(err, models.ErrInsufficientAccountBalance) {
				return nil, ErrInsufficientFunds
			}
			config.LogError(logger, "ReconcileWorkflow.go", "ReconcilePurchase", "Debit", debitAmount, err)
			return nil, wrapReconciliation("account debit", err)
		}
		journal = append(journal, models.AccountTransaction{
			BusinessId:          purchase.BusinessId,
			MoneyAccountId:      intent.MoneyAccountId,
			SupplierId:          purchase.SupplierId,
			TransactionDateTime: purchase.PurchaseDate,
			Credit:              debitAmount,
			ValuationView:       intent.View,
			ReferenceType:       models.AccountReferenceTypePurchasePayment,
			ReferenceId:         purchase.ID,
			Description:         "Payment for " + purchase.PurchaseNumber,
			CorrelationId:       correlationId,
		})
	}

	// Single atomic persist of the derived state.
	purchase.SetPayment(intent.View, res.Paid, res.Status)
	purchase.PaymentMode = res.Mode
	purchase.AdvanceUsedAmount = res.UsedAdvance
	if intent.MoneyAccountId > 0 {
		purchase.MoneyAccountId = intent.MoneyAccountId
	}
	purchase.CurrentStatus = models.PurchaseStatusConfirmed

	for i := range purchase.Items {
		item := purchase.Items[i]
		if item.ID == 0 {
			continue
		}
		err = tx.Model(&models.PurchaseItem{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
			"LineTotalReal":   item.LineTotalReal,
			"LineTotalShadow": item.LineTotalShadow,
		}).Error
		if err != nil {
			config.LogError(logger, "ReconcileWorkflow.go", "ReconcilePurchase", "UpdateItemTotals", item.ID, err)
			return nil, wrapReconciliation("item totals persist", err)
		}
	}

	updates := map[string]interface{}{
		"TotalReal":         purchase.TotalReal,
		"TotalShadow":       purchase.TotalShadow,
		"PaymentMode":       purchase.PaymentMode,
		"AdvanceUsedAmount": purchase.AdvanceUsedAmount,
		"MoneyAccountId":    purchase.MoneyAccountId,
		"CurrentStatus":     purchase.CurrentStatus,
	}
	if intent.View == models.ValuationViewShadow {
		updates["PaidAmountShadow"] = purchase.PaidAmountShadow
		updates["PaymentStatusShadow"] = purchase.PaymentStatusShadow
	} else {
		updates["PaidAmountReal"] = purchase.PaidAmountReal
		updates["PaymentStatusReal"] = purchase.PaymentStatusReal
	}
	err = tx.Model(&models.Purchase{}).Where("id = ?", purchase.ID).Updates(updates).Error
	if err != nil {
		config.LogError(logger, "ReconcileWorkflow.go", "ReconcilePurchase", "UpdatePurchase", purchase.ID, err)
		return nil, wrapReconciliation("purchase persist", err)
	}

	// The unpaid remainder of a real-view commit becomes supplier due.
	// Shadow figures stay off the supplier's books.
	if intent.View == models.ValuationViewReal && res.Due.IsPositive() {
		if err := models.AddSupplierDue(tx, purchase.BusinessId, purchase.SupplierId, res.Due); err != nil {
			config.LogError(logger, "ReconcileWorkflow.go", "ReconcilePurchase", "AddSupplierDue", res.Due, err)
			return nil, wrapReconciliation("supplier due persist", err)
		}
	}

	if err := models.CreateAccountTransactions(tx, journal); err != nil {
		config.LogError(logger, "ReconcileWorkflow.go", "ReconcilePurchase", "CreateAccountTransactions", journal, err)
		return nil, wrapReconciliation("journal persist", err)
	}

	remaining, err := credits.AvailableCredit(purchase.SupplierId)
	if err != nil {
		config.LogError(logger, "ReconcileWorkflow.go", "ReconcilePurchase", "AvailableCreditAfter", purchase.SupplierId, err)
		return nil, wrapReconciliation("supplier credit read", err)
	}

	return &ReconciliationOutcome{
		PurchaseId:              purchase.ID,
		TotalReal:               purchase.TotalReal,
		TotalShadow:             purchase.TotalShadow,
		PaidAmount:              res.Paid,
		DueAmount:               res.Due,
		UsedAdvance:             res.UsedAdvance,
		PaymentStatus:           res.Status,
		SupplierCreditRemaining: remaining,
	}, nil
}

// ProcessPurchaseReconciliation is the request-facing wrapper: it owns the
// transaction, the advisory lock, a best-effort redis lock and the durable
// idempotency record, then delegates to ReconcilePurchase.
//
// messageId is the caller-supplied idempotency key; retries with the same key
// return the stored outcome of the first successful run.
func ProcessPurchaseReconciliation(ctx context.Context, logger *logrus.Logger,
	purchaseId int, intent PaymentIntent, messageId string) (*ReconciliationOutcome, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	// Redis lock is a best-effort optimization; correctness rests on the
	// MySQL advisory lock below.
	if redisLocker := config.GetRedisLock(); redisLocker != nil {
		lock, err := redisLocker.Obtain(ctx, "reconcile:"+businessId, 30*time.Second, nil)
		if err == nil {
			defer lock.Release(context.Background())
		} else if err != redislock.ErrNotObtained {
			config.LogError(logger, "ReconcileWorkflow.go", "ProcessPurchaseReconciliation", "RedisLock", businessId, err)
		}
	}

	var outcome *ReconciliationOutcome
	db := config.GetDB()
	err := db.Transaction(func(tx *gorm.DB) error {
		txCtx := tx.WithContext(ctx)
		if err := AcquirePurchasePostingLock(txCtx, businessId, purchaseId); err != nil {
			return wrapReconciliation("posting lock", err)
		}
		defer ReleasePurchasePostingLock(txCtx, businessId, purchaseId)

		if messageId != "" {
			skip, err := BeginIdempotency(txCtx, businessId, "PurchaseReconcile", messageId)
			if err != nil {
				return wrapReconciliation("idempotency", err)
			}
			if skip {
				// Already committed once: report the stored state.
				stored, err := loadOutcome(txCtx, businessId, purchaseId, intent.View)
				if err != nil {
					return err
				}
				outcome = stored
				return nil
			}
		}

		var purchase models.Purchase
		err := txCtx.Where("business_id = ?", businessId).Preload("Items").First(&purchase, purchaseId).Error
		if err != nil {
			return utils.ErrorRecordNotFound
		}
		if purchase.CurrentStatus == models.PurchaseStatusVoid {
			return errors.New("cannot reconcile a void purchase")
		}

		accounts := NewAccountLedger(txCtx, businessId)
		credits := NewSupplierCreditLedger(txCtx, businessId)
		outcome, err = ReconcilePurchase(ctx, txCtx, logger, &purchase, intent, accounts, credits)
		if err != nil {
			return err
		}

		if messageId != "" {
			if err := MarkIdempotencySucceeded(txCtx, businessId, "PurchaseReconcile", messageId); err != nil {
				return wrapReconciliation("idempotency", err)
			}
		}
		return nil
	})
	if err != nil {
		// durable failure marker, outside the rolled-back transaction
		if messageId != "" {
			_ = MarkIdempotencyFailed(db.WithContext(ctx), businessId, "PurchaseReconcile", messageId, err)
		}
		return nil, err
	}
	return outcome, nil
}

// loadOutcome rebuilds a ReconciliationOutcome from committed state, for
// idempotent replays.
func loadOutcome(tx *gorm.DB, businessId string, purchaseId int, view models.ValuationView) (*ReconciliationOutcome, error) {
	var purchase models.Purchase
	err := tx.Where("business_id = ?", businessId).First(&purchase, purchaseId).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	remaining, err := models.AvailableSupplierCredit(tx, businessId, purchase.SupplierId)
	if err != nil {
		return nil, err
	}
	total := purchase.Total(view)
	paid := purchase.PaidAmount(view)
	return &ReconciliationOutcome{
		PurchaseId:              purchase.ID,
		TotalReal:               purchase.TotalReal,
		TotalShadow:             purchase.TotalShadow,
		PaidAmount:              paid,
		DueAmount:               utils.ClampNonNegative(total.Sub(paid)),
		UsedAdvance:             purchase.AdvanceUsedAmount,
		PaymentStatus:           purchase.PaymentStatus(view),
		SupplierCreditRemaining: remaining,
	}, nil
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
