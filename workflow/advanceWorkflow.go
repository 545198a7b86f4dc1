package workflow

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/models"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type SupplierAdvanceInput struct {
	SupplierId     int             `json:"supplier_id" binding:"required"`
	MoneyAccountId int             `json:"money_account_id" binding:"required"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	Notes          string          `json:"notes"`
}

type SupplierAdvanceOutcome struct {
	SupplierId              int             `json:"supplier_id"`
	AmountGranted           decimal.Decimal `json:"amount_granted"`
	SupplierCreditRemaining decimal.Decimal `json:"supplier_credit_remaining"`
	AccountBalance          decimal.Decimal `json:"account_balance"`
}

// ProcessSupplierAdvance pays money out of a funding account into a
// supplier's advance balance. Later purchases can draw this credit down
// instead of paying cash again.
func ProcessSupplierAdvance(ctx context.Context, logger *logrus.Logger, input SupplierAdvanceInput) (*SupplierAdvanceOutcome, error) {

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
	correlationId := correlationIdFromContextOrNew(ctx)

	var outcome *SupplierAdvanceOutcome
	db := config.GetDB()
	err := db.Transaction(func(tx *gorm.DB) error {
		txCtx := tx.WithContext(ctx)
		if err := AcquireBusinessPostingLock(txCtx, businessId); err != nil {
			return wrapReconciliation("posting lock", err)
		}
		defer ReleaseBusinessPostingLock(txCtx, businessId)

		if err := models.DebitMoneyAccount(txCtx, businessId, input.MoneyAccountId, amount); err != nil {
			if errors.Is(err, models.ErrInsufficientAccountBalance) {
				return ErrInsufficientFunds
			}
			config.LogError(logger, "AdvanceWorkflow.go", "ProcessSupplierAdvance", "DebitMoneyAccount", amount, err)
			return wrapReconciliation("account debit", err)
		}
		if err := models.GrantSupplierCredit(txCtx, businessId, input.SupplierId, amount); err != nil {
			config.LogError(logger, "AdvanceWorkflow.go", "ProcessSupplierAdvance", "GrantSupplierCredit", amount, err)
			return wrapReconciliation("supplier credit grant", err)
		}

		err := models.CreateAccountTransactions(txCtx, []models.AccountTransaction{{
			BusinessId:          businessId,
			MoneyAccountId:      input.MoneyAccountId,
			SupplierId:          input.SupplierId,
			TransactionDateTime: time.Now(),
			Credit:              amount,
			ValuationView:       models.ValuationViewReal,
			ReferenceType:       models.AccountReferenceTypeSupplierAdvance,
			ReferenceId:         input.SupplierId,
			Description:         input.Notes,
			CorrelationId:       correlationId,
		}})
		if err != nil {
			config.LogError(logger, "AdvanceWorkflow.go", "ProcessSupplierAdvance", "CreateAccountTransactions", amount, err)
			return wrapReconciliation("journal persist", err)
		}

		remaining, err := models.AvailableSupplierCredit(txCtx, businessId, input.SupplierId)
		if err != nil {
			return wrapReconciliation("supplier credit read", err)
		}
		balance, err := models.GetMoneyAccountBalance(txCtx, businessId, input.MoneyAccountId)
		if err != nil {
			return wrapReconciliation("account balance read", err)
		}
		outcome = &SupplierAdvanceOutcome{
			SupplierId:              input.SupplierId,
			AmountGranted:           amount,
			SupplierCreditRemaining: remaining,
			AccountBalance:          balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}
