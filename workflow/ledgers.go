package workflow

import (
	"bitbucket.org/mmdatafocus/retail_backend/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccountLedger is the funding-account surface the reconciler consumes.
// Debit must be atomic with respect to concurrent debits on the same account:
// the balance check and the subtraction hold together or not at all.
type AccountLedger interface {
	GetBalance(accountId int) (decimal.Decimal, error)
	Debit(accountId int, amount decimal.Decimal) error
}

// SupplierCreditLedger is the supplier-advance surface the reconciler
// consumes. Drawdown carries the same atomicity requirement as Debit.
type SupplierCreditLedger interface {
	AvailableCredit(supplierId int) (decimal.Decimal, error)
	Drawdown(supplierId int, amount decimal.Decimal) error
}

type gormAccountLedger struct {
	tx         *gorm.DB
	businessId string
}

// NewAccountLedger binds the account ledger to the caller's transaction
// handle so its mutations commit or roll back with the reconciliation.
func NewAccountLedger(tx *gorm.DB, businessId string) AccountLedger {
	return &gormAccountLedger{tx: tx, businessId: businessId}
}

func (l *gormAccountLedger) GetBalance(accountId int) (decimal.Decimal, error) {
	return models.GetMoneyAccountBalance(l.tx, l.businessId, accountId)
}

func (l *gormAccountLedger) Debit(accountId int, amount decimal.Decimal) error {
	return models.DebitMoneyAccount(l.tx, l.businessId, accountId, amount)
}

type gormSupplierCreditLedger struct {
	tx         *gorm.DB
	businessId string
}

// NewSupplierCreditLedger binds the supplier credit ledger to the caller's
// transaction handle.
func NewSupplierCreditLedger(tx *gorm.DB, businessId string) SupplierCreditLedger {
	return &gormSupplierCreditLedger{tx: tx, businessId: businessId}
}

func (l *gormSupplierCreditLedger) AvailableCredit(supplierId int) (decimal.Decimal, error) {
	return models.AvailableSupplierCredit(l.tx, l.businessId, supplierId)
}

func (l *gormSupplierCreditLedger) Drawdown(supplierId int, amount decimal.Decimal) error {
	return models.DrawdownSupplierCredit(l.tx, l.businessId, supplierId, amount)
}
