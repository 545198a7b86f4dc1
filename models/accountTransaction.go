package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccountTransaction is one journal row written whenever a reconciliation
// moves money: account debits, supplier credit drawdowns, advance grants.
// Rows are append-only; corrections post a compensating row.
type AccountTransaction struct {
	ID                  int                  `gorm:"primary_key" json:"id"`
	BusinessId          string               `gorm:"index;not null" json:"business_id"`
	MoneyAccountId      int                  `gorm:"index;default:null" json:"money_account_id"`
	SupplierId          int                  `gorm:"index;default:null" json:"supplier_id"`
	TransactionDateTime time.Time            `gorm:"not null;index" json:"transaction_date_time"`
	Debit               decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"debit"`
	Credit              decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"credit"`
	ValuationView       ValuationView        `gorm:"type:enum('Real','Shadow');default:'Real'" json:"valuation_view"`
	ReferenceType       AccountReferenceType `gorm:"size:10;index;not null" json:"reference_type"`
	ReferenceId         int                  `gorm:"index;not null" json:"reference_id"`
	Description         string               `gorm:"size:255" json:"description"`
	CorrelationId       string               `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt           time.Time            `gorm:"autoCreateTime" json:"created_at"`
}

func (at AccountTransaction) GetBusinessId() string {
	return at.BusinessId
}

// CreateAccountTransactions appends journal rows inside the caller's
// transaction.
func CreateAccountTransactions(tx *gorm.DB, transactions []AccountTransaction) error {
	if len(transactions) == 0 {
		return nil
	}
	return tx.Create(&transactions).Error
}

// GetAccountTransactions lists journal rows for one funding account, most
// recent first.
func GetAccountTransactions(ctx context.Context, moneyAccountId int, limit int) ([]*AccountTransaction, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if limit <= 0 {
		limit = config.SearchLimit
	}

	db := config.GetDB()
	var results []*AccountTransaction
	err := db.WithContext(ctx).
		Where("business_id = ? AND money_account_id = ?", businessId, moneyAccountId).
		Order("transaction_date_time DESC, id DESC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetSupplierTransactions lists journal rows touching one supplier's advance.
func GetSupplierTransactions(ctx context.Context, supplierId int, limit int) ([]*AccountTransaction, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if limit <= 0 {
		limit = config.SearchLimit
	}

	db := config.GetDB()
	var results []*AccountTransaction
	err := db.WithContext(ctx).
		Where("business_id = ? AND supplier_id = ?", businessId, supplierId).
		Order("transaction_date_time DESC, id DESC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
