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

// ErrInsufficientAccountBalance is returned by DebitMoneyAccount when the
// conditional UPDATE matches no row, i.e. the balance check and the debit did
// not hold together atomically.
var ErrInsufficientAccountBalance = errors.New("insufficient account balance")

// MoneyAccount is a funding pool (cash drawer, bank account, mobile wallet)
// debited to settle purchase payments. CurrentBalance is mutated only through
// DebitMoneyAccount / CreditMoneyAccount.
type MoneyAccount struct {
	ID             int              `gorm:"primary_key" json:"id"`
	BusinessId     string           `gorm:"index;not null" json:"business_id"`
	AccountType    MoneyAccountType `gorm:"type:enum('Cash','Bank','Mobile');default:'Cash';size:12;not null" json:"account_type" binding:"required"`
	AccountName    string           `gorm:"index;size:100;not null" json:"account_name" binding:"required"`
	AccountNumber  string           `gorm:"size:50" json:"account_number"`
	BankName       string           `gorm:"size:100" json:"bank_name"`
	CurrentBalance decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"current_balance"`
	Description    string           `gorm:"type:text" json:"description"`
	IsActive       *bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewMoneyAccount struct {
	AccountType    MoneyAccountType `json:"account_type" binding:"required"`
	AccountName    string           `json:"account_name" binding:"required"`
	AccountNumber  string           `json:"account_number"`
	BankName       string           `json:"bank_name"`
	OpeningBalance decimal.Decimal  `json:"opening_balance"`
	Description    string           `json:"description"`
}

func (ma MoneyAccount) GetBusinessId() string {
	return ma.BusinessId
}

func (ma MoneyAccount) GetCursor() string {
	return ma.CreatedAt.String()
}

func (ma MoneyAccount) GetId() int {
	return ma.ID
}

// validate input for both create & update. (id = 0 for create)
func (input *NewMoneyAccount) validate(ctx context.Context, businessId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[MoneyAccount](ctx, businessId, id); err != nil {
			return err
		}
	}
	// name
	if err := utils.ValidateUnique[MoneyAccount](ctx, businessId, "account_name", input.AccountName, id); err != nil {
		return err
	}
	if _, err := ParseMoneyAccountType(string(input.AccountType)); err != nil {
		return err
	}
	if input.OpeningBalance.IsNegative() {
		return errors.New("opening balance cannot be negative")
	}
	return nil
}

func CreateMoneyAccount(ctx context.Context, input *NewMoneyAccount) (*MoneyAccount, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}
	account := MoneyAccount{
		BusinessId:     businessId,
		AccountType:    input.AccountType,
		AccountName:    input.AccountName,
		AccountNumber:  input.AccountNumber,
		BankName:       input.BankName,
		CurrentBalance: utils.Round2(input.OpeningBalance),
		Description:    input.Description,
		IsActive:       utils.NewTrue(),
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func UpdateMoneyAccount(ctx context.Context, id int, input *NewMoneyAccount) (*MoneyAccount, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	account, err := utils.FetchModel[MoneyAccount](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	// CurrentBalance is deliberately excluded: balances only move through
	// the debit/credit operations below.
	err = db.WithContext(ctx).Model(&account).Updates(map[string]interface{}{
		"AccountType":   input.AccountType,
		"AccountName":   input.AccountName,
		"AccountNumber": input.AccountNumber,
		"BankName":      input.BankName,
		"Description":   input.Description,
	}).Error
	if err != nil {
		return nil, err
	}
	if err := utils.ClearRedis[MoneyAccount](id); err != nil {
		return nil, err
	}
	return account, nil
}

func DeleteMoneyAccount(ctx context.Context, id int) (*MoneyAccount, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	result, err := utils.FetchModel[MoneyAccount](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	// Do not delete an account that has journal history
	var count int64
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&AccountTransaction{}).Where("money_account_id = ?", id).Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by account transactions")
	}

	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}
	if err := utils.ClearRedis[MoneyAccount](id); err != nil {
		return nil, err
	}

	return result, nil
}

func GetMoneyAccount(ctx context.Context, id int) (*MoneyAccount, error) {

	return GetResource[MoneyAccount](ctx, id)
}

func GetMoneyAccounts(ctx context.Context, accountType *string, accountName *string) ([]*MoneyAccount, error) {

	db := config.GetDB()
	var results []*MoneyAccount

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if accountType != nil && len(*accountType) > 0 {
		dbCtx = dbCtx.Where("account_type = ?", accountType)
	}
	if accountName != nil && len(*accountName) > 0 {
		dbCtx = dbCtx.Where("account_name LIKE ?", "%"+*accountName+"%")
	}
	err := dbCtx.Order("account_name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func ToggleActiveMoneyAccount(ctx context.Context, id int, isActive bool) (*MoneyAccount, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	return ToggleActiveModel[MoneyAccount](ctx, businessId, id, isActive)
}

// GetMoneyAccountBalance reads the live balance on the caller's transaction
// handle, bypassing the redis cache. A missing account is reported as
// not-found, not as a zero balance.
func GetMoneyAccountBalance(tx *gorm.DB, businessId string, id int) (decimal.Decimal, error) {
	var account MoneyAccount
	err := tx.
		Where("business_id = ? AND id = ?", businessId, id).
		Select("current_balance").
		First(&account).Error
	if err != nil {
		return decimal.Zero, utils.ErrorRecordNotFound
	}
	return account.CurrentBalance, nil
}

// DebitMoneyAccount subtracts amount from the account balance. The balance
// guard lives in the UPDATE's WHERE clause so that two concurrent debits can
// never both pass a read-then-write check and drive the balance below zero.
func DebitMoneyAccount(tx *gorm.DB, businessId string, id int, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.New("debit amount cannot be negative")
	}
	if amount.IsZero() {
		return nil
	}
	result := tx.Model(&MoneyAccount{}).
		Where("business_id = ? AND id = ? AND current_balance >= ?", businessId, id, amount).
		UpdateColumn("current_balance", gorm.Expr("current_balance - ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientAccountBalance
	}
	return utils.ClearRedis[MoneyAccount](id)
}

// CreditMoneyAccount adds amount to the account balance (deposits, refunds).
func CreditMoneyAccount(tx *gorm.DB, businessId string, id int, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.New("credit amount cannot be negative")
	}
	if amount.IsZero() {
		return nil
	}
	result := tx.Model(&MoneyAccount{}).
		Where("business_id = ? AND id = ?", businessId, id).
		UpdateColumn("current_balance", gorm.Expr("current_balance + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return utils.ClearRedis[MoneyAccount](id)
}
