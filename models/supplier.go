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

// ErrInsufficientSupplierCredit is returned by DrawdownSupplierCredit when the
// supplier's available advance cannot cover the requested drawdown.
var ErrInsufficientSupplierCredit = errors.New("insufficient supplier credit")

// Supplier tracks, besides contact data, the running advance the business has
// prepaid (AdvanceAmount) and what it still owes the supplier (DueAmount).
// Available credit is max(0, advance - due); see AvailableSupplierCredit.
type Supplier struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BusinessId    string          `gorm:"index;not null" json:"business_id"`
	Name          string          `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Email         string          `gorm:"size:100" json:"email"`
	Phone         string          `gorm:"size:20" json:"phone"`
	Mobile        string          `gorm:"size:20" json:"mobile"`
	Address       string          `gorm:"type:text" json:"address"`
	AdvanceAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"advance_amount"`
	DueAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"due_amount"`
	Notes         string          `gorm:"type:text;default:null" json:"notes"`
	IsActive      *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSupplier struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Mobile  string `json:"mobile"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

func (s Supplier) GetBusinessId() string {
	return s.BusinessId
}

func (s Supplier) GetCursor() string {
	return s.CreatedAt.String()
}

func (s Supplier) GetId() int {
	return s.ID
}

// AvailableCredit is the drawable portion of the supplier's advance.
func (s Supplier) AvailableCredit() decimal.Decimal {
	return utils.ClampNonNegative(s.AdvanceAmount.Sub(s.DueAmount))
}

// validate input for both create & update. (id = 0 for create)
func (input *NewSupplier) validate(ctx context.Context, businessId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Supplier](ctx, businessId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[Supplier](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return errors.New("invalid phone number")
		}
	}
	if input.Mobile != "" {
		if err := utils.ValidatePhoneNumber(input.Mobile, utils.CountryCode); err != nil {
			return errors.New("invalid mobile number")
		}
	}
	return nil
}

func CreateSupplier(ctx context.Context, input *NewSupplier) (*Supplier, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}
	supplier := Supplier{
		BusinessId: businessId,
		Name:       input.Name,
		Email:      input.Email,
		Phone:      input.Phone,
		Mobile:     input.Mobile,
		Address:    input.Address,
		Notes:      input.Notes,
		IsActive:   utils.NewTrue(),
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&supplier).Error
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

func UpdateSupplier(ctx context.Context, id int, input *NewSupplier) (*Supplier, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	supplier, err := utils.FetchModel[Supplier](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	// AdvanceAmount / DueAmount are excluded: credit balances only move
	// through the drawdown/grant operations below.
	err = db.WithContext(ctx).Model(&supplier).Updates(map[string]interface{}{
		"Name":    input.Name,
		"Email":   input.Email,
		"Phone":   input.Phone,
		"Mobile":  input.Mobile,
		"Address": input.Address,
		"Notes":   input.Notes,
	}).Error
	if err != nil {
		return nil, err
	}
	if err := utils.ClearRedis[Supplier](id); err != nil {
		return nil, err
	}
	return supplier, nil
}

func DeleteSupplier(ctx context.Context, id int) (*Supplier, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	result, err := utils.FetchModel[Supplier](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	// Do not delete a supplier with purchases on record
	var count int64
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&Purchase{}).Where("supplier_id = ?", id).Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by purchases")
	}

	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}
	if err := utils.ClearRedis[Supplier](id); err != nil {
		return nil, err
	}

	return result, nil
}

func GetSupplier(ctx context.Context, id int) (*Supplier, error) {

	return GetResource[Supplier](ctx, id)
}

func GetSuppliers(ctx context.Context, name *string) ([]*Supplier, error) {

	db := config.GetDB()
	var results []*Supplier

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func ToggleActiveSupplier(ctx context.Context, id int, isActive bool) (*Supplier, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	return ToggleActiveModel[Supplier](ctx, businessId, id, isActive)
}

// AvailableSupplierCredit reads the live advance balance on the caller's
// transaction handle, bypassing the redis cache.
func AvailableSupplierCredit(tx *gorm.DB, businessId string, id int) (decimal.Decimal, error) {
	var supplier Supplier
	err := tx.
		Where("business_id = ? AND id = ?", businessId, id).
		Select("advance_amount", "due_amount").
		First(&supplier).Error
	if err != nil {
		return decimal.Zero, utils.ErrorRecordNotFound
	}
	return supplier.AvailableCredit(), nil
}

// DrawdownSupplierCredit consumes amount of the supplier's advance. The
// availability guard is part of the UPDATE's WHERE clause, so concurrent
// drawdowns against the same supplier cannot overdraw the advance.
func DrawdownSupplierCredit(tx *gorm.DB, businessId string, id int, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.New("drawdown amount cannot be negative")
	}
	if amount.IsZero() {
		return nil
	}
	result := tx.Model(&Supplier{}).
		Where("business_id = ? AND id = ? AND advance_amount - due_amount >= ?", businessId, id, amount).
		UpdateColumn("advance_amount", gorm.Expr("advance_amount - ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientSupplierCredit
	}
	return utils.ClearRedis[Supplier](id)
}

// GrantSupplierCredit adds amount to the supplier's advance (the prepayment
// flow; see workflow.ProcessSupplierAdvance).
func GrantSupplierCredit(tx *gorm.DB, businessId string, id int, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.New("grant amount cannot be negative")
	}
	if amount.IsZero() {
		return nil
	}
	result := tx.Model(&Supplier{}).
		Where("business_id = ? AND id = ?", businessId, id).
		UpdateColumn("advance_amount", gorm.Expr("advance_amount + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return utils.ClearRedis[Supplier](id)
}

// AddSupplierDue increases what the business owes the supplier (unpaid part
// of a committed purchase).
func AddSupplierDue(tx *gorm.DB, businessId string, id int, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.New("due amount cannot be negative")
	}
	if amount.IsZero() {
		return nil
	}
	result := tx.Model(&Supplier{}).
		Where("business_id = ? AND id = ?", businessId, id).
		UpdateColumn("due_amount", gorm.Expr("due_amount + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return utils.ClearRedis[Supplier](id)
}

// SettleSupplierDue decreases the supplier's due when a payment clears it.
func SettleSupplierDue(tx *gorm.DB, businessId string, id int, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.New("settle amount cannot be negative")
	}
	if amount.IsZero() {
		return nil
	}
	result := tx.Model(&Supplier{}).
		Where("business_id = ? AND id = ? AND due_amount >= ?", businessId, id, amount).
		UpdateColumn("due_amount", gorm.Expr("due_amount - ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("due amount below settlement")
	}
	return utils.ClearRedis[Supplier](id)
}
