package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
)

// Purchase is one inbound stock acquisition carrying two parallel valuations.
// Real and Shadow figures share quantities; unit costs and payment fields are
// tracked per view. Totals are derived, never entered.
type Purchase struct {
	ID                  int             `gorm:"primary_key" json:"id"`
	BusinessId          string          `gorm:"index;not null;uniqueIndex:uniq_business_purchase_number" json:"business_id"`
	SupplierId          int             `gorm:"index;not null" json:"supplier_id" binding:"required"`
	MoneyAccountId      int             `gorm:"index;default:null" json:"money_account_id"`
	SequenceNo          decimal.Decimal `gorm:"type:decimal(15);not null" json:"sequence_no"`
	PurchaseNumber      string          `gorm:"size:255;not null;uniqueIndex:uniq_business_purchase_number" json:"purchase_number"`
	PurchaseDate        time.Time       `gorm:"not null" json:"purchase_date" binding:"required"`
	Notes               string          `gorm:"type:text;default:null" json:"notes"`
	PaymentMode         PaymentMode     `gorm:"type:enum('Unpaid','Partial','Paid','ManualOverride','AdvanceDrawdown');default:'Unpaid'" json:"payment_mode"`
	TotalReal           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_real"`
	TotalShadow         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_shadow"`
	PaidAmountReal      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"paid_amount_real"`
	PaidAmountShadow    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"paid_amount_shadow"`
	AdvanceUsedAmount   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"advance_used_amount"`
	PaymentStatusReal   PaymentStatus   `gorm:"type:enum('Unpaid','Partial Paid','Paid');default:'Unpaid'" json:"payment_status_real"`
	PaymentStatusShadow PaymentStatus   `gorm:"type:enum('Unpaid','Partial Paid','Paid');default:'Unpaid'" json:"payment_status_shadow"`
	CurrentStatus       PurchaseStatus  `gorm:"type:enum('Draft','Confirmed','Void');default:'Draft'" json:"current_status"`
	Items               []PurchaseItem  `json:"purchase_items" validate:"required,dive,required"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// PurchaseItem is one product line. Both line totals are recomputed from
// qty x unit cost on every mutation; they are never stored independently of
// their inputs.
type PurchaseItem struct {
	ID              int             `gorm:"primary_key" json:"id"`
	PurchaseId      int             `gorm:"index;not null" json:"purchase_id"`
	ProductName     string          `gorm:"size:100;not null" json:"product_name" binding:"required"`
	Qty             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty" binding:"required"`
	UnitCostReal    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost_real"`
	UnitCostShadow  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost_shadow"`
	LineTotalReal   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_total_real"`
	LineTotalShadow decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_total_shadow"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPurchase struct {
	SupplierId     int               `json:"supplier_id" binding:"required"`
	MoneyAccountId int               `json:"money_account_id"`
	PurchaseDate   time.Time         `json:"purchase_date" binding:"required"`
	Notes          string            `json:"notes"`
	Items          []NewPurchaseItem `json:"items" binding:"required,dive"`
}

type NewPurchaseItem struct {
	ProductName    string          `json:"product_name" binding:"required"`
	Qty            decimal.Decimal `json:"qty" binding:"required"`
	UnitCostReal   decimal.Decimal `json:"unit_cost_real"`
	UnitCostShadow decimal.Decimal `json:"unit_cost_shadow"`
}

type PurchasesEdge Edge[Purchase]
type PurchasesConnection struct {
	PageInfo *PageInfo        `json:"pageInfo"`
	Edges    []*PurchasesEdge `json:"edges"`
}

func (p Purchase) GetBusinessId() string {
	return p.BusinessId
}

func (p Purchase) GetCursor() string {
	return p.CreatedAt.String()
}

func (p Purchase) GetId() int {
	return p.ID
}

// Total returns the aggregate for one valuation view.
func (p Purchase) Total(view ValuationView) decimal.Decimal {
	if view == ValuationViewShadow {
		return p.TotalShadow
	}
	return p.TotalReal
}

// PaidAmount returns the paid amount for one valuation view.
func (p Purchase) PaidAmount(view ValuationView) decimal.Decimal {
	if view == ValuationViewShadow {
		return p.PaidAmountShadow
	}
	return p.PaidAmountReal
}

// PaymentStatus returns the payment status for one valuation view.
func (p Purchase) PaymentStatus(view ValuationView) PaymentStatus {
	if view == ValuationViewShadow {
		return p.PaymentStatusShadow
	}
	return p.PaymentStatusReal
}

// SetPayment writes the paid amount and status of exactly one view; the other
// view's payment fields are untouched.
func (p *Purchase) SetPayment(view ValuationView, paid decimal.Decimal, status PaymentStatus) {
	if view == ValuationViewShadow {
		p.PaidAmountShadow = paid
		p.PaymentStatusShadow = status
		return
	}
	p.PaidAmountReal = paid
	p.PaymentStatusReal = status
}

// RecomputeTotals re-derives every line total and both aggregates from the
// current quantities and unit costs. Stale totals are never trusted.
func (p *Purchase) RecomputeTotals() {
	totalReal := decimal.Zero
	totalShadow := decimal.Zero
	for i := range p.Items {
		item := &p.Items[i]
		item.LineTotalReal = utils.Round2(item.Qty.Mul(item.UnitCostReal))
		item.LineTotalShadow = utils.Round2(item.Qty.Mul(item.UnitCostShadow))
		totalReal = totalReal.Add(item.LineTotalReal)
		totalShadow = totalShadow.Add(item.LineTotalShadow)
	}
	p.TotalReal = utils.Round2(totalReal)
	p.TotalShadow = utils.Round2(totalShadow)
}

func (input *NewPurchase) validate(ctx context.Context, businessId string) error {
	if err := utils.ValidateResourceId[Supplier](ctx, businessId, input.SupplierId); err != nil {
		return errors.New("supplier not found")
	}
	if input.MoneyAccountId > 0 {
		if err := utils.ValidateResourceId[MoneyAccount](ctx, businessId, input.MoneyAccountId); err != nil {
			return errors.New("money account not found")
		}
	}
	if len(input.Items) == 0 {
		return errors.New("purchase requires at least one item")
	}
	for _, item := range input.Items {
		if !item.Qty.IsPositive() {
			return errors.New("item quantity must be positive")
		}
		if item.UnitCostReal.IsNegative() || item.UnitCostShadow.IsNegative() {
			return errors.New("item unit cost cannot be negative")
		}
	}
	return nil
}

// CreatePurchase stores a purchase draft with both valuations derived.
// Payment fields start at Unpaid/0; posting a payment goes through the
// reconciliation workflow.
func CreatePurchase(ctx context.Context, input *NewPurchase) (*Purchase, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	purchase := Purchase{
		BusinessId:          businessId,
		SupplierId:          input.SupplierId,
		MoneyAccountId:      input.MoneyAccountId,
		PurchaseDate:        input.PurchaseDate,
		Notes:               input.Notes,
		PaymentMode:         PaymentModeUnpaid,
		PaymentStatusReal:   PaymentStatusUnpaid,
		PaymentStatusShadow: PaymentStatusUnpaid,
		CurrentStatus:       PurchaseStatusDraft,
	}
	for _, item := range input.Items {
		purchase.Items = append(purchase.Items, PurchaseItem{
			ProductName:    item.ProductName,
			Qty:            item.Qty,
			UnitCostReal:   item.UnitCostReal,
			UnitCostShadow: item.UnitCostShadow,
		})
	}
	purchase.RecomputeTotals()

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	seqNo, err := utils.GetSequence[Purchase](ctx, businessId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	purchase.SequenceNo = decimal.NewFromInt(seqNo)
	purchase.PurchaseNumber = FormatPurchaseNumber(seqNo)

	if err := tx.Create(&purchase).Error; err != nil {
		tx.Rollback()
		// the unique index backstops the allocator against a racing creator
		if utils.IsDuplicateKeyError(err) {
			return nil, utils.ErrorDuplicateValue
		}
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

// FormatPurchaseNumber renders an allocated sequence as the document number
// printed on purchase records.
func FormatPurchaseNumber(seqNo int64) string {
	return fmt.Sprintf("PUR-%06d", seqNo)
}

func GetPurchase(ctx context.Context, id int) (*Purchase, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[Purchase](ctx, businessId, id, "Items")
}

func GetPurchases(ctx context.Context, supplierId *int, paymentStatus *string, view ValuationView) ([]*Purchase, error) {

	db := config.GetDB()
	var results []*Purchase

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId).Preload("Items")
	if supplierId != nil && *supplierId > 0 {
		dbCtx = dbCtx.Where("supplier_id = ?", supplierId)
	}
	if paymentStatus != nil && len(*paymentStatus) > 0 {
		// listing filters on the caller's active valuation only
		if view == ValuationViewShadow {
			dbCtx = dbCtx.Where("payment_status_shadow = ?", paymentStatus)
		} else {
			dbCtx = dbCtx.Where("payment_status_real = ?", paymentStatus)
		}
	}
	err := dbCtx.Order("purchase_date DESC, id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func PaginatePurchase(ctx context.Context, limit *int, after *string,
	supplierId *int) (*PurchasesConnection, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId).Preload("Items")
	if supplierId != nil && *supplierId > 0 {
		dbCtx = dbCtx.Where("supplier_id = ?", supplierId)
	}
	edges, pageInfo, err := FetchPageCompositeCursor[Purchase](dbCtx, *limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}
	var purchasesConnection PurchasesConnection
	purchasesConnection.PageInfo = pageInfo
	for _, edge := range edges {
		purchaseEdge := PurchasesEdge(edge)
		purchasesConnection.Edges = append(purchasesConnection.Edges, &purchaseEdge)
	}
	return &purchasesConnection, err
}
