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

type PurchaseRevisionInput struct {
	UnitCosts    []UnitCostRevision `json:"unit_costs"`
	QuantityItem int                `json:"quantity_item_id"`
	Quantity     decimal.Decimal    `json:"quantity"`
}

// ProcessPurchaseRevision applies unit-cost or quantity revisions and
// persists the re-derived totals. Payment statuses of both views are
// re-derived too, since a total change can move a purchase between paid and
// partial without any payment happening.
//
// Unit-cost revisions land on the acting identity's valuation view only;
// the request cannot name a view of its own.
func ProcessPurchaseRevision(ctx context.Context, logger *logrus.Logger, purchaseId int, input PurchaseRevisionInput) (*models.Purchase, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	view := ActiveValuationView(ctx)

	var revised *models.Purchase
	db := config.GetDB()
	err := db.Transaction(func(tx *gorm.DB) error {
		txCtx := tx.WithContext(ctx)
		if err := AcquirePurchasePostingLock(txCtx, businessId, purchaseId); err != nil {
			return wrapReconciliation("posting lock", err)
		}
		defer ReleasePurchasePostingLock(txCtx, businessId, purchaseId)

		var purchase models.Purchase
		err := txCtx.Where("business_id = ?", businessId).Preload("Items").First(&purchase, purchaseId).Error
		if err != nil {
			return utils.ErrorRecordNotFound
		}
		if purchase.CurrentStatus == models.PurchaseStatusVoid {
			return errors.New("cannot revise a void purchase")
		}

		if len(input.UnitCosts) > 0 {
			if err := ReviseUnitCosts(&purchase, view, input.UnitCosts); err != nil {
				return err
			}
		}
		if input.QuantityItem > 0 {
			if err := ReviseQuantity(&purchase, input.QuantityItem, input.Quantity); err != nil {
				return err
			}
		}

		for i := range purchase.Items {
			item := purchase.Items[i]
			err = txCtx.Model(&models.PurchaseItem{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
				"Qty":             item.Qty,
				"UnitCostReal":    item.UnitCostReal,
				"UnitCostShadow":  item.UnitCostShadow,
				"LineTotalReal":   item.LineTotalReal,
				"LineTotalShadow": item.LineTotalShadow,
			}).Error
			if err != nil {
				config.LogError(logger, "RevisionWorkflow.go", "ProcessPurchaseRevision", "UpdateItem", item.ID, err)
				return wrapReconciliation("item persist", err)
			}
		}

		statusReal := derivePaymentStatus(purchase.PaidAmountReal, purchase.TotalReal)
		statusShadow := derivePaymentStatus(purchase.PaidAmountShadow, purchase.TotalShadow)
		purchase.PaymentStatusReal = statusReal
		purchase.PaymentStatusShadow = statusShadow

		err = txCtx.Model(&models.Purchase{}).Where("id = ?", purchase.ID).Updates(map[string]interface{}{
			"TotalReal":           purchase.TotalReal,
			"TotalShadow":         purchase.TotalShadow,
			"PaymentStatusReal":   statusReal,
			"PaymentStatusShadow": statusShadow,
		}).Error
		if err != nil {
			config.LogError(logger, "RevisionWorkflow.go", "ProcessPurchaseRevision", "UpdatePurchase", purchase.ID, err)
			return wrapReconciliation("purchase persist", err)
		}
		revised = &purchase
		return nil
	})
	if err != nil {
		return nil, err
	}
	return revised, nil
}
