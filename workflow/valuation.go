package workflow

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/models"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
)

// ActiveValuationView resolves which valuation the acting identity reads and
// posts payments against. The session middleware stores the role-derived view
// in the context; the shadow view additionally requires the feature flag, so
// a shadow-role user on a business without the flag degrades to the real view.
func ActiveValuationView(ctx context.Context) models.ValuationView {
	view, ok := utils.GetValuationViewFromContext(ctx)
	if !ok {
		return models.ValuationViewReal
	}
	parsed, err := models.ParseValuationView(view)
	if err != nil {
		return models.ValuationViewReal
	}
	if parsed == models.ValuationViewShadow && !config.ShadowValuationEnabled() {
		return models.ValuationViewReal
	}
	return parsed
}

// UnitCostRevision re-prices one valuation view of a purchase item.
type UnitCostRevision struct {
	ItemId   int
	UnitCost decimal.Decimal
}

// ReviseUnitCosts updates unit costs of exactly one view and re-derives every
// line total and both aggregates. Quantities are shared between views and are
// not touched here, so the two valuations can never diverge on quantity; the
// inactive view's totals are maintained passively by the same recompute.
func ReviseUnitCosts(purchase *models.Purchase, view models.ValuationView, revisions []UnitCostRevision) error {
	if purchase.CurrentStatus == models.PurchaseStatusConfirmed && config.StrictPurchaseImmutability() {
		return errors.New("committed purchase totals are frozen")
	}
	byItem := make(map[int]decimal.Decimal, len(revisions))
	for _, rev := range revisions {
		if rev.UnitCost.IsNegative() {
			return ErrInvalidAmount
		}
		byItem[rev.ItemId] = rev.UnitCost
	}
	matched := 0
	for i := range purchase.Items {
		item := &purchase.Items[i]
		cost, ok := byItem[item.ID]
		if !ok {
			continue
		}
		matched++
		if view == models.ValuationViewShadow {
			item.UnitCostShadow = cost
		} else {
			item.UnitCostReal = cost
		}
	}
	if matched != len(byItem) {
		return utils.ErrorRecordNotFound
	}
	purchase.RecomputeTotals()
	return nil
}

// ReviseQuantity changes an item's shared quantity and re-derives both views.
func ReviseQuantity(purchase *models.Purchase, itemId int, qty decimal.Decimal) error {
	if purchase.CurrentStatus == models.PurchaseStatusConfirmed && config.StrictPurchaseImmutability() {
		return errors.New("committed purchase totals are frozen")
	}
	if !qty.IsPositive() {
		return ErrInvalidAmount
	}
	for i := range purchase.Items {
		if purchase.Items[i].ID == itemId {
			purchase.Items[i].Qty = qty
			purchase.RecomputeTotals()
			return nil
		}
	}
	return utils.ErrorRecordNotFound
}
