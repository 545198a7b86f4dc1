package workflow

import (
	"context"
	"testing"

	"bitbucket.org/mmdatafocus/retail_backend/models"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
)

// The session middleware stores the role-derived view; every workflow
// resolves it through ActiveValuationView, so nothing in a request body can
// redirect a mutation onto the other ledger.
func TestActiveValuationView_FollowsSessionNotRequest(t *testing.T) {
	t.Setenv("SHADOW_VALUATION_ENABLED", "true")

	if v := ActiveValuationView(context.Background()); v != models.ValuationViewReal {
		t.Errorf("missing session must degrade to real, got %s", v)
	}

	ctx := utils.SetValuationViewInContext(context.Background(), string(models.ValuationViewShadow))
	if v := ActiveValuationView(ctx); v != models.ValuationViewShadow {
		t.Errorf("shadow session must resolve shadow, got %s", v)
	}

	ctx = utils.SetValuationViewInContext(context.Background(), "Sideways")
	if v := ActiveValuationView(ctx); v != models.ValuationViewReal {
		t.Errorf("unknown view must degrade to real, got %s", v)
	}
}

func TestActiveValuationView_ShadowRequiresFeatureFlag(t *testing.T) {
	t.Setenv("SHADOW_VALUATION_ENABLED", "false")

	ctx := utils.SetValuationViewInContext(context.Background(), string(models.ValuationViewShadow))
	if v := ActiveValuationView(ctx); v != models.ValuationViewReal {
		t.Errorf("shadow without the flag must degrade to real, got %s", v)
	}
}

func twoItemPurchase() *models.Purchase {
	p := &models.Purchase{
		ID:            1,
		BusinessId:    "biz-1",
		SupplierId:    7,
		CurrentStatus: models.PurchaseStatusDraft,
		Items: []models.PurchaseItem{
			{ID: 11, ProductName: "Rice 25kg", Qty: dec("10"), UnitCostReal: dec("100"), UnitCostShadow: dec("90")},
			{ID: 12, ProductName: "Oil 5L", Qty: dec("4"), UnitCostReal: dec("50"), UnitCostShadow: dec("45")},
		},
	}
	p.RecomputeTotals()
	return p
}

func TestReviseUnitCosts_TouchesOnlyOneView(t *testing.T) {
	p := twoItemPurchase()
	shadowBefore := p.TotalShadow

	err := ReviseUnitCosts(p, models.ValuationViewReal, []UnitCostRevision{
		{ItemId: 11, UnitCost: dec("110")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !p.TotalReal.Equal(dec("1300")) {
		t.Errorf("expected real total 1300, got %s", p.TotalReal)
	}
	if !p.TotalShadow.Equal(shadowBefore) {
		t.Errorf("shadow total must not move on a real revision, got %s", p.TotalShadow)
	}
}

func TestReviseUnitCosts_UnknownItemRejected(t *testing.T) {
	p := twoItemPurchase()
	err := ReviseUnitCosts(p, models.ValuationViewReal, []UnitCostRevision{
		{ItemId: 99, UnitCost: dec("110")},
	})
	if err == nil {
		t.Fatal("expected error for unknown item")
	}
}

func TestReviseUnitCosts_NegativeCostRejected(t *testing.T) {
	p := twoItemPurchase()
	err := ReviseUnitCosts(p, models.ValuationViewShadow, []UnitCostRevision{
		{ItemId: 11, UnitCost: dec("-1")},
	})
	if err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestReviseQuantity_MovesBothViews(t *testing.T) {
	p := twoItemPurchase()
	if err := ReviseQuantity(p, 11, dec("20")); err != nil {
		t.Fatal(err)
	}
	// 20x100 + 4x50 real, 20x90 + 4x45 shadow.
	if !p.TotalReal.Equal(dec("2200")) {
		t.Errorf("expected real total 2200, got %s", p.TotalReal)
	}
	if !p.TotalShadow.Equal(dec("1980")) {
		t.Errorf("expected shadow total 1980, got %s", p.TotalShadow)
	}
}

func TestReviseQuantity_ZeroRejected(t *testing.T) {
	p := twoItemPurchase()
	if err := ReviseQuantity(p, 11, dec("0")); err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}
