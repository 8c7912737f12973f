package deal

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-dealdesk/internal/approval"
	"github.com/noah-isme/backend-dealdesk/internal/pricing"
)

func testConfigs() (pricing.Config, approval.Config) {
	pcfg := pricing.Config{
		VolumeTiers: map[string][]pricing.VolumeTier{
			"seats": {
				{Min: 1, Max: 9, Rate: 0},
				{Min: 10, Max: 0, Rate: 0.05},
			},
		},
		TermRates:    map[int]float64{1: 0, 2: 0.05, 3: 0.08},
		BundleRates:  map[int]float64{1: 0, 2: 0.05},
		BundleMaxKey: 2,
	}
	acfg := approval.Config{
		Discount: []approval.DiscountThreshold{
			{MaxRate: 0.15, Approver: "Sales Manager", ServiceLevel: "Same day"},
			{MaxRate: 0.25, Approver: "Deal Desk", ServiceLevel: "1 business day"},
		},
		TCV: []approval.TCVThreshold{
			{MaxTCV: 100000, Approver: "Sales Manager"},
			{MaxTCV: 250000, Approver: "Deal Desk"},
		},
	}
	return pcfg, acfg
}

func TestEmptyIsIdempotent(t *testing.T) {
	require.Equal(t, Empty(), Empty())
	require.Equal(t, 1, Empty().Term)
	require.False(t, Empty().HasData())
}

func TestApplyRecomputesPricingAndApprovals(t *testing.T) {
	pcfg, acfg := testConfigs()
	items := []pricing.LineItem{
		{ProductID: "p1", DisplayName: "Seats", Category: "Sales", ProductCategory: "seats", UnitListPrice: 1000, Quantity: 10},
	}

	next := Apply(Empty(), Update{LineItems: items}, pcfg, acfg)
	require.NotNil(t, next.Pricing)
	require.Equal(t, 10000.0, next.Pricing.Subtotal)
	require.InDelta(t, 500.0, next.Pricing.VolumeDiscountTotal, 1e-9)
	require.InDelta(t, 9500.0, next.Pricing.FinalACV, 1e-9)
	require.Empty(t, next.Approvals)
	require.True(t, next.HasData())
}

func TestApplyRetainsUnspecifiedFields(t *testing.T) {
	pcfg, acfg := testConfigs()
	items := []pricing.LineItem{{ProductID: "p1", Category: "Sales", UnitListPrice: 100, Quantity: 2}}
	term := 3

	first := Apply(Empty(), Update{LineItems: items, Term: &term}, pcfg, acfg)
	second := Apply(first, Update{Customer: &Customer{Name: "Globex"}}, pcfg, acfg)

	require.Equal(t, items, second.LineItems)
	require.Equal(t, 3, second.Term)
	require.NotNil(t, second.Customer)
	require.Equal(t, "Globex", second.Customer.Name)
	require.NotNil(t, second.Pricing)
	require.Equal(t, 3, second.Pricing.Term)
}

func TestApplyMergesCustomerShallowly(t *testing.T) {
	pcfg, acfg := testConfigs()

	first := Apply(Empty(), Update{Customer: &Customer{Name: "Globex", Employees: 500}}, pcfg, acfg)
	second := Apply(first, Update{Customer: &Customer{Segment: "Enterprise"}}, pcfg, acfg)

	require.Equal(t, "Globex", second.Customer.Name)
	require.Equal(t, 500, second.Customer.Employees)
	require.Equal(t, "Enterprise", second.Customer.Segment)
}

func TestApplyClearsPricingWhenItemsEmptied(t *testing.T) {
	pcfg, acfg := testConfigs()
	items := []pricing.LineItem{{ProductID: "p1", Category: "Sales", UnitListPrice: 100, Quantity: 1}}

	withItems := Apply(Empty(), Update{LineItems: items}, pcfg, acfg)
	require.NotNil(t, withItems.Pricing)

	cleared := Apply(withItems, Update{LineItems: []pricing.LineItem{}}, pcfg, acfg)
	require.Nil(t, cleared.Pricing)
	require.Empty(t, cleared.Approvals)
}

func TestApplyReplacesSpecialDiscountsWholesale(t *testing.T) {
	pcfg, acfg := testConfigs()
	items := []pricing.LineItem{{ProductID: "p1", Category: "Sales", UnitListPrice: 1000, Quantity: 1}}
	specials := []pricing.SpecialDiscount{{Type: "strategicAccount", Name: "Strategic Account", Rate: 0.2}}

	first := Apply(Empty(), Update{LineItems: items, SpecialDiscounts: specials}, pcfg, acfg)
	require.Len(t, first.Pricing.SpecialDiscounts, 1)

	second := Apply(first, Update{SpecialDiscounts: []pricing.SpecialDiscount{}}, pcfg, acfg)
	require.Empty(t, second.SpecialDiscounts)
	require.Empty(t, second.Pricing.SpecialDiscounts)
}

func TestApplyRequiresApprovalForDeepDiscount(t *testing.T) {
	pcfg, acfg := testConfigs()
	items := []pricing.LineItem{{ProductID: "p1", Category: "Sales", UnitListPrice: 1000, Quantity: 1}}
	specials := []pricing.SpecialDiscount{{Type: "strategicAccount", Name: "Strategic Account", Rate: 0.2}}

	next := Apply(Empty(), Update{LineItems: items, SpecialDiscounts: specials}, pcfg, acfg)
	require.NotNil(t, next.Pricing)
	require.InDelta(t, 0.2, next.Pricing.TotalDiscountRate, 1e-9)
	require.Len(t, next.Approvals, 1)
	require.Equal(t, "Deal Desk", next.Approvals[0].Approver)
	require.Equal(t, 2, next.Approvals[0].Level)
}

func TestApplyDoesNotMutateInputs(t *testing.T) {
	pcfg, acfg := testConfigs()
	items := []pricing.LineItem{{ProductID: "p1", Category: "Sales", UnitListPrice: 100, Quantity: 1}}
	current := Apply(Empty(), Update{LineItems: items}, pcfg, acfg)
	snapshot := current

	_ = Apply(current, Update{Customer: &Customer{Name: "Initech"}, Term: intPtr(3)}, pcfg, acfg)

	require.Equal(t, snapshot.Term, current.Term)
	require.Nil(t, current.Customer)
}

func intPtr(v int) *int { return &v }
