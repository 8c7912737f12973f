package deal_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-dealdesk/internal/catalog"
	"github.com/noah-isme/backend-dealdesk/internal/deal"
	"github.com/noah-isme/backend-dealdesk/internal/lock"
	"github.com/noah-isme/backend-dealdesk/internal/pricing"
	"github.com/noah-isme/backend-dealdesk/internal/settings"
)

type staticSnapshot struct {
	snap settings.Snapshot
}

func (s staticSnapshot) Current() settings.Snapshot { return s.snap }

func defaultSnapshot() staticSnapshot {
	stored := settings.Default()
	pcfg, acfg := settings.Normalize(stored)
	return staticSnapshot{snap: settings.Snapshot{Version: 1, Settings: stored, Pricing: pcfg, Approval: acfg}}
}

func newTestService(t *testing.T) *deal.Service {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	provider := defaultSnapshot()
	catalogSvc, err := catalog.NewService(catalog.ServiceConfig{Settings: provider})
	require.NoError(t, err)

	svc, err := deal.NewService(deal.ServiceConfig{
		Store:    &deal.Store{R: client, TTL: time.Hour},
		Settings: provider,
		Catalog:  catalogSvc,
		Locker:   lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond},
	})
	require.NoError(t, err)
	return svc
}

func TestApplyFactsResolvesCatalogPricing(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// The agent's unit price is ignored when the product resolves.
	d, version, err := svc.ApplyFacts(ctx, "s1", deal.Facts{
		Customer: &deal.Customer{Name: "Globex", Employees: 1200},
		Products: []deal.ProductFact{{ID: "salesNavigator.core", Quantity: 10, UnitPrice: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), version)
	require.NotNil(t, d.Pricing)
	require.Equal(t, 9600.0, d.Pricing.Subtotal)
	require.InDelta(t, 480.0, d.Pricing.VolumeDiscountTotal, 1e-9)
	require.InDelta(t, 9120.0, d.Pricing.FinalACV, 1e-9)
	require.Empty(t, d.Approvals)
	require.Equal(t, "Sales Navigator Core", d.LineItems[0].DisplayName)
}

func TestApplyFactsKeepsUnknownProductsAsGiven(t *testing.T) {
	svc := newTestService(t)

	d, _, err := svc.ApplyFacts(context.Background(), "s1", deal.Facts{
		Products: []deal.ProductFact{{Name: "Custom Integration", Quantity: 2, UnitPrice: 5000, Category: "Services"}},
	})
	require.NoError(t, err)
	require.Equal(t, 10000.0, d.Pricing.Subtotal)
	require.Equal(t, "Custom Integration", d.LineItems[0].DisplayName)
	require.Zero(t, d.Pricing.VolumeDiscountTotal)
}

func TestApplyFactsDropsZeroRateSpecials(t *testing.T) {
	svc := newTestService(t)

	d, _, err := svc.ApplyFacts(context.Background(), "s1", deal.Facts{
		Products: []deal.ProductFact{{ID: "recruiter.corporate", Quantity: 2}},
		SpecialDiscounts: []pricing.SpecialDiscount{
			{Type: "yearEndClose", Name: "Year-End Close", Rate: 0},
			{Type: "competitiveDisplacement", Name: "Competitive Displacement", Rate: 0.1},
		},
	})
	require.NoError(t, err)
	require.Len(t, d.SpecialDiscounts, 1)
	require.Equal(t, "Competitive Displacement", d.SpecialDiscounts[0].Name)
	require.Len(t, d.Pricing.SpecialDiscounts, 1)
}

func TestApplyFactsAccumulatesAcrossCalls(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, v1, err := svc.ApplyFacts(ctx, "s1", deal.Facts{Customer: &deal.Customer{Name: "Initech"}})
	require.NoError(t, err)

	term := 3
	d, v2, err := svc.ApplyFacts(ctx, "s1", deal.Facts{
		Products: []deal.ProductFact{{ID: "salesNavigator.advanced", Quantity: 50}},
		Term:     &term,
	})
	require.NoError(t, err)
	require.Greater(t, v2, v1)
	require.Equal(t, "Initech", d.Customer.Name)
	require.Equal(t, 3, d.Term)
	// 50 seats x 1500: 15% volume, single category, 8% term on the remainder.
	require.Equal(t, 75000.0, d.Pricing.Subtotal)
	require.InDelta(t, 11250.0, d.Pricing.VolumeDiscountTotal, 1e-9)
	require.InDelta(t, 0.08, d.Pricing.TermDiscount.Rate, 1e-9)
	require.InDelta(t, d.Pricing.FinalACV*3, d.Pricing.FinalTCV, 1e-6)
}

func TestApplyFactsRaisesQuantityToCatalogMinimum(t *testing.T) {
	svc := newTestService(t)

	d, _, err := svc.ApplyFacts(context.Background(), "s1", deal.Facts{
		Products: []deal.ProductFact{{ID: "salesNavigator.advancedPlus", Quantity: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, 10, d.LineItems[0].Quantity)
}

func TestGetUnknownSessionReadsEmpty(t *testing.T) {
	svc := newTestService(t)

	d, version, err := svc.Get(context.Background(), "never-seen")
	require.NoError(t, err)
	require.Zero(t, version)
	require.Equal(t, deal.Empty(), d)
}

func TestResetIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.ApplyFacts(ctx, "s1", deal.Facts{
		Products: []deal.ProductFact{{ID: "jobSlots.standard", Quantity: 3}},
	})
	require.NoError(t, err)

	d, err := svc.Reset(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, deal.Empty(), d)

	d, err = svc.Reset(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, deal.Empty(), d)

	loaded, version, err := svc.Get(ctx, "s1")
	require.NoError(t, err)
	require.Zero(t, version)
	require.Equal(t, deal.Empty(), loaded)
}
