package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-dealdesk/internal/settings"
)

type staticSnapshot struct {
	snap settings.Snapshot
}

func (s staticSnapshot) Current() settings.Snapshot { return s.snap }

func defaultProvider() staticSnapshot {
	stored := settings.Default()
	pcfg, acfg := settings.Normalize(stored)
	return staticSnapshot{snap: settings.Snapshot{Version: 1, Settings: stored, Pricing: pcfg, Approval: acfg}}
}

func TestListReturnsEnabledProductsSorted(t *testing.T) {
	svc, err := NewService(ServiceConfig{Settings: defaultProvider()})
	require.NoError(t, err)

	products := svc.List()
	require.NotEmpty(t, products)
	for i := 1; i < len(products); i++ {
		require.Less(t, products[i-1].ID, products[i].ID)
	}
	for _, p := range products {
		require.Contains(t, p.ID, ".")
		require.NotEmpty(t, p.Name)
		require.NotEmpty(t, p.Category)
	}
}

func TestListSkipsDisabledProducts(t *testing.T) {
	provider := defaultProvider()
	tier := provider.snap.Settings.Products["recruiter"]["lite"]
	tier.Enabled = false
	provider.snap.Settings.Products["recruiter"]["lite"] = tier

	svc, err := NewService(ServiceConfig{Settings: provider})
	require.NoError(t, err)

	for _, p := range svc.List() {
		require.NotEqual(t, "recruiter.lite", p.ID)
	}
}

func TestGetResolvesDisplayMetadata(t *testing.T) {
	svc, err := NewService(ServiceConfig{Settings: defaultProvider()})
	require.NoError(t, err)

	p, err := svc.Get("salesNavigator.advanced")
	require.NoError(t, err)
	require.Equal(t, "Sales Navigator Advanced", p.Name)
	require.Equal(t, "Sales Solutions", p.Category)
	require.Equal(t, "salesNavigator", p.ProductCategory)
	require.Equal(t, 1500.0, p.ListPrice)
	require.Equal(t, 5, p.MinQuantity)
}

func TestGetUnknownProduct(t *testing.T) {
	svc, err := NewService(ServiceConfig{Settings: defaultProvider()})
	require.NoError(t, err)

	_, err = svc.Get("salesNavigator.platinum")
	require.Error(t, err)

	_, err = svc.Get("not-an-id")
	require.Error(t, err)
}

func TestLineItemClampsToMinQuantity(t *testing.T) {
	svc, err := NewService(ServiceConfig{Settings: defaultProvider()})
	require.NoError(t, err)

	line, err := svc.LineItem("salesNavigator.advancedPlus", 3)
	require.NoError(t, err)
	require.Equal(t, 10, line.Quantity)
	require.Equal(t, 1800.0, line.UnitListPrice)
	require.Equal(t, "Sales Solutions", line.Category)

	line, err = svc.LineItem("salesNavigator.advancedPlus", 25)
	require.NoError(t, err)
	require.Equal(t, 25, line.Quantity)
}
