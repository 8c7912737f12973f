package deal

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/noah-isme/backend-dealdesk/internal/catalog"
	"github.com/noah-isme/backend-dealdesk/internal/common"
	"github.com/noah-isme/backend-dealdesk/internal/obs"
	"github.com/noah-isme/backend-dealdesk/internal/pricing"
	"github.com/noah-isme/backend-dealdesk/internal/settings"
)

// ProductFact is one product reference extracted upstream. When ID resolves
// in the catalog, the catalog's list price and display metadata win over the
// supplied numbers; otherwise the fact is taken as given.
type ProductFact struct {
	ID              string
	Name            string
	Quantity        int
	UnitPrice       float64
	Category        string
	ProductCategory string
}

// Facts is one batch of extracted deal facts. Nil slices retain the current
// value; non-nil slices replace wholesale.
type Facts struct {
	Customer         *Customer
	Products         []ProductFact
	Term             *int
	SpecialDiscounts []pricing.SpecialDiscount
}

type snapshotProvider interface {
	Current() settings.Snapshot
}

type locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Service orchestrates deal sessions: it serializes writers per deal,
// resolves product facts against the catalog, applies the reducer, and
// persists the result with a compare-and-swap on the stored version.
type Service struct {
	store    *Store
	settings snapshotProvider
	catalog  *catalog.Service
	locker   locker
	lockTTL  time.Duration
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store    *Store
	Settings snapshotProvider
	Catalog  *catalog.Service
	Locker   locker
	LockTTL  time.Duration
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("deal: store is required")
	}
	if cfg.Settings == nil {
		return nil, errors.New("deal: settings provider is required")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("deal: catalog service is required")
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	return &Service{
		store:    cfg.Store,
		settings: cfg.Settings,
		catalog:  cfg.Catalog,
		locker:   cfg.Locker,
		lockTTL:  lockTTL,
	}, nil
}

// Get loads the deal for a session. Unknown sessions read as the empty deal
// at version 0.
func (s *Service) Get(ctx context.Context, id string) (Deal, int64, error) {
	d, version, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Empty(), 0, nil
	}
	if err != nil {
		return Deal{}, 0, err
	}
	return d, version, nil
}

// ApplyFacts merges a batch of facts into the stored deal and rederives
// pricing and approvals under the active configuration snapshot. Writers for
// the same deal are serialized through the lock; a failed save leaves the
// stored deal untouched.
func (s *Service) ApplyFacts(ctx context.Context, id string, facts Facts) (Deal, int64, error) {
	started := time.Now()
	var (
		next    Deal
		version int64
	)
	err := s.withDealLock(ctx, id, func(ctx context.Context) error {
		current, expected, err := s.store.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			current, expected = Empty(), 0
		} else if err != nil {
			return err
		}

		snap := s.settings.Current()
		update := Update{
			Customer: facts.Customer,
			Term:     facts.Term,
		}
		if facts.Products != nil {
			update.LineItems = s.resolveProducts(facts.Products)
		}
		if facts.SpecialDiscounts != nil {
			update.SpecialDiscounts = keepPositiveRates(facts.SpecialDiscounts)
		}

		next = Apply(current, update, snap.Pricing, snap.Approval)
		version, err = s.store.Save(ctx, id, next, expected)
		if errors.Is(err, ErrVersionConflict) {
			return &common.AppError{
				Code:       "CONFLICT",
				Message:    "deal was modified concurrently, retry",
				HTTPStatus: http.StatusConflict,
				Err:        err,
			}
		}
		return err
	})
	observeCompute(started, err == nil)
	if err != nil {
		return Deal{}, 0, err
	}
	if next.Pricing != nil && obs.ApprovalsRequiredTotal != nil {
		for _, req := range next.Approvals {
			obs.ApprovalsRequiredTotal.WithLabelValues(req.Approver).Inc()
		}
	}
	return next, version, nil
}

// Reset drops the stored deal. Idempotent: resetting an unknown session
// succeeds and yields the same empty deal.
func (s *Service) Reset(ctx context.Context, id string) (Deal, error) {
	err := s.withDealLock(ctx, id, func(ctx context.Context) error {
		return s.store.Delete(ctx, id)
	})
	if err != nil {
		return Deal{}, err
	}
	return Empty(), nil
}

func (s *Service) withDealLock(ctx context.Context, id string, fn func(context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	return s.locker.WithLock(ctx, "deal:lock:"+id, s.lockTTL, fn)
}

// resolveProducts turns product facts into unpriced lines. Catalog matches
// take the configured list price and display metadata; unmatched facts keep
// the numbers they arrived with.
func (s *Service) resolveProducts(facts []ProductFact) []pricing.LineItem {
	items := make([]pricing.LineItem, 0, len(facts))
	for _, f := range facts {
		if f.ID != "" {
			if line, err := s.catalog.LineItem(f.ID, f.Quantity); err == nil {
				items = append(items, line)
				continue
			}
		}
		quantity := f.Quantity
		if quantity < 1 {
			quantity = 1
		}
		category := f.Category
		if category == "" {
			category = f.ProductCategory
		}
		items = append(items, pricing.LineItem{
			ProductID:       f.ID,
			DisplayName:     f.Name,
			Category:        category,
			ProductCategory: f.ProductCategory,
			UnitListPrice:   f.UnitPrice,
			Quantity:        quantity,
		})
	}
	return items
}

// keepPositiveRates drops special discounts without a usable rate. A missing
// or zero rate is not an error, the discount simply never applies.
func keepPositiveRates(specials []pricing.SpecialDiscount) []pricing.SpecialDiscount {
	kept := make([]pricing.SpecialDiscount, 0, len(specials))
	for _, sd := range specials {
		if sd.Rate > 0 {
			kept = append(kept, sd)
		}
	}
	return kept
}

func observeCompute(started time.Time, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	if obs.DealsPricedTotal != nil {
		obs.DealsPricedTotal.WithLabelValues(result).Inc()
	}
	if obs.DealComputeLatency != nil {
		obs.DealComputeLatency.WithLabelValues(result).Observe(float64(time.Since(started).Milliseconds()))
	}
}
