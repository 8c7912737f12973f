package catalog

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/noah-isme/backend-dealdesk/internal/common"
	"github.com/noah-isme/backend-dealdesk/internal/pricing"
	"github.com/noah-isme/backend-dealdesk/internal/settings"
)

// Product is the sellable view of one catalog entry. IDs take the form
// "<category>.<tier>", e.g. "salesNavigator.core".
type Product struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	ProductCategory string  `json:"productCategory"`
	ListPrice       float64 `json:"listPrice"`
	MinQuantity     int     `json:"minQuantity,omitempty"`
	Description     string  `json:"description,omitempty"`
}

// displayCategories maps a category key to the solution family shown on
// quotes and counted for the bundle discount.
var displayCategories = map[string]string{
	"salesNavigator": "Sales Solutions",
	"recruiter":      "Hiring Solutions",
	"jobSlots":       "Hiring Solutions",
	"careerPage":     "Hiring Solutions",
	"learning":       "Learning Solutions",
	"marketing":      "Marketing Solutions",
}

var descriptions = map[string]string{
	"salesNavigator.core":         "Individual prospecting",
	"salesNavigator.advanced":     "Team collaboration, Smart Links",
	"salesNavigator.advancedPlus": "CRM integration, enterprise features",
	"recruiter.lite":              "Basic recruiting",
	"recruiter.corporate":         "Full recruiting suite",
	"jobSlots.standard":           "Active job postings",
	"careerPage.standard":         "Branded career page",
	"learning.standard":           "Full course library",
}

type snapshotProvider interface {
	Current() settings.Snapshot
}

// Service resolves catalog products from the active configuration snapshot.
type Service struct {
	settings snapshotProvider
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Settings snapshotProvider
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Settings == nil {
		return nil, errors.New("catalog: settings provider is required")
	}
	return &Service{settings: cfg.Settings}, nil
}

// List returns all enabled products sorted by ID.
func (s *Service) List() []Product {
	snap := s.settings.Current()
	products := make([]Product, 0, 8)
	for categoryKey, tiers := range snap.Settings.Products {
		for tierKey, p := range tiers {
			if !p.Enabled {
				continue
			}
			products = append(products, assemble(categoryKey, tierKey, p))
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products
}

// Get resolves a single product by its "<category>.<tier>" ID.
func (s *Service) Get(id string) (Product, error) {
	categoryKey, tierKey, ok := splitID(id)
	if !ok {
		return Product{}, &common.AppError{
			Code:       "BAD_REQUEST",
			Message:    "product id must take the form category.tier",
			HTTPStatus: http.StatusBadRequest,
			Details:    map[string]any{"id": id},
		}
	}
	snap := s.settings.Current()
	p, found := snap.Settings.Products[categoryKey][tierKey]
	if !found || !p.Enabled {
		return Product{}, &common.AppError{
			Code:       "NOT_FOUND",
			Message:    "product not found",
			HTTPStatus: http.StatusNotFound,
			Details:    map[string]any{"id": id},
		}
	}
	return assemble(categoryKey, tierKey, p), nil
}

// LineItem resolves a product into an unpriced deal line. Quantities below
// the product's minimum are raised to it.
func (s *Service) LineItem(id string, quantity int) (pricing.LineItem, error) {
	p, err := s.Get(id)
	if err != nil {
		return pricing.LineItem{}, err
	}
	if quantity < 1 {
		quantity = 1
	}
	if quantity < p.MinQuantity {
		quantity = p.MinQuantity
	}
	return pricing.LineItem{
		ProductID:       p.ID,
		DisplayName:     p.Name,
		Category:        p.Category,
		ProductCategory: p.ProductCategory,
		UnitListPrice:   p.ListPrice,
		Quantity:        quantity,
	}, nil
}

func assemble(categoryKey, tierKey string, p settings.Product) Product {
	id := categoryKey + "." + tierKey
	display := displayCategories[categoryKey]
	if display == "" {
		display = categoryKey
	}
	return Product{
		ID:              id,
		Name:            p.Name,
		Category:        display,
		ProductCategory: categoryKey,
		ListPrice:       p.ListPrice,
		MinQuantity:     p.MinQuantity,
		Description:     descriptions[id],
	}
}

func splitID(id string) (string, string, bool) {
	categoryKey, tierKey, found := strings.Cut(strings.TrimSpace(id), ".")
	if !found || categoryKey == "" || tierKey == "" {
		return "", "", false
	}
	return categoryKey, tierKey, true
}
