package settings

import (
	"errors"
	"fmt"
	"sort"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-dealdesk/internal/approval"
	"github.com/noah-isme/backend-dealdesk/internal/pricing"
)

// Product is one orderable tier within a product category.
type Product struct {
	Name        string  `json:"name" validate:"required"`
	ListPrice   float64 `json:"listPrice" validate:"gte=0"`
	MinQuantity int     `json:"minQuantity,omitempty" validate:"gte=0"`
	Enabled     bool    `json:"enabled"`
}

// VolumeTier is one quantity band of a volume discount ladder. Discount is
// a whole-number percentage; the engine never sees this representation.
type VolumeTier struct {
	Min      int     `json:"min" validate:"gte=0"`
	Max      int     `json:"max"`
	Discount float64 `json:"discount" validate:"gte=0,lte=100"`
}

// DiscountThreshold is one rung of the discount approval ladder, expressed
// as a whole-number percentage.
type DiscountThreshold struct {
	MaxDiscount  float64 `json:"maxDiscount" validate:"gt=0,lte=100"`
	Approver     string  `json:"approver" validate:"required"`
	ServiceLevel string  `json:"sla,omitempty"`
}

// TCVThreshold is one rung of the deal-size approval ladder.
type TCVThreshold struct {
	MaxTCV   float64 `json:"maxTCV" validate:"gt=0"`
	Approver string  `json:"approver" validate:"required"`
}

// ApprovalThresholds groups both approval ladders.
type ApprovalThresholds struct {
	Discount []DiscountThreshold `json:"discount" validate:"dive"`
	TCV      []TCVThreshold      `json:"tcv" validate:"dive"`
}

// Settings is the operator-editable pricing configuration. It is versioned
// and replaced as a whole; the engine treats it as read-only and receives
// it only through Normalize.
type Settings struct {
	Products           map[string]map[string]Product `json:"products" validate:"dive,dive"`
	VolumeDiscounts    map[string][]VolumeTier       `json:"volumeDiscounts" validate:"dive,dive"`
	TermDiscounts      map[int]float64               `json:"termDiscounts"`
	BundleDiscounts    map[int]float64               `json:"bundleDiscounts"`
	ApprovalThresholds ApprovalThresholds            `json:"approvalThresholds"`
	PolicyText         string                        `json:"policyText"`
}

// Default returns the factory configuration shipped with the service.
func Default() Settings {
	return Settings{
		Products: map[string]map[string]Product{
			"salesNavigator": {
				"core":         {Name: "Sales Navigator Core", ListPrice: 960, MinQuantity: 1, Enabled: true},
				"advanced":     {Name: "Sales Navigator Advanced", ListPrice: 1500, MinQuantity: 5, Enabled: true},
				"advancedPlus": {Name: "Sales Navigator Advanced Plus", ListPrice: 1800, MinQuantity: 10, Enabled: true},
			},
			"recruiter": {
				"lite":      {Name: "Recruiter Lite", ListPrice: 1680, MinQuantity: 1, Enabled: true},
				"corporate": {Name: "Recruiter Corporate", ListPrice: 8500, MinQuantity: 1, Enabled: true},
			},
			"jobSlots": {
				"standard": {Name: "Job Slots", ListPrice: 3600, MinQuantity: 1, Enabled: true},
			},
			"careerPage": {
				"standard": {Name: "Career Page", ListPrice: 5000, Enabled: true},
			},
			"learning": {
				"standard": {Name: "Enterprise Learning", ListPrice: 85, MinQuantity: 100, Enabled: true},
			},
		},
		VolumeDiscounts: map[string][]VolumeTier{
			"salesNavigator": {
				{Min: 1, Max: 9, Discount: 0},
				{Min: 10, Max: 24, Discount: 5},
				{Min: 25, Max: 49, Discount: 10},
				{Min: 50, Max: 99, Discount: 15},
				{Min: 100, Max: 249, Discount: 20},
				{Min: 250, Max: 499, Discount: 25},
				{Min: 500, Max: 0, Discount: 30},
			},
			"recruiter": {
				{Min: 1, Max: 4, Discount: 0},
				{Min: 5, Max: 9, Discount: 5},
				{Min: 10, Max: 24, Discount: 10},
				{Min: 25, Max: 49, Discount: 15},
				{Min: 50, Max: 0, Discount: 20},
			},
			"learning": {
				{Min: 1, Max: 499, Discount: 0},
				{Min: 500, Max: 999, Discount: 10},
				{Min: 1000, Max: 4999, Discount: 15},
				{Min: 5000, Max: 0, Discount: 25},
			},
		},
		TermDiscounts:   map[int]float64{1: 0, 2: 5, 3: 8},
		BundleDiscounts: map[int]float64{1: 0, 2: 5, 3: 10, 4: 15},
		ApprovalThresholds: ApprovalThresholds{
			Discount: []DiscountThreshold{
				{MaxDiscount: 15, Approver: "Sales Manager", ServiceLevel: "Same day"},
				{MaxDiscount: 25, Approver: "Deal Desk", ServiceLevel: "1 business day"},
				{MaxDiscount: 35, Approver: "Deal Desk Manager", ServiceLevel: "2 business days"},
				{MaxDiscount: 45, Approver: "Sales VP", ServiceLevel: "3 business days"},
			},
			TCV: []TCVThreshold{
				{MaxTCV: 100000, Approver: "Sales Manager"},
				{MaxTCV: 250000, Approver: "Deal Desk"},
				{MaxTCV: 500000, Approver: "Finance"},
				{MaxTCV: 1000000, Approver: "Sales VP"},
			},
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate rejects operator input that would make approval routing or tier
// lookup ambiguous. The engine itself degrades gracefully on incomplete
// configuration; this check guards the editing boundary, not the kernel.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return err
	}
	for category, tiers := range s.VolumeDiscounts {
		if err := validateTiers(tiers); err != nil {
			return fmt.Errorf("volumeDiscounts[%s]: %w", category, err)
		}
	}
	for i := 1; i < len(s.ApprovalThresholds.Discount); i++ {
		if s.ApprovalThresholds.Discount[i].MaxDiscount <= s.ApprovalThresholds.Discount[i-1].MaxDiscount {
			return errors.New("approvalThresholds.discount must be strictly ascending")
		}
	}
	for i := 1; i < len(s.ApprovalThresholds.TCV); i++ {
		if s.ApprovalThresholds.TCV[i].MaxTCV <= s.ApprovalThresholds.TCV[i-1].MaxTCV {
			return errors.New("approvalThresholds.tcv must be strictly ascending")
		}
	}
	return nil
}

func validateTiers(tiers []VolumeTier) error {
	for i, tier := range tiers {
		unbounded := tier.Max <= 0
		if unbounded && i != len(tiers)-1 {
			return errors.New("only the last tier may be unbounded")
		}
		if !unbounded && tier.Max < tier.Min {
			return fmt.Errorf("tier %d: max %d below min %d", i, tier.Max, tier.Min)
		}
		if i > 0 && tier.Min != tiers[i-1].Max+1 {
			return fmt.Errorf("tier %d: min %d does not continue previous max %d", i, tier.Min, tiers[i-1].Max)
		}
	}
	return nil
}

// Normalize converts the whole-number percentages of the configuration
// boundary into the fractional rates the kernel computes with. This is the
// only place the division by 100 happens; converting anywhere else would
// reintroduce the double-conversion bug class.
func Normalize(s Settings) (pricing.Config, approval.Config) {
	pcfg := pricing.Config{
		VolumeTiers: make(map[string][]pricing.VolumeTier, len(s.VolumeDiscounts)),
		TermRates:   make(map[int]float64, len(s.TermDiscounts)),
		BundleRates: make(map[int]float64, len(s.BundleDiscounts)),
	}
	for category, tiers := range s.VolumeDiscounts {
		converted := make([]pricing.VolumeTier, 0, len(tiers))
		for _, tier := range tiers {
			converted = append(converted, pricing.VolumeTier{Min: tier.Min, Max: tier.Max, Rate: tier.Discount / 100})
		}
		pcfg.VolumeTiers[category] = converted
	}
	for years, percent := range s.TermDiscounts {
		pcfg.TermRates[years] = percent / 100
	}
	for count, percent := range s.BundleDiscounts {
		pcfg.BundleRates[count] = percent / 100
		if count > pcfg.BundleMaxKey {
			pcfg.BundleMaxKey = count
		}
	}

	acfg := approval.Config{
		Discount: make([]approval.DiscountThreshold, 0, len(s.ApprovalThresholds.Discount)),
		TCV:      make([]approval.TCVThreshold, 0, len(s.ApprovalThresholds.TCV)),
	}
	for _, t := range s.ApprovalThresholds.Discount {
		acfg.Discount = append(acfg.Discount, approval.DiscountThreshold{
			MaxRate:      t.MaxDiscount / 100,
			Approver:     t.Approver,
			ServiceLevel: t.ServiceLevel,
		})
	}
	for _, t := range s.ApprovalThresholds.TCV {
		acfg.TCV = append(acfg.TCV, approval.TCVThreshold{MaxTCV: t.MaxTCV, Approver: t.Approver})
	}
	sortAscending(acfg)
	return pcfg, acfg
}

// sortAscending keeps the first-match lookups correct even if a stored
// configuration predates strict ordering validation.
func sortAscending(cfg approval.Config) {
	sort.SliceStable(cfg.Discount, func(i, j int) bool { return cfg.Discount[i].MaxRate < cfg.Discount[j].MaxRate })
	sort.SliceStable(cfg.TCV, func(i, j int) bool { return cfg.TCV[i].MaxTCV < cfg.TCV[j].MaxTCV })
}
