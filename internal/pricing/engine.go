package pricing

import "fmt"

// VolumeTier describes one quantity band of a category's volume discount
// ladder. Rate is a fraction in [0,1]. A Max of zero means the band is
// unbounded.
type VolumeTier struct {
	Min  int
	Max  int
	Rate float64
}

// Config carries the discount tables the engine prices against. Rates are
// fractions; the whole-number percentages from the settings boundary are
// converted exactly once, in settings.Normalize.
type Config struct {
	VolumeTiers  map[string][]VolumeTier
	TermRates    map[int]float64
	BundleRates  map[int]float64
	BundleMaxKey int
}

// LineItem is a product selection prior to pricing. Category groups lines
// for the bundle count, ProductCategory keys the volume discount ladder.
type LineItem struct {
	ProductID       string  `json:"productId"`
	DisplayName     string  `json:"displayName"`
	Category        string  `json:"category"`
	ProductCategory string  `json:"productCategory,omitempty"`
	UnitListPrice   float64 `json:"unitListPrice"`
	Quantity        int     `json:"quantity"`
}

// PricedLineItem is a LineItem extended with its computed totals. Line items
// are never mutated in place; pricing derives a new value.
type PricedLineItem struct {
	LineItem
	LineTotal            float64 `json:"lineTotal"`
	VolumeDiscountRate   float64 `json:"volumeDiscountRate"`
	VolumeDiscountAmount float64 `json:"volumeDiscountAmount"`
}

// SpecialDiscount is a policy-justified discount supplied per deal. The
// engine only applies it; rates originate upstream.
type SpecialDiscount struct {
	Type string  `json:"type"`
	Name string  `json:"name"`
	Rate float64 `json:"rate"`
}

// AppliedSpecial records one special discount that contributed to the total.
type AppliedSpecial struct {
	Name   string  `json:"name"`
	Rate   float64 `json:"rate"`
	Amount float64 `json:"amount"`
}

// RateAmount pairs a discount rate with the amount it produced.
type RateAmount struct {
	Rate   float64 `json:"rate"`
	Amount float64 `json:"amount"`
	Reason string  `json:"reason,omitempty"`
}

// Result is the fully itemized price breakdown. It is recomputed as a whole
// on every input change, never patched field by field.
type Result struct {
	LineItems           []PricedLineItem `json:"lineItems"`
	Subtotal            float64          `json:"subtotal"`
	VolumeDiscountTotal float64          `json:"volumeDiscountTotal"`
	BundleDiscount      RateAmount       `json:"bundleDiscount"`
	TermDiscount        RateAmount       `json:"termDiscount"`
	SpecialDiscounts    []AppliedSpecial `json:"specialDiscounts"`
	TotalDiscount       float64          `json:"totalDiscount"`
	TotalDiscountRate   float64          `json:"totalDiscountRate"`
	FinalACV            float64          `json:"finalACV"`
	FinalTCV            float64          `json:"finalTCV"`
	Term                int              `json:"term"`
}

// VolumeRate returns the volume discount rate for a quantity within the
// category's tier ladder. Categories without a configured ladder price at
// list, which keeps a deal priceable under incomplete configuration.
func VolumeRate(cfg Config, productCategory string, quantity int) float64 {
	for _, tier := range cfg.VolumeTiers[productCategory] {
		if quantity >= tier.Min && (tier.Max <= 0 || quantity <= tier.Max) {
			return tier.Rate
		}
	}
	return 0
}

// TermRate returns the multi-year discount rate for the contract length.
// Unknown terms carry no discount.
func TermRate(cfg Config, years int) float64 {
	return cfg.TermRates[years]
}

// BundleRate returns the deal-wide discount rate for the number of distinct
// product categories. Counts at or above the configured cap collapse to it.
func BundleRate(cfg Config, categoryCount int) float64 {
	if cfg.BundleMaxKey > 0 && categoryCount >= cfg.BundleMaxKey {
		return cfg.BundleRates[cfg.BundleMaxKey]
	}
	return cfg.BundleRates[categoryCount]
}

// Compute prices a deal. The stage order is load-bearing: volume and bundle
// discounts are siblings computed against the undiscounted subtotal, the
// term discount applies to what remains after both, and each special
// discount applies independently to the post-term base without compounding
// against the others. The total discount is capped at the subtotal so the
// final price never goes negative.
func Compute(items []LineItem, termYears int, specials []SpecialDiscount, cfg Config) Result {
	if termYears < 1 {
		termYears = 1
	}

	priced := make([]PricedLineItem, 0, len(items))
	var subtotal float64
	categories := make(map[string]struct{})
	for _, item := range items {
		lineTotal := item.UnitListPrice * float64(item.Quantity)
		subtotal += lineTotal
		categories[item.Category] = struct{}{}

		line := PricedLineItem{LineItem: item, LineTotal: lineTotal}
		if item.ProductCategory != "" {
			line.VolumeDiscountRate = VolumeRate(cfg, item.ProductCategory, item.Quantity)
			line.VolumeDiscountAmount = lineTotal * line.VolumeDiscountRate
		}
		priced = append(priced, line)
	}

	var volumeTotal float64
	for _, line := range priced {
		volumeTotal += line.VolumeDiscountAmount
	}

	bundleRate := BundleRate(cfg, len(categories))
	bundle := RateAmount{
		Rate:   bundleRate,
		Amount: subtotal * bundleRate,
		Reason: fmt.Sprintf("%d product lines", len(categories)),
	}

	afterVolumeAndBundle := subtotal - volumeTotal - bundle.Amount
	termRate := TermRate(cfg, termYears)
	term := RateAmount{
		Rate:   termRate,
		Amount: afterVolumeAndBundle * termRate,
		Reason: fmt.Sprintf("%d-year commitment", termYears),
	}

	specialBase := afterVolumeAndBundle - term.Amount
	applied := make([]AppliedSpecial, 0, len(specials))
	var specialTotal float64
	for _, sd := range specials {
		if sd.Rate <= 0 {
			continue
		}
		name := sd.Name
		if name == "" {
			name = sd.Type
		}
		if name == "" {
			name = "Special Discount"
		}
		amount := specialBase * sd.Rate
		specialTotal += amount
		applied = append(applied, AppliedSpecial{Name: name, Rate: sd.Rate, Amount: amount})
	}

	totalDiscount := volumeTotal + bundle.Amount + term.Amount + specialTotal
	if totalDiscount > subtotal {
		totalDiscount = subtotal
	}
	totalRate := 0.0
	if subtotal > 0 {
		totalRate = totalDiscount / subtotal
	}
	finalACV := subtotal - totalDiscount

	return Result{
		LineItems:           priced,
		Subtotal:            subtotal,
		VolumeDiscountTotal: volumeTotal,
		BundleDiscount:      bundle,
		TermDiscount:        term,
		SpecialDiscounts:    applied,
		TotalDiscount:       totalDiscount,
		TotalDiscountRate:   totalRate,
		FinalACV:            finalACV,
		FinalTCV:            finalACV * float64(termYears),
		Term:                termYears,
	}
}
