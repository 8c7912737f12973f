package deal

import (
	"github.com/noah-isme/backend-dealdesk/internal/approval"
	"github.com/noah-isme/backend-dealdesk/internal/pricing"
)

// Customer captures what is known about the buying account so far. Fields
// fill in incrementally as facts arrive.
type Customer struct {
	Name      string `json:"name,omitempty"`
	Employees int    `json:"employees,omitempty"`
	Segment   string `json:"segment,omitempty"`
	Industry  string `json:"industry,omitempty"`
	DealType  string `json:"dealType,omitempty"`
}

// Deal is the aggregate root of one pricing session. Pricing and Approvals
// are always derived from the other fields, never set independently.
type Deal struct {
	Customer         *Customer                 `json:"customer,omitempty"`
	LineItems        []pricing.LineItem        `json:"lineItems"`
	Term             int                       `json:"term"`
	SpecialDiscounts []pricing.SpecialDiscount `json:"specialDiscounts"`
	Pricing          *pricing.Result           `json:"pricing,omitempty"`
	Approvals        []approval.Requirement    `json:"approvals"`
}

// Update carries new facts for a deal. Nil fields are retained from the
// current state; non-nil slices replace wholesale, even when empty.
type Update struct {
	Customer         *Customer
	LineItems        []pricing.LineItem
	Term             *int
	SpecialDiscounts []pricing.SpecialDiscount
}

// Empty returns the canonical empty deal.
func Empty() Deal {
	return Deal{
		LineItems:        []pricing.LineItem{},
		Term:             1,
		SpecialDiscounts: []pricing.SpecialDiscount{},
		Approvals:        []approval.Requirement{},
	}
}

// HasData reports whether the deal carries any facts yet.
func (d Deal) HasData() bool {
	return d.Customer != nil || len(d.LineItems) > 0
}

// Apply merges an update into the current deal and rederives pricing and
// approvals. Pure function: the inputs are never mutated. A deal without
// line items carries no pricing, so stale numbers can never outlive the
// products they were computed from.
func Apply(current Deal, update Update, pcfg pricing.Config, acfg approval.Config) Deal {
	next := current
	if update.Customer != nil {
		next.Customer = mergeCustomer(current.Customer, *update.Customer)
	}
	if update.LineItems != nil {
		next.LineItems = update.LineItems
	}
	if update.Term != nil && *update.Term >= 1 {
		next.Term = *update.Term
	}
	if next.Term < 1 {
		next.Term = 1
	}
	if update.SpecialDiscounts != nil {
		next.SpecialDiscounts = update.SpecialDiscounts
	}

	if len(next.LineItems) == 0 {
		next.Pricing = nil
		next.Approvals = []approval.Requirement{}
		return next
	}

	result := pricing.Compute(next.LineItems, next.Term, next.SpecialDiscounts, pcfg)
	next.Pricing = &result
	next.Approvals = approval.Compute(result.TotalDiscountRate, result.FinalTCV, acfg)
	return next
}

// mergeCustomer overlays the incoming fields onto the known customer.
// Zero-valued fields in the update leave the existing value in place.
func mergeCustomer(current *Customer, incoming Customer) *Customer {
	merged := Customer{}
	if current != nil {
		merged = *current
	}
	if incoming.Name != "" {
		merged.Name = incoming.Name
	}
	if incoming.Employees > 0 {
		merged.Employees = incoming.Employees
	}
	if incoming.Segment != "" {
		merged.Segment = incoming.Segment
	}
	if incoming.Industry != "" {
		merged.Industry = incoming.Industry
	}
	if incoming.DealType != "" {
		merged.DealType = incoming.DealType
	}
	return &merged
}
