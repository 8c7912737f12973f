package quote

import (
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/backend-dealdesk/internal/common"
	"github.com/noah-isme/backend-dealdesk/internal/deal"
)

// Currency is one supported display currency. Rates convert from USD and
// are fixed; the stored pricing is always USD and is never recomputed here.
type Currency struct {
	Code   string  `json:"code"`
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Rate   float64 `json:"rate"`
}

// Currencies enumerates the supported display currencies.
var Currencies = map[string]Currency{
	"USD": {Code: "USD", Symbol: "$", Name: "US Dollar", Rate: 1},
	"AUD": {Code: "AUD", Symbol: "A$", Name: "Australian Dollar", Rate: 1.53},
	"CAD": {Code: "CAD", Symbol: "C$", Name: "Canadian Dollar", Rate: 1.36},
	"EUR": {Code: "EUR", Symbol: "€", Name: "Euro", Rate: 0.92},
	"GBP": {Code: "GBP", Symbol: "£", Name: "British Pound", Rate: 0.79},
	"INR": {Code: "INR", Symbol: "₹", Name: "Indian Rupee", Rate: 83.12},
}

// DefaultCurrency is used when a request names no currency.
const DefaultCurrency = "USD"

// LineRow is one formatted product line.
type LineRow struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	LineTotal string `json:"lineTotal"`
}

// SummaryRow is one formatted pricing summary line. Discount amounts carry
// a leading minus sign.
type SummaryRow struct {
	Label  string `json:"label"`
	Amount string `json:"amount"`
}

// Document is a renderer-ready quote. Every amount is already formatted;
// consumers only lay it out, they never recompute.
type Document struct {
	QuoteNumber  string       `json:"quoteNumber"`
	IssuedAt     time.Time    `json:"issuedAt"`
	ValidUntil   time.Time    `json:"validUntil"`
	Currency     Currency     `json:"currency"`
	Customer     *deal.Customer `json:"customer,omitempty"`
	LineItems    []LineRow    `json:"lineItems"`
	Summary      []SummaryRow `json:"summary"`
	FinalACV     string       `json:"finalACV"`
	FinalTCV     string       `json:"finalTCV"`
	Term         int          `json:"term"`
	PaymentTerms string       `json:"paymentTerms"`
	Notice       string       `json:"notice"`
}

// Builder assembles quote documents from stored deals. Now and Sequence
// exist so tests get stable output.
type Builder struct {
	Now      func() time.Time
	Sequence func() int
}

// Build formats the stored pricing into a quote document. Deals without
// priced line items cannot be quoted.
func (b Builder) Build(d deal.Deal, currencyCode string) (Document, error) {
	if d.Pricing == nil || len(d.Pricing.LineItems) == 0 {
		return Document{}, &common.AppError{
			Code:       "CONFLICT",
			Message:    "deal has no priced line items to quote",
			HTTPStatus: http.StatusConflict,
		}
	}
	currency, ok := Currencies[strings.ToUpper(strings.TrimSpace(currencyCode))]
	if !ok {
		if currencyCode != "" {
			return Document{}, &common.AppError{
				Code:       "BAD_REQUEST",
				Message:    "unsupported currency",
				HTTPStatus: http.StatusBadRequest,
				Details:    map[string]any{"currency": currencyCode},
			}
		}
		currency = Currencies[DefaultCurrency]
	}

	now := time.Now()
	if b.Now != nil {
		now = b.Now()
	}
	seq := 1000 + rand.Intn(9000)
	if b.Sequence != nil {
		seq = b.Sequence()
	}

	pricing := *d.Pricing
	doc := Document{
		QuoteNumber:  fmt.Sprintf("Q-%d-%04d", now.Year(), seq),
		IssuedAt:     now,
		ValidUntil:   now.Add(30 * 24 * time.Hour),
		Currency:     currency,
		Customer:     d.Customer,
		Term:         pricing.Term,
		FinalACV:     formatMoney(pricing.FinalACV, currency),
		FinalTCV:     formatMoney(pricing.FinalTCV, currency),
		PaymentTerms: "Net 30",
		Notice:       "This quote is subject to Enterprise Program Terms and Conditions.",
	}

	doc.LineItems = make([]LineRow, 0, len(pricing.LineItems))
	for _, item := range pricing.LineItems {
		doc.LineItems = append(doc.LineItems, LineRow{
			Name:      item.DisplayName,
			Quantity:  item.Quantity,
			UnitPrice: formatMoney(item.UnitListPrice, currency),
			LineTotal: formatMoney(item.LineTotal, currency),
		})
	}

	doc.Summary = append(doc.Summary, SummaryRow{Label: "Subtotal (List Price)", Amount: formatMoney(pricing.Subtotal, currency)})
	if pricing.VolumeDiscountTotal > 0 {
		doc.Summary = append(doc.Summary, SummaryRow{Label: "Volume Discount", Amount: "-" + formatMoney(pricing.VolumeDiscountTotal, currency)})
	}
	if pricing.BundleDiscount.Amount > 0 {
		doc.Summary = append(doc.Summary, SummaryRow{
			Label:  fmt.Sprintf("Bundle Discount (%.0f%%)", pricing.BundleDiscount.Rate*100),
			Amount: "-" + formatMoney(pricing.BundleDiscount.Amount, currency),
		})
	}
	if pricing.TermDiscount.Amount > 0 {
		doc.Summary = append(doc.Summary, SummaryRow{
			Label:  fmt.Sprintf("Multi-Year Discount (%dyr)", pricing.Term),
			Amount: "-" + formatMoney(pricing.TermDiscount.Amount, currency),
		})
	}
	for _, sd := range pricing.SpecialDiscounts {
		doc.Summary = append(doc.Summary, SummaryRow{
			Label:  fmt.Sprintf("%s (%.0f%%)", sd.Name, sd.Rate*100),
			Amount: "-" + formatMoney(sd.Amount, currency),
		})
	}
	if pricing.TotalDiscountRate > 0 {
		doc.Summary = append(doc.Summary, SummaryRow{
			Label:  fmt.Sprintf("Total Discount (%.1f%%)", pricing.TotalDiscountRate*100),
			Amount: "-" + formatMoney(pricing.TotalDiscount, currency),
		})
	}
	return doc, nil
}

// RenderText lays the document out as a plain-text proposal for email.
func (b Builder) RenderText(doc Document) string {
	var sb strings.Builder
	sb.WriteString("Enterprise Program Quote\n")
	sb.WriteString(strings.Repeat("=", 40) + "\n\n")
	fmt.Fprintf(&sb, "Quote Number: %s\n", doc.QuoteNumber)
	fmt.Fprintf(&sb, "Date: %s\n", doc.IssuedAt.Format("January 2, 2006"))
	fmt.Fprintf(&sb, "Valid Until: %s\n", doc.ValidUntil.Format("January 2, 2006"))
	fmt.Fprintf(&sb, "Currency: %s\n\n", doc.Currency.Code)

	if doc.Customer != nil {
		sb.WriteString("Prepared For\n")
		sb.WriteString(strings.Repeat("-", 40) + "\n")
		if doc.Customer.Name != "" {
			sb.WriteString(doc.Customer.Name + "\n")
		}
		if doc.Customer.Employees > 0 {
			fmt.Fprintf(&sb, "%s employees\n", groupDigits(strconv.Itoa(doc.Customer.Employees)))
		}
		if doc.Customer.Segment != "" {
			fmt.Fprintf(&sb, "Segment: %s\n", doc.Customer.Segment)
		}
		if doc.Customer.Industry != "" {
			fmt.Fprintf(&sb, "Industry: %s\n", doc.Customer.Industry)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Products & Services\n")
	sb.WriteString(strings.Repeat("-", 40) + "\n")
	for _, row := range doc.LineItems {
		fmt.Fprintf(&sb, "%s  x%d  %s  (%s each)\n", row.Name, row.Quantity, row.LineTotal, row.UnitPrice)
	}
	sb.WriteString("\n")

	sb.WriteString("Pricing Summary\n")
	sb.WriteString(strings.Repeat("-", 40) + "\n")
	for _, row := range doc.Summary {
		fmt.Fprintf(&sb, "%s: %s\n", row.Label, row.Amount)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Annual Contract Value (ACV): %s\n", doc.FinalACV)
	if doc.Term > 1 {
		fmt.Fprintf(&sb, "Total Contract Value (%d years): %s\n", doc.Term, doc.FinalTCV)
	}
	sb.WriteString("\n")

	sb.WriteString("Contract Terms\n")
	sb.WriteString(strings.Repeat("-", 40) + "\n")
	plural := ""
	if doc.Term > 1 {
		plural = "s"
	}
	fmt.Fprintf(&sb, "Contract Duration: %d year%s\n", doc.Term, plural)
	fmt.Fprintf(&sb, "Payment Terms: %s\n", doc.PaymentTerms)
	sb.WriteString(doc.Notice + "\n")
	return sb.String()
}

// formatMoney converts a USD amount into the display currency and renders
// it with the currency symbol and no decimal places.
func formatMoney(amountUSD float64, currency Currency) string {
	converted := math.Round(amountUSD * currency.Rate)
	raw := strconv.FormatFloat(converted, 'f', 0, 64)
	negative := strings.HasPrefix(raw, "-")
	if negative {
		raw = raw[1:]
	}
	grouped := groupDigits(raw)
	if negative {
		return "-" + currency.Symbol + grouped
	}
	return currency.Symbol + grouped
}

func groupDigits(raw string) string {
	var out []byte
	for i := range raw {
		if i > 0 && (len(raw)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, raw[i])
	}
	return string(out)
}
