package approval

import (
	"fmt"
	"sort"
	"strconv"
)

// Category identifies which axis of the matrix triggered a requirement.
type Category string

const (
	// CategoryDiscount marks requirements triggered by the discount rate.
	CategoryDiscount Category = "Discount"
	// CategoryDealSize marks requirements triggered by total contract value.
	CategoryDealSize Category = "Deal Size"
)

// escalationApprover signs off anything above the configured thresholds.
const escalationApprover = "CFO"

// DiscountThreshold is one rung of the discount approval ladder. MaxRate is
// a fraction; thresholds are ordered ascending and the first rung is the
// auto-approve ceiling.
type DiscountThreshold struct {
	MaxRate      float64
	Approver     string
	ServiceLevel string
}

// TCVThreshold is one rung of the deal-size approval ladder.
type TCVThreshold struct {
	MaxTCV   float64
	Approver string
}

// Config holds both approval ladders.
type Config struct {
	Discount []DiscountThreshold
	TCV      []TCVThreshold
}

// Requirement names one approver the deal must pass through. Level is the
// matched rung's position (1-based); level 1 is auto-approval and never
// appears in output.
type Requirement struct {
	Category     Category `json:"category"`
	Approver     string   `json:"approver"`
	ServiceLevel string   `json:"serviceLevel,omitempty"`
	Reason       string   `json:"reason"`
	Level        int      `json:"level"`
}

// Compute returns the ordered approvals a deal requires. Discount rate and
// contract value are checked independently because either axis alone can
// force escalation; duplicated approvers keep their highest level, and the
// result is sorted most senior first. The matrix output is the sole
// authority on approvers; upstream prose never overrides it.
func Compute(discountRate, totalContractValue float64, cfg Config) []Requirement {
	var candidates []Requirement

	approver, serviceLevel, level := matchDiscount(discountRate, cfg.Discount)
	if level > 1 {
		candidates = append(candidates, Requirement{
			Category:     CategoryDiscount,
			Approver:     approver,
			ServiceLevel: serviceLevel,
			Reason:       fmt.Sprintf("Discount of %.1f%%", discountRate*100),
			Level:        level,
		})
	}

	approver, level = matchTCV(totalContractValue, cfg.TCV)
	if level > 1 {
		candidates = append(candidates, Requirement{
			Category:     CategoryDealSize,
			Approver:     approver,
			ServiceLevel: "Standard review",
			Reason:       fmt.Sprintf("TCV of $%s", formatAmount(totalContractValue)),
			Level:        level,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Level > candidates[j].Level
	})

	result := make([]Requirement, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.Approver]; ok {
			continue
		}
		seen[c.Approver] = struct{}{}
		result = append(result, c)
	}
	return result
}

func matchDiscount(rate float64, thresholds []DiscountThreshold) (approver, serviceLevel string, level int) {
	for i, t := range thresholds {
		if rate <= t.MaxRate {
			return t.Approver, t.ServiceLevel, i + 1
		}
	}
	// Over every configured rung: synthesize a top escalation tier.
	return escalationApprover, "5 business days", len(thresholds) + 1
}

func matchTCV(tcv float64, thresholds []TCVThreshold) (approver string, level int) {
	for i, t := range thresholds {
		if tcv <= t.MaxTCV {
			return t.Approver, i + 1
		}
	}
	return escalationApprover, len(thresholds) + 1
}

func formatAmount(v float64) string {
	raw := strconv.FormatFloat(v, 'f', 0, 64)
	negative := false
	if len(raw) > 0 && raw[0] == '-' {
		negative = true
		raw = raw[1:]
	}
	var out []byte
	for i, c := range []byte(raw) {
		if i > 0 && (len(raw)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	if negative {
		return "-" + string(out)
	}
	return string(out)
}
