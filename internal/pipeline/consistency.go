package pipeline

import (
	"github.com/joseph-ayodele/document-extractor/internal/entity"
	"github.com/shopspring/decimal"
)

// DefaultTolerance is the largest accepted gap between the reported total and
// subtotal plus taxes.
var DefaultTolerance = decimal.RequireFromString("0.01")

// CheckConsistency compares total_amount with subtotal + cgst + sgst + igst.
// The check runs only when subtotal, total and at least one tax component are
// present; absent components then count as zero. It returns nil when the check
// passes or cannot run.
func CheckConsistency(r *entity.DocumentRecord, tolerance decimal.Decimal) *entity.ConsistencyWarning {
	if r == nil {
		return nil
	}
	subtotal, okSub := parseAmount(r.Subtotal)
	total, okTotal := parseAmount(r.TotalAmount)
	if !okSub || !okTotal {
		return nil
	}

	taxes := decimal.Zero
	seen := 0
	for _, s := range []string{r.CGST, r.SGST, r.IGST} {
		if v, ok := parseAmount(s); ok {
			taxes = taxes.Add(v)
			seen++
		}
	}
	if seen == 0 {
		return nil
	}

	expected := subtotal.Add(taxes)
	diff := total.Sub(expected)
	if diff.Abs().LessThanOrEqual(tolerance) {
		return nil
	}
	return &entity.ConsistencyWarning{
		Expected:   expected.StringFixed(2),
		Reported:   r.TotalAmount,
		Difference: diff.StringFixed(2),
	}
}

func parseAmount(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
