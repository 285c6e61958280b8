package engine

import (
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// ValidateBrackets checks the bracket table invariant: brackets are ordered
// ascending by Min, contiguous (each Min equals the previous Max), and exactly
// one bracket - the last - has a nil Max.
func ValidateBrackets(brackets []payroll.TaxBracket) error {
	if len(brackets) == 0 {
		return fmt.Errorf("%w: empty bracket table", payroll.ErrInvalidTaxBrackets)
	}

	for i, b := range brackets {
		if b.RatePercent.IsNegative() {
			return fmt.Errorf("%w: bracket %d has negative rate", payroll.ErrInvalidTaxBrackets, i)
		}
		if b.Max == nil {
			if i != len(brackets)-1 {
				return fmt.Errorf("%w: unbounded bracket %d is not the top bracket", payroll.ErrInvalidTaxBrackets, i)
			}
			continue
		}
		if !b.Max.GreaterThan(b.Min) {
			return fmt.Errorf("%w: bracket %d has max <= min", payroll.ErrInvalidTaxBrackets, i)
		}
		if i < len(brackets)-1 && !brackets[i+1].Min.Equal(*b.Max) {
			return fmt.Errorf("%w: gap or overlap between brackets %d and %d", payroll.ErrInvalidTaxBrackets, i, i+1)
		}
	}

	if brackets[len(brackets)-1].Max != nil {
		return fmt.Errorf("%w: missing unbounded top bracket", payroll.ErrInvalidTaxBrackets)
	}
	return nil
}

// ComputeProgressiveTax walks the bracket table in ascending order and sums
// the marginal tax of the portion of taxableIncome falling inside each
// bracket. Negative income is treated as zero. The result is rounded half-up
// to the currency's smallest unit given by exponent (decimal places).
func ComputeProgressiveTax(taxableIncome decimal.Decimal, brackets []payroll.TaxBracket, exponent int32) (decimal.Decimal, error) {
	if err := ValidateBrackets(brackets); err != nil {
		return decimal.Zero, err
	}

	if taxableIncome.IsNegative() {
		taxableIncome = decimal.Zero
	}

	hundred := decimal.NewFromInt(100)
	tax := decimal.Zero
	for _, b := range brackets {
		if taxableIncome.LessThanOrEqual(b.Min) {
			break
		}
		upper := taxableIncome
		if b.Max != nil && b.Max.LessThan(upper) {
			upper = *b.Max
		}
		portion := upper.Sub(b.Min)
		tax = tax.Add(portion.Mul(b.RatePercent).Div(hundred))
	}

	return tax.Round(exponent), nil
}
