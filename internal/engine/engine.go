package engine

import (
	"fmt"
	"sort"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/formula"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// baseSalaryCode is the conventional catalog code for the base salary
// variable; an input value under this code overrides the stored base salary.
const baseSalaryCode = "SB"

// Engine turns an employee snapshot plus a company rule catalog into a
// gross/net salary breakdown. It is a pure computation: no I/O, no shared
// mutable state, safe for concurrent use. Construct one per company payroll
// configuration and reuse it across employees and periods.
type Engine struct {
	config  payroll.PayrollConfig
	catalog []payroll.PayrollVariable
}

// NewEngine copies the catalog and sorts it by display order, which is the
// evaluation order. The catalog is treated read-only afterwards.
func NewEngine(config payroll.PayrollConfig, catalog []payroll.PayrollVariable) *Engine {
	sorted := make([]payroll.PayrollVariable, len(catalog))
	copy(sorted, catalog)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DisplayOrder < sorted[j].DisplayOrder
	})
	return &Engine{config: config, catalog: sorted}
}

// calcContext is the ephemeral state of one calculation call. It is created
// at the start of Calculate and discarded after the result is assembled.
type calcContext struct {
	emp         employee.Employee
	inputValues map[string]decimal.Decimal
	computed    map[string]decimal.Decimal
	warnings    []string
}

func (c *calcContext) baseSalary() decimal.Decimal {
	if v, ok := c.inputValues[baseSalaryCode]; ok {
		return v
	}
	return c.emp.BaseSalary
}

// bindings returns the identifier table for formula evaluation: every value
// computed so far in display order, the base salary under salaire_base, and
// the demographic attributes formulas commonly reference.
func (c *calcContext) bindings() map[string]decimal.Decimal {
	b := make(map[string]decimal.Decimal, len(c.computed)+3)
	for code, v := range c.computed {
		b[code] = v
	}
	b[payroll.BindingBaseSalary] = c.baseSalary()
	b[payroll.BindingChildrenCount] = decimal.NewFromInt(int64(c.emp.ChildrenCount))
	married := decimal.Zero
	if c.emp.MaritalStatus == employee.MaritalStatusMarried {
		married = decimal.NewFromInt(1)
	}
	b[payroll.BindingMarried] = married
	return b
}

// Calculate runs the full payroll calculation for one employee and period.
// It fails with payroll.ErrConfigurationMissing when no rule catalog is
// configured and payroll.ErrEmployeeNotInCompany on a tenant mismatch; a
// bracket table violating its invariant surfaces payroll.ErrInvalidTaxBrackets.
// Formula failures and unknown methods never fail the calculation - they
// contribute zero and are flagged in the breakdown and warnings.
func (e *Engine) Calculate(emp employee.Employee, period string, inputValues map[string]decimal.Decimal) (payroll.CalculationResult, error) {
	if len(e.catalog) == 0 {
		return payroll.CalculationResult{}, payroll.ErrConfigurationMissing
	}
	if e.config.CompanyID != "" && emp.CompanyID != e.config.CompanyID {
		return payroll.CalculationResult{}, payroll.ErrEmployeeNotInCompany
	}

	ctx := &calcContext{
		emp:         emp,
		inputValues: inputValues,
		computed:    make(map[string]decimal.Decimal, len(e.catalog)),
	}

	totals := payroll.RunningTotals{
		GrossSalary:         decimal.Zero,
		TotalAllowances:     decimal.Zero,
		TotalDeductions:     decimal.Zero,
		TaxableIncome:       decimal.Zero,
		TaxAmount:           decimal.Zero,
		SocialContributions: decimal.Zero,
		NetSalary:           decimal.Zero,
	}

	breakdown := make([]payroll.BreakdownEntry, 0, len(e.catalog))
	taxEntry := -1   // breakdown index of the deferred tax variable
	taxFinal := true // false while the tax value still awaits the bracket resolver

	for _, v := range e.catalog {
		if !v.IsActive {
			continue
		}

		value, note, overridden := e.evaluateVariable(v, ctx)
		ctx.computed[v.Code] = value

		entry := payroll.BreakdownEntry{
			Code:   v.Code,
			Name:   v.Name,
			Kind:   v.Kind,
			Method: v.Method,
			Value:  value,
			Note:   note,
		}

		switch v.Kind {
		case payroll.KindFixed:
			totals.GrossSalary = totals.GrossSalary.Add(value)
			totals.TaxableIncome = totals.TaxableIncome.Add(value)
		case payroll.KindAllowance:
			totals.TotalAllowances = totals.TotalAllowances.Add(value)
			totals.TaxableIncome = totals.TaxableIncome.Add(value)
		case payroll.KindDeduction:
			totals.TotalDeductions = totals.TotalDeductions.Add(value)
		case payroll.KindContribution:
			totals.SocialContributions = totals.SocialContributions.Add(value)
		case payroll.KindTax:
			// Deferred: the taxable income total is only final after every
			// other variable has been folded in. An explicit override wins.
			if overridden {
				totals.TaxAmount = totals.TaxAmount.Add(value)
			} else if taxEntry == -1 {
				taxEntry = len(breakdown)
				taxFinal = false
			}
		default:
			entry.Value = decimal.Zero
			entry.Note = fmt.Sprintf("unknown variable kind %q, treated as 0", v.Kind)
			ctx.computed[v.Code] = decimal.Zero
			ctx.warnings = append(ctx.warnings, fmt.Sprintf("variable %s: %s", v.Code, entry.Note))
		}

		breakdown = append(breakdown, entry)
	}

	if !taxFinal {
		tax, err := ComputeProgressiveTax(totals.TaxableIncome, e.config.Brackets, e.config.CurrencyExponent())
		if err != nil {
			return payroll.CalculationResult{}, err
		}
		totals.TaxAmount = totals.TaxAmount.Add(tax)
		breakdown[taxEntry].Value = tax
		ctx.computed[breakdown[taxEntry].Code] = tax
	}

	totals.NetSalary = totals.GrossSalary.
		Add(totals.TotalAllowances).
		Sub(totals.TotalDeductions).
		Sub(totals.TaxAmount).
		Sub(totals.SocialContributions)

	employerContribs := totals.GrossSalary.
		Mul(e.config.EmployerContributionRate).
		Div(decimal.NewFromInt(100)).
		Round(e.config.CurrencyExponent())

	return payroll.CalculationResult{
		EmployeeID:            emp.ID,
		Period:                period,
		Totals:                totals,
		EmployerContributions: employerContribs,
		Breakdown:             breakdown,
		Warnings:              ctx.warnings,
	}, nil
}

// evaluateVariable resolves one variable's value. Resolution order, first
// match wins: caller-supplied override, fixed amount, percentage of base,
// formula, deferred progressive tax. The returned note flags degraded values.
func (e *Engine) evaluateVariable(v payroll.PayrollVariable, ctx *calcContext) (value decimal.Decimal, note string, overridden bool) {
	if override, ok := ctx.inputValues[v.Code]; ok {
		return override, "", true
	}

	switch v.Method {
	case payroll.MethodFixed:
		return v.FixedAmount, "", false
	case payroll.MethodPercentage:
		return ctx.baseSalary().Mul(v.PercentageRate).Div(decimal.NewFromInt(100)), "", false
	case payroll.MethodFormula:
		result, err := formula.Eval(v.Formula, ctx.bindings())
		if err != nil {
			warning := fmt.Sprintf("formula for %s could not be evaluated, treated as 0: %v", v.Code, err)
			ctx.warnings = append(ctx.warnings, warning)
			return decimal.Zero, "formula evaluation failed, treated as 0", false
		}
		return result, "", false
	case payroll.MethodProgressiveTax:
		// Placeholder value; replaced by the bracket resolver after the loop.
		return decimal.Zero, "", false
	default:
		warning := fmt.Sprintf("variable %s: unknown calculation method %q, treated as 0", v.Code, v.Method)
		ctx.warnings = append(ctx.warnings, warning)
		return decimal.Zero, fmt.Sprintf("unknown calculation method %q, treated as 0", v.Method), false
	}
}

// ValidateInputs is the advisory pre-calculation check: every mandatory
// fixed-method variable must be supplied in inputValues, and supplied values
// must be non-negative. Callers decide whether to block on the errors.
func (e *Engine) ValidateInputs(inputValues map[string]decimal.Decimal) validator.ValidationErrors {
	var errs validator.ValidationErrors

	for _, v := range e.catalog {
		if !v.IsActive || !v.IsMandatory || v.Method != payroll.MethodFixed {
			continue
		}
		if _, ok := inputValues[v.Code]; !ok {
			errs = append(errs, validator.ValidationError{
				Field:   v.Code,
				Message: "mandatory variable has no input value",
			})
		}
	}

	codes := make([]string, 0, len(inputValues))
	for code := range inputValues {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		if inputValues[code].IsNegative() {
			errs = append(errs, validator.ValidationError{
				Field:   code,
				Message: "input value must be a non-negative number",
			})
		}
	}

	return errs
}
