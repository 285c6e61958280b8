package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// VariableKind enum - determines which running total a computed value is added to
type VariableKind string

const (
	KindFixed        VariableKind = "fixed"
	KindAllowance    VariableKind = "allowance"
	KindDeduction    VariableKind = "deduction"
	KindContribution VariableKind = "contribution"
	KindTax          VariableKind = "tax"
)

// CalculationMethod enum
type CalculationMethod string

const (
	MethodFixed          CalculationMethod = "fixed"
	MethodPercentage     CalculationMethod = "percentage"
	MethodFormula        CalculationMethod = "formula"
	MethodProgressiveTax CalculationMethod = "progressive_tax"
)

// PayrollVariable - one named, typed rule in a company's rule catalog.
// Code is unique per company. A mandatory variable cannot be deactivated or deleted.
type PayrollVariable struct {
	ID             string
	CompanyID      string
	Code           string
	Name           string
	Kind           VariableKind
	Method         CalculationMethod
	FixedAmount    decimal.Decimal
	PercentageRate decimal.Decimal
	Formula        string
	IsMandatory    bool
	IsActive       bool
	DisplayOrder   int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Identifiers every formula may reference in addition to previously computed
// catalog codes.
const (
	BindingBaseSalary    = "salaire_base"
	BindingChildrenCount = "nb_enfants"
	BindingMarried       = "est_marie"
)

// FormulaBuiltins lists the identifiers available to every formula regardless
// of the company's catalog.
func FormulaBuiltins() []string {
	return []string{BindingBaseSalary, BindingChildrenCount, BindingMarried}
}

// TaxBracket - one progressive income tax bracket. Max nil means the
// unbounded top marginal bracket.
type TaxBracket struct {
	Min         decimal.Decimal
	Max         *decimal.Decimal
	RatePercent decimal.Decimal
}

// PayrollConfig - company payroll configuration. Created once by
// administrators, read-only during a calculation run.
type PayrollConfig struct {
	ID                       string
	CompanyID                string
	CountryCode              string
	CurrencyCode             string
	Brackets                 []TaxBracket
	EmployeeContributionRate decimal.Decimal
	EmployerContributionRate decimal.Decimal
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// CurrencyExponent returns the number of decimal places of the currency's
// smallest unit, used when rounding the tax amount.
func (c PayrollConfig) CurrencyExponent() int32 {
	switch c.CurrencyCode {
	case "XOF", "XAF", "JPY", "KRW", "GNF", "RWF", "UGX", "VND":
		return 0
	case "BHD", "KWD", "TND":
		return 3
	default:
		return 2
	}
}

// RunningTotals - the accumulator of one calculation.
type RunningTotals struct {
	GrossSalary         decimal.Decimal `json:"gross_salary"`
	TotalAllowances     decimal.Decimal `json:"total_allowances"`
	TotalDeductions     decimal.Decimal `json:"total_deductions"`
	TaxableIncome       decimal.Decimal `json:"taxable_income"`
	TaxAmount           decimal.Decimal `json:"tax_amount"`
	SocialContributions decimal.Decimal `json:"social_contributions"`
	NetSalary           decimal.Decimal `json:"net_salary"`
}

// BreakdownEntry - one itemized computed value backing a calculation result.
// Kept as an ordered slice so payslip display follows DisplayOrder.
type BreakdownEntry struct {
	Code   string            `json:"code"`
	Name   string            `json:"name"`
	Kind   VariableKind      `json:"kind"`
	Method CalculationMethod `json:"method"`
	Value  decimal.Decimal   `json:"value"`
	Note   string            `json:"note,omitempty"`
}

// CalculationResult - the output of one engine run. The caller persists it,
// renders it into a payslip, or aggregates it; the engine does none of that.
type CalculationResult struct {
	EmployeeID            string           `json:"employee_id"`
	Period                string           `json:"period"`
	Totals                RunningTotals    `json:"totals"`
	EmployerContributions decimal.Decimal  `json:"employer_contributions"`
	Breakdown             []BreakdownEntry `json:"breakdown"`
	Warnings              []string         `json:"warnings,omitempty"`
}

// BatchFailure - one employee whose calculation failed during a batch run.
type BatchFailure struct {
	EmployeeID string `json:"employee_id"`
	Err        error  `json:"-"`
	Reason     string `json:"reason"`
}

// BatchTotals - element-wise sum of the successful results of a batch run.
type BatchTotals struct {
	GrossSalary         decimal.Decimal `json:"gross_salary"`
	TotalAllowances     decimal.Decimal `json:"total_allowances"`
	TotalDeductions     decimal.Decimal `json:"total_deductions"`
	TaxableIncome       decimal.Decimal `json:"taxable_income"`
	TaxAmount           decimal.Decimal `json:"tax_amount"`
	SocialContributions decimal.Decimal `json:"social_contributions"`
	NetSalary           decimal.Decimal `json:"net_salary"`
	EmployerCost        decimal.Decimal `json:"employer_cost"`
}

// BatchResult - per-employee results in input order, aggregate totals and
// isolated failures of one batch run.
type BatchResult struct {
	Period       string              `json:"period"`
	Calculations []CalculationResult `json:"calculations"`
	Totals       BatchTotals         `json:"totals"`
	Failures     []BatchFailure      `json:"failures,omitempty"`
}
