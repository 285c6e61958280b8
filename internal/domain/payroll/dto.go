package payroll

import (
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/formula"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== VARIABLE DTOs ==========

type CreateVariableRequest struct {
	Code           string           `json:"code"`
	Name           string           `json:"name"`
	Kind           string           `json:"kind"`
	Method         string           `json:"method"`
	FixedAmount    *decimal.Decimal `json:"fixed_amount,omitempty"`
	PercentageRate *decimal.Decimal `json:"percentage_rate,omitempty"`
	Formula        *string          `json:"formula,omitempty"`
	IsMandatory    *bool            `json:"is_mandatory,omitempty"`
	DisplayOrder   int              `json:"display_order"`
}

var validKinds = []string{
	string(KindFixed), string(KindAllowance), string(KindDeduction),
	string(KindContribution), string(KindTax),
}

var validMethods = []string{
	string(MethodFixed), string(MethodPercentage),
	string(MethodFormula), string(MethodProgressiveTax),
}

func (r *CreateVariableRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Code) {
		errs = append(errs, validator.ValidationError{Field: "code", Message: "is required"})
	} else if !validator.IsValidVariableCode(r.Code) {
		errs = append(errs, validator.ValidationError{Field: "code", Message: "must be 2-30 uppercase letters, digits or underscores starting with a letter"})
	}
	if validator.IsEmpty(r.Name) {
		errs = append(errs, validator.ValidationError{Field: "name", Message: "is required"})
	}
	if !validator.IsInSlice(r.Kind, validKinds) {
		errs = append(errs, validator.ValidationError{Field: "kind", Message: "must be one of fixed, allowance, deduction, contribution, tax"})
	}
	if !validator.IsInSlice(r.Method, validMethods) {
		errs = append(errs, validator.ValidationError{Field: "method", Message: "must be one of fixed, percentage, formula, progressive_tax"})
	}
	if r.FixedAmount != nil && r.FixedAmount.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "fixed_amount", Message: "must be non-negative"})
	}
	if r.PercentageRate != nil && r.PercentageRate.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "percentage_rate", Message: "must be non-negative"})
	}
	if r.Method == string(MethodFormula) {
		if r.Formula == nil || validator.IsEmpty(*r.Formula) {
			errs = append(errs, validator.ValidationError{Field: "formula", Message: "is required for formula variables"})
		} else if err := formula.Check(*r.Formula); err != nil {
			errs = append(errs, validator.ValidationError{Field: "formula", Message: "must be a valid arithmetic expression: " + err.Error()})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type UpdateVariableRequest struct {
	ID             string
	Name           *string          `json:"name,omitempty"`
	FixedAmount    *decimal.Decimal `json:"fixed_amount,omitempty"`
	PercentageRate *decimal.Decimal `json:"percentage_rate,omitempty"`
	Formula        *string          `json:"formula,omitempty"`
	IsActive       *bool            `json:"is_active,omitempty"`
	DisplayOrder   *int             `json:"display_order,omitempty"`
}

func (r *UpdateVariableRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.FixedAmount != nil && r.FixedAmount.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "fixed_amount", Message: "must be non-negative"})
	}
	if r.PercentageRate != nil && r.PercentageRate.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "percentage_rate", Message: "must be non-negative"})
	}
	if r.Formula != nil {
		if validator.IsEmpty(*r.Formula) {
			errs = append(errs, validator.ValidationError{Field: "formula", Message: "cannot be blank"})
		} else if err := formula.Check(*r.Formula); err != nil {
			errs = append(errs, validator.ValidationError{Field: "formula", Message: "must be a valid arithmetic expression: " + err.Error()})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ========== CALCULATION DTOs ==========

type CalculateRequest struct {
	EmployeeID  string                     `json:"employee_id"`
	Period      string                     `json:"period"`
	InputValues map[string]decimal.Decimal `json:"input_values,omitempty"`
}

func (r *CalculateRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is required"})
	}
	if validator.IsEmpty(r.Period) {
		errs = append(errs, validator.ValidationError{Field: "period", Message: "is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type CalculateBatchRequest struct {
	Period      string                                `json:"period"`
	EmployeeIDs []string                              `json:"employee_ids,omitempty"` // Empty = all active employees
	InputValues map[string]map[string]decimal.Decimal `json:"input_values,omitempty"` // employee id -> code -> amount
}

func (r *CalculateBatchRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Period) {
		errs = append(errs, validator.ValidationError{Field: "period", Message: "is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
