package payroll

import "errors"

var (
	ErrConfigurationMissing = errors.New("payroll configuration not found for company")
	ErrInvalidTaxBrackets   = errors.New("tax brackets are not contiguous, ordered and capped by one unbounded bracket")
	ErrVariableNotFound     = errors.New("payroll variable not found")
	ErrVariableCodeExists   = errors.New("payroll variable code already exists for this company")
	ErrMandatoryVariable    = errors.New("mandatory payroll variable cannot be deactivated or deleted")
	ErrEmployeeNotInCompany = errors.New("employee does not belong to this company")
	ErrInvalidVariableKind  = errors.New("invalid payroll variable kind")
	ErrInvalidMethod        = errors.New("invalid calculation method")
	ErrInvalidFormula       = errors.New("payroll variable formula is invalid")
)
