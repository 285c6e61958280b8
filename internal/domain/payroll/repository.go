package payroll

import "context"

// PayrollRepository defines data access for the rule catalog, company payroll
// configuration and persisted calculation results.
// All methods include companyID to prevent cross-company data access.
type PayrollRepository interface {
	// Configuration
	GetConfig(ctx context.Context, companyID string) (PayrollConfig, error)
	UpsertConfig(ctx context.Context, config PayrollConfig) (PayrollConfig, error)

	// Rule catalog
	CreateVariable(ctx context.Context, variable PayrollVariable) (PayrollVariable, error)
	GetVariableByID(ctx context.Context, id string, companyID string) (PayrollVariable, error)
	GetVariablesByCompanyID(ctx context.Context, companyID string, activeOnly bool) ([]PayrollVariable, error)
	UpdateVariable(ctx context.Context, companyID string, req UpdateVariableRequest) error
	DeleteVariable(ctx context.Context, id string, companyID string) error

	// Calculation results
	SaveResult(ctx context.Context, companyID string, result CalculationResult) error
	GetResultsByPeriod(ctx context.Context, companyID string, period string) ([]CalculationResult, error)
}
