package payroll

import "context"

// PayrollService orchestrates calculations around the pure engine: it loads
// the company configuration and rule catalog, runs the engine and persists
// the resulting breakdowns.
type PayrollService interface {
	Calculate(ctx context.Context, companyID string, req CalculateRequest) (CalculationResult, error)
	CalculateBatch(ctx context.Context, companyID string, req CalculateBatchRequest) (BatchResult, error)
	ValidateInputs(ctx context.Context, companyID string, req CalculateRequest) (map[string]string, error)
}
