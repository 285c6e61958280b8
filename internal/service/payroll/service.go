package payroll

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/engine"
	"go.uber.org/zap"
)

type PayrollServiceImpl struct {
	payrollRepo  payroll.PayrollRepository
	employeeRepo employee.EmployeeRepository
	logger       *zap.Logger
}

func NewPayrollService(
	payrollRepo payroll.PayrollRepository,
	employeeRepo employee.EmployeeRepository,
	logger *zap.Logger,
) payroll.PayrollService {
	return &PayrollServiceImpl{
		payrollRepo:  payrollRepo,
		employeeRepo: employeeRepo,
		logger:       logger,
	}
}

// loadEngine fetches the company configuration and active rule catalog and
// builds an engine from them. The catalog is loaded once and treated
// read-only for the lifetime of the returned engine.
func (s *PayrollServiceImpl) loadEngine(ctx context.Context, companyID string) (*engine.Engine, error) {
	config, err := s.payrollRepo.GetConfig(ctx, companyID)
	if err != nil {
		return nil, err
	}

	variables, err := s.payrollRepo.GetVariablesByCompanyID(ctx, companyID, true)
	if err != nil {
		return nil, err
	}
	if len(variables) == 0 {
		return nil, payroll.ErrConfigurationMissing
	}

	return engine.NewEngine(config, variables), nil
}

func (s *PayrollServiceImpl) Calculate(ctx context.Context, companyID string, req payroll.CalculateRequest) (payroll.CalculationResult, error) {
	if err := req.Validate(); err != nil {
		return payroll.CalculationResult{}, err
	}

	eng, err := s.loadEngine(ctx, companyID)
	if err != nil {
		return payroll.CalculationResult{}, err
	}

	emp, err := s.employeeRepo.GetByID(ctx, req.EmployeeID, companyID)
	if err != nil {
		return payroll.CalculationResult{}, err
	}

	result, err := eng.Calculate(emp, req.Period, req.InputValues)
	if err != nil {
		return payroll.CalculationResult{}, err
	}

	for _, warning := range result.Warnings {
		s.logger.Warn("payroll calculation warning",
			zap.String("company_id", companyID),
			zap.String("employee_id", emp.ID),
			zap.String("period", req.Period),
			zap.String("warning", warning),
		)
	}

	if err := s.payrollRepo.SaveResult(ctx, companyID, result); err != nil {
		return payroll.CalculationResult{}, fmt.Errorf("failed to persist calculation result: %w", err)
	}

	return result, nil
}

func (s *PayrollServiceImpl) CalculateBatch(ctx context.Context, companyID string, req payroll.CalculateBatchRequest) (payroll.BatchResult, error) {
	if err := req.Validate(); err != nil {
		return payroll.BatchResult{}, err
	}

	eng, err := s.loadEngine(ctx, companyID)
	if err != nil {
		return payroll.BatchResult{}, err
	}

	employees, err := s.employeeRepo.GetActiveByCompanyID(ctx, companyID)
	if err != nil {
		return payroll.BatchResult{}, fmt.Errorf("failed to list employees: %w", err)
	}
	if len(req.EmployeeIDs) > 0 {
		wanted := make(map[string]bool, len(req.EmployeeIDs))
		for _, id := range req.EmployeeIDs {
			wanted[id] = true
		}
		filtered := employees[:0]
		for _, emp := range employees {
			if wanted[emp.ID] {
				filtered = append(filtered, emp)
			}
		}
		employees = filtered
	}

	s.logger.Info("starting payroll batch",
		zap.String("company_id", companyID),
		zap.String("period", req.Period),
		zap.Int("employees", len(employees)),
	)

	batch := eng.CalculateBatch(ctx, employees, req.Period, req.InputValues)

	// Persistence failures get the same partial-failure treatment as
	// calculation failures: recorded per employee, never aborting the run.
	for _, result := range batch.Calculations {
		if err := s.payrollRepo.SaveResult(ctx, companyID, result); err != nil {
			s.logger.Error("failed to persist calculation result",
				zap.String("company_id", companyID),
				zap.String("employee_id", result.EmployeeID),
				zap.String("period", req.Period),
				zap.Error(err),
			)
			batch.Failures = append(batch.Failures, payroll.BatchFailure{
				EmployeeID: result.EmployeeID,
				Err:        err,
				Reason:     fmt.Sprintf("result not persisted: %v", err),
			})
		}
	}

	for _, failure := range batch.Failures {
		s.logger.Warn("payroll calculation failed for employee",
			zap.String("company_id", companyID),
			zap.String("employee_id", failure.EmployeeID),
			zap.String("period", req.Period),
			zap.Error(failure.Err),
		)
	}

	s.logger.Info("payroll batch finished",
		zap.String("company_id", companyID),
		zap.String("period", req.Period),
		zap.Int("succeeded", len(batch.Calculations)),
		zap.Int("failed", len(batch.Failures)),
		zap.String("employer_cost", batch.Totals.EmployerCost.String()),
	)

	return batch, nil
}

// ValidateInputs runs the advisory pre-calculation check for one employee's
// input values. The returned map is field -> message; callers decide whether
// to block the calculation on it.
func (s *PayrollServiceImpl) ValidateInputs(ctx context.Context, companyID string, req payroll.CalculateRequest) (map[string]string, error) {
	eng, err := s.loadEngine(ctx, companyID)
	if err != nil {
		return nil, err
	}

	errs := eng.ValidateInputs(req.InputValues)
	if len(errs) == 0 {
		return nil, nil
	}
	return errs.ToMap(), nil
}
