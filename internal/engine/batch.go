package engine

import (
	"context"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// batchWorkers bounds the fan-out of a batch run. Calculations are CPU-only,
// so a small fixed limit is enough.
const batchWorkers = 8

// CalculateBatch applies the engine to every employee for one period.
// Calculations run concurrently - each invocation owns its context - and a
// per-employee failure is recorded without stopping the siblings. Results
// follow the input employee ordering; the aggregate totals are a pure sum.
// inputs maps employee ID to that employee's input value overrides.
func (e *Engine) CalculateBatch(ctx context.Context, employees []employee.Employee, period string, inputs map[string]map[string]decimal.Decimal) payroll.BatchResult {
	results := make([]*payroll.CalculationResult, len(employees))
	failures := make([]error, len(employees))

	var g errgroup.Group
	g.SetLimit(batchWorkers)
	for i, emp := range employees {
		i, emp := i, emp
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				failures[i] = err
				return nil
			}
			result, err := e.Calculate(emp, period, inputs[emp.ID])
			if err != nil {
				failures[i] = err
				return nil
			}
			results[i] = &result
			return nil
		})
	}
	_ = g.Wait() // goroutines report through the slices, never an error

	batch := payroll.BatchResult{
		Period:       period,
		Calculations: make([]payroll.CalculationResult, 0, len(employees)),
		Totals: payroll.BatchTotals{
			GrossSalary:         decimal.Zero,
			TotalAllowances:     decimal.Zero,
			TotalDeductions:     decimal.Zero,
			TaxableIncome:       decimal.Zero,
			TaxAmount:           decimal.Zero,
			SocialContributions: decimal.Zero,
			NetSalary:           decimal.Zero,
			EmployerCost:        decimal.Zero,
		},
	}

	for i, emp := range employees {
		if failures[i] != nil {
			batch.Failures = append(batch.Failures, payroll.BatchFailure{
				EmployeeID: emp.ID,
				Err:        failures[i],
				Reason:     failures[i].Error(),
			})
			continue
		}
		result := *results[i]
		batch.Calculations = append(batch.Calculations, result)

		t := &batch.Totals
		t.GrossSalary = t.GrossSalary.Add(result.Totals.GrossSalary)
		t.TotalAllowances = t.TotalAllowances.Add(result.Totals.TotalAllowances)
		t.TotalDeductions = t.TotalDeductions.Add(result.Totals.TotalDeductions)
		t.TaxableIncome = t.TaxableIncome.Add(result.Totals.TaxableIncome)
		t.TaxAmount = t.TaxAmount.Add(result.Totals.TaxAmount)
		t.SocialContributions = t.SocialContributions.Add(result.Totals.SocialContributions)
		t.NetSalary = t.NetSalary.Add(result.Totals.NetSalary)
		t.EmployerCost = t.EmployerCost.Add(result.Totals.GrossSalary).Add(result.EmployerContributions)
	}

	return batch
}
