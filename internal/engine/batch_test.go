package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWorkforce(n int) []employee.Employee {
	employees := make([]employee.Employee, 0, n)
	for i := 0; i < n; i++ {
		employees = append(employees, employee.Employee{
			ID:           fmt.Sprintf("emp-%d", i+1),
			CompanyID:    "company-1",
			EmployeeCode: fmt.Sprintf("%04d-2024", i+1),
			BaseSalary:   d(int64(500000 + i*100000)),
		})
	}
	return employees
}

func TestEngine_CalculateBatch(t *testing.T) {
	t.Parallel()

	eng := NewEngine(testConfig(), testCatalog())
	employees := testWorkforce(5)

	batch := eng.CalculateBatch(context.Background(), employees, "2025-03", nil)

	require.Len(t, batch.Calculations, 5)
	assert.Empty(t, batch.Failures)
	assert.Equal(t, "2025-03", batch.Period)

	// Output ordering follows input employee ordering.
	for i, result := range batch.Calculations {
		assert.Equal(t, employees[i].ID, result.EmployeeID)
	}

	// Aggregate totals are the element-wise sum of the individual results,
	// and employer cost adds the employer-side contributions on top.
	wantNet := decimal.Zero
	wantEmployerCost := decimal.Zero
	for _, result := range batch.Calculations {
		wantNet = wantNet.Add(result.Totals.NetSalary)
		wantEmployerCost = wantEmployerCost.Add(result.Totals.GrossSalary).Add(result.EmployerContributions)
	}
	assert.True(t, wantNet.Equal(batch.Totals.NetSalary))
	assert.True(t, wantEmployerCost.Equal(batch.Totals.EmployerCost))
}

func TestEngine_CalculateBatch_IsolatesFailures(t *testing.T) {
	t.Parallel()

	eng := NewEngine(testConfig(), testCatalog())
	employees := testWorkforce(4)
	// A record from another tenant placed in the middle of the run.
	employees[2].CompanyID = "company-2"

	batch := eng.CalculateBatch(context.Background(), employees, "2025-03", nil)

	require.Len(t, batch.Calculations, 3)
	require.Len(t, batch.Failures, 1)
	assert.Equal(t, "emp-3", batch.Failures[0].EmployeeID)
	assert.ErrorIs(t, batch.Failures[0].Err, payroll.ErrEmployeeNotInCompany)
	assert.NotEmpty(t, batch.Failures[0].Reason)

	// The survivors kept their input ordering.
	gotIDs := make([]string, 0, len(batch.Calculations))
	for _, result := range batch.Calculations {
		gotIDs = append(gotIDs, result.EmployeeID)
	}
	assert.Equal(t, []string{"emp-1", "emp-2", "emp-4"}, gotIDs)
}

func TestEngine_CalculateBatch_PerEmployeeInputs(t *testing.T) {
	t.Parallel()

	eng := NewEngine(testConfig(), testCatalog())
	employees := testWorkforce(2)

	batch := eng.CalculateBatch(context.Background(), employees, "2025-03", map[string]map[string]decimal.Decimal{
		"emp-2": {"ABSENCE": d(30000)},
	})

	require.Len(t, batch.Calculations, 2)
	assert.Equal(t, "0", batch.Calculations[0].Totals.TotalDeductions.String())
	assert.Equal(t, "30000", batch.Calculations[1].Totals.TotalDeductions.String())
}

func TestEngine_CalculateBatch_AggregateIsOrderIndependent(t *testing.T) {
	t.Parallel()

	eng := NewEngine(testConfig(), testCatalog())
	employees := testWorkforce(6)

	forward := eng.CalculateBatch(context.Background(), employees, "2025-03", nil)

	reversed := make([]employee.Employee, len(employees))
	for i, emp := range employees {
		reversed[len(employees)-1-i] = emp
	}
	backward := eng.CalculateBatch(context.Background(), reversed, "2025-03", nil)

	assert.True(t, forward.Totals.NetSalary.Equal(backward.Totals.NetSalary))
	assert.True(t, forward.Totals.GrossSalary.Equal(backward.Totals.GrossSalary))
	assert.True(t, forward.Totals.TaxAmount.Equal(backward.Totals.TaxAmount))
	assert.True(t, forward.Totals.EmployerCost.Equal(backward.Totals.EmployerCost))
}

func TestEngine_CalculateBatch_CancelledContext(t *testing.T) {
	t.Parallel()

	eng := NewEngine(testConfig(), testCatalog())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := eng.CalculateBatch(ctx, testWorkforce(3), "2025-03", nil)

	assert.Empty(t, batch.Calculations)
	require.Len(t, batch.Failures, 3)
	for _, failure := range batch.Failures {
		assert.ErrorIs(t, failure.Err, context.Canceled)
	}
}
