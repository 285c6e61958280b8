package postgresql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
)

// ===== querier fakes =====
//
// The catalog guards run before any SQL takes effect, so they are testable
// against a hand-rolled Querier without a live database.

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakeQuerier struct {
	queryRow func(sql string, args ...any) pgx.Row
	query    func(sql string, args ...any) (pgx.Rows, error)
	exec     func(sql string, args ...any) (pgconn.CommandTag, error)
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	if q.queryRow == nil {
		return fakeRow{scan: func(...any) error { return errors.New("unexpected QueryRow") }}
	}
	return q.queryRow(sql, args...)
}

func (q *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	if q.query == nil {
		return nil, errors.New("unexpected Query")
	}
	return q.query(sql, args...)
}

func (q *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if q.exec == nil {
		return pgconn.NewCommandTag("UPDATE 1"), nil
	}
	return q.exec(sql, args...)
}

// assignVariable writes one catalog row into the scan destinations in the
// column order every payroll_variables SELECT and RETURNING clause uses.
func assignVariable(dest []any, v payroll.PayrollVariable) {
	*(dest[0].(*string)) = v.ID
	*(dest[1].(*string)) = v.CompanyID
	*(dest[2].(*string)) = v.Code
	*(dest[3].(*string)) = v.Name
	*(dest[4].(*payroll.VariableKind)) = v.Kind
	*(dest[5].(*payroll.CalculationMethod)) = v.Method
	*(dest[6].(*decimal.Decimal)) = v.FixedAmount
	*(dest[7].(*decimal.Decimal)) = v.PercentageRate
	*(dest[8].(*string)) = v.Formula
	*(dest[9].(*bool)) = v.IsMandatory
	*(dest[10].(*bool)) = v.IsActive
	*(dest[11].(*int)) = v.DisplayOrder
	*(dest[12].(*time.Time)) = v.CreatedAt
	*(dest[13].(*time.Time)) = v.UpdatedAt
}

func variableRow(v payroll.PayrollVariable) pgx.Row {
	return fakeRow{scan: func(dest ...any) error {
		assignVariable(dest, v)
		return nil
	}}
}

type variableRows struct {
	variables []payroll.PayrollVariable
	pos       int
}

func (r *variableRows) Next() bool {
	r.pos++
	return r.pos <= len(r.variables)
}

func (r *variableRows) Scan(dest ...any) error {
	assignVariable(dest, r.variables[r.pos-1])
	return nil
}

func (r *variableRows) Close()                                       {}
func (r *variableRows) Err() error                                   { return nil }
func (r *variableRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *variableRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *variableRows) Values() ([]any, error)                       { return nil, nil }
func (r *variableRows) RawValues() [][]byte                          { return nil }
func (r *variableRows) Conn() *pgx.Conn                              { return nil }

// ===== fixtures =====

func baseSalaryVariable() payroll.PayrollVariable {
	return payroll.PayrollVariable{
		ID:          "v-1",
		CompanyID:   "company-1",
		Code:        "SB",
		Name:        "Salaire de base",
		Kind:        payroll.KindFixed,
		Method:      payroll.MethodFixed,
		FixedAmount: decimal.NewFromInt(800000),
		IsMandatory: true,
		IsActive:    true,
	}
}

// ===== tests =====

func TestPayrollRepository_CreateVariable_RejectsInvalidEnums(t *testing.T) {
	t.Parallel()

	repo := &payrollRepository{db: &fakeQuerier{}}

	t.Run("unknown kind", func(t *testing.T) {
		t.Parallel()
		v := baseSalaryVariable()
		v.Kind = payroll.VariableKind("bonus")
		_, err := repo.CreateVariable(context.Background(), v)
		assert.ErrorIs(t, err, payroll.ErrInvalidVariableKind)
	})

	t.Run("unknown method", func(t *testing.T) {
		t.Parallel()
		v := baseSalaryVariable()
		v.Method = payroll.CalculationMethod("lookup_table")
		_, err := repo.CreateVariable(context.Background(), v)
		assert.ErrorIs(t, err, payroll.ErrInvalidMethod)
	})
}

func TestPayrollRepository_CreateVariable_MapsDuplicateCode(t *testing.T) {
	t.Parallel()

	repo := &payrollRepository{db: &fakeQuerier{
		queryRow: func(string, ...any) pgx.Row {
			return fakeRow{scan: func(...any) error {
				return errors.New(`ERROR: duplicate key value violates unique constraint "uk_payroll_variable_code" (SQLSTATE 23505)`)
			}}
		},
	}}

	_, err := repo.CreateVariable(context.Background(), baseSalaryVariable())
	assert.ErrorIs(t, err, payroll.ErrVariableCodeExists)
}

func TestPayrollRepository_CreateVariable_ValidatesFormula(t *testing.T) {
	t.Parallel()

	catalog := []payroll.PayrollVariable{baseSalaryVariable()}

	newRepo := func() *payrollRepository {
		return &payrollRepository{db: &fakeQuerier{
			query: func(string, ...any) (pgx.Rows, error) {
				return &variableRows{variables: catalog}, nil
			},
			queryRow: func(_ string, args ...any) pgx.Row {
				created := baseSalaryVariable()
				created.ID = "v-2"
				created.Code = args[2].(string)
				created.Kind = payroll.KindContribution
				created.Method = payroll.MethodFormula
				created.Formula = args[8].(string)
				created.IsMandatory = false
				return variableRow(created)
			},
		}}
	}

	formulaVariable := func(src string) payroll.PayrollVariable {
		return payroll.PayrollVariable{
			CompanyID: "company-1",
			Code:      "CNSS_EMP",
			Name:      "Cotisation sociale salarié",
			Kind:      payroll.KindContribution,
			Method:    payroll.MethodFormula,
			Formula:   src,
			IsActive:  true,
		}
	}

	t.Run("accepts references to catalog codes and builtins", func(t *testing.T) {
		t.Parallel()
		created, err := newRepo().CreateVariable(context.Background(),
			formulaVariable("SB * 5 / 100 + nb_enfants * 1000"))
		require.NoError(t, err)
		assert.Equal(t, "CNSS_EMP", created.Code)
	})

	t.Run("rejects unknown references", func(t *testing.T) {
		t.Parallel()
		_, err := newRepo().CreateVariable(context.Background(),
			formulaVariable("SB + PRIME_X"))
		require.ErrorIs(t, err, payroll.ErrInvalidFormula)
		assert.Contains(t, err.Error(), "PRIME_X")
	})

	t.Run("rejects malformed text before touching the catalog", func(t *testing.T) {
		t.Parallel()
		repo := &payrollRepository{db: &fakeQuerier{}}
		_, err := repo.CreateVariable(context.Background(),
			formulaVariable(`exec("rm -rf /") ++ UNKNOWN_CODE`))
		assert.ErrorIs(t, err, payroll.ErrInvalidFormula)
	})
}

func TestPayrollRepository_UpdateVariable_RefusesMandatoryDeactivation(t *testing.T) {
	t.Parallel()

	repo := &payrollRepository{db: &fakeQuerier{
		queryRow: func(string, ...any) pgx.Row {
			return variableRow(baseSalaryVariable())
		},
	}}

	inactive := false
	err := repo.UpdateVariable(context.Background(), "company-1", payroll.UpdateVariableRequest{
		ID:       "v-1",
		IsActive: &inactive,
	})
	assert.ErrorIs(t, err, payroll.ErrMandatoryVariable)
}

func TestPayrollRepository_UpdateVariable_ValidatesFormula(t *testing.T) {
	t.Parallel()

	repo := &payrollRepository{db: &fakeQuerier{
		queryRow: func(string, ...any) pgx.Row {
			v := baseSalaryVariable()
			v.IsMandatory = false
			return variableRow(v)
		},
		query: func(string, ...any) (pgx.Rows, error) {
			return &variableRows{variables: []payroll.PayrollVariable{baseSalaryVariable()}}, nil
		},
	}}

	src := "SB * TAUX_INCONNU"
	err := repo.UpdateVariable(context.Background(), "company-1", payroll.UpdateVariableRequest{
		ID:      "v-1",
		Formula: &src,
	})
	require.ErrorIs(t, err, payroll.ErrInvalidFormula)
	assert.Contains(t, err.Error(), "TAUX_INCONNU")
}

func TestPayrollRepository_DeleteVariable_RefusesMandatory(t *testing.T) {
	t.Parallel()

	repo := &payrollRepository{db: &fakeQuerier{
		queryRow: func(string, ...any) pgx.Row {
			return variableRow(baseSalaryVariable())
		},
	}}

	err := repo.DeleteVariable(context.Background(), "v-1", "company-1")
	assert.ErrorIs(t, err, payroll.ErrMandatoryVariable)
}
