package postgresql

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/formula"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type payrollRepository struct {
	db database.Querier
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepository{db: db}
}

// ========== CONFIGURATION ==========

func (r *payrollRepository) GetConfig(ctx context.Context, companyID string) (payroll.PayrollConfig, error) {
	query := `
		SELECT id, company_id, country_code, currency_code,
			   employee_contribution_rate, employer_contribution_rate,
			   created_at, updated_at
		FROM payroll_configs
		WHERE company_id = $1
	`

	var c payroll.PayrollConfig
	err := r.db.QueryRow(ctx, query, companyID).Scan(
		&c.ID, &c.CompanyID, &c.CountryCode, &c.CurrencyCode,
		&c.EmployeeContributionRate, &c.EmployerContributionRate,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return payroll.PayrollConfig{}, payroll.ErrConfigurationMissing
		}
		return payroll.PayrollConfig{}, fmt.Errorf("failed to get payroll config: %w", err)
	}

	c.Brackets, err = r.getBrackets(ctx, c.ID)
	if err != nil {
		return payroll.PayrollConfig{}, err
	}

	return c, nil
}

func (r *payrollRepository) getBrackets(ctx context.Context, configID string) ([]payroll.TaxBracket, error) {
	query := `
		SELECT min_amount, max_amount, rate_percent
		FROM tax_brackets
		WHERE config_id = $1
		ORDER BY min_amount ASC
	`

	rows, err := r.db.Query(ctx, query, configID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tax brackets: %w", err)
	}
	defer rows.Close()

	var brackets []payroll.TaxBracket
	for rows.Next() {
		var b payroll.TaxBracket
		if err := rows.Scan(&b.Min, &b.Max, &b.RatePercent); err != nil {
			return nil, fmt.Errorf("failed to scan tax bracket: %w", err)
		}
		brackets = append(brackets, b)
	}
	return brackets, rows.Err()
}

func (r *payrollRepository) UpsertConfig(ctx context.Context, config payroll.PayrollConfig) (payroll.PayrollConfig, error) {
	query := `
		INSERT INTO payroll_configs (
			id, company_id, country_code, currency_code,
			employee_contribution_rate, employer_contribution_rate
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (company_id) DO UPDATE SET
			country_code = EXCLUDED.country_code,
			currency_code = EXCLUDED.currency_code,
			employee_contribution_rate = EXCLUDED.employee_contribution_rate,
			employer_contribution_rate = EXCLUDED.employer_contribution_rate,
			updated_at = NOW()
		RETURNING id, company_id, country_code, currency_code,
			employee_contribution_rate, employer_contribution_rate,
			created_at, updated_at
	`

	var c payroll.PayrollConfig
	err := r.db.QueryRow(ctx, query,
		uuid.NewString(), config.CompanyID, config.CountryCode, config.CurrencyCode,
		config.EmployeeContributionRate, config.EmployerContributionRate,
	).Scan(
		&c.ID, &c.CompanyID, &c.CountryCode, &c.CurrencyCode,
		&c.EmployeeContributionRate, &c.EmployerContributionRate,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return payroll.PayrollConfig{}, fmt.Errorf("failed to upsert payroll config: %w", err)
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM tax_brackets WHERE config_id = $1`, c.ID); err != nil {
		return payroll.PayrollConfig{}, fmt.Errorf("failed to replace tax brackets: %w", err)
	}
	for _, b := range config.Brackets {
		_, err := r.db.Exec(ctx, `
			INSERT INTO tax_brackets (id, config_id, min_amount, max_amount, rate_percent)
			VALUES ($1, $2, $3, $4, $5)
		`, uuid.NewString(), c.ID, b.Min, b.Max, b.RatePercent)
		if err != nil {
			return payroll.PayrollConfig{}, fmt.Errorf("failed to insert tax bracket: %w", err)
		}
	}
	c.Brackets = config.Brackets

	return c, nil
}

// ========== RULE CATALOG ==========

func (r *payrollRepository) CreateVariable(ctx context.Context, variable payroll.PayrollVariable) (payroll.PayrollVariable, error) {
	switch variable.Kind {
	case payroll.KindFixed, payroll.KindAllowance, payroll.KindDeduction,
		payroll.KindContribution, payroll.KindTax:
	default:
		return payroll.PayrollVariable{}, fmt.Errorf("%w: %q", payroll.ErrInvalidVariableKind, variable.Kind)
	}
	switch variable.Method {
	case payroll.MethodFixed, payroll.MethodPercentage,
		payroll.MethodFormula, payroll.MethodProgressiveTax:
	default:
		return payroll.PayrollVariable{}, fmt.Errorf("%w: %q", payroll.ErrInvalidMethod, variable.Method)
	}
	if variable.Method == payroll.MethodFormula {
		if err := r.validateFormula(ctx, variable.CompanyID, variable.Formula); err != nil {
			return payroll.PayrollVariable{}, err
		}
	}

	query := `
		INSERT INTO payroll_variables (
			id, company_id, code, name, kind, method,
			fixed_amount, percentage_rate, formula,
			is_mandatory, is_active, display_order
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, company_id, code, name, kind, method,
			fixed_amount, percentage_rate, formula,
			is_mandatory, is_active, display_order, created_at, updated_at
	`

	var v payroll.PayrollVariable
	err := r.db.QueryRow(ctx, query,
		uuid.NewString(), variable.CompanyID, variable.Code, variable.Name,
		variable.Kind, variable.Method,
		variable.FixedAmount, variable.PercentageRate, variable.Formula,
		variable.IsMandatory, variable.IsActive, variable.DisplayOrder,
	).Scan(
		&v.ID, &v.CompanyID, &v.Code, &v.Name, &v.Kind, &v.Method,
		&v.FixedAmount, &v.PercentageRate, &v.Formula,
		&v.IsMandatory, &v.IsActive, &v.DisplayOrder, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "uk_payroll_variable_code") {
			return payroll.PayrollVariable{}, payroll.ErrVariableCodeExists
		}
		return payroll.PayrollVariable{}, fmt.Errorf("failed to create payroll variable: %w", err)
	}

	return v, nil
}

// validateFormula rejects formula text before it enters the catalog: it must
// parse, and every identifier must resolve to an existing variable code or one
// of the builtin bindings.
func (r *payrollRepository) validateFormula(ctx context.Context, companyID string, src string) error {
	if err := formula.Check(src); err != nil {
		return fmt.Errorf("%w: %v", payroll.ErrInvalidFormula, err)
	}

	existing, err := r.GetVariablesByCompanyID(ctx, companyID, false)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(existing)+3)
	for _, v := range existing {
		known[v.Code] = true
	}
	for _, name := range payroll.FormulaBuiltins() {
		known[name] = true
	}
	for _, name := range formula.References(src) {
		if !known[name] {
			return fmt.Errorf("%w: unknown reference %q", payroll.ErrInvalidFormula, name)
		}
	}
	return nil
}

func (r *payrollRepository) GetVariableByID(ctx context.Context, id string, companyID string) (payroll.PayrollVariable, error) {
	query := `
		SELECT id, company_id, code, name, kind, method,
			   fixed_amount, percentage_rate, formula,
			   is_mandatory, is_active, display_order, created_at, updated_at
		FROM payroll_variables
		WHERE id = $1 AND company_id = $2
	`

	var v payroll.PayrollVariable
	err := r.db.QueryRow(ctx, query, id, companyID).Scan(
		&v.ID, &v.CompanyID, &v.Code, &v.Name, &v.Kind, &v.Method,
		&v.FixedAmount, &v.PercentageRate, &v.Formula,
		&v.IsMandatory, &v.IsActive, &v.DisplayOrder, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return payroll.PayrollVariable{}, payroll.ErrVariableNotFound
		}
		return payroll.PayrollVariable{}, fmt.Errorf("failed to get payroll variable: %w", err)
	}

	return v, nil
}

func (r *payrollRepository) GetVariablesByCompanyID(ctx context.Context, companyID string, activeOnly bool) ([]payroll.PayrollVariable, error) {
	query := `
		SELECT id, company_id, code, name, kind, method,
			   fixed_amount, percentage_rate, formula,
			   is_mandatory, is_active, display_order, created_at, updated_at
		FROM payroll_variables
		WHERE company_id = $1
	`
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY display_order ASC, code ASC`

	rows, err := r.db.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll variables: %w", err)
	}
	defer rows.Close()

	var variables []payroll.PayrollVariable
	for rows.Next() {
		var v payroll.PayrollVariable
		if err := rows.Scan(
			&v.ID, &v.CompanyID, &v.Code, &v.Name, &v.Kind, &v.Method,
			&v.FixedAmount, &v.PercentageRate, &v.Formula,
			&v.IsMandatory, &v.IsActive, &v.DisplayOrder, &v.CreatedAt, &v.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan payroll variable: %w", err)
		}
		variables = append(variables, v)
	}

	return variables, rows.Err()
}

func (r *payrollRepository) UpdateVariable(ctx context.Context, companyID string, req payroll.UpdateVariableRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	current, err := r.GetVariableByID(ctx, req.ID, companyID)
	if err != nil {
		return err
	}

	// A mandatory variable cannot be deactivated.
	if current.IsMandatory && req.IsActive != nil && !*req.IsActive {
		return payroll.ErrMandatoryVariable
	}

	if req.Formula != nil {
		if err := r.validateFormula(ctx, companyID, *req.Formula); err != nil {
			return err
		}
	}

	setClauses := []string{"updated_at = NOW()"}
	args := []any{req.ID, companyID}
	arg := 3

	addSet := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, arg))
		args = append(args, value)
		arg++
	}

	if req.Name != nil {
		addSet("name", *req.Name)
	}
	if req.FixedAmount != nil {
		addSet("fixed_amount", *req.FixedAmount)
	}
	if req.PercentageRate != nil {
		addSet("percentage_rate", *req.PercentageRate)
	}
	if req.Formula != nil {
		addSet("formula", *req.Formula)
	}
	if req.IsActive != nil {
		addSet("is_active", *req.IsActive)
	}
	if req.DisplayOrder != nil {
		addSet("display_order", *req.DisplayOrder)
	}

	query := fmt.Sprintf(`
		UPDATE payroll_variables
		SET %s
		WHERE id = $1 AND company_id = $2
	`, strings.Join(setClauses, ", "))

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update payroll variable: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrVariableNotFound
	}

	return nil
}

func (r *payrollRepository) DeleteVariable(ctx context.Context, id string, companyID string) error {
	current, err := r.GetVariableByID(ctx, id, companyID)
	if err != nil {
		return err
	}
	if current.IsMandatory {
		return payroll.ErrMandatoryVariable
	}

	tag, err := r.db.Exec(ctx, `
		DELETE FROM payroll_variables WHERE id = $1 AND company_id = $2
	`, id, companyID)
	if err != nil {
		return fmt.Errorf("failed to delete payroll variable: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrVariableNotFound
	}

	return nil
}

// ========== CALCULATION RESULTS ==========

func (r *payrollRepository) SaveResult(ctx context.Context, companyID string, result payroll.CalculationResult) error {
	breakdownJSON, err := json.Marshal(result.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to encode breakdown: %w", err)
	}
	warningsJSON, err := json.Marshal(result.Warnings)
	if err != nil {
		return fmt.Errorf("failed to encode warnings: %w", err)
	}

	query := `
		INSERT INTO payroll_results (
			id, company_id, employee_id, period,
			gross_salary, total_allowances, total_deductions, taxable_income,
			tax_amount, social_contributions, net_salary, employer_contributions,
			breakdown, warnings
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (company_id, employee_id, period) DO UPDATE SET
			gross_salary = EXCLUDED.gross_salary,
			total_allowances = EXCLUDED.total_allowances,
			total_deductions = EXCLUDED.total_deductions,
			taxable_income = EXCLUDED.taxable_income,
			tax_amount = EXCLUDED.tax_amount,
			social_contributions = EXCLUDED.social_contributions,
			net_salary = EXCLUDED.net_salary,
			employer_contributions = EXCLUDED.employer_contributions,
			breakdown = EXCLUDED.breakdown,
			warnings = EXCLUDED.warnings,
			updated_at = NOW()
	`

	_, err = r.db.Exec(ctx, query,
		uuid.NewString(), companyID, result.EmployeeID, result.Period,
		result.Totals.GrossSalary, result.Totals.TotalAllowances,
		result.Totals.TotalDeductions, result.Totals.TaxableIncome,
		result.Totals.TaxAmount, result.Totals.SocialContributions,
		result.Totals.NetSalary, result.EmployerContributions,
		breakdownJSON, warningsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save calculation result: %w", err)
	}

	return nil
}

func (r *payrollRepository) GetResultsByPeriod(ctx context.Context, companyID string, period string) ([]payroll.CalculationResult, error) {
	query := `
		SELECT employee_id, period,
			   gross_salary, total_allowances, total_deductions, taxable_income,
			   tax_amount, social_contributions, net_salary, employer_contributions,
			   breakdown, warnings
		FROM payroll_results
		WHERE company_id = $1 AND period = $2
		ORDER BY employee_id ASC
	`

	rows, err := r.db.Query(ctx, query, companyID, period)
	if err != nil {
		return nil, fmt.Errorf("failed to list calculation results: %w", err)
	}
	defer rows.Close()

	var results []payroll.CalculationResult
	for rows.Next() {
		var res payroll.CalculationResult
		var breakdownJSON, warningsJSON []byte
		if err := rows.Scan(
			&res.EmployeeID, &res.Period,
			&res.Totals.GrossSalary, &res.Totals.TotalAllowances,
			&res.Totals.TotalDeductions, &res.Totals.TaxableIncome,
			&res.Totals.TaxAmount, &res.Totals.SocialContributions,
			&res.Totals.NetSalary, &res.EmployerContributions,
			&breakdownJSON, &warningsJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan calculation result: %w", err)
		}
		if err := json.Unmarshal(breakdownJSON, &res.Breakdown); err != nil {
			return nil, fmt.Errorf("failed to decode breakdown: %w", err)
		}
		if err := json.Unmarshal(warningsJSON, &res.Warnings); err != nil {
			return nil, fmt.Errorf("failed to decode warnings: %w", err)
		}
		results = append(results, res)
	}

	return results, rows.Err()
}
