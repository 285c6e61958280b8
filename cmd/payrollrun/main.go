package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/cmlabs-hris/payroll-engine-go/internal/config"
	payrollDomain "github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine-go/internal/repository/postgresql"
	payrollService "github.com/cmlabs-hris/payroll-engine-go/internal/service/payroll"
	"go.uber.org/zap"
)

// payrollrun executes one payroll batch for a company and period and prints
// the aggregate totals. The period token is opaque; "2025-03" is only a
// convention.
func main() {
	period := flag.String("period", "", "pay period token, e.g. 2025-03")
	companyID := flag.String("company", "", "company id (overrides COMPANY_ID)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error building logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	company := *companyID
	if company == "" {
		company = cfg.App.CompanyID
	}
	if company == "" || *period == "" {
		logger.Fatal("both a company id and -period are required")
	}

	ctx := context.Background()
	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	payrollRepo := postgresql.NewPayrollRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	service := payrollService.NewPayrollService(payrollRepo, employeeRepo, logger)

	batch, err := service.CalculateBatch(ctx, company, payrollDomain.CalculateBatchRequest{Period: *period})
	if err != nil {
		logger.Fatal("payroll batch failed", zap.Error(err))
	}

	logger.Info("payroll batch totals",
		zap.String("period", batch.Period),
		zap.Int("calculations", len(batch.Calculations)),
		zap.Int("failures", len(batch.Failures)),
		zap.String("gross_salary", batch.Totals.GrossSalary.String()),
		zap.String("net_salary", batch.Totals.NetSalary.String()),
		zap.String("tax_amount", batch.Totals.TaxAmount.String()),
		zap.String("employer_cost", batch.Totals.EmployerCost.String()),
	)
}

func newLogger(env, level string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if env == "development" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = lvl
	return zapCfg.Build()
}
