package employee

import (
	"time"

	"github.com/shopspring/decimal"
)

type MaritalStatus string

const (
	MaritalStatusSingle  MaritalStatus = "single"
	MaritalStatusMarried MaritalStatus = "married"
)

type EmploymentStatus string

const (
	EmploymentStatusActive     EmploymentStatus = "active"
	EmploymentStatusResigned   EmploymentStatus = "resigned"
	EmploymentStatusTerminated EmploymentStatus = "terminated"
)

// Employee - the snapshot of one employee the calculation engine consumes.
// BaseSalary and the demographic attributes are the only fields the engine
// reads; the rest identifies the record and its tenant.
type Employee struct {
	ID               string
	CompanyID        string
	EmployeeCode     string
	FullName         string
	BaseSalary       decimal.Decimal
	MaritalStatus    MaritalStatus
	ChildrenCount    int
	HireDate         time.Time
	EmploymentStatus EmploymentStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
