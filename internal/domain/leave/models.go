package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryVacation  Category = "Vacation"
	CategorySick      Category = "Sick"
	CategoryEmergency Category = "Emergency"
	CategoryMaternity Category = "Maternity"
	CategoryPaternity Category = "Paternity"
)

var categories = []Category{CategoryVacation, CategorySick, CategoryEmergency, CategoryMaternity, CategoryPaternity}

func ParseCategory(value string) (Category, bool) {
	for _, c := range categories {
		if string(c) == value {
			return c, true
		}
	}
	return "", false
}

func CategoryNames() []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		out = append(out, string(c))
	}
	return out
}

// Tracked reports whether the category draws from a stored balance.
func (c Category) Tracked() bool {
	return c == CategoryVacation || c == CategorySick || c == CategoryEmergency
}

const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

type PayStatus string

const (
	WithPay    PayStatus = "with_pay"
	WithoutPay PayStatus = "without_pay"
)

type Employee struct {
	ID       string    `json:"id"`
	FullName string    `json:"fullName"`
	HireDate time.Time `json:"hireDate"`
	Active   bool      `json:"active"`
}

type BalanceRecord struct {
	ID                      string          `json:"id"`
	EmployeeID              string          `json:"employeeId"`
	Year                    int             `json:"year"`
	VacationBalance         decimal.Decimal `json:"vacationBalance"`
	SickBalance             decimal.Decimal `json:"sickBalance"`
	EmergencyBalance        decimal.Decimal `json:"emergencyBalance"`
	InitialVacationCredits  decimal.Decimal `json:"initialVacationCredits"`
	InitialSickCredits      decimal.Decimal `json:"initialSickCredits"`
	InitialEmergencyCredits decimal.Decimal `json:"initialEmergencyCredits"`
	VacationUsed            decimal.Decimal `json:"vacationUsed"`
	SickUsed                decimal.Decimal `json:"sickUsed"`
	EmergencyUsed           decimal.Decimal `json:"emergencyUsed"`
	AccruedAt               time.Time       `json:"accruedAt"`
	UpdatedAt               time.Time       `json:"updatedAt"`
}

type LeaveRequest struct {
	ID            string              `json:"id"`
	EmployeeID    string              `json:"employeeId"`
	BalanceID     string              `json:"balanceId,omitempty"`
	LeaveType     Category            `json:"leaveType"`
	StartDate     time.Time           `json:"startDate"`
	EndDate       time.Time           `json:"endDate"`
	NumDays       int                 `json:"numDays"`
	Status        string              `json:"status"`
	ApproveFor    PayStatus           `json:"approveFor"`
	PaidDays      int                 `json:"paidDays"`
	UnpaidDays    int                 `json:"unpaidDays"`
	BalanceBefore decimal.NullDecimal `json:"balanceBefore"`
	BalanceAfter  decimal.NullDecimal `json:"balanceAfter"`
	Reason        string              `json:"reason"`
	CreatedAt     time.Time           `json:"createdAt"`
}

type RunSummary struct {
	Job          string    `json:"job"`
	AsOf         time.Time `json:"asOf"`
	Success      bool      `json:"success"`
	Reason       string    `json:"reason,omitempty"`
	ResetCount   int       `json:"resetCount"`
	SkippedCount int       `json:"skippedCount"`
	ErrorCount   int       `json:"errorCount"`
	Total        int       `json:"total"`
}
