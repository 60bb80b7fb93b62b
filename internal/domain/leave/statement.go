package leave

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// WriteStatement renders a one-page PDF of a balance record and the
// employee's requests for that year.
func WriteStatement(w io.Writer, emp Employee, rec BalanceRecord, requests []LeaveRequest, generatedAt time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Leave statement %d", rec.Year), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, fmt.Sprintf("Leave statement %d", rec.Year))
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Employee: %s (%s)", emp.FullName, emp.ID))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Hired: "+emp.HireDate.Format("2006-01-02"))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Generated: "+generatedAt.UTC().Format(time.RFC3339))
	pdf.Ln(10)

	header := []string{"Category", "Initial", "Used", "Balance", "Ceiling"}
	widths := []float64{40, 30, 30, 30, 30}
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range header {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 10)
	rows := []struct {
		name                   string
		initial, used, balance decimal.Decimal
		ceiling                decimal.Decimal
	}{
		{string(CategoryVacation), rec.InitialVacationCredits, rec.VacationUsed, rec.VacationBalance, VacationCeiling},
		{string(CategorySick), rec.InitialSickCredits, rec.SickUsed, rec.SickBalance, SickCeiling},
		{string(CategoryEmergency), rec.InitialEmergencyCredits, rec.EmergencyUsed, rec.EmergencyBalance, EmergencyCeiling},
	}
	for _, row := range rows {
		pdf.CellFormat(widths[0], 7, row.name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, row.initial.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 7, row.used.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, row.balance.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 7, row.ceiling.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Requests")
	pdf.Ln(8)
	if len(requests) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.Cell(0, 6, "No leave requests filed.")
		pdf.Ln(6)
		return pdf.Output(w)
	}

	reqHeader := []string{"Type", "From", "To", "Days", "Pay", "Status"}
	reqWidths := []float64{30, 28, 28, 16, 30, 28}
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range reqHeader {
		pdf.CellFormat(reqWidths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 10)
	for _, req := range requests {
		pdf.CellFormat(reqWidths[0], 7, string(req.LeaveType), "1", 0, "L", false, 0, "")
		pdf.CellFormat(reqWidths[1], 7, req.StartDate.Format("2006-01-02"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(reqWidths[2], 7, req.EndDate.Format("2006-01-02"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(reqWidths[3], 7, strconv.Itoa(req.NumDays), "1", 0, "R", false, 0, "")
		pdf.CellFormat(reqWidths[4], 7, string(req.ApproveFor), "1", 0, "C", false, 0, "")
		pdf.CellFormat(reqWidths[5], 7, req.Status, "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}
	return pdf.Output(w)
}
