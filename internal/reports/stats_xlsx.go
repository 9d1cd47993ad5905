package reports

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"medical-booking-server/internal/models"
)

// Sheet names of the stats workbook.
const (
	SheetOverview    = "Overview"
	SheetSpecialties = "By specialty"
	SheetPerDay      = "Per day"
)

// StatsWorkbook exports the dashboard as an XLSX file with one sheet per breakdown.
func StatsWorkbook(stats *models.Stats, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetOverview); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetSpecialties, SheetPerDay} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	overview := [][]interface{}{
		{"Metric", "Value"},
		{"Generated at", generatedAt.Format(time.RFC3339)},
		{"Total appointments", stats.TotalAppointments},
		{"Pending applications", stats.PendingApplications},
		{"Completion rate (%)", stats.CompletionRatePercent},
	}
	overview = append(overview, groupRows("Users", stats.UsersByRole)...)
	overview = append(overview, groupRows("Doctors", stats.DoctorsByStatus)...)
	overview = append(overview, groupRows("Appointments", stats.AppointmentsByStatus)...)
	if err := writeTable(f, SheetOverview, overview, header, []float64{32, 24}); err != nil {
		return nil, err
	}

	if err := writeTable(f, SheetSpecialties, countRows("Specialty", stats.AppointmentsBySpec), header, []float64{32, 14}); err != nil {
		return nil, err
	}
	if err := writeTable(f, SheetPerDay, countRows("Date", stats.AppointmentsPerDay), header, []float64{14, 14}); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func groupRows(prefix string, counts map[string]int64) [][]interface{} {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]interface{}, len(keys))
	for i, k := range keys {
		rows[i] = []interface{}{prefix + " (" + k + ")", counts[k]}
	}
	return rows
}

func countRows(label string, counts []models.NamedCount) [][]interface{} {
	rows := [][]interface{}{{label, "Appointments"}}
	for _, c := range counts {
		rows = append(rows, []interface{}{c.Name, c.Count})
	}
	return rows
}

// writeTable writes rows starting at A1; the first row gets the header style.
func writeTable(f *excelize.File, sheet string, rows [][]interface{}, headerStyle int, widths []float64) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) > 0 {
		last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("style %s header: %w", sheet, err)
		}
	}
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return fmt.Errorf("set %s width: %w", sheet, err)
		}
	}
	return nil
}
