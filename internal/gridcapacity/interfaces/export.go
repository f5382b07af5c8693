package interfaces

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"ministry-dashboard/internal/gridcapacity/application"
	"ministry-dashboard/internal/gridcapacity/engine"
)

var errNilDashboard = errors.New("interfaces: nil dashboard")

const (
	summarySheet   = "summary"
	stationsSheet  = "stations"
	forecastSheet  = "forecast"
	scenariosSheet = "scenarios"
)

// BuildDashboardXLSX renders the dashboard as a workbook with summary,
// stations, forecast and scenarios sheets.
func BuildDashboardXLSX(dashboard *application.Dashboard) ([]byte, error) {
	if dashboard == nil {
		return nil, errNilDashboard
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	for _, sheet := range []string{stationsSheet, forecastSheet, scenariosSheet} {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Grid Capacity Dashboard")
	_ = f.SetCellStyle(summarySheet, "A1", "A1", bold)
	_ = f.SetCellValue(summarySheet, "A2", "Generated")
	_ = f.SetCellValue(summarySheet, "B2", dashboard.GeneratedAt.Format(time.RFC3339))

	health := dashboard.Health
	if health == nil {
		_ = f.SetCellValue(summarySheet, "A4", "No station data available")
	} else {
		summary := [][2]any{
			{"Total derated (MW)", health.Stations.TotalDeratedMW},
			{"Total available (MW)", health.Stations.TotalAvailableMW},
			{"Fleet availability (%)", health.Stations.AvailabilityPct},
			{"Solar (MW)", health.Ledger.TotalSolarMW},
			{"System capacity (MW)", health.Ledger.TotalSystemCapacityMW},
			{"Renewable share (%)", health.Ledger.RenewableSharePct},
			{"Evening peak (MW)", health.Reserve.PeakDemandMW},
			{"System load (%)", health.Reserve.SystemLoadPct},
			{"Reserve margin (MW)", health.Reserve.ReserveMarginMW},
			{"Reserve margin (%)", reserveCell(health.Reserve)},
			{"Health", string(health.Reserve.Health)},
			{"Alerts", len(health.Alerts)},
		}
		if planning := health.PlanningReserve; planning != nil {
			summary = append(summary,
				[2]any{"Planning deliverable (MW)", planning.DeliverableMW},
				[2]any{"Planning expected peak (MW)", planning.ExpectedPeakMW},
				[2]any{"Planning margin (%)", planning.MarginPct},
			)
		}
		for i, entry := range summary {
			row := i + 4
			_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), entry[0])
			_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), entry[1])
		}

		writeHeader(f, stationsSheet, bold, "Station", "Derated (MW)", "Available (MW)", "Units", "Availability (%)", "Status")
		for i, station := range health.Stations.Stations {
			row := i + 2
			_ = f.SetCellValue(stationsSheet, fmt.Sprintf("A%d", row), station.Name)
			_ = f.SetCellValue(stationsSheet, fmt.Sprintf("B%d", row), station.DeratedCapacityMW)
			_ = f.SetCellValue(stationsSheet, fmt.Sprintf("C%d", row), station.AvailableCapacityMW)
			_ = f.SetCellValue(stationsSheet, fmt.Sprintf("D%d", row), station.UnitCount)
			_ = f.SetCellValue(stationsSheet, fmt.Sprintf("E%d", row), station.AvailabilityPct)
			_ = f.SetCellValue(stationsSheet, fmt.Sprintf("F%d", row), string(station.Status))
		}
	}

	writeHeader(f, forecastSheet, bold, "Grid", "Horizon (months)", "Peak (MW)", "Source", "Growth (MW/month)", "Fallback")
	row := 2
	for _, grid := range dashboard.Grids {
		projection := grid.Forecast.Projection
		for _, point := range projection.Points {
			_ = f.SetCellValue(forecastSheet, fmt.Sprintf("A%d", row), grid.Label)
			_ = f.SetCellValue(forecastSheet, fmt.Sprintf("B%d", row), point.HorizonMonths)
			_ = f.SetCellValue(forecastSheet, fmt.Sprintf("C%d", row), point.PeakMW)
			_ = f.SetCellValue(forecastSheet, fmt.Sprintf("D%d", row), string(point.Source))
			_ = f.SetCellValue(forecastSheet, fmt.Sprintf("E%d", row), projection.GrowthRatePerMonth)
			_ = f.SetCellValue(forecastSheet, fmt.Sprintf("F%d", row), projection.UsingFallback)
			row++
		}
	}

	writeHeader(f, scenariosSheet, bold, "Grid", "Horizon (months)", "Conservative peak (MW)", "Conservative margin (%)", "Conservative risk", "Aggressive peak (MW)", "Aggressive margin (%)", "Aggressive risk")
	row = 2
	for _, grid := range dashboard.Grids {
		comparison := grid.Forecast.Scenarios
		if comparison == nil {
			continue
		}
		for _, scenario := range comparison.Rows {
			_ = f.SetCellValue(scenariosSheet, fmt.Sprintf("A%d", row), grid.Label)
			_ = f.SetCellValue(scenariosSheet, fmt.Sprintf("B%d", row), scenario.HorizonMonths)
			writeScenarioCell(f, row, "C", scenario.Conservative)
			writeScenarioCell(f, row, "F", scenario.Aggressive)
			row++
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, style int, titles ...string) {
	for i, title := range titles {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			continue
		}
		_ = f.SetCellValue(sheet, cell, title)
		_ = f.SetCellStyle(sheet, cell, cell, style)
	}
}

func writeScenarioCell(f *excelize.File, row int, firstColumn string, cell engine.ScenarioCell) {
	col, err := excelize.ColumnNameToNumber(firstColumn)
	if err != nil || !cell.Available {
		return
	}
	values := []any{cell.PeakMW, "", string(cell.RiskLevel)}
	if cell.ReserveMarginPct != nil {
		values[1] = *cell.ReserveMarginPct
	}
	for i, value := range values {
		name, err := excelize.CoordinatesToCellName(col+i, row)
		if err != nil {
			continue
		}
		_ = f.SetCellValue(scenariosSheet, name, value)
	}
}

func reserveCell(reserve engine.ReserveState) any {
	if !reserve.Defined {
		return "n/a"
	}
	return reserve.ReserveMarginPct
}

// BuildDashboardPDF renders a one page PDF summary with the projection and
// scenario tables.
func BuildDashboardPDF(dashboard *application.Dashboard) ([]byte, error) {
	if dashboard == nil {
		return nil, errNilDashboard
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Grid Capacity Dashboard")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", dashboard.GeneratedAt.Format(time.RFC3339)))
	pdf.Ln(8)

	if health := dashboard.Health; health == nil {
		pdf.Cell(0, 6, "No station data available")
		pdf.Ln(8)
	} else {
		pdf.Cell(0, 6, fmt.Sprintf("System capacity (MW): %.1f", health.Ledger.TotalSystemCapacityMW))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Fossil available / solar (MW): %.1f / %.1f", health.Ledger.FossilAvailableMW, health.Ledger.TotalSolarMW))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Evening peak (MW): %.1f", health.Reserve.PeakDemandMW))
		pdf.Ln(5)
		if health.Reserve.Defined {
			pdf.Cell(0, 6, fmt.Sprintf("Reserve margin: %.1f MW (%.1f%%), %s", health.Reserve.ReserveMarginMW, health.Reserve.ReserveMarginPct, health.Reserve.Health))
		} else {
			pdf.Cell(0, 6, fmt.Sprintf("Reserve margin: n/a, %s", health.Reserve.Health))
		}
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Stations: %d operational, %d degraded, %d critical, %d offline",
			len(health.Stations.Operational), len(health.Stations.Degraded), len(health.Stations.Critical), len(health.Stations.Offline)))
		pdf.Ln(8)

		if len(health.Alerts) > 0 {
			pdf.SetFont("Arial", "B", 10)
			pdf.Cell(0, 6, "Alerts")
			pdf.Ln(6)
			pdf.SetFont("Arial", "", 9)
			for _, alert := range health.Alerts {
				pdf.MultiCell(0, 5, fmt.Sprintf("[%s] %s %s", alert.Severity, alert.Title, alert.Station), "", "L", false)
			}
			pdf.Ln(4)
		}
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(40, 6, "Grid", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Horizon", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Peak (MW)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Source", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, grid := range dashboard.Grids {
		for _, point := range grid.Forecast.Projection.Points {
			pdf.CellFormat(40, 6, grid.Label, "1", 0, "L", false, 0, "")
			pdf.CellFormat(30, 6, fmt.Sprintf("%d mo", point.HorizonMonths), "1", 0, "C", false, 0, "")
			pdf.CellFormat(40, 6, fmt.Sprintf("%.1f", point.PeakMW), "1", 0, "R", false, 0, "")
			pdf.CellFormat(40, 6, string(point.Source), "1", 0, "C", false, 0, "")
			pdf.Ln(-1)
		}
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(30, 6, "Grid", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Horizon", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Conservative", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Aggressive", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, grid := range dashboard.Grids {
		if grid.Forecast.Scenarios == nil {
			continue
		}
		for _, row := range grid.Forecast.Scenarios.Rows {
			pdf.CellFormat(30, 6, grid.Label, "1", 0, "L", false, 0, "")
			pdf.CellFormat(20, 6, fmt.Sprintf("%d mo", row.HorizonMonths), "1", 0, "C", false, 0, "")
			pdf.CellFormat(35, 6, pdfScenarioCell(row.Conservative), "1", 0, "R", false, 0, "")
			pdf.CellFormat(35, 6, pdfScenarioCell(row.Aggressive), "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func pdfScenarioCell(cell engine.ScenarioCell) string {
	if !cell.Available {
		return "-"
	}
	if cell.ReserveMarginPct == nil {
		return fmt.Sprintf("%.1f", cell.PeakMW)
	}
	return fmt.Sprintf("%.1f (%.1f%%)", cell.PeakMW, *cell.ReserveMarginPct)
}
