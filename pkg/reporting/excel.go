package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// ExcelStyles holds the style IDs shared across sheets
type ExcelStyles struct {
	HeaderStyle   int
	ApprovedStyle int
	DeniedStyle   int
	NumberStyle   int
}

// DefaultExcelReporter implements Excel output functionality
type DefaultExcelReporter struct{}

// NewDefaultExcelReporter creates a new Excel reporter
func NewDefaultExcelReporter() *DefaultExcelReporter {
	return &DefaultExcelReporter{}
}

// WriteAuditXLSX writes the audit trail to an Excel workbook
func (r *DefaultExcelReporter) WriteAuditXLSX(trail *AuditTrail, path string) error {
	// Ensure directory exists before creating file
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const verdictsSheet = "Verdicts"
	const anomaliesSheet = "Anomalies"
	const equitySheet = "Equity Curve"
	const summarySheet = "Summary"

	// Replace default sheet and create additional sheets
	fx.SetSheetName(fx.GetSheetName(0), verdictsSheet)
	fx.NewSheet(anomaliesSheet)
	fx.NewSheet(equitySheet)
	fx.NewSheet(summarySheet)

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeVerdictsSheet(fx, verdictsSheet, trail, styles); err != nil {
		return err
	}
	if err := r.writeAnomaliesSheet(fx, anomaliesSheet, trail, styles); err != nil {
		return err
	}
	if err := r.writeEquitySheet(fx, equitySheet, trail, styles); err != nil {
		return err
	}
	if err := r.writeSummarySheet(fx, summarySheet, trail, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

// createExcelStyles creates the shared workbook styles
func (r *DefaultExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	// Header style - dark background with white text
	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Size:   11,
			Color:  "FFFFFF",
			Family: "Calibri",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"2F4F4F"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.ApprovedStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "006100", Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C6EFCE"}, Pattern: 1},
	})
	if err != nil {
		return styles, err
	}

	styles.DeniedStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "9C0006", Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FFC7CE"}, Pattern: 1},
	})
	if err != nil {
		return styles, err
	}

	styles.NumberStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt: 4, // #,##0.00
	})
	return styles, err
}

func (r *DefaultExcelReporter) writeVerdictsSheet(fx *excelize.File, sheet string, trail *AuditTrail, styles ExcelStyles) error {
	headers := []string{"Timestamp", "Strategy", "Side", "Decision", "Risk Score", "Size Fraction", "Status", "Reasons"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, h)
		fx.SetCellStyle(sheet, cell, cell, styles.HeaderStyle)
	}

	for row, v := range trail.Verdicts() {
		values := []interface{}{
			v.Timestamp.Format("2006-01-02 15:04:05"),
			v.StrategyID,
			v.Side,
			v.Decision,
			v.RiskScore,
			v.SizeFraction,
			v.Status,
			joinReasons(v.Reasons),
		}
		for col, val := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			fx.SetCellValue(sheet, cell, val)
		}

		decisionCell, _ := excelize.CoordinatesToCellName(4, row+2)
		switch v.Decision {
		case "approved":
			fx.SetCellStyle(sheet, decisionCell, decisionCell, styles.ApprovedStyle)
		case "denied":
			fx.SetCellStyle(sheet, decisionCell, decisionCell, styles.DeniedStyle)
		}
	}

	fx.SetColWidth(sheet, "A", "A", 20)
	fx.SetColWidth(sheet, "B", "G", 14)
	fx.SetColWidth(sheet, "H", "H", 60)
	return nil
}

func (r *DefaultExcelReporter) writeAnomaliesSheet(fx *excelize.File, sheet string, trail *AuditTrail, styles ExcelStyles) error {
	headers := []string{"Timestamp", "Kind", "Severity", "Value", "Reason"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, h)
		fx.SetCellStyle(sheet, cell, cell, styles.HeaderStyle)
	}

	for row, a := range trail.Anomalies() {
		values := []interface{}{
			a.Timestamp.Format("2006-01-02 15:04:05"),
			a.Kind,
			a.Severity,
			a.Value,
			a.Reason,
		}
		for col, val := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			fx.SetCellValue(sheet, cell, val)
		}
		if a.Severity == "critical" {
			sevCell, _ := excelize.CoordinatesToCellName(3, row+2)
			fx.SetCellStyle(sheet, sevCell, sevCell, styles.DeniedStyle)
		}
	}

	fx.SetColWidth(sheet, "A", "A", 20)
	fx.SetColWidth(sheet, "B", "D", 12)
	fx.SetColWidth(sheet, "E", "E", 60)
	return nil
}

func (r *DefaultExcelReporter) writeEquitySheet(fx *excelize.File, sheet string, trail *AuditTrail, styles ExcelStyles) error {
	headers := []string{"Timestamp", "Balance"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, h)
		fx.SetCellStyle(sheet, cell, cell, styles.HeaderStyle)
	}

	for row, e := range trail.Equity() {
		tsCell, _ := excelize.CoordinatesToCellName(1, row+2)
		balCell, _ := excelize.CoordinatesToCellName(2, row+2)
		fx.SetCellValue(sheet, tsCell, e.Timestamp.Format("2006-01-02 15:04:05"))
		fx.SetCellValue(sheet, balCell, e.Balance)
		fx.SetCellStyle(sheet, balCell, balCell, styles.NumberStyle)
	}

	fx.SetColWidth(sheet, "A", "A", 20)
	fx.SetColWidth(sheet, "B", "B", 16)
	return nil
}

func (r *DefaultExcelReporter) writeSummarySheet(fx *excelize.File, sheet string, trail *AuditTrail, styles ExcelStyles) error {
	s := trail.Summarize()

	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Total Verdicts", s.Total},
		{"Approved", s.Approved},
		{"Conditional", s.Conditional},
		{"Denied", s.Denied},
		{"Average Risk Score", s.AvgScore},
	}

	for i, row := range rows {
		for col, val := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+1)
			fx.SetCellValue(sheet, cell, val)
			if i == 0 {
				fx.SetCellStyle(sheet, cell, cell, styles.HeaderStyle)
			}
		}
	}

	fx.SetColWidth(sheet, "A", "A", 22)
	fx.SetColWidth(sheet, "B", "B", 16)
	return nil
}

func joinReasons(reasons []string) string {
	out := ""
	for i, r := range reasons {
		if i > 0 {
			out += "; "
		}
		out += r
	}
	return out
}
