package excel

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/fabos/estimation-service/internal/model"
)

const (
	summarySheet = "Summary"
	maxSheetName = 31
)

type Generator struct {
	decimals int32
}

func NewGenerator(decimals int) *Generator {
	if decimals < 0 {
		decimals = 0
	}
	return &Generator{decimals: int32(decimals)}
}

func (g *Generator) Generate(export model.RevisionExport) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	styles, err := g.newStyles(file)
	if err != nil {
		return nil, err
	}
	g.writeSummary(file, export, styles)

	usedNames := map[string]struct{}{strings.ToLower(summarySheet): {}}
	for _, sheet := range export.Sheets {
		name := buildSheetName(sheet.Worksheet.Name, sheet.Worksheet.ID, usedNames)
		usedNames[strings.ToLower(name)] = struct{}{}

		if _, err := file.NewSheet(name); err != nil {
			return nil, fmt.Errorf("add sheet %q: %w", name, err)
		}
		g.writeWorksheet(file, name, sheet, styles)
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type sheetStyles struct {
	header int
	amount int
}

func (g *Generator) newStyles(file *excelize.File) (sheetStyles, error) {
	header, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return sheetStyles{}, err
	}
	format := "0"
	if g.decimals > 0 {
		format = "#,##0." + strings.Repeat("0", int(g.decimals))
	}
	amount, err := file.NewStyle(&excelize.Style{CustomNumFmt: &format})
	if err != nil {
		return sheetStyles{}, err
	}
	return sheetStyles{header: header, amount: amount}, nil
}

func (g *Generator) writeSummary(file *excelize.File, export model.RevisionExport, styles sheetStyles) {
	summary := export.Summary
	sheet := summarySheet

	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}
	setAmount := func(cell string, value decimal.Decimal) {
		_ = file.SetCellValue(sheet, cell, g.number(value))
		_ = file.SetCellStyle(sheet, cell, cell, styles.amount)
	}

	set("A1", "Estimation")
	set("B1", export.EstimationNumber)
	set("A2", "Project")
	set("B2", export.ProjectName)
	set("A3", "Revision")
	set("B3", summary.Letter)
	set("A4", "Status")
	set("B4", string(summary.Status))

	breakdown := summary.Breakdown
	set("A6", "Subtotal")
	setAmount("B6", breakdown.Subtotal)
	set("A7", fmt.Sprintf("Overhead (%s%%)", breakdown.OverheadPercentage.String()))
	setAmount("B7", breakdown.OverheadAmount)
	set("A8", "Subtotal with overhead")
	setAmount("B8", breakdown.SubtotalWithOverhead)
	set("A9", fmt.Sprintf("Margin (%s%%)", breakdown.MarginPercentage.String()))
	setAmount("B9", breakdown.MarginAmount)
	set("A10", "Total")
	setAmount("B10", breakdown.TotalAmount)
	_ = file.SetCellStyle(sheet, "A10", "A10", styles.header)

	tableRow := 12
	headers := []string{"Package", "Material cost", "Labor hours", "Labor cost", "Overhead", "Package total"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}
	_ = file.SetCellStyle(sheet, "A12", "F12", styles.header)

	for i, pkg := range summary.Packages {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), pkg.PackageName)
		setAmount(fmt.Sprintf("B%d", row), pkg.Totals.MaterialCost)
		setAmount(fmt.Sprintf("C%d", row), pkg.Totals.LaborHours)
		setAmount(fmt.Sprintf("D%d", row), pkg.Totals.LaborCost)
		setAmount(fmt.Sprintf("E%d", row), pkg.Totals.OverheadCost)
		setAmount(fmt.Sprintf("F%d", row), pkg.Totals.PackageTotal)
	}

	_ = file.SetColWidth(sheet, "A", "A", 32)
	_ = file.SetColWidth(sheet, "B", "F", 16)
}

func (g *Generator) writeWorksheet(file *excelize.File, sheet string, export model.ExportSheet, styles sheetStyles) {
	ws := export.Worksheet

	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Package")
	set("B1", export.PackageName)
	set("A2", "Worksheet")
	set("B2", ws.Name)
	set("A3", "Total cost")
	_ = file.SetCellValue(sheet, "B3", g.number(ws.Totals.TotalCost))
	_ = file.SetCellStyle(sheet, "B3", "B3", styles.amount)

	columns := visibleColumns(ws.Columns)
	tableRow := 5
	set(fmt.Sprintf("A%d", tableRow), "#")
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+2, tableRow)
		title := col.DisplayName
		if strings.TrimSpace(title) == "" {
			title = col.Key
		}
		set(cell, title)
	}
	last, _ := excelize.CoordinatesToCellName(len(columns)+1, tableRow)
	_ = file.SetCellStyle(sheet, fmt.Sprintf("A%d", tableRow), last, styles.header)

	for i, row := range ws.Rows {
		if row.IsDeleted {
			continue
		}
		line := tableRow + 1 + i
		set(fmt.Sprintf("A%d", line), row.RowNumber)
		for j, col := range columns {
			value, ok := row.Data.Get(col.Key)
			if !ok || value.IsNull() {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(j+2, line)
			g.writeValue(file, sheet, cell, value, col, styles)
		}
		if row.IsGroupHeader {
			end, _ := excelize.CoordinatesToCellName(len(columns)+1, line)
			_ = file.SetCellStyle(sheet, fmt.Sprintf("A%d", line), end, styles.header)
		}
	}

	_ = file.SetColWidth(sheet, "A", "A", 8)
	if len(columns) > 0 {
		lastCol, _ := excelize.ColumnNumberToName(len(columns) + 1)
		_ = file.SetColWidth(sheet, "B", lastCol, 16)
	}
}

func (g *Generator) writeValue(file *excelize.File, sheet, cell string, value model.Value, col model.Column, styles sheetStyles) {
	switch value.Kind() {
	case model.KindNumber:
		d, _ := value.Decimal()
		_ = file.SetCellValue(sheet, cell, g.number(d))
		if col.DataType == model.DataTypeCurrency || col.IsComputed() {
			_ = file.SetCellStyle(sheet, cell, cell, styles.amount)
		}
	case model.KindBool:
		_ = file.SetCellValue(sheet, cell, value.String() == "true")
	default:
		_ = file.SetCellValue(sheet, cell, value.String())
	}
}

func (g *Generator) number(value decimal.Decimal) float64 {
	return value.Round(g.decimals).InexactFloat64()
}

func visibleColumns(columns []model.Column) []model.Column {
	result := make([]model.Column, 0, len(columns))
	for _, col := range columns {
		if !col.IsHidden {
			result = append(result, col)
		}
	}
	return result
}

func buildSheetName(name string, id uuid.UUID, used map[string]struct{}) string {
	base := sanitizeSheetName(name)
	if base == "" {
		base = id.String()
	}
	base = truncate(base, maxSheetName)

	candidate := base
	counter := 2
	for {
		if _, exists := used[strings.ToLower(candidate)]; !exists {
			return candidate
		}
		suffix := fmt.Sprintf("-%d", counter)
		candidate = truncate(base, maxSheetName-len(suffix)) + suffix
		counter++
	}
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}

func sanitizeSheetName(value string) string {
	replacer := strings.NewReplacer(
		"[", "-",
		"]", "-",
		":", "-",
		"*", "-",
		"?", "-",
		"/", "-",
		"\\", "-",
	)
	value = replacer.Replace(strings.TrimSpace(value))
	return strings.Trim(value, "' ")
}
