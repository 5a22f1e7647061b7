package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/fabos/estimation-service/internal/model"
)

const fontName = "Helvetica"

type Generator struct {
	decimals int32
}

func NewGenerator(decimals int) *Generator {
	if decimals < 0 {
		decimals = 0
	}
	return &Generator{decimals: int32(decimals)}
}

// Generate renders the revision cost summary: header block, one line per
// package and the overhead and margin breakdown.
func (g *Generator) Generate(export model.RevisionExport) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetTitle(fmt.Sprintf("Estimate %s", export.EstimationNumber), true)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	summary := export.Summary

	pdf.SetFont(fontName, "B", 14)
	pdf.CellFormat(0, 10, tr("Cost Estimate"), "", 1, "C", false, 0, "")

	pdf.SetFont(fontName, "", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Estimation %s: %s", export.EstimationNumber, safeValue(export.ProjectName))), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Revision %s (%s)", summary.Letter, safeValue(string(summary.Status)))), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont(fontName, "B", 12)
	pdf.CellFormat(0, 8, tr("Packages"), "", 1, "L", false, 0, "")

	headers := []string{"Package", "Material cost", "Labor hours", "Labor cost", "Overhead", "Package total"}
	colWidths := []float64{87, 36, 36, 36, 36, 36}
	drawTableRow(pdf, tr, headers, colWidths, true)

	for _, pkg := range summary.Packages {
		drawTableRow(pdf, tr, []string{
			pkg.PackageName,
			g.amount(pkg.Totals.MaterialCost),
			g.amount(pkg.Totals.LaborHours),
			g.amount(pkg.Totals.LaborCost),
			g.amount(pkg.Totals.OverheadCost),
			g.amount(pkg.Totals.PackageTotal),
		}, colWidths, false)
	}
	if len(summary.Packages) == 0 {
		pdf.SetFont(fontName, "", 10)
		pdf.CellFormat(0, 8, tr("No packages"), "1", 1, "C", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont(fontName, "B", 12)
	pdf.CellFormat(0, 8, tr("Cost breakdown"), "", 1, "L", false, 0, "")

	breakdown := summary.Breakdown
	lines := [][2]string{
		{"Subtotal", g.amount(breakdown.Subtotal)},
		{fmt.Sprintf("Overhead (%s%%)", breakdown.OverheadPercentage.String()), g.amount(breakdown.OverheadAmount)},
		{"Subtotal with overhead", g.amount(breakdown.SubtotalWithOverhead)},
		{fmt.Sprintf("Margin (%s%%)", breakdown.MarginPercentage.String()), g.amount(breakdown.MarginAmount)},
	}
	pdf.SetFont(fontName, "", 11)
	for _, line := range lines {
		pdf.CellFormat(120, 6, tr(line[0]), "", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, tr(line[1]), "", 1, "R", false, 0, "")
	}
	pdf.SetFont(fontName, "B", 11)
	pdf.CellFormat(120, 7, tr("Total"), "T", 0, "L", false, 0, "")
	pdf.CellFormat(50, 7, tr(g.amount(breakdown.TotalAmount)), "T", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawTableRow(pdf *gofpdf.Fpdf, tr func(string) string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 10)
	for i, col := range cols {
		align := "L"
		if i > 0 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 8, tr(col), "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func (g *Generator) amount(value decimal.Decimal) string {
	return value.StringFixed(g.decimals)
}
