package http

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fabos/estimation-service/internal/formula"
	"github.com/fabos/estimation-service/internal/model"
)

type worksheetTotalsResponse struct {
	MaterialCost decimal.Decimal `json:"material_cost"`
	LaborHours   decimal.Decimal `json:"labor_hours"`
	LaborCost    decimal.Decimal `json:"labor_cost"`
	TotalCost    decimal.Decimal `json:"total_cost"`
}

type columnTotalResponse struct {
	Key         string          `json:"key"`
	DisplayName string          `json:"display_name,omitempty"`
	Total       decimal.Decimal `json:"total"`
}

type worksheetResponse struct {
	ID        uuid.UUID               `json:"id"`
	PackageID uuid.UUID               `json:"package_id"`
	Name      string                  `json:"name"`
	Totals    worksheetTotalsResponse `json:"totals"`
}

type worksheetSummaryResponse struct {
	WorksheetID   uuid.UUID               `json:"worksheet_id"`
	WorksheetName string                  `json:"worksheet_name"`
	WorksheetType string                  `json:"worksheet_type,omitempty"`
	RowCount      int                     `json:"row_count"`
	Totals        worksheetTotalsResponse `json:"totals"`
	ColumnTotals  []columnTotalResponse   `json:"column_totals"`
}

type packageTotalsResponse struct {
	MaterialCost decimal.Decimal `json:"material_cost"`
	LaborHours   decimal.Decimal `json:"labor_hours"`
	LaborCost    decimal.Decimal `json:"labor_cost"`
	OverheadCost decimal.Decimal `json:"overhead_cost"`
	PackageTotal decimal.Decimal `json:"package_total"`
}

type packageResponse struct {
	ID                 uuid.UUID             `json:"id"`
	RevisionID         uuid.UUID             `json:"revision_id"`
	Name               string                `json:"name"`
	OverheadPercentage decimal.Decimal       `json:"overhead_percentage"`
	Totals             packageTotalsResponse `json:"totals"`
}

type packageSummaryResponse struct {
	PackageID          uuid.UUID                  `json:"package_id"`
	PackageName        string                     `json:"package_name"`
	OverheadPercentage decimal.Decimal            `json:"overhead_percentage"`
	Totals             packageTotalsResponse      `json:"totals"`
	Worksheets         []worksheetSummaryResponse `json:"worksheets"`
}

type revisionTotalsResponse struct {
	MaterialCost   decimal.Decimal `json:"material_cost"`
	LaborHours     decimal.Decimal `json:"labor_hours"`
	LaborCost      decimal.Decimal `json:"labor_cost"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	OverheadAmount decimal.Decimal `json:"overhead_amount"`
	MarginAmount   decimal.Decimal `json:"margin_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}

type revisionResponse struct {
	ID                 uuid.UUID              `json:"id"`
	EstimationID       uuid.UUID              `json:"estimation_id"`
	Letter             string                 `json:"revision_letter"`
	Status             string                 `json:"status"`
	OverheadPercentage decimal.Decimal        `json:"overhead_percentage"`
	MarginPercentage   decimal.Decimal        `json:"margin_percentage"`
	Totals             revisionTotalsResponse `json:"totals"`
}

type costBreakdownResponse struct {
	Subtotal             decimal.Decimal `json:"subtotal"`
	OverheadPercentage   decimal.Decimal `json:"overhead_percentage"`
	OverheadAmount       decimal.Decimal `json:"overhead_amount"`
	SubtotalWithOverhead decimal.Decimal `json:"subtotal_with_overhead"`
	MarginPercentage     decimal.Decimal `json:"margin_percentage"`
	MarginAmount         decimal.Decimal `json:"margin_amount"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
}

type revisionSummaryResponse struct {
	RevisionID   uuid.UUID                `json:"revision_id"`
	EstimationID uuid.UUID                `json:"estimation_id"`
	Letter       string                   `json:"revision_letter"`
	Status       string                   `json:"status"`
	Totals       revisionTotalsResponse   `json:"totals"`
	Breakdown    costBreakdownResponse    `json:"breakdown"`
	Packages     []packageSummaryResponse `json:"packages"`
}

type estimationResponse struct {
	ID                    uuid.UUID          `json:"id"`
	Number                string             `json:"estimation_number"`
	ProjectName           string             `json:"project_name"`
	CurrentRevisionLetter string             `json:"current_revision_letter"`
	CurrentTotal          decimal.Decimal    `json:"current_total"`
	Revisions             []revisionResponse `json:"revisions"`
}

type validationResponse struct {
	IsValid              bool     `json:"is_valid"`
	Error                string   `json:"error,omitempty"`
	Dependencies         []string `json:"dependencies"`
	WorksheetReferences  []string `json:"worksheet_references"`
	HasCircularReference bool     `json:"has_circular_reference"`
}

type importResponse struct {
	Inserted  int                       `json:"inserted"`
	Populated int                       `json:"populated"`
	Worksheet *worksheetSummaryResponse `json:"worksheet,omitempty"`
	Revision  *revisionResponse         `json:"revision,omitempty"`
}

func toWorksheetTotals(t model.WorksheetTotals) worksheetTotalsResponse {
	return worksheetTotalsResponse{
		MaterialCost: t.MaterialCost,
		LaborHours:   t.LaborHours,
		LaborCost:    t.LaborCost,
		TotalCost:    t.TotalCost,
	}
}

func toColumnTotals(totals []model.ColumnTotal) []columnTotalResponse {
	result := make([]columnTotalResponse, 0, len(totals))
	for _, t := range totals {
		result = append(result, columnTotalResponse{Key: t.Key, DisplayName: t.DisplayName, Total: t.Total})
	}
	return result
}

func toWorksheet(ws *model.Worksheet) worksheetResponse {
	return worksheetResponse{
		ID:        ws.ID,
		PackageID: ws.PackageID,
		Name:      ws.Name,
		Totals:    toWorksheetTotals(ws.Totals),
	}
}

func toWorksheetSummary(s model.WorksheetSummary) worksheetSummaryResponse {
	return worksheetSummaryResponse{
		WorksheetID:   s.WorksheetID,
		WorksheetName: s.WorksheetName,
		WorksheetType: s.WorksheetType,
		RowCount:      s.RowCount,
		Totals:        toWorksheetTotals(s.Totals),
		ColumnTotals:  toColumnTotals(s.ColumnTotals),
	}
}

func toPackageTotals(t model.PackageTotals) packageTotalsResponse {
	return packageTotalsResponse{
		MaterialCost: t.MaterialCost,
		LaborHours:   t.LaborHours,
		LaborCost:    t.LaborCost,
		OverheadCost: t.OverheadCost,
		PackageTotal: t.PackageTotal,
	}
}

func toPackage(pkg *model.Package) packageResponse {
	return packageResponse{
		ID:                 pkg.ID,
		RevisionID:         pkg.RevisionID,
		Name:               pkg.Name,
		OverheadPercentage: pkg.OverheadPercentage,
		Totals:             toPackageTotals(pkg.Totals),
	}
}

func toPackageSummary(s model.PackageSummary) packageSummaryResponse {
	worksheets := make([]worksheetSummaryResponse, 0, len(s.Worksheets))
	for _, ws := range s.Worksheets {
		worksheets = append(worksheets, toWorksheetSummary(ws))
	}
	return packageSummaryResponse{
		PackageID:          s.PackageID,
		PackageName:        s.PackageName,
		OverheadPercentage: s.OverheadPercentage,
		Totals:             toPackageTotals(s.Totals),
		Worksheets:         worksheets,
	}
}

func toRevisionTotals(t model.RevisionTotals) revisionTotalsResponse {
	return revisionTotalsResponse{
		MaterialCost:   t.MaterialCost,
		LaborHours:     t.LaborHours,
		LaborCost:      t.LaborCost,
		Subtotal:       t.Subtotal,
		OverheadAmount: t.OverheadAmount,
		MarginAmount:   t.MarginAmount,
		TotalAmount:    t.TotalAmount,
	}
}

func toRevision(rev *model.Revision) revisionResponse {
	return revisionResponse{
		ID:                 rev.ID,
		EstimationID:       rev.EstimationID,
		Letter:             rev.Letter,
		Status:             string(rev.Status),
		OverheadPercentage: rev.OverheadPercentage,
		MarginPercentage:   rev.MarginPercentage,
		Totals:             toRevisionTotals(rev.Totals),
	}
}

func toCostBreakdown(b model.CostBreakdown) costBreakdownResponse {
	return costBreakdownResponse{
		Subtotal:             b.Subtotal,
		OverheadPercentage:   b.OverheadPercentage,
		OverheadAmount:       b.OverheadAmount,
		SubtotalWithOverhead: b.SubtotalWithOverhead,
		MarginPercentage:     b.MarginPercentage,
		MarginAmount:         b.MarginAmount,
		TotalAmount:          b.TotalAmount,
	}
}

func toRevisionSummary(s *model.RevisionSummary) revisionSummaryResponse {
	packages := make([]packageSummaryResponse, 0, len(s.Packages))
	for _, pkg := range s.Packages {
		packages = append(packages, toPackageSummary(pkg))
	}
	return revisionSummaryResponse{
		RevisionID:   s.RevisionID,
		EstimationID: s.EstimationID,
		Letter:       s.Letter,
		Status:       string(s.Status),
		Totals:       toRevisionTotals(s.Totals),
		Breakdown:    toCostBreakdown(s.Breakdown),
		Packages:     packages,
	}
}

func toEstimation(est *model.Estimation) estimationResponse {
	revisions := make([]revisionResponse, 0, len(est.Revisions))
	for i := range est.Revisions {
		revisions = append(revisions, toRevision(&est.Revisions[i]))
	}
	return estimationResponse{
		ID:                    est.ID,
		Number:                est.Number,
		ProjectName:           est.ProjectName,
		CurrentRevisionLetter: est.CurrentRevisionLetter,
		CurrentTotal:          est.CurrentTotal,
		Revisions:             revisions,
	}
}

func toValidation(r formula.ValidationResult) validationResponse {
	deps := r.Dependencies
	if deps == nil {
		deps = []string{}
	}
	sheets := r.WorksheetReferences
	if sheets == nil {
		sheets = []string{}
	}
	return validationResponse{
		IsValid:              r.IsValid,
		Error:                r.Error,
		Dependencies:         deps,
		WorksheetReferences:  sheets,
		HasCircularReference: r.HasCircularReference,
	}
}
