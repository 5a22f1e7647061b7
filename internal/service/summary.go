package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/fabos/estimation-service/internal/model"
)

// WorksheetSummary reports a worksheet's stored totals together with live
// per-column sums. It does not recalculate.
func (s *CalculationService) WorksheetSummary(ctx context.Context, id uuid.UUID) (*model.WorksheetSummary, error) {
	ws, err := s.store.GetWorksheet(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if ws.IsDeleted {
		return nil, ErrNotFound
	}
	summary := summarizeWorksheet(ws)
	return &summary, nil
}

func summarizeWorksheet(ws *model.Worksheet) model.WorksheetSummary {
	count := 0
	for _, row := range ws.Rows {
		if row.Aggregatable() {
			count++
		}
	}
	return model.WorksheetSummary{
		WorksheetID:   ws.ID,
		WorksheetName: ws.Name,
		WorksheetType: ws.WorksheetType,
		Totals:        ws.Totals,
		RowCount:      count,
		ColumnTotals:  columnTotals(ws),
	}
}

func (s *CalculationService) PackageSummary(ctx context.Context, id uuid.UUID) (*model.PackageSummary, error) {
	pkg, err := s.store.GetPackage(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if pkg.IsDeleted {
		return nil, ErrNotFound
	}
	return s.summarizePackage(ctx, pkg)
}

func (s *CalculationService) summarizePackage(ctx context.Context, pkg *model.Package) (*model.PackageSummary, error) {
	worksheets, err := s.store.ListPackageWorksheets(ctx, pkg.ID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}

	summary := &model.PackageSummary{
		PackageID:          pkg.ID,
		PackageName:        pkg.Name,
		OverheadPercentage: pkg.OverheadPercentage,
		Totals:             pkg.Totals,
		Worksheets:         make([]model.WorksheetSummary, 0, len(worksheets)),
	}
	for i := range worksheets {
		if worksheets[i].IsDeleted {
			continue
		}
		summary.Worksheets = append(summary.Worksheets, summarizeWorksheet(&worksheets[i]))
	}
	return summary, nil
}

// RevisionSummary reports a revision's stored totals, its cost breakdown and
// the summaries of its live packages.
func (s *CalculationService) RevisionSummary(ctx context.Context, id uuid.UUID) (*model.RevisionSummary, error) {
	rev, err := s.store.GetRevision(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if rev.IsDeleted {
		return nil, ErrNotFound
	}

	summary := &model.RevisionSummary{
		RevisionID:   rev.ID,
		EstimationID: rev.EstimationID,
		Letter:       rev.Letter,
		Status:       rev.Status,
		Totals:       rev.Totals,
		Breakdown:    CostBreakdown(rev.Totals.Subtotal, rev.OverheadPercentage, rev.MarginPercentage),
		Packages:     make([]model.PackageSummary, 0, len(rev.PackageIDs)),
	}
	for _, pkgID := range rev.PackageIDs {
		pkg, err := s.store.GetPackage(ctx, pkgID)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		if pkg.IsDeleted {
			continue
		}
		pkgSummary, err := s.summarizePackage(ctx, pkg)
		if err != nil {
			return nil, err
		}
		summary.Packages = append(summary.Packages, *pkgSummary)
	}
	return summary, nil
}
