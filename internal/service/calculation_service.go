package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fabos/estimation-service/internal/config"
	"github.com/fabos/estimation-service/internal/formula"
	"github.com/fabos/estimation-service/internal/model"
)

// CalculationService recomputes worksheet rows and rolls totals up through
// packages and revisions to the estimation. Missing or soft-deleted entities
// are logged and skipped, never reported as errors; store failures are
// returned.
type CalculationService struct {
	store    Store
	engine   *formula.Engine
	log      zerolog.Logger
	locks    *keyedMutex
	approved []string
}

func NewCalculationService(store Store, engine *formula.Engine, cfg *config.Config, log zerolog.Logger) *CalculationService {
	return &CalculationService{
		store:    store,
		engine:   engine,
		log:      log,
		locks:    newKeyedMutex(),
		approved: cfg.Estimates.ApprovedStatuses,
	}
}

type columnPlan struct {
	column  model.Column
	formula *formula.Formula
}

// plan returns the computed columns of ws in evaluation order with their
// compiled formulas. Columns whose formula does not compile are skipped so
// their cells keep the previous value.
func (s *CalculationService) plan(ws *model.Worksheet) ([]columnPlan, error) {
	ordered, err := formula.Order(ws.Columns)
	if err != nil {
		return nil, err
	}

	plan := make([]columnPlan, 0, len(ordered))
	for _, col := range ordered {
		f, err := s.engine.Compile(col.Formula)
		if err != nil {
			s.log.Warn().
				Err(err).
				Str("worksheet_id", ws.ID.String()).
				Str("column", col.Key).
				Msg("skipping column with invalid formula")
			continue
		}
		plan = append(plan, columnPlan{column: col, formula: f})
	}
	return plan, nil
}

func newScope(ws *model.Worksheet, siblings []model.Worksheet) *formula.Scope {
	return &formula.Scope{
		Rows:    ws.Rows,
		Columns: formula.NewColumnSet(ws.Columns),
		Sheets:  siblings,
	}
}

func (s *CalculationService) evaluateCell(p columnPlan, row *model.Row, scope *formula.Scope) {
	value, ok := s.engine.EvaluateCompiled(p.formula, *row, scope)
	if !ok {
		return
	}
	row.Data.Set(p.column.Key, model.Number(value))
}

func updateRowTotal(row *model.Row) {
	v, ok := row.Data.Get(model.ColumnTotalCost)
	if !ok {
		return
	}
	if d, ok := v.Decimal(); ok {
		row.CalculatedTotal = &d
	}
}

// RecalculateRow evaluates every computed column of ws for a single row in
// dependency order. Group headers and deleted rows are left untouched.
func (s *CalculationService) RecalculateRow(row *model.Row, ws *model.Worksheet, siblings []model.Worksheet) error {
	if !row.Aggregatable() {
		return nil
	}
	plan, err := s.plan(ws)
	if err != nil {
		return err
	}

	scope := newScope(ws, siblings)
	for _, p := range plan {
		s.evaluateCell(p, row, scope)
	}
	updateRowTotal(row)
	return nil
}

// RecalculateWorksheet recomputes every row of a worksheet, refreshes its
// totals and persists the result. Columns are evaluated one at a time across
// all rows, so an aggregate over a computed column sees that column's final
// values.
func (s *CalculationService) RecalculateWorksheet(ctx context.Context, id uuid.UUID) (*model.Worksheet, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	ws, err := s.store.GetWorksheet(ctx, id)
	if err != nil {
		if isNotFound(err) {
			s.log.Warn().Str("worksheet_id", id.String()).Msg("worksheet not found, skipping recalculation")
			return nil, nil
		}
		return nil, err
	}
	if ws.IsDeleted {
		s.log.Warn().Str("worksheet_id", id.String()).Msg("worksheet is deleted, skipping recalculation")
		return nil, nil
	}

	plan, err := s.plan(ws)
	if err != nil {
		if errors.Is(err, formula.ErrCircularReference) {
			s.log.Warn().Err(err).Str("worksheet_id", id.String()).Msg("worksheet has circular column references, skipping recalculation")
			return nil, nil
		}
		return nil, err
	}

	siblings, err := s.siblings(ctx, ws)
	if err != nil {
		return nil, err
	}

	scope := newScope(ws, siblings)
	for _, p := range plan {
		for i := range ws.Rows {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			row := &ws.Rows[i]
			if !row.Aggregatable() {
				continue
			}
			s.evaluateCell(p, row, scope)
		}
	}
	unreadable := 0
	for i := range ws.Rows {
		if ws.Rows[i].Aggregatable() {
			updateRowTotal(&ws.Rows[i])
		}
		if ws.Rows[i].PayloadUnreadable {
			unreadable++
		}
	}
	if unreadable > 0 {
		s.log.Warn().
			Str("worksheet_id", id.String()).
			Int("rows", unreadable).
			Msg("rows with unreadable data calculated as empty, stored data kept")
	}

	ws.Totals = worksheetTotals(ws)
	if err := s.store.SaveWorksheetCalculation(ctx, ws); err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("worksheet_id", id.String()).
		Int("rows", len(ws.Rows)).
		Str("total_cost", ws.Totals.TotalCost.String()).
		Msg("worksheet recalculated")
	return ws, nil
}

func (s *CalculationService) siblings(ctx context.Context, ws *model.Worksheet) ([]model.Worksheet, error) {
	all, err := s.store.ListPackageWorksheets(ctx, ws.PackageID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	result := make([]model.Worksheet, 0, len(all))
	for _, other := range all {
		if other.ID == ws.ID || other.IsDeleted {
			continue
		}
		result = append(result, other)
	}
	return result, nil
}

// RecalculatePackage recalculates each worksheet of the package and rolls the
// persisted worksheet totals up into the package. A worksheet that fails is
// logged and its last stored totals are used.
func (s *CalculationService) RecalculatePackage(ctx context.Context, id uuid.UUID) (*model.Package, error) {
	pkg, err := s.store.GetPackage(ctx, id)
	if err != nil {
		if isNotFound(err) {
			s.log.Warn().Str("package_id", id.String()).Msg("package not found, skipping recalculation")
			return nil, nil
		}
		return nil, err
	}
	if pkg.IsDeleted {
		s.log.Warn().Str("package_id", id.String()).Msg("package is deleted, skipping recalculation")
		return nil, nil
	}

	for _, wsID := range pkg.WorksheetIDs {
		if _, err := s.RecalculateWorksheet(ctx, wsID); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.log.Error().Err(err).Str("package_id", id.String()).Str("worksheet_id", wsID.String()).Msg("worksheet recalculation failed")
		}
	}

	worksheets, err := s.store.ListWorksheetTotals(ctx, pkg.ID)
	if err != nil {
		return nil, err
	}
	pkg.Totals = packageTotals(worksheets, pkg.OverheadPercentage)
	if err := s.store.SavePackageTotals(ctx, pkg); err != nil {
		return nil, err
	}
	return pkg, nil
}

// RecalculateRevision recalculates every package of the revision, applies the
// revision's overhead and margin, and refreshes the estimation's current
// total.
func (s *CalculationService) RecalculateRevision(ctx context.Context, id uuid.UUID) (*model.Revision, error) {
	rev, err := s.recalculateRevision(ctx, id)
	if err != nil || rev == nil {
		return rev, err
	}
	if err := s.UpdateEstimationTotal(ctx, rev.EstimationID); err != nil {
		s.log.Error().Err(err).Str("estimation_id", rev.EstimationID.String()).Msg("update estimation total failed")
	}
	return rev, nil
}

func (s *CalculationService) recalculateRevision(ctx context.Context, id uuid.UUID) (*model.Revision, error) {
	rev, err := s.store.GetRevision(ctx, id)
	if err != nil {
		if isNotFound(err) {
			s.log.Warn().Str("revision_id", id.String()).Msg("revision not found, skipping recalculation")
			return nil, nil
		}
		return nil, err
	}
	if rev.IsDeleted {
		s.log.Warn().Str("revision_id", id.String()).Msg("revision is deleted, skipping recalculation")
		return nil, nil
	}

	for _, pkgID := range rev.PackageIDs {
		if _, err := s.RecalculatePackage(ctx, pkgID); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.log.Error().Err(err).Str("revision_id", id.String()).Str("package_id", pkgID.String()).Msg("package recalculation failed")
		}
	}

	packages, err := s.store.ListPackageTotals(ctx, rev.ID)
	if err != nil {
		return nil, err
	}
	rev.Totals = revisionTotals(packages, rev.OverheadPercentage, rev.MarginPercentage)
	if err := s.store.SaveRevisionTotals(ctx, rev); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("revision_id", id.String()).
		Str("letter", rev.Letter).
		Str("total_amount", rev.Totals.TotalAmount.String()).
		Msg("revision recalculated")
	return rev, nil
}

// RecalculateEstimation recalculates every live revision of an estimation and
// returns it with refreshed current-revision fields.
func (s *CalculationService) RecalculateEstimation(ctx context.Context, id uuid.UUID) (*model.Estimation, error) {
	est, err := s.store.GetEstimation(ctx, id)
	if err != nil {
		if isNotFound(err) {
			s.log.Warn().Str("estimation_id", id.String()).Msg("estimation not found, skipping recalculation")
			return nil, nil
		}
		return nil, err
	}

	for _, rev := range est.Revisions {
		if rev.IsDeleted {
			continue
		}
		if _, err := s.recalculateRevision(ctx, rev.ID); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.log.Error().Err(err).Str("estimation_id", id.String()).Str("revision_id", rev.ID.String()).Msg("revision recalculation failed")
		}
	}

	if err := s.UpdateEstimationTotal(ctx, id); err != nil {
		return nil, err
	}
	est, err = s.store.GetEstimation(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return est, nil
}

// UpdateEstimationTotal stores the current revision's letter and total amount
// on the estimation. An estimation without live revisions is left unchanged.
func (s *CalculationService) UpdateEstimationTotal(ctx context.Context, estimationID uuid.UUID) error {
	est, err := s.store.GetEstimation(ctx, estimationID)
	if err != nil {
		if isNotFound(err) {
			s.log.Warn().Str("estimation_id", estimationID.String()).Msg("estimation not found, skipping total update")
			return nil
		}
		return err
	}

	current, ok := SelectCurrentRevision(est.Revisions, s.approved)
	if !ok {
		return nil
	}
	est.CurrentRevisionLetter = current.Letter
	est.CurrentTotal = current.Totals.TotalAmount
	return s.store.SaveEstimationSummary(ctx, est)
}

// ColumnTotals sums every numeric column of a worksheet over its live,
// non-header rows, in registry order. A missing worksheet has no totals.
func (s *CalculationService) ColumnTotals(ctx context.Context, worksheetID uuid.UUID) ([]model.ColumnTotal, error) {
	ws, err := s.store.GetWorksheet(ctx, worksheetID)
	if err != nil {
		if isNotFound(err) {
			return []model.ColumnTotal{}, nil
		}
		return nil, err
	}
	if ws.IsDeleted {
		return []model.ColumnTotal{}, nil
	}
	return columnTotals(ws), nil
}

func columnTotals(ws *model.Worksheet) []model.ColumnTotal {
	totals := make([]model.ColumnTotal, 0, len(ws.Columns))
	for _, col := range ws.Columns {
		if !col.IsNumeric() {
			continue
		}
		totals = append(totals, model.ColumnTotal{
			Key:         col.Key,
			DisplayName: col.DisplayName,
			Total:       formula.Aggregate(formula.AggSum, col.Key, ws.Rows),
		})
	}
	return totals
}

// worksheetTotals reads the well-known cost columns. A total_cost column, when
// present, is authoritative even if it sums to zero; otherwise the total is
// material plus labour.
func worksheetTotals(ws *model.Worksheet) model.WorksheetTotals {
	sum := func(key string) (decimal.Decimal, bool) {
		col, ok := ws.Column(key)
		if !ok || !col.IsNumeric() {
			return decimal.Zero, false
		}
		return formula.Aggregate(formula.AggSum, col.Key, ws.Rows), true
	}

	material, _ := sum(model.ColumnMaterialCost)
	labor, _ := sum(model.ColumnLaborCost)
	hours, _ := sum(model.ColumnLaborHours)
	total, ok := sum(model.ColumnTotalCost)
	if !ok {
		total = material.Add(labor)
	}

	return model.WorksheetTotals{
		MaterialCost: material,
		LaborHours:   hours,
		LaborCost:    labor,
		TotalCost:    total,
	}
}

// packageTotals sums live worksheets. Overhead applies to the sum of worksheet
// total costs, which is material plus labour unless a worksheet carries its
// own total_cost column.
func packageTotals(worksheets []model.Worksheet, overheadPercentage decimal.Decimal) model.PackageTotals {
	var totals model.PackageTotals
	base := decimal.Zero
	for _, ws := range worksheets {
		if ws.IsDeleted {
			continue
		}
		totals.MaterialCost = totals.MaterialCost.Add(ws.Totals.MaterialCost)
		totals.LaborHours = totals.LaborHours.Add(ws.Totals.LaborHours)
		totals.LaborCost = totals.LaborCost.Add(ws.Totals.LaborCost)
		base = base.Add(ws.Totals.TotalCost)
	}
	totals.OverheadCost = percentOf(base, overheadPercentage)
	totals.PackageTotal = base.Add(totals.OverheadCost)
	return totals
}

// revisionTotals sums live packages. Overheads stack: the subtotal is the sum
// of package totals, package overhead included, and the revision's own
// overhead and margin are applied on top of it.
func revisionTotals(packages []model.Package, overheadPercentage, marginPercentage decimal.Decimal) model.RevisionTotals {
	var totals model.RevisionTotals
	subtotal := decimal.Zero
	for _, pkg := range packages {
		if pkg.IsDeleted {
			continue
		}
		totals.MaterialCost = totals.MaterialCost.Add(pkg.Totals.MaterialCost)
		totals.LaborHours = totals.LaborHours.Add(pkg.Totals.LaborHours)
		totals.LaborCost = totals.LaborCost.Add(pkg.Totals.LaborCost)
		subtotal = subtotal.Add(pkg.Totals.PackageTotal)
	}

	breakdown := CostBreakdown(subtotal, overheadPercentage, marginPercentage)
	totals.Subtotal = breakdown.Subtotal
	totals.OverheadAmount = breakdown.OverheadAmount
	totals.MarginAmount = breakdown.MarginAmount
	totals.TotalAmount = breakdown.TotalAmount
	return totals
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
