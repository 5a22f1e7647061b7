package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fabos/estimation-service/internal/catalogue"
	"github.com/fabos/estimation-service/internal/model"
)

const insertBatchSize = 200

type EstimationRepository struct {
	db *gorm.DB
}

func NewEstimationRepository(db *gorm.DB) *EstimationRepository {
	return &EstimationRepository{db: db}
}

type packageRecord struct {
	ID                 uuid.UUID
	RevisionID         uuid.UUID
	Name               string
	SortOrder          int
	IsDeleted          bool
	OverheadPercentage decimal.Decimal
	MaterialCost       decimal.Decimal
	LaborHours         decimal.Decimal
	LaborCost          decimal.Decimal
	OverheadCost       decimal.Decimal
	PackageTotal       decimal.Decimal
}

func (r packageRecord) toModel() model.Package {
	return model.Package{
		ID:                 r.ID,
		RevisionID:         r.RevisionID,
		Name:               r.Name,
		SortOrder:          r.SortOrder,
		IsDeleted:          r.IsDeleted,
		OverheadPercentage: r.OverheadPercentage,
		Totals: model.PackageTotals{
			MaterialCost: r.MaterialCost,
			LaborHours:   r.LaborHours,
			LaborCost:    r.LaborCost,
			OverheadCost: r.OverheadCost,
			PackageTotal: r.PackageTotal,
		},
	}
}

const packageColumns = `
	id,
	revision_id,
	name,
	sort_order,
	is_deleted,
	overhead_percentage,
	material_cost,
	labor_hours,
	labor_cost,
	overhead_cost,
	package_total
`

func (r *EstimationRepository) GetPackage(ctx context.Context, id uuid.UUID) (*model.Package, error) {
	var record packageRecord
	if err := r.db.WithContext(ctx).Raw(`
		SELECT`+packageColumns+`
		FROM estimation_packages
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&record).Error; err != nil {
		return nil, err
	}
	if record.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}

	pkg := record.toModel()
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id
		FROM estimation_worksheets
		WHERE package_id = ?
			AND is_deleted = FALSE
		ORDER BY sort_order ASC, name ASC
	`, id).Scan(&pkg.WorksheetIDs).Error; err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *EstimationRepository) ListPackageTotals(ctx context.Context, revisionID uuid.UUID) ([]model.Package, error) {
	var records []packageRecord
	if err := r.db.WithContext(ctx).Raw(`
		SELECT`+packageColumns+`
		FROM estimation_packages
		WHERE revision_id = ?
			AND is_deleted = FALSE
		ORDER BY sort_order ASC, name ASC
	`, revisionID).Scan(&records).Error; err != nil {
		return nil, err
	}

	packages := make([]model.Package, 0, len(records))
	for _, record := range records {
		packages = append(packages, record.toModel())
	}
	return packages, nil
}

func (r *EstimationRepository) SavePackageTotals(ctx context.Context, pkg *model.Package) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE estimation_packages
		SET material_cost = ?,
			labor_hours = ?,
			labor_cost = ?,
			overhead_cost = ?,
			package_total = ?,
			updated_at = NOW()
		WHERE id = ?
	`,
		pkg.Totals.MaterialCost,
		pkg.Totals.LaborHours,
		pkg.Totals.LaborCost,
		pkg.Totals.OverheadCost,
		pkg.Totals.PackageTotal,
		pkg.ID,
	).Error
}

type revisionRecord struct {
	ID                 uuid.UUID
	EstimationID       uuid.UUID
	RevisionLetter     string
	Status             string
	IsDeleted          bool
	OverheadPercentage decimal.Decimal
	MarginPercentage   decimal.Decimal
	TotalMaterialCost  decimal.Decimal
	TotalLaborHours    decimal.Decimal
	TotalLaborCost     decimal.Decimal
	Subtotal           decimal.Decimal
	OverheadAmount     decimal.Decimal
	MarginAmount       decimal.Decimal
	TotalAmount        decimal.Decimal
}

func (r revisionRecord) toModel() model.Revision {
	return model.Revision{
		ID:                 r.ID,
		EstimationID:       r.EstimationID,
		Letter:             r.RevisionLetter,
		Status:             model.RevisionStatus(r.Status),
		IsDeleted:          r.IsDeleted,
		OverheadPercentage: r.OverheadPercentage,
		MarginPercentage:   r.MarginPercentage,
		Totals: model.RevisionTotals{
			MaterialCost:   r.TotalMaterialCost,
			LaborHours:     r.TotalLaborHours,
			LaborCost:      r.TotalLaborCost,
			Subtotal:       r.Subtotal,
			OverheadAmount: r.OverheadAmount,
			MarginAmount:   r.MarginAmount,
			TotalAmount:    r.TotalAmount,
		},
	}
}

const revisionColumns = `
	id,
	estimation_id,
	revision_letter,
	status,
	is_deleted,
	overhead_percentage,
	margin_percentage,
	total_material_cost,
	total_labor_hours,
	total_labor_cost,
	subtotal,
	overhead_amount,
	margin_amount,
	total_amount
`

func (r *EstimationRepository) GetRevision(ctx context.Context, id uuid.UUID) (*model.Revision, error) {
	var record revisionRecord
	if err := r.db.WithContext(ctx).Raw(`
		SELECT`+revisionColumns+`
		FROM estimation_revisions
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&record).Error; err != nil {
		return nil, err
	}
	if record.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}

	rev := record.toModel()
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id
		FROM estimation_packages
		WHERE revision_id = ?
			AND is_deleted = FALSE
		ORDER BY sort_order ASC, name ASC
	`, id).Scan(&rev.PackageIDs).Error; err != nil {
		return nil, err
	}
	return &rev, nil
}

func (r *EstimationRepository) SaveRevisionTotals(ctx context.Context, rev *model.Revision) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE estimation_revisions
		SET total_material_cost = ?,
			total_labor_hours = ?,
			total_labor_cost = ?,
			subtotal = ?,
			overhead_amount = ?,
			margin_amount = ?,
			total_amount = ?,
			updated_at = NOW()
		WHERE id = ?
	`,
		rev.Totals.MaterialCost,
		rev.Totals.LaborHours,
		rev.Totals.LaborCost,
		rev.Totals.Subtotal,
		rev.Totals.OverheadAmount,
		rev.Totals.MarginAmount,
		rev.Totals.TotalAmount,
		rev.ID,
	).Error
}

func (r *EstimationRepository) GetEstimation(ctx context.Context, id uuid.UUID) (*model.Estimation, error) {
	var record struct {
		ID                    uuid.UUID
		EstimationNumber      string
		ProjectName           string
		CurrentRevisionLetter *string
		CurrentTotal          decimal.Decimal
	}
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, estimation_number, project_name, current_revision_letter, current_total
		FROM estimations
		WHERE id = ?
			AND is_deleted = FALSE
		LIMIT 1
	`, id).Scan(&record).Error; err != nil {
		return nil, err
	}
	if record.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}

	est := &model.Estimation{
		ID:           record.ID,
		Number:       record.EstimationNumber,
		ProjectName:  record.ProjectName,
		CurrentTotal: record.CurrentTotal,
	}
	if record.CurrentRevisionLetter != nil {
		est.CurrentRevisionLetter = *record.CurrentRevisionLetter
	}

	var revisions []revisionRecord
	if err := r.db.WithContext(ctx).Raw(`
		SELECT`+revisionColumns+`
		FROM estimation_revisions
		WHERE estimation_id = ?
			AND is_deleted = FALSE
		ORDER BY LENGTH(revision_letter) ASC, revision_letter ASC
	`, id).Scan(&revisions).Error; err != nil {
		return nil, err
	}
	for _, rev := range revisions {
		est.Revisions = append(est.Revisions, rev.toModel())
	}
	return est, nil
}

func (r *EstimationRepository) SaveEstimationSummary(ctx context.Context, est *model.Estimation) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE estimations
		SET current_revision_letter = ?,
			current_total = ?,
			updated_at = NOW()
		WHERE id = ?
	`, est.CurrentRevisionLetter, est.CurrentTotal, est.ID).Error
}

func (r *EstimationRepository) GetCatalogueItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]catalogue.Item, error) {
	result := make(map[uuid.UUID]catalogue.Item, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var items []catalogue.Item
	if err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			item_code,
			description,
			category,
			material,
			profile,
			unit,
			unit_price,
			weight_per_unit,
			labor_hours_per_unit
		FROM catalogue_items
		WHERE id IN ?
			AND is_deleted = FALSE
	`, ids).Scan(&items).Error; err != nil {
		return nil, err
	}
	for _, item := range items {
		result[item.ID] = item
	}
	return result, nil
}
