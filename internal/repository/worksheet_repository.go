package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fabos/estimation-service/internal/model"
)

type worksheetRecord struct {
	ID                uuid.UUID
	PackageID         uuid.UUID
	Name              string
	WorksheetType     string
	SortOrder         int
	IsDeleted         bool
	TotalMaterialCost decimal.Decimal
	TotalLaborHours   decimal.Decimal
	TotalLaborCost    decimal.Decimal
	TotalCost         decimal.Decimal
}

func (r worksheetRecord) toModel() model.Worksheet {
	return model.Worksheet{
		ID:            r.ID,
		PackageID:     r.PackageID,
		Name:          r.Name,
		WorksheetType: r.WorksheetType,
		SortOrder:     r.SortOrder,
		IsDeleted:     r.IsDeleted,
		Totals: model.WorksheetTotals{
			MaterialCost: r.TotalMaterialCost,
			LaborHours:   r.TotalLaborHours,
			LaborCost:    r.TotalLaborCost,
			TotalCost:    r.TotalCost,
		},
	}
}

type columnRecord struct {
	ID             uuid.UUID
	WorksheetID    uuid.UUID
	ColumnKey      string
	DisplayName    string
	DataType       string
	Formula        *string
	IsRequired     bool
	IsReadOnly     bool
	IsHidden       bool
	SortOrder      int
	CatalogueField *string
	AutoPopulate   bool
}

func (r columnRecord) toModel() model.Column {
	col := model.Column{
		ID:           r.ID,
		WorksheetID:  r.WorksheetID,
		Key:          r.ColumnKey,
		DisplayName:  r.DisplayName,
		DataType:     model.ParseDataType(r.DataType),
		IsRequired:   r.IsRequired,
		IsReadOnly:   r.IsReadOnly,
		IsHidden:     r.IsHidden,
		SortOrder:    r.SortOrder,
		AutoPopulate: r.AutoPopulate,
	}
	if r.Formula != nil {
		col.Formula = *r.Formula
	}
	if r.CatalogueField != nil {
		col.CatalogueField = *r.CatalogueField
	}
	return col
}

// rowRecord maps estimation_worksheet_rows for both reads and batch inserts.
type rowRecord struct {
	ID              uuid.UUID           `gorm:"column:id;primaryKey"`
	WorksheetID     uuid.UUID           `gorm:"column:worksheet_id"`
	RowNumber       int                 `gorm:"column:row_number"`
	IsGroupHeader   bool                `gorm:"column:is_group_header"`
	IsDeleted       bool                `gorm:"column:is_deleted"`
	RowData         datatypes.JSON      `gorm:"column:row_data"`
	CalculatedTotal decimal.NullDecimal `gorm:"column:calculated_total"`
	CatalogueItemID *uuid.UUID          `gorm:"column:catalogue_item_id"`
	MatchStatus     *string             `gorm:"column:match_status"`
	MatchConfidence decimal.NullDecimal `gorm:"column:match_confidence"`
}

func (rowRecord) TableName() string {
	return "estimation_worksheet_rows"
}

func (r rowRecord) toModel() model.Row {
	// A corrupt payload loads as an empty row and is flagged so it is not
	// written back.
	data, err := model.ParseRowData(r.RowData)

	row := model.Row{
		ID:                r.ID,
		WorksheetID:       r.WorksheetID,
		RowNumber:         r.RowNumber,
		IsGroupHeader:     r.IsGroupHeader,
		IsDeleted:         r.IsDeleted,
		Data:              data,
		PayloadUnreadable: err != nil,
	}
	if r.CalculatedTotal.Valid {
		total := r.CalculatedTotal.Decimal
		row.CalculatedTotal = &total
	}
	if r.CatalogueItemID != nil {
		link := &model.CatalogueLink{ItemID: *r.CatalogueItemID}
		if r.MatchStatus != nil {
			link.MatchStatus = *r.MatchStatus
		}
		if r.MatchConfidence.Valid {
			confidence := r.MatchConfidence.Decimal
			link.Confidence = &confidence
		}
		row.Catalogue = link
	}
	return row
}

func newRowRecord(worksheetID uuid.UUID, row model.Row) (rowRecord, error) {
	payload, err := json.Marshal(row.Data)
	if err != nil {
		return rowRecord{}, fmt.Errorf("encode row %d: %w", row.RowNumber, err)
	}
	record := rowRecord{
		ID:            row.ID,
		WorksheetID:   worksheetID,
		RowNumber:     row.RowNumber,
		IsGroupHeader: row.IsGroupHeader,
		IsDeleted:     row.IsDeleted,
		RowData:       datatypes.JSON(payload),
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if row.CalculatedTotal != nil {
		record.CalculatedTotal = decimal.NewNullDecimal(*row.CalculatedTotal)
	}
	if row.Catalogue != nil {
		itemID := row.Catalogue.ItemID
		record.CatalogueItemID = &itemID
		if row.Catalogue.MatchStatus != "" {
			status := row.Catalogue.MatchStatus
			record.MatchStatus = &status
		}
		if row.Catalogue.Confidence != nil {
			record.MatchConfidence = decimal.NewNullDecimal(*row.Catalogue.Confidence)
		}
	}
	return record, nil
}

// rowUpdate is what a recalculation writes back for one row. RowData is nil
// when the stored payload must be left alone.
type rowUpdate struct {
	RowData         datatypes.JSON
	CalculatedTotal decimal.NullDecimal
}

func calculationUpdate(worksheetID uuid.UUID, row model.Row) (rowUpdate, error) {
	record, err := newRowRecord(worksheetID, row)
	if err != nil {
		return rowUpdate{}, err
	}
	update := rowUpdate{CalculatedTotal: record.CalculatedTotal}
	if !row.PayloadUnreadable {
		update.RowData = record.RowData
	}
	return update, nil
}

const worksheetColumns = `
	id,
	package_id,
	name,
	worksheet_type,
	sort_order,
	is_deleted,
	total_material_cost,
	total_labor_hours,
	total_labor_cost,
	total_cost
`

func (r *EstimationRepository) GetWorksheet(ctx context.Context, id uuid.UUID) (*model.Worksheet, error) {
	var record worksheetRecord
	if err := r.db.WithContext(ctx).Raw(`
		SELECT`+worksheetColumns+`
		FROM estimation_worksheets
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&record).Error; err != nil {
		return nil, err
	}
	if record.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}

	ws := record.toModel()
	if err := r.attachGrid(ctx, []*model.Worksheet{&ws}); err != nil {
		return nil, err
	}
	return &ws, nil
}

func (r *EstimationRepository) ListPackageWorksheets(ctx context.Context, packageID uuid.UUID) ([]model.Worksheet, error) {
	worksheets, err := r.ListWorksheetTotals(ctx, packageID)
	if err != nil {
		return nil, err
	}
	refs := make([]*model.Worksheet, len(worksheets))
	for i := range worksheets {
		refs[i] = &worksheets[i]
	}
	if err := r.attachGrid(ctx, refs); err != nil {
		return nil, err
	}
	return worksheets, nil
}

func (r *EstimationRepository) ListWorksheetTotals(ctx context.Context, packageID uuid.UUID) ([]model.Worksheet, error) {
	var records []worksheetRecord
	if err := r.db.WithContext(ctx).Raw(`
		SELECT`+worksheetColumns+`
		FROM estimation_worksheets
		WHERE package_id = ?
			AND is_deleted = FALSE
		ORDER BY sort_order ASC, name ASC
	`, packageID).Scan(&records).Error; err != nil {
		return nil, err
	}

	worksheets := make([]model.Worksheet, 0, len(records))
	for _, record := range records {
		worksheets = append(worksheets, record.toModel())
	}
	return worksheets, nil
}

// attachGrid loads the column registries and live rows of worksheets with one
// query per table.
func (r *EstimationRepository) attachGrid(ctx context.Context, worksheets []*model.Worksheet) error {
	if len(worksheets) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(worksheets))
	byID := make(map[uuid.UUID]*model.Worksheet, len(worksheets))
	for _, ws := range worksheets {
		ids = append(ids, ws.ID)
		byID[ws.ID] = ws
	}

	var columns []columnRecord
	if err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			worksheet_id,
			column_key,
			display_name,
			data_type,
			formula,
			is_required,
			is_read_only,
			is_hidden,
			sort_order,
			catalogue_field,
			auto_populate
		FROM estimation_worksheet_columns
		WHERE worksheet_id IN ?
			AND is_deleted = FALSE
		ORDER BY worksheet_id, sort_order ASC, column_key ASC
	`, ids).Scan(&columns).Error; err != nil {
		return err
	}
	for _, col := range columns {
		if ws, ok := byID[col.WorksheetID]; ok {
			ws.Columns = append(ws.Columns, col.toModel())
		}
	}

	var rows []rowRecord
	if err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			worksheet_id,
			row_number,
			is_group_header,
			is_deleted,
			row_data,
			calculated_total,
			catalogue_item_id,
			match_status,
			match_confidence
		FROM estimation_worksheet_rows
		WHERE worksheet_id IN ?
			AND is_deleted = FALSE
		ORDER BY worksheet_id, row_number ASC
	`, ids).Scan(&rows).Error; err != nil {
		return err
	}
	for _, row := range rows {
		if ws, ok := byID[row.WorksheetID]; ok {
			ws.Rows = append(ws.Rows, row.toModel())
		}
	}
	return nil
}

// SaveWorksheetCalculation writes computed cells, row totals and worksheet
// totals while holding the worksheet row lock, so concurrent recalculations of
// one worksheet serialise across processes.
func (r *EstimationRepository) SaveWorksheetCalculation(ctx context.Context, ws *model.Worksheet) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked []uuid.UUID
		if err := tx.Table("estimation_worksheets").
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", ws.ID).
			Pluck("id", &locked).Error; err != nil {
			return err
		}
		if len(locked) == 0 {
			return gorm.ErrRecordNotFound
		}

		for _, row := range ws.Rows {
			if !row.Aggregatable() {
				continue
			}
			update, err := calculationUpdate(ws.ID, row)
			if err != nil {
				return err
			}
			if update.RowData == nil {
				err = tx.Exec(`
					UPDATE estimation_worksheet_rows
					SET calculated_total = ?,
						updated_at = NOW()
					WHERE id = ?
						AND worksheet_id = ?
				`, update.CalculatedTotal, row.ID, ws.ID).Error
			} else {
				err = tx.Exec(`
					UPDATE estimation_worksheet_rows
					SET row_data = ?,
						calculated_total = ?,
						updated_at = NOW()
					WHERE id = ?
						AND worksheet_id = ?
				`, update.RowData, update.CalculatedTotal, row.ID, ws.ID).Error
			}
			if err != nil {
				return err
			}
		}

		return tx.Exec(`
			UPDATE estimation_worksheets
			SET total_material_cost = ?,
				total_labor_hours = ?,
				total_labor_cost = ?,
				total_cost = ?,
				updated_at = NOW()
			WHERE id = ?
		`,
			ws.Totals.MaterialCost,
			ws.Totals.LaborHours,
			ws.Totals.LaborCost,
			ws.Totals.TotalCost,
			ws.ID,
		).Error
	})
}

func (r *EstimationRepository) InsertRows(ctx context.Context, worksheetID uuid.UUID, rows []model.Row) error {
	if len(rows) == 0 {
		return nil
	}
	records := make([]rowRecord, 0, len(rows))
	for _, row := range rows {
		record, err := newRowRecord(worksheetID, row)
		if err != nil {
			return err
		}
		records = append(records, record)
	}
	return r.db.WithContext(ctx).CreateInBatches(records, insertBatchSize).Error
}
