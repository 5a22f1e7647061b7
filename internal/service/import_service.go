package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fabos/estimation-service/internal/catalogue"
	"github.com/fabos/estimation-service/internal/model"
)

type ImportService struct {
	store Store
	calc  *CalculationService
	log   zerolog.Logger
}

type ImportRow struct {
	RowNumber       int
	IsGroupHeader   bool
	Data            model.RowData
	CatalogueItemID *uuid.UUID
	MatchStatus     string
}

type ImportRowsInput struct {
	WorksheetID uuid.UUID
	Rows        []ImportRow
	Principal   model.Principal
}

type ImportRowsResult struct {
	Inserted  int
	Populated int
	Worksheet *model.WorksheetSummary
	Revision  *model.Revision
}

func NewImportService(store Store, calc *CalculationService, log zerolog.Logger) *ImportService {
	return &ImportService{
		store: store,
		calc:  calc,
		log:   log,
	}
}

// ImportRows appends rows to a worksheet, filling catalogue-linked columns
// from the matched catalogue items, and recalculates the owning revision.
func (s *ImportService) ImportRows(ctx context.Context, input ImportRowsInput) (*ImportRowsResult, error) {
	if !input.Principal.CanEdit() {
		return nil, ErrPermissionDenied
	}
	if input.WorksheetID == uuid.Nil {
		return nil, fmt.Errorf("%w: worksheet_id is required", ErrInvalidInput)
	}
	if len(input.Rows) == 0 {
		return nil, fmt.Errorf("%w: at least one row is required", ErrInvalidInput)
	}

	ws, err := s.store.GetWorksheet(ctx, input.WorksheetID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if ws.IsDeleted {
		return nil, ErrNotFound
	}

	items, err := s.store.GetCatalogueItems(ctx, catalogueIDs(input.Rows))
	if err != nil {
		return nil, err
	}

	next := nextRowNumber(ws.Rows)
	rows := make([]model.Row, 0, len(input.Rows))
	populated := 0
	for _, in := range input.Rows {
		row := model.Row{
			ID:            uuid.New(),
			WorksheetID:   ws.ID,
			RowNumber:     in.RowNumber,
			IsGroupHeader: in.IsGroupHeader,
			Data:          in.Data.Clone(),
		}
		if row.RowNumber <= 0 {
			row.RowNumber = next
		}
		if row.RowNumber >= next {
			next = row.RowNumber + 1
		}

		if in.CatalogueItemID != nil {
			row.Catalogue = &model.CatalogueLink{ItemID: *in.CatalogueItemID, MatchStatus: in.MatchStatus}
			if item, ok := items[*in.CatalogueItemID]; ok && !row.IsGroupHeader {
				populated += catalogue.Populate(&row, ws.Columns, item)
			} else if !ok {
				s.log.Warn().
					Str("worksheet_id", ws.ID.String()).
					Str("catalogue_item_id", in.CatalogueItemID.String()).
					Msg("catalogue item not found, row imported without auto-population")
			}
		}
		rows = append(rows, row)
	}

	if err := s.store.InsertRows(ctx, ws.ID, rows); err != nil {
		return nil, err
	}

	result := &ImportRowsResult{Inserted: len(rows), Populated: populated}

	pkg, err := s.store.GetPackage(ctx, ws.PackageID)
	switch {
	case err == nil && !pkg.IsDeleted:
		rev, err := s.calc.RecalculateRevision(ctx, pkg.RevisionID)
		if err != nil {
			return nil, err
		}
		result.Revision = rev
	case err == nil || isNotFound(err):
		if _, err := s.calc.RecalculateWorksheet(ctx, ws.ID); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	summary, err := s.calc.WorksheetSummary(ctx, ws.ID)
	if err != nil {
		return nil, err
	}
	result.Worksheet = summary

	s.log.Info().
		Str("worksheet_id", ws.ID.String()).
		Int("inserted", result.Inserted).
		Int("populated", result.Populated).
		Msg("rows imported")
	return result, nil
}

func catalogueIDs(rows []ImportRow) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(rows))
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		if row.CatalogueItemID == nil {
			continue
		}
		if _, ok := seen[*row.CatalogueItemID]; ok {
			continue
		}
		seen[*row.CatalogueItemID] = struct{}{}
		ids = append(ids, *row.CatalogueItemID)
	}
	return ids
}

func nextRowNumber(rows []model.Row) int {
	next := 1
	for _, row := range rows {
		if row.RowNumber >= next {
			next = row.RowNumber + 1
		}
	}
	return next
}
