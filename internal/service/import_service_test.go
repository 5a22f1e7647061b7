package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabos/estimation-service/internal/catalogue"
	"github.com/fabos/estimation-service/internal/model"
)

var estimator = model.Principal{UserID: uuid.New(), Role: model.UserRoleEstimator}

func TestImportRows(t *testing.T) {
	f := newFixture()
	ws := f.storedWorksheet()
	ws.Columns = append(ws.Columns, model.Column{
		Key:            "unit_cost_catalogue",
		DataType:       model.DataTypeCurrency,
		CatalogueField: "unit_price",
		AutoPopulate:   true,
	})
	ws.Columns[1].CatalogueField = "unit_price"
	ws.Columns[1].AutoPopulate = true

	itemID := uuid.New()
	f.store.items[itemID] = catalogue.Item{ID: itemID, ItemCode: "PL-10", UnitPrice: decimal.NewFromInt(5)}
	missing := uuid.New()

	imports := NewImportService(f.store, f.svc, zerolog.Nop())
	result, err := imports.ImportRows(context.Background(), ImportRowsInput{
		WorksheetID: f.worksheet,
		Principal:   estimator,
		Rows: []ImportRow{
			{Data: newRow(0, "qty", 4).Data, CatalogueItemID: &itemID, MatchStatus: "Matched"},
			{Data: newRow(0, "qty", 2, "unit_cost", 3).Data, CatalogueItemID: &missing},
			{RowNumber: 10, IsGroupHeader: true, Data: model.NewRowData()},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Inserted)
	assert.Equal(t, 2, result.Populated)
	require.NotNil(t, result.Revision)
	require.NotNil(t, result.Worksheet)
	assert.Equal(t, 3, result.Worksheet.RowCount)

	stored := f.storedWorksheet()
	require.Len(t, stored.Rows, 4)
	assert.Equal(t, 2, stored.Rows[1].RowNumber)
	assert.Equal(t, 3, stored.Rows[2].RowNumber)
	assert.Equal(t, 10, stored.Rows[3].RowNumber)
	require.NotNil(t, stored.Rows[1].Catalogue)
	assert.Equal(t, itemID, stored.Rows[1].Catalogue.ItemID)

	assertDecimal(t, "20", cell(t, stored.Rows[1], "total_cost"))
	assertDecimal(t, "6", cell(t, stored.Rows[2], "total_cost"))
	assertDecimal(t, "276", stored.Totals.TotalCost)
	assertDecimal(t, "333.96", f.store.revisions[f.revision].Totals.TotalAmount)
}

func TestImportRowsRejectsBadInput(t *testing.T) {
	f := newFixture()
	imports := NewImportService(f.store, f.svc, zerolog.Nop())
	ctx := context.Background()
	rows := []ImportRow{{Data: newRow(0, "qty", 1).Data}}

	_, err := imports.ImportRows(ctx, ImportRowsInput{WorksheetID: f.worksheet, Rows: rows, Principal: model.Principal{Role: model.UserRoleViewer}})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = imports.ImportRows(ctx, ImportRowsInput{Rows: rows, Principal: estimator})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = imports.ImportRows(ctx, ImportRowsInput{WorksheetID: f.worksheet, Principal: estimator})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = imports.ImportRows(ctx, ImportRowsInput{WorksheetID: uuid.New(), Rows: rows, Principal: estimator})
	assert.ErrorIs(t, err, ErrNotFound)
}
