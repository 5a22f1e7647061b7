package repository

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/fabos/estimation-service/internal/model"
)

func TestRowRecordToModel(t *testing.T) {
	itemID := uuid.New()
	status := "Matched"

	tests := []struct {
		name   string
		record rowRecord
		check  func(t *testing.T, row model.Row)
	}{
		{
			name:   "corrupt payload loads as empty row",
			record: rowRecord{ID: uuid.New(), RowData: datatypes.JSON(`{"qty": 10`)},
			check: func(t *testing.T, row model.Row) {
				assert.Zero(t, row.Data.Len())
				assert.Nil(t, row.CalculatedTotal)
				assert.True(t, row.PayloadUnreadable)
			},
		},
		{
			name:   "nested values load as raw text",
			record: rowRecord{ID: uuid.New(), RowData: datatypes.JSON(`{"qty":10,"unit_cost":25,"dims":{"l":1}}`)},
			check: func(t *testing.T, row model.Row) {
				assert.False(t, row.PayloadUnreadable)
				assert.Equal(t, []string{"qty", "unit_cost", "dims"}, row.Data.Keys())
				dims, ok := row.Data.Get("dims")
				require.True(t, ok)
				assert.Equal(t, model.KindText, dims.Kind())
				assert.Equal(t, `{"l":1}`, dims.String())
			},
		},
		{
			name:   "null payload",
			record: rowRecord{ID: uuid.New(), RowData: datatypes.JSON(`null`)},
			check: func(t *testing.T, row model.Row) {
				assert.Zero(t, row.Data.Len())
				assert.False(t, row.PayloadUnreadable)
			},
		},
		{
			name: "values, total and catalogue link",
			record: rowRecord{
				ID:              uuid.New(),
				RowNumber:       4,
				RowData:         datatypes.JSON(`{"Qty": 10, "desc": "plate", "ok": true}`),
				CalculatedTotal: decimal.NewNullDecimal(decimal.RequireFromString("12.50")),
				CatalogueItemID: &itemID,
				MatchStatus:     &status,
				MatchConfidence: decimal.NewNullDecimal(decimal.RequireFromString("0.9")),
			},
			check: func(t *testing.T, row model.Row) {
				assert.Equal(t, []string{"Qty", "desc", "ok"}, row.Data.Keys())
				qty, ok := row.Data.Get("qty")
				require.True(t, ok)
				assert.Equal(t, "10", qty.String())
				require.NotNil(t, row.CalculatedTotal)
				assert.True(t, row.CalculatedTotal.Equal(decimal.RequireFromString("12.5")))
				require.NotNil(t, row.Catalogue)
				assert.Equal(t, itemID, row.Catalogue.ItemID)
				assert.Equal(t, "Matched", row.Catalogue.MatchStatus)
				require.NotNil(t, row.Catalogue.Confidence)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, tt.record.toModel())
		})
	}
}

func TestNewRowRecord(t *testing.T) {
	worksheetID := uuid.New()
	data := model.NewRowData()
	data.Set("qty", model.NumberFromInt(3))
	data.Set("note", model.Text("galv"))
	total := decimal.RequireFromString("7.25")

	record, err := newRowRecord(worksheetID, model.Row{RowNumber: 2, Data: data, CalculatedTotal: &total})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, record.ID)
	assert.Equal(t, worksheetID, record.WorksheetID)
	assert.JSONEq(t, `{"qty":3,"note":"galv"}`, string(record.RowData))
	assert.True(t, record.CalculatedTotal.Valid)
	assert.Nil(t, record.CatalogueItemID)
	assert.Nil(t, record.MatchStatus)
	assert.False(t, record.MatchConfidence.Valid)
}

func TestColumnRecordToModel(t *testing.T) {
	formula := "qty * unit_cost"
	col := columnRecord{ColumnKey: "material_cost", DataType: "Computed", Formula: &formula}.toModel()

	assert.Equal(t, model.DataTypeComputed, col.DataType)
	assert.True(t, col.IsComputed())
	assert.Empty(t, col.CatalogueField)

	plain := columnRecord{ColumnKey: "notes", DataType: "memo"}.toModel()
	assert.Equal(t, model.DataTypeText, plain.DataType)
	assert.False(t, plain.IsComputed())
}

func TestCalculationUpdate(t *testing.T) {
	worksheetID := uuid.New()

	tests := []struct {
		name     string
		payload  string
		wantData string
	}{
		{
			name:     "readable row is rewritten with computed cells",
			payload:  `{"qty":10,"unit_cost":25,"dims":{"l":1}}`,
			wantData: `{"qty":10,"unit_cost":25,"dims":{"l":1},"total_cost":250}`,
		},
		{
			name:    "unreadable row keeps stored data",
			payload: `{"qty":10,"unit_cost"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := rowRecord{ID: uuid.New(), WorksheetID: worksheetID, RowData: datatypes.JSON(tt.payload)}.toModel()
			row.Data.Set("total_cost", model.NumberFromInt(250))
			total := decimal.NewFromInt(250)
			row.CalculatedTotal = &total

			update, err := calculationUpdate(worksheetID, row)
			require.NoError(t, err)
			assert.True(t, update.CalculatedTotal.Valid)

			if tt.wantData == "" {
				assert.Nil(t, update.RowData)
				return
			}
			assert.JSONEq(t, tt.wantData, string(update.RowData))
		})
	}
}
