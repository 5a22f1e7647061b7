package model

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DataType string

const (
	DataTypeNumber   DataType = "number"
	DataTypeCurrency DataType = "currency"
	DataTypeDate     DataType = "date"
	DataTypeText     DataType = "text"
	DataTypeComputed DataType = "computed"
	DataTypeCheckbox DataType = "checkbox"
)

// Well-known column keys read when rolling a worksheet up into totals.
const (
	ColumnMaterialCost = "material_cost"
	ColumnLaborCost    = "labor_cost"
	ColumnLaborHours   = "labor_hours"
	ColumnTotalCost    = "total_cost"
)

func ParseDataType(raw string) DataType {
	switch DataType(strings.ToLower(strings.TrimSpace(raw))) {
	case DataTypeNumber:
		return DataTypeNumber
	case DataTypeCurrency:
		return DataTypeCurrency
	case DataTypeDate:
		return DataTypeDate
	case DataTypeComputed:
		return DataTypeComputed
	case DataTypeCheckbox:
		return DataTypeCheckbox
	default:
		return DataTypeText
	}
}

type Column struct {
	ID             uuid.UUID
	WorksheetID    uuid.UUID
	Key            string
	DisplayName    string
	DataType       DataType
	Formula        string
	IsRequired     bool
	IsReadOnly     bool
	IsHidden       bool
	SortOrder      int
	CatalogueField string
	AutoPopulate   bool
}

// IsComputed reports whether the engine owns this column's values.
func (c Column) IsComputed() bool {
	return strings.TrimSpace(c.Formula) != ""
}

func (c Column) IsNumeric() bool {
	switch c.DataType {
	case DataTypeNumber, DataTypeCurrency, DataTypeComputed:
		return true
	}
	return c.IsComputed()
}

func (c Column) HasKey(key string) bool {
	return strings.EqualFold(strings.TrimSpace(c.Key), strings.TrimSpace(key))
}

type CatalogueLink struct {
	ItemID      uuid.UUID
	MatchStatus string
	Confidence  *decimal.Decimal
}

type Row struct {
	ID              uuid.UUID
	WorksheetID     uuid.UUID
	RowNumber       int
	IsGroupHeader   bool
	IsDeleted       bool
	Data            RowData
	CalculatedTotal *decimal.Decimal
	Catalogue       *CatalogueLink

	// PayloadUnreadable is set when the stored row_data could not be decoded.
	// Such a row calculates as empty and its stored payload is never rewritten.
	PayloadUnreadable bool
}

// Aggregatable reports whether the row takes part in aggregates and totals.
func (r Row) Aggregatable() bool {
	return !r.IsDeleted && !r.IsGroupHeader
}

type WorksheetTotals struct {
	MaterialCost decimal.Decimal
	LaborHours   decimal.Decimal
	LaborCost    decimal.Decimal
	TotalCost    decimal.Decimal
}

type Worksheet struct {
	ID            uuid.UUID
	PackageID     uuid.UUID
	Name          string
	WorksheetType string
	SortOrder     int
	IsDeleted     bool
	Columns       []Column
	Rows          []Row
	Totals        WorksheetTotals
}

func (w Worksheet) Column(key string) (Column, bool) {
	for _, col := range w.Columns {
		if col.HasKey(key) {
			return col, true
		}
	}
	return Column{}, false
}
