package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ColumnTotal is one entry of a worksheet's per-column SUM report, kept in
// registry order.
type ColumnTotal struct {
	Key         string
	DisplayName string
	Total       decimal.Decimal
}

type WorksheetSummary struct {
	WorksheetID   uuid.UUID
	WorksheetName string
	WorksheetType string
	Totals        WorksheetTotals
	RowCount      int
	ColumnTotals  []ColumnTotal
}

type PackageSummary struct {
	PackageID          uuid.UUID
	PackageName        string
	OverheadPercentage decimal.Decimal
	Totals             PackageTotals
	Worksheets         []WorksheetSummary
}

type RevisionSummary struct {
	RevisionID   uuid.UUID
	EstimationID uuid.UUID
	Letter       string
	Status       RevisionStatus
	Totals       RevisionTotals
	Breakdown    CostBreakdown
	Packages     []PackageSummary
}
