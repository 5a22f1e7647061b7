package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RevisionStatus string

const (
	RevisionStatusDraft      RevisionStatus = "Draft"
	RevisionStatusSubmitted  RevisionStatus = "Submitted"
	RevisionStatusApproved   RevisionStatus = "Approved"
	RevisionStatusRejected   RevisionStatus = "Rejected"
	RevisionStatusSuperseded RevisionStatus = "Superseded"
)

type PackageTotals struct {
	MaterialCost decimal.Decimal
	LaborHours   decimal.Decimal
	LaborCost    decimal.Decimal
	OverheadCost decimal.Decimal
	PackageTotal decimal.Decimal
}

type Package struct {
	ID                 uuid.UUID
	RevisionID         uuid.UUID
	Name               string
	SortOrder          int
	IsDeleted          bool
	OverheadPercentage decimal.Decimal
	WorksheetIDs       []uuid.UUID
	Totals             PackageTotals
}

type RevisionTotals struct {
	MaterialCost   decimal.Decimal
	LaborHours     decimal.Decimal
	LaborCost      decimal.Decimal
	Subtotal       decimal.Decimal
	OverheadAmount decimal.Decimal
	MarginAmount   decimal.Decimal
	TotalAmount    decimal.Decimal
}

type Revision struct {
	ID                 uuid.UUID
	EstimationID       uuid.UUID
	Letter             string
	Status             RevisionStatus
	IsDeleted          bool
	OverheadPercentage decimal.Decimal
	MarginPercentage   decimal.Decimal
	PackageIDs         []uuid.UUID
	Totals             RevisionTotals
}

type Estimation struct {
	ID                    uuid.UUID
	Number                string
	ProjectName           string
	Revisions             []Revision
	CurrentRevisionLetter string
	CurrentTotal          decimal.Decimal
}

type CostBreakdown struct {
	Subtotal             decimal.Decimal
	OverheadPercentage   decimal.Decimal
	OverheadAmount       decimal.Decimal
	SubtotalWithOverhead decimal.Decimal
	MarginPercentage     decimal.Decimal
	MarginAmount         decimal.Decimal
	TotalAmount          decimal.Decimal
}
