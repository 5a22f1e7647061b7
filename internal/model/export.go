package model

// ExportSheet is one worksheet tab of a revision export, carrying the name of
// the package it belongs to.
type ExportSheet struct {
	PackageName string
	Worksheet   Worksheet
}

type RevisionExport struct {
	EstimationNumber string
	ProjectName      string
	Summary          RevisionSummary
	Sheets           []ExportSheet
}
