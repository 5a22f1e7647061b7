package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/fabos/estimation-service/internal/model"
)

func TestCostBreakdown(t *testing.T) {
	tests := []struct {
		name                                       string
		subtotal, overhead, margin                 string
		overheadAmount, withOverhead, marginAmount string
		total                                      string
	}{
		{"overhead then margin", "1000", "10", "20", "100", "1100", "220", "1320"},
		{"no percentages", "275", "0", "0", "0", "275", "0", "275"},
		{"margin only", "275", "0", "10", "0", "275", "27.5", "302.5"},
		{"fractional percentages", "199.99", "12.5", "7.25", "24.99875", "224.98875", "16.3116843750", "241.3004343750"},
		{"zero subtotal", "0", "15", "25", "0", "0", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CostBreakdown(
				decimal.RequireFromString(tt.subtotal),
				decimal.RequireFromString(tt.overhead),
				decimal.RequireFromString(tt.margin),
			)
			assertDecimal(t, tt.subtotal, got.Subtotal)
			assertDecimal(t, tt.overhead, got.OverheadPercentage)
			assertDecimal(t, tt.overheadAmount, got.OverheadAmount)
			assertDecimal(t, tt.withOverhead, got.SubtotalWithOverhead)
			assertDecimal(t, tt.margin, got.MarginPercentage)
			assertDecimal(t, tt.marginAmount, got.MarginAmount)
			assertDecimal(t, tt.total, got.TotalAmount)
		})
	}
}

func TestSelectCurrentRevision(t *testing.T) {
	rev := func(letter string, status model.RevisionStatus) model.Revision {
		return model.Revision{Letter: letter, Status: status}
	}
	deleted := rev("Z", model.RevisionStatusApproved)
	deleted.IsDeleted = true

	tests := []struct {
		name      string
		revisions []model.Revision
		approved  []string
		want      string
		found     bool
	}{
		{"empty", nil, []string{"Approved"}, "", false},
		{"highest letter wins among drafts", []model.Revision{rev("A", "Draft"), rev("C", "Draft"), rev("B", "Submitted")}, []string{"Approved"}, "C", true},
		{"approved beats later draft", []model.Revision{rev("A", "Approved"), rev("B", "Draft")}, []string{"Approved"}, "A", true},
		{"highest approved letter", []model.Revision{rev("A", "Approved"), rev("B", "Approved"), rev("C", "Draft")}, []string{"approved"}, "B", true},
		{"double letters follow single", []model.Revision{rev("Z", "Draft"), rev("AA", "Draft"), rev("Y", "Draft")}, []string{"Approved"}, "AA", true},
		{"deleted revisions ignored", []model.Revision{rev("A", "Draft"), deleted}, []string{"Approved"}, "A", true},
		{"configured statuses", []model.Revision{rev("A", "Accepted"), rev("B", "Approved")}, []string{"Accepted"}, "A", true},
		{"only deleted", []model.Revision{deleted}, []string{"Approved"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := SelectCurrentRevision(tt.revisions, tt.approved)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got.Letter)
		})
	}
}
