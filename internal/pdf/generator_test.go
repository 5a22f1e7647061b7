package pdf

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabos/estimation-service/internal/model"
)

func TestGenerate(t *testing.T) {
	export := model.RevisionExport{
		EstimationNumber: "EST-0042",
		ProjectName:      "Café Extension",
		Summary: model.RevisionSummary{
			Letter: "B",
			Status: model.RevisionStatusApproved,
			Packages: []model.PackageSummary{{
				PackageName: "Steelwork",
				Totals:      model.PackageTotals{PackageTotal: decimal.RequireFromString("275")},
			}},
			Breakdown: model.CostBreakdown{
				Subtotal:    decimal.RequireFromString("275"),
				TotalAmount: decimal.RequireFromString("302.5"),
			},
		},
	}

	content, err := NewGenerator(2).Generate(export)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("%PDF")))
}

func TestGenerateWithoutPackages(t *testing.T) {
	content, err := NewGenerator(0).Generate(model.RevisionExport{EstimationNumber: "EST-1"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("%PDF")))
}

func TestAmount(t *testing.T) {
	g := NewGenerator(2)
	assert.Equal(t, "302.50", g.amount(decimal.RequireFromString("302.5")))
	assert.Equal(t, "0.33", g.amount(decimal.RequireFromString("0.333")))
	assert.Equal(t, "303", NewGenerator(-1).amount(decimal.RequireFromString("302.5")))
}
