package catalogue

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fabos/estimation-service/internal/model"
)

type Item struct {
	ID                uuid.UUID
	ItemCode          string
	Description       string
	Category          string
	Material          string
	Profile           string
	Unit              string
	UnitPrice         decimal.Decimal
	WeightPerUnit     decimal.Decimal
	LaborHoursPerUnit decimal.Decimal
}

type accessor func(Item) model.Value

// fields maps a column's catalogue_field to the item property it copies.
var fields = map[string]accessor{
	"item_code":            func(i Item) model.Value { return model.Text(i.ItemCode) },
	"description":          func(i Item) model.Value { return model.Text(i.Description) },
	"category":             func(i Item) model.Value { return model.Text(i.Category) },
	"material":             func(i Item) model.Value { return model.Text(i.Material) },
	"profile":              func(i Item) model.Value { return model.Text(i.Profile) },
	"unit":                 func(i Item) model.Value { return model.Text(i.Unit) },
	"unit_price":           func(i Item) model.Value { return model.Number(i.UnitPrice) },
	"weight_per_unit":      func(i Item) model.Value { return model.Number(i.WeightPerUnit) },
	"labor_hours_per_unit": func(i Item) model.Value { return model.Number(i.LaborHoursPerUnit) },
}

// Known reports whether field names a catalogue property that can be copied
// into a row.
func Known(field string) bool {
	_, ok := fields[normalize(field)]
	return ok
}

// Populate copies catalogue values into every auto-populated, non-computed
// column of row and returns how many cells were written. Unknown
// catalogue_field names are ignored.
func Populate(row *model.Row, columns []model.Column, item Item) int {
	written := 0
	for _, col := range columns {
		if !col.AutoPopulate || col.IsComputed() {
			continue
		}
		get, ok := fields[normalize(col.CatalogueField)]
		if !ok {
			continue
		}
		row.Data.Set(col.Key, get(item))
		written++
	}
	return written
}

func normalize(field string) string {
	return strings.ToLower(strings.TrimSpace(field))
}
