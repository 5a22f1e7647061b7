package formula

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabos/estimation-service/internal/model"
)

func dataRow(pairs ...interface{}) model.Row {
	data := model.NewRowData()
	for i := 0; i+1 < len(pairs); i += 2 {
		key := pairs[i].(string)
		switch v := pairs[i+1].(type) {
		case nil:
			data.Set(key, model.Null())
		case int:
			data.Set(key, model.NumberFromInt(int64(v)))
		case string:
			data.Set(key, model.Text(v))
		case bool:
			data.Set(key, model.Bool(v))
		case decimal.Decimal:
			data.Set(key, model.Number(v))
		}
	}
	return model.Row{ID: uuid.New(), Data: data}
}

func columns(keys ...string) []model.Column {
	cols := make([]model.Column, 0, len(keys))
	for i, key := range keys {
		cols = append(cols, model.Column{Key: key, DataType: model.DataTypeNumber, SortOrder: i})
	}
	return cols
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	expected := decimal.RequireFromString(want)
	assert.True(t, expected.Equal(got), "got %s, want %s", got.String(), want)
}

func TestEvaluate(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	cols := columns("qty", "unit_cost", "flag", "weight", "note")

	rows := []model.Row{
		dataRow("qty", 10, "unit_cost", 25, "weight", "2.5"),
		dataRow("qty", 4, "unit_cost", 5, "weight", 1),
		dataRow("qty", 6, "note", "galvanised"),
	}
	deleted := dataRow("qty", 1000)
	deleted.IsDeleted = true
	header := dataRow("qty", 500)
	header.IsGroupHeader = true
	all := append(append([]model.Row{}, rows...), deleted, header)

	tests := []struct {
		name    string
		formula string
		row     model.Row
		want    string
		ok      bool
	}{
		{"multiplication", "qty*unit_cost", rows[0], "250", true},
		{"leading equals", "=qty * 2", rows[0], "20", true},
		{"precedence", "1 + 2 * 3", rows[0], "7", true},
		{"parentheses", "(1 + 2) * 3", rows[0], "9", true},
		{"unary minus", "-qty + 3", rows[0], "-7", true},
		{"decimal literal", "qty * 0.5", rows[0], "5", true},
		{"numeric text", "weight * 2", rows[0], "5", true},
		{"absent value is zero", "unit_cost + 1", rows[2], "1", true},
		{"text value is zero", "note + 1", rows[2], "1", true},
		{"case insensitive columns", "QTY * Unit_Cost", rows[0], "250", true},
		{"sum skips deleted and headers", "SUM(qty)", rows[0], "20", true},
		{"share of total", "qty / SUM(qty)", rows[0], "0.5", true},
		{"avg", "AVG(qty)", rows[0], "6.6666666666666667", true},
		{"min", "MIN(qty)", rows[0], "4", true},
		{"max", "MAX(qty)", rows[0], "10", true},
		{"count non-null", "COUNT(note)", rows[0], "1", true},
		{"aggregate of column outside registry", "SUM(missing)", rows[0], "0", true},
		{"comparison true", "qty >= 10", rows[0], "1", true},
		{"comparison false", "qty <> 10", rows[0], "0", true},
		{"if true branch", "IF(qty > 5, qty * unit_cost, 0)", rows[0], "250", true},
		{"if false branch", "IF(qty > 5, qty * unit_cost, 0)", rows[1], "0", true},
		{"if boolean condition", "IF(flag, 1, 2)", rows[0], "2", true},
		{"if equality", "IF(qty == 4, 1, 2)", rows[1], "1", true},
		{"nested if", "IF(qty > 8, IF(unit_cost > 20, 3, 2), 1)", rows[0], "3", true},
		{"untaken branch divides by zero", "IF(qty > 0, qty, qty / 0)", rows[0], "10", true},
		{"true literal", "TRUE + 1", rows[0], "2", true},
		{"division by zero", "qty / 0", rows[0], "", false},
		{"unknown column", "bogus * 2", rows[0], "", false},
		{"dangling operator", "qty *", rows[0], "", false},
		{"unbalanced parenthesis", "(qty + 1", rows[0], "", false},
		{"unsupported function", "ROUND(qty)", rows[0], "", false},
		{"bad character", "qty $ 2", rows[0], "", false},
		{"empty", "   ", rows[0], "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := engine.Evaluate(tt.formula, tt.row, all, cols, nil)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assertDecimal(t, tt.want, got)
			}
		})
	}
}

func TestEvaluateUntakenBranchWithUndefinedColumn(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	row := dataRow("qty", 5)

	got, ok := engine.Evaluate("IF(qty > 10, qty*unit_cost, 0)", row, []model.Row{row}, columns("qty"), nil)

	require.True(t, ok)
	assertDecimal(t, "0", got)
}

func TestEvaluateCrossWorksheet(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	material := model.Worksheet{
		ID:   uuid.New(),
		Name: "Material List",
		Rows: []model.Row{
			dataRow("weight", 12),
			dataRow("weight", 8),
		},
		Totals: model.WorksheetTotals{
			TotalCost:    decimal.NewFromInt(1200),
			MaterialCost: decimal.NewFromInt(1000),
		},
	}
	labour := model.Worksheet{
		ID:     uuid.New(),
		Name:   "Labour",
		Totals: model.WorksheetTotals{LaborHours: decimal.NewFromInt(40), LaborCost: decimal.NewFromInt(3200)},
	}
	removed := model.Worksheet{ID: uuid.New(), Name: "Old", IsDeleted: true}
	stage := model.Worksheet{
		ID:     uuid.New(),
		Name:   "Stage 2",
		Rows:   []model.Row{dataRow("weight", 5), dataRow("weight", 7)},
		Totals: model.WorksheetTotals{TotalCost: decimal.NewFromInt(300)},
	}
	level := model.Worksheet{
		ID:     uuid.New(),
		Name:   "Level 2 Steel",
		Totals: model.WorksheetTotals{TotalCost: decimal.NewFromInt(450)},
	}
	sheets := []model.Worksheet{material, labour, removed, stage, level}
	row := dataRow("qty", 2)
	cols := columns("qty")

	tests := []struct {
		name    string
		formula string
		want    string
		ok      bool
	}{
		{"total cost", "Labour.TotalLaborCost / Labour.TotalLaborHours", "80", true},
		{"name with spaces", "Material List.TotalCost + qty", "1202", true},
		{"case insensitive name", "material list.TotalMaterialCost", "1000", true},
		{"aggregate on sibling", "Material List.SUM(weight) * qty", "40", true},
		{"count on sibling", "Material List.COUNT(weight)", "2", true},
		{"unknown sheet", "Missing.TotalCost", "", false},
		{"deleted sheet", "Old.TotalCost", "", false},
		{"unknown member", "Labour.Budget", "", false},
		{"name ending in a number", "Stage 2.SUM(weight) * qty", "24", true},
		{"number inside a name", "Level 2 Steel.TotalCost - Stage 2.TotalCost", "150", true},
		{"spacing is part of the name", "Material  List.TotalCost", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := engine.Evaluate(tt.formula, row, []model.Row{row}, cols, sheets)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assertDecimal(t, tt.want, got)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		formula string
		err     error
	}{
		{"empty", "", ErrEmptyFormula},
		{"only equals", "=", ErrEmptyFormula},
		{"chained comparison", "qty < 1 < 2", ErrSyntax},
		{"two identifiers", "qty unit_cost", ErrSyntax},
		{"bare keyword", "SUM + 1", ErrSyntax},
		{"if missing branch", "IF(qty > 1, 2)", ErrSyntax},
		{"aggregate of expression", "SUM(qty * 2)", ErrSyntax},
		{"logical function", "AND(1, 1)", ErrSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.formula)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.err), "got %v", err)
		})
	}
}

func TestEngineCachesCompiledFormulas(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	first, err := engine.Compile("qty * 2")
	require.NoError(t, err)
	second, err := engine.Compile("qty * 2")
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestAggregate(t *testing.T) {
	rows := []model.Row{
		dataRow("qty", 3),
		dataRow("qty", "7"),
		dataRow("qty", nil),
		dataRow("qty", "n/a"),
		dataRow("other", 1),
	}

	tests := []struct {
		fn   AggregateFunc
		want string
	}{
		{AggSum, "10"},
		{AggAvg, "5"},
		{AggMin, "3"},
		{AggMax, "7"},
		{AggCount, "3"},
	}
	for _, tt := range tests {
		t.Run(string(tt.fn), func(t *testing.T) {
			assertDecimal(t, tt.want, Aggregate(tt.fn, "QTY", rows))
		})
	}

	assertDecimal(t, "0", Aggregate(AggMax, "qty", nil))
	assertDecimal(t, "0", Aggregate(AggAvg, "qty", nil))
}
