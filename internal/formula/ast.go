package formula

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fabos/estimation-service/internal/model"
)

var one = decimal.NewFromInt(1)

// Scope is what a formula is evaluated against: one row's values, the full
// row set of its worksheet, the column registry and the sibling worksheets of
// the same package.
type Scope struct {
	Row     model.RowData
	Rows    []model.Row
	Columns ColumnSet
	Sheets  []model.Worksheet
}

// ColumnSet indexes a column registry by lower-cased key.
type ColumnSet map[string]model.Column

func NewColumnSet(columns []model.Column) ColumnSet {
	set := make(ColumnSet, len(columns))
	for _, col := range columns {
		key := strings.ToLower(strings.TrimSpace(col.Key))
		if key == "" {
			continue
		}
		if _, exists := set[key]; !exists {
			set[key] = col
		}
	}
	return set
}

func (s ColumnSet) Has(key string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

type node interface {
	eval(s *Scope) (decimal.Decimal, error)
}

type numberNode struct {
	value decimal.Decimal
}

func (n *numberNode) eval(*Scope) (decimal.Decimal, error) {
	return n.value, nil
}

type columnNode struct {
	key string
}

func (n *columnNode) eval(s *Scope) (decimal.Decimal, error) {
	if !s.Columns.Has(n.key) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownColumn, n.key)
	}
	value, ok := s.Row.Get(n.key)
	if !ok {
		return decimal.Zero, nil
	}
	d, ok := value.Decimal()
	if !ok {
		return decimal.Zero, nil
	}
	return d, nil
}

type negateNode struct {
	operand node
}

func (n *negateNode) eval(s *Scope) (decimal.Decimal, error) {
	v, err := n.operand.eval(s)
	if err != nil {
		return decimal.Zero, err
	}
	return v.Neg(), nil
}

type binaryNode struct {
	op          tokenType
	left, right node
}

func (n *binaryNode) eval(s *Scope) (decimal.Decimal, error) {
	l, err := n.left.eval(s)
	if err != nil {
		return decimal.Zero, err
	}
	r, err := n.right.eval(s)
	if err != nil {
		return decimal.Zero, err
	}
	switch n.op {
	case tokPlus:
		return l.Add(r), nil
	case tokMinus:
		return l.Sub(r), nil
	case tokStar:
		return l.Mul(r), nil
	case tokSlash:
		if r.IsZero() {
			return decimal.Zero, ErrDivisionByZero
		}
		return l.Div(r), nil
	}
	return decimal.Zero, fmt.Errorf("%w: unsupported operator %s", ErrSyntax, n.op)
}

type compareNode struct {
	op          string
	left, right node
}

func (n *compareNode) eval(s *Scope) (decimal.Decimal, error) {
	l, err := n.left.eval(s)
	if err != nil {
		return decimal.Zero, err
	}
	r, err := n.right.eval(s)
	if err != nil {
		return decimal.Zero, err
	}
	cmp := l.Cmp(r)
	var result bool
	switch n.op {
	case ">":
		result = cmp > 0
	case "<":
		result = cmp < 0
	case ">=":
		result = cmp >= 0
	case "<=":
		result = cmp <= 0
	case "=", "==":
		result = cmp == 0
	case "!=", "<>":
		result = cmp != 0
	default:
		return decimal.Zero, fmt.Errorf("%w: unsupported comparison %q", ErrSyntax, n.op)
	}
	if result {
		return one, nil
	}
	return decimal.Zero, nil
}

// ifNode evaluates only the branch its condition selects, so the other
// branch may divide by zero or name a missing value without failing.
type ifNode struct {
	cond, then, otherwise node
}

func (n *ifNode) eval(s *Scope) (decimal.Decimal, error) {
	c, err := n.cond.eval(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !c.IsZero() {
		return n.then.eval(s)
	}
	return n.otherwise.eval(s)
}

type aggregateNode struct {
	fn  AggregateFunc
	key string
}

func (n *aggregateNode) eval(s *Scope) (decimal.Decimal, error) {
	if !s.Columns.Has(n.key) {
		return decimal.Zero, nil
	}
	return Aggregate(n.fn, n.key, s.Rows), nil
}

type sheetProperty string

const (
	propTotalCost         sheetProperty = "TOTALCOST"
	propTotalMaterialCost sheetProperty = "TOTALMATERIALCOST"
	propTotalLaborCost    sheetProperty = "TOTALLABORCOST"
	propTotalLaborHours   sheetProperty = "TOTALLABORHOURS"
)

func parseSheetProperty(name string) (sheetProperty, bool) {
	switch sheetProperty(strings.ToUpper(name)) {
	case propTotalCost:
		return propTotalCost, true
	case propTotalMaterialCost:
		return propTotalMaterialCost, true
	case propTotalLaborCost:
		return propTotalLaborCost, true
	case propTotalLaborHours:
		return propTotalLaborHours, true
	}
	return "", false
}

// sheetNode reads a total or an aggregate from a sibling worksheet.
type sheetNode struct {
	sheet string
	prop  sheetProperty
	fn    AggregateFunc
	key   string
}

func (n *sheetNode) eval(s *Scope) (decimal.Decimal, error) {
	ws, ok := findSheet(s.Sheets, n.sheet)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownWorksheet, n.sheet)
	}
	if n.fn != "" {
		return Aggregate(n.fn, n.key, ws.Rows), nil
	}
	switch n.prop {
	case propTotalCost:
		return ws.Totals.TotalCost, nil
	case propTotalMaterialCost:
		return ws.Totals.MaterialCost, nil
	case propTotalLaborCost:
		return ws.Totals.LaborCost, nil
	case propTotalLaborHours:
		return ws.Totals.LaborHours, nil
	}
	return decimal.Zero, nil
}

func findSheet(sheets []model.Worksheet, name string) (model.Worksheet, bool) {
	name = strings.TrimSpace(name)
	for _, ws := range sheets {
		if ws.IsDeleted {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(ws.Name), name) {
			return ws, true
		}
	}
	return model.Worksheet{}, false
}
