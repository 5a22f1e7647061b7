package formula

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fabos/estimation-service/internal/model"
)

type AggregateFunc string

const (
	AggSum   AggregateFunc = "SUM"
	AggAvg   AggregateFunc = "AVG"
	AggMin   AggregateFunc = "MIN"
	AggMax   AggregateFunc = "MAX"
	AggCount AggregateFunc = "COUNT"
)

func parseAggregate(name string) (AggregateFunc, bool) {
	switch AggregateFunc(strings.ToUpper(name)) {
	case AggSum:
		return AggSum, true
	case AggAvg:
		return AggAvg, true
	case AggMin:
		return AggMin, true
	case AggMax:
		return AggMax, true
	case AggCount:
		return AggCount, true
	}
	return "", false
}

// Aggregate applies fn to one column across every non-deleted, non-header row.
// SUM/AVG/MIN/MAX only see numeric values and return 0 when there are none;
// COUNT counts rows holding any non-null value.
func Aggregate(fn AggregateFunc, key string, rows []model.Row) decimal.Decimal {
	var (
		sum     = decimal.Zero
		lo, hi  decimal.Decimal
		numeric int64
		present int64
	)
	for _, row := range rows {
		if !row.Aggregatable() {
			continue
		}
		value, ok := row.Data.Get(key)
		if !ok || value.IsNull() {
			continue
		}
		present++
		d, ok := value.Decimal()
		if !ok {
			continue
		}
		if numeric == 0 || d.LessThan(lo) {
			lo = d
		}
		if numeric == 0 || d.GreaterThan(hi) {
			hi = d
		}
		sum = sum.Add(d)
		numeric++
	}

	switch fn {
	case AggCount:
		return decimal.NewFromInt(present)
	case AggSum:
		return sum
	}
	if numeric == 0 {
		return decimal.Zero
	}
	switch fn {
	case AggAvg:
		return sum.Div(decimal.NewFromInt(numeric))
	case AggMin:
		return lo
	case AggMax:
		return hi
	}
	return decimal.Zero
}
