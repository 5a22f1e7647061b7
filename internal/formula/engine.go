package formula

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fabos/estimation-service/internal/model"
)

// Engine evaluates row formulas. Compiled formulas are cached by text, so a
// worksheet with thousands of rows parses each column formula once.
type Engine struct {
	log zerolog.Logger

	mu    sync.RWMutex
	cache map[string]*Formula
}

func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		log:   log,
		cache: make(map[string]*Formula),
	}
}

// Compile returns the cached compiled form of text.
func (e *Engine) Compile(text string) (*Formula, error) {
	e.mu.RLock()
	f, ok := e.cache[text]
	e.mu.RUnlock()
	if ok {
		return f, nil
	}

	f, err := Compile(text)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.cache[text] = f
	e.mu.Unlock()
	return f, nil
}

// Evaluate computes formula for one row. It never fails: any parse,
// reference or arithmetic problem is logged and reported as ok == false,
// leaving the caller to keep the cell's previous value.
func (e *Engine) Evaluate(
	text string,
	row model.Row,
	rows []model.Row,
	columns []model.Column,
	sheets []model.Worksheet,
) (decimal.Decimal, bool) {
	f, err := e.Compile(text)
	if err != nil {
		e.log.Warn().Err(err).Str("formula", text).Str("row_id", row.ID.String()).Msg("formula does not compile")
		return decimal.Zero, false
	}
	return e.EvaluateCompiled(f, row, &Scope{
		Row:     row.Data,
		Rows:    rows,
		Columns: NewColumnSet(columns),
		Sheets:  sheets,
	})
}

// EvaluateCompiled is Evaluate for callers that already hold a scope shared
// across rows; only scope.Row is taken from row.
func (e *Engine) EvaluateCompiled(f *Formula, row model.Row, scope *Scope) (decimal.Decimal, bool) {
	s := *scope
	s.Row = row.Data
	value, err := f.Eval(&s)
	if err != nil {
		e.log.Debug().Err(err).Str("formula", f.String()).Str("row_id", row.ID.String()).Msg("formula evaluation failed")
		return decimal.Zero, false
	}
	return value, true
}
