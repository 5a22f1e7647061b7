package formula

import "errors"

var (
	ErrEmptyFormula      = errors.New("formula is empty")
	ErrSyntax            = errors.New("syntax error")
	ErrUnknownColumn     = errors.New("unknown column reference")
	ErrUnknownWorksheet  = errors.New("unknown worksheet reference")
	ErrDivisionByZero    = errors.New("division by zero")
	ErrCircularReference = errors.New("circular reference")
)
