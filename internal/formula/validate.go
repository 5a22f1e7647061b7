package formula

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fabos/estimation-service/internal/model"
)

type ValidateInput struct {
	Formula string
	// TargetKey is the column the formula will be saved on. Optional; when
	// set, cycles the new formula would introduce are reported too.
	TargetKey string
	Columns   []model.Column
}

type ValidationResult struct {
	IsValid              bool
	Error                string
	Dependencies         []string
	WorksheetReferences  []string
	HasCircularReference bool
}

// Validate checks a candidate formula before it is saved on a column. It never
// fails with an error; problems come back in the result.
func Validate(in ValidateInput) ValidationResult {
	if strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(in.Formula), "=")) == "" {
		return ValidationResult{Error: "Formula cannot be empty"}
	}

	result := ValidationResult{
		IsValid:             true,
		Dependencies:        Dependencies(in.Formula),
		WorksheetReferences: WorksheetReferences(in.Formula),
	}
	fail := func(msg string) ValidationResult {
		result.IsValid = false
		result.Error = msg
		return result
	}

	known := NewColumnSet(in.Columns)
	for _, dep := range result.Dependencies {
		if !known.Has(dep) {
			return fail(fmt.Sprintf("Unknown column reference: '%s'", dep))
		}
	}

	for _, col := range in.Columns {
		if !col.IsComputed() || (in.TargetKey != "" && col.HasKey(in.TargetKey)) {
			continue
		}
		for _, dep := range Dependencies(col.Formula) {
			if col.HasKey(dep) {
				result.HasCircularReference = true
				return fail(fmt.Sprintf("Circular reference detected in column '%s'", col.Key))
			}
		}
	}

	if target := strings.TrimSpace(in.TargetKey); target != "" {
		if err := checkCandidateCycle(target, in.Formula, in.Columns); err != nil {
			result.HasCircularReference = true
			return fail(fmt.Sprintf("Circular reference detected: %s", strings.TrimPrefix(err.Error(), ErrCircularReference.Error()+": ")))
		}
	}

	if _, err := Compile(in.Formula); err != nil {
		return fail(fmt.Sprintf("Invalid formula syntax: %s", err.Error()))
	}
	return result
}

// checkCandidateCycle installs the candidate formula on target and runs the
// resolver over the resulting registry.
func checkCandidateCycle(target, formula string, columns []model.Column) error {
	candidate := make([]model.Column, 0, len(columns)+1)
	replaced := false
	for _, col := range columns {
		if col.HasKey(target) {
			col.Formula = formula
			replaced = true
		}
		candidate = append(candidate, col)
	}
	if !replaced {
		candidate = append(candidate, model.Column{Key: target, DataType: model.DataTypeComputed, Formula: formula})
	}
	_, err := Order(candidate)
	if errors.Is(err, ErrCircularReference) {
		return err
	}
	return nil
}
