package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/fabos/estimation-service/internal/formula"
)

type ValidateFormulaInput struct {
	WorksheetID uuid.UUID
	Formula     string
	TargetKey   string
}

// ValidateFormula checks a candidate column formula against the worksheet's
// registry and, for cross-worksheet references, against the names of the
// other live worksheets in its package.
func (s *CalculationService) ValidateFormula(ctx context.Context, input ValidateFormulaInput) (formula.ValidationResult, error) {
	ws, err := s.store.GetWorksheet(ctx, input.WorksheetID)
	if err != nil {
		if isNotFound(err) {
			return formula.ValidationResult{}, ErrNotFound
		}
		return formula.ValidationResult{}, err
	}
	if ws.IsDeleted {
		return formula.ValidationResult{}, ErrNotFound
	}

	result := formula.Validate(formula.ValidateInput{
		Formula:   input.Formula,
		TargetKey: input.TargetKey,
		Columns:   ws.Columns,
	})
	if !result.IsValid || len(result.WorksheetReferences) == 0 {
		return result, nil
	}

	siblings, err := s.store.ListWorksheetTotals(ctx, ws.PackageID)
	if err != nil && !isNotFound(err) {
		return formula.ValidationResult{}, err
	}
	for _, ref := range result.WorksheetReferences {
		known := false
		for _, other := range siblings {
			if other.ID != ws.ID && strings.EqualFold(strings.TrimSpace(other.Name), ref) {
				known = true
				break
			}
		}
		if !known {
			result.IsValid = false
			result.Error = fmt.Sprintf("Unknown worksheet reference: '%s'", ref)
			break
		}
	}
	return result, nil
}
