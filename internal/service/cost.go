package service

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fabos/estimation-service/internal/model"
)

var hundred = decimal.NewFromInt(100)

// CostBreakdown applies overhead to subtotal and then margin on top of the
// overhead-inclusive amount. Amounts are exact; rounding is left to display.
func CostBreakdown(subtotal, overheadPercentage, marginPercentage decimal.Decimal) model.CostBreakdown {
	overhead := percentOf(subtotal, overheadPercentage)
	withOverhead := subtotal.Add(overhead)
	margin := percentOf(withOverhead, marginPercentage)

	return model.CostBreakdown{
		Subtotal:             subtotal,
		OverheadPercentage:   overheadPercentage,
		OverheadAmount:       overhead,
		SubtotalWithOverhead: withOverhead,
		MarginPercentage:     marginPercentage,
		MarginAmount:         margin,
		TotalAmount:          withOverhead.Add(margin),
	}
}

func percentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}

// SelectCurrentRevision picks the revision whose totals represent the
// estimation: non-deleted revisions only, any approved status ahead of the
// rest, then the highest letter. Letters compare by length first so that
// "AA" follows "Z".
func SelectCurrentRevision(revisions []model.Revision, approved []string) (model.Revision, bool) {
	var (
		best  model.Revision
		found bool
	)
	for _, rev := range revisions {
		if rev.IsDeleted {
			continue
		}
		if !found || revisionAhead(rev, best, approved) {
			best = rev
			found = true
		}
	}
	return best, found
}

func revisionAhead(a, b model.Revision, approved []string) bool {
	aApproved := isApproved(a.Status, approved)
	bApproved := isApproved(b.Status, approved)
	if aApproved != bApproved {
		return aApproved
	}
	return compareLetters(a.Letter, b.Letter) > 0
}

func isApproved(status model.RevisionStatus, approved []string) bool {
	for _, s := range approved {
		if strings.EqualFold(strings.TrimSpace(s), string(status)) {
			return true
		}
	}
	return false
}

func compareLetters(a, b string) int {
	a = strings.ToUpper(strings.TrimSpace(a))
	b = strings.ToUpper(strings.TrimSpace(b))
	switch {
	case len(a) != len(b):
		if len(a) > len(b) {
			return 1
		}
		return -1
	default:
		return strings.Compare(a, b)
	}
}
