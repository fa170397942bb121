package matcher

import (
	"fmt"

	"bank-transfer-reconciler/internal/models"
)

// BoundaryOutcome is the KPI classification of one pairing.
type BoundaryOutcome struct {
	Decision  models.BoundaryDecision `json:"decision"`
	KPIEffect models.KPIEffect        `json:"kpiEffect"`
	SameFile  bool                    `json:"sameFile"`
	Why       string                  `json:"why"`
}

// DecideBoundary classifies a matched or uncertain row against the
// boundary account set. Only a fully confirmed, boundary-internal,
// cross-document pairing is excluded from cashflow KPIs.
func DecideBoundary(row models.TransferMatchRow, boundaryIDs []string) BoundaryOutcome {
	boundary := make(map[string]bool, len(boundaryIDs))
	for _, id := range boundaryIDs {
		boundary[id] = true
	}

	sameFile := bothHashesKnown(row) && row.Debit.Source.FileHash == row.Credit.Source.FileHash

	if row.State == models.MatchStateUncertain {
		return BoundaryOutcome{
			Decision:  models.DecisionUncertainNoOffset,
			KPIEffect: models.KPIIncluded,
			SameFile:  sameFile,
			Why:       "pairing is uncertain, so the money movement stays in cashflow totals",
		}
	}

	oppositeSigns := row.Debit.Amount.IsNegative() && row.Credit.Amount.IsPositive()
	equalCents := row.Debit.Amount.Abs().Round(2).Equal(row.Credit.Amount.Abs().Round(2))
	bothInside := boundary[row.Debit.AccountID] && boundary[row.Credit.AccountID]

	if oppositeSigns && equalCents && bothInside && !sameFile {
		return BoundaryOutcome{
			Decision:  models.DecisionInternalOffset,
			KPIEffect: models.KPIExcluded,
			SameFile:  false,
			Why:       fmt.Sprintf("confirmed transfer of %d cents between two boundary accounts across separate statements", row.AmountCents),
		}
	}

	why := "matched pair does not fully offset inside the boundary set"
	switch {
	case !oppositeSigns:
		why = "matched pair does not have opposite signs"
	case !equalCents:
		why = "matched pair amounts differ in absolute cents"
	case !bothInside:
		why = "at least one account is outside the boundary set"
	case sameFile:
		why = "both sides came from the same source document"
	}
	return BoundaryOutcome{
		Decision:  models.DecisionBoundaryFlow,
		KPIEffect: models.KPIIncluded,
		SameFile:  sameFile,
		Why:       why,
	}
}

func bothHashesKnown(row models.TransferMatchRow) bool {
	return row.Debit.Source.FileHash != "" && row.Credit.Source.FileHash != ""
}
