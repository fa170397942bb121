// Package quality implements the quality-gate layer: balance-continuity
// checking, the statement-totals reconciliation, and the needs-review
// reason aggregator that decides whether a parsed file should be trusted
// without human inspection.
package quality

import (
	"fmt"

	"bank-transfer-reconciler/internal/models"
	"bank-transfer-reconciler/internal/templates"
)

// Continuity skip reasons.
const (
	SkipMissingBalance  = "missing-balance"
	SkipSignNotExplicit = "sign-not-explicit"
)

// AssessBalanceContinuity verifies that each row's running balance
// equals the previous balance plus the row's signed amount, within one
// cent. Rows are skipped (not counted in Checked) when either balance is
// absent or, for the auto debit/credit template, when neither side of
// debit/credit was explicitly parsed and the sign was not inferred from
// the balance delta.
//
// PassRate is pass/checked and is defined as 0 when Checked is 0: no
// evidence never reports as 100%.
func AssessBalanceContinuity(txs []*models.NormalizedTransaction, templateID string) models.ContinuityResult {
	result := models.ContinuityResult{TotalRows: len(txs)}
	if len(txs) < 2 {
		return result
	}

	signSensitive := templateID == templates.TemplateAutoDebitCredit
	pass := 0

	for i := 1; i < len(txs); i++ {
		prev, curr := txs[i-1], txs[i]

		if prev.Balance == nil || curr.Balance == nil {
			result.Skipped++
			result.SkippedReasons = append(result.SkippedReasons,
				fmt.Sprintf("%s: row %d", SkipMissingBalance, i))
			continue
		}

		if signSensitive && curr.SignSource == models.SignDefault {
			result.Skipped++
			result.SkippedReasons = append(result.SkippedReasons,
				fmt.Sprintf("%s: row %d", SkipSignNotExplicit, i))
			continue
		}

		result.Checked++
		expected := models.Round2(prev.Balance.Add(curr.Amount))
		if models.WithinMoneyTolerance(expected, *curr.Balance) {
			pass++
		}
	}

	if result.Checked > 0 {
		result.PassRate = float64(pass) / float64(result.Checked)
	}
	return result
}
