package quality

import (
	"strings"

	"bank-transfer-reconciler/internal/models"
	"bank-transfer-reconciler/internal/templates"
)

// Needs-review reason codes. These are stable strings; human-readable
// text is a presentation concern.
const (
	ReasonTemplateUnknown         = "TEMPLATE_UNKNOWN"
	ReasonHeaderNotFound          = "HEADER_NOT_FOUND"
	ReasonTooFewTransactions      = "TOO_FEW_TRANSACTIONS"
	ReasonLowContinuityPassRate   = "LOW_CONTINUITY_PASS_RATE"
	ReasonDebitCreditBothSet      = "DEBIT_AND_CREDIT_BOTH_SET"
	ReasonAmountTokenNotFound     = "AMOUNT_TOKEN_NOT_FOUND"
	ReasonAmountSignUncertain     = "AMOUNT_SIGN_UNCERTAIN"
	ReasonLowStructuralCoverage   = "LOW_STRUCTURAL_COVERAGE"
	ReasonStatementTotalsMismatch = "STATEMENT_TOTALS_MISMATCH"
)

const (
	fallbackMinTransactions = 5
	structuralCoverageLimit = 0.10
)

// AssessFile aggregates the per-file quality block: the continuity
// result plus the ordered, deduplicated needs-review reasons. Reasons
// are additive and never silently dropped; evaluation order is fixed so
// identical input always yields identical reason ordering.
func AssessFile(tmpl *templates.Template, headerFound bool, txs []*models.NormalizedTransaction, fileWarnings []string, rawText string) models.QualityReport {
	report := models.QualityReport{
		HeaderFound:         headerFound,
		NonBlockingWarnings: fileWarnings,
	}

	templateID := ""
	if tmpl != nil {
		templateID = tmpl.ID
	}
	report.Continuity = AssessBalanceContinuity(txs, templateID)

	add := reasonCollector(&report.NeedsReviewReasons)

	if tmpl == nil {
		add(ReasonTemplateUnknown)
	}
	if !headerFound {
		add(ReasonHeaderNotFound)
	}

	minTx := fallbackMinTransactions
	if tmpl != nil && tmpl.MinTransactions > 0 {
		minTx = tmpl.MinTransactions
	}
	if len(txs) < minTx {
		add(ReasonTooFewTransactions)
	}

	if tmpl != nil && report.Continuity.Checked >= tmpl.ContinuityMinSample &&
		report.Continuity.PassRate < tmpl.ContinuityThreshold {
		add(ReasonLowContinuityPassRate)
	}

	if templateID == templates.TemplateAutoDebitCredit {
		assessAutoDC(tmpl, txs, fileWarnings, rawText, add)
	}

	return report
}

// assessAutoDC evaluates the reasons specific to the auto debit/credit
// template, in a fixed order.
func assessAutoDC(tmpl *templates.Template, txs []*models.NormalizedTransaction, fileWarnings []string, rawText string, add func(string)) {
	if anyRowWarning(txs, models.WarnDebitCreditBothSet) {
		add(ReasonDebitCreditBothSet)
	}
	if warningsContain(fileWarnings, models.WarnAmountTokenNotFound) || anyRowWarning(txs, models.WarnBalanceTokenNotFound) {
		add(ReasonAmountTokenNotFound)
	}

	// Sign uncertainty is suppressed for rows whose sign was confirmed
	// by balance-delta inference.
	if anyRowWarning(txs, models.WarnAmountSignUncertain) {
		add(ReasonAmountSignUncertain)
	}

	if len(txs) > 0 {
		incomplete := 0
		for _, tx := range txs {
			if tx.Balance == nil || tx.SignSource == models.SignDefault {
				incomplete++
			}
		}
		if float64(incomplete)/float64(len(txs)) > structuralCoverageLimit {
			add(ReasonLowStructuralCoverage)
		}
	}

	if tmpl.CheckStatementTotals {
		if check := CheckStatementTotals(rawText); check.Available && !check.Pass {
			add(ReasonStatementTotalsMismatch)
		}
	}
}

// reasonCollector returns an append func that preserves order and drops
// duplicates.
func reasonCollector(reasons *[]string) func(string) {
	seen := make(map[string]bool)
	return func(code string) {
		if seen[code] {
			return
		}
		seen[code] = true
		*reasons = append(*reasons, code)
	}
}

func anyRowWarning(txs []*models.NormalizedTransaction, code string) bool {
	for _, tx := range txs {
		for _, w := range tx.Warnings {
			if w == code {
				return true
			}
		}
	}
	return false
}

func warningsContain(warnings []string, code string) bool {
	for _, w := range warnings {
		if strings.Contains(w, code) {
			return true
		}
	}
	return false
}
