package parsers

import (
	"fmt"
	"strings"

	"bank-transfer-reconciler/internal/models"

	"github.com/shopspring/decimal"
)

// Keyword evidence for the sign-inference priority chain. Keyword
// evidence outranks the money token's CR/DR suffix, which outranks the
// hard default of debit. This precedence is preserved exactly even where
// keyword and suffix disagree.
var creditKeywords = []string{
	"CREDIT TO ACCOUNT",
	"TRANSFER FROM",
	"PAYMENT FROM",
	"OSKO PAYMENT FROM",
	"DEPOSIT",
	"SALARY",
	"REFUND",
	"INTEREST PAID",
	"DIVIDEND",
}

var debitKeywords = []string{
	"TRANSFER TO",
	"PAYMENT TO",
	"CARD XX",
	"WITHDRAWAL",
	"DIRECT DEBIT",
	"BPAY",
	"EFTPOS",
	"PURCHASE",
}

type block struct {
	date      DateToken
	lines     []string
	startLine int
}

// ParseAutoDC runs the auto debit/credit grammar: a line beginning with
// "DD Mon[ YYYY]" starts a block; subsequent lines belong to the block
// until the next date line. The last two money tokens in the block are
// amount and balance respectively.
//
// Transition table:
//
//	scanning     + date line  -> accumulating (new block)
//	scanning     + other line -> scanning (pre-header noise, ignored)
//	accumulating + date line  -> accumulating (emit block, new block)
//	accumulating + other line -> accumulating (append)
//	accumulating + end        -> emit block
func ParseAutoDC(section string, period *StatementPeriod) GrammarResult {
	var result GrammarResult
	var blocks []block

	for i, raw := range strings.Split(section, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if tok, ok := ParseDateToken(line); ok {
			blocks = append(blocks, block{date: tok, lines: []string{line}, startLine: i + 1})
			continue
		}

		if len(blocks) > 0 {
			last := &blocks[len(blocks)-1]
			last.lines = append(last.lines, line)
		}
	}

	var prevBalance *decimal.Decimal
	for _, b := range blocks {
		row, ok := parseBlock(b, period, prevBalance, &result)
		if !ok {
			continue
		}
		prevBalance = row.Balance
		result.Rows = append(result.Rows, row)
	}

	return result
}

func parseBlock(b block, period *StatementPeriod, prevBalance *decimal.Decimal, result *GrammarResult) (Row, bool) {
	blockText := strings.Join(b.lines, " ")
	tokens := FindMoneyTokens(blockText)

	if len(tokens) == 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%s: block at line %d has no money token", models.WarnAmountTokenNotFound, b.startLine))
		return Row{}, false
	}

	var amountTok MoneyToken
	var balance *decimal.Decimal
	var rowWarnings []string

	if len(tokens) >= 2 {
		amountTok = tokens[len(tokens)-2]
		bal := tokens[len(tokens)-1].Signed()
		balance = &bal
	} else {
		amountTok = tokens[0]
		rowWarnings = append(rowWarnings, models.WarnBalanceTokenNotFound)
	}

	magnitude := amountTok.Value
	row := Row{
		Date:        ResolveDate(b.date, period),
		Description: StripMoneyTokens(strings.TrimSpace(b.date.Rest) + " " + strings.Join(b.lines[1:], " ")),
		Balance:     balance,
		RawLine:     strings.Join(b.lines, "\n"),
		LineIndex:   b.startLine,
	}

	// Sign-inference priority chain.
	upper := strings.ToUpper(blockText)
	hasCredit := containsAnyKeyword(upper, creditKeywords)
	hasDebit := containsAnyKeyword(upper, debitKeywords)

	switch {
	case hasCredit || hasDebit:
		row.SignSource = models.SignKeyword
		row.Confidence = 0.92
		if hasCredit && hasDebit {
			// Both keyword classes fired; debit wins but the row is
			// flagged for review.
			rowWarnings = append(rowWarnings, models.WarnDebitCreditBothSet)
			row.Amount = magnitude.Neg()
		} else if hasCredit {
			row.Amount = magnitude
		} else {
			row.Amount = magnitude.Neg()
		}
	case amountTok.ExplicitSign():
		row.SignSource = models.SignSuffix
		row.Confidence = 0.9
		row.Amount = amountTok.Signed()
	default:
		row.SignSource = models.SignDefault
		row.Confidence = 0.7
		row.Amount = magnitude.Neg()
		rowWarnings = append(rowWarnings, models.WarnAmountSignUncertain)
	}

	// Balance-delta inference only overrides the hard default, never
	// keyword or suffix evidence.
	if row.SignSource == models.SignDefault && prevBalance != nil && balance != nil {
		diff := balance.Sub(*prevBalance)
		if diff.Abs().Round(2).Sub(magnitude.Round(2)).Abs().LessThanOrEqual(models.MoneyTolerance) && !diff.IsZero() {
			if diff.IsPositive() {
				row.Amount = magnitude
			} else {
				row.Amount = magnitude.Neg()
			}
			row.SignSource = models.SignBalance
			row.Confidence = 0.85
			rowWarnings = removeWarning(rowWarnings, models.WarnAmountSignUncertain)
		}
	}

	row.Warnings = rowWarnings
	return row, true
}

func containsAnyKeyword(upper string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

func removeWarning(warnings []string, code string) []string {
	var kept []string
	for _, w := range warnings {
		if w != code {
			kept = append(kept, w)
		}
	}
	return kept
}
