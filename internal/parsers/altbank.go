package parsers

import (
	"regexp"
	"strings"
)

// The alternate-bank layout is the manual grammar wearing different
// clothes: numeric "DD-MM-YYYY" dates, a currency column label glued to
// the amount, and "Cr"/"Dr" rendered in mixed case. ParseAltBank
// normalizes those quirks line by line and delegates to the manual
// state machine.

var (
	altDashDateRe = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{2,4})\b`)
	altCrDrRe     = regexp.MustCompile(`\b([Cc]r|[Dd]r)\b`)
	altCurrencyRe = regexp.MustCompile(`\bAUD\s*`)
)

// ParseAltBank adapts alternate-bank statement lines onto the manual
// amount/balance grammar.
func ParseAltBank(section string, period *StatementPeriod) GrammarResult {
	var normalized []string
	for _, line := range strings.Split(section, "\n") {
		normalized = append(normalized, normalizeAltLine(line))
	}
	return ParseManual(strings.Join(normalized, "\n"), period)
}

func normalizeAltLine(line string) string {
	line = altDashDateRe.ReplaceAllString(line, "$1/$2/$3")
	line = altCurrencyRe.ReplaceAllString(line, "")
	line = altCrDrRe.ReplaceAllStringFunc(line, strings.ToUpper)
	return line
}
