package quality

import (
	"regexp"
	"strings"

	"bank-transfer-reconciler/internal/models"

	"github.com/shopspring/decimal"
)

// TotalsCheck is the result of the statement-totals reconciliation:
// opening balance - total debits + total credits = closing balance.
type TotalsCheck struct {
	Available bool            `json:"available"`
	Pass      bool            `json:"pass"`
	Opening   decimal.Decimal `json:"opening"`
	Debits    decimal.Decimal `json:"debits"`
	Credits   decimal.Decimal `json:"credits"`
	Closing   decimal.Decimal `json:"closing"`
}

// looseMoneyRe tolerates totals lines that drop the cents.
var looseMoneyRe = regexp.MustCompile(`-?\$?(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d{1,2})?`)

const totalsLabelCompact = "openingbalance"

// CheckStatementTotals locates the totals label line (fuzzy, whitespace
// and case tolerant), pulls up to four loosely-formatted money tokens
// from that line and the next, and verifies the equation within one
// cent. The check is unavailable when fewer than 3 tokens are found;
// closing defaults to 0 only when the surrounding text contains "nil".
func CheckStatementTotals(text string) TotalsCheck {
	lines := strings.Split(text, "\n")

	labelIdx := -1
	for i, line := range lines {
		compact := compactAlnum(line)
		if strings.Contains(compact, totalsLabelCompact) &&
			strings.Contains(compact, "totaldebits") &&
			strings.Contains(compact, "totalcredits") {
			labelIdx = i
			break
		}
	}
	if labelIdx == -1 {
		return TotalsCheck{}
	}

	scope := lines[labelIdx]
	if labelIdx+1 < len(lines) {
		scope += "\n" + lines[labelIdx+1]
	}

	tokens := extractLooseMoney(scope)
	if len(tokens) > 4 {
		tokens = tokens[:4]
	}

	var check TotalsCheck
	switch {
	case len(tokens) >= 4:
		check.Opening, check.Debits, check.Credits, check.Closing = tokens[0], tokens[1], tokens[2], tokens[3]
	case len(tokens) == 3 && strings.Contains(strings.ToLower(scope), "nil"):
		check.Opening, check.Debits, check.Credits = tokens[0], tokens[1], tokens[2]
		check.Closing = decimal.Zero
	default:
		return TotalsCheck{}
	}

	check.Available = true
	expected := models.Round2(check.Opening.Sub(check.Debits.Abs()).Add(check.Credits.Abs()))
	check.Pass = models.WithinMoneyTolerance(expected, check.Closing)
	return check
}

func extractLooseMoney(scope string) []decimal.Decimal {
	var out []decimal.Decimal
	for _, raw := range looseMoneyRe.FindAllString(scope, -1) {
		neg := strings.HasPrefix(raw, "-")
		cleaned := strings.TrimPrefix(raw, "-")
		cleaned = strings.TrimPrefix(cleaned, "$")
		cleaned = strings.ReplaceAll(cleaned, ",", "")
		if d, err := decimal.NewFromString(cleaned); err == nil {
			if neg {
				d = d.Neg()
			}
			out = append(out, d)
		}
	}
	return out
}

func compactAlnum(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
