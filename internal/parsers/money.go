// Package parsers implements the line grammars that turn segmented
// statement text into transaction rows. Each grammar is an explicit
// state machine (scanning, pending, block-accumulating); the money-token
// lexer and date handling are shared.
//
// Grammars return rows plus warnings. Warnings never abort parsing of
// subsequent lines: one bad block degrades confidence or annotates a
// warning but does not stop the statement.
package parsers

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// moneyTokenRe recognizes statement money tokens: optional parentheses,
// leading minus, dollar sign, thousands separators, mandatory cents, and
// an optional CR/DR suffix.
var moneyTokenRe = regexp.MustCompile(`\(?-?\$?(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2}\)?(?:\s?(?:CR|DR)\b)?`)

// MoneyToken is one lexed money value. The four flags are independent,
// combinable signals; Signed resolves them.
type MoneyToken struct {
	Raw       string
	Value     decimal.Decimal // absolute magnitude
	HasMinus  bool
	HasParens bool
	HasCR     bool
	HasDR     bool
}

// Signed resolves the token's sign. A leading minus or parentheses wins
// over the CR suffix: a token carrying both parentheses and CR is a
// conflicting-signal case resolved as negative.
func (t MoneyToken) Signed() decimal.Decimal {
	if t.HasMinus || t.HasParens || t.HasDR {
		return t.Value.Neg()
	}
	return t.Value
}

// ExplicitSign reports whether the token itself carries sign evidence.
func (t MoneyToken) ExplicitSign() bool {
	return t.HasMinus || t.HasParens || t.HasCR || t.HasDR
}

// ParseMoneyToken lexes a single raw token.
func ParseMoneyToken(raw string) (MoneyToken, bool) {
	tok := MoneyToken{Raw: raw}
	s := strings.TrimSpace(raw)

	upper := strings.ToUpper(s)
	if strings.HasSuffix(upper, "CR") {
		tok.HasCR = true
		s = strings.TrimSpace(s[:len(s)-2])
	} else if strings.HasSuffix(upper, "DR") {
		tok.HasDR = true
		s = strings.TrimSpace(s[:len(s)-2])
	}

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		tok.HasParens = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	if strings.HasPrefix(s, "-") {
		tok.HasMinus = true
		s = strings.TrimSpace(s[1:])
	}

	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")

	value, err := decimal.NewFromString(s)
	if err != nil {
		return MoneyToken{}, false
	}
	tok.Value = value.Abs()
	return tok, true
}

// FindMoneyTokens lexes every money token in the line, in order.
func FindMoneyTokens(line string) []MoneyToken {
	var tokens []MoneyToken
	for _, raw := range moneyTokenRe.FindAllString(line, -1) {
		if tok, ok := ParseMoneyToken(raw); ok {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// TrailingMoneyTokens splits a line into its description prefix and the
// run of money tokens at its end. Only tokens separated from the line
// end by whitespace count as trailing.
func TrailingMoneyTokens(line string) (prefix string, tokens []MoneyToken) {
	locs := moneyTokenRe.FindAllStringIndex(line, -1)
	if len(locs) == 0 {
		return strings.TrimSpace(line), nil
	}

	end := len(line)
	cut := end
	for i := len(locs) - 1; i >= 0; i-- {
		between := line[locs[i][1]:end]
		if strings.TrimSpace(between) != "" {
			break
		}
		end = locs[i][0]
		cut = locs[i][0]
	}

	prefix = strings.TrimSpace(line[:cut])
	for _, raw := range moneyTokenRe.FindAllString(line[cut:], -1) {
		if tok, ok := ParseMoneyToken(raw); ok {
			tokens = append(tokens, tok)
		}
	}
	return prefix, tokens
}

// StripMoneyTokens removes every money token from the text; used when
// deriving a clean description from an accumulated block.
func StripMoneyTokens(text string) string {
	cleaned := moneyTokenRe.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(cleaned), " ")
}
