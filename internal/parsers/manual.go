package parsers

import (
	"fmt"
	"strings"
	"time"

	"bank-transfer-reconciler/internal/models"

	"github.com/shopspring/decimal"
)

// Row is one transaction candidate produced by a grammar, before
// normalization into a models.NormalizedTransaction.
type Row struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Balance     *decimal.Decimal
	Confidence  float64
	RawLine     string
	Warnings    []string
	SignSource  models.SignSource
	LineIndex   int // 1-based within the segment
}

// GrammarResult is a grammar's output: rows plus file-level warnings.
type GrammarResult struct {
	Rows     []Row
	Warnings []string
}

const (
	baseConfidence    = 0.95
	continuationDecay = 0.05
	minConfidence     = 0.1
)

// manualState enumerates the manual grammar's machine states.
type manualState int

const (
	manualScanning manualState = iota
	manualPending
)

type pendingTx struct {
	date      DateToken
	descParts []string
	rawLines  []string
	conf      float64
	startLine int
}

// ParseManual runs the manual amount/balance grammar.
//
// Transition table:
//
//	scanning + date line w/ two trailing money tokens -> scanning (emit row)
//	scanning + date line w/o money tokens             -> pending
//	scanning + other line                             -> scanning (append to previous row, decay)
//	pending  + line w/ two trailing money tokens      -> scanning (emit row)
//	pending  + other line                             -> pending (accumulate, decay)
//	pending  + date line                              -> pending on new date (warn previous)
//	pending  + end of input                           -> emit zero-amount row with warning
func ParseManual(section string, period *StatementPeriod) GrammarResult {
	var result GrammarResult
	state := manualScanning
	var pending *pendingTx

	lines := strings.Split(section, "\n")
	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		tok, isDate := ParseDateToken(line)

		if isDate {
			if state == manualPending {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("%s: transaction started at line %d had no amount before next date line", models.WarnUnterminatedTransaction, pending.startLine))
				result.Rows = append(result.Rows, unterminatedRow(pending, period))
			}

			prefix, moneyToks := TrailingMoneyTokens(tok.Rest)
			if len(moneyToks) >= 2 {
				result.Rows = append(result.Rows, finalizeManualRow(tok, period, []string{prefix}, moneyToks, baseConfidence, line, lineNo))
				state = manualScanning
				pending = nil
				continue
			}

			pending = &pendingTx{
				date:      tok,
				descParts: []string{strings.TrimSpace(tok.Rest)},
				rawLines:  []string{line},
				conf:      baseConfidence,
				startLine: lineNo,
			}
			state = manualPending
			continue
		}

		if state == manualPending {
			prefix, moneyToks := TrailingMoneyTokens(line)
			if len(moneyToks) >= 2 {
				parts := pending.descParts
				conf := pending.conf
				if prefix != "" {
					parts = append(parts, prefix)
					conf = decay(conf)
				}
				rawText := strings.Join(append(pending.rawLines, line), "\n")
				result.Rows = append(result.Rows, finalizeManualRow(pending.date, period, parts, moneyToks, conf, rawText, pending.startLine))
				state = manualScanning
				pending = nil
				continue
			}

			// Continuation: reference numbers, wrapped descriptions.
			pending.descParts = append(pending.descParts, line)
			pending.rawLines = append(pending.rawLines, line)
			pending.conf = decay(pending.conf)
			continue
		}

		// Non-dated line outside any pending transaction: append to the
		// previous row's description with an uncertainty decay, since
		// the description boundary is now ambiguous.
		if n := len(result.Rows); n > 0 {
			prev := &result.Rows[n-1]
			prev.Description = strings.TrimSpace(prev.Description + " " + line)
			prev.Confidence = decay(prev.Confidence)
		}
	}

	if state == manualPending && pending != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%s: transaction started at line %d was still open at end of input", models.WarnUnterminatedTransaction, pending.startLine))
		result.Rows = append(result.Rows, unterminatedRow(pending, period))
	}

	return result
}

func finalizeManualRow(tok DateToken, period *StatementPeriod, descParts []string, moneyToks []MoneyToken, conf float64, rawText string, lineNo int) Row {
	amountTok := moneyToks[len(moneyToks)-2]
	balanceTok := moneyToks[len(moneyToks)-1]
	balance := balanceTok.Signed()

	return Row{
		Date:        ResolveDate(tok, period),
		Description: strings.TrimSpace(strings.Join(descParts, " ")),
		Amount:      amountTok.Signed(),
		Balance:     &balance,
		Confidence:  conf,
		RawLine:     rawText,
		SignSource:  models.SignInline,
		LineIndex:   lineNo,
	}
}

// unterminatedRow preserves an unterminated pending transaction as a
// zero-amount row rather than dropping it silently. Zero-amount rows are
// excluded from transfer candidacy downstream.
func unterminatedRow(pending *pendingTx, period *StatementPeriod) Row {
	return Row{
		Date:        ResolveDate(pending.date, period),
		Description: strings.TrimSpace(strings.Join(pending.descParts, " ")),
		Amount:      decimal.Zero,
		Confidence:  0.3,
		RawLine:     strings.Join(pending.rawLines, "\n"),
		Warnings:    []string{models.WarnUnterminatedTransaction},
		SignSource:  models.SignDefault,
		LineIndex:   pending.startLine,
	}
}

func decay(conf float64) float64 {
	conf -= continuationDecay
	if conf < minConfidence {
		return minConfidence
	}
	return conf
}
