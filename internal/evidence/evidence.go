// Package evidence extracts transfer signals from transaction
// descriptions: the transfer keyword class, reference ids, counterparty
// account fragments, counterparty names and PayIDs.
package evidence

import (
	"regexp"
	"strings"

	"bank-transfer-reconciler/internal/models"
)

// typePatterns is checked in priority order; the first hit wins. The
// more specific TRANSFER forms outrank the PAYMENT forms, which outrank
// the scheme-only OSKO and NPP markers.
var typePatterns = []struct {
	needle string
	typ    models.TransferType
}{
	{"TRANSFER TO", models.TransferTo},
	{"TRANSFER FROM", models.TransferFrom},
	{"PAYMENT TO", models.PaymentTo},
	{"PAYMENT FROM", models.PaymentFrom},
	{"OSKO", models.TransferOsko},
	{"NPP", models.TransferNPP},
}

var hintKeywords = []string{
	"TRANSFER", "PAYMENT", "OSKO", "NPP", "PAYID", "BPAY", "FAST PAYMENT",
}

var (
	refRe         = regexp.MustCompile(`#\s*([A-Za-z0-9-]+)\s*$`)
	bsbAcctRe     = regexp.MustCompile(`\b(\d{3}-\d{3}|\d{6})\s+(\d{6,})\b`)
	gluedKeyRe    = regexp.MustCompile(`\b(\d{6})(\d{6,})\b`)
	bsbLabelledRe = regexp.MustCompile(`(?i)\bBSB\s*:?\s*(\d{3}-?\d{3})\b`)
	bsbDashedRe   = regexp.MustCompile(`\b\d{3}-\d{3}\b`)
	acctTokenRe   = regexp.MustCompile(`\b\d{6,}\b`)
	nameAfterRe   = regexp.MustCompile(`(?i)\b(?:TRANSFER|PAYMENT)\s+(?:TO|FROM)\s+([A-Z][A-Z .'-]{1,40}?)(?:\s+#|\s+\d|\s*$)`)
	payIDNameRe   = regexp.MustCompile(`(?i)\b([A-Z][A-Z .'-]{1,40}?)\s*\(PAYID\)`)
	emailRe       = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	mobileRe      = regexp.MustCompile(`(?:\+61\s?|0)4(?:\s?\d){8}`)
)

// Extract derives the transfer evidence for one transaction. It works
// on the raw description so reference ids and PayIDs keep their case;
// the merchant-normalized form is only consulted for keyword hints.
func Extract(descriptionRaw, merchantNorm string) models.TransferEvidence {
	var ev models.TransferEvidence
	upper := strings.ToUpper(descriptionRaw)

	for _, tp := range typePatterns {
		if strings.Contains(upper, tp.needle) {
			ev.Type = tp.typ
			break
		}
	}

	if m := refRe.FindStringSubmatch(strings.TrimSpace(descriptionRaw)); m != nil {
		ev.RefID = m[1]
	}

	if m := bsbAcctRe.FindStringSubmatch(descriptionRaw); m != nil {
		ev.CounterpartyAccountKey = strings.ReplaceAll(m[1], "-", "") + "-" + m[2]
	} else if m := gluedKeyRe.FindStringSubmatch(descriptionRaw); m != nil {
		ev.CounterpartyAccountKey = m[1] + "-" + m[2]
	} else {
		ev.CounterpartyAccountKey = separatedAccountKey(descriptionRaw)
	}

	if m := payIDNameRe.FindStringSubmatch(descriptionRaw); m != nil {
		ev.CounterpartyName = cleanName(m[1])
	} else if m := nameAfterRe.FindStringSubmatch(descriptionRaw); m != nil {
		ev.CounterpartyName = cleanName(m[1])
	}

	if m := emailRe.FindString(descriptionRaw); m != "" {
		ev.PayID = strings.ToLower(m)
	} else if m := mobileRe.FindString(descriptionRaw); m != "" {
		ev.PayID = stripSpaces(m)
	}

	hintText := upper + " " + strings.ToUpper(merchantNorm)
	for _, kw := range hintKeywords {
		if strings.Contains(hintText, kw) {
			ev.Hints = append(ev.Hints, kw)
		}
	}

	return ev
}

// separatedAccountKey handles descriptions where words sit between the
// BSB and the account number, as in "BSB 062-000 ACC 12345678". The
// first account-shaped token after the BSB wins.
func separatedAccountKey(desc string) string {
	var bsb, rest string
	if loc := bsbLabelledRe.FindStringSubmatchIndex(desc); loc != nil {
		bsb = strings.ReplaceAll(desc[loc[2]:loc[3]], "-", "")
		rest = desc[loc[1]:]
	} else if loc := bsbDashedRe.FindStringIndex(desc); loc != nil {
		bsb = strings.ReplaceAll(desc[loc[0]:loc[1]], "-", "")
		rest = desc[loc[1]:]
	}
	if len(bsb) != 6 {
		return ""
	}
	if acct := acctTokenRe.FindString(rest); acct != "" {
		return bsb + "-" + acct
	}
	return ""
}

func cleanName(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}
