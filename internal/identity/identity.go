// Package identity extracts the owning-account identity (BSB, account
// number, account name) from statement text. Identity is best effort:
// extraction never fails a parse, it only leaves fields empty and
// records a warning.
package identity

import (
	"regexp"
	"strings"

	"bank-transfer-reconciler/internal/models"
	"bank-transfer-reconciler/pkg/logger"
)

const (
	// WarnBSBPrefixStripped marks an account number that arrived with
	// its BSB glued on the front.
	WarnBSBPrefixStripped = "ACCOUNT_NUMBER_HAS_BSB_PREFIX_STRIPPED"
	// WarnIdentityMissing marks a file whose text yielded no account
	// number at all.
	WarnIdentityMissing = "IDENTITY_MISSING"
)

var (
	bsbRe       = regexp.MustCompile(`(?i)\bBSB\s*:?\s*(\d{3}[- ]?\d{3})\b`)
	bsbLabelRe  = regexp.MustCompile(`(?i)^BSB\s*:?$`)
	acctRe      = regexp.MustCompile(`(?i)\baccount\s+(?:number|no\.?)\s*:?\s*(\d[\d -]{4,})`)
	acctLabelRe = regexp.MustCompile(`(?i)^account\s+(?:number|no\.?)\s*:?$`)
	combined    = regexp.MustCompile(`(?i)\baccount\s+number\s+(\d{3}[- ]?\d{3})\s+(\d{6,})\b`)
	nameRe      = regexp.MustCompile(`(?i)\baccount\s+name\s*:?\s*(.+)`)
	callerRe    = regexp.MustCompile(`^\d{6}-\d{6,}$`)
	digitsRe    = regexp.MustCompile(`\D`)
	noiseLine   = regexp.MustCompile(`(?i)^(page \d+|statement|continued)`)
)

// Extract pulls the account identity out of statement text. The label
// scan runs in priority order: a value on the label line itself wins
// over a value on the following line, which wins over the combined
// "Account Number <bsb> <acct>" form, which wins over a BSB-shaped
// caller-supplied account id.
func Extract(text, bankID, accountID, templateID string) *models.StatementAccountMeta {
	meta := &models.StatementAccountMeta{
		BankID:     bankID,
		AccountID:  accountID,
		TemplateID: templateID,
	}

	lines := strings.Split(text, "\n")

	meta.BSB = normalizeBSB(findLabeled(lines, bsbRe, bsbLabelRe))
	meta.AccountNumber = digitsOnly(findLabeled(lines, acctRe, acctLabelRe))

	if meta.BSB == "" || meta.AccountNumber == "" {
		if m := combined.FindStringSubmatch(text); m != nil {
			if meta.BSB == "" {
				meta.BSB = normalizeBSB(m[1])
			}
			if meta.AccountNumber == "" {
				meta.AccountNumber = m[2]
			}
		}
	}

	// A caller id shaped like "NNNNNN-NNNNNN..." carries both fragments.
	if (meta.BSB == "" || meta.AccountNumber == "") && callerRe.MatchString(accountID) {
		parts := strings.SplitN(accountID, "-", 2)
		if meta.BSB == "" {
			meta.BSB = parts[0]
		}
		if meta.AccountNumber == "" {
			meta.AccountNumber = parts[1]
		}
	}

	if m := nameRe.FindStringSubmatch(text); m != nil {
		meta.AccountName = strings.TrimSpace(m[1])
	}

	// Some statements print the account number with the BSB glued on.
	if meta.BSB != "" && len(meta.AccountNumber) > 6 && strings.HasPrefix(meta.AccountNumber, meta.BSB) {
		stripped := meta.AccountNumber[len(meta.BSB):]
		if len(stripped) >= 6 {
			meta.AccountNumber = stripped
			meta.MetaWarnings = append(meta.MetaWarnings, WarnBSBPrefixStripped)
		}
	}

	if len(meta.BSB) == 6 && len(meta.AccountNumber) >= 6 {
		meta.AccountKey = meta.BSB + "-" + meta.AccountNumber
	}

	if meta.AccountNumber == "" {
		meta.MetaWarnings = append(meta.MetaWarnings, WarnIdentityMissing)
		logger.GetGlobalLogger().WithComponent("identity").WithFields(logger.Fields{
			"bank_id":    bankID,
			"account_id": accountID,
		}).Warn("no account number found in statement text")
	}

	return meta
}

// ResolveAccountID picks the effective account id for a file. It is
// total: there is always an answer, falling through account key, then
// a slug of the account name, then the caller id, then the default.
func ResolveAccountID(meta *models.StatementAccountMeta, callerID string) string {
	if meta != nil {
		if meta.AccountKey != "" {
			return meta.AccountKey
		}
		if meta.AccountName != "" {
			if s := slug(meta.AccountName); s != "" {
				return s
			}
		}
	}
	if callerID != "" {
		return callerID
	}
	return models.DefaultAccountID
}

// findLabeled scans line by line. A value on the label line wins; a
// bare label takes the next non-noise line instead.
func findLabeled(lines []string, valueRe, labelRe *regexp.Regexp) string {
	for i, line := range lines {
		if m := valueRe.FindStringSubmatch(line); m != nil {
			if v := strings.TrimSpace(m[1]); v != "" {
				return v
			}
		}
		if !labelRe.MatchString(strings.TrimSpace(line)) {
			continue
		}
		for j := i + 1; j < len(lines); j++ {
			next := strings.TrimSpace(lines[j])
			if next == "" || noiseLine.MatchString(next) {
				continue
			}
			return next
		}
	}
	return ""
}

func normalizeBSB(s string) string {
	digits := digitsOnly(s)
	if len(digits) != 6 {
		return ""
	}
	return digits
}

func digitsOnly(s string) string {
	return digitsRe.ReplaceAllString(s, "")
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastDash := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
