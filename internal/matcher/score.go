package matcher

import (
	"regexp"
	"strings"
	"time"

	"bank-transfer-reconciler/internal/models"
)

// Score weights. Account-key closure is the strongest single signal
// because it ties description evidence to a real account number.
const (
	scoreBase = 0.5

	weightAccountKey    = 0.55
	weightPayID         = 0.4
	weightRefID         = 0.25
	weightName          = 0.3
	weightComplement    = 0.12
	weightBothHints     = 0.1
	weightSameDay       = 0.1
	weightAdjacentDay   = 0.05
	penaltyRefSameBank  = 0.4
	penaltyRefCrossBank = 0.1
	penaltyMerchantLike = 0.3
	penaltyNoHints      = 0.2
	penaltyAmbiguous    = 0.25
)

const (
	penaltyCodeRefMismatch  = "REF_ID_MISMATCH"
	penaltyCodeMerchantLike = "MERCHANT_LIKE_NO_HINT"
	penaltyCodeNoHints      = "NO_TRANSFER_HINTS"
	// PenaltyAmbiguousMulti marks a forced downgrade when several
	// candidates carried strong identity closure.
	PenaltyAmbiguousMulti = "AMBIGUOUS_MULTI_MATCH"
)

// candidate is one scored debit/credit pairing inside a run.
type candidate struct {
	credit   *side
	score    float64
	strong   int
	dateDiff int
	explain  models.MatchExplain
}

// side bundles a transaction with its evidence and account metadata for
// the duration of one matching run.
type side struct {
	tx       *models.NormalizedTransaction
	evidence models.TransferEvidence
	meta     *models.StatementAccountMeta
	// canonical account id after alias folding
	account string
}

// scorePair computes the additive score and the audit explain block for
// one debit/credit pairing. Pure function of the two sides.
func scorePair(debit, credit *side) (float64, models.MatchExplain) {
	ex := models.MatchExplain{
		DateDiffDays:   dateDiffDays(debit.tx.Date, credit.tx.Date),
		SameAccount:    debit.account == credit.account,
		DebitEvidence:  &debit.evidence,
		CreditEvidence: &credit.evidence,
		DebitMeta:      debit.meta,
		CreditMeta:     credit.meta,
	}

	score := scoreBase

	ex.AccountKeyMatch = accountKeyCloses(debit.evidence, credit.meta)
	ex.AccountKeyMatchRev = accountKeyCloses(credit.evidence, debit.meta)
	if ex.AccountKeyMatch {
		score += weightAccountKey
		ex.StrongClosureCount++
	}
	if ex.AccountKeyMatchRev {
		score += weightAccountKey
		ex.StrongClosureCount++
	}

	ex.PayIDMatch = debit.evidence.PayID != "" && debit.evidence.PayID == credit.evidence.PayID
	if ex.PayIDMatch {
		score += weightPayID
		ex.StrongClosureCount++
	}

	switch {
	case debit.evidence.RefID != "" && debit.evidence.RefID == credit.evidence.RefID:
		score += weightRefID
		ex.StrongClosureCount++
		ex.RefID = debit.evidence.RefID
	case debit.evidence.RefID != "" && credit.evidence.RefID != "":
		// Unequal refs argue against the pairing; on the same bank and
		// template the refs share a namespace, so the mismatch is
		// strong evidence.
		if debit.tx.BankID == credit.tx.BankID && debit.tx.TemplateID == credit.tx.TemplateID {
			score -= penaltyRefSameBank
		} else {
			score -= penaltyRefCrossBank
		}
		ex.Penalties = append(ex.Penalties, penaltyCodeRefMismatch)
	}

	ex.NameMatch = nameCloses(debit.evidence, credit)
	ex.NameMatchRev = nameCloses(credit.evidence, debit)
	if ex.NameMatch {
		score += weightName
	}
	if ex.NameMatchRev {
		score += weightName
	}

	if debit.evidence.Type != "" && debit.evidence.Type.Complement() == credit.evidence.Type {
		score += weightComplement
		ex.Hints = append(ex.Hints, "COMPLEMENTARY_TYPE")
	}

	// The engine's candidacy filter drops hint-less transactions before
	// pools are built, so through Run the no-hints and merchant-like
	// penalties below are inert. They fire when scorePair is applied to
	// sides that skipped that filter.
	debitHint := debit.evidence.HasTransferHint()
	creditHint := credit.evidence.HasTransferHint()
	switch {
	case debitHint && creditHint:
		score += weightBothHints
		ex.Hints = append(ex.Hints, "BOTH_SIDES_HINTED")
	case !debitHint && !creditHint:
		score -= penaltyNoHints
		ex.Penalties = append(ex.Penalties, penaltyCodeNoHints)
	}

	switch ex.DateDiffDays {
	case 0:
		score += weightSameDay
	case 1:
		score += weightAdjacentDay
	}

	if merchantLikeWithoutHint(debit) || merchantLikeWithoutHint(credit) {
		score -= penaltyMerchantLike
		ex.Penalties = append(ex.Penalties, penaltyCodeMerchantLike)
	}

	score = clamp01(score)
	ex.Score = score
	return score, ex
}

// accountKeyCloses reports whether one side's description evidence
// names the other side's real account key.
func accountKeyCloses(ev models.TransferEvidence, otherMeta *models.StatementAccountMeta) bool {
	return ev.CounterpartyAccountKey != "" && otherMeta != nil &&
		otherMeta.AccountKey != "" && ev.CounterpartyAccountKey == otherMeta.AccountKey
}

// nameCloses reports whether one side's extracted counterparty name
// matches the other side's statement account name.
func nameCloses(ev models.TransferEvidence, other *side) bool {
	if ev.CounterpartyName == "" || other.meta == nil || other.meta.AccountName == "" {
		return false
	}
	a := foldName(ev.CounterpartyName)
	b := foldName(other.meta.AccountName)
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}

var merchantish = regexp.MustCompile(`(?i)\b(EFTPOS|CARD\s*XX|PURCHASE|POS)\b|\b\d{4}$`)

// merchantLikeWithoutHint flags a side whose description reads like a
// card purchase and carries no transfer signal at all.
func merchantLikeWithoutHint(s *side) bool {
	return !s.evidence.HasTransferHint() && merchantish.MatchString(strings.TrimSpace(s.tx.DescriptionRaw))
}

func foldName(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

func dateDiffDays(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	d := ad.Sub(bd)
	if d < 0 {
		d = -d
	}
	return int(d / (24 * time.Hour))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
