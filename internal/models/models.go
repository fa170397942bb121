// Package models defines the data model shared by the statement parsers,
// the quality assessor and the transfer matching engine.
//
// All structures here are plain serializable values with no behavior
// beyond validation and derivation helpers; they are safe to render
// directly as JSON or CSV. Amount sign is the single source of truth for
// debit/credit: negative means outflow. The running balance, when a
// template provides one, is checked against the amounts by the quality
// assessor but never corrected.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParserVersion tags every transaction source so downstream consumers can
// detect rows produced by an older grammar.
const ParserVersion = "3"

// DefaultAccountID is the account id of last resort when no identity
// evidence could be extracted and the caller supplied none.
const DefaultAccountID = "default"

// MoneyTolerance is the absolute tolerance used wherever two money values
// are compared after rounding to cents.
var MoneyTolerance = decimal.NewFromFloat(0.01)

// TransactionSource records where a transaction came from. FileID and
// FileHash drive the same-file exclusion in transfer matching.
type TransactionSource struct {
	BankID        string `json:"bankId"`
	AccountID     string `json:"accountId"`
	TemplateID    string `json:"templateId"`
	FileID        string `json:"fileId"`
	FileHash      string `json:"fileHash,omitempty"`
	LineIndex     int    `json:"lineIndex"`
	ParserVersion string `json:"parserVersion"`
}

// HasIdentity reports whether the source can participate in same-file
// exclusion checks at all.
func (s TransactionSource) HasIdentity() bool {
	return s.FileID != "" || s.FileHash != ""
}

// SignSource records how a row's amount sign was decided.
type SignSource string

const (
	// SignInline means the sign came directly from the money token
	// (leading minus or parentheses) in an inline grammar.
	SignInline SignSource = "inline"
	// SignKeyword means keyword evidence in the block text decided it.
	SignKeyword SignSource = "keyword"
	// SignSuffix means a CR/DR suffix on the money token decided it.
	SignSuffix SignSource = "suffix"
	// SignBalance means the sign was inferred from the balance delta
	// against the previous row.
	SignBalance SignSource = "balance"
	// SignDefault means no evidence was found and the hard default
	// (debit) applied. Such rows are sign-uncertain.
	SignDefault SignSource = "default"
)

// Row-level warning codes emitted by the grammars.
const (
	WarnUnterminatedTransaction = "UNTERMINATED_TRANSACTION"
	WarnAmountTokenNotFound     = "AMOUNT_TOKEN_NOT_FOUND"
	WarnBalanceTokenNotFound    = "BALANCE_TOKEN_NOT_FOUND"
	WarnAmountSignUncertain     = "AMOUNT_SIGN_UNCERTAIN"
	WarnDebitCreditBothSet      = "DEBIT_AND_CREDIT_BOTH_SET"
)

// NormalizedTransaction is one parsed statement row after normalization.
type NormalizedTransaction struct {
	ID        string `json:"id"`
	DedupeKey string `json:"dedupeKey"`

	BankID     string `json:"bankId"`
	AccountID  string `json:"accountId"`
	TemplateID string `json:"templateId"`

	Date     time.Time        `json:"date"`
	Amount   decimal.Decimal  `json:"amount"`
	Balance  *decimal.Decimal `json:"balance,omitempty"`
	Currency string           `json:"currency"`

	DescriptionRaw  string `json:"descriptionRaw"`
	DescriptionNorm string `json:"descriptionNorm"`
	MerchantNorm    string `json:"merchantNorm"`

	Source TransactionSource `json:"source"`

	Warnings   []string   `json:"warnings,omitempty"`
	Confidence float64    `json:"confidence"`
	RawLine    string     `json:"rawLine"`
	SignSource SignSource `json:"signSource"`

	// Transfer is attached after matching; nil for unmatched rows.
	Transfer *TransferAnnotation `json:"transfer,omitempty"`
}

// IsDebit reports whether the row is an outflow.
func (t *NormalizedTransaction) IsDebit() bool {
	return t.Amount.IsNegative()
}

// IsCredit reports whether the row is an inflow.
func (t *NormalizedTransaction) IsCredit() bool {
	return t.Amount.IsPositive()
}

// AmountCents returns the amount in signed integer cents.
func (t *NormalizedTransaction) AmountCents() int64 {
	return t.Amount.Round(2).Mul(decimal.NewFromInt(100)).IntPart()
}

// Validate checks the structural fields the matcher requires. A failure
// here is a fatal error, not a warning.
func (t *NormalizedTransaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("transaction id cannot be empty")
	}
	if strings.TrimSpace(t.AccountID) == "" {
		return fmt.Errorf("transaction %s has no account id", t.ID)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("transaction %s has no date", t.ID)
	}
	return nil
}

// String returns a compact representation for logs.
func (t *NormalizedTransaction) String() string {
	return fmt.Sprintf("Transaction{ID: %s, Account: %s, Date: %s, Amount: %s}",
		t.ID, t.AccountID, t.Date.Format("2006-01-02"), t.Amount.String())
}

// ComputeTransactionID derives the stable row id. It hashes file id, row
// index, date, raw description, amount and balance, so re-parsing the
// same text always reproduces the same id.
func ComputeTransactionID(source TransactionSource, index int, date time.Time, description string, amount decimal.Decimal, balance *decimal.Decimal) string {
	balancePart := ""
	if balance != nil {
		balancePart = balance.Round(2).String()
	}
	input := strings.Join([]string{
		"file:" + source.FileID,
		fmt.Sprintf("row:%d", index),
		"date:" + date.UTC().Format("2006-01-02"),
		"desc:" + normalizeForHash(description),
		"amount:" + amount.Round(2).String(),
		"balance:" + balancePart,
	}, "|")
	sum := sha256.Sum256([]byte(input))
	return "ntx_" + hex.EncodeToString(sum[:])[:24]
}

// ComputeDedupeKey derives the business-level key used for cross-file
// duplicate detection. Unlike the row id it ignores file and row index.
func ComputeDedupeKey(accountID string, date time.Time, amount decimal.Decimal, descriptionNorm string) string {
	input := strings.Join([]string{
		"account:" + normalizeForHash(accountID),
		"date:" + date.UTC().Format("2006-01-02"),
		"amount:" + amount.Round(2).String(),
		"desc:" + normalizeForHash(descriptionNorm),
	}, "|")
	sum := sha256.Sum256([]byte(input))
	return "dup_" + hex.EncodeToString(sum[:])[:16]
}

// ComputeMatchID derives a deterministic id for a debit/credit pairing.
func ComputeMatchID(debitID, creditID string) string {
	sum := sha256.Sum256([]byte("debit:" + debitID + "|credit:" + creditID))
	return "tm_" + hex.EncodeToString(sum[:])[:16]
}

// NormalizeDescription upper-cases the description and collapses
// punctuation runs and whitespace into single spaces.
func NormalizeDescription(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		switch {
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '#' || r == '@' || r == '.' || r == '-':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// NormalizeMerchant extracts the merchant token used for categorization
// and transfer grouping: leading alphabetic words of the normalized
// description, minus trailing store/card numbers and company suffixes.
func NormalizeMerchant(description string) string {
	norm := strings.ToLower(NormalizeDescription(description))

	for _, suffix := range []string{" pty ltd", " pty", " ltd", " inc", " co", " llc"} {
		norm = strings.TrimSuffix(norm, suffix)
	}

	fields := strings.Fields(norm)
	var kept []string
	for _, f := range fields {
		if isDigits(strings.Trim(f, ".#-")) {
			break
		}
		kept = append(kept, f)
		if len(kept) == 4 {
			break
		}
	}
	return strings.Join(kept, " ")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func normalizeForHash(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Round2 rounds a money value to cents.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// WithinMoneyTolerance compares two money values after rounding to cents.
func WithinMoneyTolerance(a, b decimal.Decimal) bool {
	return a.Round(2).Sub(b.Round(2)).Abs().LessThanOrEqual(MoneyTolerance)
}

// StatementAccountMeta is the account identity extracted from one file.
// AccountKey is only set when both BSB and account number individually
// pass format validation; it is never guessed from a single fragment.
type StatementAccountMeta struct {
	BankID        string   `json:"bankId"`
	AccountID     string   `json:"accountId"`
	TemplateID    string   `json:"templateId"`
	AccountName   string   `json:"accountName,omitempty"`
	BSB           string   `json:"bsb,omitempty"`
	AccountNumber string   `json:"accountNumber,omitempty"`
	AccountKey    string   `json:"accountKey,omitempty"`
	MetaWarnings  []string `json:"metaWarnings,omitempty"`
}

// MetaKey builds the lookup key the orchestrator uses for the
// per-account metadata map.
func MetaKey(bankID, accountID string) string {
	return bankID + "|" + accountID
}

// TransferType classifies the transfer keyword detected in a description.
type TransferType string

const (
	TransferTo   TransferType = "TRANSFER_TO"
	TransferFrom TransferType = "TRANSFER_FROM"
	PaymentTo    TransferType = "PAYMENT_TO"
	PaymentFrom  TransferType = "PAYMENT_FROM"
	TransferOsko TransferType = "OSKO"
	TransferNPP  TransferType = "NPP"
)

// Complement returns the transfer type expected on the other side of a
// matched pair, or empty when the type has no complement.
func (t TransferType) Complement() TransferType {
	switch t {
	case TransferTo:
		return TransferFrom
	case TransferFrom:
		return TransferTo
	case PaymentTo:
		return PaymentFrom
	case PaymentFrom:
		return PaymentTo
	default:
		return ""
	}
}

// TransferEvidence is the per-transaction transfer signal extracted from
// the description text. All fields are independent; any subset may be set.
type TransferEvidence struct {
	Type                   TransferType `json:"type,omitempty"`
	RefID                  string       `json:"refId,omitempty"`
	CounterpartyAccountKey string       `json:"counterpartyAccountKey,omitempty"`
	CounterpartyName       string       `json:"counterpartyName,omitempty"`
	PayID                  string       `json:"payId,omitempty"`
	Hints                  []string     `json:"hints,omitempty"`
}

// HasTransferHint reports whether the evidence carries any transfer
// signal at all (derived type or keyword hint).
func (e TransferEvidence) HasTransferHint() bool {
	return e.Type != "" || len(e.Hints) > 0
}

// ContinuityResult reports the balance-continuity check over one file.
type ContinuityResult struct {
	Checked        int      `json:"checked"`
	TotalRows      int      `json:"totalRows"`
	Skipped        int      `json:"skipped"`
	PassRate       float64  `json:"passRate"`
	SkippedReasons []string `json:"skippedReasons,omitempty"`
}

// QualityReport is the per-file quality block.
type QualityReport struct {
	HeaderFound         bool             `json:"headerFound"`
	Continuity          ContinuityResult `json:"continuity"`
	NeedsReviewReasons  []string         `json:"needsReviewReasons,omitempty"`
	NonBlockingWarnings []string         `json:"nonBlockingWarnings,omitempty"`
}

// SegmentDebug records where the transaction block was found. Line
// numbers are 1-based.
type SegmentDebug struct {
	StartLine   int    `json:"startLine"`
	EndLine     int    `json:"endLine"`
	HeaderFound bool   `json:"headerFound"`
	StopReason  string `json:"stopReason"`
}

// ParsedFileAnalysis is the per source-file parse result. It is built
// fresh on every parse request, never mutated after construction, and is
// a pure function of the input text plus template configuration.
type ParsedFileAnalysis struct {
	TemplateID   string                   `json:"templateType"`
	BankID       string                   `json:"bankId"`
	AccountID    string                   `json:"accountId"`
	AccountMeta  *StatementAccountMeta    `json:"accountMeta,omitempty"`
	Transactions []*NormalizedTransaction `json:"transactions"`
	Warnings     []string                 `json:"warnings,omitempty"`
	Quality      QualityReport            `json:"quality"`
	NeedsReview  bool                     `json:"needsReview"`
	Segment      SegmentDebug             `json:"segment"`
}

// MatchState is the terminal state of a scored pairing.
type MatchState string

const (
	MatchStateMatched   MatchState = "matched"
	MatchStateUncertain MatchState = "uncertain"
)

// TransferRole marks which side of a transfer a transaction played.
type TransferRole string

const (
	RoleOut TransferRole = "out"
	RoleIn  TransferRole = "in"
)

// BoundaryDecision classifies the boundary effect of a pairing.
type BoundaryDecision string

const (
	DecisionInternalOffset    BoundaryDecision = "INTERNAL_OFFSET"
	DecisionBoundaryFlow      BoundaryDecision = "BOUNDARY_FLOW"
	DecisionUncertainNoOffset BoundaryDecision = "UNCERTAIN_NO_OFFSET"
)

// KPIEffect states whether the pair's money movement counts toward
// cashflow KPIs.
type KPIEffect string

const (
	KPIIncluded KPIEffect = "INCLUDED"
	KPIExcluded KPIEffect = "EXCLUDED"
)

// TransferAnnotation is attached to a transaction after matching.
type TransferAnnotation struct {
	MatchID        string           `json:"matchId"`
	State          MatchState       `json:"state"`
	Role           TransferRole     `json:"role"`
	CounterpartyID string           `json:"counterpartyTransactionId"`
	Method         string           `json:"method"`
	Confidence     float64          `json:"confidence"`
	Decision       BoundaryDecision `json:"decision"`
	KPIEffect      KPIEffect        `json:"kpiEffect"`
	Explain        *MatchExplain    `json:"explain,omitempty"`
}

// TransactionSnapshot is the matcher's immutable view of one side of a
// pairing.
type TransactionSnapshot struct {
	ID          string            `json:"id"`
	BankID      string            `json:"bankId"`
	AccountID   string            `json:"accountId"`
	Date        time.Time         `json:"date"`
	Description string            `json:"description"`
	Amount      decimal.Decimal   `json:"amount"`
	Balance     *decimal.Decimal  `json:"balance,omitempty"`
	Source      TransactionSource `json:"source"`
}

// MatchExplain is the audit payload for a scored pairing.
type MatchExplain struct {
	Score              float64               `json:"score"`
	StrongClosureCount int                   `json:"strongClosureCount"`
	DateDiffDays       int                   `json:"dateDiffDays"`
	SameAccount        bool                  `json:"sameAccount"`
	Hints              []string              `json:"hints,omitempty"`
	Penalties          []string              `json:"penalties,omitempty"`
	RefID              string                `json:"refId,omitempty"`
	AccountKeyMatch    bool                  `json:"accountKeyMatch"`
	AccountKeyMatchRev bool                  `json:"accountKeyMatchReverse"`
	NameMatch          bool                  `json:"nameMatch"`
	NameMatchRev       bool                  `json:"nameMatchReverse"`
	PayIDMatch         bool                  `json:"payIdMatch"`
	DebitEvidence      *TransferEvidence     `json:"debitEvidence,omitempty"`
	CreditEvidence     *TransferEvidence     `json:"creditEvidence,omitempty"`
	DebitMeta          *StatementAccountMeta `json:"debitMeta,omitempty"`
	CreditMeta         *StatementAccountMeta `json:"creditMeta,omitempty"`
}

// TransferMatchRow is one matched or uncertain pairing outcome.
type TransferMatchRow struct {
	MatchID     string              `json:"matchId"`
	State       MatchState          `json:"state"`
	Confidence  float64             `json:"confidence"`
	AmountCents int64               `json:"amountCents"`
	Debit       TransactionSnapshot `json:"debit"`
	Credit      TransactionSnapshot `json:"credit"`
	Explain     MatchExplain        `json:"explain"`
}

// TransferV3IgnoredReason tags a rejected candidate pair. Ignored rows
// are a distinct type so downstream consumers cannot treat them as
// financial matches.
type TransferV3IgnoredReason string

const (
	IgnoredSelfTransaction       TransferV3IgnoredReason = "SELF_TRANSACTION"
	IgnoredSameAccount           TransferV3IgnoredReason = "SAME_ACCOUNT"
	IgnoredMissingSourceIdentity TransferV3IgnoredReason = "MISSING_SOURCE_IDENTITY"
	IgnoredSameFile              TransferV3IgnoredReason = "SAME_FILE"
	IgnoredDateOutOfWindow       TransferV3IgnoredReason = "DATE_OUT_OF_WINDOW"
	IgnoredCreditAlreadyMatched  TransferV3IgnoredReason = "CREDIT_ALREADY_MATCHED"
	IgnoredLowConfidence         TransferV3IgnoredReason = "LOW_CONFIDENCE"
)

// TransferIgnoredRow is a candidate pair rejected before scoring or
// after scoring fell below the uncertain threshold.
type TransferIgnoredRow struct {
	Reason      TransferV3IgnoredReason `json:"reason"`
	AmountCents int64                   `json:"amountCents"`
	Debit       TransactionSnapshot     `json:"debit"`
	Credit      TransactionSnapshot     `json:"credit"`
	Score       float64                 `json:"score,omitempty"`
}

// CollisionBucket records a same-amount contest between credits for one
// debit. Audit only; never feeds financial decisions.
type CollisionBucket struct {
	AmountCents     int64    `json:"amountCents"`
	DebitID         string   `json:"debitId"`
	CandidateIDs    []string `json:"candidateIds"`
	CandidateDates  []string `json:"candidateDates"`
	BestScore       float64  `json:"bestScore"`
	SecondBestScore float64  `json:"secondBestScore"`
	ScoreGap        float64  `json:"scoreGap"`
}

// Snapshot builds the matcher's view of a transaction.
func Snapshot(t *NormalizedTransaction) TransactionSnapshot {
	return TransactionSnapshot{
		ID:          t.ID,
		BankID:      t.BankID,
		AccountID:   t.AccountID,
		Date:        t.Date,
		Description: t.DescriptionRaw,
		Amount:      t.Amount,
		Balance:     t.Balance,
		Source:      t.Source,
	}
}
