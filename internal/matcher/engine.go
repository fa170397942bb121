// Package matcher pairs internal-transfer debits with their credits.
// Candidates are bucketed by absolute amount in cents, scored with an
// additive evidence model and assigned greedily so that no credit is
// claimed twice. Given identical input the engine always produces
// identical output; every sort comparator is fully specified.
package matcher

import (
	"fmt"
	"sort"
	"strings"

	"bank-transfer-reconciler/internal/evidence"
	"bank-transfer-reconciler/internal/models"
	"bank-transfer-reconciler/pkg/errors"
	"bank-transfer-reconciler/pkg/logger"

	"github.com/shopspring/decimal"
)

// Input is one matching run's worth of data. Metadata is keyed by
// models.MetaKey(bankID, accountID). Aliases map alternate account ids
// onto their canonical id before any same-account comparison.
type Input struct {
	Transactions []*models.NormalizedTransaction
	BoundaryIDs  []string
	Metadata     map[string]*models.StatementAccountMeta
	Aliases      map[string]string
	Config       Config
}

// Stats is the per-run tally block. Accumulators are local to the run;
// concurrent runs never share state.
type Stats struct {
	TotalTransactions int                                    `json:"totalTransactions"`
	Candidates        int                                    `json:"candidates"`
	Debits            int                                    `json:"debits"`
	Credits           int                                    `json:"credits"`
	Matched           int                                    `json:"matched"`
	Uncertain         int                                    `json:"uncertain"`
	Ignored           map[models.TransferV3IgnoredReason]int `json:"ignored,omitempty"`
	Penalties         map[string]int                         `json:"penalties,omitempty"`
}

// Result is the engine's output contract.
type Result struct {
	Rows        []models.TransferMatchRow   `json:"rows"`
	IgnoredRows []models.TransferIgnoredRow `json:"ignoredRows,omitempty"`
	Collisions  []models.CollisionBucket    `json:"collisions,omitempty"`
	Stats       Stats                       `json:"stats"`
}

// debitPool is one debit with its classified amount bucket.
type debitPool struct {
	debit      *side
	candidates []candidate
}

// Run executes one matching pass. Data-shape issues inside individual
// pairs never abort the run; only structurally malformed input fails
// the whole call.
func Run(in Input) (*Result, error) {
	if len(in.Transactions) == 0 {
		return nil, errors.MatchingError(errors.CodeNoInput, "", nil)
	}
	for i, tx := range in.Transactions {
		if tx == nil || tx.ID == "" || tx.AccountID == "" || tx.Date.IsZero() {
			return nil, errors.MatchingError(errors.CodeMalformedTransaction,
				fmt.Sprintf("index %d", i), nil)
		}
	}

	cfg := in.Config
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	cfg = cfg.Normalize()
	log := logger.GetGlobalLogger().WithComponent("matcher")

	result := &Result{Stats: Stats{
		TotalTransactions: len(in.Transactions),
		Ignored:           make(map[models.TransferV3IgnoredReason]int),
		Penalties:         make(map[string]int),
	}}

	boundary := make(map[string]bool, len(in.BoundaryIDs))
	for _, id := range in.BoundaryIDs {
		boundary[canonical(id, in.Aliases)] = true
	}

	debits, creditsByCents := buildBuckets(in, boundary, &result.Stats)

	pools := make([]debitPool, 0, len(debits))
	for _, d := range debits {
		pools = append(pools, buildPool(d, creditsByCents[amountCents(d.tx)], cfg, result))
	}

	// Process the strongest debit first so contested credits go to the
	// best-evidenced pairing.
	sort.SliceStable(pools, func(i, j int) bool {
		return poolLess(pools[i], pools[j])
	})

	claimed := make(map[string]bool)
	for _, pool := range pools {
		assignDebit(pool, cfg, claimed, result)
	}

	log.WithFields(logger.Fields{
		"candidates": result.Stats.Candidates,
		"matched":    result.Stats.Matched,
		"uncertain":  result.Stats.Uncertain,
	}).Info("matching run complete")

	return result, nil
}

// buildBuckets applies the candidacy filter and partitions candidates
// into debits and a cents-keyed credit map.
func buildBuckets(in Input, boundary map[string]bool, stats *Stats) ([]*side, map[int64][]*side) {
	var debits []*side
	creditsByCents := make(map[int64][]*side)

	for _, tx := range in.Transactions {
		if tx.Amount.IsZero() {
			continue
		}
		account := canonical(tx.AccountID, in.Aliases)
		if len(boundary) > 0 && !boundary[account] {
			continue
		}

		s := &side{
			tx:       tx,
			evidence: evidence.Extract(tx.DescriptionRaw, tx.MerchantNorm),
			meta:     in.Metadata[models.MetaKey(tx.BankID, tx.AccountID)],
			account:  account,
		}
		if !s.evidence.HasTransferHint() {
			continue
		}

		stats.Candidates++
		if tx.Amount.IsNegative() {
			stats.Debits++
			debits = append(debits, s)
		} else {
			stats.Credits++
			cents := amountCents(tx)
			creditsByCents[cents] = append(creditsByCents[cents], s)
		}
	}

	// Deterministic bucket order.
	for _, bucket := range creditsByCents {
		sort.SliceStable(bucket, func(i, j int) bool {
			if !bucket[i].tx.Date.Equal(bucket[j].tx.Date) {
				return bucket[i].tx.Date.Before(bucket[j].tx.Date)
			}
			return bucket[i].tx.ID < bucket[j].tx.ID
		})
	}
	sort.SliceStable(debits, func(i, j int) bool {
		if !debits[i].tx.Date.Equal(debits[j].tx.Date) {
			return debits[i].tx.Date.Before(debits[j].tx.Date)
		}
		return debits[i].tx.ID < debits[j].tx.ID
	})

	return debits, creditsByCents
}

// buildPool classifies every credit in the debit's amount bucket into a
// scored candidate or an ignored row with exactly one reason. Reason
// precedence is fixed: self, same account, missing identity, same
// file, date window.
func buildPool(debit *side, bucket []*side, cfg Config, result *Result) debitPool {
	pool := debitPool{debit: debit}

	for _, credit := range bucket {
		if reason, ok := excludeReason(debit, credit, cfg); ok {
			recordIgnored(result, reason, debit, credit, 0)
			continue
		}

		score, ex := scorePair(debit, credit)
		for _, p := range ex.Penalties {
			result.Stats.Penalties[p]++
		}
		pool.candidates = append(pool.candidates, candidate{
			credit:   credit,
			score:    score,
			strong:   ex.StrongClosureCount,
			dateDiff: ex.DateDiffDays,
			explain:  ex,
		})
	}

	sort.SliceStable(pool.candidates, func(i, j int) bool {
		return candidateLess(pool.candidates[i], pool.candidates[j])
	})

	if len(pool.candidates) > 1 {
		result.Collisions = append(result.Collisions, collisionBucket(debit, pool.candidates))
	}

	return pool
}

func excludeReason(debit, credit *side, cfg Config) (models.TransferV3IgnoredReason, bool) {
	switch {
	case debit.tx.ID == credit.tx.ID:
		return models.IgnoredSelfTransaction, true
	case debit.account == credit.account:
		return models.IgnoredSameAccount, true
	case !debit.tx.Source.HasIdentity() || !credit.tx.Source.HasIdentity():
		return models.IgnoredMissingSourceIdentity, true
	case sameFile(debit.tx.Source, credit.tx.Source):
		return models.IgnoredSameFile, true
	case dateDiffDays(debit.tx.Date, credit.tx.Date) > cfg.WindowDays:
		return models.IgnoredDateOutOfWindow, true
	}
	return "", false
}

func sameFile(a, b models.TransactionSource) bool {
	if a.FileID != "" && a.FileID == b.FileID {
		return true
	}
	return a.FileHash != "" && a.FileHash == b.FileHash
}

// assignDebit resolves one debit against the still-unclaimed credits.
func assignDebit(pool debitPool, cfg Config, claimed map[string]bool, result *Result) {
	if len(pool.candidates) == 0 {
		return
	}

	available := pool.candidates[:0:0]
	for _, c := range pool.candidates {
		if !claimed[c.credit.tx.ID] {
			available = append(available, c)
		}
	}

	if len(available) == 0 {
		best := pool.candidates[0]
		recordIgnored(result, models.IgnoredCreditAlreadyMatched, pool.debit, best.credit, best.score)
		return
	}

	best, state := selectBest(available, cfg)
	if state == "" {
		recordIgnored(result, models.IgnoredLowConfidence, pool.debit, best.credit, best.score)
		return
	}

	claimed[best.credit.tx.ID] = true
	row := models.TransferMatchRow{
		MatchID:     models.ComputeMatchID(pool.debit.tx.ID, best.credit.tx.ID),
		State:       state,
		Confidence:  best.explain.Score,
		AmountCents: amountCents(pool.debit.tx),
		Debit:       models.Snapshot(pool.debit.tx),
		Credit:      models.Snapshot(best.credit.tx),
		Explain:     best.explain,
	}
	result.Rows = append(result.Rows, row)
	if state == models.MatchStateMatched {
		result.Stats.Matched++
	} else {
		result.Stats.Uncertain++
	}
}

// selectBest applies the selection rules to an already-sorted candidate
// list. An empty state means the pair fell below the uncertain floor.
func selectBest(cands []candidate, cfg Config) (candidate, models.MatchState) {
	strong := 0
	for _, c := range cands {
		if c.strong > 0 {
			strong++
		}
	}

	top := cands[0]

	if strong == 1 && top.strong > 0 {
		// A lone strong-identity candidate is trusted over score.
		return top, models.MatchStateMatched
	}

	if strong > 1 {
		// Several candidates carry strong closure. Only a uniquely
		// bidirectional name match escapes the ambiguity downgrade.
		uniqueIdx := -1
		for i, c := range cands {
			if c.strong > 0 && c.explain.NameMatch && c.explain.NameMatchRev {
				if uniqueIdx >= 0 {
					uniqueIdx = -1
					break
				}
				uniqueIdx = i
			}
		}
		if uniqueIdx >= 0 {
			return cands[uniqueIdx], models.MatchStateMatched
		}
		top.explain.Penalties = append(top.explain.Penalties, PenaltyAmbiguousMulti)
		top.explain.Score = clamp01(top.explain.Score - penaltyAmbiguous)
		top.score = top.explain.Score
		if top.score < cfg.MinUncertain {
			return top, ""
		}
		return top, models.MatchStateUncertain
	}

	runnerUp := 0.0
	if len(cands) > 1 {
		runnerUp = cands[1].score
	}

	if top.explain.NameMatch || top.explain.NameMatchRev {
		bothHints := hasHint(top.explain, "BOTH_SIDES_HINTED")
		merchantPenalty := hasPenalty(top.explain, penaltyCodeMerchantLike)
		bidirectional := top.explain.NameMatch && top.explain.NameMatchRev

		if top.score >= cfg.MinMatched && bothHints && !merchantPenalty {
			// The one-directional path additionally requires a clear
			// margin over the runner-up; the bidirectional path does
			// not.
			if bidirectional || top.score-runnerUp > 0.05 {
				return top, models.MatchStateMatched
			}
		}
		if top.score >= cfg.MinUncertain {
			return top, models.MatchStateUncertain
		}
		return top, ""
	}

	switch {
	case top.score >= cfg.MinMatched:
		return top, models.MatchStateMatched
	case top.score >= cfg.MinUncertain:
		return top, models.MatchStateUncertain
	default:
		return top, ""
	}
}

func candidateLess(a, b candidate) bool {
	if a.strong != b.strong {
		return a.strong > b.strong
	}
	if a.score != b.score {
		return a.score > b.score
	}
	if a.dateDiff != b.dateDiff {
		return a.dateDiff < b.dateDiff
	}
	return a.credit.tx.ID < b.credit.tx.ID
}

func poolLess(a, b debitPool) bool {
	as, bs := poolRank(a), poolRank(b)
	if as.strong != bs.strong {
		return as.strong > bs.strong
	}
	if as.score != bs.score {
		return as.score > bs.score
	}
	if !a.debit.tx.Date.Equal(b.debit.tx.Date) {
		return a.debit.tx.Date.Before(b.debit.tx.Date)
	}
	return a.debit.tx.ID < b.debit.tx.ID
}

func poolRank(p debitPool) candidate {
	if len(p.candidates) == 0 {
		return candidate{}
	}
	return p.candidates[0]
}

func collisionBucket(debit *side, cands []candidate) models.CollisionBucket {
	bucket := models.CollisionBucket{
		AmountCents: amountCents(debit.tx),
		DebitID:     debit.tx.ID,
		BestScore:   cands[0].score,
	}
	if len(cands) > 1 {
		bucket.SecondBestScore = cands[1].score
	}
	bucket.ScoreGap = bucket.BestScore - bucket.SecondBestScore
	for _, c := range cands {
		bucket.CandidateIDs = append(bucket.CandidateIDs, c.credit.tx.ID)
		bucket.CandidateDates = append(bucket.CandidateDates, c.credit.tx.Date.Format("2006-01-02"))
	}
	return bucket
}

func recordIgnored(result *Result, reason models.TransferV3IgnoredReason, debit, credit *side, score float64) {
	result.Stats.Ignored[reason]++
	result.IgnoredRows = append(result.IgnoredRows, models.TransferIgnoredRow{
		Reason:      reason,
		AmountCents: amountCents(debit.tx),
		Debit:       models.Snapshot(debit.tx),
		Credit:      models.Snapshot(credit.tx),
		Score:       score,
	})
}

var hundred = decimal.NewFromInt(100)

func amountCents(tx *models.NormalizedTransaction) int64 {
	return tx.Amount.Abs().Round(2).Mul(hundred).IntPart()
}

func canonical(accountID string, aliases map[string]string) string {
	seen := map[string]bool{accountID: true}
	id := accountID
	for {
		next, ok := aliases[id]
		if !ok || seen[next] {
			return id
		}
		seen[next] = true
		id = next
	}
}

func hasHint(ex models.MatchExplain, code string) bool {
	for _, h := range ex.Hints {
		if h == code {
			return true
		}
	}
	return false
}

func hasPenalty(ex models.MatchExplain, code string) bool {
	for _, p := range ex.Penalties {
		if strings.HasPrefix(p, code) {
			return true
		}
	}
	return false
}
