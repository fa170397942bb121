package matcher

import (
	"testing"
	"time"

	"bank-transfer-reconciler/internal/models"
	"bank-transfer-reconciler/pkg/errors"

	"github.com/shopspring/decimal"
)

func mkTx(id, account, desc string, amount float64, day int, fileID string) *models.NormalizedTransaction {
	return &models.NormalizedTransaction{
		ID:             id,
		BankID:         "harbour",
		AccountID:      account,
		TemplateID:     "manual_amount_balance",
		Date:           time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		Amount:         decimal.NewFromFloat(amount),
		DescriptionRaw: desc,
		MerchantNorm:   models.NormalizeMerchant(desc),
		Source: models.TransactionSource{
			BankID:     "harbour",
			AccountID:  account,
			TemplateID: "manual_amount_balance",
			FileID:     fileID,
			FileHash:   "hash-" + fileID,
		},
	}
}

func metaFor(account, name string) map[string]*models.StatementAccountMeta {
	return map[string]*models.StatementAccountMeta{
		models.MetaKey("harbour", account): {
			BankID:      "harbour",
			AccountID:   account,
			AccountName: name,
		},
	}
}

func mergeMeta(maps ...map[string]*models.StatementAccountMeta) map[string]*models.StatementAccountMeta {
	out := make(map[string]*models.StatementAccountMeta)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

func TestRunMatchesReferencePair(t *testing.T) {
	debit := mkTx("d1", "acct-a", "TRANSFER TO JOHN SMITH #99", -500, 10, "file-a")
	credit := mkTx("c1", "acct-b", "TRANSFER FROM JOHN SMITH #99", 500, 10, "file-b")

	result, err := Run(Input{
		Transactions: []*models.NormalizedTransaction{debit, credit},
		Metadata: mergeMeta(
			metaFor("acct-a", "JOHN SMITH"),
			metaFor("acct-b", "JOHN SMITH"),
		),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(result.Rows))
	}
	row := result.Rows[0]
	if row.State != models.MatchStateMatched {
		t.Errorf("state = %s, want matched", row.State)
	}
	if row.Explain.StrongClosureCount == 0 {
		t.Error("matching reference ids must count as strong closure")
	}
	if row.AmountCents != 50000 {
		t.Errorf("amountCents = %d, want 50000", row.AmountCents)
	}
	if row.Debit.ID != "d1" || row.Credit.ID != "c1" {
		t.Errorf("pairing = %s/%s", row.Debit.ID, row.Credit.ID)
	}
}

func TestRunUnrelatedPairIsUncertainOrIgnored(t *testing.T) {
	debit := mkTx("d1", "acct-a", "TRANSFER TO SOMEONE", -500, 10, "file-a")
	credit := mkTx("c1", "acct-b", "TRANSFER FROM ANOTHER PARTY", 500, 10, "file-b")

	result, err := Run(Input{
		Transactions: []*models.NormalizedTransaction{debit, credit},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// No identity evidence: only hints, complement and date proximity.
	// That lands in the uncertain band, never matched.
	if len(result.Rows) == 1 {
		if result.Rows[0].State != models.MatchStateUncertain {
			t.Errorf("state = %s, want uncertain", result.Rows[0].State)
		}
		return
	}
	if len(result.IgnoredRows) != 1 || result.IgnoredRows[0].Reason != models.IgnoredLowConfidence {
		t.Errorf("expected LOW_CONFIDENCE ignore, got rows=%d ignored=%v", len(result.Rows), result.IgnoredRows)
	}
}

func TestRunIgnoredReasons(t *testing.T) {
	tests := []struct {
		name   string
		debit  *models.NormalizedTransaction
		credit *models.NormalizedTransaction
		want   models.TransferV3IgnoredReason
	}{
		{
			name:   "same account",
			debit:  mkTx("d1", "acct-a", "TRANSFER TO X", -100, 10, "file-a"),
			credit: mkTx("c1", "acct-a", "TRANSFER FROM X", 100, 10, "file-b"),
			want:   models.IgnoredSameAccount,
		},
		{
			name:   "same file",
			debit:  mkTx("d1", "acct-a", "TRANSFER TO X", -100, 10, "file-a"),
			credit: mkTx("c1", "acct-b", "TRANSFER FROM X", 100, 10, "file-a"),
			want:   models.IgnoredSameFile,
		},
		{
			name:   "date out of window",
			debit:  mkTx("d1", "acct-a", "TRANSFER TO X", -100, 10, "file-a"),
			credit: mkTx("c1", "acct-b", "TRANSFER FROM X", 100, 14, "file-b"),
			want:   models.IgnoredDateOutOfWindow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Run(Input{
				Transactions: []*models.NormalizedTransaction{tt.debit, tt.credit},
			})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if len(result.Rows) != 0 {
				t.Fatalf("rows = %d, want 0", len(result.Rows))
			}
			if len(result.IgnoredRows) != 1 || result.IgnoredRows[0].Reason != tt.want {
				t.Errorf("ignored = %v, want %s", result.IgnoredRows, tt.want)
			}
		})
	}
}

func TestRunMissingSourceIdentity(t *testing.T) {
	debit := mkTx("d1", "acct-a", "TRANSFER TO X", -100, 10, "file-a")
	credit := mkTx("c1", "acct-b", "TRANSFER FROM X", 100, 10, "file-b")
	credit.Source.FileID = ""
	credit.Source.FileHash = ""

	result, err := Run(Input{
		Transactions: []*models.NormalizedTransaction{debit, credit},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.IgnoredRows) != 1 || result.IgnoredRows[0].Reason != models.IgnoredMissingSourceIdentity {
		t.Errorf("ignored = %v, want MISSING_SOURCE_IDENTITY", result.IgnoredRows)
	}
}

func TestRunCreditClaimedOnce(t *testing.T) {
	debitA := mkTx("d1", "acct-a", "TRANSFER TO JOHN SMITH #99", -500, 10, "file-a")
	debitB := mkTx("d2", "acct-c", "TRANSFER TO JOHN SMITH", -500, 10, "file-c")
	credit := mkTx("c1", "acct-b", "TRANSFER FROM JOHN SMITH #99", 500, 10, "file-b")

	result, err := Run(Input{
		Transactions: []*models.NormalizedTransaction{debitA, debitB, credit},
		Metadata:     metaFor("acct-b", "JOHN SMITH"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	creditUses := 0
	for _, row := range result.Rows {
		if row.Credit.ID == "c1" {
			creditUses++
		}
	}
	if creditUses != 1 {
		t.Fatalf("credit claimed %d times, want exactly 1", creditUses)
	}

	// The losing debit must surface as ignored, not vanish.
	found := false
	for _, ig := range result.IgnoredRows {
		if ig.Reason == models.IgnoredCreditAlreadyMatched || ig.Reason == models.IgnoredLowConfidence {
			found = true
		}
	}
	if !found {
		t.Errorf("losing debit not recorded: %v", result.IgnoredRows)
	}

	// The ref-bearing debit holds the stronger evidence and must win.
	if len(result.Rows) > 0 && result.Rows[0].Debit.ID != "d1" {
		t.Errorf("winner = %s, want d1", result.Rows[0].Debit.ID)
	}
}

func TestRunBoundaryListFiltersCandidates(t *testing.T) {
	debit := mkTx("d1", "acct-a", "TRANSFER TO JOHN SMITH #99", -500, 10, "file-a")
	credit := mkTx("c1", "acct-b", "TRANSFER FROM JOHN SMITH #99", 500, 10, "file-b")

	result, err := Run(Input{
		Transactions: []*models.NormalizedTransaction{debit, credit},
		BoundaryIDs:  []string{"acct-a"}, // credit's account excluded
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Rows) != 0 {
		t.Errorf("rows = %d, want 0 when counterparty is outside the boundary list", len(result.Rows))
	}
	if result.Stats.Candidates != 1 {
		t.Errorf("candidates = %d, want 1", result.Stats.Candidates)
	}
}

func TestRunZeroAmountAndHintlessExcluded(t *testing.T) {
	zero := mkTx("z1", "acct-a", "TRANSFER TO X", 0, 10, "file-a")
	merchant := mkTx("m1", "acct-a", "WOOLWORTHS 1234", -500, 10, "file-a")
	credit := mkTx("c1", "acct-b", "TRANSFER FROM X", 500, 10, "file-b")

	result, err := Run(Input{
		Transactions: []*models.NormalizedTransaction{zero, merchant, credit},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stats.Candidates != 1 {
		t.Errorf("candidates = %d, want only the hinted credit", result.Stats.Candidates)
	}
	if len(result.Rows) != 0 {
		t.Errorf("rows = %d, want 0", len(result.Rows))
	}
}

func TestRunAliasFolding(t *testing.T) {
	debit := mkTx("d1", "acct-a", "TRANSFER TO X", -100, 10, "file-a")
	credit := mkTx("c1", "acct-a-alias", "TRANSFER FROM X", 100, 10, "file-b")

	result, err := Run(Input{
		Transactions: []*models.NormalizedTransaction{debit, credit},
		Aliases:      map[string]string{"acct-a-alias": "acct-a"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.IgnoredRows) != 1 || result.IgnoredRows[0].Reason != models.IgnoredSameAccount {
		t.Errorf("aliased accounts must be treated as the same account: %v", result.IgnoredRows)
	}
}

func TestRunCollisionTracking(t *testing.T) {
	debit := mkTx("d1", "acct-a", "TRANSFER TO JOHN SMITH #99", -500, 10, "file-a")
	creditA := mkTx("c1", "acct-b", "TRANSFER FROM JOHN SMITH #99", 500, 10, "file-b")
	creditB := mkTx("c2", "acct-c", "TRANSFER FROM JOHN SMITH", 500, 10, "file-c")

	result, err := Run(Input{
		Transactions: []*models.NormalizedTransaction{debit, creditA, creditB},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Collisions) != 1 {
		t.Fatalf("collisions = %d, want 1", len(result.Collisions))
	}
	bucket := result.Collisions[0]
	if bucket.DebitID != "d1" || len(bucket.CandidateIDs) != 2 {
		t.Errorf("bucket = %+v", bucket)
	}
	if bucket.ScoreGap < 0 {
		t.Errorf("score gap negative: %v", bucket.ScoreGap)
	}
}

func TestRunStructuralErrors(t *testing.T) {
	_, err := Run(Input{})
	if rerr, ok := errors.AsReconcilerError(err); !ok || rerr.Code != errors.CodeNoInput {
		t.Errorf("empty input: got %v", err)
	}

	bad := mkTx("", "acct-a", "TRANSFER TO X", -100, 10, "file-a")
	_, err = Run(Input{Transactions: []*models.NormalizedTransaction{bad}})
	if rerr, ok := errors.AsReconcilerError(err); !ok || rerr.Code != errors.CodeMalformedTransaction {
		t.Errorf("malformed transaction: got %v", err)
	}
}

func TestRunDeterministic(t *testing.T) {
	build := func() []*models.NormalizedTransaction {
		return []*models.NormalizedTransaction{
			mkTx("d1", "acct-a", "TRANSFER TO JOHN SMITH #99", -500, 10, "file-a"),
			mkTx("d2", "acct-c", "TRANSFER TO JOHN SMITH", -500, 10, "file-c"),
			mkTx("c1", "acct-b", "TRANSFER FROM JOHN SMITH #99", 500, 10, "file-b"),
			mkTx("c2", "acct-d", "TRANSFER FROM JOHN SMITH", 500, 11, "file-d"),
		}
	}

	first, err := Run(Input{Transactions: build()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	second, err := Run(Input{Transactions: build()})
	if err != nil {
		t.Fatalf("Run (second): %v", err)
	}

	if len(first.Rows) != len(second.Rows) {
		t.Fatalf("row counts differ: %d vs %d", len(first.Rows), len(second.Rows))
	}
	for i := range first.Rows {
		if first.Rows[i].MatchID != second.Rows[i].MatchID {
			t.Errorf("row %d match id differs between identical runs", i)
		}
	}
}
