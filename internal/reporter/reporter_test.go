package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"bank-transfer-reconciler/internal/matcher"
	"bank-transfer-reconciler/internal/models"
	"bank-transfer-reconciler/internal/reconciler"
	"bank-transfer-reconciler/pkg/errors"

	"github.com/shopspring/decimal"
)

func snapshot(id, account string, amount float64) models.TransactionSnapshot {
	return models.TransactionSnapshot{
		ID:        id,
		BankID:    "harbour",
		AccountID: account,
		Date:      time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Amount:    decimal.NewFromFloat(amount),
		Source:    models.TransactionSource{FileID: "file-" + id},
	}
}

func sampleResult() *reconciler.Result {
	row := models.TransferMatchRow{
		MatchID:     "tm_sample",
		State:       models.MatchStateMatched,
		Confidence:  0.97,
		AmountCents: 50000,
		Debit:       snapshot("d1", "acct-a", -500),
		Credit:      snapshot("c1", "acct-b", 500),
	}

	return &reconciler.Result{
		Files: []reconciler.FileOutcome{
			{
				FileID: "jan.txt",
				Analysis: &models.ParsedFileAnalysis{
					TemplateID:   "manual_amount_balance",
					BankID:       "harbour",
					AccountID:    "acct-a",
					Transactions: []*models.NormalizedTransaction{{ID: "ntx_1"}, {ID: "ntx_2"}},
					Warnings:     []string{"AMOUNT_SIGN_UNCERTAIN"},
				},
			},
			{
				FileID: "broken.pdf",
				Err:    errors.ExtractError(errors.CodeNoTextLayer, "broken.pdf", nil),
			},
		},
		Match: &matcher.Result{
			Rows: []models.TransferMatchRow{row},
			IgnoredRows: []models.TransferIgnoredRow{
				{
					Reason: models.IgnoredSameAccount,
					Debit:  snapshot("d2", "acct-a", -10),
					Credit: snapshot("c2", "acct-a", 10),
				},
			},
			Stats: matcher.Stats{TotalTransactions: 4, Candidates: 4, Matched: 1},
		},
		Boundaries: map[string]matcher.BoundaryOutcome{
			"tm_sample": {
				Decision:  models.DecisionInternalOffset,
				KPIEffect: models.KPIExcluded,
				Why:       "both accounts inside the boundary",
			},
		},
		Elapsed: 12 * time.Millisecond,
	}
}

func TestRenderConsole(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&ReportConfig{Format: FormatConsole, IncludeIgnored: true, IncludeWarnings: true})

	if err := r.Render(&buf, sampleResult()); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"STATEMENT FILES",
		"jan.txt",
		"warning: AMOUNT_SIGN_UNCERTAIN",
		"broken.pdf",
		"ERROR:",
		"TRANSFER MATCHES",
		"acct-a -> acct-b",
		"INTERNAL_OFFSET/EXCLUDED",
		"IGNORED PAIRS",
		"SAME_ACCOUNT",
		"SUMMARY",
		"matched: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&ReportConfig{Format: FormatJSON, IncludeIgnored: true})

	if err := r.Render(&buf, sampleResult()); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	var decoded struct {
		Files []struct {
			FileID       string `json:"fileId"`
			Transactions int    `json:"transactions"`
			Error        string `json:"error"`
		} `json:"files"`
		Rows       []json.RawMessage `json:"rows"`
		Ignored    []json.RawMessage `json:"ignoredRows"`
		Boundaries map[string]struct {
			Decision string `json:"decision"`
		} `json:"boundaries"`
		Stats struct {
			Matched int `json:"matched"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid json: %v", err)
	}

	if len(decoded.Files) != 2 {
		t.Fatalf("files = %d, want 2", len(decoded.Files))
	}
	if decoded.Files[0].Transactions != 2 {
		t.Errorf("transactions = %d, want 2", decoded.Files[0].Transactions)
	}
	if decoded.Files[1].Error == "" {
		t.Error("failed file must carry its error")
	}
	if len(decoded.Rows) != 1 || len(decoded.Ignored) != 1 {
		t.Errorf("rows = %d, ignored = %d", len(decoded.Rows), len(decoded.Ignored))
	}
	if decoded.Boundaries["tm_sample"].Decision != "INTERNAL_OFFSET" {
		t.Errorf("boundary decision = %q", decoded.Boundaries["tm_sample"].Decision)
	}
	if decoded.Stats.Matched != 1 {
		t.Errorf("stats.matched = %d", decoded.Stats.Matched)
	}
}

func TestRenderCSV(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&ReportConfig{Format: FormatCSV, CSVHeaders: true})

	if err := r.Render(&buf, sampleResult()); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want header plus one row", len(records))
	}
	if records[0][0] != "match_id" {
		t.Errorf("header = %v", records[0])
	}

	row := records[1]
	if len(row) != len(csvColumns) {
		t.Fatalf("columns = %d, want %d", len(row), len(csvColumns))
	}
	if row[0] != "tm_sample" || row[1] != "matched" || row[3] != "50000" {
		t.Errorf("row = %v", row)
	}
	if row[10] != "INTERNAL_OFFSET" || row[11] != "EXCLUDED" {
		t.Errorf("boundary columns = %v", row[10:])
	}
}

func TestRenderRejectsBadInput(t *testing.T) {
	r := NewReporter(nil)
	if err := r.Render(&bytes.Buffer{}, nil); err == nil {
		t.Error("nil result must fail")
	}

	bad := NewReporter(&ReportConfig{Format: OutputFormat("xml")})
	if err := bad.Render(&bytes.Buffer{}, sampleResult()); err == nil {
		t.Error("unknown format must fail")
	}
}

func TestOutputFormatIsValid(t *testing.T) {
	for _, f := range []OutputFormat{FormatConsole, FormatJSON, FormatCSV} {
		if !f.IsValid() {
			t.Errorf("%s should be valid", f)
		}
	}
	if OutputFormat("yaml").IsValid() {
		t.Error("yaml is not a supported format")
	}
}
