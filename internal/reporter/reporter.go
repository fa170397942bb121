// Package reporter renders batch reconciliation results for human and
// machine consumption.
//
// Supported output formats:
//   - Console: human-readable tabular output for terminal display
//   - JSON: structured data for programmatic consumption
//   - CSV: one row per matched or uncertain pairing
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"bank-transfer-reconciler/internal/matcher"
	"bank-transfer-reconciler/internal/models"
	"bank-transfer-reconciler/internal/reconciler"
	"bank-transfer-reconciler/pkg/errors"
)

// OutputFormat selects a rendering.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid reports whether the format is supported.
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds rendering options.
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	IncludeIgnored    bool `json:"include_ignored"`
	IncludeCollisions bool `json:"include_collisions"`
	IncludeWarnings   bool `json:"include_warnings"`

	CSVHeaders bool `json:"csv_headers"`
}

// DefaultReportConfig returns the standard console rendering.
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:          FormatConsole,
		IncludeWarnings: true,
		CSVHeaders:      true,
	}
}

// Reporter renders reconciliation results.
type Reporter struct {
	config *ReportConfig
}

// NewReporter builds a reporter; nil config falls back to defaults.
func NewReporter(config *ReportConfig) *Reporter {
	if config == nil {
		config = DefaultReportConfig()
	}
	return &Reporter{config: config}
}

// Render writes the batch result to w in the configured format.
func (r *Reporter) Render(w io.Writer, result *reconciler.Result) error {
	if result == nil {
		return errors.ValidationError(errors.CodeMissingField, "result", nil, nil)
	}
	switch r.config.Format {
	case FormatJSON:
		return r.renderJSON(w, result)
	case FormatCSV:
		return r.renderCSV(w, result)
	case FormatConsole:
		return r.renderConsole(w, result)
	default:
		return errors.ValidationError(errors.CodeInvalidValue, "format", string(r.config.Format), nil)
	}
}

func (r *Reporter) renderJSON(w io.Writer, result *reconciler.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonPayload(result, r.config))
}

type jsonReport struct {
	Files      []jsonFile                         `json:"files"`
	Rows       []models.TransferMatchRow          `json:"rows,omitempty"`
	Ignored    []models.TransferIgnoredRow        `json:"ignoredRows,omitempty"`
	Collisions []models.CollisionBucket           `json:"collisions,omitempty"`
	Boundaries map[string]matcher.BoundaryOutcome `json:"boundaries,omitempty"`
	Stats      *matcher.Stats                     `json:"stats,omitempty"`
}

type jsonFile struct {
	FileID       string   `json:"fileId"`
	Transactions int      `json:"transactions"`
	NeedsReview  bool     `json:"needsReview"`
	Reasons      []string `json:"reasons,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
	Error        string   `json:"error,omitempty"`
}

func jsonPayload(result *reconciler.Result, cfg *ReportConfig) jsonReport {
	report := jsonReport{Boundaries: result.Boundaries}

	for _, f := range result.Files {
		jf := jsonFile{FileID: f.FileID}
		if f.Err != nil {
			jf.Error = f.Err.Error()
		} else {
			jf.Transactions = len(f.Analysis.Transactions)
			jf.NeedsReview = f.Analysis.NeedsReview
			jf.Reasons = f.Analysis.Quality.NeedsReviewReasons
			if cfg.IncludeWarnings {
				jf.Warnings = f.Analysis.Warnings
			}
		}
		report.Files = append(report.Files, jf)
	}

	if result.Match != nil {
		report.Rows = result.Match.Rows
		report.Stats = &result.Match.Stats
		if cfg.IncludeIgnored {
			report.Ignored = result.Match.IgnoredRows
		}
		if cfg.IncludeCollisions {
			report.Collisions = result.Match.Collisions
		}
	}
	return report
}

var csvColumns = []string{
	"match_id", "state", "confidence", "amount_cents",
	"debit_id", "debit_account", "debit_date",
	"credit_id", "credit_account", "credit_date",
	"decision", "kpi_effect",
}

func (r *Reporter) renderCSV(w io.Writer, result *reconciler.Result) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if r.config.CSVHeaders {
		if err := writer.Write(csvColumns); err != nil {
			return err
		}
	}
	if result.Match == nil {
		return writer.Error()
	}

	for _, row := range result.Match.Rows {
		outcome := result.Boundaries[row.MatchID]
		record := []string{
			row.MatchID,
			string(row.State),
			fmt.Sprintf("%.2f", row.Confidence),
			fmt.Sprintf("%d", row.AmountCents),
			row.Debit.ID,
			row.Debit.AccountID,
			row.Debit.Date.Format("2006-01-02"),
			row.Credit.ID,
			row.Credit.AccountID,
			row.Credit.Date.Format("2006-01-02"),
			string(outcome.Decision),
			string(outcome.KPIEffect),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return writer.Error()
}

func (r *Reporter) renderConsole(w io.Writer, result *reconciler.Result) error {
	var b strings.Builder

	b.WriteString("STATEMENT FILES\n")
	b.WriteString(strings.Repeat("=", 60) + "\n")
	for _, f := range result.Files {
		if f.Err != nil {
			fmt.Fprintf(&b, "  %-30s ERROR: %v\n", f.FileID, f.Err)
			continue
		}
		status := "ok"
		if f.Analysis.NeedsReview {
			status = "REVIEW: " + strings.Join(f.Analysis.Quality.NeedsReviewReasons, ", ")
		}
		fmt.Fprintf(&b, "  %-30s %4d txs  %s\n", f.FileID, len(f.Analysis.Transactions), status)
		if r.config.IncludeWarnings {
			for _, warning := range f.Analysis.Warnings {
				fmt.Fprintf(&b, "    warning: %s\n", warning)
			}
		}
	}

	if result.Match != nil {
		b.WriteString("\nTRANSFER MATCHES\n")
		b.WriteString(strings.Repeat("=", 60) + "\n")
		for _, row := range result.Match.Rows {
			outcome := result.Boundaries[row.MatchID]
			fmt.Fprintf(&b, "  %-9s %7.2f  %s -> %s  $%s  %s/%s\n",
				row.State, row.Confidence,
				row.Debit.AccountID, row.Credit.AccountID,
				row.Debit.Amount.Abs().StringFixed(2),
				outcome.Decision, outcome.KPIEffect)
		}
		if len(result.Match.Rows) == 0 {
			b.WriteString("  (none)\n")
		}

		if r.config.IncludeIgnored {
			b.WriteString("\nIGNORED PAIRS\n")
			for _, ig := range result.Match.IgnoredRows {
				fmt.Fprintf(&b, "  %-24s %s / %s\n", ig.Reason, ig.Debit.ID, ig.Credit.ID)
			}
		}

		stats := result.Match.Stats
		b.WriteString("\nSUMMARY\n")
		b.WriteString(strings.Repeat("=", 60) + "\n")
		fmt.Fprintf(&b, "  transactions: %d  candidates: %d\n", stats.TotalTransactions, stats.Candidates)
		fmt.Fprintf(&b, "  matched: %d  uncertain: %d  ignored: %d\n",
			stats.Matched, stats.Uncertain, len(result.Match.IgnoredRows))
		fmt.Fprintf(&b, "  elapsed: %s\n", result.Elapsed)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
