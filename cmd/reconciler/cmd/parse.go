package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"bank-transfer-reconciler/internal/extractor"
	"bank-transfer-reconciler/internal/identity"
	"bank-transfer-reconciler/internal/models"
	"bank-transfer-reconciler/internal/parsers"
	"bank-transfer-reconciler/internal/templates"

	"github.com/spf13/cobra"
)

var (
	parseBankID     string
	parseTemplateID string
	parseAccountID  string
	parseCurrency   string
	parseAsJSON     bool
)

var parseCmd = &cobra.Command{
	Use:   "parse [files...]",
	Short: "Parse statement files without reconciling",
	Long: `Parse one or more bank statement files into normalized transactions
and print the per-file analysis, including quality gates and review
reasons. No matching is performed.

Examples:
  reconciler parse --bank harbour --template manual_amount_balance jan.pdf
  reconciler parse --json statements/*.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVar(&parseBankID, "bank", "", "bank identifier for all input files")
	parseCmd.Flags().StringVar(&parseTemplateID, "template", "", "statement template id")
	parseCmd.Flags().StringVar(&parseAccountID, "account", "", "caller-supplied account id")
	parseCmd.Flags().StringVar(&parseCurrency, "currency", "", "currency code (default AUD)")
	parseCmd.Flags().BoolVar(&parseAsJSON, "json", false, "emit the full analyses as JSON")
}

func runParse(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()
	registry := templates.NewRegistry()

	var analyses []*models.ParsedFileAnalysis
	exitCode := 0

	for _, path := range args {
		analysis, err := parseOneFile(registry, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			exitCode = handler.ExitCodeFor(err)
			continue
		}
		analyses = append(analyses, analysis)
	}

	if parseAsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(analyses); err != nil {
			os.Exit(handler.HandleError(err))
		}
	} else {
		printParseSummary(analyses)
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}

func parseOneFile(registry *templates.Registry, path string) (*models.ParsedFileAnalysis, error) {
	extracted, err := extractor.ReadInput(path)
	if err != nil {
		return nil, err
	}

	analysis, err := parsers.ParseStatement(parsers.ParseInput{
		Text:       extracted.Text,
		TemplateID: parseTemplateID,
		BankID:     parseBankID,
		AccountID:  parseAccountID,
		FileID:     extracted.FileID,
		FileHash:   extracted.Hash,
		Currency:   parseCurrency,
	}, registry)
	if err != nil {
		return nil, err
	}

	meta := identity.Extract(extracted.Text, parseBankID, parseAccountID, parseTemplateID)
	resolved := identity.ResolveAccountID(meta, parseAccountID)
	meta.AccountID = resolved
	analysis.AccountMeta = meta
	if resolved != analysis.AccountID {
		analysis.AccountID = resolved
		for _, tx := range analysis.Transactions {
			tx.AccountID = resolved
			tx.Source.AccountID = resolved
		}
	}
	return analysis, nil
}

func printParseSummary(analyses []*models.ParsedFileAnalysis) {
	for _, a := range analyses {
		fileID := ""
		if len(a.Transactions) > 0 {
			fileID = a.Transactions[0].Source.FileID
		}
		status := "ok"
		if a.NeedsReview {
			status = "REVIEW: " + strings.Join(a.Quality.NeedsReviewReasons, ", ")
		}
		fmt.Printf("%-30s account=%s  %d transactions  %s\n",
			fileID, a.AccountID, len(a.Transactions), status)
		for _, w := range a.Warnings {
			fmt.Printf("  warning: %s\n", w)
		}
	}
}
