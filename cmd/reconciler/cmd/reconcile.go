package cmd

import (
	"fmt"
	"os"
	"strings"

	appconfig "bank-transfer-reconciler/cmd/reconciler/config"
	"bank-transfer-reconciler/internal/reconciler"
	"bank-transfer-reconciler/internal/reporter"
	"bank-transfer-reconciler/internal/store"
	"bank-transfer-reconciler/internal/templates"
	"bank-transfer-reconciler/pkg/errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	bankID       string
	templateID   string
	accountID    string
	currency     string
	boundaryCSV  string
	outputFormat string
	windowDays   int
	minMatched   float64
	minUncertain float64
	showProgress bool
	showIgnored  bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [files...]",
	Short: "Parse statement files and reconcile internal transfers",
	Long: `Parse one or more bank statement files (PDF or plain text), extract
account identities, and pair internal transfers between boundary
accounts.

Each input file is parsed independently; a file that fails extraction
or parsing is reported but does not abort the batch.

Examples:
  reconciler reconcile --bank harbour --template manual_amount_balance jan.pdf feb.pdf
  reconciler reconcile --boundary 062000-12345678,062000-87654321 --output-format json *.txt
  reconciler reconcile --window-days 2 --output-format csv statements/*.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringVar(&bankID, "bank", "", "bank identifier for all input files")
	reconcileCmd.Flags().StringVar(&templateID, "template", "", "statement template id")
	reconcileCmd.Flags().StringVar(&accountID, "account", "", "caller-supplied account id")
	reconcileCmd.Flags().StringVar(&currency, "currency", "", "currency code (default AUD)")
	reconcileCmd.Flags().StringVar(&boundaryCSV, "boundary", "", "comma-separated boundary account ids")
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "o", "console", "output format (console, json, csv)")
	reconcileCmd.Flags().IntVar(&windowDays, "window-days", 1, "date tolerance for transfer pairing (0-7)")
	reconcileCmd.Flags().Float64Var(&minMatched, "min-matched", 0, "matched confidence floor (0 keeps the default)")
	reconcileCmd.Flags().Float64Var(&minUncertain, "min-uncertain", 0, "uncertain confidence floor (0 keeps the default)")
	reconcileCmd.Flags().BoolVar(&showProgress, "progress", false, "print progress while processing")
	reconcileCmd.Flags().BoolVar(&showIgnored, "show-ignored", false, "include ignored candidate pairs in output")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()

	format := reporter.OutputFormat(strings.ToLower(outputFormat))
	if !format.IsValid() {
		err := errors.ValidationError(errors.CodeInvalidValue, "output-format", outputFormat, nil).
			WithSuggestion("use one of: console, json, csv")
		os.Exit(handler.HandleError(err))
	}

	var st *store.Store
	if path := viper.GetString("store"); path != "" {
		opened, err := store.Open(path)
		if err != nil {
			os.Exit(handler.HandleError(err))
		}
		defer opened.Close()
		st = opened
	}

	orc := reconciler.NewOrchestrator(templates.NewRegistry(), st)
	if showProgress {
		orc.AddProgressCallback(func(p *reconciler.Progress) {
			fmt.Fprintf(os.Stderr, "[%d/%d] %s (%d/%d files)\n",
				p.CompletedSteps, p.TotalSteps, p.CurrentStep, p.FilesParsed, p.TotalFiles)
		})
	}

	req := appconfig.BuildRequest(appconfig.RequestOptions{
		Paths:        args,
		BankID:       bankID,
		TemplateID:   templateID,
		AccountID:    accountID,
		Currency:     currency,
		BoundaryIDs:  splitCSV(boundaryCSV),
		WindowDays:   windowDays,
		MinMatched:   minMatched,
		MinUncertain: minUncertain,
	})

	result, err := orc.Run(cmd.Context(), req)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	cfg := reporter.DefaultReportConfig()
	cfg.Format = format
	cfg.IncludeIgnored = showIgnored
	if err := reporter.NewReporter(cfg).Render(os.Stdout, result); err != nil {
		os.Exit(handler.HandleError(err))
	}
	return nil
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
