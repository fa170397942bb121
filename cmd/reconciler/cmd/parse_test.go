package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"bank-transfer-reconciler/internal/templates"
)

const parsedStatement = `ACME BANK
BSB: 062-000
Account Number: 12345678
Statement Period: 1 Jan 2024 - 31 Jan 2024
Date Transaction Details Amount Balance
14 Jan 2024 OPENING DEPOSIT 950.00 950.00
15 Jan 2024 WOOLWORTHS 1234 -45.00 905.00
16 Jan 2024 TRANSFER TO JANE CITIZEN #77 -500.00 405.00
17 Jan 2024 COFFEE CORNER -5.00 400.00
18 Jan 2024 SALARY ACME 2,000.00 2,400.00
Closing Balance 2,400.00
`

func TestParseOneFileResolvesTransactionAccounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jan.txt")
	if err := os.WriteFile(path, []byte(parsedStatement), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	parseBankID = "harbour"
	parseTemplateID = templates.TemplateManualAmountBalance
	parseAccountID = ""
	parseCurrency = ""
	t.Cleanup(func() {
		parseBankID, parseTemplateID, parseAccountID, parseCurrency = "", "", "", ""
	})

	analysis, err := parseOneFile(templates.NewRegistry(), path)
	if err != nil {
		t.Fatalf("parseOneFile: %v", err)
	}

	const want = "062000-12345678"
	if analysis.AccountID != want {
		t.Fatalf("analysis account = %q, want %q", analysis.AccountID, want)
	}
	if len(analysis.Transactions) != 5 {
		t.Fatalf("transactions = %d, want 5", len(analysis.Transactions))
	}
	for _, tx := range analysis.Transactions {
		if tx.AccountID != want || tx.Source.AccountID != want {
			t.Errorf("transaction %s account = %q/%q, want %q",
				tx.ID, tx.AccountID, tx.Source.AccountID, want)
		}
	}
}
