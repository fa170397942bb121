package parsers

import (
	"strings"
	"testing"

	"bank-transfer-reconciler/internal/models"

	"github.com/shopspring/decimal"
)

func TestParseAutoDCSignInference(t *testing.T) {
	tests := []struct {
		name       string
		block      string
		wantAmount string
		wantSource models.SignSource
		wantWarn   string
	}{
		{
			name:       "credit keyword",
			block:      "10 Feb 2024 SALARY ACME PTY LTD\n2,000.00 3,000.00",
			wantAmount: "2000",
			wantSource: models.SignKeyword,
		},
		{
			name:       "debit keyword",
			block:      "10 Feb 2024 TRANSFER TO JANE\n500.00 2,500.00",
			wantAmount: "-500",
			wantSource: models.SignKeyword,
		},
		{
			name:       "suffix wins without keyword",
			block:      "10 Feb 2024 MISC ADJUSTMENT\n50.00 CR 3,050.00",
			wantAmount: "50",
			wantSource: models.SignSuffix,
		},
		{
			name:       "default debit with warning",
			block:      "10 Feb 2024 MISC ADJUSTMENT\n50.00 3,000.00",
			wantAmount: "-50",
			wantSource: models.SignDefault,
			wantWarn:   models.WarnAmountSignUncertain,
		},
		{
			name:       "both keywords debit wins",
			block:      "10 Feb 2024 TRANSFER TO REFUND DESK\n75.00 2,925.00",
			wantAmount: "-75",
			wantSource: models.SignKeyword,
			wantWarn:   models.WarnDebitCreditBothSet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseAutoDC(tt.block, nil)
			if len(result.Rows) != 1 {
				t.Fatalf("expected 1 row, got %d", len(result.Rows))
			}
			row := result.Rows[0]

			if !row.Amount.Equal(decimal.RequireFromString(tt.wantAmount)) {
				t.Errorf("amount = %s, want %s", row.Amount, tt.wantAmount)
			}
			if row.SignSource != tt.wantSource {
				t.Errorf("sign source = %s, want %s", row.SignSource, tt.wantSource)
			}
			if tt.wantWarn != "" && !hasWarning(row.Warnings, tt.wantWarn) {
				t.Errorf("warnings = %v, want %s", row.Warnings, tt.wantWarn)
			}
		})
	}
}

func TestParseAutoDCBalanceDeltaInference(t *testing.T) {
	section := strings.Join([]string{
		"10 Feb 2024 SALARY ACME",
		"2,000.00 3,000.00",
		"11 Feb 2024 MYSTERY LINE ITEM",
		"150.00 3,150.00",
	}, "\n")

	result := ParseAutoDC(section, nil)
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}

	row := result.Rows[1]
	if !row.Amount.Equal(decimal.RequireFromString("150")) {
		t.Errorf("amount = %s, want +150 (balance rose)", row.Amount)
	}
	if row.SignSource != models.SignBalance {
		t.Errorf("sign source = %s, want %s", row.SignSource, models.SignBalance)
	}
	if hasWarning(row.Warnings, models.WarnAmountSignUncertain) {
		t.Errorf("sign warning should be cleared after balance inference: %v", row.Warnings)
	}
}

func TestParseAutoDCBalanceDeltaNeverOverridesKeyword(t *testing.T) {
	// Keyword says debit even though the printed balances rise; keyword
	// evidence must survive.
	section := strings.Join([]string{
		"10 Feb 2024 SALARY ACME",
		"2,000.00 3,000.00",
		"11 Feb 2024 TRANSFER TO JANE",
		"150.00 3,150.00",
	}, "\n")

	result := ParseAutoDC(section, nil)
	row := result.Rows[1]
	if !row.Amount.Equal(decimal.RequireFromString("-150")) {
		t.Errorf("amount = %s, want -150", row.Amount)
	}
	if row.SignSource != models.SignKeyword {
		t.Errorf("sign source = %s, want keyword", row.SignSource)
	}
}

func TestParseAutoDCMissingTokens(t *testing.T) {
	result := ParseAutoDC("10 Feb 2024 NOTHING NUMERIC HERE", nil)
	if len(result.Rows) != 0 {
		t.Fatalf("expected 0 rows, got %d", len(result.Rows))
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], models.WarnAmountTokenNotFound) {
		t.Errorf("warnings = %v, want %s", result.Warnings, models.WarnAmountTokenNotFound)
	}

	single := ParseAutoDC("10 Feb 2024 DEPOSIT\n40.00", nil)
	if len(single.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(single.Rows))
	}
	if !hasWarning(single.Rows[0].Warnings, models.WarnBalanceTokenNotFound) {
		t.Errorf("warnings = %v, want %s", single.Rows[0].Warnings, models.WarnBalanceTokenNotFound)
	}
}

func hasWarning(warnings []string, code string) bool {
	for _, w := range warnings {
		if strings.Contains(w, code) {
			return true
		}
	}
	return false
}
