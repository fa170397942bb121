package parsers

import (
	"strings"
	"testing"

	"bank-transfer-reconciler/internal/models"

	"github.com/shopspring/decimal"
)

func TestParseManualSingleLine(t *testing.T) {
	result := ParseManual("15 Jan 2024 WOOLWORTHS 1234 -45.00 905.00", nil)

	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}
	row := result.Rows[0]

	if !row.Amount.Equal(decimal.RequireFromString("-45")) {
		t.Errorf("amount = %s, want -45.00", row.Amount)
	}
	if row.Balance == nil || !row.Balance.Equal(decimal.RequireFromString("905")) {
		t.Errorf("balance = %v, want 905.00", row.Balance)
	}
	if row.Confidence != 0.95 {
		t.Errorf("confidence = %v, want 0.95", row.Confidence)
	}
	if row.Description != "WOOLWORTHS 1234" {
		t.Errorf("description = %q", row.Description)
	}
	if row.Date.Year() != 2024 || row.Date.Day() != 15 {
		t.Errorf("date = %s", row.Date)
	}
}

func TestParseManualMultiLineTransaction(t *testing.T) {
	section := strings.Join([]string{
		"16 Jan 2024 TRANSFER TO JOHN SMITH",
		"REF 123456789",
		"-500.00 405.00",
	}, "\n")

	result := ParseManual(section, nil)
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}
	row := result.Rows[0]

	if !row.Amount.Equal(decimal.RequireFromString("-500")) {
		t.Errorf("amount = %s, want -500.00", row.Amount)
	}
	if row.Description != "TRANSFER TO JOHN SMITH REF 123456789" {
		t.Errorf("description = %q", row.Description)
	}
	// One continuation line decays confidence by one step.
	if row.Confidence != 0.95-0.05 {
		t.Errorf("confidence = %v, want 0.90", row.Confidence)
	}
}

func TestParseManualUnterminatedAtEOF(t *testing.T) {
	result := ParseManual("17 Jan 2024 PENDING DESCRIPTION ONLY", nil)

	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], models.WarnUnterminatedTransaction) {
		t.Fatalf("warnings = %v, want one %s", result.Warnings, models.WarnUnterminatedTransaction)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected the unterminated row to be kept, got %d rows", len(result.Rows))
	}
	if !result.Rows[0].Amount.IsZero() {
		t.Errorf("unterminated row amount = %s, want 0", result.Rows[0].Amount)
	}
}

func TestParseManualUnterminatedBeforeNextDate(t *testing.T) {
	section := strings.Join([]string{
		"17 Jan 2024 NO AMOUNT HERE",
		"18 Jan 2024 GROCERIES -20.00 885.00",
	}, "\n")

	result := ParseManual(section, nil)
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", result.Warnings)
	}
	if !result.Rows[1].Amount.Equal(decimal.RequireFromString("-20")) {
		t.Errorf("second row amount = %s, want -20.00", result.Rows[1].Amount)
	}
}

func TestParseManualTrailingNoiseDecaysPreviousRow(t *testing.T) {
	section := strings.Join([]string{
		"15 Jan 2024 GROCERIES -45.00 905.00",
		"EFFECTIVE DATE 14 JAN",
	}, "\n")

	result := ParseManual(section, nil)
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}
	row := result.Rows[0]
	if !strings.Contains(row.Description, "EFFECTIVE DATE 14 JAN") {
		t.Errorf("description = %q, continuation not appended", row.Description)
	}
	if row.Confidence != 0.95-0.05 {
		t.Errorf("confidence = %v, want decayed 0.90", row.Confidence)
	}
}

func TestParseAltBankNormalizesVariants(t *testing.T) {
	result := ParseAltBank("15-01-2024 SALARY AUD 2,000.00 Cr 3,000.00 Cr", nil)

	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}
	row := result.Rows[0]
	if !row.Amount.Equal(decimal.RequireFromString("2000")) {
		t.Errorf("amount = %s, want 2000.00 (Cr is positive)", row.Amount)
	}
	if row.Date.Year() != 2024 || row.Date.Month() != 1 {
		t.Errorf("date = %s", row.Date)
	}
}
