package models

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestComputeTransactionIDDeterministic(t *testing.T) {
	source := TransactionSource{FileID: "jan.txt"}
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	amount := decimal.NewFromFloat(-45)
	balance := decimal.NewFromFloat(905)

	a := ComputeTransactionID(source, 0, date, "WOOLWORTHS 1234", amount, &balance)
	b := ComputeTransactionID(source, 0, date, "WOOLWORTHS 1234", amount, &balance)
	if a != b {
		t.Error("identical input must produce identical ids")
	}
	if !strings.HasPrefix(a, "ntx_") || len(a) != len("ntx_")+24 {
		t.Errorf("id shape = %q", a)
	}

	c := ComputeTransactionID(source, 1, date, "WOOLWORTHS 1234", amount, &balance)
	if a == c {
		t.Error("row index must distinguish otherwise-identical rows")
	}

	d := ComputeTransactionID(source, 0, date, "WOOLWORTHS 1234", amount, nil)
	if a == d {
		t.Error("balance must participate in the id")
	}
}

func TestComputeDedupeKeyIgnoresFile(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	amount := decimal.NewFromFloat(-45)

	a := ComputeDedupeKey("acct", date, amount, "WOOLWORTHS 1234")
	b := ComputeDedupeKey("acct", date, amount, "woolworths  1234")
	if a != b {
		t.Error("dedupe key must normalize case and whitespace")
	}

	c := ComputeDedupeKey("other", date, amount, "WOOLWORTHS 1234")
	if a == c {
		t.Error("dedupe key must include the account")
	}
}

func TestNormalizeDescription(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Transfer   to  JOHN ", "TRANSFER TO JOHN"},
		{"PAYMENT*REF//99", "PAYMENT REF 99"},
		{"john.smith@example.com #99", "JOHN.SMITH@EXAMPLE.COM #99"},
	}
	for _, tt := range tests {
		if got := NormalizeDescription(tt.in); got != tt.want {
			t.Errorf("NormalizeDescription(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeMerchant(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"WOOLWORTHS 1234", "woolworths"},
		{"ACME WIDGETS PTY LTD", "acme widgets"},
		{"COFFEE CORNER CARLTON NORTH EXTRA", "coffee corner carlton north"},
	}
	for _, tt := range tests {
		if got := NormalizeMerchant(tt.in); got != tt.want {
			t.Errorf("NormalizeMerchant(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTransferTypeComplement(t *testing.T) {
	tests := []struct {
		in   TransferType
		want TransferType
	}{
		{TransferTo, TransferFrom},
		{TransferFrom, TransferTo},
		{PaymentTo, PaymentFrom},
		{PaymentFrom, PaymentTo},
		{TransferOsko, ""},
		{TransferNPP, ""},
	}
	for _, tt := range tests {
		if got := tt.in.Complement(); got != tt.want {
			t.Errorf("%s.Complement() = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestWithinMoneyTolerance(t *testing.T) {
	a := decimal.NewFromFloat(100.00)
	if !WithinMoneyTolerance(a, decimal.NewFromFloat(100.01)) {
		t.Error("one cent must be within tolerance")
	}
	if WithinMoneyTolerance(a, decimal.NewFromFloat(100.02)) {
		t.Error("two cents must be outside tolerance")
	}
}

func TestValidate(t *testing.T) {
	good := &NormalizedTransaction{
		ID:        "ntx_x",
		AccountID: "acct",
		Date:      time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}
	if err := good.Validate(); err != nil {
		t.Errorf("valid transaction rejected: %v", err)
	}

	for _, bad := range []*NormalizedTransaction{
		{AccountID: "acct", Date: good.Date},
		{ID: "ntx_x", Date: good.Date},
		{ID: "ntx_x", AccountID: "acct"},
	} {
		if err := bad.Validate(); err == nil {
			t.Errorf("invalid transaction accepted: %+v", bad)
		}
	}
}

func TestSourceHasIdentity(t *testing.T) {
	if (TransactionSource{}).HasIdentity() {
		t.Error("empty source must have no identity")
	}
	if !(TransactionSource{FileID: "a"}).HasIdentity() {
		t.Error("file id alone is identity")
	}
	if !(TransactionSource{FileHash: "h"}).HasIdentity() {
		t.Error("file hash alone is identity")
	}
}
