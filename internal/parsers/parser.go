package parsers

import (
	"strings"

	"bank-transfer-reconciler/internal/models"
	"bank-transfer-reconciler/internal/quality"
	"bank-transfer-reconciler/internal/templates"
	"bank-transfer-reconciler/pkg/errors"
	"bank-transfer-reconciler/pkg/logger"
)

// DefaultCurrency applies when the caller does not declare one.
const DefaultCurrency = "AUD"

// ParseInput is one parse request: already-extracted statement text plus
// its declared bank/template hint and file identity.
type ParseInput struct {
	Text       string
	TemplateID string
	BankID     string
	AccountID  string
	FileID     string
	FileHash   string
	Currency   string
}

// ParseStatement turns raw statement text into a ParsedFileAnalysis.
// The analysis is a pure function of the input text and template
// configuration: parsing the same text twice produces identical
// transaction ids in identical order.
//
// Only structural problems (no text, no file id) are errors. Unknown
// templates, missing headers and unparseable rows all degrade into
// warnings and review reasons instead.
func ParseStatement(in ParseInput, reg *templates.Registry) (*models.ParsedFileAnalysis, error) {
	if strings.TrimSpace(in.FileID) == "" {
		return nil, errors.ParseError(errors.CodeMissingFileID, in.FileID, nil)
	}
	if strings.TrimSpace(in.Text) == "" {
		return nil, errors.ParseError(errors.CodeEmptyInput, in.FileID, nil)
	}

	log := logger.GetGlobalLogger().WithComponent("parser").WithFields(logger.Fields{
		"file_id":  in.FileID,
		"template": in.TemplateID,
	})

	seg := templates.Segment(in.Text, in.TemplateID, reg)
	tmpl, known := reg.Get(in.TemplateID)

	period := ParsePeriod(in.Text)

	grammar := templates.GrammarManual
	if known {
		grammar = tmpl.Grammar
	} else {
		log.Warn("unknown template, falling back to manual grammar")
	}

	var parsed GrammarResult
	switch grammar {
	case templates.GrammarAutoDC:
		parsed = ParseAutoDC(seg.SectionText, period)
	case templates.GrammarAltBank:
		parsed = ParseAltBank(seg.SectionText, period)
	default:
		parsed = ParseManual(seg.SectionText, period)
	}

	currency := in.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	accountID := in.AccountID
	if accountID == "" {
		accountID = models.DefaultAccountID
	}

	transactions := make([]*models.NormalizedTransaction, 0, len(parsed.Rows))
	for i, row := range parsed.Rows {
		transactions = append(transactions, normalizeRow(in, accountID, currency, seg.Debug.StartLine, i, row))
	}

	var tmplForQuality *templates.Template
	if known {
		tmplForQuality = tmpl
	}
	report := quality.AssessFile(tmplForQuality, seg.Debug.HeaderFound, transactions, parsed.Warnings, in.Text)

	analysis := &models.ParsedFileAnalysis{
		TemplateID:   in.TemplateID,
		BankID:       in.BankID,
		AccountID:    accountID,
		Transactions: transactions,
		Warnings:     parsed.Warnings,
		Quality:      report,
		NeedsReview:  len(report.NeedsReviewReasons) > 0,
		Segment:      seg.Debug,
	}

	log.WithFields(logger.Fields{
		"transactions": len(transactions),
		"warnings":     len(parsed.Warnings),
		"needs_review": analysis.NeedsReview,
	}).Debug("statement parsed")

	return analysis, nil
}

func normalizeRow(in ParseInput, accountID, currency string, segStart, index int, row Row) *models.NormalizedTransaction {
	source := models.TransactionSource{
		BankID:        in.BankID,
		AccountID:     accountID,
		TemplateID:    in.TemplateID,
		FileID:        in.FileID,
		FileHash:      in.FileHash,
		LineIndex:     segStart + row.LineIndex - 1,
		ParserVersion: models.ParserVersion,
	}

	descNorm := models.NormalizeDescription(row.Description)

	tx := &models.NormalizedTransaction{
		ID:              models.ComputeTransactionID(source, index, row.Date, row.Description, row.Amount, row.Balance),
		BankID:          in.BankID,
		AccountID:       accountID,
		TemplateID:      in.TemplateID,
		Date:            row.Date,
		Amount:          row.Amount,
		Balance:         row.Balance,
		Currency:        currency,
		DescriptionRaw:  row.Description,
		DescriptionNorm: descNorm,
		MerchantNorm:    models.NormalizeMerchant(row.Description),
		Source:          source,
		Warnings:        row.Warnings,
		Confidence:      row.Confidence,
		RawLine:         row.RawLine,
		SignSource:      row.SignSource,
	}
	tx.DedupeKey = models.ComputeDedupeKey(accountID, row.Date, row.Amount, descNorm)
	return tx
}
