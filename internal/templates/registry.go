// Package templates holds the per-bank template registry and the
// segmenter that locates the transaction block inside raw statement text.
package templates

import "regexp"

// Grammar selects which line grammar parses a template's segment.
type Grammar string

const (
	GrammarManual  Grammar = "manual_amount_balance"
	GrammarAutoDC  Grammar = "auto_debit_credit"
	GrammarAltBank Grammar = "alt_bank"
)

// Well-known template ids.
const (
	TemplateManualAmountBalance = "manual_amount_balance"
	TemplateAutoDebitCredit     = "auto_debit_credit"
	TemplateAltBank             = "alt_bank"
)

// Template declares how one statement layout is segmented and parsed,
// plus the quality-gate toggles that apply to it.
type Template struct {
	ID     string
	BankID string

	Grammar Grammar

	// HeaderAnchors are fuzzy-matched against each line; the first hit
	// starts the segment.
	HeaderAnchors []string
	// StartAfterHeader skips the header line itself when true.
	StartAfterHeader bool
	// StopAnchors end the segment at the first matching line.
	StopAnchors []string
	// LineRemovals are applied only within the segment.
	LineRemovals []*regexp.Regexp

	// Quality-gate toggles.
	MinTransactions      int
	ContinuityThreshold  float64
	ContinuityMinSample  int
	CheckStatementTotals bool
}

// Registry maps template ids to their declarations.
type Registry struct {
	templates map[string]*Template
}

// NewRegistry returns a registry pre-loaded with the built-in templates.
func NewRegistry() *Registry {
	r := &Registry{templates: make(map[string]*Template)}

	pageNoise := []*regexp.Regexp{
		regexp.MustCompile(`(?i)^page \d+ of \d+$`),
		regexp.MustCompile(`(?i)^continued (on|from) (next|previous) page`),
		regexp.MustCompile(`(?i)^statement (no|number)[.:]?\s`),
	}

	r.Register(&Template{
		ID:      TemplateManualAmountBalance,
		BankID:  "harbour",
		Grammar: GrammarManual,
		HeaderAnchors: []string{
			"Date Transaction Details Amount Balance",
			"Transaction Details",
		},
		StartAfterHeader: true,
		StopAnchors: []string{
			"Closing Balance",
			"End of Statement",
		},
		LineRemovals:        pageNoise,
		MinTransactions:     5,
		ContinuityThreshold: 0.8,
		ContinuityMinSample: 4,
	})

	r.Register(&Template{
		ID:      TemplateAutoDebitCredit,
		BankID:  "meridian",
		Grammar: GrammarAutoDC,
		HeaderAnchors: []string{
			"Date Description Debits Credits Balance",
			"Transaction Summary",
		},
		StartAfterHeader: true,
		StopAnchors: []string{
			"Opening balance - Total debits + Total credits = Closing balance",
			"End of transaction listing",
		},
		LineRemovals:         pageNoise,
		MinTransactions:      5,
		ContinuityThreshold:  0.7,
		ContinuityMinSample:  6,
		CheckStatementTotals: true,
	})

	r.Register(&Template{
		ID:      TemplateAltBank,
		BankID:  "coastal",
		Grammar: GrammarAltBank,
		HeaderAnchors: []string{
			"Date Description Amount Balance",
		},
		StartAfterHeader: true,
		StopAnchors: []string{
			"Closing Balance",
		},
		LineRemovals:        pageNoise,
		MinTransactions:     5,
		ContinuityThreshold: 0.8,
		ContinuityMinSample: 4,
	})

	return r
}

// Register adds or replaces a template declaration.
func (r *Registry) Register(t *Template) {
	r.templates[t.ID] = t
}

// Get looks up a template by id.
func (r *Registry) Get(id string) (*Template, bool) {
	t, ok := r.templates[id]
	return t, ok
}

// IDs returns the registered template ids.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	return ids
}
