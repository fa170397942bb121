// Package config builds the orchestrator request and component
// configurations from CLI inputs.
package config

import (
	"path/filepath"

	"bank-transfer-reconciler/internal/matcher"
	"bank-transfer-reconciler/internal/reconciler"
)

// RequestOptions carries the CLI flags that shape a batch request.
type RequestOptions struct {
	Paths        []string
	BankID       string
	TemplateID   string
	AccountID    string
	Currency     string
	BoundaryIDs  []string
	WindowDays   int
	MinMatched   float64
	MinUncertain float64
}

// BuildRequest assembles a reconciler request from CLI options. Every
// file gets a stable file id derived from its base name.
func BuildRequest(opts RequestOptions) *reconciler.Request {
	req := &reconciler.Request{
		BoundaryIDs: opts.BoundaryIDs,
		Matching:    CreateMatchingConfig(opts.WindowDays, opts.MinMatched, opts.MinUncertain),
	}

	for _, path := range opts.Paths {
		req.Files = append(req.Files, reconciler.FileInput{
			Path:       path,
			FileID:     filepath.Base(path),
			BankID:     opts.BankID,
			TemplateID: opts.TemplateID,
			AccountID:  opts.AccountID,
			Currency:   opts.Currency,
		})
	}

	return req
}

// CreateMatchingConfig creates a matching configuration from the flag
// values. Zero thresholds keep the defaults; out-of-range values are
// clamped by the engine itself.
func CreateMatchingConfig(windowDays int, minMatched, minUncertain float64) matcher.Config {
	cfg := matcher.DefaultConfig()
	cfg.WindowDays = windowDays
	if minMatched > 0 {
		cfg.MinMatched = minMatched
	}
	if minUncertain > 0 {
		cfg.MinUncertain = minUncertain
	}
	return cfg
}
