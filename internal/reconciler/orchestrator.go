// Package reconciler orchestrates the full statement workflow: text
// extraction, per-file parsing, account identity resolution, transfer
// matching and boundary classification.
//
// The orchestrator owns the impure edges (file reads, the text cache)
// and feeds the pure core packages plain values. Per-file failures are
// isolated: one unreadable statement never aborts a batch.
//
// Example usage:
//
//	orc := reconciler.NewOrchestrator(reg, nil)
//	orc.AddProgressCallback(func(p *Progress) {
//		fmt.Printf("%s (%d/%d files)\n", p.CurrentStep, p.FilesParsed, p.TotalFiles)
//	})
//	result, err := orc.Run(ctx, request)
package reconciler

import (
	"context"
	"sync"
	"time"

	"bank-transfer-reconciler/internal/extractor"
	"bank-transfer-reconciler/internal/identity"
	"bank-transfer-reconciler/internal/matcher"
	"bank-transfer-reconciler/internal/models"
	"bank-transfer-reconciler/internal/parsers"
	"bank-transfer-reconciler/internal/store"
	"bank-transfer-reconciler/internal/templates"
	"bank-transfer-reconciler/pkg/errors"
	"bank-transfer-reconciler/pkg/logger"
)

// FileInput describes one statement file in a batch request. Text may
// be supplied directly; otherwise Path is extracted (with the store as
// a cache when available).
type FileInput struct {
	Path       string
	Text       string
	FileID     string
	BankID     string
	TemplateID string
	AccountID  string
	Currency   string
}

// Request is one batch reconciliation request.
type Request struct {
	Files       []FileInput
	BoundaryIDs []string
	Aliases     map[string]string
	Matching    matcher.Config
}

// FileOutcome pairs one input file with its parse result or error.
type FileOutcome struct {
	FileID   string
	Analysis *models.ParsedFileAnalysis
	Err      error
}

// Result is the batch output: per-file analyses plus the matching run
// with boundary decisions applied.
type Result struct {
	Files      []FileOutcome
	Match      *matcher.Result
	Boundaries map[string]matcher.BoundaryOutcome // keyed by match id
	Elapsed    time.Duration
}

// Progress tracks a running batch for callback consumers.
type Progress struct {
	CurrentStep    string        `json:"currentStep"`
	TotalSteps     int           `json:"totalSteps"`
	CompletedSteps int           `json:"completedSteps"`
	FilesParsed    int           `json:"filesParsed"`
	TotalFiles     int           `json:"totalFiles"`
	MatchesFound   int           `json:"matchesFound"`
	StartTime      time.Time     `json:"startTime"`
	Elapsed        time.Duration `json:"elapsed"`
	Errors         []string      `json:"errors,omitempty"`
}

// ProgressCallback is invoked after every step transition.
type ProgressCallback func(*Progress)

// Orchestrator coordinates the batch workflow. Safe for use from a
// single goroutine per Run call; distinct runs share no mutable state
// beyond the optional store.
type Orchestrator struct {
	registry *templates.Registry
	store    *store.Store // optional text cache and config source
	logger   logger.Logger

	callbacks []ProgressCallback
	progress  *Progress
	mu        sync.RWMutex
}

const totalSteps = 4 // extract+parse, identity, match, boundary

// NewOrchestrator builds an orchestrator. The store may be nil; then
// every file is extracted fresh and boundary/alias data must arrive on
// the request.
func NewOrchestrator(registry *templates.Registry, st *store.Store) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		store:    st,
		logger:   logger.GetGlobalLogger().WithComponent("orchestrator"),
		progress: &Progress{TotalSteps: totalSteps},
	}
}

// AddProgressCallback registers a progress consumer.
func (o *Orchestrator) AddProgressCallback(cb ProgressCallback) {
	o.callbacks = append(o.callbacks, cb)
}

// Run executes one batch. Per-file extraction or parse errors land in
// the file's outcome; only an empty request or a failed matching call
// returns an error.
func (o *Orchestrator) Run(ctx context.Context, req *Request) (*Result, error) {
	if req == nil || len(req.Files) == 0 {
		return nil, errors.ValidationError(errors.CodeMissingField, "files", nil, nil).
			WithSuggestion("supply at least one statement file")
	}

	start := time.Now()
	o.resetProgress(len(req.Files), start)

	result := &Result{Boundaries: make(map[string]matcher.BoundaryOutcome)}

	// Step 1: extract and parse each file in input order.
	o.step("parsing statement files")
	metadata := make(map[string]*models.StatementAccountMeta)
	var transactions []*models.NormalizedTransaction

	for _, file := range req.Files {
		if err := ctx.Err(); err != nil {
			return nil, errors.WrapIfNeeded(err, errors.CategoryInternal, errors.CodeUnexpected, "reconciliation cancelled")
		}

		outcome := o.processFile(file)
		result.Files = append(result.Files, outcome)
		o.fileDone(outcome.Err)
		if outcome.Err != nil {
			continue
		}

		// Step 2 per file: identity extraction and account resolution.
		analysis := outcome.Analysis
		if analysis.AccountMeta != nil {
			metadata[models.MetaKey(analysis.BankID, analysis.AccountID)] = analysis.AccountMeta
		}
		transactions = append(transactions, analysis.Transactions...)
	}
	o.step("account identities resolved")

	if len(transactions) == 0 {
		o.logger.Warn("no transactions parsed from any file, skipping matching")
		result.Elapsed = time.Since(start)
		return result, nil
	}

	// Step 3: run the matching engine over the combined set.
	o.step("matching transfers")
	boundaryIDs := req.BoundaryIDs
	aliases := req.Aliases
	if o.store != nil {
		if ids, err := o.store.ListBoundaryAccounts(); err == nil && len(boundaryIDs) == 0 {
			boundaryIDs = ids
		}
		if stored, err := o.store.Aliases(); err == nil && len(aliases) == 0 {
			aliases = stored
		}
	}

	match, err := matcher.Run(matcher.Input{
		Transactions: transactions,
		BoundaryIDs:  boundaryIDs,
		Metadata:     metadata,
		Aliases:      aliases,
		Config:       req.Matching,
	})
	if err != nil {
		return nil, err
	}
	result.Match = match
	o.setMatches(len(match.Rows))

	// Step 4: boundary decisions, annotated onto both sides.
	o.step("classifying boundaries")
	annotate := indexTransactions(transactions)
	for _, row := range match.Rows {
		outcome := matcher.DecideBoundary(row, boundaryIDs)
		result.Boundaries[row.MatchID] = outcome
		attachAnnotations(annotate, row, outcome)
	}

	result.Elapsed = time.Since(start)
	o.logger.WithFields(logger.Fields{
		"files":   len(req.Files),
		"rows":    len(match.Rows),
		"elapsed": result.Elapsed.String(),
	}).Info("reconciliation complete")

	return result, nil
}

// processFile resolves text for one file and parses it. All failures
// are captured in the outcome.
func (o *Orchestrator) processFile(file FileInput) FileOutcome {
	outcome := FileOutcome{FileID: file.FileID}

	text := file.Text
	fileHash := ""

	if text == "" && file.Path != "" {
		extracted, err := o.extract(file.Path)
		if err != nil {
			outcome.Err = err
			return outcome
		}
		text = extracted.Text
		fileHash = extracted.Hash
		if outcome.FileID == "" {
			outcome.FileID = extracted.FileID
		}
	}

	analysis, err := parsers.ParseStatement(parsers.ParseInput{
		Text:       text,
		TemplateID: file.TemplateID,
		BankID:     file.BankID,
		AccountID:  file.AccountID,
		FileID:     outcome.FileID,
		FileHash:   fileHash,
		Currency:   file.Currency,
	}, o.registry)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	meta := identity.Extract(text, file.BankID, file.AccountID, file.TemplateID)
	resolved := identity.ResolveAccountID(meta, file.AccountID)
	meta.AccountID = resolved
	analysis.AccountMeta = meta
	if resolved != analysis.AccountID {
		analysis.AccountID = resolved
		for _, tx := range analysis.Transactions {
			tx.AccountID = resolved
			tx.Source.AccountID = resolved
		}
	}

	outcome.Analysis = analysis
	return outcome
}

// extract reads a file through the store cache when one is configured.
func (o *Orchestrator) extract(path string) (*extractor.Extracted, error) {
	extracted, err := extractor.ReadInput(path)
	if err != nil {
		return nil, err
	}
	if o.store != nil {
		if cached, ok, cerr := o.store.GetStatementText(extracted.FileID, extracted.Hash); cerr == nil && ok {
			extracted.Text = cached
			return extracted, nil
		}
		if serr := o.store.SaveStatementText(extracted.FileID, extracted.Hash, extracted.Text); serr != nil {
			o.logger.WithFields(logger.Fields{"file": path}).Warn("could not cache statement text")
		}
	}
	return extracted, nil
}

// attachAnnotations writes the pairing outcome onto both transactions.
func attachAnnotations(index map[string]*models.NormalizedTransaction, row models.TransferMatchRow, outcome matcher.BoundaryOutcome) {
	explain := row.Explain
	base := models.TransferAnnotation{
		MatchID:    row.MatchID,
		State:      row.State,
		Method:     "transfer_v3",
		Confidence: row.Confidence,
		Decision:   outcome.Decision,
		KPIEffect:  outcome.KPIEffect,
		Explain:    &explain,
	}

	if debit, ok := index[row.Debit.ID]; ok {
		ann := base
		ann.Role = models.RoleOut
		ann.CounterpartyID = row.Credit.ID
		debit.Transfer = &ann
	}
	if credit, ok := index[row.Credit.ID]; ok {
		ann := base
		ann.Role = models.RoleIn
		ann.CounterpartyID = row.Debit.ID
		credit.Transfer = &ann
	}
}

func indexTransactions(txs []*models.NormalizedTransaction) map[string]*models.NormalizedTransaction {
	index := make(map[string]*models.NormalizedTransaction, len(txs))
	for _, tx := range txs {
		index[tx.ID] = tx
	}
	return index
}

func (o *Orchestrator) resetProgress(totalFiles int, start time.Time) {
	o.mu.Lock()
	o.progress = &Progress{
		TotalSteps: totalSteps,
		TotalFiles: totalFiles,
		StartTime:  start,
	}
	o.mu.Unlock()
}

func (o *Orchestrator) step(name string) {
	o.mu.Lock()
	o.progress.CurrentStep = name
	o.progress.CompletedSteps++
	o.progress.Elapsed = time.Since(o.progress.StartTime)
	snapshot := *o.progress
	o.mu.Unlock()
	o.notify(&snapshot)
}

func (o *Orchestrator) fileDone(err error) {
	o.mu.Lock()
	o.progress.FilesParsed++
	if err != nil {
		o.progress.Errors = append(o.progress.Errors, err.Error())
	}
	snapshot := *o.progress
	o.mu.Unlock()
	o.notify(&snapshot)
}

func (o *Orchestrator) setMatches(n int) {
	o.mu.Lock()
	o.progress.MatchesFound = n
	o.mu.Unlock()
}

func (o *Orchestrator) notify(p *Progress) {
	for _, cb := range o.callbacks {
		cb(p)
	}
}
