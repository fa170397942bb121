package cmd

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"bank-transfer-reconciler/pkg/errors"
	"bank-transfer-reconciler/pkg/logger"

	"github.com/spf13/viper"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError handles errors and provides user-friendly messages
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Error("Command failed")

	if reconcilerErr, ok := errors.AsReconcilerError(err); ok {
		return h.handleReconcilerError(reconcilerErr)
	}

	return h.handleGenericError(err)
}

// handleReconcilerError handles ReconcilerError with detailed context
func (h *CLIErrorHandler) handleReconcilerError(err *errors.ReconcilerError) int {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		fmt.Fprintf(os.Stderr, "\nContext:\n")
		for key, value := range err.Context {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", err.Suggestion)
	}

	fmt.Fprintf(os.Stderr, "\n%s\n", h.getCategoryHelp(err.Category))

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

// ExitCodeFor maps an error to its exit code without printing the
// category help. Used when a batch keeps going after individual
// failures.
func (h *CLIErrorHandler) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if reconcilerErr, ok := errors.AsReconcilerError(err); ok {
		return reconcilerErr.GetExitCode()
	}
	return 1
}

// handleGenericError handles non-ReconcilerError types
func (h *CLIErrorHandler) handleGenericError(err error) int {
	if h.isFileNotFoundError(err) {
		fmt.Fprintf(os.Stderr, "Error: File not found\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	}

	if h.isPermissionError(err) {
		fmt.Fprintf(os.Stderr, "Error: Permission denied\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Check file permissions and ensure you have read access\n")
		return 2
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	if h.verbose {
		fmt.Fprintf(os.Stderr, "\nFor more details, check the logs or run with --verbose flag\n")
	}

	return 1
}

// getCategoryHelp returns category-specific help text
func (h *CLIErrorHandler) getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryFile:
		return `File error help:
• Check if the file exists and is readable
• Verify the file path is correct (use absolute paths if needed)
• Ensure you have proper permissions to access the file`

	case errors.CategoryExtract:
		return `Extraction error help:
• Scanned or image-only PDFs have no text layer and cannot be parsed
• Re-download the statement from your bank as a digital PDF
• Plain-text exports (.txt) are also accepted`

	case errors.CategoryParse:
		return `Parse error help:
• Verify the statement matches the declared --template
• Run with --verbose to see which lines were rejected
• Check the needs-review reasons in the output`

	case errors.CategoryMatching:
		return `Matching error help:
• Ensure statement files parsed successfully before matching
• Check that boundary account ids match the resolved account ids
• Run 'reconciler boundary list' to inspect the configured accounts`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Check flag values and the optional --config file
• Environment variables use the RECONCILER_ prefix`

	case errors.CategoryStore:
		return `Store error help:
• Check the --store path is writable
• Delete the database file to rebuild it from scratch`

	default:
		return `For more help, run with --verbose or check the documentation.`
	}
}

func (h *CLIErrorHandler) isFileNotFoundError(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "no such file")
}

func (h *CLIErrorHandler) isPermissionError(err error) bool {
	if os.IsPermission(err) {
		return true
	}
	return stderrors.Is(err, syscall.EACCES)
}
