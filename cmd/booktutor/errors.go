package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/elee1766/booktutor/src/book"
	"github.com/elee1766/booktutor/src/config"
	"github.com/elee1766/booktutor/src/executor"
	"github.com/elee1766/booktutor/src/oaiclient"
	"github.com/elee1766/booktutor/src/orclient"
	"github.com/elee1766/booktutor/src/storage"
	"github.com/elee1766/booktutor/src/window"
)

// Exit codes following standard conventions
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error
	ExitUsage       = 2 // Usage error
	ExitConfig      = 3 // Configuration error
	ExitAuth        = 4 // Authentication error
	ExitNotFound    = 5 // Student, book or chapter not found
	ExitNetwork     = 6 // Network error
	ExitTimeout     = 7 // Timeout error
	ExitInterrupted = 8 // Interrupted by user
	ExitBudget      = 9 // Instruction or book info too large for the token budget
)

// ErrorHandler handles different types of errors and exits with appropriate codes
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleError handles an error and exits with the appropriate code
func (h *ErrorHandler) HandleError(err error) {
	if err == nil {
		return
	}
	h.logger.Debug("command failed", "error", err)
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
	os.Exit(exitCode(err))
}

// exitCode determines the appropriate exit code for an error
func exitCode(err error) int {
	var validation config.ValidationError
	var apiErr *orclient.APIError

	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &validation):
		return ExitConfig
	case errors.Is(err, orclient.ErrNoAPIKey), errors.Is(err, oaiclient.ErrNoAPIKey):
		return ExitAuth
	case errors.As(err, &apiErr) && apiErr.IsAuthError():
		return ExitAuth
	case errors.Is(err, window.ErrInstructionTooLarge), errors.Is(err, window.ErrContextTooLarge):
		return ExitBudget
	case errors.Is(err, executor.ErrImagesUnsupported):
		return ExitUsage
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, book.ErrBookNotFound),
		errors.Is(err, book.ErrChapterNotFound),
		errors.Is(err, book.ErrNoManifest):
		return ExitNotFound
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, orclient.ErrTimeout):
		return ExitTimeout
	case errors.As(err, &apiErr) && apiErr.IsRetryable():
		return ExitNetwork
	default:
		return ExitError
	}
}
