package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/viper"

	"statement-pdf-service/pkg/errors"
	"statement-pdf-service/pkg/logger"
)

var (
	errorLabel      = color.New(color.FgRed, color.Bold).SprintFunc()
	suggestionLabel = color.New(color.FgYellow, color.Bold).SprintFunc()
	helpText        = color.New(color.FgCyan).SprintFunc()
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
	out     io.Writer
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	if viper.GetBool("no-color") {
		color.NoColor = true
	}
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
		out:     os.Stderr,
	}
}

// HandleError prints err and returns the process exit code
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Debug("Command failed")

	if appErr, ok := errors.AsAppError(err); ok {
		return h.handleAppError(appErr)
	}
	return h.handleGenericError(err)
}

func (h *CLIErrorHandler) handleAppError(err *errors.AppError) int {
	fmt.Fprintf(h.out, "%s %s\n", errorLabel("Error:"), err.Message)

	if len(err.Context) > 0 {
		keys := make([]string, 0, len(err.Context))
		for k := range err.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintf(h.out, "\nContext:\n")
		for _, k := range keys {
			fmt.Fprintf(h.out, "  %s: %v\n", k, err.Context[k])
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(h.out, "\n%s %s\n", suggestionLabel("Suggestion:"), err.Suggestion)
	}

	fmt.Fprintf(h.out, "\n%s\n", helpText(getCategoryHelp(err.Category)))

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(h.out, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

func (h *CLIErrorHandler) handleGenericError(err error) int {
	switch {
	case isFileNotFoundError(err):
		fmt.Fprintf(h.out, "%s File not found\n", errorLabel("Error:"))
		fmt.Fprintf(h.out, "%s Check if the file path is correct and the file exists\n", suggestionLabel("Suggestion:"))
		return 2
	case isPermissionError(err):
		fmt.Fprintf(h.out, "%s Permission denied\n", errorLabel("Error:"))
		fmt.Fprintf(h.out, "%s Check file permissions and ensure you have read access\n", suggestionLabel("Suggestion:"))
		return 2
	case isDiskFullError(err):
		fmt.Fprintf(h.out, "%s Insufficient disk space\n", errorLabel("Error:"))
		fmt.Fprintf(h.out, "%s Free up disk space and try again\n", suggestionLabel("Suggestion:"))
		return 2
	}

	fmt.Fprintf(h.out, "%s %v\n", errorLabel("Error:"), err)
	if !h.verbose {
		fmt.Fprintf(h.out, "\nRun with --verbose for more detail\n")
	}
	return 1
}

// getCategoryHelp returns category-specific help text
func getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryFile:
		return `File error help:
• Check that the file exists and is readable
• Statements must be .xlsx, .xls or .csv
• Re-export the spreadsheet if it was saved by an unusual tool`

	case errors.CategoryParse, errors.CategoryValidation:
		return `Input error help:
• Check the command-line arguments and --field values
• Account fields are customer_id, account_holder_name, account_number, address,
  transaction_date_from, transaction_date_to, amount_from, amount_to,
  cheque_from, cheque_to and transaction_type`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Verify the config file syntax if using --config
• Use 'stmtpdf <command> --help' to see all available options
• Try running with default settings first`

	case errors.CategoryConversion:
		return `Conversion error help:
• Install LibreOffice or pass --soffice with the path to soffice
• Raise --timeout for large documents
• Check the tool output in the context above`

	case errors.CategoryRender:
		return `Render error help:
• Try the other PDF engine with --engine gofpdf or --engine maroto
• Check that the output directory is writable`

	case errors.CategoryStorage:
		return `Publishing error help:
• Check the bucket name, region and AWS credentials
• For --publish local, check that the storage directory is writable`

	default:
		return `For more help:
• Use 'stmtpdf --help' for general help
• Use 'stmtpdf <command> --help' for command-specific help`
	}
}

func isFileNotFoundError(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "no such file or directory")
}

func isPermissionError(err error) bool {
	return os.IsPermission(err) ||
		strings.Contains(err.Error(), "permission denied") ||
		strings.Contains(err.Error(), "access denied")
}

func isDiskFullError(err error) bool {
	if err == syscall.ENOSPC {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "no space left") ||
		strings.Contains(errStr, "disk full") ||
		strings.Contains(errStr, "device full")
}
