package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"statement-pdf-service/internal/reporter"
	"statement-pdf-service/internal/service"
	"statement-pdf-service/pkg/logger"
)

// renderCmd represents the render command
var renderCmd = &cobra.Command{
	Use:   "render <input>",
	Short: "Render a bank statement PDF from a spreadsheet",
	Long: `Render reads an .xlsx, .xls or .csv export, finds the transaction table and
the account details, and writes a bank statement PDF.

Account details that are not found in the file fall back to defaults. Use
--account-file or --field to supply them.

Examples:
  # Statement next to the input, named Statement_<customer>_<from>.pdf
  stmtpdf render march.xlsx

  # Explicit output and account details
  stmtpdf render march.csv -o out/march.pdf \
    --field customer_id=192136847 --field transaction_date_from=01-03-2025

  # Plain table layout, rendered with maroto
  stmtpdf render march.xlsx --template fast --engine maroto

  # Publish the result to S3
  stmtpdf render march.xlsx --s3-bucket statements --s3-prefix 2025/03`,
	Args:    cobra.ExactArgs(1),
	PreRunE: validateRenderFlags,
	RunE:    runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringP("output", "o", "", "output PDF path (default: next to the input)")
	renderCmd.Flags().StringP("report-format", "f", "console", "summary format: console, json, csv")
	renderCmd.Flags().String("work-dir", "", "directory for temporary files")
	addRenderFlags(renderCmd)
	addAccountFlags(renderCmd)
	addConversionFlags(renderCmd)
}

func validateRenderFlags(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, "output", "report-format"); err != nil {
		return err
	}
	if err := validateInputFile(args[0], "input file"); err != nil {
		return err
	}
	if err := validateOutputDir(viper.GetString("output")); err != nil {
		return err
	}
	return validateReportFormat(viper.GetString("report-format"))
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	overrides, err := accountOverrides(cmd)
	if err != nil {
		return err
	}

	svc, err := newService(cmd)
	if err != nil {
		return err
	}

	logger.GetGlobalLogger().WithFields(logger.Fields{
		"input":  args[0],
		"output": viper.GetString("output"),
	}).Debug("Starting render")

	result, err := svc.Render(ctx, service.Request{
		InputPath:  args[0],
		OutputPath: viper.GetString("output"),
		Overrides:  overrides,
	})
	if err != nil {
		return err
	}

	format := viper.GetString("report-format")
	if err := writeReport(result, format, ""); err != nil {
		return err
	}
	if reporter.OutputFormat(format) == reporter.FormatConsole {
		pterm.Success.Printfln("Statement written to %s", result.OutputPath)
	}
	return nil
}
