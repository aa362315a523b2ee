package cmd

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"statement-pdf-service/internal/render"
	"statement-pdf-service/internal/service"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show what the pipeline finds in a source, or describe a PDF",
	Long: `Inspect runs detection and layout on a spreadsheet without rendering it and
reports the header row, column styles, account details and block order.

Given a PDF, inspect reports its page count, page size and text length.

Examples:
  stmtpdf inspect march.xlsx
  stmtpdf inspect march.csv --report-format json --report-file analysis.json
  stmtpdf inspect Statement_192136847_02032025.pdf`,
	Args:    cobra.ExactArgs(1),
	PreRunE: validateInspectFlags,
	RunE:    runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringP("report-format", "f", "console", "report format: console, json, csv")
	inspectCmd.Flags().String("report-file", "", "write the report to a file instead of stdout")
	inspectCmd.Flags().StringP("template", "t", "", "layout template: statement, canonical, fast")
	addAccountFlags(inspectCmd)
}

func validateInspectFlags(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, "report-format", "report-file"); err != nil {
		return err
	}
	if err := validateInputFile(args[0], "input file"); err != nil {
		return err
	}
	if err := validateOutputDir(viper.GetString("report-file")); err != nil {
		return err
	}
	return validateReportFormat(viper.GetString("report-format"))
}

func runInspect(cmd *cobra.Command, args []string) error {
	format := viper.GetString("report-format")
	reportFile := viper.GetString("report-file")

	if strings.EqualFold(filepath.Ext(args[0]), ".pdf") {
		info, err := render.Inspect(args[0])
		if err != nil {
			return err
		}
		return writeReport(info, format, reportFile)
	}

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

	analysis, err := svc.AnalyzeRequest(ctx, service.Request{
		InputPath: args[0],
		Overrides: overrides,
	})
	if err != nil {
		return err
	}
	return writeReport(analysis, format, reportFile)
}
