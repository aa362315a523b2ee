package cmd

import (
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"statement-pdf-service/pkg/errors"
)

// csv2xlsxCmd represents the csv2xlsx command
var csv2xlsxCmd = &cobra.Command{
	Use:   "csv2xlsx <input.csv>",
	Short: "Convert a CSV file to an Excel workbook",
	Long: `Csv2xlsx reads a CSV in any of the supported encodings and writes it to
Sheet1 of a new .xlsx workbook with a bold header row and fitted column widths.

Examples:
  stmtpdf csv2xlsx export.csv
  stmtpdf csv2xlsx export.csv -o out/export.xlsx`,
	Args:    cobra.ExactArgs(1),
	PreRunE: validateCSV2XLSXFlags,
	RunE:    runCSV2XLSX,
}

func init() {
	rootCmd.AddCommand(csv2xlsxCmd)

	csv2xlsxCmd.Flags().StringP("output", "o", "", "output .xlsx path (default: input name with .xlsx)")
}

func validateCSV2XLSXFlags(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, "output"); err != nil {
		return err
	}
	if err := validateInputFile(args[0], "CSV file"); err != nil {
		return err
	}
	if !strings.EqualFold(filepath.Ext(args[0]), ".csv") {
		return errors.FileError(errors.CodeUnsupportedFormat, args[0], nil).
			WithSuggestion("csv2xlsx only reads .csv files")
	}
	return validateOutputDir(viper.GetString("output"))
}

func runCSV2XLSX(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	svc, err := newService(cmd)
	if err != nil {
		return err
	}

	output := viper.GetString("output")
	if output == "" {
		output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".xlsx"
	}

	res, err := svc.CSVToExcel(ctx, args[0], output)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Wrote %d rows x %d columns (%s) to %s", res.Rows, res.Columns, res.Encoding, res.Path)
	return nil
}
