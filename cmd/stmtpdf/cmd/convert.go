package cmd

import (
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"statement-pdf-service/internal/convert"
	"statement-pdf-service/pkg/errors"
)

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert <document>",
	Short: "Convert an office document to PDF",
	Long: `Convert turns .ppt, .pptx, .doc, .docx, .odt, .xls and .xlsx documents into PDF.

Spreadsheets are tried with Microsoft Excel first on Windows, then with
LibreOffice. Everything else goes straight to LibreOffice.

Examples:
  stmtpdf convert deck.pptx
  stmtpdf convert report.docx --outdir out/ --timeout 3m
  stmtpdf convert book.xlsx --soffice /opt/libreoffice/program/soffice`,
	Args:    cobra.ExactArgs(1),
	PreRunE: validateConvertFlags,
	RunE:    runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().String("outdir", "", "output directory (default: next to the input)")
	addConversionFlags(convertCmd)
}

func validateConvertFlags(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, "outdir"); err != nil {
		return err
	}
	if err := validateInputFile(args[0], "document"); err != nil {
		return err
	}
	if !convert.IsOfficeFile(args[0]) {
		return errors.FileError(errors.CodeUnsupportedFormat, args[0], nil).
			WithSuggestion("Supported documents: " + strings.Join(convert.OfficeExtensions, ", "))
	}
	if dir := viper.GetString("outdir"); dir != "" {
		return validateOutputDir(filepath.Join(dir, "x"))
	}
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	svc, err := newService(cmd)
	if err != nil {
		return err
	}

	outDir := viper.GetString("outdir")
	if outDir == "" {
		outDir = filepath.Dir(args[0])
	}

	res, err := svc.ConvertOffice(ctx, args[0], outDir)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Converted %s to %s with %s in %s", filepath.Base(args[0]), res.Path, res.Strategy, res.Duration.Round(1e6))
	return nil
}
