package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"statement-pdf-service/cmd/stmtpdf/config"
	"statement-pdf-service/internal/api"
	"statement-pdf-service/pkg/errors"
	"statement-pdf-service/pkg/logger"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the statement API over HTTP",
	Long: `Serve starts the HTTP API:

  POST /api/excel-to-pdf-bank-statement  statement PDF with account form fields
  POST /api/excel-to-pdf-fast            plain table PDF
  POST /api/convert/office-to-pdf        office document to PDF
  POST /api/convert/csv-to-excel         CSV to .xlsx
  GET  /api/health                       service status

Server settings come from the "server" section of the config file, from
STMTPDF_SERVER_* variables, or from the flags below.

Examples:
  stmtpdf serve
  stmtpdf serve --addr 127.0.0.1:8080 --log-format json`,
	Args:    cobra.NoArgs,
	PreRunE: validateServeFlags,
	RunE:    runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":5000", "listen address")
	serveCmd.Flags().Int("body-limit-mb", 32, "maximum upload size in MB")
	serveCmd.Flags().String("work-dir", "", "directory for per-request workspaces")
	addRenderFlags(serveCmd)
	addConversionFlags(serveCmd)
}

func validateServeFlags(cmd *cobra.Command, args []string) error {
	if limit, _ := cmd.Flags().GetInt("body-limit-mb"); limit <= 0 {
		return errors.ValidationError(errors.CodeOutOfRange, "body-limit-mb", limit, nil)
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	apiCfg, err := config.LoadAPIConfig(viper.GetViper(), version)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "server", nil, err)
	}
	if cmd.Flags().Changed("addr") {
		apiCfg.Addr, _ = cmd.Flags().GetString("addr")
	}
	if cmd.Flags().Changed("body-limit-mb") {
		apiCfg.BodyLimitMB, _ = cmd.Flags().GetInt("body-limit-mb")
	}

	svc, err := newService(cmd)
	if err != nil {
		return err
	}

	health := svc.Health(ctx)
	log := logger.GetGlobalLogger()
	log.WithFields(logger.Fields{
		"libreoffice": health.LibreOfficePath,
		"engine":      health.Engine,
		"template":    health.Template,
	}).Info("Statement service ready")
	if !health.LibreOffice {
		log.Warn("LibreOffice not found, office conversion is unavailable")
	}

	srv, err := api.NewServer(svc, apiCfg, log)
	if err != nil {
		return err
	}
	return srv.Listen(ctx)
}
