package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"statement-pdf-service/cmd/stmtpdf/config"
	"statement-pdf-service/internal/models"
	"statement-pdf-service/internal/reporter"
	"statement-pdf-service/internal/service"
	"statement-pdf-service/internal/storage"
	"statement-pdf-service/pkg/errors"
	"statement-pdf-service/pkg/logger"
)

// bindFlags binds the named flags of the running command to viper keys of the
// same name, so a config file or STMTPDF_* variable can supply them
func bindFlags(cmd *cobra.Command, names ...string) error {
	for _, name := range names {
		if err := viper.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// addConversionFlags registers the office conversion settings
func addConversionFlags(cmd *cobra.Command) {
	cmd.Flags().String("soffice", "", "path to the LibreOffice soffice executable (default: discovered)")
	cmd.Flags().Duration("timeout", 0, "office conversion timeout (default 120s)")
	cmd.Flags().Bool("disable-excel", false, "never drive Microsoft Excel, even on Windows")
}

// addRenderFlags registers the layout, engine and publishing settings
func addRenderFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("template", "t", "", "layout template: statement, canonical, fast")
	cmd.Flags().String("engine", "", "PDF engine: auto, gofpdf, maroto")
	cmd.Flags().String("publish", "", "publish the output: local or s3")
	cmd.Flags().String("storage-dir", "", "directory for --publish local")
	cmd.Flags().String("s3-bucket", "", "bucket for --publish s3")
	cmd.Flags().String("s3-prefix", "", "key prefix inside the bucket")
	cmd.Flags().String("s3-region", "", "AWS region of the bucket")
	cmd.Flags().String("aws-profile", "", "shared AWS config profile")
	cmd.Flags().String("s3-endpoint", "", "custom S3 endpoint, e.g. a MinIO URL")
}

// addAccountFlags registers the account detail overrides
func addAccountFlags(cmd *cobra.Command) {
	cmd.Flags().String("account-file", "", "YAML, TOML or JSON file with account details")
	cmd.Flags().StringArray("field", nil, "account detail as key=value, e.g. customer_id=192136847 (repeatable)")
}

// applyFlagOverrides copies explicitly set flags over the loaded configuration
func applyFlagOverrides(cmd *cobra.Command, cfg *service.Config) {
	flags := cmd.Flags()
	str := func(name string, dst *string) {
		if f := flags.Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}

	if f := flags.Lookup("template"); f != nil && f.Changed {
		cfg.Layout.Template = models.Template(f.Value.String())
	}
	str("engine", &cfg.Render.Engine)
	str("work-dir", &cfg.WorkDir)

	str("soffice", &cfg.Convert.SofficePath)
	if f := flags.Lookup("timeout"); f != nil && f.Changed {
		cfg.Convert.Timeout, _ = flags.GetDuration("timeout")
	}
	if f := flags.Lookup("disable-excel"); f != nil && f.Changed {
		cfg.Convert.DisableExcel, _ = flags.GetBool("disable-excel")
	}

	str("publish", &cfg.Storage.Kind)
	str("storage-dir", &cfg.Storage.Dir)
	str("s3-bucket", &cfg.Storage.Bucket)
	str("s3-prefix", &cfg.Storage.Prefix)
	str("s3-region", &cfg.Storage.Region)
	str("aws-profile", &cfg.Storage.Profile)
	str("s3-endpoint", &cfg.Storage.Endpoint)

	if cfg.Storage.Kind == storage.KindNone {
		switch {
		case cfg.Storage.Bucket != "":
			cfg.Storage.Kind = storage.KindS3
		case cfg.Storage.Dir != "":
			cfg.Storage.Kind = storage.KindLocal
		}
	}
}

// buildServiceConfig loads the configuration and applies the command's flags
func buildServiceConfig(cmd *cobra.Command) (*service.Config, error) {
	cfg, err := config.LoadServiceConfig(viper.GetViper())
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "config", viper.ConfigFileUsed(), err)
	}
	applyFlagOverrides(cmd, cfg)
	return cfg, nil
}

// newService builds the statement service for the running command
func newService(cmd *cobra.Command) (*service.StatementService, error) {
	cfg, err := buildServiceConfig(cmd)
	if err != nil {
		return nil, err
	}
	return service.NewStatementService(cfg)
}

// accountOverrides merges --account-file with --field values, fields last
func accountOverrides(cmd *cobra.Command) (models.AccountMetadata, error) {
	var meta models.AccountMetadata

	if path, _ := cmd.Flags().GetString("account-file"); path != "" {
		fromFile, err := config.LoadAccountFile(path)
		if err != nil {
			return meta, errors.ValidationError(errors.CodeInvalidValue, "account-file", path, err)
		}
		meta = fromFile
	}

	pairs, _ := cmd.Flags().GetStringArray("field")
	fromFlags, err := config.ParseAccountFields(pairs)
	if err != nil {
		return meta, errors.ValidationError(errors.CodeInvalidValue, "field", pairs, err)
	}
	return meta.Merge(fromFlags), nil
}

// commandContext is cancelled on SIGINT or SIGTERM
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// writeReport prints subject in the configured format to path, or stdout
func writeReport(subject interface{}, format, path string) error {
	reportConfig := config.CreateReportConfig(format, viper.GetBool("no-color"))
	generator, err := reporter.NewSafeReportGenerator(reportConfig, logger.GetGlobalLogger())
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return errors.FileError(errors.CodeFilePermission, path, err)
		}
		defer f.Close()
		out = f
	}
	return generator.GenerateReportSafely(subject, out)
}

func validateReportFormat(format string) error {
	if !reporter.OutputFormat(format).IsValid() {
		return errors.ValidationError(errors.CodeInvalidValue, "report-format", format, nil).
			WithSuggestion("Valid formats: console, json, csv")
	}
	return nil
}

// validateInputFile checks that path names a readable regular file
func validateInputFile(path, description string) error {
	if path == "" {
		return errors.ValidationError(errors.CodeMissingField, description, nil, nil)
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return errors.FileError(errors.CodeFileNotFound, path, err)
	}
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, path, err)
	}
	if info.IsDir() {
		return errors.FileError(errors.CodeDirectoryError, path, fmt.Errorf("%s is a directory, expected a file", description))
	}

	file, err := os.Open(path)
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, path, err)
	}
	file.Close()
	return nil
}

// validateOutputDir checks that the directory of an output path exists
func validateOutputDir(path string) error {
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return errors.FileError(errors.CodeDirectoryError, dir, fmt.Errorf("output directory does not exist: %s", dir))
	}
	return nil
}
