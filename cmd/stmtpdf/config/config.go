// Package config turns viper settings and profile files into the explicit
// configuration structs of the service, the HTTP server and the reporter.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"statement-pdf-service/internal/api"
	"statement-pdf-service/internal/models"
	"statement-pdf-service/internal/reporter"
	"statement-pdf-service/internal/service"
	"statement-pdf-service/pkg/logger"
)

// LoadServiceConfig builds the pipeline configuration. Keys missing from v keep
// their defaults.
func LoadServiceConfig(v *viper.Viper) (*service.Config, error) {
	cfg := service.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode service configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid service configuration: %w", err)
	}
	return cfg, nil
}

// LoadAPIConfig builds the HTTP server configuration from the "server" section
func LoadAPIConfig(v *viper.Viper, version string) (*api.Config, error) {
	cfg := api.DefaultConfig()
	if v.IsSet("server") {
		if err := v.UnmarshalKey("server", cfg); err != nil {
			return nil, fmt.Errorf("failed to decode server configuration: %w", err)
		}
	}
	cfg.Version = version
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}
	return cfg, nil
}

// CreateReportConfig creates a report configuration for the specified output format
func CreateReportConfig(format string, noColor bool) *reporter.ReportConfig {
	config := reporter.DefaultReportConfig()
	config.Format = reporter.OutputFormat(format)
	config.UseColors = !noColor

	switch config.Format {
	case reporter.FormatJSON:
		config.UseColors = false
	case reporter.FormatCSV:
		config.UseColors = false
		config.CSVHeaders = true
		config.CSVDelimiter = ','
		config.IncludeSteps = false
	}
	return config
}

// CreateLoggerConfig picks the logger configuration for the CLI flags
func CreateLoggerConfig(verbose bool, format string) *logger.Config {
	config := logger.DefaultConfig()
	if verbose {
		config = logger.DebugConfig()
	}
	config.Output = logger.StderrOutput
	if format != "" {
		config.Format = logger.Format(format)
	}
	return config
}

// LoadAccountFile reads account metadata overrides from a TOML, YAML or JSON file
func LoadAccountFile(filePath string) (models.AccountMetadata, error) {
	var meta models.AccountMetadata

	info, err := os.Stat(filePath)
	if err != nil {
		return meta, fmt.Errorf("error accessing account file: %w", err)
	}
	if info.IsDir() {
		return meta, fmt.Errorf("%s is a directory, not a file", filePath)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return meta, fmt.Errorf("error reading account file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &meta); err != nil {
			return meta, fmt.Errorf("error parsing TOML file: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &meta); err != nil {
			return meta, fmt.Errorf("error parsing YAML file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &meta); err != nil {
			return meta, fmt.Errorf("error parsing JSON file: %w", err)
		}
	default:
		return meta, fmt.Errorf("unsupported account file format: %s", ext)
	}
	return meta, nil
}

// ParseAccountFields parses repeated key=value flags into metadata. Keys are the
// form field names, for example customer_id or transaction_date_from.
func ParseAccountFields(pairs []string) (models.AccountMetadata, error) {
	known := make(map[string]bool, len(models.AccountFields))
	for _, f := range models.AccountFields {
		known[f] = true
	}

	values := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return models.AccountMetadata{}, fmt.Errorf("invalid account field %q, expected key=value", pair)
		}
		if !known[key] {
			return models.AccountMetadata{}, fmt.Errorf("unknown account field %q (valid: %s)", key, strings.Join(models.AccountFields, ", "))
		}
		values[key] = value
	}
	return models.FromForm(values), nil
}
