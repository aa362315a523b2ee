package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"statement-pdf-service/pkg/errors"
	"statement-pdf-service/pkg/logger"
)

// Status is the outcome of one strategy attempt
type Status int

const (
	StatusSuccess Status = iota
	StatusUnavailable
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "failed"
	}
}

// Result reports one conversion attempt
type Result struct {
	Strategy string        `json:"strategy"`
	Status   Status        `json:"status"`
	Path     string        `json:"path,omitempty"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

// ConversionStrategy converts an office document into a PDF inside outDir
type ConversionStrategy interface {
	Name() string
	Convert(ctx context.Context, input, outDir string) Result
}

// Chain tries strategies in order until one succeeds
type Chain struct {
	strategies []ConversionStrategy
	logger     logger.Logger
}

// NewChain creates a chain over the given strategies
func NewChain(strategies ...ConversionStrategy) *Chain {
	return &Chain{
		strategies: strategies,
		logger:     logger.GetGlobalLogger().WithComponent("convert"),
	}
}

// Strategies returns the strategy names in order
func (c *Chain) Strategies() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// Run returns the first successful result. Unavailable and failed strategies
// fall through to the next one. When every strategy is exhausted the errors
// are aggregated: a single failure is returned as is, several are summarised.
func (c *Chain) Run(ctx context.Context, input, outDir string) (Result, error) {
	var results, failures []Result

	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return Result{Status: StatusFailed, Err: err},
				errors.InternalError(errors.CodeCancelled, "conversion", err)
		}

		start := time.Now()
		res := s.Convert(ctx, input, outDir)
		res.Strategy = s.Name()
		res.Duration = time.Since(start)

		log := c.logger.WithFields(logger.Fields{
			"strategy": res.Strategy,
			"status":   res.Status.String(),
			"duration": res.Duration.String(),
		})
		if res.Status == StatusSuccess {
			log.Info("Conversion succeeded")
			return res, nil
		}
		if res.Err != nil {
			log = log.WithError(res.Err)
		}
		log.Warn("Conversion strategy did not succeed, trying next")

		results = append(results, res)
		if res.Status == StatusFailed {
			failures = append(failures, res)
		}
	}

	if len(results) == 0 {
		return Result{Status: StatusUnavailable},
			errors.ConversionError(errors.CodeToolUnavailable, "office converter", fmt.Errorf("no conversion strategy configured"))
	}
	if len(failures) == 1 && failures[0].Err != nil {
		return failures[0], failures[0].Err
	}

	summary := errors.NewErrorSummary(toAppErrors(results))
	last := results[len(results)-1]
	if len(failures) == 0 {
		return last, errors.ConversionError(errors.CodeToolUnavailable, strings.Join(c.Strategies(), ", "), summary)
	}
	return last, errors.ConversionError(errors.CodeToolFailed, strings.Join(c.Strategies(), ", "), summary)
}

func toAppErrors(results []Result) []*errors.AppError {
	out := make([]*errors.AppError, 0, len(results))
	for _, r := range results {
		err := r.Err
		if err == nil {
			err = fmt.Errorf("%s did not produce a result", r.Strategy)
		}
		out = append(out, errors.WrapIfNeeded(err, errors.CategoryConversion, errors.CodeToolFailed, r.Strategy))
	}
	return out
}

// expectedPDF is where LibreOffice and Excel place the converted file
func expectedPDF(input, outDir string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(outDir, base+".pdf")
}

func outputExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir() && info.Size() > 0
}

func unavailable(tool string, err error) Result {
	return Result{Status: StatusUnavailable, Err: errors.ConversionError(errors.CodeToolUnavailable, tool, err)}
}

func failed(err error) Result {
	return Result{Status: StatusFailed, Err: err}
}
