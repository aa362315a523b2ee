// Package detect finds the transaction table and the account metadata inside a
// loaded statement.
//
// Both searches are heuristics over cell text. The table detector scores rows
// by how many header keywords they contain; the metadata extractor looks for
// label cells in the first rows and reads the value next to them. Each metadata
// match carries a confidence score, and matches under the configured minimum
// are rejected so the static default is kept instead.
//
// Neither search fails: a statement without a recognizable header yields an
// empty table, and missing labels leave the defaults in place.
package detect

import (
	"fmt"

	"statement-pdf-service/pkg/logger"
)

// DefaultKeywords are the header keywords scored by DetectTable
var DefaultKeywords = []string{
	"sr no", "sr.no", "s.no", "sno",
	"date", "remarks", "debit", "credit", "balance", "transaction",
}

// Options holds the detection thresholds
type Options struct {
	Keywords       []string `mapstructure:"keywords"`
	MinKeywordHits int      `mapstructure:"min_keyword_hits"`
	MetadataRows   int      `mapstructure:"metadata_rows"`
	MinConfidence  float64  `mapstructure:"min_confidence"`
}

// DefaultOptions returns the standard thresholds
func DefaultOptions() *Options {
	keywords := make([]string, len(DefaultKeywords))
	copy(keywords, DefaultKeywords)
	return &Options{
		Keywords:       keywords,
		MinKeywordHits: 3,
		MetadataRows:   15,
		MinConfidence:  0.5,
	}
}

// Validate checks if the options are usable
func (o *Options) Validate() error {
	if len(o.Keywords) == 0 {
		return fmt.Errorf("at least one header keyword is required")
	}
	if o.MinKeywordHits <= 0 || o.MinKeywordHits > len(o.Keywords) {
		return fmt.Errorf("min keyword hits must be between 1 and %d", len(o.Keywords))
	}
	if o.MetadataRows <= 0 {
		return fmt.Errorf("metadata rows must be positive")
	}
	if o.MinConfidence < 0 || o.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be between 0 and 1")
	}
	return nil
}

// Detector runs table and metadata detection
type Detector struct {
	opts   *Options
	logger logger.Logger
}

// New creates a detector. A nil options value uses DefaultOptions.
func New(opts *Options) *Detector {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Detector{
		opts:   opts,
		logger: logger.GetGlobalLogger().WithComponent("detect"),
	}
}

// Options returns the detector configuration
func (d *Detector) Options() *Options {
	return d.opts
}
