// Package layout turns extracted account metadata and a detected table into the
// ordered blocks of a statement document, and infers per-column styles.
package layout

import (
	"fmt"
	"strings"

	"statement-pdf-service/internal/models"
	"statement-pdf-service/pkg/logger"
)

const pointsPerMM = 72.0 / 25.4

// MM converts millimetres to points
func MM(v float64) float64 {
	return v * pointsPerMM
}

// A4 dimensions in points
const (
	A4Width  = 595.28
	A4Height = 841.89
)

// Page describes the sheet a document is laid out on, in points
type Page struct {
	Width  float64
	Height float64
	Margin float64
}

// PageFor returns the A4 page for the orientation with symmetric margins
func PageFor(o models.Orientation, marginMM float64) Page {
	p := Page{Width: A4Width, Height: A4Height, Margin: MM(marginMM)}
	if o == models.Landscape {
		p.Width, p.Height = p.Height, p.Width
	}
	return p
}

// Printable returns the usable width between the margins
func (p Page) Printable() float64 {
	return p.Width - 2*p.Margin
}

// Options controls composition
type Options struct {
	Template           models.Template      `mapstructure:"template"`
	Profile            models.BranchProfile `mapstructure:"profile"`
	LandscapeThreshold int                  `mapstructure:"landscape_threshold"`
	MarginMM           float64              `mapstructure:"margin_mm"`
	SampleRows         int                  `mapstructure:"sample_rows"`
}

// DefaultOptions returns the statement template configuration
func DefaultOptions() *Options {
	return &Options{
		Template:           models.TemplateStatement,
		Profile:            models.DefaultBranchProfile(),
		LandscapeThreshold: 6,
		MarginMM:           12,
		SampleRows:         DefaultSampleRows,
	}
}

// Validate checks the options
func (o *Options) Validate() error {
	if !o.Template.IsValid() {
		return fmt.Errorf("invalid template '%s'", o.Template)
	}
	if o.LandscapeThreshold <= 0 {
		return fmt.Errorf("landscape threshold must be positive")
	}
	if o.MarginMM < 0 || o.MarginMM >= 50 {
		return fmt.Errorf("margin must be between 0 and 50mm")
	}
	if o.SampleRows <= 0 {
		return fmt.Errorf("sample rows must be positive")
	}
	return nil
}

// Composer builds documents from metadata and tables
type Composer struct {
	opts   *Options
	logger logger.Logger
}

// NewComposer creates a composer. A nil options value uses DefaultOptions.
func NewComposer(opts *Options) *Composer {
	if opts == nil {
		opts = DefaultOptions()
	}
	o := *opts
	o.Profile = o.Profile.WithDefaults()
	if o.SampleRows <= 0 {
		o.SampleRows = DefaultSampleRows
	}
	if o.LandscapeThreshold <= 0 {
		o.LandscapeThreshold = 6
	}
	if o.Template == "" {
		o.Template = models.TemplateStatement
	}
	return &Composer{
		opts:   &o,
		logger: logger.GetGlobalLogger().WithComponent("layout"),
	}
}

// Compose is a shorthand for NewComposer(opts).Compose
func Compose(meta models.AccountMetadata, table *models.Table, opts *Options) *models.Document {
	return NewComposer(opts).Compose(meta, table)
}

// Orientation picks the page orientation for a table under the current template
func (c *Composer) Orientation(table *models.Table) models.Orientation {
	if c.opts.Template == models.TemplateFast && !table.IsEmpty() && len(table.Columns) > c.opts.LandscapeThreshold {
		return models.Landscape
	}
	return models.Portrait
}

// Page returns the page geometry used for a table
func (c *Composer) Page(table *models.Table) Page {
	return PageFor(c.Orientation(table), c.opts.MarginMM)
}

// Compose emits the fixed block sequence. Blocks whose backing data is
// entirely blank are left out; Order numbers the emitted blocks.
func (c *Composer) Compose(meta models.AccountMetadata, table *models.Table) *models.Document {
	if table == nil {
		table = models.EmptyTable()
	}

	doc := &models.Document{
		Template:    c.opts.Template,
		Orientation: c.Orientation(table),
	}
	add := func(b models.ReportBlock) {
		b.Order = len(doc.Blocks)
		doc.Blocks = append(doc.Blocks, b)
	}

	if h := c.headerBlock(); h != nil {
		add(models.ReportBlock{Kind: models.BlockHeader, Header: h})
	}
	if t := titleBlock(meta); t != nil {
		add(models.ReportBlock{Kind: models.BlockTitle, Title: t})
	}

	if c.opts.Template != models.TemplateFast {
		if a := c.accountBlock(meta); a != nil {
			add(models.ReportBlock{Kind: models.BlockAccount, Account: a})
		}
		if f := filterBlock(meta); f != nil {
			add(models.ReportBlock{Kind: models.BlockFilter, Filter: f})
		}
	}

	if tb := c.tableBlock(table); tb != nil {
		add(models.ReportBlock{Kind: models.BlockTable, Table: tb})
	} else {
		c.logger.Warn("No transaction data found, table block omitted")
	}

	c.logger.WithFields(logger.Fields{
		"template":    c.opts.Template,
		"orientation": doc.Orientation,
		"blocks":      len(doc.Blocks),
	}).Debug("Composed document")
	return doc
}

func (c *Composer) headerBlock() *models.HeaderBlock {
	p := c.opts.Profile
	if blank(p.BankName, p.Tagline, p.StatementTitle, p.LogoPath) {
		return nil
	}
	return &models.HeaderBlock{
		BankName: p.BankName,
		Tagline:  p.Tagline,
		Heading:  p.StatementTitle,
		LogoPath: p.LogoPath,
	}
}

// TitleText renders the statement title line
func TitleText(meta models.AccountMetadata) string {
	return fmt.Sprintf("STATEMENT BETWEEN %s AND %s FOR A/C: %s",
		strings.TrimSpace(meta.DateFrom), strings.TrimSpace(meta.DateTo), strings.TrimSpace(meta.AccountNumber))
}

func titleBlock(meta models.AccountMetadata) *models.TitleBlock {
	if blank(meta.DateFrom, meta.DateTo, meta.AccountNumber) {
		return nil
	}
	return &models.TitleBlock{Text: TitleText(meta)}
}

func (c *Composer) accountBlock(meta models.AccountMetadata) *models.AccountBlock {
	if blank(meta.CustomerID, meta.AccountHolderName, meta.AccountNumber, meta.Address) {
		return nil
	}

	block := &models.AccountBlock{}
	if id := strings.TrimSpace(meta.CustomerID); id != "" {
		block.LeftLines = append(block.LeftLines, fmt.Sprintf("( %s )", id))
		block.BoldLines++
	}
	if name := strings.TrimSpace(meta.AccountHolderName); name != "" {
		block.LeftLines = append(block.LeftLines, name)
		block.BoldLines++
	}
	block.LeftLines = append(block.LeftLines, meta.AddressLines()...)

	p := c.opts.Profile
	block.Right = []models.LabeledValue{
		{Label: "SCHEME CODE", Value: p.SchemeCode},
		{Label: "CUSTOMER ID", Value: strings.TrimSpace(meta.CustomerID)},
		{Label: "CURRENCY CODE", Value: p.Currency},
		{Label: "LIEN AMOUNT", Value: p.LienAmount},
		{Label: "NOMINATION DETAILS", Value: p.Nomination},
		{Label: "KYC Status", Value: p.KYCStatus},
		{Label: "MICR/IFSC Code", Value: p.MICRIFSC},
		{Label: "CKYC NO", Value: p.CKYCNumber},
	}
	return block
}

func filterBlock(meta models.AccountMetadata) *models.FilterBlock {
	if blank(meta.DateFrom, meta.DateTo, meta.AmountFrom, meta.AmountTo,
		meta.ChequeFrom, meta.ChequeTo, meta.TransactionType) {
		return nil
	}
	return &models.FilterBlock{Rows: []models.FilterRow{
		{Label: "Transaction Date", From: "from: " + meta.DateFrom, To: "to: " + meta.DateTo},
		{Label: "Amount", From: "from: " + meta.AmountFrom, To: "to: " + meta.AmountTo},
		{Label: "Cheque", From: "from: " + meta.ChequeFrom, To: "to: " + meta.ChequeTo},
		{Label: "Transaction type: " + meta.TransactionType},
	}}
}

func (c *Composer) tableBlock(table *models.Table) *models.TableBlock {
	if table.IsEmpty() {
		return nil
	}
	printable := c.Page(table).Printable()

	switch c.opts.Template {
	case models.TemplateCanonical:
		mapped := Canonicalize(table)
		return &models.TableBlock{
			Columns: CanonicalStyles(printable),
			Header:  mapped.Columns,
			Rows:    mapped.Rows,
			Style:   models.StatementTableStyle(),
		}
	case models.TemplateFast:
		return &models.TableBlock{
			Columns: StyleColumnsSampled(table, printable, c.opts.SampleRows),
			Header:  table.Columns,
			Rows:    table.Rows,
			Style:   models.FastTableStyle(),
		}
	default:
		return &models.TableBlock{
			Columns: StyleColumnsSampled(table, printable, c.opts.SampleRows),
			Header:  table.Columns,
			Rows:    table.Rows,
			Style:   models.StatementTableStyle(),
		}
	}
}

func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
