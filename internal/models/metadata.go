package models

import (
	"strings"
)

// Account-info parameter names accepted from forms and profile files
const (
	FieldCustomerID        = "customer_id"
	FieldAccountHolderName = "account_holder_name"
	FieldAccountNumber     = "account_number"
	FieldAddress           = "address"
	FieldDateFrom          = "transaction_date_from"
	FieldDateTo            = "transaction_date_to"
	FieldAmountFrom        = "amount_from"
	FieldAmountTo          = "amount_to"
	FieldChequeFrom        = "cheque_from"
	FieldChequeTo          = "cheque_to"
	FieldTransactionType   = "transaction_type"
	FieldStatementDate     = "statement_date"
)

// AccountFields lists the account-info parameters in form order
var AccountFields = []string{
	FieldCustomerID,
	FieldAccountHolderName,
	FieldAccountNumber,
	FieldAddress,
	FieldDateFrom,
	FieldDateTo,
	FieldAmountFrom,
	FieldAmountTo,
	FieldChequeFrom,
	FieldChequeTo,
	FieldTransactionType,
}

var allFields = append(append([]string{}, AccountFields...), FieldStatementDate)

// AccountMetadata holds the account details printed above the transaction table.
// All fields are optional.
type AccountMetadata struct {
	CustomerID        string `json:"customer_id,omitempty" yaml:"customer_id" toml:"customer_id"`
	AccountHolderName string `json:"account_holder_name,omitempty" yaml:"account_holder_name" toml:"account_holder_name"`
	AccountNumber     string `json:"account_number,omitempty" yaml:"account_number" toml:"account_number"`
	Address           string `json:"address,omitempty" yaml:"address" toml:"address"`
	DateFrom          string `json:"transaction_date_from,omitempty" yaml:"transaction_date_from" toml:"transaction_date_from"`
	DateTo            string `json:"transaction_date_to,omitempty" yaml:"transaction_date_to" toml:"transaction_date_to"`
	AmountFrom        string `json:"amount_from,omitempty" yaml:"amount_from" toml:"amount_from"`
	AmountTo          string `json:"amount_to,omitempty" yaml:"amount_to" toml:"amount_to"`
	ChequeFrom        string `json:"cheque_from,omitempty" yaml:"cheque_from" toml:"cheque_from"`
	ChequeTo          string `json:"cheque_to,omitempty" yaml:"cheque_to" toml:"cheque_to"`
	TransactionType   string `json:"transaction_type,omitempty" yaml:"transaction_type" toml:"transaction_type"`
	StatementDate     string `json:"statement_date,omitempty" yaml:"statement_date" toml:"statement_date"`
}

// DefaultAccountMetadata returns the static defaults used when a field is neither
// extracted from the source nor supplied by the caller.
func DefaultAccountMetadata() AccountMetadata {
	return AccountMetadata{
		CustomerID:        "192136847",
		AccountHolderName: "HARINI AND THARSHINI TRADERS",
		AccountNumber:     "826820110000461",
		Address:           "W/O PRABAKARAN,7A 6TH CROSS\nSTREET THIRUVALLUVAR\nNAGAR,PALNGANATHAM 625003",
		DateFrom:          "02-03-2025",
		DateTo:            "02-09-2025",
		AmountFrom:        "-",
		AmountTo:          "-",
		ChequeFrom:        "-",
		ChequeTo:          "-",
		TransactionType:   "All",
	}
}

// Merge returns a copy of m with every non-blank field of overrides applied
func (m AccountMetadata) Merge(overrides AccountMetadata) AccountMetadata {
	for _, name := range allFields {
		if v := strings.TrimSpace(overrides.Get(name)); v != "" {
			m.Set(name, overrides.Get(name))
		}
	}
	return m
}

// Get returns a field by its parameter name
func (m AccountMetadata) Get(name string) string {
	if p := m.field(name); p != nil {
		return *p
	}
	return ""
}

// Set assigns a field by its parameter name. Unknown names are ignored.
func (m *AccountMetadata) Set(name, value string) {
	if p := m.field(name); p != nil {
		*p = value
	}
}

func (m *AccountMetadata) field(name string) *string {
	switch name {
	case FieldCustomerID:
		return &m.CustomerID
	case FieldAccountHolderName:
		return &m.AccountHolderName
	case FieldAccountNumber:
		return &m.AccountNumber
	case FieldAddress:
		return &m.Address
	case FieldDateFrom:
		return &m.DateFrom
	case FieldDateTo:
		return &m.DateTo
	case FieldAmountFrom:
		return &m.AmountFrom
	case FieldAmountTo:
		return &m.AmountTo
	case FieldChequeFrom:
		return &m.ChequeFrom
	case FieldChequeTo:
		return &m.ChequeTo
	case FieldTransactionType:
		return &m.TransactionType
	case FieldStatementDate:
		return &m.StatementDate
	}
	return nil
}

// FromForm builds metadata from string-keyed parameters. Literal "\n" sequences
// in the address are turned into line breaks.
func FromForm(values map[string]string) AccountMetadata {
	var m AccountMetadata
	for _, name := range AccountFields {
		v, ok := values[name]
		if !ok {
			continue
		}
		if name == FieldAddress {
			v = strings.ReplaceAll(v, `\n`, "\n")
		}
		m.Set(name, v)
	}
	return m
}

// IsBlank reports whether every field is empty
func (m AccountMetadata) IsBlank() bool {
	for _, name := range allFields {
		if strings.TrimSpace(m.Get(name)) != "" {
			return false
		}
	}
	return true
}

// AddressLines splits the address on newlines, dropping blank lines
func (m AccountMetadata) AddressLines() []string {
	var lines []string
	for _, l := range strings.Split(strings.ReplaceAll(m.Address, "\r\n", "\n"), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// BranchProfile carries the static scheme details shown in the account box
type BranchProfile struct {
	BankName       string `json:"bank_name" yaml:"bank_name" toml:"bank_name" mapstructure:"bank_name"`
	Tagline        string `json:"tagline" yaml:"tagline" toml:"tagline" mapstructure:"tagline"`
	SchemeCode     string `json:"scheme_code" yaml:"scheme_code" toml:"scheme_code" mapstructure:"scheme_code"`
	Currency       string `json:"currency" yaml:"currency" toml:"currency" mapstructure:"currency"`
	LienAmount     string `json:"lien_amount" yaml:"lien_amount" toml:"lien_amount" mapstructure:"lien_amount"`
	Nomination     string `json:"nomination" yaml:"nomination" toml:"nomination" mapstructure:"nomination"`
	KYCStatus      string `json:"kyc_status" yaml:"kyc_status" toml:"kyc_status" mapstructure:"kyc_status"`
	MICRIFSC       string `json:"micr_ifsc" yaml:"micr_ifsc" toml:"micr_ifsc" mapstructure:"micr_ifsc"`
	CKYCNumber     string `json:"ckyc" yaml:"ckyc" toml:"ckyc" mapstructure:"ckyc"`
	LogoPath       string `json:"logo_path,omitempty" yaml:"logo_path" toml:"logo_path" mapstructure:"logo_path"`
	StatementTitle string `json:"statement_title" yaml:"statement_title" toml:"statement_title" mapstructure:"statement_title"`
}

// DefaultBranchProfile returns the profile used when none is configured
func DefaultBranchProfile() BranchProfile {
	return BranchProfile{
		BankName:       "Bank of India",
		Tagline:        "Relationship beyond banking",
		SchemeCode:     "CURRENT ACCOUNT-NORMAL",
		Currency:       "INR",
		LienAmount:     "0.00",
		Nomination:     "NOMINATION NOT REGISTERED",
		KYCStatus:      "Updated",
		MICRIFSC:       "517211102 / UTIB0000275",
		CKYCNumber:     "NA",
		StatementTitle: "Detailed Statement",
	}
}

// WithDefaults fills blank fields from DefaultBranchProfile
func (p BranchProfile) WithDefaults() BranchProfile {
	d := DefaultBranchProfile()
	pick := func(v, def string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return v
	}
	p.BankName = pick(p.BankName, d.BankName)
	p.Tagline = pick(p.Tagline, d.Tagline)
	p.SchemeCode = pick(p.SchemeCode, d.SchemeCode)
	p.Currency = pick(p.Currency, d.Currency)
	p.LienAmount = pick(p.LienAmount, d.LienAmount)
	p.Nomination = pick(p.Nomination, d.Nomination)
	p.KYCStatus = pick(p.KYCStatus, d.KYCStatus)
	p.MICRIFSC = pick(p.MICRIFSC, d.MICRIFSC)
	p.CKYCNumber = pick(p.CKYCNumber, d.CKYCNumber)
	p.StatementTitle = pick(p.StatementTitle, d.StatementTitle)
	return p
}
