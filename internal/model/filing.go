package model

import (
	"fmt"
	"strings"
	"time"
)

// FilingType identifies the SEC form variety this pipeline handles.
type FilingType string

const (
	Filing10K FilingType = "10-K"
	Filing10Q FilingType = "10-Q"
)

// Valid reports whether the filing type is one the pipeline processes.
func (t FilingType) Valid() bool {
	return t == Filing10K || t == Filing10Q
}

// FilingDescriptor identifies one filing to process. Descriptors come from an
// external manifest; discovery against the EDGAR index is out of scope.
type FilingDescriptor struct {
	Ticker          string     `json:"ticker"`
	CompanyName     string     `json:"company_name"`
	CIK             string     `json:"cik"`
	AccessionNumber string     `json:"accession_number"`
	FilingType      FilingType `json:"filing_type"`
	FilingDate      string     `json:"filing_date"`
	PeriodEndDate   string     `json:"period_end_date,omitempty"`
	DocumentURL     string     `json:"document_url"`
	LinkbaseURLs    []string   `json:"linkbase_urls,omitempty"`
}

// Normalize uppercases the ticker, zero-pads the CIK and trims whitespace.
func (d *FilingDescriptor) Normalize() {
	d.Ticker = strings.ToUpper(strings.TrimSpace(d.Ticker))
	d.CompanyName = strings.TrimSpace(d.CompanyName)
	d.CIK = PadCIK(d.CIK)
	d.AccessionNumber = strings.TrimSpace(d.AccessionNumber)
	d.DocumentURL = strings.TrimSpace(d.DocumentURL)
}

// Validate checks the fields required before a descriptor enters the pipeline.
func (d *FilingDescriptor) Validate() error {
	if d.Ticker == "" {
		return fmt.Errorf("descriptor: missing ticker")
	}
	if !d.FilingType.Valid() {
		return fmt.Errorf("descriptor %s: unsupported filing type %q", d.Ticker, d.FilingType)
	}
	if d.DocumentURL == "" {
		return fmt.Errorf("descriptor %s: missing document URL", d.Ticker)
	}
	return nil
}

// PadCIK strips whitespace and left-pads an SEC central index key to the
// canonical 10-digit form. Empty input stays empty.
func PadCIK(cik string) string {
	cik = strings.TrimSpace(cik)
	if cik == "" {
		return ""
	}
	cik = strings.TrimLeft(cik, "0")
	if cik == "" {
		cik = "0"
	}
	return fmt.Sprintf("%010s", cik)
}

// FilingRecord is the metadata document upserted into the filings collection
// after artifacts are published.
type FilingRecord struct {
	FilingID                string         `json:"filing_id"`
	CompanyTicker           string         `json:"company_ticker"`
	CompanyName             string         `json:"company_name"`
	CIK                     string         `json:"cik"`
	AccessionNumber         string         `json:"accession_number"`
	FilingType              string         `json:"filing_type"`
	FiscalYear              int            `json:"fiscal_year"`
	FiscalPeriod            string         `json:"fiscal_period"`
	DisplayPeriod           string         `json:"display_period"`
	PeriodEndDate           string         `json:"period_end_date"`
	PeriodEndDateRaw        string         `json:"period_end_date_raw"`
	FilingDate              string         `json:"filing_date"`
	TextFilePath            string         `json:"text_file_path"`
	TextFileSize            int64          `json:"text_file_size"`
	TextTokenCount          int64          `json:"text_token_count"`
	LLMFilePath             string         `json:"llm_file_path"`
	LLMFileSize             int64          `json:"llm_file_size"`
	LLMTokenCount           int64          `json:"llm_token_count"`
	HasLLMFormat            bool           `json:"has_llm_format"`
	FiscalSource            string         `json:"fiscal_source"`
	FiscalIntegrityVerified bool           `json:"fiscal_integrity_verified"`
	DataIntegrity           map[string]any `json:"data_integrity,omitempty"`
	UploadDate              time.Time      `json:"upload_date"`
	LastAccessed            time.Time      `json:"last_accessed"`
	AccessCount             int64          `json:"access_count"`
}

// ProcessedFiling is the per-filing pipeline outcome.
type ProcessedFiling struct {
	Descriptor FilingDescriptor    `json:"descriptor"`
	Record     *FilingRecord       `json:"record,omitempty"`
	Warnings   []ValidationWarning `json:"warnings,omitempty"`
	FactCount  int                 `json:"fact_count"`
	Skipped    bool                `json:"skipped"`
}
