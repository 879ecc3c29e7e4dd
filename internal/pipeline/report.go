package pipeline

import (
	"time"

	"github.com/sells-group/edgar-llm/internal/model"
	"github.com/sells-group/edgar-llm/internal/verify"
)

// Filing statuses recorded in the run report.
const (
	StatusPass = "pass"
	StatusFail = "fail"
)

// StageResult records one processing stage of one filing.
type StageResult struct {
	Name        string  `json:"name"`
	Success     bool    `json:"success"`
	TimeSeconds float64 `json:"time_seconds"`
	Error       string  `json:"error,omitempty"`
}

// FilingReport is the per-filing outcome, one entry per manifest descriptor.
type FilingReport struct {
	Ticker          string                    `json:"ticker"`
	FilingType      string                    `json:"filing_type"`
	AccessionNumber string                    `json:"accession_number,omitempty"`
	FilingID        string                    `json:"filing_id,omitempty"`
	Status          string                    `json:"status"`
	Error           string                    `json:"error,omitempty"`
	FactCount       int                       `json:"fact_count"`
	Balanced        bool                      `json:"balanced"`
	Uploaded        bool                      `json:"uploaded,omitempty"`
	LLMPath         string                    `json:"llm_path,omitempty"`
	TextPath        string                    `json:"text_path,omitempty"`
	RawDumpPath     string                    `json:"raw_dump_path,omitempty"`
	Stages          []StageResult             `json:"stages"`
	Warnings        []model.ValidationWarning `json:"warnings,omitempty"`
	Verification    *verify.Report            `json:"verification,omitempty"`
}

func (r *FilingReport) addWarning(code, detail string) {
	r.Warnings = append(r.Warnings, model.ValidationWarning{Code: code, Detail: detail})
}

// WarningCodes lists the distinct warning codes in first-seen order.
func (r *FilingReport) WarningCodes() []string {
	var codes []string
	seen := make(map[string]bool)
	for _, w := range r.Warnings {
		if !seen[w.Code] {
			seen[w.Code] = true
			codes = append(codes, w.Code)
		}
	}
	return codes
}

// RunReport is the whole-batch outcome, persisted as JSON alongside the
// published artifacts.
type RunReport struct {
	RunID           string         `json:"run_id"`
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      time.Time      `json:"finished_at"`
	DurationSeconds float64        `json:"duration_seconds"`
	DryRun          bool           `json:"dry_run,omitempty"`
	Force           bool           `json:"force,omitempty"`
	Total           int            `json:"total"`
	Passed          int            `json:"passed"`
	Failed          int            `json:"failed"`
	Filings         []FilingReport `json:"filings"`
}
