package model

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// ImportStatus represents the current state of a workbook import.
type ImportStatus string

const (
	ImportStatusAnalyzing ImportStatus = "analyzing"
	ImportStatusComplete  ImportStatus = "complete"
	ImportStatusFailed    ImportStatus = "failed"
)

// ParseImportStatus validates a status string. Empty input is an error.
func ParseImportStatus(s string) (ImportStatus, error) {
	switch st := ImportStatus(s); st {
	case ImportStatusAnalyzing, ImportStatusComplete, ImportStatusFailed:
		return st, nil
	}
	return "", eris.Errorf("model: unknown import status %q", s)
}

// IsTerminal reports whether no further transitions are expected.
func (s ImportStatus) IsTerminal() bool {
	return s == ImportStatusComplete || s == ImportStatusFailed
}

// Import is one persisted analysis of an uploaded workbook.
type Import struct {
	ID            string          `json:"id" yaml:"id"`
	FileName      string          `json:"file_name" yaml:"file_name"`
	Status        ImportStatus    `json:"status" yaml:"status"`
	GrandTotal    decimal.Decimal `json:"grand_total" yaml:"grand_total"`
	SheetCount    int             `json:"sheet_count" yaml:"sheet_count"`
	LineItemCount int             `json:"line_item_count" yaml:"line_item_count"`
	ErrorCount    int             `json:"error_count" yaml:"error_count"`
	WarningCount  int             `json:"warning_count" yaml:"warning_count"`
	Error         string          `json:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt     time.Time       `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" yaml:"updated_at"`
}
