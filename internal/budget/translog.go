package budget

import (
	"time"
)

// LogEntry is one step recorded while transforming a workbook.
type LogEntry struct {
	Step        string    `json:"step" yaml:"step"`
	Description string    `json:"description" yaml:"description"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
	Data        any       `json:"data,omitempty" yaml:"data,omitempty"`
}

// TransformLog accumulates entries for a single analysis run. It is not
// safe for concurrent use; concurrent stages each write their own log and
// the analyzer merges them.
type TransformLog struct {
	now     func() time.Time
	entries []LogEntry
}

// NewTransformLog returns an empty log stamped by now. A nil clock uses
// time.Now in UTC.
func NewTransformLog(now func() time.Time) *TransformLog {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &TransformLog{now: now}
}

// Add appends an entry.
func (l *TransformLog) Add(step, description string, data any) {
	if l == nil {
		return
	}
	l.entries = append(l.entries, LogEntry{
		Step:        step,
		Description: description,
		Timestamp:   l.now(),
		Data:        data,
	})
}

// Append moves every entry of other onto l.
func (l *TransformLog) Append(other *TransformLog) {
	if l == nil || other == nil {
		return
	}
	l.entries = append(l.entries, other.entries...)
}

// Entries returns a copy of the recorded entries.
func (l *TransformLog) Entries() []LogEntry {
	if l == nil {
		return nil
	}
	return append([]LogEntry(nil), l.entries...)
}

// Len returns the number of recorded entries.
func (l *TransformLog) Len() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

// Transformation steps.
const (
	StepDetectHeader = "detect_header"
	StepMapColumns   = "map_columns"
	StepExtract      = "extract_blocks"
	StepParseNumber  = "parse_number"
	StepAllocate     = "allocate"
	StepUnallocated  = "unallocated"
	StepBuildWBS     = "build_wbs"
	StepMaterialize  = "materialize"
	StepValidate     = "validate"
)
