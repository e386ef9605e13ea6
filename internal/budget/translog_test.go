package budget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformLog_AddAndAppend(t *testing.T) {
	l := NewTransformLog(fixedClock())
	l.Add(StepDetectHeader, "sheet A", map[string]int{"row": 0})

	other := NewTransformLog(fixedClock())
	other.Add(StepAllocate, "ELECTRICAL", nil)
	other.Add(StepBuildWBS, "1 root", nil)
	l.Append(other)

	require.Equal(t, 3, l.Len())
	entries := l.Entries()
	assert.Equal(t, StepDetectHeader, entries[0].Step)
	assert.Equal(t, StepAllocate, entries[1].Step)
	assert.Equal(t, StepBuildWBS, entries[2].Step)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), entries[0].Timestamp)

	// Entries returns a copy.
	entries[0].Step = "changed"
	assert.Equal(t, StepDetectHeader, l.Entries()[0].Step)
}

func TestTransformLog_NilSafe(t *testing.T) {
	var l *TransformLog
	l.Add(StepValidate, "noop", nil)
	l.Append(NewTransformLog(nil))
	assert.Nil(t, l.Entries())
	assert.Equal(t, 0, l.Len())
}

func TestTransformLog_DefaultClockIsUTC(t *testing.T) {
	l := NewTransformLog(nil)
	l.Add(StepValidate, "x", nil)
	assert.Equal(t, time.UTC, l.Entries()[0].Timestamp.Location())
}
