package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportStatusValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status   ImportStatus
		want     string
		terminal bool
	}{
		{ImportStatusAnalyzing, "analyzing", false},
		{ImportStatusComplete, "complete", true},
		{ImportStatusFailed, "failed", true},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(tt.status))
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())

			got, err := ParseImportStatus(tt.want)
			require.NoError(t, err)
			assert.Equal(t, tt.status, got)
		})
	}
}

func TestParseImportStatus_Invalid(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"", "queued", "COMPLETE"} {
		_, err := ParseImportStatus(s)
		assert.Error(t, err, s)
	}
}
