package budget

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "wbs code", normalizeText("  WBS-Code: "))
	assert.Equal(t, "total cost", normalizeText("Total\tCost"))
	assert.Equal(t, "qty", normalizeText("Ｑｔｙ."))
	assert.Equal(t, "", normalizeText("---"))
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name   string
		a, b   string
		minSim float64
		maxSim float64
	}{
		{"exact", "total cost", "total cost", 1, 1},
		{"plural", "totals", "total", 0.8, 1},
		{"shared word", "unit rate", "unit", 0.5, 0.8},
		{"unrelated", "description", "qty", 0, 0.3},
		{"empty", "", "total", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := similarity(tt.a, tt.b)
			assert.GreaterOrEqual(t, sim, tt.minSim)
			assert.LessOrEqual(t, sim, tt.maxSim)
		})
	}
}

func TestWordJaccard(t *testing.T) {
	assert.InDelta(t, 1.0/3.0, wordJaccard("total cost", "unit cost"), 1e-9)
	assert.Equal(t, 0.0, wordJaccard("", "x"))
}
