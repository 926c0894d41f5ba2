package check

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTukeyFences(t *testing.T) {
	f, err := TukeyFences([]float64{1, 2, 3, 4, 5, 6, 7, 8, 100}, 1.5)
	require.NoError(t, err)
	assert.InDelta(t, -5, f.Low, 1e-9)
	assert.InDelta(t, 15, f.High, 1e-9)

	flagged, _, err := TukeyOutliers([]float64{1, 2, 3, 4, 5, 6, 7, 8, 100}, 1.5)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, false, false, false, false, false, false, true}, flagged)

	// Even count: the hinges are the medians of the two halves.
	f, err = TukeyFences([]float64{8, 7, 6, 5, 4, 3, 2, 1}, 1)
	require.NoError(t, err)
	assert.InDelta(t, -1.5, f.Low, 1e-9)
	assert.InDelta(t, 10.5, f.High, 1e-9)

	_, err = TukeyFences(nil, 1.5)
	assert.Error(t, err)
}

func TestGrubbsOutliers(t *testing.T) {
	values := []float64{10, 10.1, 9.9, 10.2, 9.8, 10.05, 9.95, 10.15, 9.85, 30}
	got := GrubbsOutliers(values, 0.01, 5)
	assert.Equal(t, []bool{false, false, false, false, false, false, false, false, false, true}, got)

	// Too few values to test.
	assert.Equal(t, []bool{false, false, false, false}, GrubbsOutliers([]float64{1, 1, 1, 50}, 0.01, 5))

	// No spread, nothing to flag.
	assert.Equal(t, []bool{false, false, false, false, false}, GrubbsOutliers([]float64{2, 2, 2, 2, 2}, 0.01, 5))
}
