package segmentation

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfusionMatrixValidation(t *testing.T) {
	tests := []struct {
		name       string
		numClasses int
		wantErr    bool
	}{
		{name: "zero classes", numClasses: 0, wantErr: true},
		{name: "negative classes", numClasses: -3, wantErr: true},
		{name: "single class", numClasses: 1, wantErr: false},
		{name: "many classes", numClasses: 150, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf, err := NewConfusionMatrix(tt.numClasses, false)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidClassCount))
				assert.Nil(t, conf)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.numClasses, conf.NumClasses())
		})
	}
}

func TestConfusionMatrixFreshIsZero(t *testing.T) {
	conf, err := NewConfusionMatrix(4, false)
	require.NoError(t, err)

	for _, row := range conf.Value() {
		for _, v := range row {
			assert.Zero(t, v)
		}
	}
}

// TestConfusionMatrixBincount checks the masked bincount update against a
// hand-computed matrix: entry (t, p) counts positions with true class t and
// predicted class p.
func TestConfusionMatrixBincount(t *testing.T) {
	conf, err := NewConfusionMatrix(3, false)
	require.NoError(t, err)

	predicted := []int{0, 1, 1, 0, 2, 2, 1}
	target := []int{0, 1, 1, 1, 2, 0, 2}
	conf.Add(predicted, target)

	expected := [][]float64{
		{1, 0, 1},
		{1, 2, 0},
		{0, 1, 1},
	}
	assert.Equal(t, expected, conf.Value())
}

func TestConfusionMatrixOutOfRangePositionsExcluded(t *testing.T) {
	conf, err := NewConfusionMatrix(2, false)
	require.NoError(t, err)

	// Positions with a true or predicted index outside [0, N) must not
	// contribute anywhere.
	conf.Add([]int{0, 5, 1, -1, 1}, []int{0, 1, -2, 0, 3})

	expected := [][]float64{
		{1, 0},
		{0, 0},
	}
	assert.Equal(t, expected, conf.Value())
}

// TestConfusionMatrixAdditivity verifies that accumulating two batches
// separately equals accumulating their concatenation in one call.
func TestConfusionMatrixAdditivity(t *testing.T) {
	p1, t1 := []int{0, 1, 2}, []int{0, 2, 2}
	p2, t2 := []int{1, 1, 0}, []int{1, 0, 0}

	split, err := NewConfusionMatrix(3, false)
	require.NoError(t, err)
	split.Add(p1, t1)
	split.Add(p2, t2)

	joined, err := NewConfusionMatrix(3, false)
	require.NoError(t, err)
	joined.Add(append(append([]int{}, p1...), p2...), append(append([]int{}, t1...), t2...))

	assert.Equal(t, joined.Value(), split.Value())
}

func TestConfusionMatrixMerge(t *testing.T) {
	a, err := NewConfusionMatrix(2, false)
	require.NoError(t, err)
	b, err := NewConfusionMatrix(2, false)
	require.NoError(t, err)
	all, err := NewConfusionMatrix(2, false)
	require.NoError(t, err)

	p1, t1 := []int{0, 0, 1}, []int{0, 1, 1}
	p2, t2 := []int{1, 1, 0}, []int{1, 0, 0}
	a.Add(p1, t1)
	b.Add(p2, t2)
	all.Add(append(append([]int{}, p1...), p2...), append(append([]int{}, t1...), t2...))

	require.NoError(t, a.Merge(b))
	assert.Equal(t, all.Value(), a.Value())
}

func TestConfusionMatrixMergeDimensionMismatch(t *testing.T) {
	a, err := NewConfusionMatrix(2, false)
	require.NoError(t, err)
	b, err := NewConfusionMatrix(3, false)
	require.NoError(t, err)

	err = a.Merge(b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShape))
}

func TestConfusionMatrixNormalizedView(t *testing.T) {
	conf, err := NewConfusionMatrix(3, true)
	require.NoError(t, err)
	conf.Add([]int{0, 1, 1, 1}, []int{0, 0, 1, 1})

	got := conf.Value()
	assert.Equal(t, []float64{0.5, 0.5, 0}, got[0])
	assert.Equal(t, []float64{0, 1, 0}, got[1])
	// A row with no observations stays all-zero instead of dividing by zero.
	assert.Equal(t, []float64{0, 0, 0}, got[2])
}

func TestConfusionMatrixResetIdempotent(t *testing.T) {
	conf, err := NewConfusionMatrix(2, false)
	require.NoError(t, err)
	conf.Add([]int{0, 1}, []int{1, 1})

	conf.Reset()
	once := conf.Value()
	conf.Reset()
	twice := conf.Value()

	assert.Equal(t, once, twice)
	for _, row := range twice {
		for _, v := range row {
			assert.Zero(t, v)
		}
	}
}

func TestConfusionMatrixValueDoesNotAliasState(t *testing.T) {
	conf, err := NewConfusionMatrix(2, false)
	require.NoError(t, err)
	conf.Add([]int{0}, []int{0})

	v := conf.Value()
	v[0][0] = 99

	assert.Equal(t, float64(1), conf.Value()[0][0])
}
