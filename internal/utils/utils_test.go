package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatistics(t *testing.T) {
	ints := []int{2, 4, 4, 4, 5, 5, 7, 9}
	assert.Equal(t, 40, SumSlice(ints))
	assert.Equal(t, 5., Average(ints))

	mean, variance := MeanAndVariance(ints, false)
	assert.Equal(t, 5., mean)
	assert.Equal(t, 4., variance)
	assert.InDelta(t, 32./7., Variance(ints, true), 1e-12)

	assert.True(t, math.IsNaN(Average([]float64{})))
}

func TestStatisticsShortSlices(t *testing.T) {
	mean, variance := MeanAndVariance([]float64{}, true)
	assert.True(t, math.IsNaN(mean))
	assert.True(t, math.IsNaN(variance))

	mean, variance = MeanAndVariance([]float64{2.5}, true)
	assert.Equal(t, 2.5, mean)
	assert.Equal(t, 0., variance)
	assert.Equal(t, 0., Variance([]int{7}, false))
	assert.Equal(t, 0, SumSlice([]int(nil)))
}

func TestArgmax(t *testing.T) {
	assert.Equal(t, 2, Argmax([]float64{1, 3, 7, 7, 2}))
	assert.Equal(t, 0, Argmax([]string{"b", "a"}))
}

func TestIntAbs(t *testing.T) {
	assert.Equal(t, 3, IntAbs(-3))
	assert.Equal(t, 3, IntAbs(3))
	assert.Equal(t, 0, IntAbs(0))
}

func TestIntersect(t *testing.T) {
	common := Intersect([]string{"mm", "G"}, []string{"m", "cm", "mm"})
	if assert.NotNil(t, common) {
		assert.Equal(t, "mm", *common)
	}
	assert.Nil(t, Intersect([]string{"T"}, []string{"m"}))
}
