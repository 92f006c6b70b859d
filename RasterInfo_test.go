package GeoUtils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsKnownValues(t *testing.T) {
	h, err := FromArray([]float64{1, 2, 3, 4}, RasterMeta{
		Width:     2,
		Height:    2,
		Count:     1,
		Transform: [6]float64{0, 1, 0, 2, 0, -1},
	})
	require.NoError(t, err)
	defer h.Close()
	require.NoError(t, h.Load())

	stats, err := h.Stats(1)
	require.NoError(t, err)
	assert.Equal(t, 4.0, stats.Max)
	assert.Equal(t, 1.0, stats.Min)
	assert.Equal(t, 2.5, stats.Median)
	assert.Equal(t, 2.5, stats.Mean)
	assert.InDelta(t, math.Sqrt(1.25), stats.StdDev, 1e-12)
}

func TestInfoWithStats(t *testing.T) {
	h, err := FromArray([]float64{1, 2, 3, 4}, RasterMeta{
		Width:     2,
		Height:    2,
		Count:     1,
		Transform: [6]float64{0, 1, 0, 2, 0, -1},
	})
	require.NoError(t, err)
	defer h.Close()
	require.NoError(t, h.Load())

	s, err := h.Info(true)
	require.NoError(t, err)
	assert.Contains(t, s, "Size:               2, 2")
	assert.Contains(t, s, "Upper Left Corner:  0, 2")
	assert.Contains(t, s, "Lower Right Corner: 2, 0")
	assert.Contains(t, s, "[MAXIMUM]:          4.00")
	assert.Contains(t, s, "[MINIMUM]:          1.00")
	assert.Contains(t, s, "[MEDIAN]:           2.50")
	assert.Contains(t, s, "[MEAN]:             2.50")
	assert.Contains(t, s, "[STD DEV]:          1.12")
	// 单波段不输出波段标题
	assert.NotContains(t, s, "Band 1:")
}

func TestInfoStatsRequiresLoadedBuffer(t *testing.T) {
	h := makeTestRaster(t, 4, 4, 1)

	_, err := h.Info(true)
	assert.ErrorIs(t, err, ErrNotLoaded)

	// 不带统计的Info不要求加载
	s, err := h.Info(false)
	require.NoError(t, err)
	assert.Contains(t, s, "Size:               4, 4")
}

func TestInfoMultiBandLabels(t *testing.T) {
	h := makeTestRaster(t, 3, 3, 2)
	require.NoError(t, h.Load())

	s, err := h.Info(true)
	require.NoError(t, err)
	assert.Contains(t, s, "Band 1:")
	assert.Contains(t, s, "Band 2:")
}

func TestStatsIgnoreNaNAndNoData(t *testing.T) {
	nan := math.NaN()
	stats := computeBandStats([]float64{1, nan, 2, -9999, 3, nan, 4, -9999}, -9999, true)

	assert.Equal(t, 4.0, stats.Max)
	assert.Equal(t, 1.0, stats.Min)
	assert.Equal(t, 2.5, stats.Median)
	assert.Equal(t, 2.5, stats.Mean)
}

func TestStatsAllInvalid(t *testing.T) {
	stats := computeBandStats([]float64{math.NaN(), math.NaN()}, 0, false)
	assert.True(t, math.IsNaN(stats.Mean))
	assert.True(t, math.IsNaN(stats.Median))
}

func TestStatsOddCountMedian(t *testing.T) {
	stats := computeBandStats([]float64{5, 1, 3}, 0, false)
	assert.Equal(t, 3.0, stats.Median)
	assert.Equal(t, 3.0, stats.Mean)
}
