package GeoUtils

import (
	"testing"

	"github.com/airbusgeo/godal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeTestRaster 构造 width x height 的测试栅格，像素值为 row*width+col 的递增序列
// 原点(0, height)，分辨率1，即边界为 (0, 0, width, height)
func makeTestRaster(t *testing.T, width, height, bands int) *RasterHandle {
	t.Helper()

	img := make([]float64, bands*width*height)
	for b := 0; b < bands; b++ {
		for i := 0; i < width*height; i++ {
			img[b*width*height+i] = float64(b*width*height + i)
		}
	}

	h, err := FromArray(img, RasterMeta{
		Width:     width,
		Height:    height,
		Count:     bands,
		Transform: [6]float64{0, 1, 0, float64(height), 0, -1},
	})
	require.NoError(t, err)
	t.Cleanup(h.Close)

	return h
}

func TestFromArrayMirrorsMetadata(t *testing.T) {
	h := makeTestRaster(t, 10, 8, 1)

	assert.Equal(t, "", h.Path)
	assert.Equal(t, 10, h.Meta.Width)
	assert.Equal(t, 8, h.Meta.Height)
	assert.Equal(t, 1, h.Meta.Count)
	assert.Equal(t, [4]float64{0, 0, 10, 8}, h.Meta.Bounds)
	assert.Equal(t, [6]float64{0, 1, 0, 8, 0, -1}, h.Meta.Transform)
	assert.Equal(t, 1.0, h.Meta.ResX)
	assert.Equal(t, 1.0, h.Meta.ResY)
	assert.NotEmpty(t, h.Meta.MemID)
	assert.False(t, h.IsLoaded())
}

func TestMetadataMatchesBackingDataset(t *testing.T) {
	h := makeTestRaster(t, 12, 7, 3)

	st := h.Dataset().Structure()
	assert.Equal(t, st.SizeX, h.Meta.Width)
	assert.Equal(t, st.SizeY, h.Meta.Height)
	assert.Equal(t, st.NBands, h.Meta.Count)

	gt, err := h.Dataset().GeoTransform()
	require.NoError(t, err)
	assert.Equal(t, gt, h.Meta.Transform)
}

func TestFromArrayShapeMismatch(t *testing.T) {
	_, err := FromArray(make([]float64, 5), RasterMeta{Width: 2, Height: 2, Count: 1})
	assert.Error(t, err)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open("/no/such/raster.tif", nil)
	assert.Error(t, err)
}

func TestLoadAllBands(t *testing.T) {
	h := makeTestRaster(t, 4, 3, 3)

	require.NoError(t, h.Load())
	assert.True(t, h.IsLoaded())
	assert.Equal(t, 3, h.BandCount())
	assert.Len(t, h.Data(), 3*4*3)

	v, err := h.At(1, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
	v, err = h.At(3, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, float64(2*4*3+2*4+3), v)
}

func TestLoadRecomputesBandCount(t *testing.T) {
	h := makeTestRaster(t, 4, 3, 3)

	require.NoError(t, h.Load())
	assert.Equal(t, 3, h.BandCount())

	// 单波段加载后波段数按读取结果重新计算
	require.NoError(t, h.Load(2))
	assert.Equal(t, 1, h.BandCount())
	assert.Len(t, h.Data(), 4*3)

	buf, err := h.BandBuffer(1)
	require.NoError(t, err)
	assert.Equal(t, float64(4*3), buf[0]) // 第2波段首像素
}

func TestLoadBandOutOfRange(t *testing.T) {
	h := makeTestRaster(t, 4, 3, 2)

	assert.Error(t, h.Load(0))
	assert.Error(t, h.Load(3))
	assert.False(t, h.IsLoaded())
}

func TestExtraAttrsUnion(t *testing.T) {
	src, err := godal.Create(godal.Memory, "", 1, godal.Float64, 4, 4)
	require.NoError(t, err)
	defer src.Close()
	require.NoError(t, src.SetGeoTransform([6]float64{0, 1, 0, 4, 0, -1}))
	require.NoError(t, src.SetMetadata("SENSOR", "test-sensor"))

	h, err := FromDataset(src, &OpenOptions{ExtraAttrs: []string{"SENSOR"}})
	require.NoError(t, err)
	defer h.Close()

	// 默认集合仍然齐全，额外项进入Extras
	assert.Equal(t, 4, h.Meta.Width)
	assert.Equal(t, "test-sensor", h.Meta.Extras["SENSOR"])
}

func TestBandBufferRequiresLoad(t *testing.T) {
	h := makeTestRaster(t, 4, 3, 1)

	_, err := h.BandBuffer(1)
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestSatelliteImageDelegates(t *testing.T) {
	base := makeTestRaster(t, 6, 6, 1)
	img := &SatelliteImage{RasterHandle: base}

	assert.Equal(t, 6, img.GetWidth())
	require.NoError(t, img.Load())
	assert.True(t, img.IsLoaded())
}
