// RasterInfo.go
package GeoUtils

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// BandStats 单个波段的统计信息（忽略NoData和NaN像素）
type BandStats struct {
	Max    float64
	Min    float64
	Median float64
	Mean   float64
	StdDev float64
}

// Info 返回栅格的多行文本信息
// stats为true时追加各波段统计信息，此时要求像素缓冲区已加载
func (h *RasterHandle) Info(stats bool) (string, error) {
	m := h.Meta

	var sb strings.Builder
	fmt.Fprintf(&sb, "Driver:             %s \n", m.Driver)
	fmt.Fprintf(&sb, "File on disk:       %s \n", h.Path)
	fmt.Fprintf(&sb, "In-Memory ID:       %s\n", m.MemID)
	fmt.Fprintf(&sb, "Size:               %d, %d\n", m.Width, m.Height)
	fmt.Fprintf(&sb, "Coordinate System:  EPSG:%d\n", m.EPSG)
	if m.HasNoData {
		fmt.Fprintf(&sb, "NoData Value:       %g\n", m.NoData)
	} else {
		fmt.Fprintf(&sb, "NoData Value:       None\n")
	}
	fmt.Fprintf(&sb, "Pixel Size:         %g, %g\n", m.ResX, m.ResY)
	fmt.Fprintf(&sb, "Upper Left Corner:  %g, %g\n", m.Bounds[0], m.Bounds[3])
	fmt.Fprintf(&sb, "Lower Right Corner: %g, %g\n", m.Bounds[2], m.Bounds[1])

	if stats {
		if !h.isLoaded {
			return "", fmt.Errorf("statistics requested: %w", ErrNotLoaded)
		}
		for b := 1; b <= h.nbands; b++ {
			buf, err := h.BandBuffer(b)
			if err != nil {
				return "", err
			}
			bs := computeBandStats(buf, m.NoData, m.HasNoData)
			if h.nbands > 1 {
				fmt.Fprintf(&sb, "Band %d:\n", b) // 与GDAL一致从1开始计数
			}
			fmt.Fprintf(&sb, "[MAXIMUM]:          %.2f\n", bs.Max)
			fmt.Fprintf(&sb, "[MINIMUM]:          %.2f\n", bs.Min)
			fmt.Fprintf(&sb, "[MEDIAN]:           %.2f\n", bs.Median)
			fmt.Fprintf(&sb, "[MEAN]:             %.2f\n", bs.Mean)
			fmt.Fprintf(&sb, "[STD DEV]:          %.2f\n", bs.StdDev)
		}
	}

	return sb.String(), nil
}

// Stats 计算单个波段的统计信息，band为1开始计数
func (h *RasterHandle) Stats(band int) (BandStats, error) {
	buf, err := h.BandBuffer(band)
	if err != nil {
		return BandStats{}, err
	}
	return computeBandStats(buf, h.Meta.NoData, h.Meta.HasNoData), nil
}

// computeBandStats 跳过NaN和NoData像素的统计归约
// 中位数在偶数个有效值时取中间两值的平均，标准差为总体标准差
func computeBandStats(data []float64, nodata float64, hasNodata bool) BandStats {
	valid := make([]float64, 0, len(data))
	sum := 0.0
	for _, v := range data {
		if math.IsNaN(v) {
			continue
		}
		if hasNodata && v == nodata {
			continue
		}
		valid = append(valid, v)
		sum += v
	}

	if len(valid) == 0 {
		nan := math.NaN()
		return BandStats{Max: nan, Min: nan, Median: nan, Mean: nan, StdDev: nan}
	}

	sort.Float64s(valid)

	n := len(valid)
	mean := sum / float64(n)

	var median float64
	if n%2 == 1 {
		median = valid[n/2]
	} else {
		median = (valid[n/2-1] + valid[n/2]) / 2
	}

	variance := 0.0
	for _, v := range valid {
		d := v - mean
		variance += d * d
	}
	variance /= float64(n)

	return BandStats{
		Max:    valid[n-1],
		Min:    valid[0],
		Median: median,
		Mean:   mean,
		StdDev: math.Sqrt(variance),
	}
}
