/*
Copyright (C) 2025 [GrainArc]

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published
by the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package GeoUtils

import (
	"errors"
	"fmt"
	"math"

	"github.com/airbusgeo/godal"
	"github.com/paulmach/orb"
)

// 裁剪模式
const (
	// CropModeMatchPixel 保持原始像素分辨率，窗口按all-touched规则向外对齐到像素网格
	CropModeMatchPixel = "match_pixel"
	// CropModeMatchExtent 精确匹配目标范围，调整像素分辨率
	CropModeMatchExtent = "match_extent"
)

var (
	// ErrNotImplemented 预留但尚未实现的操作
	ErrNotImplemented = errors.New("not implemented")
	// ErrNotLoaded 像素缓冲区尚未加载
	ErrNotLoaded = errors.New("raster data has not been loaded")
	// ErrInvalidCropMode 裁剪模式配置错误
	ErrInvalidCropMode = errors.New("mode must be one of 'match_pixel', 'match_extent'")
	// ErrInvalidCropGeom 裁剪范围参数类型错误
	ErrInvalidCropGeom = errors.New("cropGeom must be a RasterHandle, Vector, bound or [4]float64 coordinates")
)

// Crop 将栅格裁剪到目标范围，就地替换内存数据集
//
// cropGeom支持以下形式：
//   - *RasterHandle：使用其边界
//   - [4]float64 / []float64：按 minX, minY, maxX, maxY 顺序
//   - orb.Bound：矢量包围盒
//   - *Vector：预留，返回ErrNotImplemented
//
// mode为CropModeMatchPixel或CropModeMatchExtent
// 所有参数校验在任何I/O之前完成，校验失败不改变句柄状态
func (h *RasterHandle) Crop(cropGeom interface{}, mode string) error {
	if mode != CropModeMatchPixel && mode != CropModeMatchExtent {
		return fmt.Errorf("%w, got %q", ErrInvalidCropMode, mode)
	}

	var xmin, ymin, xmax, ymax float64
	switch g := cropGeom.(type) {
	case *RasterHandle:
		if g == nil {
			return ErrInvalidCropGeom
		}
		xmin, ymin, xmax, ymax = g.GetBounds()
	case *Vector:
		return fmt.Errorf("cropping by vector geometry: %w", ErrNotImplemented)
	case [4]float64:
		xmin, ymin, xmax, ymax = g[0], g[1], g[2], g[3]
	case []float64:
		if len(g) != 4 {
			return fmt.Errorf("%w: expected 4 coordinates, got %d", ErrInvalidCropGeom, len(g))
		}
		xmin, ymin, xmax, ymax = g[0], g[1], g[2], g[3]
	case orb.Bound:
		xmin, ymin, xmax, ymax = g.Min[0], g.Min[1], g.Max[0], g.Max[1]
	default:
		return fmt.Errorf("%w, got %T", ErrInvalidCropGeom, cropGeom)
	}

	if xmax <= xmin || ymax <= ymin {
		return fmt.Errorf("%w: empty extent (%g, %g, %g, %g)", ErrInvalidCropGeom, xmin, ymin, xmax, ymax)
	}

	meta := h.Meta

	var img []float64
	var err error

	if mode == CropModeMatchPixel {
		// 目标范围构造为矩形面，按all-touched规则掩膜并裁剪到其范围
		bbox := orb.Polygon{orb.Ring{
			{xmin, ymin}, {xmax, ymin}, {xmax, ymax}, {xmin, ymax}, {xmin, ymin},
		}}

		var tfm [6]float64
		var width, height int
		img, tfm, width, height, err = h.maskToPolygon(bbox)
		if err != nil {
			return err
		}

		meta.Width = width
		meta.Height = height
		meta.Transform = tfm
	} else {
		// 由当前变换计算目标范围对应的像素窗口，取整得到新尺寸
		left, top, right, bottom := windowFromBounds(h.Meta.Transform, xmin, ymin, xmax, ymax)
		newWidth := int(right - left)
		newHeight := int(bottom - top)
		if newWidth <= 0 || newHeight <= 0 {
			return fmt.Errorf("crop extent (%g, %g, %g, %g) produces empty window", xmin, ymin, xmax, ymax)
		}
		newTfm := transformFromBounds(xmin, ymin, xmax, ymax, newWidth, newHeight)

		// 波段数优先取已加载缓冲区，未加载时取数据集声明值
		// 加载了波段子集时目标只保留该子集的内容
		nbands := h.Meta.Count
		var bands []int
		if h.isLoaded {
			nbands = h.nbands
			bands = h.loadedBands
		}

		img, err = h.reprojectToGrid(newTfm, newWidth, newHeight, bands)
		if err != nil {
			return err
		}

		meta.Width = newWidth
		meta.Height = newHeight
		meta.Transform = newTfm
		meta.Count = nbands
	}

	return h.update(img, meta)
}

// Clip 预留接口，尚未实现
func (h *RasterHandle) Clip() error {
	return ErrNotImplemented
}

// maskToPolygon 按矩形面裁剪数据集，返回像素数组和对应的仿射变换
// 采用all-touched语义：窗口向外取整，任何与面相交的像素都包含在内，
// 窗口同时收缩到数据集自身范围
func (h *RasterHandle) maskToPolygon(poly orb.Polygon) ([]float64, [6]float64, int, int, error) {
	b := poly.Bound()
	gt := h.Meta.Transform

	left, top, right, bottom := windowFromBounds(gt, b.Min[0], b.Min[1], b.Max[0], b.Max[1])

	col0 := int(math.Floor(left))
	row0 := int(math.Floor(top))
	col1 := int(math.Ceil(right))
	row1 := int(math.Ceil(bottom))

	if col0 < 0 {
		col0 = 0
	}
	if row0 < 0 {
		row0 = 0
	}
	if col1 > h.Meta.Width {
		col1 = h.Meta.Width
	}
	if row1 > h.Meta.Height {
		row1 = h.Meta.Height
	}

	width := col1 - col0
	height := row1 - row0
	if width <= 0 || height <= 0 {
		return nil, [6]float64{}, 0, 0, fmt.Errorf("crop polygon does not intersect the raster extent")
	}

	nbands := h.Meta.Count
	buf := make([]float64, nbands*width*height)
	if err := h.ds.Read(col0, row0, buf, width, height, godal.BandInterleaved()); err != nil {
		return nil, [6]float64{}, 0, 0, err
	}

	tfm := windowTransform(gt, col0, row0)

	return buf, tfm, width, height, nil
}

// reprojectToGrid 将当前数据集重采样到给定的像素网格（坐标系不变）
// 目标缓冲区按计算出的形状零值初始化，再由GDAL重采样填充
// bands为要读出的数据集波段（1开始计数），nil表示全部
func (h *RasterHandle) reprojectToGrid(tfm [6]float64, width, height int, bands []int) ([]float64, error) {
	dtype := h.Meta.DataType
	if dtype == godal.Unknown {
		dtype = godal.Float64
	}

	// 目标数据集波段数与源保持一致以满足warp的波段映射，读出时再截取所需波段
	dst, err := godal.Create(godal.Memory, "", h.Meta.Count, dtype, width, height)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination dataset: %w", err)
	}
	defer dst.Close()

	if err := dst.SetGeoTransform(tfm); err != nil {
		return nil, err
	}
	if h.Meta.Proj != "" {
		if err := dst.SetProjection(h.Meta.Proj); err != nil {
			return nil, err
		}
	}
	if h.Meta.HasNoData {
		if err := dst.SetNoData(h.Meta.NoData); err != nil {
			return nil, err
		}
	}

	if err := dst.WarpInto([]*godal.Dataset{h.ds}, []string{"-r", "near"}); err != nil {
		return nil, fmt.Errorf("failed to resample into destination grid: %w", err)
	}

	buf, _, err := readBands(dst, bands)
	if err != nil {
		return nil, err
	}

	return buf, nil
}

// windowFromBounds 由世界坐标范围计算像素窗口（小数列/行号）
// 假定north-up变换（无旋转项），与数据集自身的变换约定一致
func windowFromBounds(gt [6]float64, xmin, ymin, xmax, ymax float64) (left, top, right, bottom float64) {
	left = (xmin - gt[0]) / gt[1]
	right = (xmax - gt[0]) / gt[1]
	top = (ymax - gt[3]) / gt[5]
	bottom = (ymin - gt[3]) / gt[5]
	return
}

// transformFromBounds 由精确范围和像素尺寸构造仿射变换
func transformFromBounds(xmin, ymin, xmax, ymax float64, width, height int) [6]float64 {
	return [6]float64{
		xmin, (xmax - xmin) / float64(width), 0,
		ymax, 0, -(ymax - ymin) / float64(height),
	}
}

// windowTransform 窗口左上角偏移后的仿射变换
func windowTransform(gt [6]float64, col0, row0 int) [6]float64 {
	return [6]float64{
		gt[0] + float64(col0)*gt[1], gt[1], gt[2],
		gt[3] + float64(row0)*gt[5], gt[4], gt[5],
	}
}
