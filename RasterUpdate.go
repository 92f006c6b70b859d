// RasterUpdate.go
package GeoUtils

import (
	"fmt"

	"github.com/airbusgeo/godal"
)

// update 用新的像素数组和元数据整体替换内存数据集
// 这是结构性变更的唯一入口：新数据集完整构建并重新镜像元数据之后才提交，
// 任一步骤失败时句柄保持变更前的状态，旧数据集在替换后立即释放
func (h *RasterHandle) update(img []float64, meta RasterMeta) error {
	if meta.Width <= 0 || meta.Height <= 0 || meta.Count <= 0 {
		return fmt.Errorf("invalid raster shape: %d band(s), %dx%d", meta.Count, meta.Width, meta.Height)
	}

	dtype := meta.DataType
	if dtype == godal.Unknown {
		dtype = godal.Float64
	}

	mem, err := godal.Create(godal.Memory, "", meta.Count, dtype, meta.Width, meta.Height)
	if err != nil {
		return fmt.Errorf("failed to create in-memory dataset: %w", err)
	}

	if err := mem.SetGeoTransform(meta.Transform); err != nil {
		mem.Close()
		return err
	}
	if meta.Proj != "" {
		if err := mem.SetProjection(meta.Proj); err != nil {
			mem.Close()
			return err
		}
	}
	if meta.HasNoData {
		if err := mem.SetNoData(meta.NoData); err != nil {
			mem.Close()
			return err
		}
	}

	if err := mem.Write(0, 0, img, meta.Width, meta.Height, godal.BandInterleaved()); err != nil {
		mem.Close()
		return fmt.Errorf("failed to write pixel data: %w", err)
	}

	newMeta, err := mirrorAttrs(mem, h.extraAttrs)
	if err != nil {
		mem.Close()
		return err
	}
	newMeta.Driver = meta.Driver
	if newMeta.Driver == "" {
		newMeta.Driver = "MEM"
	}

	// 加载状态保持：变更前已加载则从新数据集重新读出缓冲区
	var newData []float64
	var newBands int
	if h.isLoaded {
		newData, newBands, err = readBands(mem, nil)
		if err != nil {
			mem.Close()
			return err
		}
	}

	old := h.ds
	h.ds = mem
	h.Meta = newMeta
	if h.isLoaded {
		// 新数据集的波段即缓冲区波段，不再保留旧的子集映射
		h.data = newData
		h.nbands = newBands
		h.loadedBands = nil
	}

	if old != nil {
		old.Close()
	}

	return nil
}
