// RasterHandle.go
package GeoUtils

import (
	"fmt"
	"math"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/airbusgeo/godal"
	"github.com/google/uuid"
)

func init() {
	godal.RegisterAll()
}

// RasterMeta 栅格数据集的元数据镜像
// 所有字段反映当前内存数据集的状态，裁剪等操作后整体替换
type RasterMeta struct {
	Driver    string            // 格式驱动名称
	Width     int               // 宽度（像素）
	Height    int               // 高度（像素）
	Count     int               // 波段数
	DataType  godal.DataType    // 波段数据类型
	Bounds    [4]float64        // minX, minY, maxX, maxY
	Transform [6]float64        // GDAL仿射变换参数
	ResX      float64           // X方向像素分辨率
	ResY      float64           // Y方向像素分辨率
	Proj      string            // 投影（WKT）
	EPSG      int               // EPSG代码（无法识别时为0）
	NoData    float64           // NoData值
	HasNoData bool              // 是否设置NoData
	MemID     string            // 内存数据集标识
	Extras    map[string]string // 调用方额外指定的元数据项
}

// RasterHandle 栅格数据集句柄
// 打开时将源文件整体复制到内存数据集，后续变更不影响原始文件
type RasterHandle struct {
	Path string     // 磁盘源文件的绝对路径（内存构造时为空）
	Meta RasterMeta // 元数据镜像

	ds          *godal.Dataset // 内存数据集
	data        []float64      // 像素缓冲区，波段顺序排列 [band][row][col]
	nbands      int            // 缓冲区内的波段数
	loadedBands []int          // 缓冲区对应的数据集波段（1开始计数，nil表示全部）
	isLoaded    bool           // 是否已加载像素数据
	extraAttrs  []string       // 构造时指定的额外元数据项
}

// OpenOptions 打开选项
type OpenOptions struct {
	ExtraAttrs []string // 额外镜像的元数据项（与默认集合取并集）
	LoadData   bool     // 是否立即加载像素数据
	Bands      []int    // 要加载的波段（1开始计数，空表示全部）
}

// DefaultOpenOptions 默认打开选项
func DefaultOpenOptions() *OpenOptions {
	return &OpenOptions{}
}

// Open 打开栅格文件并复制为内存数据集
func Open(path string, options *OpenOptions) (*RasterHandle, error) {
	if options == nil {
		options = DefaultOpenOptions()
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	src, err := godal.Open(absPath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	// 复制到内存数据集，后续修改不回写源文件
	mem, err := src.Translate("", []string{"-of", "MEM"})
	if err != nil {
		return nil, fmt.Errorf("failed to copy dataset into memory: %w", err)
	}

	h := &RasterHandle{
		Path:       absPath,
		ds:         mem,
		extraAttrs: options.ExtraAttrs,
	}
	meta, err := mirrorAttrs(mem, options.ExtraAttrs)
	if err != nil {
		mem.Close()
		return nil, err
	}
	meta.Driver = driverFromPath(absPath)
	h.Meta = meta

	if options.LoadData {
		if err := h.Load(options.Bands...); err != nil {
			mem.Close()
			return nil, err
		}
	}

	runtime.SetFinalizer(h, (*RasterHandle).Close)

	return h, nil
}

// FromDataset 从已有数据集构造句柄（复制为内存数据集，不获取原数据集所有权）
func FromDataset(ds *godal.Dataset, options *OpenOptions) (*RasterHandle, error) {
	if options == nil {
		options = DefaultOpenOptions()
	}
	if ds == nil {
		return nil, fmt.Errorf("dataset is nil")
	}

	mem, err := ds.Translate("", []string{"-of", "MEM"})
	if err != nil {
		return nil, fmt.Errorf("failed to copy dataset into memory: %w", err)
	}

	h := &RasterHandle{
		ds:         mem,
		extraAttrs: options.ExtraAttrs,
	}
	meta, err := mirrorAttrs(mem, options.ExtraAttrs)
	if err != nil {
		mem.Close()
		return nil, err
	}
	meta.Driver = "MEM"
	h.Meta = meta

	if options.LoadData {
		if err := h.Load(options.Bands...); err != nil {
			mem.Close()
			return nil, err
		}
	}

	runtime.SetFinalizer(h, (*RasterHandle).Close)

	return h, nil
}

// FromArray 从像素数组和元数据构造句柄（Path保持为空）
// img为波段顺序排列的缓冲区，meta需给定Width/Height/Count/DataType/Transform
func FromArray(img []float64, meta RasterMeta) (*RasterHandle, error) {
	if meta.Width <= 0 || meta.Height <= 0 || meta.Count <= 0 {
		return nil, fmt.Errorf("invalid raster shape: %d band(s), %dx%d", meta.Count, meta.Width, meta.Height)
	}
	if len(img) != meta.Count*meta.Width*meta.Height {
		return nil, fmt.Errorf("buffer length %d does not match shape (%d, %d, %d)",
			len(img), meta.Count, meta.Height, meta.Width)
	}

	h := &RasterHandle{}
	if err := h.update(img, meta); err != nil {
		return nil, err
	}

	runtime.SetFinalizer(h, (*RasterHandle).Close)

	return h, nil
}

// mirrorAttrs 从数据集读取元数据镜像
func mirrorAttrs(ds *godal.Dataset, extraAttrs []string) (RasterMeta, error) {
	meta := RasterMeta{}

	st := ds.Structure()
	meta.Width = st.SizeX
	meta.Height = st.SizeY
	meta.Count = st.NBands
	meta.DataType = st.DataType

	gt, err := ds.GeoTransform()
	if err != nil {
		// 无地理信息时使用像素坐标系变换
		gt = [6]float64{0, 1, 0, 0, 0, 1}
	}
	meta.Transform = gt
	meta.ResX = gt[1]
	meta.ResY = math.Abs(gt[5])

	// 由仿射变换计算边界
	minX := gt[0]
	maxY := gt[3]
	maxX := minX + float64(st.SizeX)*gt[1]
	minY := maxY + float64(st.SizeY)*gt[5]
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	meta.Bounds = [4]float64{minX, minY, maxX, maxY}

	meta.Proj = ds.Projection()
	meta.EPSG = datasetEPSG(ds)

	bands := ds.Bands()
	if len(bands) > 0 {
		meta.NoData, meta.HasNoData = bands[0].NoData()
	}

	meta.MemID = uuid.New().String()

	if len(extraAttrs) > 0 {
		meta.Extras = make(map[string]string, len(extraAttrs))
		for _, key := range extraAttrs {
			meta.Extras[key] = ds.Metadata(key)
		}
	}

	return meta, nil
}

// driverFromPath 按文件后缀推断源格式驱动名称
// 内存副本本身不保留源驱动信息，这里只用于Info展示
func driverFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		return "GTiff"
	case ".img":
		return "HFA"
	case ".vrt":
		return "VRT"
	case ".jp2":
		return "JP2OpenJPEG"
	case ".png":
		return "PNG"
	case ".jpg", ".jpeg":
		return "JPEG"
	case ".nc":
		return "netCDF"
	default:
		return "MEM"
	}
}

// datasetEPSG 识别数据集投影的EPSG代码，无法识别时返回0
func datasetEPSG(ds *godal.Dataset) int {
	sr := ds.SpatialRef()
	if sr == nil {
		return 0
	}
	_ = sr.AutoIdentifyEPSG()
	code := sr.AuthorityCode("")
	if code == "" {
		return 0
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return 0
	}
	return n
}

// readBands 读取指定波段到缓冲区，bands为1开始计数，空表示全部
func readBands(ds *godal.Dataset, bands []int) ([]float64, int, error) {
	st := ds.Structure()

	nbands := st.NBands
	ioOpts := []godal.DatasetIOOption{godal.BandInterleaved()}
	if len(bands) > 0 {
		zeroBased := make([]int, len(bands))
		for i, b := range bands {
			if b < 1 || b > st.NBands {
				return nil, 0, fmt.Errorf("band %d out of range [1, %d]", b, st.NBands)
			}
			zeroBased[i] = b - 1
		}
		ioOpts = append(ioOpts, godal.Bands(zeroBased...))
		nbands = len(bands)
	}

	buf := make([]float64, nbands*st.SizeX*st.SizeY)
	if err := ds.Read(0, 0, buf, st.SizeX, st.SizeY, ioOpts...); err != nil {
		return nil, 0, err
	}

	// 波段数按读取结果的形状重新计算，不使用构造时的缓存值
	nbands = len(buf) / (st.SizeX * st.SizeY)

	return buf, nbands, nil
}

// Load 加载波段数据到像素缓冲区，bands为1开始计数，省略表示全部波段
func (h *RasterHandle) Load(bands ...int) error {
	if h.ds == nil {
		return fmt.Errorf("dataset is nil")
	}

	buf, nbands, err := readBands(h.ds, bands)
	if err != nil {
		return err
	}

	h.data = buf
	h.nbands = nbands
	h.loadedBands = nil
	if len(bands) > 0 {
		h.loadedBands = append([]int(nil), bands...)
	}
	h.isLoaded = true

	return nil
}

// IsLoaded 像素缓冲区是否已加载
func (h *RasterHandle) IsLoaded() bool {
	return h.isLoaded
}

// BandCount 当前缓冲区内的波段数（未加载时为0）
func (h *RasterHandle) BandCount() int {
	return h.nbands
}

// Data 像素缓冲区（波段顺序排列），未加载时为nil
func (h *RasterHandle) Data() []float64 {
	return h.data
}

// BandBuffer 单个波段的像素数据，band为1开始计数
func (h *RasterHandle) BandBuffer(band int) ([]float64, error) {
	if !h.isLoaded {
		return nil, ErrNotLoaded
	}
	if band < 1 || band > h.nbands {
		return nil, fmt.Errorf("band %d out of range [1, %d]", band, h.nbands)
	}
	size := h.Meta.Width * h.Meta.Height
	return h.data[(band-1)*size : band*size], nil
}

// At 读取缓冲区像素值，band为1开始计数，row/col为0开始计数
func (h *RasterHandle) At(band, row, col int) (float64, error) {
	buf, err := h.BandBuffer(band)
	if err != nil {
		return 0, err
	}
	if row < 0 || row >= h.Meta.Height || col < 0 || col >= h.Meta.Width {
		return 0, fmt.Errorf("pixel (%d, %d) out of range %dx%d", row, col, h.Meta.Height, h.Meta.Width)
	}
	return buf[row*h.Meta.Width+col], nil
}

// GetWidth 获取宽度（像素）
func (h *RasterHandle) GetWidth() int {
	return h.Meta.Width
}

// GetHeight 获取高度（像素）
func (h *RasterHandle) GetHeight() int {
	return h.Meta.Height
}

// GetBounds 获取边界
func (h *RasterHandle) GetBounds() (minX, minY, maxX, maxY float64) {
	return h.Meta.Bounds[0], h.Meta.Bounds[1], h.Meta.Bounds[2], h.Meta.Bounds[3]
}

// Dataset 当前内存数据集（句柄持有所有权，调用方不得关闭）
func (h *RasterHandle) Dataset() *godal.Dataset {
	return h.ds
}

// Close 关闭并释放内存数据集
func (h *RasterHandle) Close() {
	if h.ds != nil {
		h.ds.Close()
		h.ds = nil
	}
	h.data = nil
	h.nbands = 0
	h.loadedBands = nil
	h.isLoaded = false
}

func (h *RasterHandle) String() string {
	s, _ := h.Info(false)
	return s
}
