// Vector.go
package GeoUtils

import (
	"github.com/paulmach/orb"
)

// Vector 矢量几何包装
// 目前仅作为Crop的预留参数类型，按矢量几何裁剪尚未实现
type Vector struct {
	Geometry orb.Geometry
	Proj     string // 投影（WKT），可为空
}

// NewVector 由orb几何构造Vector
func NewVector(geometry orb.Geometry) *Vector {
	return &Vector{Geometry: geometry}
}

// Bounds 几何的包围盒，按 minX, minY, maxX, maxY 顺序
func (v *Vector) Bounds() [4]float64 {
	b := v.Geometry.Bound()
	return [4]float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}
}
