// SatelliteImage.go
package GeoUtils

// SatelliteImage 卫星影像句柄
// 与RasterHandle行为完全一致，为后续卫星元数据（传感器、获取时间等）预留
type SatelliteImage struct {
	*RasterHandle

	Kind string // 传感器/产品类型标记，可为空
}

// OpenSatelliteImage 打开卫星影像文件
func OpenSatelliteImage(path string, options *OpenOptions) (*SatelliteImage, error) {
	h, err := Open(path, options)
	if err != nil {
		return nil, err
	}
	return &SatelliteImage{RasterHandle: h}, nil
}
