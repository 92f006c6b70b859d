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
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// CatalogRecord 影像目录条目
type CatalogRecord struct {
	ID        int64   `gorm:"primaryKey;autoIncrement"`
	Name      string  `gorm:"type:varchar(255);uniqueIndex;column:name"`
	Path      string  `gorm:"type:varchar(1024);column:path"`
	Driver    string  `gorm:"type:varchar(60);column:driver"`
	EPSG      int     `gorm:"column:epsg"`
	Width     int     `gorm:"column:width"`
	Height    int     `gorm:"column:height"`
	BandCount int     `gorm:"column:band_count"`
	MinX      float64 `gorm:"column:minx"`
	MinY      float64 `gorm:"column:miny"`
	MaxX      float64 `gorm:"column:maxx"`
	MaxY      float64 `gorm:"column:maxy"`
}

// RasterCatalog 影像目录，按名称登记和解析栅格文件路径
// 存储为单个sqlite文件
type RasterCatalog struct {
	db   *sql.DB
	path string
}

// OpenCatalog 打开（必要时创建）目录文件
func OpenCatalog(path string) (*RasterCatalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog %s: %w", path, err)
	}

	createSQL := `CREATE TABLE IF NOT EXISTS rasters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		path TEXT NOT NULL,
		driver TEXT,
		epsg INTEGER,
		width INTEGER,
		height INTEGER,
		band_count INTEGER,
		minx REAL, miny REAL, maxx REAL, maxy REAL
	)`
	if _, err := db.Exec(createSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create catalog table: %w", err)
	}

	return &RasterCatalog{db: db, path: path}, nil
}

// Register 登记一个栅格句柄，同名条目整体覆盖
func (c *RasterCatalog) Register(name string, h *RasterHandle) error {
	if name == "" {
		return fmt.Errorf("catalog entry name is empty")
	}
	if h == nil {
		return fmt.Errorf("raster handle is nil")
	}

	m := h.Meta
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO rasters
		 (name, path, driver, epsg, width, height, band_count, minx, miny, maxx, maxy)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		name, h.Path, m.Driver, m.EPSG, m.Width, m.Height, m.Count,
		m.Bounds[0], m.Bounds[1], m.Bounds[2], m.Bounds[3],
	)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", name, err)
	}

	return nil
}

// ResolvePath 按名称解析栅格文件路径
func (c *RasterCatalog) ResolvePath(name string) (string, error) {
	var path string
	err := c.db.QueryRow(`SELECT path FROM rasters WHERE name = ?`, name).Scan(&path)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("no catalog entry named %s", name)
	}
	if err != nil {
		return "", err
	}
	return path, nil
}

// OpenByName 按目录名称打开栅格
func (c *RasterCatalog) OpenByName(name string, options *OpenOptions) (*RasterHandle, error) {
	path, err := c.ResolvePath(name)
	if err != nil {
		return nil, err
	}
	return Open(path, options)
}

// List 返回全部目录条目
func (c *RasterCatalog) List() ([]CatalogRecord, error) {
	rows, err := c.db.Query(
		`SELECT id, name, path, driver, epsg, width, height, band_count, minx, miny, maxx, maxy
		 FROM rasters ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []CatalogRecord
	for rows.Next() {
		var r CatalogRecord
		if err := rows.Scan(&r.ID, &r.Name, &r.Path, &r.Driver, &r.EPSG,
			&r.Width, &r.Height, &r.BandCount, &r.MinX, &r.MinY, &r.MaxX, &r.MaxY); err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// Close 关闭目录文件
func (c *RasterCatalog) Close() error {
	return c.db.Close()
}

// ExportCatalogToDB 将目录条目写入外部数据库
// DB由调用方构造并负责方言选择，tableName为空时使用默认表名
func ExportCatalogToDB(DB *gorm.DB, catalog *RasterCatalog, tableName string) error {
	if DB == nil {
		return fmt.Errorf("DB is nil")
	}
	if tableName == "" {
		tableName = "raster_catalog"
	}

	records, err := catalog.List()
	if err != nil {
		return err
	}

	if err := DB.Table(tableName).AutoMigrate(&CatalogRecord{}); err != nil {
		return fmt.Errorf("failed to migrate table %s: %w", tableName, err)
	}

	if len(records) == 0 {
		return nil
	}

	// 导出为全量快照：先清空再批量写入
	if err := DB.Table(tableName).Where("1 = 1").Delete(&CatalogRecord{}).Error; err != nil {
		return fmt.Errorf("failed to clear table %s: %w", tableName, err)
	}
	if err := DB.Table(tableName).CreateInBatches(records, 200).Error; err != nil {
		return fmt.Errorf("failed to insert catalog records: %w", err)
	}

	return nil
}
