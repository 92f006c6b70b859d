package GeoUtils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogRegisterAndResolve(t *testing.T) {
	catalogPath := filepath.Join(t.TempDir(), "catalog.db")

	c, err := OpenCatalog(catalogPath)
	require.NoError(t, err)
	defer c.Close()

	h := makeTestRaster(t, 10, 8, 2)
	require.NoError(t, c.Register("landsat_B4_crop", h))

	path, err := c.ResolvePath("landsat_B4_crop")
	require.NoError(t, err)
	assert.Equal(t, h.Path, path)

	records, err := c.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "landsat_B4_crop", records[0].Name)
	assert.Equal(t, 10, records[0].Width)
	assert.Equal(t, 8, records[0].Height)
	assert.Equal(t, 2, records[0].BandCount)
	assert.Equal(t, 0.0, records[0].MinX)
	assert.Equal(t, 10.0, records[0].MaxX)
}

func TestCatalogReplaceOnSameName(t *testing.T) {
	catalogPath := filepath.Join(t.TempDir(), "catalog.db")

	c, err := OpenCatalog(catalogPath)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Register("scene", makeTestRaster(t, 4, 4, 1)))
	require.NoError(t, c.Register("scene", makeTestRaster(t, 8, 8, 1)))

	records, err := c.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 8, records[0].Width)
}

func TestCatalogMissingEntry(t *testing.T) {
	catalogPath := filepath.Join(t.TempDir(), "catalog.db")

	c, err := OpenCatalog(catalogPath)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.ResolvePath("nope")
	assert.Error(t, err)
}

func TestCatalogRejectsEmptyName(t *testing.T) {
	catalogPath := filepath.Join(t.TempDir(), "catalog.db")

	c, err := OpenCatalog(catalogPath)
	require.NoError(t, err)
	defer c.Close()

	assert.Error(t, c.Register("", makeTestRaster(t, 4, 4, 1)))
	assert.Error(t, c.Register("x", nil))
}
