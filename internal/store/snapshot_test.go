package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/zonekit/internal/zone"
)

func TestSnapshot_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zones.json.gz")

	defs := []zone.Definition{
		{ID: 1, Name: "arena", Type: zone.KindCircle, Enabled: true, X: 100, Y: 100, Radius: 10, Priority: 5, Tags: []string{"pvp"}},
		{ID: 2, Name: "keep", Type: zone.KindRectangle, Enabled: true, X: 0, Y: 0, Width: 40, Height: 20, Rotation: 0.7},
		{ID: 3, Name: "swamp", Type: zone.KindPolygon, Enabled: false, Points: [][2]float64{{0, 0}, {10, 0}, {5, 10}}},
	}

	require.NoError(t, WriteSnapshot(path, defs))

	got, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, defs, got)
}

func TestSnapshot_Compressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zones.json.gz")
	require.NoError(t, WriteSnapshot(path, []zone.Definition{
		{ID: 1, Type: zone.KindCircle, Enabled: true, Radius: 10},
	}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	// gzip magic bytes: файл действительно сжат, а не голый JSON.
	require.Greater(t, len(raw), 2)
	assert.Equal(t, byte(0x1f), raw[0])
	assert.Equal(t, byte(0x8b), raw[1])
}

func TestReadSnapshot_MissingFile(t *testing.T) {
	_, err := ReadSnapshot(filepath.Join(t.TempDir(), "absent.json.gz"))
	assert.Error(t, err)
}

func TestReadSnapshot_NotGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":1,"zones":[]}`), 0o644))

	_, err := ReadSnapshot(path)
	assert.Error(t, err, "uncompressed file must be rejected")
}

func TestReadSnapshot_VersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zones.json.gz")

	// Снимок с чужой версией формата пишем вручную.
	f, err := os.Create(path)
	require.NoError(t, err)
	gw := gzip.NewWriter(f)
	_, err = gw.Write([]byte(`{"version":99,"zones":[]}`))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, f.Close())

	_, err = ReadSnapshot(path)
	assert.ErrorContains(t, err, "unsupported snapshot version")
}
