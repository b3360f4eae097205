package store

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/udisondev/zonekit/internal/zone"
)

// Snapshot is the on-disk container for an exported zone set.
type Snapshot struct {
	Version int               `json:"version"`
	Zones   []zone.Definition `json:"zones"`
}

// SnapshotVersion is the current snapshot format version.
const SnapshotVersion = 1

// WriteSnapshot writes the definitions as a gzip-compressed JSON file.
func WriteSnapshot(path string, defs []zone.Definition) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot %s: %w", path, err)
	}

	gw := gzip.NewWriter(f)
	if err := json.NewEncoder(gw).Encode(Snapshot{Version: SnapshotVersion, Zones: defs}); err != nil {
		gw.Close()
		f.Close()
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := gw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("flushing snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing snapshot %s: %w", path, err)
	}
	return nil
}

// ReadSnapshot reads a gzip JSON zone snapshot.
func ReadSnapshot(path string) ([]zone.Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot %s: %w", path, err)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot header: %w", err)
	}
	defer gr.Close()

	var snap Snapshot
	if err := json.NewDecoder(gr).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	return snap.Zones, nil
}
