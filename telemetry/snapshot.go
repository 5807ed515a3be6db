package telemetry

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/mlange-42/ark/ecs"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/pthm-cable/collide/systems"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// GridSnapshot is the binary dump of one spatial grid rebuild.
type GridSnapshot struct {
	Version    int            `msgpack:"version"`
	Tick       int32          `msgpack:"tick"`
	CellWidth  float32        `msgpack:"cell_w"`
	CellHeight float32        `msgpack:"cell_h"`
	Cells      []CellSnapshot `msgpack:"cells"`
}

// CellSnapshot lists the entity ids indexed in one cell.
type CellSnapshot struct {
	Col int      `msgpack:"col"`
	Row int      `msgpack:"row"`
	IDs []uint32 `msgpack:"ids"`
}

// Count returns the number of entities across all cells.
func (s *GridSnapshot) Count() int {
	n := 0
	for _, c := range s.Cells {
		n += len(c.IDs)
	}
	return n
}

// CaptureGrid copies the grid contents into a snapshot, ordered by row then column.
func CaptureGrid(tick int32, grid *systems.SpatialGrid) *GridSnapshot {
	w, h := grid.CellSize()
	snap := &GridSnapshot{
		Version:    SnapshotVersion,
		Tick:       tick,
		CellWidth:  w,
		CellHeight: h,
	}

	grid.Each(func(idx systems.CellIndex, bucket []ecs.Entity) {
		ids := make([]uint32, len(bucket))
		for i, e := range bucket {
			ids[i] = e.ID()
		}
		snap.Cells = append(snap.Cells, CellSnapshot{Col: idx.Col, Row: idx.Row, IDs: ids})
	})

	slices.SortFunc(snap.Cells, func(a, b CellSnapshot) int {
		if c := cmp.Compare(a.Row, b.Row); c != 0 {
			return c
		}
		return cmp.Compare(a.Col, b.Col)
	})
	return snap
}

// SnapshotWriter writes a grid snapshot every interval rebuilds.
type SnapshotWriter struct {
	dir      string
	interval int
	rebuilds int
}

// NewSnapshotWriter creates a writer. Returns nil if dir is empty or interval < 1 (disabled).
func NewSnapshotWriter(dir string, interval int) (*SnapshotWriter, error) {
	if dir == "" || interval < 1 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}
	return &SnapshotWriter{dir: dir, interval: interval}, nil
}

// OnRebuild counts a rebuild and writes a snapshot when the interval is reached.
// Returns the path written, or "" if this rebuild was skipped.
func (sw *SnapshotWriter) OnRebuild(tick int32, grid *systems.SpatialGrid) (string, error) {
	if sw == nil {
		return "", nil
	}
	sw.rebuilds++
	if sw.rebuilds < sw.interval {
		return "", nil
	}
	sw.rebuilds = 0

	path := filepath.Join(sw.dir, fmt.Sprintf("grid_%08d.msgpack", tick))
	if err := WriteSnapshot(path, CaptureGrid(tick, grid)); err != nil {
		return "", err
	}
	return path, nil
}

// WriteSnapshot encodes a snapshot to path.
func WriteSnapshot(path string, snap *GridSnapshot) error {
	data, err := msgpack.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot decodes a snapshot written by WriteSnapshot.
func ReadSnapshot(path string) (*GridSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var snap GridSnapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snap.Version, SnapshotVersion)
	}
	return &snap, nil
}
