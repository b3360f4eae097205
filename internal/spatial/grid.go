package spatial

import (
	"math"

	"github.com/udisondev/zonekit/internal/geo"
)

// Grid is a uniform-grid index: each item is registered in every cell
// its bounding box covers. Preferred when items are small and evenly
// distributed — insert/remove are O(cells covered), effectively O(1).
type Grid struct {
	cellSize float64
	cells    map[gridKey][]Item
	boxes    map[int32]geo.BBox
}

type gridKey struct {
	gx, gy int32
}

// NewGrid creates a grid index with the given cell size in world units.
// Non-positive sizes fall back to 256.
func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = 256
	}
	return &Grid{
		cellSize: cellSize,
		cells:    make(map[gridKey][]Item),
		boxes:    make(map[int32]geo.BBox),
	}
}

// Size returns the number of indexed items.
func (g *Grid) Size() int { return len(g.boxes) }

// Clear drops all entries.
func (g *Grid) Clear() {
	g.cells = make(map[gridKey][]Item)
	g.boxes = make(map[int32]geo.BBox)
}

// Insert registers the item in every cell its bounding box covers.
func (g *Grid) Insert(it Item) {
	box := it.BBox()
	g.boxes[it.ID()] = box
	g.eachCell(box, func(key gridKey) {
		g.cells[key] = append(g.cells[key], it)
	})
}

// Remove deletes the item from all cells its indexed box covered.
func (g *Grid) Remove(it Item) bool {
	box, ok := g.boxes[it.ID()]
	if !ok {
		return false
	}
	delete(g.boxes, it.ID())
	g.eachCell(box, func(key gridKey) {
		items := g.cells[key]
		for i := range items {
			if items[i].ID() == it.ID() {
				items = append(items[:i], items[i+1:]...)
				break
			}
		}
		if len(items) == 0 {
			delete(g.cells, key)
		} else {
			g.cells[key] = items
		}
	})
	return true
}

// Update re-indexes the item after its bounding box changed.
func (g *Grid) Update(it Item) {
	g.Remove(it)
	g.Insert(it)
}

// Search returns all items whose indexed box intersects the query box.
func (g *Grid) Search(box geo.BBox) []Item {
	var out []Item
	seen := make(map[int32]struct{})
	g.eachCell(box, func(key gridKey) {
		for _, it := range g.cells[key] {
			if _, ok := seen[it.ID()]; ok {
				continue
			}
			seen[it.ID()] = struct{}{}
			if g.boxes[it.ID()].Intersects(box) {
				out = append(out, it)
			}
		}
	})
	return out
}

// eachCell visits every cell key covered by the box. Floor division
// keeps negative coordinates in the right cell.
func (g *Grid) eachCell(box geo.BBox, fn func(gridKey)) {
	gxMin := int32(math.Floor(box.MinX / g.cellSize))
	gxMax := int32(math.Floor(box.MaxX / g.cellSize))
	gyMin := int32(math.Floor(box.MinY / g.cellSize))
	gyMax := int32(math.Floor(box.MaxY / g.cellSize))
	for gx := gxMin; gx <= gxMax; gx++ {
		for gy := gyMin; gy <= gyMax; gy++ {
			fn(gridKey{gx: gx, gy: gy})
		}
	}
}
