// Package spatial provides interchangeable spatial indices mapping
// bounding boxes to items: an R-tree (primary), a uniform grid and a
// quadtree. All three satisfy the same Index contract.
package spatial

import "github.com/udisondev/zonekit/internal/geo"

// Item is anything indexable by a stable id and a bounding box.
// *zone.Zone satisfies it.
type Item interface {
	ID() int32
	BBox() geo.BBox
}

// Index maps bounding boxes to items for sub-linear overlap queries.
//
// Search returns every item whose bounding box intersects the query
// box — a conservative superset; callers must still run an exact
// containment test. Indices are not internally synchronized: the
// owning manager funnels all mutation through a single writer.
type Index interface {
	// Insert adds an item under its current bounding box.
	Insert(it Item)
	// Remove deletes the item; false if it was not indexed.
	Remove(it Item) bool
	// Update re-indexes the item after its box changed (remove+insert).
	Update(it Item)
	// Search returns all items whose indexed box intersects the query.
	Search(box geo.BBox) []Item
	// Clear drops all entries.
	Clear()
	// Size returns the number of indexed items.
	Size() int
}
