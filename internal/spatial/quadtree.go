package spatial

import "github.com/udisondev/zonekit/internal/geo"

// Quadtree is a capacity/max-depth quadtree index. Items are pushed
// into the deepest quadrant that fully contains their bounding box;
// straddling items stay at the split level. Suits moderately varied
// item sizes.
type Quadtree struct {
	root     *qnode
	capacity int
	maxDepth int
	boxes    map[int32]geo.BBox
}

type qnode struct {
	bounds   geo.BBox
	depth    int
	items    []qitem
	children *[4]*qnode
}

type qitem struct {
	box  geo.BBox
	item Item
}

// NewQuadtree creates a quadtree over the given world bounds. Items
// whose box is not fully inside the bounds stay at the root.
// capacity is the per-node item count before subdivision; maxDepth
// bounds the subdivision depth.
func NewQuadtree(bounds geo.BBox, capacity, maxDepth int) *Quadtree {
	if capacity < 1 {
		capacity = 8
	}
	if maxDepth < 1 {
		maxDepth = 8
	}
	return &Quadtree{
		root:     &qnode{bounds: bounds, depth: 0},
		capacity: capacity,
		maxDepth: maxDepth,
		boxes:    make(map[int32]geo.BBox),
	}
}

// Size returns the number of indexed items.
func (q *Quadtree) Size() int { return len(q.boxes) }

// Clear drops all entries.
func (q *Quadtree) Clear() {
	q.root = &qnode{bounds: q.root.bounds, depth: 0}
	q.boxes = make(map[int32]geo.BBox)
}

// Insert adds the item under its current bounding box.
func (q *Quadtree) Insert(it Item) {
	box := it.BBox()
	q.boxes[it.ID()] = box
	q.insert(q.root, qitem{box: box, item: it})
}

func (q *Quadtree) insert(n *qnode, qi qitem) {
	if n.children != nil {
		if ch := childContaining(n, qi.box); ch != nil {
			q.insert(ch, qi)
			return
		}
	}

	n.items = append(n.items, qi)

	if n.children == nil && len(n.items) > q.capacity && n.depth < q.maxDepth {
		q.subdivide(n)
	}
}

// subdivide splits the node into four quadrants and pushes down every
// item that fits entirely inside one of them.
func (q *Quadtree) subdivide(n *qnode) {
	cx := (n.bounds.MinX + n.bounds.MaxX) / 2
	cy := (n.bounds.MinY + n.bounds.MaxY) / 2
	d := n.depth + 1
	n.children = &[4]*qnode{
		{bounds: geo.BBox{MinX: n.bounds.MinX, MinY: n.bounds.MinY, MaxX: cx, MaxY: cy}, depth: d},
		{bounds: geo.BBox{MinX: cx, MinY: n.bounds.MinY, MaxX: n.bounds.MaxX, MaxY: cy}, depth: d},
		{bounds: geo.BBox{MinX: n.bounds.MinX, MinY: cy, MaxX: cx, MaxY: n.bounds.MaxY}, depth: d},
		{bounds: geo.BBox{MinX: cx, MinY: cy, MaxX: n.bounds.MaxX, MaxY: n.bounds.MaxY}, depth: d},
	}

	kept := n.items[:0]
	for _, qi := range n.items {
		if ch := childContaining(n, qi.box); ch != nil {
			q.insert(ch, qi)
		} else {
			kept = append(kept, qi)
		}
	}
	n.items = kept
}

func childContaining(n *qnode, box geo.BBox) *qnode {
	for _, ch := range n.children {
		if ch.bounds.ContainsBox(box) {
			return ch
		}
	}
	return nil
}

// Remove deletes the item. Returns false when it was not indexed.
func (q *Quadtree) Remove(it Item) bool {
	box, ok := q.boxes[it.ID()]
	if !ok {
		return false
	}
	if !removeFrom(q.root, box, it.ID()) {
		delete(q.boxes, it.ID())
		return false
	}
	delete(q.boxes, it.ID())
	return true
}

func removeFrom(n *qnode, box geo.BBox, id int32) bool {
	if n.children != nil {
		if ch := childContaining(n, box); ch != nil {
			if removeFrom(ch, box, id) {
				return true
			}
		}
	}
	for i := range n.items {
		if n.items[i].item.ID() == id {
			n.items = append(n.items[:i], n.items[i+1:]...)
			return true
		}
	}
	return false
}

// Update re-indexes the item after its bounding box changed.
func (q *Quadtree) Update(it Item) {
	q.Remove(it)
	q.Insert(it)
}

// Search returns all items whose indexed box intersects the query box.
func (q *Quadtree) Search(box geo.BBox) []Item {
	var out []Item
	searchNode(q.root, box, &out)
	return out
}

func searchNode(n *qnode, box geo.BBox, out *[]Item) {
	if !n.bounds.Intersects(box) && n.depth > 0 {
		return
	}
	for i := range n.items {
		if n.items[i].box.Intersects(box) {
			*out = append(*out, n.items[i].item)
		}
	}
	if n.children != nil {
		for _, ch := range n.children {
			searchNode(ch, box, out)
		}
	}
}
