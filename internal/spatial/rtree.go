package spatial

import (
	"sort"

	"github.com/udisondev/zonekit/internal/geo"
)

// RTree is the primary index implementation: a balanced tree of
// bounding boxes. Insertion descends by least enlargement; overflowing
// nodes split along the axis with the smallest total margin over all
// valid distributions, picking the split with minimal overlap between
// the two groups.
type RTree struct {
	root       *rnode
	height     int
	size       int
	minEntries int
	maxEntries int

	// boxes remembers the box each item was indexed under, so removal
	// still finds the owning leaf after the item's live box mutated.
	boxes map[int32]geo.BBox
}

type rnode struct {
	leaf    bool
	entries []rentry
}

// rentry leads either to an item (leaf node) or a child node.
type rentry struct {
	box   geo.BBox
	item  Item
	child *rnode
}

// NewRTree creates an R-tree with the given node capacity.
// minEntries is set to 40% of maxEntries. maxEntries below 4 is
// raised to 4.
func NewRTree(maxEntries int) *RTree {
	if maxEntries < 4 {
		maxEntries = 4
	}
	minEntries := maxEntries * 2 / 5
	if minEntries < 2 {
		minEntries = 2
	}
	return &RTree{
		root:       &rnode{leaf: true},
		height:     1,
		minEntries: minEntries,
		maxEntries: maxEntries,
		boxes:      make(map[int32]geo.BBox),
	}
}

// Size returns the number of indexed items.
func (t *RTree) Size() int { return t.size }

// Height returns the tree height (1 for a single leaf root).
func (t *RTree) Height() int { return t.height }

// Clear drops all entries.
func (t *RTree) Clear() {
	t.root = &rnode{leaf: true}
	t.height = 1
	t.size = 0
	t.boxes = make(map[int32]geo.BBox)
}

// Insert adds the item under its current bounding box.
func (t *RTree) Insert(it Item) {
	box := it.BBox()
	t.boxes[it.ID()] = box
	t.insert(box, it)
	t.size++
}

// Update re-indexes the item after its bounding box changed.
func (t *RTree) Update(it Item) {
	t.Remove(it)
	t.Insert(it)
}

// Search returns all items whose indexed box intersects the query box.
// The result is a conservative superset: callers filter with an exact
// containment test.
func (t *RTree) Search(box geo.BBox) []Item {
	var out []Item
	t.search(t.root, box, &out)
	return out
}

func (t *RTree) search(n *rnode, box geo.BBox, out *[]Item) {
	for i := range n.entries {
		e := &n.entries[i]
		if !e.box.Intersects(box) {
			continue
		}
		if n.leaf {
			*out = append(*out, e.item)
		} else {
			t.search(e.child, box, out)
		}
	}
}

func (t *RTree) insert(box geo.BBox, it Item) {
	// Спуск к листу с минимальным расширением, запоминая путь.
	path := make([]*rnode, 1, t.height)
	path[0] = t.root
	cur := t.root
	for !cur.leaf {
		i := chooseSubtree(cur, box)
		cur.entries[i].box = cur.entries[i].box.Union(box)
		cur = cur.entries[i].child
		path = append(path, cur)
	}

	cur.entries = append(cur.entries, rentry{box: box, item: it})

	// Раскалываем переполненные узлы снизу вверх.
	for i := len(path) - 1; i >= 0; i-- {
		n := path[i]
		if len(n.entries) <= t.maxEntries {
			break
		}
		sibling := t.splitNode(n)
		if i == 0 {
			// Раскол корня поднимает дерево на один уровень.
			t.root = &rnode{entries: []rentry{
				{box: nodeBBox(n), child: n},
				{box: nodeBBox(sibling), child: sibling},
			}}
			t.height++
		} else {
			parent := path[i-1]
			for j := range parent.entries {
				if parent.entries[j].child == n {
					parent.entries[j].box = nodeBBox(n)
					break
				}
			}
			parent.entries = append(parent.entries, rentry{box: nodeBBox(sibling), child: sibling})
		}
	}
}

// chooseSubtree returns the entry index whose box needs the least
// enlargement to include box, tie-broken by smaller resulting area.
func chooseSubtree(n *rnode, box geo.BBox) int {
	best := 0
	bestEnlarge := n.entries[0].box.Enlargement(box)
	bestArea := n.entries[0].box.Area()
	for i := 1; i < len(n.entries); i++ {
		enlarge := n.entries[i].box.Enlargement(box)
		area := n.entries[i].box.Area()
		if enlarge < bestEnlarge || (enlarge == bestEnlarge && area < bestArea) {
			best, bestEnlarge, bestArea = i, enlarge, area
		}
	}
	return best
}

// splitNode splits an overflowing node in place and returns the new
// sibling. Axis choice: smaller total margin across all valid
// distributions; split index: minimal overlap area between the two
// groups, tie-broken by smaller total area.
func (t *RTree) splitNode(n *rnode) *rnode {
	entries := n.entries

	sortX := make([]rentry, len(entries))
	copy(sortX, entries)
	sort.Slice(sortX, func(i, j int) bool {
		if sortX[i].box.MinX != sortX[j].box.MinX {
			return sortX[i].box.MinX < sortX[j].box.MinX
		}
		return sortX[i].box.MaxX < sortX[j].box.MaxX
	})

	sortY := make([]rentry, len(entries))
	copy(sortY, entries)
	sort.Slice(sortY, func(i, j int) bool {
		if sortY[i].box.MinY != sortY[j].box.MinY {
			return sortY[i].box.MinY < sortY[j].box.MinY
		}
		return sortY[i].box.MaxY < sortY[j].box.MaxY
	})

	chosen := sortX
	if t.marginSum(sortY) < t.marginSum(sortX) {
		chosen = sortY
	}

	k := t.chooseSplitIndex(chosen)

	left := make([]rentry, k)
	copy(left, chosen[:k])
	right := make([]rentry, len(chosen)-k)
	copy(right, chosen[k:])

	n.entries = left
	return &rnode{leaf: n.leaf, entries: right}
}

// marginSum computes the total margin (perimeter sum) of both groups
// over every valid distribution of the sorted entries.
func (t *RTree) marginSum(sorted []rentry) float64 {
	total := 0.0
	for k := t.minEntries; k <= len(sorted)-t.minEntries; k++ {
		total += groupBBox(sorted[:k]).Margin() + groupBBox(sorted[k:]).Margin()
	}
	return total
}

// chooseSplitIndex picks the distribution with minimal overlap area
// between the groups, tie-broken by smaller total area.
func (t *RTree) chooseSplitIndex(sorted []rentry) int {
	bestK := t.minEntries
	bestOverlap := -1.0
	bestArea := -1.0
	for k := t.minEntries; k <= len(sorted)-t.minEntries; k++ {
		b1 := groupBBox(sorted[:k])
		b2 := groupBBox(sorted[k:])
		overlap := b1.OverlapArea(b2)
		area := b1.Area() + b2.Area()
		if bestOverlap < 0 || overlap < bestOverlap ||
			(overlap == bestOverlap && area < bestArea) {
			bestK, bestOverlap, bestArea = k, overlap, area
		}
	}
	return bestK
}

func groupBBox(entries []rentry) geo.BBox {
	box := entries[0].box
	for i := 1; i < len(entries); i++ {
		box = box.Union(entries[i].box)
	}
	return box
}

func nodeBBox(n *rnode) geo.BBox {
	return groupBBox(n.entries)
}

// Remove deletes the item from the tree, condensing underfull nodes
// bottom-up and reinserting their surviving items. Returns false when
// the item was not indexed.
func (t *RTree) Remove(it Item) bool {
	box, ok := t.boxes[it.ID()]
	if !ok {
		return false
	}

	var orphans []rentry
	if !t.remove(t.root, box, it.ID(), &orphans) {
		// Бокс числится в индексе, но лист не найден — нарушение
		// инварианта дерева; считаем элемент отсутствующим.
		delete(t.boxes, it.ID())
		return false
	}

	delete(t.boxes, it.ID())
	t.size--

	// Сжимаем корень: единственный ребёнок становится новым корнем.
	for !t.root.leaf && len(t.root.entries) == 1 {
		t.root = t.root.entries[0].child
		t.height--
	}
	if !t.root.leaf && len(t.root.entries) == 0 {
		t.root = &rnode{leaf: true}
		t.height = 1
	}

	for _, e := range orphans {
		t.insert(e.box, e.item)
	}
	return true
}

// remove descends only into nodes intersecting the target box,
// deletes the leaf entry and condenses ancestors on the way back up.
func (t *RTree) remove(n *rnode, box geo.BBox, id int32, orphans *[]rentry) bool {
	if n.leaf {
		for i := range n.entries {
			if n.entries[i].item.ID() == id {
				n.entries = append(n.entries[:i], n.entries[i+1:]...)
				return true
			}
		}
		return false
	}

	for i := range n.entries {
		e := &n.entries[i]
		if !e.box.Intersects(box) {
			continue
		}
		if !t.remove(e.child, box, id, orphans) {
			continue
		}
		if len(e.child.entries) < t.minEntries {
			// Узел опустел ниже минимума: изымаем его целиком,
			// живые элементы переедут обратно через reinsert.
			collectLeafEntries(e.child, orphans)
			n.entries = append(n.entries[:i], n.entries[i+1:]...)
		} else {
			e.box = nodeBBox(e.child)
		}
		return true
	}
	return false
}

// collectLeafEntries gathers every leaf-level entry of the subtree.
func collectLeafEntries(n *rnode, out *[]rentry) {
	if n.leaf {
		*out = append(*out, n.entries...)
		return
	}
	for i := range n.entries {
		collectLeafEntries(n.entries[i].child, out)
	}
}
