package geo

import "math"

// BBox is an axis-aligned bounding box on the XY plane.
// Value type, передаётся по значению (immutable).
type BBox struct {
	MinX, MinY, MaxX, MaxY float64
}

// NewBBox returns a normalized box with min/max ordered.
func NewBBox(x1, y1, x2, y2 float64) BBox {
	return BBox{
		MinX: math.Min(x1, x2),
		MinY: math.Min(y1, y2),
		MaxX: math.Max(x1, x2),
		MaxY: math.Max(y1, y2),
	}
}

// Intersects reports whether the two boxes overlap (touching counts).
func (b BBox) Intersects(o BBox) bool {
	return b.MinX <= o.MaxX && b.MaxX >= o.MinX &&
		b.MinY <= o.MaxY && b.MaxY >= o.MinY
}

// ContainsPoint reports whether (x,y) lies inside or on the box.
func (b BBox) ContainsPoint(x, y float64) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

// ContainsBox reports whether o lies fully inside b.
func (b BBox) ContainsBox(o BBox) bool {
	return o.MinX >= b.MinX && o.MaxX <= b.MaxX &&
		o.MinY >= b.MinY && o.MaxY <= b.MaxY
}

// Union returns the minimal box enclosing both boxes.
func (b BBox) Union(o BBox) BBox {
	return BBox{
		MinX: math.Min(b.MinX, o.MinX),
		MinY: math.Min(b.MinY, o.MinY),
		MaxX: math.Max(b.MaxX, o.MaxX),
		MaxY: math.Max(b.MaxY, o.MaxY),
	}
}

// Area returns the box area.
func (b BBox) Area() float64 {
	return (b.MaxX - b.MinX) * (b.MaxY - b.MinY)
}

// Margin returns half the box perimeter (width + height).
// Used by the R-tree split axis heuristic.
func (b BBox) Margin() float64 {
	return (b.MaxX - b.MinX) + (b.MaxY - b.MinY)
}

// Enlargement returns how much b's area would grow to also enclose o.
func (b BBox) Enlargement(o BBox) float64 {
	return b.Union(o).Area() - b.Area()
}

// OverlapArea returns the area of the intersection of the two boxes,
// zero when they do not overlap.
func (b BBox) OverlapArea(o BBox) float64 {
	w := math.Min(b.MaxX, o.MaxX) - math.Max(b.MinX, o.MinX)
	if w <= 0 {
		return 0
	}
	h := math.Min(b.MaxY, o.MaxY) - math.Max(b.MinY, o.MinY)
	if h <= 0 {
		return 0
	}
	return w * h
}

// CircleBBox returns the bounding box of a circle.
func CircleBBox(cx, cy, r float64) BBox {
	return BBox{MinX: cx - r, MinY: cy - r, MaxX: cx + r, MaxY: cy + r}
}

// PointRangeBBox returns the query box for a point lookup with range r.
func PointRangeBBox(x, y, r float64) BBox {
	return BBox{MinX: x - r, MinY: y - r, MaxX: x + r, MaxY: y + r}
}
