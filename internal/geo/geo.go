// Package geo provides the pure geometry kernel: distances, point
// containment tests and bounding-box math used by zones and the
// spatial indices. All functions are deterministic and side-effect
// free.
package geo

import "math"

// Point представляет позицию в мировых координатах.
// Value type, передаётся по значению (immutable).
type Point struct {
	X, Y, Z float64
}

// DistSq returns the squared 2D distance between (x1,y1) and (x2,y2).
// Squared form avoids the sqrt on hot paths.
func DistSq(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return dx*dx + dy*dy
}

// Dist returns the 2D euclidean distance between (x1,y1) and (x2,y2).
func Dist(x1, y1, x2, y2 float64) float64 {
	return math.Sqrt(DistSq(x1, y1, x2, y2))
}

// DistSq3D returns the squared 3D distance between two points.
func DistSq3D(a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	dz := b.Z - a.Z
	return dx*dx + dy*dy + dz*dz
}

// Dist3D returns the 3D euclidean distance between two points.
func Dist3D(a, b Point) float64 {
	return math.Sqrt(DistSq3D(a, b))
}

// PointInCircle reports whether (px,py) lies inside or on the circle
// centered at (cx,cy) with radius r. Compares squared distances.
func PointInCircle(px, py, cx, cy, r float64) bool {
	if r <= 0 {
		return false
	}
	return DistSq(px, py, cx, cy) <= r*r
}

// PointInSphere reports whether p lies inside or on the sphere
// centered at c with radius r.
func PointInSphere(p, c Point, r float64) bool {
	if r <= 0 {
		return false
	}
	return DistSq3D(p, c) <= r*r
}

// PointInPolygon reports whether (px,py) lies inside the polygon given
// by parallel vertex slices xs, ys using the ray casting algorithm.
// Points exactly on an edge are treated as inside.
func PointInPolygon(px, py float64, xs, ys []float64) bool {
	n := len(xs)
	if n < 3 || len(ys) != n {
		return false
	}

	inside := false
	j := n - 1
	for i := range n {
		// Ребро (j,i) пересекает горизонтальный луч из точки?
		if (ys[i] > py) != (ys[j] > py) {
			cross := (xs[j]-xs[i])*(py-ys[i])/(ys[j]-ys[i]) + xs[i]
			if px == cross {
				// Точка лежит на границе полигона.
				return true
			}
			if px < cross {
				inside = !inside
			}
		}
		j = i
	}

	return inside
}

// PointInRotatedRect reports whether (px,py) lies inside a rectangle
// centered at (cx,cy) with half extents halfW/halfH, rotated by the
// angle whose sine/cosine are given. sin/cos are expected to be cached
// by the caller when the rotation is set, not recomputed per query.
func PointInRotatedRect(px, py, cx, cy, halfW, halfH, sin, cos float64) bool {
	if halfW <= 0 || halfH <= 0 {
		return false
	}
	// Переводим точку в локальную систему координат прямоугольника.
	dx := px - cx
	dy := py - cy
	lx := dx*cos + dy*sin
	ly := -dx*sin + dy*cos
	return lx >= -halfW && lx <= halfW && ly >= -halfH && ly <= halfH
}

// PolygonBBox returns the axis-aligned bounding box of the polygon.
// Returns the zero box for fewer than one vertex.
func PolygonBBox(xs, ys []float64) BBox {
	if len(xs) == 0 {
		return BBox{}
	}
	box := BBox{MinX: xs[0], MinY: ys[0], MaxX: xs[0], MaxY: ys[0]}
	for i := 1; i < len(xs); i++ {
		box.MinX = math.Min(box.MinX, xs[i])
		box.MaxX = math.Max(box.MaxX, xs[i])
		box.MinY = math.Min(box.MinY, ys[i])
		box.MaxY = math.Max(box.MaxY, ys[i])
	}
	return box
}

// PolygonArea returns the absolute area of the polygon (shoelace formula).
func PolygonArea(xs, ys []float64) float64 {
	n := len(xs)
	if n < 3 {
		return 0
	}
	sum := 0.0
	j := n - 1
	for i := range n {
		sum += (xs[j] + xs[i]) * (ys[j] - ys[i])
		j = i
	}
	return math.Abs(sum) / 2
}

// PolygonCentroid returns the centroid of the polygon. Degenerate
// polygons (zero area) fall back to the vertex average.
func PolygonCentroid(xs, ys []float64) (cx, cy float64) {
	n := len(xs)
	if n == 0 {
		return 0, 0
	}

	var area, sx, sy float64
	j := n - 1
	for i := range n {
		cross := xs[j]*ys[i] - xs[i]*ys[j]
		area += cross
		sx += (xs[j] + xs[i]) * cross
		sy += (ys[j] + ys[i]) * cross
		j = i
	}
	area /= 2

	if area == 0 {
		for i := range n {
			sx += xs[i]
			sy += ys[i]
		}
		return sx / float64(n), sy / float64(n)
	}

	return sx / (6 * area), sy / (6 * area)
}
