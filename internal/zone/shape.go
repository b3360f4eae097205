// Package zone implements spatial zones with shape geometry, cached
// bounding boxes, per-zone occupancy tracking and enter/inside/exit
// callbacks.
package zone

import (
	"errors"
	"fmt"
	"math"

	"github.com/udisondev/zonekit/internal/geo"
)

// Shape kind string constants matching Definition.Type values.
const (
	KindCircle    = "circle"
	KindRectangle = "rectangle"
	KindPolygon   = "polygon"
	KindComposite = "composite"
)

// Composite operations.
const (
	OpUnion        = "union"
	OpIntersection = "intersection"
)

// Configuration errors returned by shape constructors.
var (
	ErrUnknownShape    = errors.New("unknown shape type")
	ErrInvalidGeometry = errors.New("invalid geometry")
)

// Shape is the closed set of zone geometries. Concrete types are
// Circle, Rectangle, Polygon and Composite; the unexported method
// keeps the set sealed so the manager can group containment checks
// by concrete type.
type Shape interface {
	// Contains reports whether the point lies inside the shape.
	// Z is only consulted by 3D circles (spheres).
	Contains(x, y, z float64) bool
	// BBox returns the minimal axis-aligned box enclosing the shape.
	BBox() geo.BBox
	// Kind returns the shape kind string (KindCircle etc.).
	Kind() string

	sealedShape()
}

// Circle is a circle (or sphere when Is3D) around a center point.
type Circle struct {
	CenterX, CenterY, CenterZ float64
	Radius                    float64
	Is3D                      bool
}

// NewCircle validates and builds a circle shape.
func NewCircle(cx, cy, cz, radius float64, is3D bool) (*Circle, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("circle radius %v: %w", radius, ErrInvalidGeometry)
	}
	return &Circle{CenterX: cx, CenterY: cy, CenterZ: cz, Radius: radius, Is3D: is3D}, nil
}

func (c *Circle) Contains(x, y, z float64) bool {
	if c.Is3D {
		return geo.PointInSphere(
			geo.Point{X: x, Y: y, Z: z},
			geo.Point{X: c.CenterX, Y: c.CenterY, Z: c.CenterZ},
			c.Radius,
		)
	}
	return geo.PointInCircle(x, y, c.CenterX, c.CenterY, c.Radius)
}

func (c *Circle) BBox() geo.BBox {
	return geo.CircleBBox(c.CenterX, c.CenterY, c.Radius)
}

func (c *Circle) Kind() string { return KindCircle }

func (c *Circle) sealedShape() {}

// Rectangle is a width×height rectangle around a center point,
// rotated by Rotation radians. Sine and cosine are cached when the
// rotation is set so containment never calls math.Sincos per query.
type Rectangle struct {
	CenterX, CenterY float64
	Width, Height    float64

	rotation float64
	sin, cos float64
}

// NewRectangle validates and builds a rectangle shape.
func NewRectangle(cx, cy, width, height, rotation float64) (*Rectangle, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("rectangle %vx%v: %w", width, height, ErrInvalidGeometry)
	}
	r := &Rectangle{CenterX: cx, CenterY: cy, Width: width, Height: height}
	r.SetRotation(rotation)
	return r, nil
}

// SetRotation sets the rotation angle (radians) and caches its sin/cos.
func (r *Rectangle) SetRotation(rad float64) {
	r.rotation = rad
	r.sin, r.cos = math.Sincos(rad)
}

// Rotation returns the rotation angle in radians.
func (r *Rectangle) Rotation() float64 { return r.rotation }

func (r *Rectangle) Contains(x, y, _ float64) bool {
	return geo.PointInRotatedRect(x, y, r.CenterX, r.CenterY, r.Width/2, r.Height/2, r.sin, r.cos)
}

func (r *Rectangle) BBox() geo.BBox {
	// Проекция повёрнутых полуосей на мировые оси.
	hw := r.Width / 2
	hh := r.Height / 2
	ex := math.Abs(r.cos)*hw + math.Abs(r.sin)*hh
	ey := math.Abs(r.sin)*hw + math.Abs(r.cos)*hh
	return geo.BBox{
		MinX: r.CenterX - ex, MinY: r.CenterY - ey,
		MaxX: r.CenterX + ex, MaxY: r.CenterY + ey,
	}
}

func (r *Rectangle) Kind() string { return KindRectangle }

func (r *Rectangle) sealedShape() {}

// Polygon is a simple polygon given by at least three vertices.
type Polygon struct {
	xs, ys []float64
	bbox   geo.BBox
}

// NewPolygon validates and builds a polygon shape from vertex pairs.
func NewPolygon(points [][2]float64) (*Polygon, error) {
	if len(points) < 3 {
		return nil, fmt.Errorf("polygon with %d points: %w", len(points), ErrInvalidGeometry)
	}
	p := &Polygon{
		xs: make([]float64, len(points)),
		ys: make([]float64, len(points)),
	}
	for i, pt := range points {
		p.xs[i] = pt[0]
		p.ys[i] = pt[1]
	}
	p.bbox = geo.PolygonBBox(p.xs, p.ys)
	return p, nil
}

func (p *Polygon) Contains(x, y, _ float64) bool {
	// O(1) отсечение по AABB перед O(n) ray casting.
	if !p.bbox.ContainsPoint(x, y) {
		return false
	}
	return geo.PointInPolygon(x, y, p.xs, p.ys)
}

func (p *Polygon) BBox() geo.BBox { return p.bbox }

func (p *Polygon) Kind() string { return KindPolygon }

// Points returns the polygon vertices as pairs.
func (p *Polygon) Points() [][2]float64 {
	pts := make([][2]float64, len(p.xs))
	for i := range p.xs {
		pts[i] = [2]float64{p.xs[i], p.ys[i]}
	}
	return pts
}

// Area returns the polygon area.
func (p *Polygon) Area() float64 { return geo.PolygonArea(p.xs, p.ys) }

// Centroid returns the polygon centroid.
func (p *Polygon) Centroid() (float64, float64) { return geo.PolygonCentroid(p.xs, p.ys) }

func (p *Polygon) sealedShape() {}

// Composite combines child shapes with a union or intersection
// operation.
type Composite struct {
	Op       string
	Children []Shape
}

// NewComposite validates and builds a composite shape.
func NewComposite(op string, children []Shape) (*Composite, error) {
	if op != OpUnion && op != OpIntersection {
		return nil, fmt.Errorf("composite operation %q: %w", op, ErrInvalidGeometry)
	}
	if len(children) == 0 {
		return nil, fmt.Errorf("composite with no children: %w", ErrInvalidGeometry)
	}
	return &Composite{Op: op, Children: children}, nil
}

func (c *Composite) Contains(x, y, z float64) bool {
	if c.Op == OpIntersection {
		for _, ch := range c.Children {
			if !ch.Contains(x, y, z) {
				return false
			}
		}
		return true
	}
	for _, ch := range c.Children {
		if ch.Contains(x, y, z) {
			return true
		}
	}
	return false
}

func (c *Composite) BBox() geo.BBox {
	if c.Op == OpIntersection {
		// Бокс первого ребёнка — безопасный супермножественный охват пересечения.
		return c.Children[0].BBox()
	}
	box := c.Children[0].BBox()
	for _, ch := range c.Children[1:] {
		box = box.Union(ch.BBox())
	}
	return box
}

func (c *Composite) Kind() string { return KindComposite }

func (c *Composite) sealedShape() {}
