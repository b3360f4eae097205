package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDist(t *testing.T) {
	if got := Dist(0, 0, 3, 4); got != 5 {
		t.Errorf("Dist(0,0,3,4) = %v, want 5", got)
	}
	if got := DistSq(0, 0, 3, 4); got != 25 {
		t.Errorf("DistSq(0,0,3,4) = %v, want 25", got)
	}
}

func TestDist3D(t *testing.T) {
	a := Point{X: 1, Y: 2, Z: 3}
	b := Point{X: 1, Y: 2, Z: 3}
	if got := Dist3D(a, b); got != 0 {
		t.Errorf("Dist3D(a,a) = %v, want 0", got)
	}

	c := Point{X: 2, Y: 4, Z: 5}
	want := 3.0 // 1² + 2² + 2² = 9
	if got := Dist3D(a, c); math.Abs(got-want) > 1e-12 {
		t.Errorf("Dist3D = %v, want %v", got, want)
	}
}

func TestPointInCircle(t *testing.T) {
	tests := []struct {
		name   string
		px, py float64
		want   bool
	}{
		{"center", 100, 100, true},
		{"inside", 105, 103, true},
		{"on boundary", 110, 100, true},
		{"just outside", 110.001, 100, false},
		{"far away", 200, 200, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PointInCircle(tt.px, tt.py, 100, 100, 10)
			assert.Equal(t, tt.want, got, "PointInCircle(%v, %v)", tt.px, tt.py)
		})
	}
}

func TestPointInCircle_NonPositiveRadius(t *testing.T) {
	if PointInCircle(0, 0, 0, 0, 0) {
		t.Error("zero radius circle must contain nothing")
	}
	if PointInCircle(0, 0, 0, 0, -5) {
		t.Error("negative radius circle must contain nothing")
	}
}

func TestPointInSphere(t *testing.T) {
	c := Point{X: 0, Y: 0, Z: 0}

	if !PointInSphere(Point{X: 0, Y: 0, Z: 9}, c, 10) {
		t.Error("point inside sphere reported outside")
	}
	if PointInSphere(Point{X: 0, Y: 0, Z: 11}, c, 10) {
		t.Error("point above sphere reported inside")
	}
	// В 2D-проекции точка была бы внутри, Z выталкивает её наружу.
	if PointInSphere(Point{X: 7, Y: 7, Z: 7}, c, 10) {
		t.Error("sqrt(147) > 10, point must be outside")
	}
}

func TestPointInPolygon(t *testing.T) {
	// Квадрат 0..100.
	xs := []float64{0, 100, 100, 0}
	ys := []float64{0, 0, 100, 100}

	tests := []struct {
		name   string
		px, py float64
		want   bool
	}{
		{"center", 50, 50, true},
		{"near edge inside", 99, 50, true},
		{"outside right", 101, 50, false},
		{"outside above", 50, 101, false},
		{"on left edge", 0, 50, true},
		{"far outside", -50, -50, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PointInPolygon(tt.px, tt.py, xs, ys)
			assert.Equal(t, tt.want, got, "PointInPolygon(%v, %v)", tt.px, tt.py)
		})
	}
}

func TestPointInPolygon_Concave(t *testing.T) {
	// U-образный полигон с выемкой сверху.
	xs := []float64{0, 100, 100, 60, 60, 40, 40, 0}
	ys := []float64{0, 0, 100, 100, 40, 40, 100, 100}

	if !PointInPolygon(20, 80, xs, ys) {
		t.Error("left arm of the U must be inside")
	}
	if !PointInPolygon(80, 80, xs, ys) {
		t.Error("right arm of the U must be inside")
	}
	if PointInPolygon(50, 80, xs, ys) {
		t.Error("notch of the U must be outside")
	}
	if !PointInPolygon(50, 20, xs, ys) {
		t.Error("base of the U must be inside")
	}
}

func TestPointInPolygon_Degenerate(t *testing.T) {
	if PointInPolygon(0, 0, []float64{0, 1}, []float64{0, 1}) {
		t.Error("two-vertex polygon must contain nothing")
	}
	if PointInPolygon(0, 0, []float64{0, 1, 2}, []float64{0, 1}) {
		t.Error("mismatched vertex slices must contain nothing")
	}
}

func TestPointInRotatedRect(t *testing.T) {
	// Прямоугольник 20x10 вокруг (0,0), повёрнутый на 45°.
	sin, cos := math.Sincos(math.Pi / 4)

	tests := []struct {
		name   string
		px, py float64
		want   bool
	}{
		{"center", 0, 0, true},
		// Дальний угол по локальной X-оси уехал в (7.07, 7.07).
		{"along rotated long axis", 7, 7, true},
		{"beyond rotated long axis", 7.5, 7.5, false},
		// Вдоль мировой X-оси полуширина сжалась: локально (7.07, -7.07),
		// что выходит за полувысоту 5.
		{"world x axis outside", 10, 0, false},
		{"world x axis inside", 5, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PointInRotatedRect(tt.px, tt.py, 0, 0, 10, 5, sin, cos)
			assert.Equal(t, tt.want, got, "PointInRotatedRect(%v, %v)", tt.px, tt.py)
		})
	}
}

func TestPointInRotatedRect_NoRotation(t *testing.T) {
	// sin=0, cos=1: обычный AABB-тест.
	if !PointInRotatedRect(9, 4, 0, 0, 10, 5, 0, 1) {
		t.Error("point inside unrotated rect reported outside")
	}
	if PointInRotatedRect(11, 0, 0, 0, 10, 5, 0, 1) {
		t.Error("point beyond half width reported inside")
	}
}

func TestPolygonBBox(t *testing.T) {
	xs := []float64{10, -5, 3}
	ys := []float64{0, 7, -2}
	box := PolygonBBox(xs, ys)

	want := BBox{MinX: -5, MinY: -2, MaxX: 10, MaxY: 7}
	if box != want {
		t.Errorf("PolygonBBox = %+v, want %+v", box, want)
	}

	if got := PolygonBBox(nil, nil); got != (BBox{}) {
		t.Errorf("empty polygon bbox = %+v, want zero box", got)
	}
}

func TestPolygonArea(t *testing.T) {
	// Квадрат 10x10.
	xs := []float64{0, 10, 10, 0}
	ys := []float64{0, 0, 10, 10}
	if got := PolygonArea(xs, ys); got != 100 {
		t.Errorf("square area = %v, want 100", got)
	}

	// Треугольник с основанием 10 и высотой 10.
	txs := []float64{0, 10, 0}
	tys := []float64{0, 0, 10}
	if got := PolygonArea(txs, tys); got != 50 {
		t.Errorf("triangle area = %v, want 50", got)
	}

	if got := PolygonArea([]float64{0, 1}, []float64{0, 1}); got != 0 {
		t.Errorf("degenerate polygon area = %v, want 0", got)
	}
}

func TestPolygonCentroid(t *testing.T) {
	xs := []float64{0, 10, 10, 0}
	ys := []float64{0, 0, 10, 10}
	cx, cy := PolygonCentroid(xs, ys)
	assert.InDelta(t, 5, cx, 1e-12)
	assert.InDelta(t, 5, cy, 1e-12)

	// Вырожденный полигон (нулевая площадь) — среднее вершин.
	dx, dy := PolygonCentroid([]float64{0, 10, 20}, []float64{0, 0, 0})
	assert.InDelta(t, 10, dx, 1e-12)
	assert.InDelta(t, 0, dy, 1e-12)
}
