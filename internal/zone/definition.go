package zone

import (
	"fmt"
	"math"
	"time"
)

// Height clamp values meaning "unbounded".
const (
	DefaultMinZ = -math.MaxFloat64
	DefaultMaxZ = math.MaxFloat64
)

// Definition is the declarative, JSON-compatible description of a
// zone used by export/import, the Postgres store and snapshot files.
// Geometry fields are populated depending on Type.
type Definition struct {
	ID      int32  `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Dynamic bool   `json:"dynamic,omitempty" yaml:"dynamic,omitempty"`

	// Circle.
	X      float64 `json:"x,omitempty" yaml:"x,omitempty"`
	Y      float64 `json:"y,omitempty" yaml:"y,omitempty"`
	Z      float64 `json:"z,omitempty" yaml:"z,omitempty"`
	Radius float64 `json:"radius,omitempty" yaml:"radius,omitempty"`
	Is3D   bool    `json:"is3d,omitempty" yaml:"is3d,omitempty"`

	// Rectangle.
	Width    float64 `json:"width,omitempty" yaml:"width,omitempty"`
	Height   float64 `json:"height,omitempty" yaml:"height,omitempty"`
	Rotation float64 `json:"rotation,omitempty" yaml:"rotation,omitempty"`

	// Polygon.
	Points [][2]float64 `json:"points,omitempty" yaml:"points,omitempty"`

	// Composite.
	Op       string       `json:"op,omitempty" yaml:"op,omitempty"`
	Children []Definition `json:"children,omitempty" yaml:"children,omitempty"`

	MinZ *float64 `json:"min_z,omitempty" yaml:"min_z,omitempty"`
	MaxZ *float64 `json:"max_z,omitempty" yaml:"max_z,omitempty"`

	Priority        int      `json:"priority,omitempty" yaml:"priority,omitempty"`
	Tags            []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Excludes        []int32  `json:"excludes,omitempty" yaml:"excludes,omitempty"`
	CheckIntervalMs int64    `json:"check_interval_ms,omitempty" yaml:"check_interval_ms,omitempty"`
}

// BuildShape constructs the shape described by the definition.
// Fails with a configuration error for unknown types or structurally
// invalid geometry; no partial shape is ever returned.
func BuildShape(def Definition) (Shape, error) {
	switch def.Type {
	case KindCircle:
		return NewCircle(def.X, def.Y, def.Z, def.Radius, def.Is3D)
	case KindRectangle:
		return NewRectangle(def.X, def.Y, def.Width, def.Height, def.Rotation)
	case KindPolygon:
		return NewPolygon(def.Points)
	case KindComposite:
		children := make([]Shape, 0, len(def.Children))
		for i, cd := range def.Children {
			ch, err := BuildShape(cd)
			if err != nil {
				return nil, fmt.Errorf("composite child %d: %w", i, err)
			}
			children = append(children, ch)
		}
		return NewComposite(def.Op, children)
	default:
		return nil, fmt.Errorf("shape type %q: %w", def.Type, ErrUnknownShape)
	}
}

// FromDefinition builds a full zone from its declarative definition.
func FromDefinition(def Definition) (*Zone, error) {
	shape, err := BuildShape(def)
	if err != nil {
		return nil, fmt.Errorf("zone %d (%s): %w", def.ID, def.Name, err)
	}

	minZ, maxZ := DefaultMinZ, DefaultMaxZ
	if def.MinZ != nil {
		minZ = *def.MinZ
	}
	if def.MaxZ != nil {
		maxZ = *def.MaxZ
	}

	z := New(def.ID, def.Name, shape, minZ, maxZ)
	z.SetEnabled(def.Enabled)
	z.SetDynamic(def.Dynamic)
	z.SetPriority(def.Priority)
	z.SetCheckInterval(time.Duration(def.CheckIntervalMs) * time.Millisecond)
	for _, t := range def.Tags {
		z.AddTag(t)
	}
	for _, id := range def.Excludes {
		z.AddExclusion(id)
	}
	return z, nil
}

// Definition returns the declarative description of the zone,
// suitable for export, storage and re-import.
func (z *Zone) Definition() Definition {
	def := Definition{
		ID:              z.id,
		Name:            z.name,
		Enabled:         z.enabled,
		Dynamic:         z.dynamic,
		Priority:        z.priority,
		Tags:            z.Tags(),
		Excludes:        z.Excludes(),
		CheckIntervalMs: z.checkInterval.Milliseconds(),
	}
	if z.minZ != DefaultMinZ {
		minZ := z.minZ
		def.MinZ = &minZ
	}
	if z.maxZ != DefaultMaxZ {
		maxZ := z.maxZ
		def.MaxZ = &maxZ
	}
	fillGeometry(&def, z.shape)
	return def
}

// fillGeometry копирует поля геометрии конкретной фигуры в definition.
func fillGeometry(def *Definition, s Shape) {
	def.Type = s.Kind()
	switch v := s.(type) {
	case *Circle:
		def.X, def.Y, def.Z = v.CenterX, v.CenterY, v.CenterZ
		def.Radius = v.Radius
		def.Is3D = v.Is3D
	case *Rectangle:
		def.X, def.Y = v.CenterX, v.CenterY
		def.Width, def.Height = v.Width, v.Height
		def.Rotation = v.Rotation()
	case *Polygon:
		def.Points = v.Points()
	case *Composite:
		def.Op = v.Op
		def.Children = make([]Definition, len(v.Children))
		for i, ch := range v.Children {
			fillGeometry(&def.Children[i], ch)
		}
	}
}
