package spatial

import "iron-and-ash/sim/internal/fixed"

// ShapeKind selects the narrow-phase test for a shape.
type ShapeKind uint8

const (
	// ShapeCircle is a circle on the ground plane.
	ShapeCircle ShapeKind = iota
	// ShapeBox is an axis-aligned box on the ground plane.
	ShapeBox
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeCircle:
		return "circle"
	case ShapeBox:
		return "box"
	default:
		return "unknown"
	}
}

// Shape is one collidable footprint on the X/Z ground plane, owned by an
// entity id. Circles use Radius; boxes use HalfWidth/HalfDepth. Layer is a
// caller-defined bitmask matched against query masks. A disabled shape
// stays indexed but never appears in query or pair results.
type Shape struct {
	EntityID  int64
	Kind      ShapeKind
	Center    fixed.Vec2
	Radius    fixed.Scalar
	HalfWidth fixed.Scalar
	HalfDepth fixed.Scalar
	Layer     uint32
	Enabled   bool
}

// NewCircle builds an enabled circle shape.
func NewCircle(entityID int64, center fixed.Vec2, radius fixed.Scalar) Shape {
	return Shape{EntityID: entityID, Kind: ShapeCircle, Center: center, Radius: radius.Abs(), Layer: 1, Enabled: true}
}

// NewBox builds an enabled axis-aligned box shape from half extents.
func NewBox(entityID int64, center fixed.Vec2, halfWidth, halfDepth fixed.Scalar) Shape {
	return Shape{EntityID: entityID, Kind: ShapeBox, Center: center, HalfWidth: halfWidth.Abs(), HalfDepth: halfDepth.Abs(), Layer: 1, Enabled: true}
}

// WithLayer returns the shape assigned to a collision layer bitmask.
func (s Shape) WithLayer(layer uint32) Shape {
	s.Layer = layer
	return s
}

// WithEnabled returns the shape with collision participation toggled.
func (s Shape) WithEnabled(enabled bool) Shape {
	s.Enabled = enabled
	return s
}

// Bounds is the axis-aligned bounding rectangle of the shape.
func (s Shape) Bounds() Rect {
	switch s.Kind {
	case ShapeCircle:
		return Rect{
			MinX: s.Center.X.Sub(s.Radius),
			MinZ: s.Center.Z.Sub(s.Radius),
			MaxX: s.Center.X.Add(s.Radius),
			MaxZ: s.Center.Z.Add(s.Radius),
		}
	default:
		return Rect{
			MinX: s.Center.X.Sub(s.HalfWidth),
			MinZ: s.Center.Z.Sub(s.HalfDepth),
			MaxX: s.Center.X.Add(s.HalfWidth),
			MaxZ: s.Center.Z.Add(s.HalfDepth),
		}
	}
}

// Rect is an axis-aligned region on the ground plane. Min and Max are
// inclusive; a rect with Min == Max is a point.
type Rect struct {
	MinX fixed.Scalar
	MinZ fixed.Scalar
	MaxX fixed.Scalar
	MaxZ fixed.Scalar
}

// NewRect normalizes two corner points into a rect.
func NewRect(x1, z1, x2, z2 fixed.Scalar) Rect {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if z2 < z1 {
		z1, z2 = z2, z1
	}
	return Rect{MinX: x1, MinZ: z1, MaxX: x2, MaxZ: z2}
}

// Contains reports whether the point lies inside the rect, borders
// included.
func (r Rect) Contains(p fixed.Vec2) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Z >= r.MinZ && p.Z <= r.MaxZ
}

// Overlaps reports whether two rects share any area, touching edges
// included.
func (r Rect) Overlaps(o Rect) bool {
	return r.MinX <= o.MaxX && r.MaxX >= o.MinX && r.MinZ <= o.MaxZ && r.MaxZ >= o.MinZ
}

// Width is the rect's extent along X.
func (r Rect) Width() fixed.Scalar {
	return r.MaxX.Sub(r.MinX)
}

// Depth is the rect's extent along Z.
func (r Rect) Depth() fixed.Scalar {
	return r.MaxZ.Sub(r.MinZ)
}
