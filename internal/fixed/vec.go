package fixed

// Vec3 is a fixed-point 3-component vector. Ground-plane math in a top-down
// world lives on X and Z; Y is height.
type Vec3 struct {
	X Scalar `json:"x"`
	Y Scalar `json:"y"`
	Z Scalar `json:"z"`
}

// Vec2 is a fixed-point 2-component vector on the ground plane.
type Vec2 struct {
	X Scalar `json:"x"`
	Z Scalar `json:"z"`
}

// V3 builds a Vec3 from raw component values.
func V3(x, y, z Scalar) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// V2 builds a Vec2 from raw component values.
func V2(x, z Scalar) Vec2 {
	return Vec2{X: x, Z: z}
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Scale multiplies every component by s.
func (v Vec3) Scale(s Scalar) Vec3 {
	return Vec3{X: v.X.Mul(s), Y: v.Y.Mul(s), Z: v.Z.Mul(s)}
}

// Neg returns the component-wise negation.
func (v Vec3) Neg() Vec3 {
	return Vec3{X: -v.X, Y: -v.Y, Z: -v.Z}
}

// Dot returns the dot product.
func (v Vec3) Dot(o Vec3) Scalar {
	return v.X.Mul(o.X) + v.Y.Mul(o.Y) + v.Z.Mul(o.Z)
}

// Cross returns the cross product.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		X: v.Y.Mul(o.Z) - v.Z.Mul(o.Y),
		Y: v.Z.Mul(o.X) - v.X.Mul(o.Z),
		Z: v.X.Mul(o.Y) - v.Y.Mul(o.X),
	}
}

// LengthSq returns the squared length. It never goes negative, so Length
// never needs the error path Sqrt exposes.
func (v Vec3) LengthSq() Scalar {
	return v.Dot(v)
}

// Length returns the vector length.
func (v Vec3) Length() Scalar {
	return sqrtNonNegative(v.LengthSq())
}

// Normalized returns the unit vector in v's direction. The zero vector
// reports false, leaving the caller to decide what direction means.
func (v Vec3) Normalized() (Vec3, bool) {
	length := v.Length()
	if length == 0 {
		return Vec3{}, false
	}
	return Vec3{X: v.X.div(length), Y: v.Y.div(length), Z: v.Z.div(length)}, true
}

// IsZero reports whether every component is zero.
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// Ground projects onto the ground plane, dropping height.
func (v Vec3) Ground() Vec2 {
	return Vec2{X: v.X, Z: v.Z}
}

// DistSq2D returns the squared ground-plane distance to o, ignoring height.
func (v Vec3) DistSq2D(o Vec3) Scalar {
	dx := v.X - o.X
	dz := v.Z - o.Z
	return dx.Mul(dx) + dz.Mul(dz)
}

// Dist2D returns the ground-plane distance to o.
func (v Vec3) Dist2D(o Vec3) Scalar {
	return sqrtNonNegative(v.DistSq2D(o))
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Z: v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Z: v.Z - o.Z}
}

// Scale multiplies every component by s.
func (v Vec2) Scale(s Scalar) Vec2 {
	return Vec2{X: v.X.Mul(s), Z: v.Z.Mul(s)}
}

// Dot returns the dot product.
func (v Vec2) Dot(o Vec2) Scalar {
	return v.X.Mul(o.X) + v.Z.Mul(o.Z)
}

// LengthSq returns the squared length.
func (v Vec2) LengthSq() Scalar {
	return v.Dot(v)
}

// Length returns the vector length.
func (v Vec2) Length() Scalar {
	return sqrtNonNegative(v.LengthSq())
}

// Normalized returns the unit vector in v's direction. The zero vector
// reports false.
func (v Vec2) Normalized() (Vec2, bool) {
	length := v.Length()
	if length == 0 {
		return Vec2{}, false
	}
	return Vec2{X: v.X.div(length), Z: v.Z.div(length)}, true
}

// IsZero reports whether every component is zero.
func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Z == 0
}

// AngleDeg returns the heading of v in fixed-point degrees.
func (v Vec2) AngleDeg() Scalar {
	return Atan2Deg(v.Z, v.X)
}

// Lift raises the ground-plane vector back into 3D at the given height.
func (v Vec2) Lift(y Scalar) Vec3 {
	return Vec3{X: v.X, Y: y, Z: v.Z}
}
