package fixed

import "testing"

func TestVec3Arithmetic(t *testing.T) {
	a := V3(FromInt(1), FromInt(2), FromInt(3))
	b := V3(FromInt(4), FromInt(-5), FromInt(6))

	sum := a.Add(b)
	if sum != V3(FromInt(5), FromInt(-3), FromInt(9)) {
		t.Fatalf("Add = %+v", sum)
	}
	diff := a.Sub(b)
	if diff != V3(FromInt(-3), FromInt(7), FromInt(-3)) {
		t.Fatalf("Sub = %+v", diff)
	}
	scaled := a.Scale(FromInt(2))
	if scaled != V3(FromInt(2), FromInt(4), FromInt(6)) {
		t.Fatalf("Scale = %+v", scaled)
	}
	if got := a.Dot(b); got != FromInt(12) {
		t.Fatalf("Dot = %d, want 12", got.Raw())
	}
}

func TestVec3Cross(t *testing.T) {
	x := V3(One, Zero, Zero)
	y := V3(Zero, One, Zero)
	z := x.Cross(y)
	if z != V3(Zero, Zero, One) {
		t.Fatalf("x × y = %+v, want z", z)
	}
	if back := y.Cross(x); back != V3(Zero, Zero, -One) {
		t.Fatalf("y × x = %+v, want -z", back)
	}
}

func TestVec3Length(t *testing.T) {
	v := V3(FromInt(3), Zero, FromInt(4))
	if got := v.Length(); got != FromInt(5) {
		t.Fatalf("Length = %d, want 5", got.Raw())
	}
	if got := v.LengthSq(); got != FromInt(25) {
		t.Fatalf("LengthSq = %d, want 25", got.Raw())
	}
}

func TestVec3Normalized(t *testing.T) {
	v := V3(FromInt(10), Zero, Zero)
	unit, ok := v.Normalized()
	if !ok {
		t.Fatal("Normalized reported failure for a non-zero vector")
	}
	if unit != V3(One, Zero, Zero) {
		t.Fatalf("Normalized = %+v", unit)
	}

	if _, ok := (Vec3{}).Normalized(); ok {
		t.Fatal("Normalized reported success for the zero vector")
	}
}

func TestVec3GroundPlane(t *testing.T) {
	a := V3(Zero, FromInt(100), Zero)
	b := V3(FromInt(3), FromInt(-50), FromInt(4))
	// Height must not contribute to ground-plane distance.
	if got := a.Dist2D(b); got != FromInt(5) {
		t.Fatalf("Dist2D = %d, want 5", got.Raw())
	}
	if got := a.DistSq2D(b); got != FromInt(25) {
		t.Fatalf("DistSq2D = %d, want 25", got.Raw())
	}
	if got := b.Ground(); got != V2(FromInt(3), FromInt(4)) {
		t.Fatalf("Ground = %+v", got)
	}
}

func TestVec2AngleDeg(t *testing.T) {
	cases := []struct {
		name string
		v    Vec2
		want Scalar
	}{
		{"east", V2(One, Zero), Zero},
		{"north", V2(Zero, One), FromInt(90)},
		{"diagonal", V2(One, One), FromInt(45)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			closeTo(t, "AngleDeg", tc.v.AngleDeg(), tc.want, 200)
		})
	}
}

func TestVec2Lift(t *testing.T) {
	v := V2(FromInt(1), FromInt(2))
	if got := v.Lift(FromInt(9)); got != V3(FromInt(1), FromInt(9), FromInt(2)) {
		t.Fatalf("Lift = %+v", got)
	}
}
