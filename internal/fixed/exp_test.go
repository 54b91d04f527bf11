package fixed

import (
	"errors"
	"testing"
)

func TestExp(t *testing.T) {
	if got := Exp(Zero); got != One {
		t.Fatalf("Exp(0) = %d, want One", got.Raw())
	}
	closeTo(t, "Exp(1)", Exp(One), E, 50)
	closeTo(t, "Exp(2)", Exp(FromInt(2)), FromFloat(7.389056), 100)
	closeTo(t, "Exp(ln 2)", Exp(ln2), FromInt(2), 50)
	closeTo(t, "Exp(-1)", Exp(-One), FromFloat(0.367879), 50)
	if got := Exp(FromInt(100)); got != Max {
		t.Fatalf("Exp(100) = %d, want saturation at Max", got.Raw())
	}
}

func TestLn(t *testing.T) {
	got, err := Ln(One)
	if err != nil {
		t.Fatalf("Ln(1) returned error: %v", err)
	}
	if got != 0 {
		t.Fatalf("Ln(1) = %d, want 0", got.Raw())
	}

	got, err = Ln(FromInt(2))
	if err != nil {
		t.Fatalf("Ln(2) returned error: %v", err)
	}
	closeTo(t, "Ln(2)", got, ln2, 20)

	got, err = Ln(E)
	if err != nil {
		t.Fatalf("Ln(e) returned error: %v", err)
	}
	closeTo(t, "Ln(e)", got, One, 20)

	got, err = Ln(FromInt(1000))
	if err != nil {
		t.Fatalf("Ln(1000) returned error: %v", err)
	}
	closeTo(t, "Ln(1000)", got, FromFloat(6.907755), 60)

	got, err = Ln(FromFloat(0.25))
	if err != nil {
		t.Fatalf("Ln(0.25) returned error: %v", err)
	}
	closeTo(t, "Ln(0.25)", got, FromFloat(-1.386294), 40)
}

func TestLnNonPositive(t *testing.T) {
	if _, err := Ln(Zero); !errors.Is(err, ErrNonPositiveLog) {
		t.Fatalf("Ln(0) error = %v, want ErrNonPositiveLog", err)
	}
	if _, err := Ln(FromInt(-4)); !errors.Is(err, ErrNonPositiveLog) {
		t.Fatalf("Ln(-4) error = %v, want ErrNonPositiveLog", err)
	}
}

func TestExpLnRoundTrip(t *testing.T) {
	values := []Scalar{FromFloat(0.5), One, FromInt(3), FromInt(10), FromFloat(123.456)}
	for _, v := range values {
		log, err := Ln(v)
		if err != nil {
			t.Fatalf("Ln(%d) returned error: %v", v.Raw(), err)
		}
		back := Exp(log)
		// Relative tolerance: a couple of series truncations each way.
		tolerance := v.Mul(FromRaw(200))
		if tolerance < 50 {
			tolerance = 50
		}
		closeTo(t, "Exp(Ln(x))", back, v, tolerance)
	}
}

func TestPow(t *testing.T) {
	got, err := Pow(FromInt(2), FromInt(10))
	if err != nil {
		t.Fatalf("Pow(2,10) returned error: %v", err)
	}
	closeTo(t, "Pow(2,10)", got, FromInt(1024), FromFloat(0.01))

	got, err = Pow(FromInt(9), Half)
	if err != nil {
		t.Fatalf("Pow(9,0.5) returned error: %v", err)
	}
	closeTo(t, "Pow(9,0.5)", got, FromInt(3), 200)

	if _, err := Pow(FromInt(-2), FromInt(2)); !errors.Is(err, ErrNonPositiveLog) {
		t.Fatalf("Pow(-2,2) error = %v, want ErrNonPositiveLog", err)
	}
	got, err = Pow(Zero, FromInt(3))
	if err != nil || got != 0 {
		t.Fatalf("Pow(0,3) = %d, %v; want 0, nil", got.Raw(), err)
	}
	got, err = Pow(Zero, Zero)
	if err != nil || got != One {
		t.Fatalf("Pow(0,0) = %d, %v; want One, nil", got.Raw(), err)
	}
	if _, err := Pow(Zero, FromInt(-1)); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("Pow(0,-1) error = %v, want ErrDivisionByZero", err)
	}
}

func TestPowInt(t *testing.T) {
	got, err := PowInt(FromInt(2), 10)
	if err != nil {
		t.Fatalf("PowInt(2,10) returned error: %v", err)
	}
	if got != FromInt(1024) {
		t.Fatalf("PowInt(2,10) = %d, want 1024", got.Raw())
	}

	got, err = PowInt(FromInt(2), -2)
	if err != nil {
		t.Fatalf("PowInt(2,-2) returned error: %v", err)
	}
	if got != FromFloat(0.25) {
		t.Fatalf("PowInt(2,-2) = %d, want 0.25", got.Raw())
	}

	got, err = PowInt(FromInt(7), 0)
	if err != nil || got != One {
		t.Fatalf("PowInt(7,0) = %d, %v; want One, nil", got.Raw(), err)
	}
}
