package lisp_test

import (
	"testing"

	"github.com/ardnew/parembnet/lisp"
)

// TestTruthy checks the truthiness rule from spec section 3/4.3: only #f
// and nil are false, everything else (including 0 and "") is true.
func TestTruthy(t *testing.T) {
	tests := []struct {
		name string
		v    lisp.Val
		want bool
	}{
		{"nil", lisp.Nil, false},
		{"false", lisp.Bool(false), false},
		{"true", lisp.Bool(true), true},
		{"zero int", lisp.Int64(0), true},
		{"empty string", lisp.Str(""), true},
		{"zero float", lisp.Float64(0.0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Truthy(); got != tt.want {
				t.Errorf("Truthy(%v) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

// TestEqual checks structural equality for strings, bitwise equality for
// numbers/bools, and reference identity for cons/vector/symbol.
func TestEqual(t *testing.T) {
	if !lisp.Equal(lisp.Str("abc"), lisp.Str("abc")) {
		t.Error("equal strings compared unequal")
	}

	if lisp.Equal(lisp.Int64(1), lisp.Float64(1)) {
		t.Error("Int64(1) and Float64(1) have different Kinds and must not be Equal")
	}

	a := lisp.Cell(lisp.Int64(1), lisp.Nil)
	b := lisp.Cell(lisp.Int64(1), lisp.Nil)

	if lisp.Equal(a, b) {
		t.Error("distinct cons cells with equal contents must not be Equal (reference identity)")
	}

	if !lisp.Equal(a, a) {
		t.Error("a cons cell must be Equal to itself")
	}
}

// TestArithmeticTypePromotion checks that arithmetic preserves integer type
// when both operands are integer and promotes to float otherwise, per spec
// section 3.
func TestArithmeticTypePromotion(t *testing.T) {
	intResult := evalLast(t, "(+ 1 2)")
	if intResult.Kind != lisp.KindInt64 {
		t.Errorf("(+ 1 2) Kind = %v, want KindInt64", intResult.Kind)
	}

	floatResult := evalLast(t, "(+ 1 2.0)")
	if floatResult.Kind != lisp.KindFloat64 {
		t.Errorf("(+ 1 2.0) Kind = %v, want KindFloat64", floatResult.Kind)
	}
}
