package lisp_test

import (
	"testing"

	"github.com/ardnew/parembnet/lisp"
)

// TestListLength_ReverseInvariant checks spec section 8's invariant:
// length(L) == length(reverse(L)) and reverse(reverse(L)) == L
// (structural equality) for any proper list L.
func TestListLength_ReverseInvariant(t *testing.T) {
	lists := [][]lisp.Val{
		nil,
		{lisp.Int64(1)},
		{lisp.Int64(1), lisp.Int64(2), lisp.Int64(3)},
		{lisp.Str("a"), lisp.Bool(true), lisp.Nil},
	}

	for _, items := range lists {
		l := lisp.List(items...)

		n, ok := lisp.ListLength(l)
		if !ok {
			t.Fatalf("ListLength(%s): not a proper list", lisp.Print(l))
		}

		rev, ok := lisp.ReverseList(l)
		if !ok {
			t.Fatalf("ReverseList(%s): not a proper list", lisp.Print(l))
		}

		revLen, ok := lisp.ListLength(rev)
		if !ok || revLen != n {
			t.Errorf("length(reverse(%s)) = %d, want %d", lisp.Print(l), revLen, n)
		}

		revRev, ok := lisp.ReverseList(rev)
		if !ok {
			t.Fatalf("ReverseList(reverse(%s)): not a proper list", lisp.Print(l))
		}

		if lisp.Print(revRev) != lisp.Print(l) {
			t.Errorf("reverse(reverse(%s)) = %s, want %s", lisp.Print(l), lisp.Print(revRev), lisp.Print(l))
		}
	}
}

// TestDottedList_IsNotProper checks that length/reverse are undefined
// (report ok=false) for an improper, dotted list, per spec section 3.
func TestDottedList_IsNotProper(t *testing.T) {
	dotted := lisp.Cell(lisp.Int64(1), lisp.Int64(2))

	if lisp.IsProperList(dotted) {
		t.Error("(1 . 2) must not be a proper list")
	}

	if _, ok := lisp.ListLength(dotted); ok {
		t.Error("ListLength on a dotted list should report ok=false")
	}

	if _, ok := lisp.ReverseList(dotted); ok {
		t.Error("ReverseList on a dotted list should report ok=false")
	}
}

// TestCodeArena_HandleInvariant checks spec section 8's invariant: every
// CodeHandle the arena returns is >= 1 and dereferences to a valid block.
func TestCodeArena_HandleInvariant(t *testing.T) {
	arena := lisp.NewCodeArena()

	for i := 0; i < 3; i++ {
		h := arena.New("block")
		if h < 1 {
			t.Fatalf("CodeArena.New returned handle %d, want >= 1", h)
		}

		if arena.Block(h) == nil {
			t.Fatalf("CodeArena.Block(%d) returned nil", h)
		}
	}
}
