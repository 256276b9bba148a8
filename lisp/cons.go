package lisp

// Cons is a mutable pair. A proper list is either Nil or a Cons whose Rest
// is a proper list; the final pair of a dotted list has a non-cons,
// non-nil Rest.
type Cons struct {
	First Val
	Rest  Val
}

// NewCons allocates a new mutable pair.
func NewCons(first, rest Val) *Cons {
	return &Cons{First: first, Rest: rest}
}

// Cell constructs (first . rest) as a Val.
func Cell(first, rest Val) Val {
	return ConsVal(NewCons(first, rest))
}

// List constructs a proper list from the given elements.
func List(items ...Val) Val {
	result := Nil
	for i := len(items) - 1; i >= 0; i-- {
		result = Cell(items[i], result)
	}

	return result
}

// IsProperList reports whether v is nil or a chain of conses terminated by
// nil.
func IsProperList(v Val) bool {
	for {
		switch v.Kind {
		case KindNil:
			return true
		case KindCons:
			v = v.Cons().Rest
		default:
			return false
		}
	}
}

// ListLength returns the length of a proper list. ok is false if v is not a
// proper list (length is undefined for dotted/improper lists per spec
// section 3).
func ListLength(v Val) (n int, ok bool) {
	for {
		switch v.Kind {
		case KindNil:
			return n, true
		case KindCons:
			n++
			v = v.Cons().Rest
		default:
			return 0, false
		}
	}
}

// ListToSlice converts a proper list to a slice of its elements. ok is false
// if v is not a proper list.
func ListToSlice(v Val) (items []Val, ok bool) {
	for {
		switch v.Kind {
		case KindNil:
			return items, true
		case KindCons:
			c := v.Cons()
			items = append(items, c.First)
			v = c.Rest
		default:
			return nil, false
		}
	}
}

// SliceToList is an alias of List, kept for readability at call sites that
// convert a collected slice back into a list.
func SliceToList(items []Val) Val { return List(items...) }

// ReverseList returns a freshly-allocated reversal of the proper list v.
// ok is false if v is not a proper list.
func ReverseList(v Val) (result Val, ok bool) {
	result = Nil

	for {
		switch v.Kind {
		case KindNil:
			return result, true
		case KindCons:
			c := v.Cons()
			result = Cell(c.First, result)
			v = c.Rest
		default:
			return Nil, false
		}
	}
}

// AppendLists concatenates zero or more proper lists into one freshly
// allocated proper list. The final argument is not copied (Scheme/Lisp
// append semantics: only the spine of all but the last argument is copied).
func AppendLists(lists ...Val) (Val, bool) {
	if len(lists) == 0 {
		return Nil, true
	}

	result := lists[len(lists)-1]

	for i := len(lists) - 2; i >= 0; i-- {
		items, ok := ListToSlice(lists[i])
		if !ok {
			return Nil, false
		}

		for j := len(items) - 1; j >= 0; j-- {
			result = Cell(items[j], result)
		}
	}

	return result, true
}
