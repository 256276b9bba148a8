package lisp

// Vector is a mutable, indexed sequence of values.
type Vector struct {
	Items []Val
}

// NewVector allocates a new mutable vector from the given elements. The
// slice is copied so later mutation of the caller's slice is not visible.
func NewVector(items ...Val) *Vector {
	v := &Vector{Items: make([]Val, len(items))}
	copy(v.Items, items)

	return v
}

// Len returns the number of elements in the vector.
func (v *Vector) Len() int { return len(v.Items) }

// At returns the element at index i and whether i was in bounds.
func (v *Vector) At(i int) (Val, bool) {
	if i < 0 || i >= len(v.Items) {
		return Nil, false
	}

	return v.Items[i], true
}

// Set mutates the element at index i in place. ok is false if i is out of
// bounds.
func (v *Vector) Set(i int, val Val) (ok bool) {
	if i < 0 || i >= len(v.Items) {
		return false
	}

	v.Items[i] = val

	return true
}

// ToList converts the vector's elements to a freshly allocated proper list.
func (v *Vector) ToList() Val { return List(v.Items...) }
