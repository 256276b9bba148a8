package lisp

// Scope is compile-time-only bookkeeping: it tracks which symbol names
// occupy which slot of which lexical frame so the compiler can resolve a
// reference to a [VarPos] once, at compile time. Symbol names themselves
// are not carried into the runtime [Environment] except for debugging, per
// spec section 3 ("Symbol names in a frame are compile-time metadata
// only; runtime access uses VarPos").
type Scope struct {
	names  []string
	dotted bool
	parent *Scope
}

// NewScope opens a new lexical frame over parent, binding names (and,
// if dotted, a final rest-arg name) as its slots.
func NewScope(parent *Scope, names []string, dotted bool) *Scope {
	return &Scope{
		names:  append([]string(nil), names...),
		dotted: dotted,
		parent: parent,
	}
}

// VarPos is a compile-time-resolved variable reference: how many frames up
// (FrameIndex, 0 = current) and which slot within that frame (SlotIndex).
type VarPos struct {
	FrameIndex int
	SlotIndex  int
}

// Resolve searches s and its ancestors for name, returning its [VarPos] and
// true if found, or ok=false if name is not a local (and must instead be
// resolved against the current package's globals).
func (s *Scope) Resolve(name string) (pos VarPos, ok bool) {
	frame := 0

	for cur := s; cur != nil; cur, frame = cur.parent, frame+1 {
		for slot, n := range cur.names {
			if n == name {
				return VarPos{FrameIndex: frame, SlotIndex: slot}, true
			}
		}
	}

	return VarPos{}, false
}

// Depth returns the number of declared slots in this frame only, not
// counting ancestors. Used by the compiler to size MAKE_ENV/MAKE_ENVDOT.
func (s *Scope) Depth() int { return len(s.names) }

// Dotted reports whether this frame's final slot collects extra arguments
// as a list (a "rest" parameter), per the lambda-parameter grammar.
func (s *Scope) Dotted() bool { return s.dotted }

// Environment is the runtime counterpart of Scope: one frame of variable
// slots plus a link to its enclosing frame, built by MAKE_ENV/MAKE_ENVDOT
// and addressed purely by VarPos at runtime.
type Environment struct {
	Values []Val
	Parent *Environment

	// Names is optional debug metadata populated from the compiler's known
	// argument-symbol list, used only by the printer/diagnostics layer; it
	// is never consulted to resolve a variable reference.
	Names []string
}

// NewEnvironment allocates a runtime frame of the given size, linked to
// parent.
func NewEnvironment(parent *Environment, size int) *Environment {
	return &Environment{Values: make([]Val, size), Parent: parent}
}

// Frame walks up n parent links from e and returns the frame found there.
func (e *Environment) Frame(n int) *Environment {
	for ; n > 0 && e != nil; n-- {
		e = e.Parent
	}

	return e
}

// Get reads the value at pos, relative to e.
func (e *Environment) Get(pos VarPos) Val {
	frame := e.Frame(pos.FrameIndex)
	if frame == nil || pos.SlotIndex < 0 || pos.SlotIndex >= len(frame.Values) {
		return Nil
	}

	return frame.Values[pos.SlotIndex]
}

// Set writes val at pos, relative to e.
func (e *Environment) Set(pos VarPos, val Val) {
	frame := e.Frame(pos.FrameIndex)
	if frame == nil || pos.SlotIndex < 0 || pos.SlotIndex >= len(frame.Values) {
		return
	}

	frame.Values[pos.SlotIndex] = val
}
