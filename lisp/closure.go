package lisp

// Closure pairs a compiled code block with the environment it closes
// over, the declared argument shape, and an optional debug name (set for
// a defmacro transform and for registered primitives), per spec section 3.
type Closure struct {
	Code     CodeHandle
	Env      *Environment
	Params   []string
	Dotted   bool
	Name     string
	Primitive PrimitiveFunc
}

// PrimitiveFunc is a built-in procedure implemented in Go rather than
// compiled Lisp, invoked via CALL_PRIMOP or JMP_CLOSURE when a closure
// wraps one.
type PrimitiveFunc func(m *Machine, args []Val) (Val, error)

// IsPrimitive reports whether c wraps a Go-native procedure rather than a
// compiled code block.
func (c *Closure) IsPrimitive() bool { return c.Primitive != nil }

// Macro is a closure invoked at compile time on the unevaluated argument
// forms of a macro call, per spec section 4.2.
type Macro struct {
	Transform *Closure
}

// ReturnAddress captures a suspended call frame: which closure to resume,
// at what instruction index, and in which environment, per spec section
// 4.3's SAVE_RETURN/RETURN semantics.
type ReturnAddress struct {
	Fn    *Closure
	PC    int
	Env   *Environment
	Debug string
}
