package lisp

import "fmt"

// primitiveEntry pairs a fixed arity (the one the compiler's CALL_PRIMOP
// fast path checks against) with the Go implementation.
type primitiveEntry struct {
	arity int
	fn    PrimitiveFunc
}

var primitiveTable map[string]primitiveEntry

func init() {
	primitiveTable = map[string]primitiveEntry{
		"+":    {2, primAdd},
		"-":    {2, primSub},
		"*":    {2, primMul},
		"/":    {2, primDiv},
		"mod":  {2, primMod},
		"=":    {2, primNumEq},
		"<":    {2, primLt},
		">":    {2, primGt},
		"<=":   {2, primLe},
		">=":   {2, primGe},

		"nil?":     {1, primIsNil},
		"cons?":    {1, primIsCons},
		"symbol?":  {1, primIsSymbol},
		"string?":  {1, primIsString},
		"number?":  {1, primIsNumber},
		"vector?":  {1, primIsVector},
		"map?":     {1, primIsMap},
		"closure?": {1, primIsClosure},
		"proc?":    {1, primIsClosure},
		"eq?":      {2, primEq},
		"equal?":   {2, primEqual},

		"cons":     {2, primCons},
		"car":      {1, primCar},
		"cdr":      {1, primCdr},
		"set-car!": {2, primSetCar},
		"set-cdr!": {2, primSetCdr},
		"length":   {1, primLength},
		"reverse":  {1, primReverse},

		"vector-ref":    {2, primVectorRef},
		"vector-set!":   {3, primVectorSet},
		"vector-length": {1, primVectorLength},
		"vector->list":  {1, primVectorToList},

		"map-ref":  {2, primMapRef},
		"map-has?": {2, primMapHas},

		"string-append":  {2, primStringAppend},
		"string-length":  {1, primStringLength},
		"substring":      {3, primSubstring},
		"string->symbol": {1, primStringToSymbol},
		"symbol->string": {1, primSymbolToString},
		"string->number": {1, primStringToNumber},
		"number->string": {1, primNumberToString},

		"error": {1, primError},
		"print": {1, primPrint},
	}
}

// primitiveArity reports the fixed arity the compiler's CALL_PRIMOP fast
// path requires for name, if name is a registered primitive at all.
func primitiveArity(name string) (int, bool) {
	e, ok := primitiveTable[name]

	return e.arity, ok
}

// callPrimitive dispatches CALL_PRIMOP: name must be registered and argc
// must equal its fixed arity (the compiler only emits CALL_PRIMOP when it
// already checked this, but interop callers may not have).
func callPrimitive(m *Machine, name string, args []Val) (Val, error) {
	e, ok := primitiveTable[name]
	if !ok {
		return Nil, ErrPrimitiveTypeMismatch.Wrap(fmt.Errorf("unknown primitive %q", name))
	}

	if e.arity != len(args) {
		return Nil, ErrWrongArgCount.Wrap(fmt.Errorf("%s wants %d args, got %d", name, e.arity, len(args)))
	}

	return e.fn(m, args)
}

// asPrimitiveClosure wraps a registered primitive as a first-class
// Closure value, so it can be passed to higher-order primitives like
// apply/eval or bound as an ordinary value via (set! f +).
func asPrimitiveClosure(name string) (*Closure, bool) {
	e, ok := primitiveTable[name]
	if !ok {
		return nil, false
	}

	return &Closure{Name: name, Primitive: e.fn, Params: make([]string, e.arity)}, true
}

// RegisterPrimitives installs every built-in as both a direct
// CALL_PRIMOP-reachable entry and a value binding in core, per spec
// section 4.4.
func RegisterPrimitives(core *Package) {
	for name := range primitiveTable {
		closure, _ := asPrimitiveClosure(name)
		Set(core.Intern(name), ClosureVal(closure))
	}
}

func numOp(args []Val, intOp func(a, b int64) int64, floatOp func(a, b float64) float64) Val {
	if args[0].IsFloat() || args[1].IsFloat() {
		return Float64(floatOp(args[0].Float64(), args[1].Float64()))
	}

	return Int64(intOp(args[0].Int64(), args[1].Int64()))
}

func primAdd(_ *Machine, args []Val) (Val, error) {
	return numOp(args, func(a, b int64) int64 { return a + b }, func(a, b float64) float64 { return a + b }), nil
}

func primSub(_ *Machine, args []Val) (Val, error) {
	return numOp(args, func(a, b int64) int64 { return a - b }, func(a, b float64) float64 { return a - b }), nil
}

func primMul(_ *Machine, args []Val) (Val, error) {
	return numOp(args, func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b }), nil
}

func primDiv(_ *Machine, args []Val) (Val, error) {
	if !args[0].IsFloat() && !args[1].IsFloat() && args[1].Int64() != 0 && args[0].Int64()%args[1].Int64() == 0 {
		return Int64(args[0].Int64() / args[1].Int64()), nil
	}

	return Float64(args[0].Float64() / args[1].Float64()), nil
}

func primMod(_ *Machine, args []Val) (Val, error) {
	if !args[0].IsNumber() || !args[1].IsNumber() {
		return Nil, ErrPrimitiveTypeMismatch
	}

	return Int64(args[0].Int64() % args[1].Int64()), nil
}

func primNumEq(_ *Machine, args []Val) (Val, error) {
	return Bool(args[0].Float64() == args[1].Float64()), nil
}

func primLt(_ *Machine, args []Val) (Val, error) { return Bool(args[0].Float64() < args[1].Float64()), nil }
func primGt(_ *Machine, args []Val) (Val, error) { return Bool(args[0].Float64() > args[1].Float64()), nil }

func primLe(_ *Machine, args []Val) (Val, error) {
	return Bool(args[0].Float64() <= args[1].Float64()), nil
}

func primGe(_ *Machine, args []Val) (Val, error) {
	return Bool(args[0].Float64() >= args[1].Float64()), nil
}

func primIsNil(_ *Machine, args []Val) (Val, error)     { return Bool(args[0].IsNil()), nil }
func primIsCons(_ *Machine, args []Val) (Val, error)    { return Bool(args[0].Kind == KindCons), nil }
func primIsSymbol(_ *Machine, args []Val) (Val, error)  { return Bool(args[0].Kind == KindSymbol), nil }
func primIsString(_ *Machine, args []Val) (Val, error)  { return Bool(args[0].Kind == KindString), nil }
func primIsNumber(_ *Machine, args []Val) (Val, error)  { return Bool(args[0].IsNumber()), nil }
func primIsVector(_ *Machine, args []Val) (Val, error)  { return Bool(args[0].Kind == KindVector), nil }
func primIsMap(_ *Machine, args []Val) (Val, error)     { return Bool(args[0].Kind == KindMap), nil }
func primIsClosure(_ *Machine, args []Val) (Val, error) { return Bool(args[0].Kind == KindClosure), nil }

func primEq(_ *Machine, args []Val) (Val, error) {
	a, b := args[0], args[1]
	if a.Kind != b.Kind {
		return Bool(false), nil
	}

	switch a.Kind {
	case KindNil:
		return Bool(true), nil
	case KindBool, KindInt32, KindInt64, KindUint32, KindUint64, KindFloat32, KindFloat64:
		return Bool(a.num == b.num), nil
	case KindString:
		return Bool(a.str == b.str), nil
	default:
		return Bool(a.ref == b.ref), nil
	}
}

func primEqual(_ *Machine, args []Val) (Val, error) { return Bool(Equal(args[0], args[1])), nil }

func primCons(_ *Machine, args []Val) (Val, error) { return Cell(args[0], args[1]), nil }

func primCar(_ *Machine, args []Val) (Val, error) {
	if args[0].Kind != KindCons {
		return Nil, ErrPrimitiveTypeMismatch
	}

	return args[0].Cons().First, nil
}

func primCdr(_ *Machine, args []Val) (Val, error) {
	if args[0].Kind != KindCons {
		return Nil, ErrPrimitiveTypeMismatch
	}

	return args[0].Cons().Rest, nil
}

func primSetCar(_ *Machine, args []Val) (Val, error) {
	if args[0].Kind != KindCons {
		return Nil, ErrPrimitiveTypeMismatch
	}

	args[0].Cons().First = args[1]

	return Nil, nil
}

func primSetCdr(_ *Machine, args []Val) (Val, error) {
	if args[0].Kind != KindCons {
		return Nil, ErrPrimitiveTypeMismatch
	}

	args[0].Cons().Rest = args[1]

	return Nil, nil
}

func primLength(_ *Machine, args []Val) (Val, error) {
	n, ok := ListLength(args[0])
	if !ok {
		return Nil, ErrPrimitiveTypeMismatch
	}

	return Int64(int64(n)), nil
}

func primReverse(_ *Machine, args []Val) (Val, error) {
	v, ok := ReverseList(args[0])
	if !ok {
		return Nil, ErrPrimitiveTypeMismatch
	}

	return v, nil
}

func primVectorRef(_ *Machine, args []Val) (Val, error) {
	if args[0].Kind != KindVector {
		return Nil, ErrPrimitiveTypeMismatch
	}

	v, ok := args[0].Vector().At(int(args[1].Int64()))
	if !ok {
		return Nil, ErrPrimitiveTypeMismatch
	}

	return v, nil
}

func primVectorSet(_ *Machine, args []Val) (Val, error) {
	if args[0].Kind != KindVector {
		return Nil, ErrPrimitiveTypeMismatch
	}

	if !args[0].Vector().Set(int(args[1].Int64()), args[2]) {
		return Nil, ErrPrimitiveTypeMismatch
	}

	return Nil, nil
}

func primVectorLength(_ *Machine, args []Val) (Val, error) {
	if args[0].Kind != KindVector {
		return Nil, ErrPrimitiveTypeMismatch
	}

	return Int64(int64(args[0].Vector().Len())), nil
}

func primVectorToList(_ *Machine, args []Val) (Val, error) {
	if args[0].Kind != KindVector {
		return Nil, ErrPrimitiveTypeMismatch
	}

	return args[0].Vector().ToList(), nil
}

func primMapRef(_ *Machine, args []Val) (Val, error) {
	if args[0].Kind != KindMap {
		return Nil, ErrPrimitiveTypeMismatch
	}

	v, _ := args[0].Map().Get(args[1])

	return v, nil
}

func primMapHas(_ *Machine, args []Val) (Val, error) {
	if args[0].Kind != KindMap {
		return Nil, ErrPrimitiveTypeMismatch
	}

	return Bool(args[0].Map().Has(args[1])), nil
}

func primStringAppend(_ *Machine, args []Val) (Val, error) {
	return Str(args[0].AsStr() + args[1].AsStr()), nil
}

func primStringLength(_ *Machine, args []Val) (Val, error) {
	return Int64(int64(len([]rune(args[0].AsStr())))), nil
}

func primSubstring(_ *Machine, args []Val) (Val, error) {
	r := []rune(args[0].AsStr())
	start, end := int(args[1].Int64()), int(args[2].Int64())

	if start < 0 || end > len(r) || start > end {
		return Nil, ErrPrimitiveTypeMismatch
	}

	return Str(string(r[start:end])), nil
}

func primStringToSymbol(m *Machine, args []Val) (Val, error) {
	return SymVal(m.packages.Global.Intern(args[0].AsStr())), nil
}

func primSymbolToString(_ *Machine, args []Val) (Val, error) {
	if args[0].Kind != KindSymbol {
		return Nil, ErrPrimitiveTypeMismatch
	}

	return Str(args[0].Symbol().Name), nil
}

func primStringToNumber(_ *Machine, args []Val) (Val, error) {
	s := args[0].AsStr()

	if v, ok := parseNumberLiteral(s); ok {
		return v, nil
	}

	return Bool(false), nil
}

func primNumberToString(_ *Machine, args []Val) (Val, error) {
	return Str(Print(args[0])), nil
}

func primError(_ *Machine, args []Val) (Val, error) {
	return Nil, ErrUserError.Wrap(fmt.Errorf("%s", Print(args[0])))
}

func primPrint(_ *Machine, args []Val) (Val, error) {
	fmt.Println(Print(args[0]))

	return Nil, nil
}
