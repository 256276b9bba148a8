package lisp

// variadicEntry is a primitive whose argument count is not fixed, or that
// needs access to the owning Context (eval, apply, macroexpand, package
// operations). These are never reachable through the compiler's
// CALL_PRIMOP fast path (primitiveArity reports them as unregistered);
// they are called the same way a user-defined closure is, through
// JMP_CLOSURE, which special-cases primitive closures directly.
type variadicEntry func(ctx *Context, m *Machine, args []Val) (Val, error)

var variadicTable map[string]variadicEntry

func init() {
	variadicTable = map[string]variadicEntry{
		"list":          func(_ *Context, _ *Machine, args []Val) (Val, error) { return List(args...), nil },
		"vector":        func(_ *Context, _ *Machine, args []Val) (Val, error) { return VectorVal(NewVector(args...)), nil },
		"map":           func(_ *Context, _ *Machine, args []Val) (Val, error) { return MapValOf(NewMap(args...)), nil },
		"append":        variadicAppend,
		"map-keys":      variadicMapKeys,
		"map-vals":      variadicMapVals,
		"apply":         variadicApply,
		"eval":          variadicEval,
		"macroexpand-1": variadicMacroexpand1,
		"macroexpand":   variadicMacroexpandFull,

		"package-find":   variadicPackageFind,
		"package-create": variadicPackageCreate,
		"package-import": variadicPackageImport,
		"package-export": variadicPackageExport,
		"intern":         variadicIntern,
	}
}

// registerVariadicPrimitives installs every variadic/context-aware
// primitive as a value binding in core. ctx is closed over so each
// primitive can reach the package registry, compiler, and machine it
// belongs to.
func registerVariadicPrimitives(core *Package, ctx *Context) {
	for name, fn := range variadicTable {
		fn := fn
		closure := &Closure{
			Name: name,
			Primitive: func(m *Machine, args []Val) (Val, error) {
				return fn(ctx, m, args)
			},
		}
		Set(core.Intern(name), ClosureVal(closure))
	}
}

func variadicAppend(_ *Context, _ *Machine, args []Val) (Val, error) {
	v, ok := AppendLists(args...)
	if !ok {
		return Nil, ErrPrimitiveTypeMismatch
	}

	return v, nil
}

func variadicMapKeys(_ *Context, _ *Machine, args []Val) (Val, error) {
	if len(args) != 1 || args[0].Kind != KindMap {
		return Nil, ErrPrimitiveTypeMismatch
	}

	return List(args[0].Map().Keys()...), nil
}

func variadicMapVals(_ *Context, _ *Machine, args []Val) (Val, error) {
	if len(args) != 1 || args[0].Kind != KindMap {
		return Nil, ErrPrimitiveTypeMismatch
	}

	_, vals := args[0].Map().Entries()

	return List(vals...), nil
}

func variadicApply(ctx *Context, _ *Machine, args []Val) (Val, error) {
	if len(args) < 1 || args[0].Kind != KindClosure {
		return Nil, ErrPrimitiveTypeMismatch
	}

	fn := args[0].Closure()

	callArgs := append([]Val(nil), args[1:len(args)-1]...)

	if len(args) > 1 {
		rest, ok := ListToSlice(args[len(args)-1])
		if !ok {
			return Nil, ErrPrimitiveTypeMismatch
		}

		callArgs = append(callArgs, rest...)
	}

	return ctx.callClosure(fn, callArgs)
}

func variadicEval(ctx *Context, _ *Machine, args []Val) (Val, error) {
	if len(args) != 1 {
		return Nil, ErrWrongArgCount
	}

	closure, err := ctx.Compiler.Compile(ctx.Packages.Global, args[0])
	if err != nil {
		return Nil, err
	}

	return ctx.Machine.Execute(closure)
}

func variadicMacroexpand1(ctx *Context, _ *Machine, args []Val) (Val, error) {
	if len(args) != 1 {
		return Nil, ErrWrongArgCount
	}

	return macroexpand1(ctx, args[0])
}

// macroexpand1 performs one macro expansion of form if its head is a
// symbol bound to a macro, per spec section 4.2; otherwise it returns
// form unchanged.
func macroexpand1(ctx *Context, form Val) (Val, error) {
	items, ok := ListToSlice(form)
	if !ok || len(items) == 0 || items[0].Kind != KindSymbol {
		return form, nil
	}

	m, ok := MacroOf(items[0].Symbol())
	if !ok {
		return form, nil
	}

	return ctx.callClosure(m.Transform, items[1:])
}

func variadicMacroexpandFull(ctx *Context, _ *Machine, args []Val) (Val, error) {
	if len(args) != 1 {
		return Nil, ErrWrongArgCount
	}

	return macroexpandFull(ctx, args[0])
}

// macroexpandFull expands the head repeatedly until stable, then
// recursively expands each element of the resulting list, per spec
// section 4.2's macroexpand_full.
func macroexpandFull(ctx *Context, form Val) (Val, error) {
	for {
		expanded, err := macroexpand1(ctx, form)
		if err != nil {
			return Nil, err
		}

		if Equal(expanded, form) {
			break
		}

		form = expanded
	}

	items, ok := ListToSlice(form)
	if !ok {
		return form, nil
	}

	out := make([]Val, len(items))

	for i, item := range items {
		expanded, err := macroexpandFull(ctx, item)
		if err != nil {
			return Nil, err
		}

		out[i] = expanded
	}

	return List(out...), nil
}

func variadicPackageFind(ctx *Context, _ *Machine, args []Val) (Val, error) {
	if len(args) != 1 || args[0].Kind != KindString {
		return Nil, ErrPrimitiveTypeMismatch
	}

	if pkg, ok := ctx.Packages.Find(args[0].AsStr()); ok {
		return ObjectVal(pkg), nil
	}

	return Nil, nil
}

func variadicPackageCreate(ctx *Context, _ *Machine, args []Val) (Val, error) {
	if len(args) != 1 || args[0].Kind != KindString {
		return Nil, ErrPrimitiveTypeMismatch
	}

	return ObjectVal(ctx.Packages.FindOrCreate(args[0].AsStr())), nil
}

func asPackageArg(v Val) (*Package, bool) {
	pkg, ok := v.Object().(*Package)

	return pkg, v.Kind == KindObject && ok
}

func variadicPackageImport(_ *Context, _ *Machine, args []Val) (Val, error) {
	if len(args) != 2 {
		return Nil, ErrWrongArgCount
	}

	dst, ok1 := asPackageArg(args[0])
	src, ok2 := asPackageArg(args[1])

	if !ok1 || !ok2 {
		return Nil, ErrPrimitiveTypeMismatch
	}

	dst.Import(src)

	return Nil, nil
}

func variadicPackageExport(_ *Context, _ *Machine, args []Val) (Val, error) {
	if len(args) != 1 || args[0].Kind != KindSymbol {
		return Nil, ErrPrimitiveTypeMismatch
	}

	args[0].Symbol().Exported = true

	return Nil, nil
}

func variadicIntern(ctx *Context, _ *Machine, args []Val) (Val, error) {
	if len(args) < 1 || args[0].Kind != KindString {
		return Nil, ErrPrimitiveTypeMismatch
	}

	pkg := ctx.Packages.Global

	if len(args) == 2 {
		p, ok := asPackageArg(args[1])
		if !ok {
			return Nil, ErrPrimitiveTypeMismatch
		}

		pkg = p
	}

	return SymVal(pkg.Intern(args[0].AsStr())), nil
}
