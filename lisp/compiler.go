package lisp

import (
	"fmt"
	"log/slog"

	"github.com/ardnew/parembnet/log"
)

// Compiler translates s-expressions into instruction streams stored in a
// [CodeArena], per spec section 4.2.
type Compiler struct {
	arena    *CodeArena
	packages *Packages
	ctx      *Context
	Logger   log.Logger

	labelSeq int
}

// NewCompiler returns a compiler that allocates code blocks in arena and
// resolves globals/macros against pkgs. ctx is used to drive the nested
// synchronous VM call macro expansion requires.
func NewCompiler(arena *CodeArena, pkgs *Packages, ctx *Context) *Compiler {
	return &Compiler{arena: arena, packages: pkgs, ctx: ctx}
}

// asm is the growable instruction buffer for one code block being built.
type asm struct {
	instrs []Instruction
	labels map[string]int
}

func (c *Compiler) newAsm() *asm { return &asm{labels: make(map[string]int)} }

func (a *asm) emit(op Opcode, op1, op2 Val, debug string) {
	a.instrs = append(a.instrs, Instruction{Op: op, Op1: op1, Op2: op2, Debug: debug})
}

func (a *asm) label(name string) { a.labels[name] = len(a.instrs) }

func (c *Compiler) newLabel(prefix string) string {
	c.labelSeq++

	return fmt.Sprintf("%s%d", prefix, c.labelSeq)
}

// assemble resolves every jump-family instruction's label operand to an
// integer pc offset, per spec section 4.2's single-pass label assembly.
func (a *asm) assemble() ([]Instruction, error) {
	out := make([]Instruction, 0, len(a.instrs))

	for _, ins := range a.instrs {
		switch ins.Op {
		case OpJmp, OpJmpIfTrue, OpJmpIfFalse, OpSaveReturn:
			label := ins.Op1.AsStr()

			pos, ok := a.labels[label]
			if !ok {
				return nil, ErrUnresolvedLabel.With(slog.String("label", label))
			}

			ins.Op2 = Int64(int64(pos))
		}

		if ins.Op == OpLabel {
			continue
		}

		out = append(out, ins)
	}

	return out, nil
}

// Compile translates expr into a closure wrapping a synthetic zero-argument
// lambda whose body is expr, per spec section 4.2's compile(expr) entry
// point.
func (c *Compiler) Compile(pkg *Package, expr Val) (*Closure, error) {
	a := c.newAsm()

	scope := NewScope(nil, nil, false)
	a.emit(OpMakeEnv, Int64(0), Nil, "entry")

	if err := c.compileExpr(a, scope, pkg, expr, true, false); err != nil {
		return nil, err
	}

	instrs, err := a.assemble()
	if err != nil {
		return nil, err
	}

	handle := c.arena.New("<toplevel>")
	c.arena.Block(handle).Instructions = instrs

	return &Closure{Code: handle, Env: nil, Params: nil, Dotted: false}, nil
}

// compileExpr compiles one sub-expression. used=false means the value is
// discarded; more=false marks tail position, where the last emitted
// value-producing instruction is followed by RETURN.
func (c *Compiler) compileExpr(a *asm, scope *Scope, pkg *Package, expr Val, used, more bool) error {
	if c.Logger.Logger != nil {
		c.Logger.TraceContext(log.DefaultContextProvider(), "compiling",
			slog.String("form", Print(expr)), slog.Bool("used", used), slog.Bool("more", more))
	}

	switch expr.Kind {
	case KindSymbol:
		return c.compileVarRef(a, scope, expr.Symbol(), used, more)
	case KindCons:
		return c.compileList(a, scope, pkg, expr, used, more)
	default:
		return c.compileConstant(a, expr, used, more)
	}
}

func (c *Compiler) compileConstant(a *asm, v Val, used, more bool) error {
	if !used {
		return nil
	}

	a.emit(OpPushConst, v, Nil, "")
	c.finishValue(a, used, more)

	return nil
}

func (c *Compiler) compileVarRef(a *asm, scope *Scope, sym *Symbol, used, more bool) error {
	if !used {
		return nil
	}

	if pos, ok := scope.Resolve(sym.Name); ok {
		a.emit(OpLocalGet, Int64(int64(pos.FrameIndex)), Int64(int64(pos.SlotIndex)), sym.Name)
	} else {
		a.emit(OpGlobalGet, SymVal(sym), Nil, sym.Name)
	}

	c.finishValue(a, used, more)

	return nil
}

// finishValue emits the tail-position RETURN a value-producing form needs
// once its value is on the stack.
func (c *Compiler) finishValue(a *asm, used, more bool) {
	if !more {
		a.emit(OpReturn, Nil, Nil, "")
	}

	_ = used
}

func (c *Compiler) compileList(a *asm, scope *Scope, pkg *Package, expr Val, used, more bool) error {
	items, ok := ListToSlice(expr)
	if !ok || len(items) == 0 {
		return c.compileConstant(a, expr, used, more)
	}

	head := items[0]
	args := items[1:]

	if head.Kind == KindSymbol {
		sym := head.Symbol()

		if m, ok := MacroOf(sym); ok {
			expanded, err := c.expandMacro(m, SliceToList(args))
			if err != nil {
				return err
			}

			return c.compileExpr(a, scope, pkg, expanded, used, more)
		}

		if sym.Pkg == c.packages.Global {
			if handled, err := c.compileSpecialForm(a, scope, pkg, sym.Name, args, used, more); handled {
				return err
			}
		}
	}

	return c.compileCall(a, scope, pkg, head, args, used, more)
}

func (c *Compiler) compileSpecialForm(
	a *asm, scope *Scope, pkg *Package, name string, args []Val, used, more bool,
) (handled bool, err error) {
	switch name {
	case "quote":
		if len(args) != 1 {
			return true, ErrWrongArgCount.With(slog.String("form", "quote"))
		}

		return true, c.compileConstant(a, args[0], used, more)

	case "begin":
		return true, c.compileBegin(a, scope, pkg, args, used, more)

	case "set!":
		return true, c.compileSet(a, scope, pkg, args, used, more)

	case "if":
		return true, c.compileIf(a, scope, pkg, args, used, more)

	case "if*":
		return true, c.compileIfStar(a, scope, pkg, args, used, more)

	case "while":
		return true, c.compileWhile(a, scope, pkg, args, used, more)

	case "lambda":
		return true, c.compileLambda(a, scope, pkg, args, "", used, more)

	case "defmacro":
		return true, c.compileDefmacro(a, scope, pkg, args, used, more)

	default:
		return false, nil
	}
}

func (c *Compiler) compileBegin(a *asm, scope *Scope, pkg *Package, args []Val, used, more bool) error {
	if len(args) == 0 {
		return c.compileConstant(a, Nil, used, more)
	}

	for _, form := range args[:len(args)-1] {
		if err := c.compileExpr(a, scope, pkg, form, false, true); err != nil {
			return err
		}
	}

	return c.compileExpr(a, scope, pkg, args[len(args)-1], used, more)
}

func (c *Compiler) compileSet(a *asm, scope *Scope, pkg *Package, args []Val, used, more bool) error {
	if len(args) != 2 || args[0].Kind != KindSymbol {
		return ErrInvalidSetTarget
	}

	sym := args[0].Symbol()

	if err := c.compileExpr(a, scope, pkg, args[1], true, true); err != nil {
		return err
	}

	if pos, ok := scope.Resolve(sym.Name); ok {
		a.emit(OpLocalSet, Int64(int64(pos.FrameIndex)), Int64(int64(pos.SlotIndex)), sym.Name)
	} else {
		a.emit(OpGlobalSet, SymVal(sym), Nil, sym.Name)
	}

	if !used {
		a.emit(OpPop, Nil, Nil, "")
	}

	if !more {
		a.emit(OpReturn, Nil, Nil, "")
	}

	return nil
}

func (c *Compiler) compileIf(a *asm, scope *Scope, pkg *Package, args []Val, used, more bool) error {
	if len(args) != 2 && len(args) != 3 {
		return ErrWrongArgCount.With(slog.String("form", "if"))
	}

	pred := args[0]
	thenForm := args[1]

	var elseForm Val = Nil
	if len(args) == 3 {
		elseForm = args[2]
	}

	if lit, isLit := literalBool(pred); isLit {
		if lit {
			return c.compileExpr(a, scope, pkg, thenForm, used, more)
		}

		return c.compileExpr(a, scope, pkg, elseForm, used, more)
	}

	thenAsm := c.newAsm()
	if err := c.compileExpr(thenAsm, scope, pkg, thenForm, used, more); err != nil {
		return err
	}

	elseAsm := c.newAsm()
	if err := c.compileExpr(elseAsm, scope, pkg, elseForm, used, more); err != nil {
		return err
	}

	splice := func(sub *asm) {
		for name, pos := range sub.labels {
			a.labels[name] = len(a.instrs) + pos
		}

		a.instrs = append(a.instrs, sub.instrs...)
	}

	if instrSliceEqual(thenAsm.instrs, elseAsm.instrs) {
		if err := c.compileExpr(a, scope, pkg, pred, false, true); err != nil {
			return err
		}

		splice(thenAsm)

		return nil
	}

	if err := c.compileExpr(a, scope, pkg, pred, true, true); err != nil {
		return err
	}

	elseLabel := c.newLabel("Lelse")
	a.emit(OpJmpIfFalse, Str(elseLabel), Nil, "")
	splice(thenAsm)

	if more {
		endLabel := c.newLabel("Lend")
		a.emit(OpJmp, Str(endLabel), Nil, "")
		a.label(elseLabel)
		splice(elseAsm)
		a.label(endLabel)
	} else {
		a.label(elseLabel)
		splice(elseAsm)
	}

	return nil
}

func literalBool(v Val) (val bool, isLiteral bool) {
	switch v.Kind {
	case KindBool:
		return v.AsBool(), true
	case KindNil:
		return false, false // nil is not a *literal* #f; if only folds on literal #f (open question c)
	default:
		if v.Kind != KindSymbol && v.Kind != KindCons {
			return true, true
		}

		return false, false
	}
}

func instrSliceEqual(a, b []Instruction) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i].Op != b[i].Op || !Equal(a[i].Op1, b[i].Op1) || !Equal(a[i].Op2, b[i].Op2) {
			return false
		}
	}

	return true
}

func (c *Compiler) compileIfStar(a *asm, scope *Scope, pkg *Package, args []Val, used, more bool) error {
	if len(args) != 2 {
		return ErrWrongArgCount.With(slog.String("form", "if*"))
	}

	if err := c.compileExpr(a, scope, pkg, args[0], true, true); err != nil {
		return err
	}

	a.emit(OpDup, Nil, Nil, "")

	thenLabel := c.newLabel("Lif*")
	a.emit(OpJmpIfTrue, Str(thenLabel), Nil, "")
	a.emit(OpPop, Nil, Nil, "")

	if err := c.compileExpr(a, scope, pkg, args[1], true, true); err != nil {
		return err
	}

	a.label(thenLabel)

	if !used {
		a.emit(OpPop, Nil, Nil, "")
	}

	if !more {
		a.emit(OpReturn, Nil, Nil, "")
	}

	return nil
}

func (c *Compiler) compileWhile(a *asm, scope *Scope, pkg *Package, args []Val, used, more bool) error {
	if len(args) == 0 {
		return ErrWrongArgCount.With(slog.String("form", "while"))
	}

	a.emit(OpPushConst, Nil, Nil, "")

	topLabel := c.newLabel("Lwhile")
	endLabel := c.newLabel("Lwhileend")
	a.label(topLabel)

	if err := c.compileExpr(a, scope, pkg, args[0], true, true); err != nil {
		return err
	}

	a.emit(OpJmpIfFalse, Str(endLabel), Nil, "")
	a.emit(OpPop, Nil, Nil, "")

	body := args[1:]
	if len(body) == 0 {
		body = []Val{Nil}
	}

	for i, form := range body {
		if err := c.compileExpr(a, scope, pkg, form, i == len(body)-1, true); err != nil {
			return err
		}
	}

	a.emit(OpJmp, Str(topLabel), Nil, "")
	a.label(endLabel)

	if !used {
		a.emit(OpPop, Nil, Nil, "")
	}

	if !more {
		a.emit(OpReturn, Nil, Nil, "")
	}

	return nil
}

// lambdaParams parses a lambda parameter list, which may be dotted
// (a b . rest), into its fixed names and whether a rest-name follows.
func lambdaParams(paramList Val) (names []string, dotted bool, err error) {
	v := paramList

	for {
		switch v.Kind {
		case KindNil:
			return names, dotted, nil
		case KindCons:
			c := v.Cons()
			if c.First.Kind != KindSymbol {
				return nil, false, ErrInvalidLambdaParams
			}

			names = append(names, c.First.Symbol().Name)
			v = c.Rest
		case KindSymbol:
			names = append(names, v.Symbol().Name)

			return names, true, nil
		default:
			return nil, false, ErrInvalidLambdaParams
		}
	}
}

func (c *Compiler) compileLambda(
	a *asm, scope *Scope, pkg *Package, args []Val, name string, used, more bool,
) error {
	if !used {
		return nil
	}

	if len(args) == 0 {
		return ErrInvalidLambdaParams
	}

	names, dotted, err := lambdaParams(args[0])
	if err != nil {
		return err
	}

	bodyAsm := c.newAsm()
	bodyScope := NewScope(scope, names, dotted)

	frameSize := len(names)
	if dotted {
		bodyAsm.emit(OpMakeEnvDot, Int64(int64(frameSize-1)), Nil, "")
	} else {
		bodyAsm.emit(OpMakeEnv, Int64(int64(frameSize)), Nil, "")
	}

	body := args[1:]
	if len(body) == 0 {
		if err := c.compileExpr(bodyAsm, bodyScope, pkg, Nil, true, false); err != nil {
			return err
		}
	} else {
		for _, form := range body[:len(body)-1] {
			if err := c.compileExpr(bodyAsm, bodyScope, pkg, form, false, true); err != nil {
				return err
			}
		}

		if err := c.compileExpr(bodyAsm, bodyScope, pkg, body[len(body)-1], true, false); err != nil {
			return err
		}
	}

	instrs, err := bodyAsm.assemble()
	if err != nil {
		return err
	}

	handle := c.arena.New(name)
	c.arena.Block(handle).Instructions = instrs

	template := &Closure{Code: handle, Params: names, Dotted: dotted, Name: name}
	a.emit(OpMakeClosure, ClosureVal(template), Nil, name)
	c.finishValue(a, used, more)

	return nil
}

func (c *Compiler) compileDefmacro(a *asm, scope *Scope, pkg *Package, args []Val, used, more bool) error {
	if len(args) < 2 || args[0].Kind != KindSymbol {
		return ErrWrongArgCount.With(slog.String("form", "defmacro"))
	}

	name := args[0].Symbol()

	lambdaAsm := c.newAsm()
	if err := c.compileLambda(lambdaAsm, scope, pkg, args[1:], name.Name, true, false); err != nil {
		return err
	}

	instrs, err := lambdaAsm.assemble()
	if err != nil {
		return err
	}

	handle := c.arena.New("<macro-install>")
	c.arena.Block(handle).Instructions = instrs

	closureVal, runErr := c.ctx.runToplevel(handle, nil)
	if runErr != nil {
		return runErr
	}

	if closureVal.Kind != KindClosure {
		return ErrWrongArgCount.With(slog.String("form", "defmacro"))
	}

	DefineMacro(name, &Macro{Transform: closureVal.Closure()})
	_ = pkg

	return c.compileConstant(a, Nil, used, more)
}

// expandMacro invokes the macro's body closure on the VM with the
// unevaluated argument list, per spec section 4.2.
func (c *Compiler) expandMacro(m *Macro, argsForm Val) (Val, error) {
	args, ok := ListToSlice(argsForm)
	if !ok {
		return Nil, ErrWrongArgCount.With(slog.String("form", "macro-call"))
	}

	out, err := c.ctx.callClosure(m.Transform, args)
	if err != nil {
		return Nil, newError(KindCompiler, "macro expansion failed").Wrap(err)
	}

	return out, nil
}

func (c *Compiler) compileCall(
	a *asm, scope *Scope, pkg *Package, callee Val, args []Val, used, more bool,
) error {
	if callee.Kind == KindSymbol {
		sym := callee.Symbol()
		if _, isLocal := scope.Resolve(sym.Name); !isLocal {
			if _, shadowed := MacroOf(sym); !shadowed {
				if arity, ok := primitiveArity(sym.Name); ok && arity == len(args) {
					for _, arg := range args {
						if err := c.compileExpr(a, scope, pkg, arg, true, true); err != nil {
							return err
						}
					}

					a.emit(OpCallPrimop, Str(sym.Name), Int64(int64(len(args))), sym.Name)

					if !used {
						a.emit(OpPop, Nil, Nil, "")
					}

					if !more {
						a.emit(OpReturn, Nil, Nil, "")
					}

					return nil
				}
			}
		}
	}

	if !more {
		for _, arg := range args {
			if err := c.compileExpr(a, scope, pkg, arg, true, true); err != nil {
				return err
			}
		}

		if err := c.compileExpr(a, scope, pkg, callee, true, true); err != nil {
			return err
		}

		a.emit(OpJmpClosure, Int64(int64(len(args))), Nil, "")

		return nil
	}

	retLabel := c.newLabel("Lret")
	a.emit(OpSaveReturn, Str(retLabel), Nil, "")

	for _, arg := range args {
		if err := c.compileExpr(a, scope, pkg, arg, true, true); err != nil {
			return err
		}
	}

	if err := c.compileExpr(a, scope, pkg, callee, true, true); err != nil {
		return err
	}

	a.emit(OpJmpClosure, Int64(int64(len(args))), Nil, "")
	a.label(retLabel)

	if !used {
		a.emit(OpPop, Nil, Nil, "")
	}

	return nil
}
