package lisp

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/ardnew/parembnet/log"
)

// LogOptions mirrors spec section 6's Logger capability: three booleans
// selecting which internal phases to trace, backed by the ambient log
// package instead of a bespoke sink type.
type LogOptions struct {
	Parsing      bool
	Instructions bool
	Stack        bool
}

// Result is one compiled-and-executed top-level expression, per spec
// section 6's compile_and_execute return shape.
type Result struct {
	Input    string
	Compiled []Instruction
	Output   Val
	Elapsed  time.Duration
}

// Context owns everything that lives for the lifetime of one engine
// instance: the package registry, the code arena, the parser, compiler,
// and machine, per spec sections 3 and 6.
type Context struct {
	Arena    *CodeArena
	Packages *Packages
	Parser   *Parser
	Compiler *Compiler
	Machine  *Machine

	logger  log.Logger
	logOpts LogOptions
	cache   *compileCache
}

// NewContext constructs packages, the code arena, the parser, compiler,
// and VM, registers primitives into core, imports core into global, and
// (if loadStdLib) feeds the embedded standard-library source through the
// same compile-and-execute pipeline, per spec section 6's Context.new.
func NewContext(loadStdLib bool, logger log.Logger) (*Context, error) {
	pkgs := NewPackages()
	RegisterPrimitives(pkgs.Core)

	arena := NewCodeArena()

	c := &Context{
		Arena:    arena,
		Packages: pkgs,
		logger:   logger,
		cache:    newCompileCache(),
	}

	c.Parser = NewParser(pkgs, pkgs.Global)
	c.Compiler = NewCompiler(arena, pkgs, c)
	c.Machine = NewMachine(arena, pkgs, c)

	registerVariadicPrimitives(pkgs.Core, c)
	registerInteropPrimitives(pkgs.Core)

	c.applyLoggerOptions()

	if loadStdLib {
		if err := c.loadEmbeddedStdLib(); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// SetLogOptions toggles which internal phases emit trace records, per
// spec section 6's three-boolean Logger capability.
func (c *Context) SetLogOptions(opts LogOptions) {
	c.logOpts = opts
	c.applyLoggerOptions()
}

func (c *Context) applyLoggerOptions() {
	parseLogger, compLogger, machLogger := log.Logger{}, log.Logger{}, log.Logger{}

	if c.logOpts.Parsing {
		parseLogger = c.logger
	}

	if c.logOpts.Instructions {
		compLogger = c.logger
	}

	if c.logOpts.Stack {
		machLogger = c.logger
	}

	c.Parser.Logger = parseLogger
	c.Compiler.Logger = compLogger
	c.Machine.Logger = machLogger
}

// Logger returns the context's configured sink and selected trace phases.
func (c *Context) Logger() (log.Logger, LogOptions) { return c.logger, c.logOpts }

// CompileAndExecute appends src to the parser buffer, drains every
// complete expression, compiles and executes each in turn, and collects a
// [Result] per expression. The first error aborts that expression and is
// returned with the results gathered so far; expressions still buffered
// after it stay in the parser buffer and run on the next call.
func (c *Context) CompileAndExecute(_ context.Context, src string) ([]Result, error) {
	c.Parser.AddString(src)

	var results []Result

	for {
		start := time.Now()

		form, err := c.Parser.ParseNext()
		if errors.Is(err, io.EOF) {
			return results, nil
		}

		if err != nil {
			return results, err
		}

		closure, err := c.CompileCached(c.Packages.Global, form)
		if err != nil {
			return results, err
		}

		out, err := c.Machine.Execute(closure)
		if err != nil {
			return results, err
		}

		results = append(results, Result{
			Input:    Print(form),
			Compiled: c.Arena.Block(closure.Code).Instructions,
			Output:   out,
			Elapsed:  time.Since(start),
		})
	}
}

// runToplevel executes a fully-assembled code block with no arguments, as
// defmacro does to install its transform's compiled form at compile time.
func (c *Context) runToplevel(handle CodeHandle, env *Environment) (Val, error) {
	closure := &Closure{Code: handle, Env: env}

	return c.Machine.Execute(closure)
}

// callClosure invokes a closure (compiled or primitive) with already-
// evaluated arguments, used by macro expansion and the apply/eval
// primitives.
func (c *Context) callClosure(fn *Closure, args []Val) (Val, error) {
	if fn.IsPrimitive() {
		return fn.Primitive(c.Machine, args)
	}

	wrapper := c.Compiler.newAsm()

	for _, arg := range args {
		wrapper.emit(OpPushConst, arg, Nil, "")
	}

	wrapper.emit(OpPushConst, ClosureVal(fn), Nil, "")
	wrapper.emit(OpJmpClosure, Int64(int64(len(args))), Nil, "")

	instrs, err := wrapper.assemble()
	if err != nil {
		return Nil, err
	}

	handle := c.Arena.New("<apply>")
	c.Arena.Block(handle).Instructions = instrs

	return c.runToplevel(handle, nil)
}
