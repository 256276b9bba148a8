package lisp

import (
	"log/slog"

	"github.com/ardnew/parembnet/log"
)

// Machine is the stack-based interpreter described in spec section 4.3:
// fetch-decode-execute over one instruction stream at a time, with an
// explicit evaluation stack, current environment, current closure, and
// program counter.
type Machine struct {
	arena    *CodeArena
	packages *Packages
	ctx      *Context
	Logger   log.Logger

	fn       *Closure
	pc       int
	env      *Environment
	stack    []Val
	argcount int
	done     bool
}

// NewMachine returns a machine that executes code blocks from arena,
// resolving globals against pkgs.
func NewMachine(arena *CodeArena, pkgs *Packages, ctx *Context) *Machine {
	return &Machine{arena: arena, packages: pkgs, ctx: ctx}
}

func (m *Machine) push(v Val) { m.stack = append(m.stack, v) }

func (m *Machine) pop() (Val, error) {
	if len(m.stack) == 0 {
		return Nil, ErrStackUnderflow
	}

	top := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]

	return top, nil
}

func (m *Machine) peek() (Val, error) {
	if len(m.stack) == 0 {
		return Nil, ErrStackUnderflow
	}

	return m.stack[len(m.stack)-1], nil
}

// Execute runs fn to completion (a RETURN with one entry remaining on the
// stack) and returns the final value, or an error if the VM faults.
func (m *Machine) Execute(fn *Closure) (Val, error) {
	saveFn, savePC, saveEnv, saveStack, saveArgc, saveDone := m.fn, m.pc, m.env, m.stack, m.argcount, m.done
	defer func() {
		m.fn, m.pc, m.env, m.stack, m.argcount, m.done = saveFn, savePC, saveEnv, saveStack, saveArgc, saveDone
	}()

	m.fn = fn
	m.pc = 0
	m.env = fn.Env
	m.stack = nil
	m.argcount = 0
	m.done = false

	for !m.done {
		v, err := m.step()
		if err != nil {
			return Nil, err
		}

		if m.done {
			return v, nil
		}
	}

	return Nil, nil
}

// step fetches and executes one instruction. The returned Val is only
// meaningful when RETURN sets m.done.
func (m *Machine) step() (Val, error) {
	block := m.arena.Block(m.fn.Code)

	if m.pc < 0 || m.pc >= len(block.Instructions) {
		return Nil, ErrRunawayPC.With(slog.Int("pc", m.pc), slog.String("block", block.Name))
	}

	ins := block.Instructions[m.pc]
	m.pc++

	if m.Logger.Logger != nil {
		m.Logger.TraceContext(log.DefaultContextProvider(), "exec",
			slog.String("op", ins.Op.String()), slog.Int("pc", m.pc-1), slog.Int("stack_depth", len(m.stack)))
	}

	switch ins.Op {
	case OpPushConst:
		m.push(ins.Op1)

	case OpLocalGet:
		pos := VarPos{FrameIndex: int(ins.Op1.Int64()), SlotIndex: int(ins.Op2.Int64())}
		m.push(m.env.Get(pos))

	case OpLocalSet:
		pos := VarPos{FrameIndex: int(ins.Op1.Int64()), SlotIndex: int(ins.Op2.Int64())}

		top, err := m.peek()
		if err != nil {
			return Nil, err
		}

		m.env.Set(pos, top)

	case OpGlobalGet:
		sym := ins.Op1.Symbol()

		v, ok := sym.Pkg.Get(sym)
		if !ok {
			v = Nil
		}

		m.push(v)

	case OpGlobalSet:
		sym := ins.Op1.Symbol()

		top, err := m.peek()
		if err != nil {
			return Nil, err
		}

		Set(sym, top)

	case OpPop:
		if _, err := m.pop(); err != nil {
			return Nil, err
		}

	case OpDup:
		top, err := m.peek()
		if err != nil {
			return Nil, err
		}

		m.push(top)

	case OpJmpIfTrue:
		cond, err := m.pop()
		if err != nil {
			return Nil, err
		}

		if cond.Truthy() {
			m.pc = int(ins.Op2.Int64())
		}

	case OpJmpIfFalse:
		cond, err := m.pop()
		if err != nil {
			return Nil, err
		}

		if !cond.Truthy() {
			m.pc = int(ins.Op2.Int64())
		}

	case OpJmp:
		m.pc = int(ins.Op2.Int64())

	case OpMakeEnv:
		n := int(ins.Op1.Int64())

		if m.argcount != n {
			return Nil, ErrWrongArgCount.With(slog.Int("want", n), slog.Int("got", m.argcount))
		}

		frame := NewEnvironment(m.env, n)

		for i := n - 1; i >= 0; i-- {
			v, err := m.pop()
			if err != nil {
				return Nil, err
			}

			frame.Values[i] = v
		}

		m.env = frame

	case OpMakeEnvDot:
		n := int(ins.Op1.Int64())

		if m.argcount < n {
			return Nil, ErrWrongArgCount.With(slog.Int("want_at_least", n), slog.Int("got", m.argcount))
		}

		frame := NewEnvironment(m.env, n+1)
		extra := m.argcount - n

		rest := Nil
		for i := 0; i < extra; i++ {
			v, err := m.pop()
			if err != nil {
				return Nil, err
			}

			rest = Cell(v, rest)
		}

		frame.Values[n] = rest

		for i := n - 1; i >= 0; i-- {
			v, err := m.pop()
			if err != nil {
				return Nil, err
			}

			frame.Values[i] = v
		}

		m.env = frame

	case OpMakeClosure:
		template := ins.Op1.Closure()
		clone := &Closure{
			Code:   template.Code,
			Env:    m.env,
			Params: template.Params,
			Dotted: template.Dotted,
			Name:   template.Name,
		}
		m.push(ClosureVal(clone))

	case OpSaveReturn:
		m.push(ReturnAddressVal(&ReturnAddress{Fn: m.fn, PC: int(ins.Op2.Int64()), Env: m.env, Debug: block.Name}))

	case OpJmpClosure:
		n := int(ins.Op1.Int64())

		callee, err := m.pop()
		if err != nil {
			return Nil, err
		}

		if callee.Kind != KindClosure {
			return Nil, ErrNotAClosure.With(slog.String("got", callee.Kind.String()))
		}

		closure := callee.Closure()

		if closure.IsPrimitive() {
			args := make([]Val, n)

			for i := n - 1; i >= 0; i-- {
				v, err := m.pop()
				if err != nil {
					return Nil, err
				}

				args[i] = v
			}

			result, err := closure.Primitive(m, args)
			if err != nil {
				return Nil, err
			}

			m.push(result)

			return m.returnToCaller()
		}

		m.fn = closure
		m.env = closure.Env
		m.pc = 0
		m.argcount = n

	case OpReturn:
		return m.returnToCaller()

	case OpCallPrimop:
		name := ins.Op1.AsStr()
		argc := int(ins.Op2.Int64())

		args := make([]Val, argc)

		for i := argc - 1; i >= 0; i-- {
			v, err := m.pop()
			if err != nil {
				return Nil, err
			}

			args[i] = v
		}

		result, err := callPrimitive(m, name, args)
		if err != nil {
			return Nil, err
		}

		m.push(result)

	default:
		return Nil, ErrUnknownOpcode.With(slog.String("op", ins.Op.String()))
	}

	return Nil, nil
}

// returnToCaller implements RETURN: with more than one stack entry, pop
// the return value and the saved ReturnAddress and resume the caller;
// otherwise the call chain is exhausted and the machine halts with the
// return value on top.
func (m *Machine) returnToCaller() (Val, error) {
	if len(m.stack) <= 1 {
		retval, err := m.pop()
		if err != nil {
			return Nil, err
		}

		m.done = true

		return retval, nil
	}

	retval, err := m.pop()
	if err != nil {
		return Nil, err
	}

	addrVal, err := m.pop()
	if err != nil {
		return Nil, err
	}

	if addrVal.Kind != KindReturnAddress {
		return Nil, ErrBadJumpTarget.With(slog.String("got", addrVal.Kind.String()))
	}

	addr := addrVal.ReturnAddress()
	m.fn = addr.Fn
	m.env = addr.Env
	m.pc = addr.PC
	m.push(retval)

	return Nil, nil
}
