package ir

import (
	"io"

	"github.com/lyra-lang/lyra/internal/builtins"
	"github.com/lyra-lang/lyra/internal/runtime"
)

// Closure is the run-time handle for a compiled function value: the
// function plus the captured environment, in capture-list order.
type Closure struct {
	Fn       *Func
	Captured []runtime.Value
}

// Executor runs a compiled Module. It is single-threaded; one program
// gets one executor.
type Executor struct {
	module  *Module
	table   map[string]*builtins.Builtin
	globals map[string]runtime.Value
	bctx    *builtins.Context
}

// NewExecutor wires an executor to a module with the given builtin
// table (already capability-filtered by the caller).
func NewExecutor(m *Module, table map[string]*builtins.Builtin) *Executor {
	ex := &Executor{
		module:  m,
		table:   table,
		globals: map[string]runtime.Value{},
		bctx:    builtins.NewContext(0),
	}
	ex.bctx.Apply = ex.applyClosure
	return ex
}

// SetOutput redirects the builtin print family, mainly for tests.
func (ex *Executor) SetOutput(w io.Writer) {
	ex.bctx.Out = w
}

// SetImport installs the module loader hook used by the import
// builtin.
func (ex *Executor) SetImport(load func(spec string, line int) runtime.Value) {
	ex.bctx.Import = load
}

// Globals exposes the program's top-level bindings, mainly for tests
// and the module loader.
func (ex *Executor) Globals() map[string]runtime.Value {
	return ex.globals
}

// Run executes the entry function. The returned value is the value of
// the program's last top-level statement.
func (ex *Executor) Run() runtime.Value {
	entry := ex.module.Funcs[ex.module.Entry]
	return ex.call(entry, nil, nil)
}

func (ex *Executor) applyClosure(fn runtime.Value, args []runtime.Value, line int) runtime.Value {
	if fn.Tag != runtime.TagClosure {
		runtime.RaiseError(runtime.ErrTypeMismatch, line, "cannot call %s", fn.Tag)
		return runtime.Void()
	}
	cl, ok := fn.Obj.(*Closure)
	if !ok {
		runtime.RaiseError(runtime.ErrTypeMismatch, line, "foreign closure")
		return runtime.Void()
	}
	if len(args) != cl.Fn.NumParams {
		runtime.RaiseError(runtime.ErrBadArity, line, "%s expects %d arguments, got %d", cl.Fn.Name, cl.Fn.NumParams, len(args))
		return runtime.Void()
	}
	return ex.call(cl.Fn, args, cl.Captured)
}

// call runs fn over a fresh register frame. When the error flag goes
// up mid-block, control transfers to the innermost catch handler in
// this frame, or unwinds to the caller if there is none.
func (ex *Executor) call(fn *Func, args []runtime.Value, captured []runtime.Value) runtime.Value {
	regs := make([]runtime.Value, fn.NumRegs)
	copy(regs, args)

	var catchStack []int

	blockIdx := 0
	pred := -1
	for {
		b := fn.Blocks[blockIdx]

		for _, phi := range b.Phis {
			for _, src := range phi.Sources {
				if src.Pred == pred {
					regs[phi.Dst] = regs[src.Src]
					break
				}
			}
		}

		trapped := false
		for i := range b.Instrs {
			in := &b.Instrs[i]
			switch in.Op {
			case OpEnterCatch:
				catchStack = append(catchStack, in.Target)
				runtime.EnterCatch()
				continue
			case OpLeaveCatch:
				catchStack = catchStack[:len(catchStack)-1]
				runtime.LeaveCatch()
				continue
			// Handler prologue ops run while the flag is still up and
			// must not re-trap.
			case OpFlagMessage:
				regs[in.Dst] = runtime.StringVal(runtime.ErrorMessage())
				continue
			case OpClearFlag:
				runtime.ClearError()
				continue
			}
			ex.step(fn, in, regs, captured)
			if runtime.ErrorActive() {
				if len(catchStack) == 0 {
					return runtime.Void()
				}
				pred = blockIdx
				blockIdx = catchStack[len(catchStack)-1]
				catchStack = catchStack[:len(catchStack)-1]
				runtime.LeaveCatch()
				trapped = true
				break
			}
		}
		if trapped {
			continue
		}

		switch b.Term.Kind {
		case TermJump:
			pred = blockIdx
			blockIdx = b.Term.Then
		case TermBranch:
			pred = blockIdx
			if regs[b.Term.Cond].Truthy() {
				blockIdx = b.Term.Then
			} else {
				blockIdx = b.Term.Else
			}
		case TermReturn:
			if b.Term.Val == NoReg {
				return runtime.Void()
			}
			return regs[b.Term.Val]
		}
	}
}

func (ex *Executor) step(fn *Func, in *Instr, regs []runtime.Value, captured []runtime.Value) {
	switch in.Op {
	case OpConst:
		regs[in.Dst] = in.Val
	case OpMove:
		regs[in.Dst] = regs[in.A]

	case OpAddInt:
		regs[in.Dst] = runtime.IntVal(regs[in.Args[0]].AsInt() + regs[in.Args[1]].AsInt())
	case OpSubInt:
		regs[in.Dst] = runtime.IntVal(regs[in.Args[0]].AsInt() - regs[in.Args[1]].AsInt())
	case OpMulInt:
		regs[in.Dst] = runtime.IntVal(regs[in.Args[0]].AsInt() * regs[in.Args[1]].AsInt())
	case OpAddFloat:
		regs[in.Dst] = runtime.FloatVal(regs[in.Args[0]].AsFloat() + regs[in.Args[1]].AsFloat())
	case OpSubFloat:
		regs[in.Dst] = runtime.FloatVal(regs[in.Args[0]].AsFloat() - regs[in.Args[1]].AsFloat())
	case OpMulFloat:
		regs[in.Dst] = runtime.FloatVal(regs[in.Args[0]].AsFloat() * regs[in.Args[1]].AsFloat())
	case OpDivFloat:
		d := regs[in.Args[1]].AsFloat()
		if d == 0 {
			runtime.RaiseError(runtime.ErrDivisionByZero, in.Line, "divide by zero")
			return
		}
		regs[in.Dst] = runtime.FloatVal(regs[in.Args[0]].AsFloat() / d)
	case OpRemInt:
		d := regs[in.Args[1]].AsInt()
		if d == 0 {
			runtime.RaiseError(runtime.ErrDivisionByZero, in.Line, "remainder by zero")
			return
		}
		regs[in.Dst] = runtime.IntVal(regs[in.Args[0]].AsInt() % d)

	case OpLessInt:
		regs[in.Dst] = runtime.BoolVal(regs[in.Args[0]].AsInt() < regs[in.Args[1]].AsInt())
	case OpLessFloat:
		regs[in.Dst] = runtime.BoolVal(regs[in.Args[0]].AsFloat() < regs[in.Args[1]].AsFloat())
	case OpGreaterInt:
		regs[in.Dst] = runtime.BoolVal(regs[in.Args[0]].AsInt() > regs[in.Args[1]].AsInt())
	case OpGreaterFloat:
		regs[in.Dst] = runtime.BoolVal(regs[in.Args[0]].AsFloat() > regs[in.Args[1]].AsFloat())
	case OpNot:
		regs[in.Dst] = runtime.BoolVal(!regs[in.A].Truthy())
	case OpIntToFloat:
		regs[in.Dst] = runtime.FloatVal(float64(regs[in.A].AsInt()))

	case OpBox:
		regs[in.Dst] = regs[in.A]
	case OpUnboxInt:
		v := regs[in.A]
		if v.Tag != runtime.TagInt {
			runtime.RaiseError(runtime.ErrTypeMismatch, in.Line, "expected int, got %s", v.Tag)
			return
		}
		regs[in.Dst] = v
	case OpUnboxFloat:
		v := regs[in.A]
		switch v.Tag {
		case runtime.TagFloat:
			regs[in.Dst] = v
		case runtime.TagInt:
			regs[in.Dst] = runtime.FloatVal(float64(v.AsInt()))
		default:
			runtime.RaiseError(runtime.ErrTypeMismatch, in.Line, "expected float, got %s", v.Tag)
		}
	case OpUnboxString:
		v := regs[in.A]
		if v.Tag != runtime.TagString {
			runtime.RaiseError(runtime.ErrTypeMismatch, in.Line, "expected string, got %s", v.Tag)
			return
		}
		regs[in.Dst] = v

	case OpEquals:
		regs[in.Dst] = runtime.BoolVal(runtime.Equals(regs[in.Args[0]], regs[in.Args[1]]))

	case OpMakeList:
		items := make([]runtime.Value, len(in.Args))
		for i, a := range in.Args {
			items[i] = regs[a]
		}
		regs[in.Dst] = runtime.ListVal(&runtime.List{Items: items})

	case OpMakeClosure:
		captures := make([]runtime.Value, len(in.Args))
		for i, a := range in.Args {
			captures[i] = regs[a]
		}
		regs[in.Dst] = runtime.ClosureVal(&Closure{Fn: ex.module.Funcs[in.FuncID], Captured: captures})

	case OpCallBuiltin:
		b := ex.table[in.Name]
		if b == nil {
			runtime.RaiseError(runtime.ErrUndefinedName, in.Line, "builtin %q is not available", in.Name)
			return
		}
		args := make([]runtime.Value, len(in.Args))
		for i, a := range in.Args {
			args[i] = regs[a]
		}
		ex.bctx.Line = in.Line
		regs[in.Dst] = b.Fn(ex.bctx, args)

	case OpCallStatic:
		callee := ex.module.Funcs[in.FuncID]
		args := make([]runtime.Value, len(in.Args))
		for i, a := range in.Args {
			args[i] = regs[a]
		}
		regs[in.Dst] = ex.call(callee, args, nil)

	case OpCallClosure:
		args := make([]runtime.Value, len(in.Args))
		for i, a := range in.Args {
			args[i] = regs[a]
		}
		regs[in.Dst] = ex.applyClosure(regs[in.A], args, in.Line)

	case OpLoadCapture:
		regs[in.Dst] = captured[in.Idx]
	case OpLoadGlobal:
		v, ok := ex.globals[in.Name]
		if !ok {
			runtime.RaiseError(runtime.ErrUndefinedName, in.Line, "undefined name %q", in.Name)
			return
		}
		regs[in.Dst] = v
	case OpStoreGlobal:
		ex.globals[in.Name] = regs[in.A]

	case OpRaise:
		runtime.RaiseError(in.Err, in.Line, "%s", in.Name)

	}
}
